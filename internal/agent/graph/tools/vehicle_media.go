package tools

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/dealerflow/salesagent/internal/agent/model"
)

type FetchVehicleMediaInput struct {
	VehicleModel string `json:"vehicle_model"`
}

type FetchVehicleMediaOutput struct {
	Found    bool                  `json:"found"`
	Note     string                `json:"note,omitempty"`
	Vehicles []model.InventoryItem `json:"vehicles,omitempty"`
}

func createFetchVehicleMediaTool(deps Deps) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolFetchVehicleMedia,
			Desc: "Fetch photos/videos of a vehicle from the dealer's inventory. Use when the client asks to see the car. If nothing is found, say so honestly; never describe media you haven't fetched.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"vehicle_model": {
					Type:     "string",
					Desc:     "Model to look up, e.g. 'Corolla', 'RAV4 XLE'.",
					Required: true,
				},
			}),
		},
		func(ctx context.Context, in *FetchVehicleMediaInput) (*FetchVehicleMediaOutput, error) {
			mdl := strings.TrimSpace(in.VehicleModel)
			if mdl == "" {
				return &FetchVehicleMediaOutput{Found: false, Note: "Ask which vehicle the client wants to see."}, nil
			}

			items, err := deps.Inventory.Search(ctx, "", mdl, 3)
			if err != nil {
				return nil, err
			}
			if len(items) == 0 {
				return &FetchVehicleMediaOutput{
					Found: false,
					Note:  "No " + mdl + " in stock right now. Offer to show a similar model.",
				}, nil
			}

			if turn := TurnFrom(ctx); turn != nil {
				for _, it := range items {
					if it.MediaURL != "" {
						turn.RecordMedia(it.MediaURL)
						break
					}
				}
			}
			return &FetchVehicleMediaOutput{Found: true, Vehicles: items}, nil
		},
	)
}
