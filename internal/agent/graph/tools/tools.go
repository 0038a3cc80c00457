// Package tools implements the business tools bound to the response model.
// Tools never mutate session state directly: anything that must outlive the
// turn (a quote shown, an appointment booked) is recorded on the Turn
// carried in the context, and the engine applies it under the conversation
// lock after the graph returns.
package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"

	"github.com/dealerflow/salesagent/internal/agent/finance"
	"github.com/dealerflow/salesagent/internal/agent/model"
)

const (
	ToolCalculatePayment    = "calculate_payment"
	ToolCheckCalendar       = "check_calendar_availability"
	ToolScheduleAppointment = "schedule_appointment"
	ToolFetchVehicleMedia   = "fetch_vehicle_media"
)

// Deps holds the shared collaborators behind the tools. One Deps serves
// every conversation; per-turn data rides the context, never Deps.
type Deps struct {
	Calculator *finance.Calculator
	Calendar   model.CalendarStore
	Inventory  model.InventoryCatalog

	// DownPaymentFloor substitutes for a missing down payment so a quote
	// is always computable once the client is qualified.
	DownPaymentFloor float64

	// Clock is injectable for tests; nil means time.Now.
	Clock func() time.Time
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

// GetQueryTools returns the business tools in binding order.
func GetQueryTools(deps Deps) []tool.BaseTool {
	return []tool.BaseTool{
		createCalculatePaymentTool(deps),
		createCheckCalendarTool(deps),
		createScheduleAppointmentTool(deps),
		createFetchVehicleMediaTool(deps),
	}
}

// GetToolInfos resolves ToolInfo for each tool, as required for binding to
// the response model.
func GetToolInfos(ctx context.Context, ts []tool.BaseTool) ([]*schema.ToolInfo, error) {
	infos := make([]*schema.ToolInfo, 0, len(ts))
	for _, t := range ts {
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}
