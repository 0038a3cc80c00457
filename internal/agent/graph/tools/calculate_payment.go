package tools

import (
	"context"
	"errors"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/dealerflow/salesagent/internal/agent/finance"
	"github.com/dealerflow/salesagent/internal/agent/model"
)

type CalculatePaymentInput struct {
	VehicleModel  string  `json:"vehicle_model"`
	PlanType      string  `json:"plan_type,omitempty"`
	DownPayment   float64 `json:"down_payment,omitempty"`
	TermMonths    int     `json:"term_months,omitempty"`
	AnnualMileage int     `json:"annual_mileage,omitempty"`
}

type CalculatePaymentOutput struct {
	Error    string                 `json:"error,omitempty"`
	Note     string                 `json:"note,omitempty"`
	Lease    *finance.LeaseQuote    `json:"lease,omitempty"`
	Purchase *finance.FinanceQuote  `json:"purchase,omitempty"`
	Extra    map[string]interface{} `json:"extra,omitempty"`
}

func createCalculatePaymentTool(deps Deps) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: ToolCalculatePayment,
			Desc: "Calculate the real monthly payment for a vehicle using the dealer's current rate sheet. This is the ONLY source of payment numbers; never estimate payments yourself. Requires the client's credit score and document to already be known. Supports lease, purchase, or both.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"vehicle_model": {
					Type:     "string",
					Desc:     "Vehicle model name, e.g. 'Corolla LE', 'RAV4', 'Camry Hybrid'.",
					Required: true,
				},
				"plan_type": {
					Type: "string",
					Desc: "One of: lease, purchase, both. Defaults to the plan the client already chose, or both.",
				},
				"down_payment": {
					Type: "number",
					Desc: "Down payment in dollars. Defaults to what the client said they have available.",
				},
				"term_months": {
					Type: "number",
					Desc: "Term in months. Defaults: 39 for lease, 60 for purchase.",
				},
				"annual_mileage": {
					Type: "number",
					Desc: "Annual mileage allowance for lease: 12000, 15000 or 18000. Default 12000.",
				},
			}),
		},
		func(ctx context.Context, in *CalculatePaymentInput) (*CalculatePaymentOutput, error) {
			turn := TurnFrom(ctx)
			if turn == nil || turn.Session == nil {
				return &CalculatePaymentOutput{Error: "no_active_session"}, nil
			}
			s := turn.Session

			// the qualification gate in the prompt should prevent this, but
			// the tool enforces it regardless
			if s.CreditScore == nil {
				return &CalculatePaymentOutput{
					Error: "missing_credit_score",
					Note:  "Ask for the client's approximate credit score before quoting any payment.",
				}, nil
			}

			mdl := strings.TrimSpace(in.VehicleModel)
			if mdl == "" && s.VehicleInterest != nil {
				mdl = s.VehicleInterest.Model
			}
			if mdl == "" {
				return &CalculatePaymentOutput{
					Error: "missing_vehicle_model",
					Note:  "Ask which vehicle the client wants numbers for.",
				}, nil
			}

			down := in.DownPayment
			if down <= 0 {
				down = s.DownPayment
			}
			if down <= 0 {
				down = deps.DownPaymentFloor
			}

			plan := strings.ToLower(strings.TrimSpace(in.PlanType))
			if plan == "" {
				switch s.DealIntent {
				case model.IntentLease:
					plan = "lease"
				case model.IntentPurchase:
					plan = "purchase"
				default:
					plan = "both"
				}
			}

			firstBuyer := s.FirstTimeBuyer != nil && *s.FirstTimeBuyer
			out := &CalculatePaymentOutput{}
			now := deps.now()

			if plan == "both" {
				// side-by-side comparison with a recommendation line
				sc, err := deps.Calculator.BuildScenarios(mdl, *s.CreditScore, firstBuyer, down)
				if err != nil {
					return modelNotFoundOutput(err, mdl)
				}
				if sc.Lease != nil {
					out.Lease = sc.Lease
					turn.RecordOffer(model.OfferSnapshot{
						Vehicle:        sc.Lease.Model,
						PlanType:       "lease",
						MonthlyPayment: sc.Lease.MonthlyPayment,
						DownPayment:    down,
						TermMonths:     sc.Lease.TermMonths,
						QuotedAt:       now,
					})
				}
				out.Purchase = sc.Purchase
				turn.RecordOffer(model.OfferSnapshot{
					Vehicle:        sc.Purchase.Model,
					PlanType:       "purchase",
					MonthlyPayment: sc.Purchase.MonthlyPayment,
					DownPayment:    down,
					TermMonths:     sc.Purchase.TermMonths,
					QuotedAt:       now,
				})
				out.Note = sc.Recommendation
				return out, nil
			}

			if plan == "lease" {
				q, err := deps.Calculator.QuoteLease(mdl, *s.CreditScore, down, in.TermMonths, in.AnnualMileage)
				if err != nil {
					return modelNotFoundOutput(err, mdl)
				}
				out.Lease = q
				turn.RecordOffer(model.OfferSnapshot{
					Vehicle:        q.Model,
					PlanType:       "lease",
					MonthlyPayment: q.MonthlyPayment,
					DownPayment:    down,
					TermMonths:     q.TermMonths,
					QuotedAt:       now,
				})
			}
			if plan == "purchase" {
				q, err := deps.Calculator.QuoteFinance(mdl, *s.CreditScore, down, in.TermMonths, firstBuyer)
				if err != nil {
					return modelNotFoundOutput(err, mdl)
				}
				out.Purchase = q
				turn.RecordOffer(model.OfferSnapshot{
					Vehicle:        q.Model,
					PlanType:       "purchase",
					MonthlyPayment: q.MonthlyPayment,
					DownPayment:    down,
					TermMonths:     q.TermMonths,
					QuotedAt:       now,
				})
			}

			if firstBuyer {
				out.Note = "First-time buyer: lenders may require proof of income and a larger down payment; frame the lease as a credit-building path."
			}
			return out, nil
		},
	)
}

func modelNotFoundOutput(err error, mdl string) (*CalculatePaymentOutput, error) {
	if errors.Is(err, finance.ErrModelNotFound) {
		return &CalculatePaymentOutput{
			Error: "model_not_found",
			Note:  "No rate data for " + mdl + ". Offer a comparable model from the current lineup instead.",
		}, nil
	}
	return nil, err
}
