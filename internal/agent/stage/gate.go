// Package stage computes the conversation stage from accumulated session
// facts. The gate is the single authority on what the engine may act on:
// the completion model's prose never advances a conversation, only merged
// facts do.
package stage

import (
	"github.com/dealerflow/salesagent/internal/agent/model"
)

// Gate maps a session state to its stage. It is pure and total: the same
// state always yields the same stage, and every state yields one. Each
// gate blocks all gates below it until satisfied, so facts supplied out of
// order are retained but do not advance the stage early.
func Gate(s *model.SessionState) model.Stage {
	if s == nil {
		return model.StageDiscovery
	}

	// 1. discovery gate: what and why
	if s.VehicleInterest == nil || s.UsageType == "" || s.UsageType == model.UsageUnknown {
		return model.StageDiscovery
	}

	// 2. qualification gate: score and document
	if s.CreditScore == nil || s.DocType == "" {
		return model.StageQualification
	}

	// 3. strategy gate: the client has to buy into the plan
	if !s.StrategyAccepted {
		return model.StageStrategy
	}

	// 4. a confirmed appointment is the (soft) terminal stage
	if s.AppointmentAt != nil {
		return model.StageAppointment
	}

	return model.StageOffer
}
