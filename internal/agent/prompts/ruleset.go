// Package prompts assembles the system prompt for the response model. The
// prompt is rebuilt from the session state on every turn; nothing in it is
// carried over from the model's previous output.
package prompts

import (
	_ "embed"

	"github.com/dealerflow/salesagent/internal/agent/model"
)

//go:embed template/persona_base.txt
var personaBase string

//go:embed template/stage_discovery.txt
var stageDiscovery string

//go:embed template/stage_qualification.txt
var stageQualification string

//go:embed template/stage_strategy.txt
var stageStrategy string

//go:embed template/stage_offer.txt
var stageOffer string

//go:embed template/stage_appointment.txt
var stageAppointment string

//go:embed template/qualification_override.txt
var qualificationOverride string

//go:embed template/trade_in_alert.txt
var tradeInAlert string

// Ruleset is one version of the prompt content. It is data: swapping the
// ruleset retunes the agent's behavior without touching composition logic.
type Ruleset struct {
	Version string

	Base        string
	StageBlocks map[model.Stage]string

	// QualificationOverride is appended after the stage block whenever the
	// session is missing the credit score or the document type. It must win
	// over every other instruction, which is why it travels in the same
	// system prompt rather than as a separate message.
	QualificationOverride string

	TradeInAlert string
}

// DefaultRuleset returns the embedded prompt content.
func DefaultRuleset() *Ruleset {
	return &Ruleset{
		Version: "v1",
		Base:    personaBase,
		StageBlocks: map[model.Stage]string{
			model.StageDiscovery:     stageDiscovery,
			model.StageQualification: stageQualification,
			model.StageStrategy:      stageStrategy,
			model.StageOffer:         stageOffer,
			model.StageAppointment:   stageAppointment,
		},
		QualificationOverride: qualificationOverride,
		TradeInAlert:          tradeInAlert,
	}
}
