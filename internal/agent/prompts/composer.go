package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/dealerflow/salesagent/internal/agent/model"
)

// Composer builds the per-turn system prompt from a ruleset and the
// accumulated session facts.
type Composer struct {
	rules   *Ruleset
	persona model.PersonaConfig
}

func NewComposer(rules *Ruleset, persona model.PersonaConfig) *Composer {
	if rules == nil {
		rules = DefaultRuleset()
	}
	return &Composer{rules: rules, persona: persona}
}

// Render composes the system prompt for one turn. Section order is fixed:
// persona base, stage block, hard override (when qualification facts are
// missing), trade-in alert, known facts, client memory, last offer.
// memoryContext is the pre-rendered relationship summary; empty means the
// client is new.
func (c *Composer) Render(ctx context.Context, s *model.SessionState, memoryContext string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("compose prompt: nil session state")
	}

	var b strings.Builder

	stageBlock, ok := c.rules.StageBlocks[s.Stage]
	if !ok {
		stageBlock = c.rules.StageBlocks[model.StageDiscovery]
	}
	b.WriteString(stageBlock)

	// the override rides along in every stage where the facts are missing,
	// not just QUALIFICATION, so a client who jumps straight to "cuánto
	// sale" in discovery still gets no numbers
	if s.CreditScore == nil || s.DocType == "" {
		b.WriteString("\n")
		b.WriteString(c.rules.QualificationOverride)
	}

	if s.HasTradeIn {
		b.WriteString("\n")
		b.WriteString(c.rules.TradeInAlert)
	}

	b.WriteString("\n")
	b.WriteString(renderFacts(s))

	if memoryContext != "" {
		b.WriteString("\nLO QUE SABES DE ESTE CLIENTE:\n")
		b.WriteString(memoryContext)
	}

	if s.LastOffer != nil {
		o := s.LastOffer
		fmt.Fprintf(&b, "\nÚLTIMA OFERTA DADA: %s %s a $%.0f/mes con $%.0f de inicial (%d meses). Sé consistente con estos números.\n",
			o.Vehicle, o.PlanType, o.MonthlyPayment, o.DownPayment, o.TermMonths)
	}

	// render the persona base through the Eino prompt component so prompt
	// callbacks fire, then prepend it to the assembled sections
	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.SystemMessage(c.rules.Base),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"SellerName": c.persona.SellerName,
		"DealerName": c.persona.DealerName,
	})
	if err != nil {
		return "", fmt.Errorf("compose prompt: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("compose prompt: empty render")
	}

	return msgs[0].Content + "\n" + b.String(), nil
}

// renderFacts lists what the session has already captured so the model
// never re-asks answered questions.
func renderFacts(s *model.SessionState) string {
	var b strings.Builder
	b.WriteString("DATOS YA CONFIRMADOS (no los vuelvas a preguntar):\n")

	if s.VehicleInterest != nil {
		fmt.Fprintf(&b, "- Vehículo de interés: %s\n", s.VehicleInterest.Model)
	}
	if s.UsageType != "" && s.UsageType != model.UsageUnknown {
		fmt.Fprintf(&b, "- Uso: %s\n", s.UsageType)
	}
	if s.CreditScore != nil {
		fmt.Fprintf(&b, "- Score de crédito: %d\n", *s.CreditScore)
	}
	if s.DocType != "" {
		fmt.Fprintf(&b, "- Documento: %s\n", s.DocType)
	}
	if s.FirstTimeBuyer != nil {
		if *s.FirstTimeBuyer {
			b.WriteString("- Primer comprador, sin historial de financiamiento\n")
		} else {
			b.WriteString("- Ya ha financiado antes\n")
		}
	}
	if s.DownPayment > 0 {
		fmt.Fprintf(&b, "- Inicial disponible: $%.0f\n", s.DownPayment)
	}
	if s.DealIntent != "" && s.DealIntent != model.IntentUnknown {
		fmt.Fprintf(&b, "- Plan elegido: %s\n", s.DealIntent)
	}
	if s.AppointmentAt != nil {
		fmt.Fprintf(&b, "- Cita agendada: %s\n", s.AppointmentAt.Format("Mon Jan 2 3:04 PM"))
	}
	return b.String()
}
