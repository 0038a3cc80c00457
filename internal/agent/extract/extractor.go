// Package extract turns one inbound message into a partial session-state
// patch. Matching is purely lexical: fixed vocabularies and two compiled
// patterns, no model calls, no side effects. The same message against the
// same state always yields the same patch.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/dealerflow/salesagent/internal/agent/model"
)

var (
	scoreRe = regexp.MustCompile(`\b(5[5-9]\d|6\d{2}|7\d{2}|8\d{2})\b`)
)

type Extractor struct {
	cfg    Config
	downRe *regexp.Regexp
}

func New(cfg Config) *Extractor {
	alts := make([]string, 0, len(cfg.DownPaymentKeywords))
	for _, kw := range cfg.DownPaymentKeywords {
		alts = append(alts, regexp.QuoteMeta(kw))
	}
	// a bare number never counts as a down payment: the amount must be
	// followed by one of the configured keywords
	downRe := regexp.MustCompile(`\$?\s*([0-9][0-9,]*)\s*(?:` + strings.Join(alts, "|") + `)`)
	return &Extractor{cfg: cfg, downRe: downRe}
}

// Extract parses the message against the current state and returns the
// resulting patch. Unmatched fields are simply absent; malformed input
// never produces an error.
func (e *Extractor) Extract(message string, current *model.SessionState) model.StatePatch {
	var patch model.StatePatch
	msg := strings.ToLower(message)

	e.extractVehicle(msg, current, &patch)
	e.extractUsage(msg, &patch)
	e.extractDoc(msg, &patch)
	e.extractCreditScore(message, msg, &patch)
	e.extractDownPayment(msg, &patch)
	e.extractBuyerHistory(msg, &patch)
	e.extractTradeIn(msg, &patch)
	e.extractStrategyAcceptance(msg, current, &patch)

	return patch
}

func (e *Extractor) extractVehicle(msg string, current *model.SessionState, patch *model.StatePatch) {
	for _, v := range e.cfg.Vehicles {
		if !strings.Contains(msg, v.Keyword) {
			continue
		}
		interest := v.Interest
		// an already-captured interest is only replaced when a different
		// model is explicitly named
		if current != nil && current.VehicleInterest != nil &&
			strings.EqualFold(current.VehicleInterest.Model, interest.Model) {
			return
		}
		patch.VehicleInterest = &interest
		return
	}
}

func (e *Extractor) extractUsage(msg string, patch *model.StatePatch) {
	for _, u := range e.cfg.Usages {
		for _, kw := range u.Keywords {
			if strings.Contains(msg, kw) {
				usage := u.Usage
				patch.UsageType = &usage
				return
			}
		}
	}
}

func (e *Extractor) extractDoc(msg string, patch *model.StatePatch) {
	for _, d := range e.cfg.Docs {
		for _, kw := range d.Keywords {
			if strings.Contains(msg, kw) {
				doc := d.Doc
				patch.DocType = &doc
				return
			}
		}
	}
}

// extractCreditScore prefers an explicit in-range number; descriptive
// aliases ("excelente") only apply when no number is present.
func (e *Extractor) extractCreditScore(original, msg string, patch *model.StatePatch) {
	for _, m := range scoreRe.FindAllString(original, -1) {
		v, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if v >= e.cfg.ScoreMin && v <= e.cfg.ScoreMax {
			patch.CreditScore = &v
			return
		}
	}
	for _, alias := range e.cfg.ScoreAliases {
		if strings.Contains(msg, alias.Phrase) {
			score := alias.Score
			patch.CreditScore = &score
			return
		}
	}
}

func (e *Extractor) extractDownPayment(msg string, patch *model.StatePatch) {
	m := e.downRe.FindStringSubmatch(msg)
	if m == nil {
		return
	}
	amount, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return
	}
	patch.DownPayment = &amount
}

// extractBuyerHistory handles the mutually exclusive first-time-buyer and
// has-credit-history phrase sets: a credit-history phrase clears a prior
// first_time_buyer=true.
func (e *Extractor) extractBuyerHistory(msg string, patch *model.StatePatch) {
	for _, phrase := range e.cfg.CreditHistoryPhrases {
		if strings.Contains(msg, phrase) {
			f := false
			patch.FirstTimeBuyer = &f
			return
		}
	}
	for _, phrase := range e.cfg.FirstBuyerPhrases {
		if strings.Contains(msg, phrase) {
			t := true
			patch.FirstTimeBuyer = &t
			return
		}
	}
}

func (e *Extractor) extractTradeIn(msg string, patch *model.StatePatch) {
	for _, phrase := range e.cfg.TradeInPhrases {
		if strings.Contains(msg, phrase) {
			t := true
			patch.HasTradeIn = &t
			return
		}
	}
}

// extractStrategyAcceptance only fires while the conversation sits in the
// STRATEGY stage. A plan keyword both picks the deal intent and implies
// acceptance; a bare agreement phrase accepts the proposed strategy.
func (e *Extractor) extractStrategyAcceptance(msg string, current *model.SessionState, patch *model.StatePatch) {
	if current == nil || current.Stage != model.StageStrategy {
		return
	}

	accepted := false
	if !strings.HasPrefix(strings.TrimSpace(msg), "no") {
		for _, phrase := range e.cfg.AgreementPhrases {
			if strings.Contains(msg, phrase) {
				accepted = true
				break
			}
		}
	}

	for _, kw := range e.cfg.PurchaseKeywords {
		if strings.Contains(msg, kw) {
			intent := model.IntentPurchase
			patch.DealIntent = &intent
			accepted = true
			break
		}
	}
	if patch.DealIntent == nil {
		for _, kw := range e.cfg.LeaseKeywords {
			if strings.Contains(msg, kw) {
				intent := model.IntentLease
				patch.DealIntent = &intent
				accepted = true
				break
			}
		}
	}

	if accepted {
		t := true
		patch.StrategyAccepted = &t
	}
}
