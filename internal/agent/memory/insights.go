// Package memory maintains the long-lived client relationship record. The
// deterministic part (interaction counters, offers, vehicle dedup) runs
// synchronously in the engine turn; the model-driven insight extraction
// runs asynchronously and only ever enriches, never gates.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/schema"

	errx "github.com/dealerflow/salesagent/internal/core/error"
	logx "github.com/dealerflow/salesagent/pkg/logger"
)

// safety limits for model-produced JSON
const (
	maxInsightLen   = 32 * 1024
	maxListItems    = 20
	maxFieldLen     = 300
	maxErrSnippet   = 200
	insightMaxTurns = 12
)

// Insights is the structured output of one extraction pass over the recent
// transcript. Every field is optional; an empty Insights is a valid result.
type Insights struct {
	VehiclesInterested []string `json:"vehicles_interested,omitempty"`
	VehiclesRejected   []string `json:"vehicles_rejected,omitempty"`
	Objections         []string `json:"objections,omitempty"`
	BuyingSignals      []string `json:"buying_signals,omitempty"`
	Concerns           []string `json:"concerns,omitempty"`
	KeyInsights        []string `json:"key_insights,omitempty"`

	PreferredPlan      string `json:"preferred_plan,omitempty"`
	BuyingTimeline     string `json:"buying_timeline,omitempty"`
	CommunicationStyle string `json:"communication_style,omitempty"`
	Occupation         string `json:"occupation,omitempty"`
	FamilyNote         string `json:"family_note,omitempty"`
}

const insightSystemPrompt = `You analyze a car-sales WhatsApp conversation and extract durable facts about the CLIENT.
Return ONLY a JSON object, no markdown fences, with any of these keys (omit what you did not observe):
vehicles_interested, vehicles_rejected, objections, buying_signals, concerns, key_insights (arrays of short strings);
preferred_plan ("lease" or "purchase"), buying_timeline, communication_style, occupation, family_note (short strings).
Facts only. No advice, no speculation about credit or approval.`

// InsightExtractor runs the insight model over a transcript.
type InsightExtractor struct {
	model     *gemini.ChatModel
	modelName string
}

func NewInsightExtractor(model *gemini.ChatModel, modelName string) *InsightExtractor {
	return &InsightExtractor{model: model, modelName: modelName}
}

// Extract asks the insight model for structured facts about the client.
// A model failure is returned as an error; a malformed reply degrades to
// whatever fields survive validation.
func (e *InsightExtractor) Extract(ctx context.Context, transcript string) (*Insights, error) {
	if strings.TrimSpace(transcript) == "" {
		return &Insights{}, nil
	}

	out, err := e.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(insightSystemPrompt),
		schema.UserMessage(transcript),
	})
	if err != nil {
		return nil, fmt.Errorf("insight model: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("insight model: empty response")
	}

	return ParseInsights(out.Content)
}

// ParseInsights validates model output into an Insights value. It never
// panics and never fails on partially valid content: unusable fields are
// dropped, not fatal.
func ParseInsights(content string) (ins *Insights, err error) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "insight_parser").Msgf("panic recovered: %v", r)
			err = errx.New(fmt.Errorf("insight parser panic"), http.StatusInternalServerError, errx.SystemErrorMessage)
			ins = nil
		}
	}()

	if len(content) > maxInsightLen {
		logx.Warn().
			Str("component", "insight_parser").
			Int("max_len", maxInsightLen).
			Int("orig_len", len(content)).
			Msg("content truncated due to size limit")
		content = content[:maxInsightLen]
	}

	content = stripJSONFences(content)
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("insight parse: no JSON object in %q", safeSnippet(content))
	}

	var raw Insights
	if err := json.Unmarshal([]byte(content[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("insight parse: %w", err)
	}

	raw.VehiclesInterested = sanitizeList(raw.VehiclesInterested)
	raw.VehiclesRejected = sanitizeList(raw.VehiclesRejected)
	raw.Objections = sanitizeList(raw.Objections)
	raw.BuyingSignals = sanitizeList(raw.BuyingSignals)
	raw.Concerns = sanitizeList(raw.Concerns)
	raw.KeyInsights = sanitizeList(raw.KeyInsights)

	raw.PreferredPlan = sanitizePlan(raw.PreferredPlan)
	raw.BuyingTimeline = clip(raw.BuyingTimeline)
	raw.CommunicationStyle = clip(raw.CommunicationStyle)
	raw.Occupation = clip(raw.Occupation)
	raw.FamilyNote = clip(raw.FamilyNote)

	return &raw, nil
}

// stripJSONFences removes a markdown code fence if the model wrapped the
// object in one anyway.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

func sanitizeList(items []string) []string {
	if len(items) > maxListItems {
		items = items[:maxListItems]
	}
	out := items[:0]
	for _, it := range items {
		it = clip(it)
		if it != "" {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func sanitizePlan(plan string) string {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case "lease":
		return "lease"
	case "purchase", "finance":
		return "purchase"
	default:
		return ""
	}
}

func clip(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxFieldLen {
		s = s[:maxFieldLen]
	}
	return s
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}
