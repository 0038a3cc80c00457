package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dealerflow/salesagent/internal/agent/model"
	logx "github.com/dealerflow/salesagent/pkg/logger"
)

// relationship score weights; the recomputed score always stays within
// [0, 100]
const (
	scoreFloor = 0
	scoreCeil  = 100
	scoreBase  = 50

	weightResolvedObjection = 5
	weightBuyingSignal      = 3
	weightAcceptedOffer     = 10
	weightOccupation        = 3
	weightFamilyNote        = 5
	weightTimelineNow       = 10
	weightTimelineThisWeek  = 5
)

// TranscriptSource provides the recent conversation text for insight
// extraction.
type TranscriptSource interface {
	RecentTranscript(ctx context.Context, conversationID string, maxTurns int) (string, error)
}

// Service owns all reads and writes of client memory.
type Service struct {
	repo        model.MemoryRepository
	extractor   *InsightExtractor
	transcripts TranscriptSource
}

// NewService wires the memory service. extractor and transcripts may be nil
// when insight extraction is disabled (e.g. in tests); Touch still works.
func NewService(repo model.MemoryRepository, extractor *InsightExtractor, transcripts TranscriptSource) *Service {
	return &Service{repo: repo, extractor: extractor, transcripts: transcripts}
}

// Get returns the stored memory, or nil when the client is unknown.
func (s *Service) Get(ctx context.Context, clientID string) (*model.ClientMemory, error) {
	return s.repo.Get(ctx, clientID)
}

// Touch applies the deterministic per-turn memory update: interaction
// count, vehicle interest from the session, offers shown this turn, and
// the relationship score. It runs synchronously under the engine's
// conversation lock.
func (s *Service) Touch(ctx context.Context, clientID string, sess *model.SessionState, offers []model.OfferSnapshot, appointmentBooked bool, now time.Time) (*model.ClientMemory, error) {
	mem, err := s.loadOrCreate(ctx, clientID, now)
	if err != nil {
		return nil, err
	}

	mem.InteractionCount++

	if sess != nil && sess.VehicleInterest != nil {
		mem.UpsertVehicleInterest(model.VehicleNote{Model: sess.VehicleInterest.Model}, now)
	}
	if sess != nil {
		if sess.CreditScore != nil {
			mem.CreditScoreMentioned = *sess.CreditScore
		}
		if sess.DocType != "" {
			mem.DocumentType = string(sess.DocType)
		}
		if sess.DownPayment > 0 {
			mem.PreferredBudgetDown = sess.DownPayment
		}
	}

	for _, o := range offers {
		mem.AddOffer(o)
	}
	if appointmentBooked && len(mem.OffersGiven) > 0 {
		// a confirmed visit counts as accepting the latest numbers shown
		accepted := true
		mem.OffersGiven[len(mem.OffersGiven)-1].Accepted = &accepted
		if mem.LastOffer != nil {
			mem.LastOffer.Accepted = &accepted
		}
	}

	mem.RelationshipScore = ComputeRelationshipScore(mem)
	mem.LastInteractionAt = now
	mem.UpdatedAt = now

	if err := s.repo.Save(ctx, mem); err != nil {
		return nil, fmt.Errorf("save client memory: %w", err)
	}
	return mem, nil
}

// UpdateInsights runs the insight model over the recent transcript and
// merges the result. It is best-effort: any failure leaves memory as it
// was. Callers run it outside the conversation lock.
func (s *Service) UpdateInsights(ctx context.Context, clientID, conversationID string, now time.Time) error {
	if s.extractor == nil || s.transcripts == nil {
		return nil
	}

	transcript, err := s.transcripts.RecentTranscript(ctx, conversationID, insightMaxTurns)
	if err != nil {
		return fmt.Errorf("load transcript: %w", err)
	}

	ins, err := s.extractor.Extract(ctx, transcript)
	if err != nil {
		return err
	}

	mem, err := s.loadOrCreate(ctx, clientID, now)
	if err != nil {
		return err
	}
	s.applyInsights(mem, ins, now)

	if err := s.repo.Save(ctx, mem); err != nil {
		return fmt.Errorf("save client memory: %w", err)
	}
	logx.Debug().
		Str("client_id", clientID).
		Int("relationship_score", mem.RelationshipScore).
		Msg("client memory insights updated")
	return nil
}

func (s *Service) applyInsights(mem *model.ClientMemory, ins *Insights, now time.Time) {
	for _, v := range ins.VehiclesInterested {
		mem.UpsertVehicleInterest(model.VehicleNote{Model: v}, now)
	}
	for _, v := range ins.VehiclesRejected {
		if !containsModel(mem.VehiclesRejected, v) {
			mem.VehiclesRejected = append(mem.VehiclesRejected, model.VehicleNote{Model: v, AddedAt: now})
		}
	}
	for _, o := range ins.Objections {
		if !containsObjection(mem.Objections, o) {
			mem.AddObjection(o, "", false, now)
		}
	}
	for _, sig := range ins.BuyingSignals {
		if !containsSignal(mem.BuyingSignals, sig) {
			mem.BuyingSignals = append(mem.BuyingSignals, model.BuyingSignal{Signal: sig, At: now})
		}
	}
	mem.Concerns = mergeStrings(mem.Concerns, ins.Concerns)
	mem.KeyInsights = mergeStrings(mem.KeyInsights, ins.KeyInsights)

	if ins.PreferredPlan != "" {
		mem.PreferredPlan = ins.PreferredPlan
	}
	if ins.BuyingTimeline != "" {
		mem.BuyingTimeline = ins.BuyingTimeline
	}
	if ins.CommunicationStyle != "" {
		mem.CommunicationStyle = ins.CommunicationStyle
	}
	if ins.Occupation != "" {
		mem.Occupation = ins.Occupation
	}
	if ins.FamilyNote != "" {
		mem.FamilyNote = ins.FamilyNote
	}
	mem.RelationshipScore = ComputeRelationshipScore(mem)
	mem.UpdatedAt = now
}

// ComputeRelationshipScore rebuilds the score from the whole record
// instead of drifting it with per-event deltas, so the same memory always
// scores the same regardless of the order events arrived in. Resolved
// objections, accepted offers and personal rapport (occupation, family)
// all weigh in.
func ComputeRelationshipScore(mem *model.ClientMemory) int {
	if mem == nil {
		return scoreBase
	}
	score := scoreBase

	switch {
	case mem.InteractionCount >= 10:
		score += 15
	case mem.InteractionCount >= 5:
		score += 10
	case mem.InteractionCount >= 2:
		score += 5
	}

	for _, o := range mem.Objections {
		if o.Resolved {
			score += weightResolvedObjection
		}
	}
	score += len(mem.BuyingSignals) * weightBuyingSignal

	switch mem.BuyingTimeline {
	case "now":
		score += weightTimelineNow
	case "this_week":
		score += weightTimelineThisWeek
	}

	for _, o := range mem.OffersGiven {
		if o.Accepted != nil && *o.Accepted {
			score += weightAcceptedOffer
		}
	}

	if mem.Occupation != "" {
		score += weightOccupation
	}
	if mem.FamilyNote != "" {
		score += weightFamilyNote
	}
	return clampScore(score)
}

// RenderContext summarizes the memory for the system prompt. Returns ""
// for a first-contact client so the composer can skip the section.
func (s *Service) RenderContext(mem *model.ClientMemory) string {
	if mem == nil || mem.InteractionCount <= 1 && len(mem.VehiclesInterested) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "- Interacciones previas: %d (relación %d/100)\n", mem.InteractionCount, mem.RelationshipScore)

	if len(mem.VehiclesInterested) > 0 {
		names := make([]string, 0, len(mem.VehiclesInterested))
		for _, v := range mem.VehiclesInterested {
			names = append(names, v.Model)
		}
		fmt.Fprintf(&b, "- Vehículos que le interesan: %s\n", strings.Join(names, ", "))
	}
	if len(mem.VehiclesRejected) > 0 {
		names := make([]string, 0, len(mem.VehiclesRejected))
		for _, v := range mem.VehiclesRejected {
			names = append(names, v.Model)
		}
		fmt.Fprintf(&b, "- Ya descartó: %s\n", strings.Join(names, ", "))
	}
	if mem.PreferredPlan != "" {
		fmt.Fprintf(&b, "- Prefiere: %s\n", mem.PreferredPlan)
	}
	if mem.BuyingTimeline != "" {
		fmt.Fprintf(&b, "- Cuándo compra: %s\n", mem.BuyingTimeline)
	}
	if mem.Occupation != "" {
		fmt.Fprintf(&b, "- Ocupación: %s\n", mem.Occupation)
	}
	if mem.FamilyNote != "" {
		fmt.Fprintf(&b, "- Familia: %s\n", mem.FamilyNote)
	}
	for _, o := range lastN(mem.Objections, 3) {
		fmt.Fprintf(&b, "- Objeción previa: %s\n", o.Text)
	}
	for _, k := range lastNStrings(mem.KeyInsights, 3) {
		fmt.Fprintf(&b, "- Nota: %s\n", k)
	}
	if mem.LastOffer != nil {
		o := mem.LastOffer
		fmt.Fprintf(&b, "- Última oferta histórica: %s %s $%.0f/mes\n", o.Vehicle, o.PlanType, o.MonthlyPayment)
	}
	return b.String()
}

func (s *Service) loadOrCreate(ctx context.Context, clientID string, now time.Time) (*model.ClientMemory, error) {
	mem, err := s.repo.Get(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("load client memory: %w", err)
	}
	if mem == nil {
		mem = model.NewClientMemory(clientID, now)
	}
	return mem, nil
}

func clampScore(v int) int {
	if v < scoreFloor {
		return scoreFloor
	}
	if v > scoreCeil {
		return scoreCeil
	}
	return v
}

func containsModel(notes []model.VehicleNote, name string) bool {
	for _, n := range notes {
		if strings.EqualFold(n.Model, name) {
			return true
		}
	}
	return false
}

func containsObjection(objs []model.Objection, text string) bool {
	for _, o := range objs {
		if strings.EqualFold(o.Text, text) {
			return true
		}
	}
	return false
}

func containsSignal(sigs []model.BuyingSignal, signal string) bool {
	for _, s := range sigs {
		if strings.EqualFold(s.Signal, signal) {
			return true
		}
	}
	return false
}

func mergeStrings(existing, incoming []string) []string {
	for _, in := range incoming {
		dup := false
		for _, ex := range existing {
			if strings.EqualFold(ex, in) {
				dup = true
				break
			}
		}
		if !dup {
			existing = append(existing, in)
		}
	}
	return existing
}

func lastN(objs []model.Objection, n int) []model.Objection {
	if len(objs) <= n {
		return objs
	}
	return objs[len(objs)-n:]
}

func lastNStrings(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	return items[len(items)-n:]
}
