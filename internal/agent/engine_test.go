package agent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerflow/salesagent/internal/agent/extract"
	"github.com/dealerflow/salesagent/internal/agent/graph/tools"
	"github.com/dealerflow/salesagent/internal/agent/memory"
	"github.com/dealerflow/salesagent/internal/agent/model"
	"github.com/dealerflow/salesagent/internal/agent/prompts"
	"github.com/dealerflow/salesagent/internal/agent/ratelimit"
)

var engNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// ---- in-memory collaborators ----

type memSessions struct {
	m map[string]*model.SessionState
}

func newMemSessions() *memSessions {
	return &memSessions{m: map[string]*model.SessionState{}}
}

func (r *memSessions) Get(_ context.Context, clientID string) (*model.SessionState, error) {
	s, ok := r.m[clientID]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *memSessions) Save(_ context.Context, s *model.SessionState) error {
	cp := *s
	r.m[s.ClientID] = &cp
	return nil
}

func (r *memSessions) Delete(_ context.Context, clientID string) error {
	delete(r.m, clientID)
	return nil
}

type memMemories struct {
	m map[string]*model.ClientMemory
}

func newMemMemories() *memMemories {
	return &memMemories{m: map[string]*model.ClientMemory{}}
}

func (r *memMemories) Get(_ context.Context, clientID string) (*model.ClientMemory, error) {
	return r.m[clientID], nil
}

func (r *memMemories) Save(_ context.Context, mem *model.ClientMemory) error {
	r.m[mem.ClientID] = mem
	return nil
}

type memConversations struct {
	m map[string][]*schema.Message
}

func newMemConversations() *memConversations {
	return &memConversations{m: map[string][]*schema.Message{}}
}

func (r *memConversations) AddMessage(_ context.Context, id string, msg *schema.Message) error {
	r.m[id] = append(r.m[id], msg)
	return nil
}

func (r *memConversations) LoadHistory(_ context.Context, id string) (*model.ConversationHistory, error) {
	return &model.ConversationHistory{ConversationID: id, Messages: r.m[id]}, nil
}

func (r *memConversations) ClearHistory(_ context.Context, id string) error {
	delete(r.m, id)
	return nil
}

func (r *memConversations) GetMessageCount(_ context.Context, id string) (int, error) {
	return len(r.m[id]), nil
}

type stubResponder struct {
	fn func(ctx context.Context, in model.TurnInput) (string, error)
}

func (s *stubResponder) Invoke(ctx context.Context, in model.TurnInput) (string, error) {
	return s.fn(ctx, in)
}

type fixture struct {
	engine   *Engine
	sessions *memSessions
	memories *memMemories
	convs    *memConversations
}

func newFixture(t *testing.T, respond func(ctx context.Context, in model.TurnInput) (string, error)) *fixture {
	t.Helper()

	sessions := newMemSessions()
	mems := newMemMemories()
	convs := newMemConversations()

	if respond == nil {
		respond = func(context.Context, model.TurnInput) (string, error) {
			return "ok", nil
		}
	}

	eng, err := New(Config{
		Sessions:      sessions,
		Conversations: convs,
		Memories:      memory.NewService(mems, nil, nil),
		Extractor:     extract.New(extract.DefaultConfig()),
		Composer:      prompts.NewComposer(nil, model.PersonaConfig{SellerName: "Ray", DealerName: "Sunrise Toyota"}),
		Responder:     &stubResponder{fn: respond},
		Gateway:       &captureGateway{},
		Limiter:       ratelimit.NewMemoryLimiter(2, func() time.Time { return engNow }),
		Clock:         func() time.Time { return engNow },
	})
	require.NoError(t, err)
	// keep tests deterministic: no background insight goroutine work
	eng.insightHook = func(string) {}

	return &fixture{engine: eng, sessions: sessions, memories: mems, convs: convs}
}

type captureGateway struct {
	sent []string
}

func (g *captureGateway) Send(_ context.Context, recipient, text, mediaURL string) error {
	g.sent = append(g.sent, fmt.Sprintf("%s|%s|%s", recipient, text, mediaURL))
	return nil
}

// ---- tests ----

func TestFunnelProgression(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	r, err := f.engine.HandleInbound(ctx, "c1", "Carlos", "Hola, busco un Corolla para trabajar en Uber")
	require.NoError(t, err)
	assert.Equal(t, model.StageQualification, r.Stage)
	assert.Equal(t, "yellow", r.StatusColor)

	r, err = f.engine.HandleInbound(ctx, "c1", "Carlos", "Tengo 690 de score y compro con social")
	require.NoError(t, err)
	assert.Equal(t, model.StageStrategy, r.Stage)
	assert.Equal(t, "blue", r.StatusColor)

	r, err = f.engine.HandleInbound(ctx, "c1", "Carlos", "Dale, me parece bien el lease")
	require.NoError(t, err)
	assert.Equal(t, model.StageOffer, r.Stage)

	sess := f.sessions.m["c1"]
	require.NotNil(t, sess)
	assert.Equal(t, model.IntentLease, sess.DealIntent)
	assert.True(t, sess.StrategyAccepted)
	require.NotNil(t, sess.CreditScore)
	assert.Equal(t, 690, *sess.CreditScore)
}

func TestStageNeverDrivenByModelProse(t *testing.T) {
	f := newFixture(t, func(context.Context, model.TurnInput) (string, error) {
		return "¡Listo! Ya estás aprobado, pasamos directo a la oferta.", nil
	})

	r, err := f.engine.HandleInbound(context.Background(), "c1", "Carlos", "Hola")
	require.NoError(t, err)
	// the reply claims progress; the gate does not care
	assert.Equal(t, model.StageDiscovery, r.Stage)
	assert.Equal(t, "gray", r.StatusColor)
}

func TestQualificationOverrideInPrompt(t *testing.T) {
	var seenPrompt string
	f := newFixture(t, func(_ context.Context, in model.TurnInput) (string, error) {
		seenPrompt = in.SystemPrompt
		return "ok", nil
	})

	_, err := f.engine.HandleInbound(context.Background(), "c1", "Carlos", "cuánto me sale el corolla para uber?")
	require.NoError(t, err)
	assert.Contains(t, seenPrompt, "PROHIBIDO DAR NÚMEROS")
}

func TestFallbackReplyOnModelFailure(t *testing.T) {
	f := newFixture(t, func(context.Context, model.TurnInput) (string, error) {
		return "", fmt.Errorf("upstream 503")
	})

	r, err := f.engine.HandleInbound(context.Background(), "c1", "Carlos", "Hola, busco un corolla")
	require.NoError(t, err)
	assert.Equal(t, fallbackReply, r.Text)
	// facts extracted before the model call still persisted
	sess := f.sessions.m["c1"]
	require.NotNil(t, sess)
	require.NotNil(t, sess.VehicleInterest)
	assert.Equal(t, "Corolla", sess.VehicleInterest.Model)
}

func TestToolEffectsPersistAfterTurn(t *testing.T) {
	bookedAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, func(ctx context.Context, _ model.TurnInput) (string, error) {
		turn := tools.TurnFrom(ctx)
		turn.RecordOffer(model.OfferSnapshot{
			Vehicle: "COROLLA LE", PlanType: "lease", MonthlyPayment: 320, DownPayment: 3000, TermMonths: 39, QuotedAt: engNow,
		})
		turn.RecordBooking(&model.Booking{ID: "bk-1", ClientID: "c1", At: bookedAt, CreatedAt: engNow})
		return "Te agendé para el sábado a las 10.", nil
	})
	ctx := context.Background()

	// qualify first so the gate can reach APPOINTMENT
	_, err := f.engine.HandleInbound(ctx, "c1", "Carlos", "Busco un corolla para uber")
	require.NoError(t, err)
	_, err = f.engine.HandleInbound(ctx, "c1", "Carlos", "690 de score, con social")
	require.NoError(t, err)
	r, err := f.engine.HandleInbound(ctx, "c1", "Carlos", "dale, vamos con el lease")
	require.NoError(t, err)

	assert.Equal(t, model.StageAppointment, r.Stage)
	assert.Equal(t, "green", r.StatusColor)

	sess := f.sessions.m["c1"]
	require.NotNil(t, sess.AppointmentAt)
	assert.True(t, sess.AppointmentAt.Equal(bookedAt))
	require.NotNil(t, sess.LastOffer)
	assert.Equal(t, float64(320), sess.LastOffer.MonthlyPayment)

	mem := f.memories.m["c1"]
	require.NotNil(t, mem)
	assert.NotEmpty(t, mem.OffersGiven)
	// offers and the appointment move the relationship score up
	assert.Greater(t, mem.RelationshipScore, 50)
	assert.Greater(t, r.RelationshipScore, 50)
}

func TestDispatchRateLimited(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	reply := &Reply{Text: "hola"}

	require.NoError(t, f.engine.Dispatch(ctx, "+13055550100", reply))
	require.NoError(t, f.engine.Dispatch(ctx, "+13055550100", reply))
	err := f.engine.Dispatch(ctx, "+13055550100", reply)
	assert.ErrorIs(t, err, ErrRateLimited)

	// another recipient has its own budget
	assert.NoError(t, f.engine.Dispatch(ctx, "+13055550199", reply))
}

func TestResetSessionKeepsClientMemory(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.engine.HandleInbound(ctx, "c1", "Carlos", "Busco un corolla para uber")
	require.NoError(t, err)
	require.NotNil(t, f.sessions.m["c1"])
	require.NotNil(t, f.memories.m["c1"])

	require.NoError(t, f.engine.ResetSession(ctx, "c1"))

	assert.Nil(t, f.sessions.m["c1"])
	assert.Empty(t, f.convs.m["c1"])
	// long-lived relationship memory survives the reset
	assert.NotNil(t, f.memories.m["c1"])
}

func TestFactsAccumulateAcrossTurnsIdempotently(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.engine.HandleInbound(ctx, "c1", "Carlos", "busco un corolla")
	require.NoError(t, err)
	_, err = f.engine.HandleInbound(ctx, "c1", "Carlos", "busco un corolla")
	require.NoError(t, err)

	sess := f.sessions.m["c1"]
	require.NotNil(t, sess.VehicleInterest)
	assert.Equal(t, "Corolla", sess.VehicleInterest.Model)

	mem := f.memories.m["c1"]
	require.NotNil(t, mem)
	assert.Len(t, mem.VehiclesInterested, 1)
	assert.Equal(t, 2, mem.InteractionCount)
}
