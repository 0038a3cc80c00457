package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerflow/salesagent/internal/agent/model"
)

type memRepo struct {
	stored map[string]*model.ClientMemory
}

func newMemRepo() *memRepo {
	return &memRepo{stored: map[string]*model.ClientMemory{}}
}

func (r *memRepo) Get(_ context.Context, clientID string) (*model.ClientMemory, error) {
	return r.stored[clientID], nil
}

func (r *memRepo) Save(_ context.Context, m *model.ClientMemory) error {
	r.stored[m.ClientID] = m
	return nil
}

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func TestTouchCreatesMemoryOnFirstContact(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil)

	sess := model.NewSessionState("c1", now)
	sess.VehicleInterest = &model.VehicleInterest{Model: "Corolla"}

	mem, err := svc.Touch(context.Background(), "c1", sess, nil, false, now)
	require.NoError(t, err)

	assert.Equal(t, 1, mem.InteractionCount)
	assert.Equal(t, 50, mem.RelationshipScore)
	require.Len(t, mem.VehiclesInterested, 1)
	assert.Equal(t, "Corolla", mem.VehiclesInterested[0].Model)
	assert.NotNil(t, repo.stored["c1"])
}

func TestTouchVehicleDedupCaseInsensitive(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil)

	sess := model.NewSessionState("c1", now)
	sess.VehicleInterest = &model.VehicleInterest{Model: "Corolla"}
	_, err := svc.Touch(context.Background(), "c1", sess, nil, false, now)
	require.NoError(t, err)

	sess.VehicleInterest = &model.VehicleInterest{Model: "COROLLA"}
	mem, err := svc.Touch(context.Background(), "c1", sess, nil, false, now.Add(time.Hour))
	require.NoError(t, err)

	assert.Len(t, mem.VehiclesInterested, 1)
	assert.Equal(t, 2, mem.InteractionCount)
}

func TestTouchScoringOffersAndAppointment(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil)

	offers := []model.OfferSnapshot{
		{Vehicle: "COROLLA LE", PlanType: "lease", MonthlyPayment: 320, QuotedAt: now},
		{Vehicle: "COROLLA LE", PlanType: "purchase", MonthlyPayment: 459, QuotedAt: now},
	}
	mem, err := svc.Touch(context.Background(), "c1", nil, offers, true, now)
	require.NoError(t, err)

	// 50 base + 10 for the offer the booking accepted
	assert.Equal(t, 60, mem.RelationshipScore)
	assert.Len(t, mem.OffersGiven, 2)
	require.NotNil(t, mem.OffersGiven[1].Accepted)
	assert.True(t, *mem.OffersGiven[1].Accepted)
	assert.Nil(t, mem.OffersGiven[0].Accepted)
	require.NotNil(t, mem.LastOffer)
	assert.Equal(t, "purchase", mem.LastOffer.PlanType)
}

func TestScoreWeighsResolvedObjectionsAndAcceptedOffers(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil)

	accepted := true
	seed := model.NewClientMemory("c1", now)
	seed.AddObjection("el pago está alto", "bajamos el término a 48", true, now)
	seed.AddObjection("quiere pensarlo", "", false, now)
	seed.AddOffer(model.OfferSnapshot{Vehicle: "COROLLA LE", PlanType: "lease", MonthlyPayment: 320, Accepted: &accepted, QuotedAt: now})
	seed.Occupation = "construcción"
	seed.FamilyNote = "dos hijos"
	seed.BuyingTimeline = "now"
	require.NoError(t, repo.Save(context.Background(), seed))

	mem, err := svc.Touch(context.Background(), "c1", nil, nil, false, now)
	require.NoError(t, err)

	// 50 base + 5 resolved objection + 10 accepted offer + 3 occupation
	// + 5 family + 10 buying now; the unresolved objection adds nothing
	assert.Equal(t, 83, mem.RelationshipScore)
}

func TestScoreClamping(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo, nil, nil)

	accepted := true
	seed := model.NewClientMemory("c1", now)
	seed.InteractionCount = 10
	for i := 0; i < 6; i++ {
		seed.AddOffer(model.OfferSnapshot{Vehicle: "COROLLA LE", PlanType: "lease", Accepted: &accepted, QuotedAt: now})
	}
	require.NoError(t, repo.Save(context.Background(), seed))

	mem, err := svc.Touch(context.Background(), "c1", nil, nil, false, now)
	require.NoError(t, err)
	assert.Equal(t, 100, mem.RelationshipScore)

	// a drifted stored value is ignored: the recompute starts from base
	seed2 := model.NewClientMemory("c2", now)
	seed2.RelationshipScore = 0
	require.NoError(t, repo.Save(context.Background(), seed2))
	mem2, err := svc.Touch(context.Background(), "c2", nil, nil, false, now)
	require.NoError(t, err)
	assert.Equal(t, 50, mem2.RelationshipScore)
}

func TestApplyInsightsMergesWithoutDuplicates(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)
	mem := model.NewClientMemory("c1", now)
	mem.Concerns = []string{"precio alto"}
	mem.BuyingSignals = []model.BuyingSignal{{Signal: "pidió números", At: now}}

	ins := &Insights{
		VehiclesInterested: []string{"Corolla", "corolla"},
		Objections:         []string{"el pago está alto"},
		BuyingSignals:      []string{"pidió números", "quiere pasar al dealer"},
		Concerns:           []string{"precio alto", "millas del lease"},
		PreferredPlan:      "lease",
		Occupation:         "construcción",
	}
	svc.applyInsights(mem, ins, now)

	assert.Len(t, mem.VehiclesInterested, 1)
	assert.Len(t, mem.BuyingSignals, 2)
	assert.Equal(t, []string{"precio alto", "millas del lease"}, mem.Concerns)
	assert.Equal(t, "lease", mem.PreferredPlan)
	assert.Equal(t, "construcción", mem.Occupation)
	// 50 base + two signals at 3 + occupation at 3
	assert.Equal(t, 59, mem.RelationshipScore)

	// re-applying the same insights changes nothing
	svc.applyInsights(mem, ins, now)
	assert.Len(t, mem.BuyingSignals, 2)
	assert.Equal(t, 59, mem.RelationshipScore)
}

func TestRenderContextEmptyForFirstContact(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)

	assert.Empty(t, svc.RenderContext(nil))

	mem := model.NewClientMemory("c1", now)
	mem.InteractionCount = 1
	assert.Empty(t, svc.RenderContext(mem))
}

func TestRenderContextSummarizesKnownClient(t *testing.T) {
	svc := NewService(newMemRepo(), nil, nil)

	mem := model.NewClientMemory("c1", now)
	mem.InteractionCount = 4
	mem.RelationshipScore = 62
	mem.UpsertVehicleInterest(model.VehicleNote{Model: "Corolla"}, now)
	mem.PreferredPlan = "lease"
	mem.AddObjection("el pago está alto", "", false, now)
	mem.AddOffer(model.OfferSnapshot{Vehicle: "COROLLA LE", PlanType: "lease", MonthlyPayment: 320, QuotedAt: now})

	out := svc.RenderContext(mem)
	assert.Contains(t, out, "Interacciones previas: 4")
	assert.Contains(t, out, "Corolla")
	assert.Contains(t, out, "Prefiere: lease")
	assert.Contains(t, out, "el pago está alto")
	assert.Contains(t, out, "$320/mes")
}
