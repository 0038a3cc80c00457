package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerflow/salesagent/internal/agent/finance"
	"github.com/dealerflow/salesagent/internal/agent/model"
)

type stubCalendar struct {
	slots    []time.Time
	bookings []*model.Booking
}

func (c *stubCalendar) FreeSlots(_ context.Context, from time.Time, days int) ([]time.Time, error) {
	return c.slots, nil
}

func (c *stubCalendar) Book(_ context.Context, clientID string, at time.Time) (*model.Booking, error) {
	b := &model.Booking{ID: "bk-1", ClientID: clientID, At: at, CreatedAt: at}
	c.bookings = append(c.bookings, b)
	return b, nil
}

type stubInventory struct {
	items []model.InventoryItem
}

func (i *stubInventory) Search(_ context.Context, _, _ string, _ int) ([]model.InventoryItem, error) {
	return i.items, nil
}

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func testDeps(cal *stubCalendar, inv *stubInventory) Deps {
	if cal == nil {
		cal = &stubCalendar{}
	}
	if inv == nil {
		inv = &stubInventory{}
	}
	return Deps{
		Calculator:       finance.NewCalculator(nil),
		Calendar:         cal,
		Inventory:        inv,
		DownPaymentFloor: 2000,
		Clock:            func() time.Time { return testNow },
	}
}

func qualifiedTurn() *Turn {
	score := 720
	s := model.NewSessionState("c1", testNow)
	s.VehicleInterest = &model.VehicleInterest{Model: "Corolla"}
	s.CreditScore = &score
	s.DocType = model.DocSSN
	s.DownPayment = 3000
	return &Turn{Session: s, ClientName: "Carlos"}
}

func invoke(t *testing.T, bt tool.BaseTool, turn *Turn, args any) string {
	t.Helper()
	inv, ok := bt.(tool.InvokableTool)
	require.True(t, ok)

	raw, err := json.Marshal(args)
	require.NoError(t, err)

	ctx := context.Background()
	if turn != nil {
		ctx = WithTurn(ctx, turn)
	}
	out, err := inv.InvokableRun(ctx, string(raw))
	require.NoError(t, err)
	return out
}

func TestCalculatePaymentRefusesWithoutScore(t *testing.T) {
	deps := testDeps(nil, nil)
	turn := qualifiedTurn()
	turn.Session.CreditScore = nil

	out := invoke(t, createCalculatePaymentTool(deps), turn, CalculatePaymentInput{VehicleModel: "Corolla"})

	var parsed CalculatePaymentOutput
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, "missing_credit_score", parsed.Error)
	assert.Empty(t, turn.Offers())
}

func TestCalculatePaymentBothPlansAndOfferEffects(t *testing.T) {
	deps := testDeps(nil, nil)
	turn := qualifiedTurn()

	out := invoke(t, createCalculatePaymentTool(deps), turn, CalculatePaymentInput{VehicleModel: "Corolla LE"})

	var parsed CalculatePaymentOutput
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	require.Empty(t, parsed.Error)
	require.NotNil(t, parsed.Lease)
	require.NotNil(t, parsed.Purchase)
	// session down payment is the default when the model omits the arg
	assert.Equal(t, float64(3000), parsed.Purchase.DueAtSigning)
	// the side-by-side path carries a recommendation line
	assert.NotEmpty(t, parsed.Note)

	offers := turn.Offers()
	require.Len(t, offers, 2)
	assert.Equal(t, "lease", offers[0].PlanType)
	assert.Equal(t, "purchase", offers[1].PlanType)
	assert.Equal(t, testNow, offers[0].QuotedAt)
}

func TestCalculatePaymentFirstBuyerRate(t *testing.T) {
	deps := testDeps(nil, nil)
	turn := qualifiedTurn()
	score := 660
	fb := true
	turn.Session.CreditScore = &score
	turn.Session.FirstTimeBuyer = &fb

	out := invoke(t, createCalculatePaymentTool(deps), turn, CalculatePaymentInput{
		VehicleModel: "Corolla LE",
		PlanType:     "purchase",
	})

	var parsed CalculatePaymentOutput
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	require.NotNil(t, parsed.Purchase)
	// no established credit band: the first-buyer rate applies
	assert.Equal(t, 12.99, parsed.Purchase.APR)
}

func TestCalculatePaymentSessionIntentSelectsPlan(t *testing.T) {
	deps := testDeps(nil, nil)
	turn := qualifiedTurn()
	turn.Session.DealIntent = model.IntentLease

	out := invoke(t, createCalculatePaymentTool(deps), turn, CalculatePaymentInput{VehicleModel: "Corolla LE"})

	var parsed CalculatePaymentOutput
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.NotNil(t, parsed.Lease)
	assert.Nil(t, parsed.Purchase)
}

func TestCalculatePaymentUnknownModel(t *testing.T) {
	deps := testDeps(nil, nil)
	turn := qualifiedTurn()

	out := invoke(t, createCalculatePaymentTool(deps), turn, CalculatePaymentInput{VehicleModel: "Cybertruck"})

	var parsed CalculatePaymentOutput
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, "model_not_found", parsed.Error)
	assert.Empty(t, turn.Offers())
}

func TestCheckCalendarFormatsSlots(t *testing.T) {
	cal := &stubCalendar{slots: []time.Time{
		testNow.Add(25 * time.Hour),
		testNow.Add(29 * time.Hour),
	}}
	deps := testDeps(cal, nil)

	out := invoke(t, createCheckCalendarTool(deps), qualifiedTurn(), CheckCalendarInput{DaysAhead: 2})

	var parsed CheckCalendarOutput
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	require.Len(t, parsed.Slots, 2)
	assert.Equal(t, cal.slots[0].Format(time.RFC3339), parsed.Slots[0])
}

func TestScheduleAppointmentRefusesPlaceholderName(t *testing.T) {
	cal := &stubCalendar{}
	deps := testDeps(cal, nil)
	turn := qualifiedTurn()
	// anonymous channel: no display name to fall back on
	turn.ClientName = ""

	out := invoke(t, createScheduleAppointmentTool(deps), turn, ScheduleAppointmentInput{
		Datetime:   "2026-03-14 10:00",
		ClientName: "Cliente",
	})

	var parsed ScheduleAppointmentOutput
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, "missing_client_name", parsed.Error)
	assert.Empty(t, cal.bookings)
}

func TestScheduleAppointmentFallsBackToChannelName(t *testing.T) {
	cal := &stubCalendar{}
	deps := testDeps(cal, nil)
	turn := qualifiedTurn() // channel delivered "Carlos"

	out := invoke(t, createScheduleAppointmentTool(deps), turn, ScheduleAppointmentInput{
		Datetime:   "2026-03-14 10:00",
		ClientName: "Cliente",
	})

	var parsed ScheduleAppointmentOutput
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Empty(t, parsed.Error)
	assert.Equal(t, "bk-1", parsed.BookingID)
	require.Len(t, cal.bookings, 1)
}

func TestScheduleAppointmentRefusesRelativeTime(t *testing.T) {
	deps := testDeps(nil, nil)

	out := invoke(t, createScheduleAppointmentTool(deps), qualifiedTurn(), ScheduleAppointmentInput{
		Datetime:   "mañana a las 10",
		ClientName: "Carlos",
	})

	var parsed ScheduleAppointmentOutput
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, "unresolved_datetime", parsed.Error)
}

func TestScheduleAppointmentRefusesPast(t *testing.T) {
	deps := testDeps(nil, nil)

	out := invoke(t, createScheduleAppointmentTool(deps), qualifiedTurn(), ScheduleAppointmentInput{
		Datetime:   "2026-03-01 10:00",
		ClientName: "Carlos",
	})

	var parsed ScheduleAppointmentOutput
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Equal(t, "datetime_in_past", parsed.Error)
}

func TestScheduleAppointmentBooksAndRecordsEffect(t *testing.T) {
	cal := &stubCalendar{}
	deps := testDeps(cal, nil)
	turn := qualifiedTurn()

	out := invoke(t, createScheduleAppointmentTool(deps), turn, ScheduleAppointmentInput{
		Datetime:   "2026-03-14 10:00",
		ClientName: "Carlos",
	})

	var parsed ScheduleAppointmentOutput
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.Empty(t, parsed.Error)
	assert.Equal(t, "bk-1", parsed.BookingID)

	require.NotNil(t, turn.Booking())
	assert.Equal(t, "c1", turn.Booking().ClientID)
	require.Len(t, cal.bookings, 1)
}

func TestFetchVehicleMediaNotFound(t *testing.T) {
	deps := testDeps(nil, &stubInventory{})

	out := invoke(t, createFetchVehicleMediaTool(deps), qualifiedTurn(), FetchVehicleMediaInput{VehicleModel: "Supra"})

	var parsed FetchVehicleMediaOutput
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.False(t, parsed.Found)
	assert.NotEmpty(t, parsed.Note)
}

func TestFetchVehicleMediaRecordsAttachment(t *testing.T) {
	inv := &stubInventory{items: []model.InventoryItem{
		{ID: "v1", Make: "Toyota", Model: "Corolla LE", Year: 2026, Price: 25500, MediaURL: "https://cdn.example.com/corolla.jpg"},
	}}
	deps := testDeps(nil, inv)
	turn := qualifiedTurn()

	out := invoke(t, createFetchVehicleMediaTool(deps), turn, FetchVehicleMediaInput{VehicleModel: "Corolla"})

	var parsed FetchVehicleMediaOutput
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	assert.True(t, parsed.Found)
	assert.Equal(t, "https://cdn.example.com/corolla.jpg", turn.MediaURL())
}

func TestGetToolInfos(t *testing.T) {
	deps := testDeps(nil, nil)
	ts := GetQueryTools(deps)
	infos, err := GetToolInfos(context.Background(), ts)
	require.NoError(t, err)
	require.Len(t, infos, 4)
	assert.Equal(t, ToolCalculatePayment, infos[0].Name)
}
