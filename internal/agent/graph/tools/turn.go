package tools

import (
	"context"
	"sync"

	"github.com/dealerflow/salesagent/internal/agent/model"
)

type turnCtxKey struct{}

// Turn carries the per-conversation turn data into tool handlers and
// collects their side effects back out. The compiled graph is shared
// across conversations, so this is the only channel for per-turn state.
type Turn struct {
	// Session is a read-only snapshot taken under the conversation lock
	// before the graph run. Tools read defaults from it (credit score,
	// down payment) but never write to it.
	Session *model.SessionState

	// ClientName is the display name from the inbound channel; the
	// scheduling tool falls back to it when the model argument is a
	// placeholder.
	ClientName string

	mu       sync.Mutex
	offers   []model.OfferSnapshot
	booking  *model.Booking
	mediaURL string
}

// WithTurn attaches a fresh Turn for one graph run.
func WithTurn(ctx context.Context, t *Turn) context.Context {
	return context.WithValue(ctx, turnCtxKey{}, t)
}

// TurnFrom returns the Turn for this run, or nil outside a run.
func TurnFrom(ctx context.Context) *Turn {
	t, _ := ctx.Value(turnCtxKey{}).(*Turn)
	return t
}

func (t *Turn) RecordOffer(o model.OfferSnapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.offers = append(t.offers, o)
}

func (t *Turn) RecordBooking(b *model.Booking) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.booking = b
}

func (t *Turn) RecordMedia(url string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mediaURL == "" {
		t.mediaURL = url
	}
}

// Offers returns the quotes shown during this turn, oldest first.
func (t *Turn) Offers() []model.OfferSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]model.OfferSnapshot, len(t.offers))
	copy(out, t.offers)
	return out
}

// Booking returns the appointment booked during this turn, if any.
func (t *Turn) Booking() *model.Booking {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.booking
}

// MediaURL returns the first media attachment fetched during this turn.
func (t *Turn) MediaURL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mediaURL
}
