package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

type ConversationRepository interface {
	// AddMessage appends a message to the conversation history
	AddMessage(ctx context.Context, conversationID string, message *schema.Message) error

	// LoadHistory retrieves the conversation history for a conversation
	LoadHistory(ctx context.Context, conversationID string) (*ConversationHistory, error)

	// ClearHistory removes all conversation history for a conversation
	ClearHistory(ctx context.Context, conversationID string) error

	// GetMessageCount returns the number of messages in the conversation
	GetMessageCount(ctx context.Context, conversationID string) (int, error)
}

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	ConversationID string
	Messages       []*schema.Message
}

// SessionRepository stores the per-conversation qualification record with
// upsert semantics. Get returns (nil, nil) when no record exists yet.
type SessionRepository interface {
	Get(ctx context.Context, clientID string) (*SessionState, error)
	Save(ctx context.Context, state *SessionState) error
	// Delete is the explicit administrative reset; sessions are never
	// reset implicitly.
	Delete(ctx context.Context, clientID string) error
}

// MemoryRepository stores long-lived client memory with upsert semantics.
// Get returns (nil, nil) when the client has no memory yet.
type MemoryRepository interface {
	Get(ctx context.Context, clientID string) (*ClientMemory, error)
	Save(ctx context.Context, memory *ClientMemory) error
}

// InventoryItem is one vehicle in the dealer's catalog.
type InventoryItem struct {
	ID       string  `json:"id"`
	Make     string  `json:"make"`
	Model    string  `json:"model"`
	Year     int     `json:"year"`
	Price    float64 `json:"price"`
	Mileage  int     `json:"mileage,omitempty"`
	Color    string  `json:"color,omitempty"`
	MediaURL string  `json:"media_url,omitempty"`
}

// InventoryCatalog is a read-only lookup over the dealer's stock.
// Search matches make and model by substring, case-insensitively.
type InventoryCatalog interface {
	Search(ctx context.Context, make, mdl string, limit int) ([]InventoryItem, error)
}

// Booking is a confirmed appointment slot.
type Booking struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	At        time.Time `json:"at"`
	CreatedAt time.Time `json:"created_at"`
}

// CalendarStore lists free slots and persists confirmed bookings,
// returning a stable identifier on success.
type CalendarStore interface {
	FreeSlots(ctx context.Context, from time.Time, days int) ([]time.Time, error)
	Book(ctx context.Context, clientID string, at time.Time) (*Booking, error)
}

// OutboundGateway delivers the reply to the client. Delivery is
// fire-and-forget with best-effort confirmation; a rate-limited send is a
// retryable condition, not a fatal one.
type OutboundGateway interface {
	Send(ctx context.Context, recipient, text, mediaURL string) error
}
