package model

import (
	"strings"
	"time"
)

// VehicleNote is one vehicle the client showed interest in (or rejected).
type VehicleNote struct {
	Model     string    `json:"model"`
	Trim      string    `json:"trim,omitempty"`
	Color     string    `json:"color,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Objection is a concern the client raised and whether it was resolved.
type Objection struct {
	Text          string    `json:"text"`
	ResponseGiven string    `json:"response_given,omitempty"`
	Resolved      bool      `json:"resolved"`
	At            time.Time `json:"at"`
}

// BuyingSignal is a detected signal of purchase intent.
type BuyingSignal struct {
	Signal string    `json:"signal"`
	At     time.Time `json:"at"`
}

// ClientMemory is the long-lived, cross-session knowledge about a client.
// It accumulates; it is never wholesale replaced, and it survives session
// resets. The stage gate never reads from it.
type ClientMemory struct {
	ClientID string `json:"client_id"`

	VehiclesInterested []VehicleNote   `json:"vehicles_interested,omitempty"`
	VehiclesRejected   []VehicleNote   `json:"vehicles_rejected,omitempty"`
	Objections         []Objection     `json:"objections,omitempty"`
	OffersGiven        []OfferSnapshot `json:"offers_given,omitempty"`
	BuyingSignals      []BuyingSignal  `json:"buying_signals,omitempty"`
	Concerns           []string        `json:"concerns,omitempty"`
	KeyInsights        []string        `json:"key_insights,omitempty"`

	RelationshipScore      int     `json:"relationship_score"`
	InteractionCount       int     `json:"interaction_count"`
	CreditTier             string  `json:"credit_tier,omitempty"`
	CreditScoreMentioned   int     `json:"credit_score_mentioned,omitempty"`
	DocumentType           string  `json:"document_type,omitempty"`
	PreferredPlan          string  `json:"preferred_plan,omitempty"`
	PreferredBudgetMonthly float64 `json:"preferred_budget_monthly,omitempty"`
	PreferredBudgetDown    float64 `json:"preferred_budget_down,omitempty"`
	BuyingTimeline         string  `json:"buying_timeline,omitempty"`
	CommunicationStyle     string  `json:"communication_style,omitempty"`
	Occupation             string  `json:"occupation,omitempty"`
	FamilyNote             string  `json:"family_note,omitempty"`

	LastOffer         *OfferSnapshot `json:"last_offer,omitempty"`
	LastInteractionAt time.Time      `json:"last_interaction_at,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// NewClientMemory returns the lazily-created memory for a first contact.
func NewClientMemory(clientID string, now time.Time) *ClientMemory {
	return &ClientMemory{
		ClientID:          clientID,
		RelationshipScore: 50,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// UpsertVehicleInterest records interest in a model, deduplicating by
// case-insensitive model name: a repeated model updates the existing note
// in place rather than appending a duplicate.
func (m *ClientMemory) UpsertVehicleInterest(note VehicleNote, now time.Time) {
	for i := range m.VehiclesInterested {
		if strings.EqualFold(m.VehiclesInterested[i].Model, note.Model) {
			if note.Trim != "" {
				m.VehiclesInterested[i].Trim = note.Trim
			}
			if note.Color != "" {
				m.VehiclesInterested[i].Color = note.Color
			}
			if note.Reason != "" {
				m.VehiclesInterested[i].Reason = note.Reason
			}
			m.VehiclesInterested[i].UpdatedAt = now
			return
		}
	}
	note.AddedAt = now
	m.VehiclesInterested = append(m.VehiclesInterested, note)
}

// AddObjection appends an objection to the history.
func (m *ClientMemory) AddObjection(text, responseGiven string, resolved bool, now time.Time) {
	m.Objections = append(m.Objections, Objection{
		Text:          text,
		ResponseGiven: responseGiven,
		Resolved:      resolved,
		At:            now,
	})
}

// AddOffer records an offer given to the client and caches it as the
// latest one.
func (m *ClientMemory) AddOffer(offer OfferSnapshot) {
	m.OffersGiven = append(m.OffersGiven, offer)
	o := offer
	m.LastOffer = &o
}
