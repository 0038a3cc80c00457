package model

import (
	"strings"
	"time"
)

// Stage is the gated phase of a sales conversation. It is always derived
// from the session fields by the stage gate, never written directly by
// extraction or by the completion model.
type Stage string

const (
	StageDiscovery     Stage = "DISCOVERY"
	StageQualification Stage = "QUALIFICATION"
	StageStrategy      Stage = "STRATEGY"
	StageOffer         Stage = "OFFER"
	StageAppointment   Stage = "APPOINTMENT"
)

func (s Stage) String() string {
	return string(s)
}

// StatusColor maps a stage to the lead color shown on the CRM board.
func (s Stage) StatusColor() string {
	switch s {
	case StageAppointment:
		return "green"
	case StageOffer, StageStrategy:
		return "blue"
	case StageQualification:
		return "yellow"
	default:
		return "gray"
	}
}

type UsageType string

const (
	UsageRideshare UsageType = "rideshare"
	UsageWork      UsageType = "work"
	UsagePersonal  UsageType = "personal"
	UsageUnknown   UsageType = "unknown"
)

type DocType string

const (
	DocSSN      DocType = "ssn"
	DocITIN     DocType = "itin"
	DocPassport DocType = "passport"
)

type DealIntent string

const (
	IntentPurchase DealIntent = "purchase"
	IntentLease    DealIntent = "lease"
	IntentUnknown  DealIntent = "unknown"
)

// VehicleInterest is the vehicle the client is currently asking about.
type VehicleInterest struct {
	Model          string  `json:"model"`
	BodyType       string  `json:"body_type,omitempty"`
	EstimatedPrice float64 `json:"estimated_price,omitempty"`
	Year           int     `json:"year,omitempty"`
}

// SameModel reports whether both interests name the same model,
// compared case-insensitively.
func (v *VehicleInterest) SameModel(other *VehicleInterest) bool {
	if v == nil || other == nil {
		return false
	}
	return strings.EqualFold(v.Model, other.Model)
}

// OfferSnapshot is a cached copy of a quote that was shown to the client.
// Quotes are computed, never authoritative; the snapshot exists so the
// prompt can reference the last numbers given without recomputing.
type OfferSnapshot struct {
	Vehicle        string    `json:"vehicle"`
	PlanType       string    `json:"plan_type"`
	MonthlyPayment float64   `json:"monthly_payment"`
	DownPayment    float64   `json:"down_payment"`
	TermMonths     int       `json:"term_months"`
	Accepted       *bool     `json:"accepted,omitempty"`
	QuotedAt       time.Time `json:"quoted_at"`
}

// SessionState holds the per-conversation qualification record. One exists
// per client conversation; it is mutated only under the per-conversation
// lock and reset only by an explicit administrative action.
type SessionState struct {
	ClientID         string           `json:"client_id"`
	Stage            Stage            `json:"stage"`
	VehicleInterest  *VehicleInterest `json:"vehicle_interest,omitempty"`
	UsageType        UsageType        `json:"usage_type,omitempty"`
	FirstTimeBuyer   *bool            `json:"first_time_buyer,omitempty"`
	CreditScore      *int             `json:"credit_score,omitempty"`
	DocType          DocType          `json:"doc_type,omitempty"`
	DealIntent       DealIntent       `json:"deal_intent"`
	StrategyAccepted bool             `json:"strategy_accepted"`
	HasTradeIn       bool             `json:"has_trade_in"`
	DownPayment      float64          `json:"downpayment_available"`
	AppointmentAt    *time.Time       `json:"appointment_datetime,omitempty"`
	LastOffer        *OfferSnapshot   `json:"last_offer,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewSessionState returns the initial record for a first inbound message.
func NewSessionState(clientID string, now time.Time) *SessionState {
	return &SessionState{
		ClientID:   clientID,
		Stage:      StageDiscovery,
		DealIntent: IntentUnknown,
		UsageType:  UsageUnknown,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// StatePatch is a partial SessionState produced by the fact extractor.
// A nil field means "no change"; patches never clear accumulated facts
// except where a field explicitly overrides a mutually exclusive one
// (e.g. a credit-history phrase clearing first_time_buyer).
type StatePatch struct {
	VehicleInterest  *VehicleInterest
	UsageType        *UsageType
	FirstTimeBuyer   *bool
	CreditScore      *int
	DocType          *DocType
	DealIntent       *DealIntent
	StrategyAccepted *bool
	HasTradeIn       *bool
	DownPayment      *float64
}

// IsZero reports whether the patch carries no updates.
func (p StatePatch) IsZero() bool {
	return p.VehicleInterest == nil &&
		p.UsageType == nil &&
		p.FirstTimeBuyer == nil &&
		p.CreditScore == nil &&
		p.DocType == nil &&
		p.DealIntent == nil &&
		p.StrategyAccepted == nil &&
		p.HasTradeIn == nil &&
		p.DownPayment == nil
}

// Apply merges the patch into the session. The stage is not touched here;
// callers re-run the stage gate after every merge.
func (s *SessionState) Apply(p StatePatch, now time.Time) {
	if p.VehicleInterest != nil {
		s.VehicleInterest = p.VehicleInterest
	}
	if p.UsageType != nil {
		s.UsageType = *p.UsageType
	}
	if p.FirstTimeBuyer != nil {
		s.FirstTimeBuyer = p.FirstTimeBuyer
	}
	if p.CreditScore != nil {
		s.CreditScore = p.CreditScore
	}
	if p.DocType != nil {
		s.DocType = *p.DocType
	}
	if p.DealIntent != nil {
		s.DealIntent = *p.DealIntent
	}
	if p.StrategyAccepted != nil {
		s.StrategyAccepted = *p.StrategyAccepted
	}
	if p.HasTradeIn != nil && *p.HasTradeIn {
		// trade-in is sticky: once reported it is never auto-cleared
		s.HasTradeIn = true
	}
	if p.DownPayment != nil {
		s.DownPayment = *p.DownPayment
	}
	s.UpdatedAt = now
}
