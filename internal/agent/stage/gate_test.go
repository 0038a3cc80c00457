package stage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dealerflow/salesagent/internal/agent/model"
)

func qualifiedState() *model.SessionState {
	score := 690
	s := model.NewSessionState("c1", time.Now())
	s.VehicleInterest = &model.VehicleInterest{Model: "Corolla"}
	s.UsageType = model.UsageRideshare
	s.CreditScore = &score
	s.DocType = model.DocSSN
	return s
}

func TestGateNilState(t *testing.T) {
	assert.Equal(t, model.StageDiscovery, Gate(nil))
}

func TestGateDiscoveryUntilVehicleAndUsage(t *testing.T) {
	s := model.NewSessionState("c1", time.Now())
	assert.Equal(t, model.StageDiscovery, Gate(s))

	s.VehicleInterest = &model.VehicleInterest{Model: "Corolla"}
	assert.Equal(t, model.StageDiscovery, Gate(s))

	s.UsageType = model.UsageWork
	assert.Equal(t, model.StageQualification, Gate(s))
}

func TestGateQualificationNeedsBothFacts(t *testing.T) {
	s := qualifiedState()
	assert.Equal(t, model.StageStrategy, Gate(s))

	s.DocType = ""
	assert.Equal(t, model.StageQualification, Gate(s))

	s = qualifiedState()
	s.CreditScore = nil
	assert.Equal(t, model.StageQualification, Gate(s))
}

func TestGateOutOfOrderFactsDoNotSkipStages(t *testing.T) {
	// a credit score volunteered in the first message is retained but the
	// conversation still starts at discovery
	score := 720
	s := model.NewSessionState("c1", time.Now())
	s.CreditScore = &score
	s.DocType = model.DocSSN
	assert.Equal(t, model.StageDiscovery, Gate(s))

	s.VehicleInterest = &model.VehicleInterest{Model: "RAV4"}
	s.UsageType = model.UsagePersonal
	// both earlier facts now count at once
	assert.Equal(t, model.StageStrategy, Gate(s))
}

func TestGateStrategyThenOffer(t *testing.T) {
	s := qualifiedState()
	assert.Equal(t, model.StageStrategy, Gate(s))

	s.StrategyAccepted = true
	assert.Equal(t, model.StageOffer, Gate(s))
}

func TestGateAppointmentTerminal(t *testing.T) {
	s := qualifiedState()
	s.StrategyAccepted = true
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	s.AppointmentAt = &at
	assert.Equal(t, model.StageAppointment, Gate(s))
}

func TestGatePure(t *testing.T) {
	s := qualifiedState()
	before := *s
	for i := 0; i < 3; i++ {
		assert.Equal(t, model.StageStrategy, Gate(s))
	}
	assert.Equal(t, before, *s)
}
