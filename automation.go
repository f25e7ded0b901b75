package campaign

import (
	"time"

	"github.com/google/uuid"
)

// TriggerEvent is the CRM event that starts an automation for a recipient.
type TriggerEvent string

const (
	TriggerNewLead     TriggerEvent = "new-lead-created"
	TriggerNewCustomer TriggerEvent = "new-customer-created"
)

func (e TriggerEvent) IsValid() bool {
	switch e {
	case TriggerNewLead, TriggerNewCustomer:
		return true
	default:
		return false
	}
}

type StepType uint

const (
	StepSendMessage StepType = iota
	StepWait
)

type DurationUnit string

const (
	UnitMinutes DurationUnit = "minutes"
	UnitHours   DurationUnit = "hours"
	UnitDays    DurationUnit = "days"
)

// Step is one entry of an automation sequence: either send a templated
// message or wait out a delay before the next step.
type Step struct {
	Type StepType `json:"type"`

	TemplateId string `json:"templateId,omitempty"`

	Duration int64        `json:"duration,omitempty"`
	Unit     DurationUnit `json:"unit,omitempty"`
}

func SendMessageStep(templateId string) Step {
	return Step{Type: StepSendMessage, TemplateId: templateId}
}

func WaitStep(duration int64, unit DurationUnit) Step {
	return Step{Type: StepWait, Duration: duration, Unit: unit}
}

// Delay converts a wait step's duration into wall clock time.
func (s Step) Delay() time.Duration {
	switch s.Unit {
	case UnitMinutes:
		return time.Duration(s.Duration) * time.Minute

	case UnitHours:
		return time.Duration(s.Duration) * time.Hour

	case UnitDays:
		return time.Duration(s.Duration) * 24 * time.Hour

	default:
		return 0
	}
}

// Definition is an ordered automation sequence bound to a trigger. Editing
// the steps while recipients hold active states referencing them is not
// supported; states pin the step count they were created against and cancel
// when the definition shrinks underneath them.
type Definition struct {
	Id string `json:"id"`

	Trigger TriggerEvent `json:"trigger"`
	Enabled bool         `json:"enabled"`

	Steps []Step `json:"steps"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type StateStatus string

const (
	StateActive    StateStatus = "active"
	StateCompleted StateStatus = "completed"
	StateCancelled StateStatus = "cancelled"
)

// State is one recipient's progression through one automation. At most one
// non-terminal state exists per (recipient, automation) pair.
type State struct {
	Uuid uuid.UUID `json:"uuid"`

	RecipientId  string `json:"recipientId"`
	AutomationId string `json:"automationId"`

	Status StateStatus `json:"status"`

	NextStepIndex int       `json:"nextStepIndex"`
	NextStepTime  time.Time `json:"nextStepTime"`

	// StepCount is the definition's step count at creation, used to detect a
	// definition edited underneath an in-flight state.
	StepCount int `json:"stepCount"`

	// ClaimedAt is the processing lease; nil when no tick owns the state.
	ClaimedAt *time.Time `json:"claimedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (s State) Terminal() bool {
	return s.Status == StateCompleted || s.Status == StateCancelled
}
