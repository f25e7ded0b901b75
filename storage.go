package campaign

import (
	"time"

	"github.com/pkg/errors"
)

var (
	TemplateNotFoundErr   = errors.New("The template was not found")
	DefinitionNotFoundErr = errors.New("The automation definition was not found")
	RecipientNotFoundErr  = errors.New("The recipient was not found")
	StateNotFoundErr      = errors.New("The automation state was not found")

	// StateAlreadyActiveErr reports a trigger for a (recipient, automation)
	// pair that already has a non-terminal state.
	StateAlreadyActiveErr = errors.New("The automation is already active for the recipient")
)

type TemplateRepository interface {
	Get(id string) (Template, error)
}

type DefinitionRepository interface {
	Get(id string) (Definition, error)
	GetByTrigger(event TriggerEvent) ([]Definition, error)
	GetAll() ([]Definition, error)
}

// StateRepository is the automation state store, the only shared mutable
// resource across ticks. Claim must be atomic so two overlapping ticks never
// double-advance the same state.
type StateRepository interface {
	Create(state *State) error
	FindActive(recipientId, automationId string) (State, error)

	// Due returns every non-terminal state with NextStepTime <= asOf,
	// oldest due first.
	Due(asOf time.Time) ([]State, error)

	// Claim takes the processing lease on a state. It returns false when
	// another tick already holds a lease younger than ttl.
	Claim(state *State, now time.Time, ttl time.Duration) (bool, error)

	// Release drops the lease without advancing, leaving the state due.
	Release(state *State) error

	// Advance moves the step pointer and schedule and drops the lease.
	Advance(state *State, nextIndex int, nextTime time.Time, status StateStatus) error
}
