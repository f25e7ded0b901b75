package campaign

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// StateStore is the in-memory StateRepository, used in tests and in single
// process deployments. Production deployments use the go-pg implementation.
type StateStore struct {
	mutex  sync.Mutex
	states map[uuid.UUID]State
}

func NewStateStore() *StateStore {
	return &StateStore{
		states: map[uuid.UUID]State{},
	}
}

func (s *StateStore) Create(state *State) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, existing := range s.states {
		if existing.RecipientId == state.RecipientId &&
			existing.AutomationId == state.AutomationId &&
			!existing.Terminal() {
			return StateAlreadyActiveErr
		}
	}

	if state.Uuid == uuid.Nil {
		state.Uuid = uuid.New()
	}

	now := time.Now()
	state.CreatedAt = now
	state.UpdatedAt = now

	s.states[state.Uuid] = *state

	return nil
}

func (s *StateStore) FindActive(recipientId, automationId string) (State, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, state := range s.states {
		if state.RecipientId == recipientId &&
			state.AutomationId == automationId &&
			!state.Terminal() {
			return state, nil
		}
	}

	return State{}, StateNotFoundErr
}

func (s *StateStore) Due(asOf time.Time) ([]State, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var due []State

	for _, state := range s.states {
		if !state.Terminal() && !state.NextStepTime.After(asOf) {
			due = append(due, state)
		}
	}

	sort.Slice(due, func(i, j int) bool {
		return due[i].NextStepTime.Before(due[j].NextStepTime)
	})

	return due, nil
}

func (s *StateStore) Claim(state *State, now time.Time, ttl time.Duration) (bool, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	current, ok := s.states[state.Uuid]
	if !ok {
		return false, StateNotFoundErr
	}

	if current.ClaimedAt != nil && now.Sub(*current.ClaimedAt) < ttl {
		return false, nil
	}

	current.ClaimedAt = &now
	s.states[state.Uuid] = current

	state.ClaimedAt = &now

	return true, nil
}

func (s *StateStore) Release(state *State) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	current, ok := s.states[state.Uuid]
	if !ok {
		return StateNotFoundErr
	}

	current.ClaimedAt = nil
	s.states[state.Uuid] = current

	state.ClaimedAt = nil

	return nil
}

func (s *StateStore) Advance(state *State, nextIndex int, nextTime time.Time, status StateStatus) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	current, ok := s.states[state.Uuid]
	if !ok {
		return StateNotFoundErr
	}

	current.NextStepIndex = nextIndex
	current.NextStepTime = nextTime
	current.Status = status
	current.ClaimedAt = nil
	current.UpdatedAt = time.Now()

	s.states[state.Uuid] = current

	*state = current

	return nil
}
