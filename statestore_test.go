package campaign

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

func TestStateStore(t *testing.T) {
	suite.Run(t, new(stateStoreTestSuite))
}

type stateStoreTestSuite struct {
	suite.Suite

	store *StateStore
	now   time.Time
}

func (suite *stateStoreTestSuite) SetupTest() {
	suite.store = NewStateStore()
	suite.now = time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC)
}

func (suite *stateStoreTestSuite) newState(recipientId, automationId string, due time.Time) *State {
	return &State{
		RecipientId:   recipientId,
		AutomationId:  automationId,
		Status:        StateActive,
		NextStepIndex: 0,
		NextStepTime:  due,
		StepCount:     2,
	}
}

func (suite *stateStoreTestSuite) TestCreateAndFindActive() {
	state := suite.newState("lead-1", "auto-1", suite.now)

	if !assert.NoError(suite.T(), suite.store.Create(state)) {
		return
	}

	found, err := suite.store.FindActive("lead-1", "auto-1")

	if !assert.NoError(suite.T(), err) {
		return
	}

	assert.Equal(suite.T(), state.Uuid, found.Uuid)
	assert.Equal(suite.T(), 0, found.NextStepIndex)
}

func (suite *stateStoreTestSuite) TestDuplicateActiveStateRejected() {
	assert.NoError(suite.T(), suite.store.Create(suite.newState("lead-1", "auto-1", suite.now)))

	err := suite.store.Create(suite.newState("lead-1", "auto-1", suite.now))
	assert.Equal(suite.T(), StateAlreadyActiveErr, err)
}

func (suite *stateStoreTestSuite) TestTerminalStateAllowsRetrigger() {
	first := suite.newState("lead-1", "auto-1", suite.now)
	assert.NoError(suite.T(), suite.store.Create(first))

	assert.NoError(suite.T(), suite.store.Advance(first, 2, suite.now, StateCompleted))

	assert.NoError(suite.T(), suite.store.Create(suite.newState("lead-1", "auto-1", suite.now)))
}

func (suite *stateStoreTestSuite) TestDueReturnsOldestFirst() {
	late := suite.newState("lead-1", "auto-1", suite.now.Add(-time.Minute))
	early := suite.newState("lead-2", "auto-1", suite.now.Add(-time.Hour))
	future := suite.newState("lead-3", "auto-1", suite.now.Add(time.Hour))

	assert.NoError(suite.T(), suite.store.Create(late))
	assert.NoError(suite.T(), suite.store.Create(early))
	assert.NoError(suite.T(), suite.store.Create(future))

	due, err := suite.store.Due(suite.now)

	if !assert.NoError(suite.T(), err) {
		return
	}

	if assert.Len(suite.T(), due, 2) {
		assert.Equal(suite.T(), "lead-2", due[0].RecipientId)
		assert.Equal(suite.T(), "lead-1", due[1].RecipientId)
	}
}

func (suite *stateStoreTestSuite) TestDueExcludesTerminalStates() {
	state := suite.newState("lead-1", "auto-1", suite.now.Add(-time.Minute))
	assert.NoError(suite.T(), suite.store.Create(state))
	assert.NoError(suite.T(), suite.store.Advance(state, 0, state.NextStepTime, StateCancelled))

	due, err := suite.store.Due(suite.now)

	if !assert.NoError(suite.T(), err) {
		return
	}

	assert.Empty(suite.T(), due)
}

func (suite *stateStoreTestSuite) TestClaimIsExclusive() {
	state := suite.newState("lead-1", "auto-1", suite.now)
	assert.NoError(suite.T(), suite.store.Create(state))

	claimed, err := suite.store.Claim(state, suite.now, time.Minute)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), claimed)

	other := *state

	claimed, err = suite.store.Claim(&other, suite.now.Add(time.Second), time.Minute)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), claimed)
}

func (suite *stateStoreTestSuite) TestStaleClaimCanBeTaken() {
	state := suite.newState("lead-1", "auto-1", suite.now)
	assert.NoError(suite.T(), suite.store.Create(state))

	claimed, err := suite.store.Claim(state, suite.now, time.Minute)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), claimed)

	other := *state

	claimed, err = suite.store.Claim(&other, suite.now.Add(2*time.Minute), time.Minute)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), claimed)
}

func (suite *stateStoreTestSuite) TestReleaseDropsClaim() {
	state := suite.newState("lead-1", "auto-1", suite.now)
	assert.NoError(suite.T(), suite.store.Create(state))

	claimed, err := suite.store.Claim(state, suite.now, time.Minute)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), claimed)

	assert.NoError(suite.T(), suite.store.Release(state))

	claimed, err = suite.store.Claim(state, suite.now.Add(time.Second), time.Minute)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), claimed)
}

func (suite *stateStoreTestSuite) TestAdvanceMovesPointerAndDropsClaim() {
	state := suite.newState("lead-1", "auto-1", suite.now)
	assert.NoError(suite.T(), suite.store.Create(state))

	claimed, err := suite.store.Claim(state, suite.now, time.Minute)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), claimed)

	next := suite.now.Add(24 * time.Hour)

	assert.NoError(suite.T(), suite.store.Advance(state, 1, next, StateActive))

	found, err := suite.store.FindActive("lead-1", "auto-1")

	if !assert.NoError(suite.T(), err) {
		return
	}

	assert.Equal(suite.T(), 1, found.NextStepIndex)
	assert.Equal(suite.T(), next, found.NextStepTime)
	assert.Nil(suite.T(), found.ClaimedAt)
}
