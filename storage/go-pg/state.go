package gopg

import (
	"time"

	"github.com/go-pg/pg"

	"github.com/interactive-solutions/go-campaign"
)

func NewStateRepository(db *pg.DB) campaign.StateRepository {
	return &stateRepository{
		db: db,
	}
}

type stateWrapper struct {
	TableName struct{} `sql:"campaign_automation_states, alias:cas" json:"-"`

	*campaign.State
}

type stateRepository struct {
	db *pg.DB
}

func (repo *stateRepository) Create(state *campaign.State) error {
	if _, err := repo.FindActive(state.RecipientId, state.AutomationId); err == nil {
		return campaign.StateAlreadyActiveErr
	} else if err != campaign.StateNotFoundErr {
		return err
	}

	now := time.Now()
	state.CreatedAt = now
	state.UpdatedAt = now

	return repo.db.Insert(&stateWrapper{State: state})
}

func (repo *stateRepository) FindActive(recipientId, automationId string) (campaign.State, error) {
	var wrapped stateWrapper

	err := repo.db.Model(&wrapped).
		Where("recipient_id = ?", recipientId).
		Where("automation_id = ?", automationId).
		Where("status = ?", campaign.StateActive).
		Limit(1).
		Select()

	if err != nil {
		if err == pg.ErrNoRows {
			return campaign.State{}, campaign.StateNotFoundErr
		}

		return campaign.State{}, err
	}

	return *wrapped.State, nil
}

func (repo *stateRepository) Due(asOf time.Time) ([]campaign.State, error) {
	var states []campaign.State
	var wrappedStates []stateWrapper

	err := repo.db.Model(&wrappedStates).
		Where("status = ?", campaign.StateActive).
		Where("next_step_time <= ?", asOf).
		Order("next_step_time ASC").
		Select()

	if err != nil {
		if err == pg.ErrNoRows {
			return states, nil
		}

		return states, err
	}

	for _, s := range wrappedStates {
		states = append(states, *s.State)
	}

	return states, nil
}

// Claim is a conditional update so two overlapping ticks can never both own
// the same state.
func (repo *stateRepository) Claim(state *campaign.State, now time.Time, ttl time.Duration) (bool, error) {
	res, err := repo.db.Model(&stateWrapper{State: state}).
		Set("claimed_at = ?", now).
		Where("uuid = ?", state.Uuid).
		Where("claimed_at is null OR claimed_at < ?", now.Add(-ttl)).
		Update()

	if err != nil {
		return false, err
	}

	if res.RowsAffected() == 0 {
		return false, nil
	}

	state.ClaimedAt = &now

	return true, nil
}

func (repo *stateRepository) Release(state *campaign.State) error {
	_, err := repo.db.Model(&stateWrapper{State: state}).
		Set("claimed_at = null").
		Where("uuid = ?", state.Uuid).
		Update()

	if err == nil {
		state.ClaimedAt = nil
	}

	return err
}

func (repo *stateRepository) Advance(state *campaign.State, nextIndex int, nextTime time.Time, status campaign.StateStatus) error {
	now := time.Now()

	_, err := repo.db.Model(&stateWrapper{State: state}).
		Set("next_step_index = ?", nextIndex).
		Set("next_step_time = ?", nextTime).
		Set("status = ?", status).
		Set("claimed_at = null").
		Set("updated_at = ?", now).
		Where("uuid = ?", state.Uuid).
		Update()

	if err != nil {
		return err
	}

	state.NextStepIndex = nextIndex
	state.NextStepTime = nextTime
	state.Status = status
	state.ClaimedAt = nil
	state.UpdatedAt = now

	return nil
}
