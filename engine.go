package campaign

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FailurePolicy decides what happens to an automation state when its send
// step fails. The CRM's automation model has no retry construct, so the
// default advances past the failed step rather than stalling the sequence.
type FailurePolicy uint

const (
	FailureAdvance FailurePolicy = iota
	FailureRetry
	FailureHalt
)

const defaultClaimTtl = 5 * time.Minute

type EngineOption func(e *Engine)

func SetEngineLogger(logger logrus.FieldLogger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

func SetCoordinator(coordinator *Coordinator) EngineOption {
	return func(e *Engine) {
		e.coordinator = coordinator
	}
}

func SetDefinitionRepo(repo DefinitionRepository) EngineOption {
	return func(e *Engine) {
		e.definitions = repo
	}
}

func SetTemplateRepo(repo TemplateRepository) EngineOption {
	return func(e *Engine) {
		e.templates = repo
	}
}

func SetRecipientRepo(repo RecipientRepository) EngineOption {
	return func(e *Engine) {
		e.recipients = repo
	}
}

func SetStateRepo(repo StateRepository) EngineOption {
	return func(e *Engine) {
		e.states = repo
	}
}

func SetFailurePolicy(policy FailurePolicy) EngineOption {
	return func(e *Engine) {
		e.policy = policy
	}
}

// SetClaimTtl sets how long a processing lease shields a state from other
// ticks before it is considered abandoned.
func SetClaimTtl(ttl time.Duration) EngineOption {
	return func(e *Engine) {
		e.claimTtl = ttl
	}
}

// Engine advances automation states through their step sequences. It is
// driven by an external periodic tick and is safe to invoke with overlapping
// time windows: states already advanced past their due time are simply not
// due again.
type Engine struct {
	logger logrus.FieldLogger

	coordinator *Coordinator

	definitions DefinitionRepository
	templates   TemplateRepository
	recipients  RecipientRepository
	states      StateRepository

	policy   FailurePolicy
	claimTtl time.Duration
}

func NewEngine(options ...EngineOption) (*Engine, error) {
	engine := &Engine{
		logger:   logrus.New(),
		claimTtl: defaultClaimTtl,
	}

	for _, option := range options {
		option(engine)
	}

	if err := engine.ensureUsableConfiguration(); err != nil {
		return nil, err
	}

	return engine, nil
}

func (e *Engine) ensureUsableConfiguration() error {
	if e.coordinator == nil {
		return errors.New("Missing campaign coordinator")
	}

	if e.definitions == nil {
		return errors.New("Missing definition repository")
	}

	if e.templates == nil {
		return errors.New("Missing template repository")
	}

	if e.recipients == nil {
		return errors.New("Missing recipient repository")
	}

	if e.states == nil {
		return errors.New("Missing state repository")
	}

	return nil
}

// Trigger creates an initial state for every enabled definition bound to the
// event. The first step is due immediately, with no initial delay. A
// recipient already progressing through a definition is left untouched.
func (e *Engine) Trigger(event TriggerEvent, recipientId string, now time.Time) error {
	definitions, err := e.definitions.GetByTrigger(event)
	if err != nil {
		return errors.Wrapf(err, "Failed to load definitions for trigger %s", event)
	}

	for _, definition := range definitions {
		if !definition.Enabled || len(definition.Steps) == 0 {
			continue
		}

		state := &State{
			RecipientId:   recipientId,
			AutomationId:  definition.Id,
			Status:        StateActive,
			NextStepIndex: 0,
			NextStepTime:  now,
			StepCount:     len(definition.Steps),
		}

		switch err := e.states.Create(state); err {
		case nil:

		case StateAlreadyActiveErr:
			e.logger.
				WithField("recipient", recipientId).
				WithField("automation", definition.Id).
				Debug("trigger ignored, automation already active")

		default:
			return errors.Wrap(err, "Failed to create automation state")
		}
	}

	return nil
}

// Cancel marks a recipient's active state terminal, e.g. on unsubscribe.
func (e *Engine) Cancel(recipientId, automationId string) error {
	state, err := e.states.FindActive(recipientId, automationId)
	if err != nil {
		return err
	}

	return e.states.Advance(&state, state.NextStepIndex, state.NextStepTime, StateCancelled)
}

// Tick processes every state due at now. Each state is claimed before
// processing and one state's failure never blocks the rest of the tick.
func (e *Engine) Tick(ctx context.Context, now time.Time) error {
	due, err := e.states.Due(now)
	if err != nil {
		return errors.Wrap(err, "Failed to load due states")
	}

	for i := range due {
		state := due[i]

		claimed, err := e.states.Claim(&state, now, e.claimTtl)
		if err != nil || !claimed {
			if err != nil {
				e.logger.WithField("state", state.Uuid).WithError(err).Error("failed to claim state")
			}

			continue
		}

		if err := e.processState(ctx, &state, now); err != nil {
			e.logger.
				WithField("state", state.Uuid).
				WithField("recipient", state.RecipientId).
				WithField("automation", state.AutomationId).
				WithError(err).
				Error("failed to process automation state")
		}
	}

	return nil
}

func (e *Engine) processState(ctx context.Context, state *State, now time.Time) error {
	definition, err := e.definitions.Get(state.AutomationId)
	switch err {
	case nil:

	case DefinitionNotFoundErr:
		// The definition was deleted mid-flight; retrying forever would
		// never succeed.
		return e.states.Advance(state, state.NextStepIndex, state.NextStepTime, StateCancelled)

	default:
		e.release(state)
		return errors.Wrap(err, "Failed to load definition")
	}

	// A definition edited underneath an in-flight state invalidates the
	// positional step pointer.
	if len(definition.Steps) < state.StepCount || state.NextStepIndex >= len(definition.Steps) {
		return e.states.Advance(state, state.NextStepIndex, state.NextStepTime, StateCancelled)
	}

	step := definition.Steps[state.NextStepIndex]

	switch step.Type {
	case StepWait:
		return e.advance(state, len(definition.Steps), now.Add(step.Delay()))

	case StepSendMessage:
		return e.executeSendStep(ctx, state, definition, step, now)

	default:
		return e.states.Advance(state, state.NextStepIndex, state.NextStepTime, StateCancelled)
	}
}

func (e *Engine) executeSendStep(ctx context.Context, state *State, definition Definition, step Step, now time.Time) error {
	recipient, err := e.recipients.Get(state.RecipientId)
	if err == RecipientNotFoundErr {
		return e.states.Advance(state, state.NextStepIndex, state.NextStepTime, StateCancelled)
	} else if err != nil {
		e.release(state)
		return errors.Wrap(err, "Failed to load recipient")
	}

	sendErr := e.sendStepMessage(ctx, step, recipient)
	if sendErr == nil {
		return e.advance(state, len(definition.Steps), now)
	}

	e.logger.
		WithField("state", state.Uuid).
		WithField("template", step.TemplateId).
		WithError(sendErr).
		Warn("automation send step failed")

	switch e.policy {
	case FailureRetry:
		return e.release(state)

	case FailureHalt:
		return e.states.Advance(state, state.NextStepIndex, state.NextStepTime, StateCancelled)

	default:
		// Advance: the step counts as executed so the sequence cannot stall.
		return e.advance(state, len(definition.Steps), now)
	}
}

func (e *Engine) sendStepMessage(ctx context.Context, step Step, recipient Recipient) error {
	template, err := e.templates.Get(step.TemplateId)
	if err != nil {
		return errors.Wrapf(err, "Failed to load template %s", step.TemplateId)
	}

	result, err := e.coordinator.RunCampaign(ctx, template.Body, template.Mapping, []Recipient{recipient}, template.Channel)
	if err != nil {
		return err
	}

	if result.Failed > 0 {
		reason := "send failed"
		if len(result.Failures) > 0 {
			reason = result.Failures[0].Reason
		}

		return errors.New(reason)
	}

	return nil
}

// advance moves the pointer one step and schedules the follow up: the next
// tick picks the state up immediately unless a wait step pushed the due time
// into the future.
func (e *Engine) advance(state *State, stepCount int, nextTime time.Time) error {
	nextIndex := state.NextStepIndex + 1

	status := StateActive
	if nextIndex >= stepCount {
		status = StateCompleted
	}

	return e.states.Advance(state, nextIndex, nextTime, status)
}

func (e *Engine) release(state *State) error {
	if err := e.states.Release(state); err != nil {
		e.logger.WithField("state", state.Uuid).WithError(err).Error("failed to release state claim")
		return err
	}

	return nil
}
