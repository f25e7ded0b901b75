package campaign

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const UserAgent = "InteractiveSolutions/GoCampaign-1.0"

var (
	ChannelNotConfiguredErr = errors.New("The channel has no configured transport")
	NoRecipientsErr         = errors.New("The recipient list is empty")
)

type CoordinatorOption func(c *Coordinator)

func SetLogger(logger logrus.FieldLogger) CoordinatorOption {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// SetTransport binds a channel to its provider transport and rate limit
// constraints. Channels without a binding reject jobs up front.
func SetTransport(channel Channel, transport Transport, config ChannelConfig) CoordinatorOption {
	return func(c *Coordinator) {
		c.transports[channel] = transport
		c.configs[channel] = config
	}
}

// Coordinator runs one-shot bulk sends. It holds no deduplication memory:
// running the same job twice sends twice.
type Coordinator struct {
	logger logrus.FieldLogger

	resolver *Resolver

	transports map[Channel]Transport
	configs    map[Channel]ChannelConfig
}

func NewCoordinator(options ...CoordinatorOption) *Coordinator {
	coordinator := &Coordinator{
		logger:     logrus.New(),
		resolver:   NewResolver(),
		transports: map[Channel]Transport{},
		configs:    map[Channel]ChannelConfig{},
	}

	for _, option := range options {
		option(coordinator)
	}

	return coordinator
}

// RunCampaign validates the job preconditions and delegates to the
// dispatcher. Every precondition violation surfaces as a distinct error
// before any recipient is attempted.
func (c *Coordinator) RunCampaign(ctx context.Context, body string, mapping VariableMapping, recipients []Recipient, channel Channel) (CampaignResult, error) {
	transport, ok := c.transports[channel]
	if !ok {
		return CampaignResult{}, errors.Wrapf(ChannelNotConfiguredErr, "channel %s", channel)
	}

	if len(recipients) == 0 {
		return CampaignResult{}, NoRecipientsErr
	}

	if _, err := c.resolver.Scan(body, DialectForChannel(channel)); err != nil {
		return CampaignResult{}, err
	}

	job := &DispatchJob{
		Uuid:       uuid.New(),
		Body:       body,
		Mapping:    mapping,
		Recipients: recipients,
		Channel:    channel,
		Config:     c.configs[channel],
		CreatedAt:  time.Now(),
	}

	worker := &dispatcher{
		logger:    c.logger,
		resolver:  c.resolver,
		transport: transport,
	}

	result, err := worker.dispatch(ctx, job)
	if err != nil {
		return result, err
	}

	c.logger.
		WithField("job", job.Uuid).
		WithField("channel", channel).
		WithField("sent", result.Sent).
		WithField("failed", result.Failed).
		Info("campaign dispatched")

	return result, nil
}
