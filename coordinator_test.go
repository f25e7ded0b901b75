package campaign

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

func TestCoordinator(t *testing.T) {
	suite.Run(t, new(coordinatorTestSuite))
}

type coordinatorTestSuite struct {
	suite.Suite
}

func (suite *coordinatorTestSuite) TestUnconfiguredChannelIsRejected() {
	coordinator := NewCoordinator()

	_, err := coordinator.RunCampaign(context.Background(), "hello", nil, makeRecipients(1), ChannelSms)

	assert.Equal(suite.T(), ChannelNotConfiguredErr, errors.Cause(err))
}

func (suite *coordinatorTestSuite) TestEmptyRecipientListIsRejected() {
	transport := &fakeTransport{}

	coordinator := NewCoordinator(
		SetTransport(ChannelSms, transport, ChannelConfig{AddressField: "phone"}),
	)

	_, err := coordinator.RunCampaign(context.Background(), "hello", nil, nil, ChannelSms)

	assert.Equal(suite.T(), NoRecipientsErr, errors.Cause(err))
	assert.Empty(suite.T(), transport.calls)
}

func (suite *coordinatorTestSuite) TestMalformedTemplateIsRejectedBeforeAnySend() {
	transport := &fakeTransport{}

	coordinator := NewCoordinator(
		SetTransport(ChannelSms, transport, ChannelConfig{AddressField: "phone"}),
	)

	_, err := coordinator.RunCampaign(context.Background(), "broken ##var1#", VariableMapping{Static("x")}, makeRecipients(3), ChannelSms)

	assert.Error(suite.T(), err)
	assert.Empty(suite.T(), transport.calls)
}

func (suite *coordinatorTestSuite) TestCampaignAggregatesOutcomes() {
	transport := &fakeTransport{
		failAddresses: map[string]bool{"phone-1": true},
	}

	coordinator := NewCoordinator(
		SetTransport(ChannelSms, transport, ChannelConfig{
			AddressField:  "phone",
			MaxBatchSize:  2,
			MaxConcurrent: 2,
		}),
	)

	result, err := coordinator.RunCampaign(
		context.Background(),
		"Hi ##var1##",
		VariableMapping{FieldReference("name")},
		makeRecipients(4),
		ChannelSms,
	)

	if !assert.NoError(suite.T(), err) {
		return
	}

	assert.Equal(suite.T(), 3, result.Sent)
	assert.Equal(suite.T(), 1, result.Failed)
	assert.Equal(suite.T(), "recipient-1", result.Failures[0].RecipientId)
	assert.NotEmpty(suite.T(), result.LastProviderId)
}

// Running the same job twice sends twice, the coordinator keeps no
// deduplication memory.
func (suite *coordinatorTestSuite) TestRepeatedRunSendsAgain() {
	transport := &fakeTransport{}

	coordinator := NewCoordinator(
		SetTransport(ChannelSms, transport, ChannelConfig{AddressField: "phone"}),
	)

	recipients := makeRecipients(2)

	for i := 0; i < 2; i++ {
		result, err := coordinator.RunCampaign(context.Background(), "hello", nil, recipients, ChannelSms)

		if !assert.NoError(suite.T(), err) {
			return
		}

		assert.Equal(suite.T(), 2, result.Sent)
	}

	assert.Len(suite.T(), transport.calls, 4)
}
