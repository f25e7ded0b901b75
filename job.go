package campaign

import (
	"time"

	"github.com/google/uuid"
)

// DispatchJob is one bulk send invocation. Jobs live for the duration of the
// call; results are persisted by the caller.
type DispatchJob struct {
	Uuid uuid.UUID `json:"uuid"`

	Body    string          `json:"body"`
	Mapping VariableMapping `json:"mapping"`

	Recipients []Recipient `json:"recipients"`

	Channel Channel       `json:"channel"`
	Config  ChannelConfig `json:"config"`

	CreatedAt time.Time `json:"createdAt"`
}

// Outcome records a single recipient's send.
type Outcome struct {
	RecipientId string `json:"recipientId"`
	Success     bool   `json:"success"`
	ProviderId  string `json:"providerId,omitempty"`
	Error       string `json:"error,omitempty"`
}

type Failure struct {
	RecipientId string `json:"recipientId"`
	Reason      string `json:"reason"`
}

// CampaignResult aggregates per-recipient outcomes. Job level success means
// the job ran to completion, not that every recipient succeeded.
type CampaignResult struct {
	Sent   int `json:"sent"`
	Failed int `json:"failed"`

	Failures []Failure `json:"failures,omitempty"`

	// LastProviderId is the most recent provider identifier seen, kept as a
	// representative tracking handle for the campaign.
	LastProviderId string `json:"lastProviderId,omitempty"`
}

func (r *CampaignResult) record(outcome Outcome) {
	if outcome.Success {
		r.Sent++

		if outcome.ProviderId != "" {
			r.LastProviderId = outcome.ProviderId
		}

		return
	}

	r.Failed++
	r.Failures = append(r.Failures, Failure{
		RecipientId: outcome.RecipientId,
		Reason:      outcome.Error,
	})
}
