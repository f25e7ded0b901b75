package campaign

import (
	"context"
	"time"
)

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelSms      Channel = "sms"
	ChannelWhatsapp Channel = "whatsapp"
)

// Transport delivers one rendered message to one address through an external
// provider and returns the provider's message identifier, if it issues one.
// Channel specific payload shaping belongs in the implementation, never in
// the engine.
type Transport interface {
	Send(ctx context.Context, address, message string) (string, error)
}

// BatchTransport is implemented by transports whose provider accepts one
// call carrying a full address list. The dispatcher prefers it for uniform
// jobs where every mapping entry is static.
type BatchTransport interface {
	Transport

	SendBatch(ctx context.Context, addresses []string, message string) (string, error)
}

// ChannelConfig carries the provider rate limit constraints of one channel.
// Values are configuration, never engine defaults baked into the dispatch
// loop.
type ChannelConfig struct {
	// AddressField is the recipient field holding the channel address,
	// e.g. "email" or "phone".
	AddressField string

	MaxBatchSize  int
	MaxConcurrent int

	ChunkDelay time.Duration
	BatchDelay time.Duration

	// SendTimeout bounds a single transport call so one hung request cannot
	// stall the batch.
	SendTimeout time.Duration
}

const defaultSendTimeout = 30 * time.Second

func (c ChannelConfig) withDefaults() ChannelConfig {
	if c.MaxBatchSize < 1 {
		c.MaxBatchSize = 50
	}

	if c.MaxConcurrent < 1 {
		c.MaxConcurrent = 1
	}

	if c.SendTimeout <= 0 {
		c.SendTimeout = defaultSendTimeout
	}

	return c
}
