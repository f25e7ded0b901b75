package campaign

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// dispatcher partitions a job's recipients into batches and bounded
// concurrency chunks and pushes every rendered message through the channel
// transport. Chunk N+1 never starts before chunk N has fully completed,
// which is what keeps the in-flight ceiling hard.
type dispatcher struct {
	logger logrus.FieldLogger

	resolver  *Resolver
	transport Transport
}

func (d *dispatcher) dispatch(ctx context.Context, job *DispatchJob) (CampaignResult, error) {
	result := CampaignResult{}

	if d.transport == nil {
		return result, errors.Errorf("No transport configured for channel %s", job.Channel)
	}

	config := job.Config.withDefaults()
	dialect := DialectForChannel(job.Channel)

	// A malformed template fails the whole job before any send.
	if _, err := d.resolver.Scan(job.Body, dialect); err != nil {
		return result, err
	}

	batch, ok := d.transport.(BatchTransport)
	if ok && !job.Mapping.Personalized() {
		return d.dispatchUniform(ctx, job, config, dialect, batch)
	}

	for i, recipients := range partition(job.Recipients, config.MaxBatchSize) {
		if i > 0 {
			time.Sleep(config.BatchDelay)
		}

		for j, chunk := range partition(recipients, config.MaxConcurrent) {
			if j > 0 {
				time.Sleep(config.ChunkDelay)
			}

			for _, outcome := range d.dispatchChunk(ctx, job, config, dialect, chunk) {
				result.record(outcome)
			}
		}
	}

	return result, nil
}

// dispatchChunk sends to every recipient of one chunk concurrently and waits
// for all of them before returning. One recipient's failure is recorded and
// never aborts its chunk mates.
func (d *dispatcher) dispatchChunk(ctx context.Context, job *DispatchJob, config ChannelConfig, dialect PlaceholderDialect, chunk []Recipient) []Outcome {
	outcomes := make([]Outcome, len(chunk))

	var wg sync.WaitGroup

	for i, recipient := range chunk {
		wg.Add(1)

		go func(i int, recipient Recipient) {
			defer wg.Done()

			outcomes[i] = d.send(ctx, job, config, dialect, recipient)
		}(i, recipient)
	}

	wg.Wait()

	return outcomes
}

func (d *dispatcher) send(ctx context.Context, job *DispatchJob, config ChannelConfig, dialect PlaceholderDialect, recipient Recipient) Outcome {
	outcome := Outcome{RecipientId: recipient.Id}

	address, ok := recipient.Field(config.AddressField)
	if !ok || address == "" {
		outcome.Error = "recipient has no " + config.AddressField + " address"
		return outcome
	}

	message, err := d.resolver.Resolve(job.Body, dialect, job.Mapping, recipient)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	ctx, cancel := context.WithTimeout(ctx, config.SendTimeout)
	defer cancel()

	providerId, err := d.transport.Send(ctx, address, message)
	if err != nil {
		d.logger.
			WithField("job", job.Uuid).
			WithField("recipient", recipient.Id).
			WithError(err).
			Warn("send failed")

		outcome.Error = err.Error()
		return outcome
	}

	outcome.Success = true
	outcome.ProviderId = providerId

	return outcome
}

// dispatchUniform renders once and issues one provider level call per batch
// carrying the batch's full address list, which is cheaper than driving the
// provider per recipient.
func (d *dispatcher) dispatchUniform(ctx context.Context, job *DispatchJob, config ChannelConfig, dialect PlaceholderDialect, transport BatchTransport) (CampaignResult, error) {
	result := CampaignResult{}

	message, err := d.resolver.Resolve(job.Body, dialect, job.Mapping, Recipient{})
	if err != nil {
		return result, err
	}

	for i, recipients := range partition(job.Recipients, config.MaxBatchSize) {
		if i > 0 {
			time.Sleep(config.BatchDelay)
		}

		addresses := make([]string, 0, len(recipients))
		addressed := make([]Recipient, 0, len(recipients))

		for _, recipient := range recipients {
			address, ok := recipient.Field(config.AddressField)
			if !ok || address == "" {
				result.record(Outcome{
					RecipientId: recipient.Id,
					Error:       "recipient has no " + config.AddressField + " address",
				})

				continue
			}

			addresses = append(addresses, address)
			addressed = append(addressed, recipient)
		}

		if len(addresses) == 0 {
			continue
		}

		sendCtx, cancel := context.WithTimeout(ctx, config.SendTimeout)
		providerId, err := transport.SendBatch(sendCtx, addresses, message)
		cancel()

		for _, recipient := range addressed {
			outcome := Outcome{RecipientId: recipient.Id}

			if err != nil {
				outcome.Error = err.Error()
			} else {
				outcome.Success = true
				outcome.ProviderId = providerId
			}

			result.record(outcome)
		}

		if err != nil {
			d.logger.
				WithField("job", job.Uuid).
				WithField("batch", i).
				WithError(err).
				Warn("batch send failed")
		}
	}

	return result, nil
}

func partition(recipients []Recipient, size int) [][]Recipient {
	if len(recipients) == 0 {
		return nil
	}

	partitions := make([][]Recipient, 0, (len(recipients)+size-1)/size)

	for start := 0; start < len(recipients); start += size {
		end := start + size
		if end > len(recipients) {
			end = len(recipients)
		}

		partitions = append(partitions, recipients[start:end])
	}

	return partitions
}
