package amqp

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/interactive-solutions/go-campaign"
)

// routingKeys maps CRM event routing keys to automation triggers.
var routingKeys = map[string]campaign.TriggerEvent{
	"lead.created":     campaign.TriggerNewLead,
	"customer.created": campaign.TriggerNewCustomer,
}

type triggerMessage struct {
	RecipientId string `json:"recipientId"`
}

// Subscriber consumes CRM lifecycle events from a topic exchange and turns
// them into automation triggers. Messages that fail to trigger are nacked
// and redelivered; malformed payloads are dropped.
type Subscriber struct {
	logger logrus.FieldLogger
	engine *campaign.Engine

	conn *amqp091.Connection
	ch   *amqp091.Channel

	exchange string

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func NewSubscriber(url, exchange string, engine *campaign.Engine, logger logrus.FieldLogger) (*Subscriber, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}

	return &Subscriber{
		logger:   logger,
		engine:   engine,
		conn:     conn,
		ch:       ch,
		exchange: exchange,
		done:     make(chan struct{}),
	}, nil
}

func (s *Subscriber) Start(queueName string) error {
	var startErr error

	s.once.Do(func() {
		if err := s.ch.Qos(10, 0, false); err != nil {
			startErr = err
			return
		}

		queue, err := s.ch.QueueDeclare(queueName, true, false, false, false, nil)
		if err != nil {
			startErr = err
			return
		}

		for key := range routingKeys {
			if err := s.ch.QueueBind(queue.Name, key, s.exchange, false, nil); err != nil {
				startErr = err
				return
			}
		}

		deliveries, err := s.ch.Consume(queue.Name, "", false, false, false, false, nil)
		if err != nil {
			startErr = err
			return
		}

		s.wg.Add(1)
		go s.consume(deliveries)

		s.logger.WithField("queue", queueName).Info("trigger subscriber started")
	})

	return startErr
}

func (s *Subscriber) consume(deliveries <-chan amqp091.Delivery) {
	defer s.wg.Done()

	for {
		select {
		case <-s.done:
			return

		case delivery, ok := <-deliveries:
			if !ok {
				return
			}

			s.handle(delivery)
		}
	}
}

func (s *Subscriber) handle(delivery amqp091.Delivery) {
	event, ok := routingKeys[delivery.RoutingKey]
	if !ok {
		s.logger.WithField("key", delivery.RoutingKey).Warn("no trigger for routing key")
		delivery.Nack(false, false)
		return
	}

	message := triggerMessage{}
	if err := json.Unmarshal(delivery.Body, &message); err != nil || message.RecipientId == "" {
		s.logger.WithField("key", delivery.RoutingKey).Warn("malformed trigger payload")
		delivery.Nack(false, false)
		return
	}

	if err := s.engine.Trigger(event, message.RecipientId, time.Now()); err != nil {
		s.logger.
			WithField("key", delivery.RoutingKey).
			WithField("recipient", message.RecipientId).
			WithError(err).
			Error("failed to trigger automations")

		delivery.Nack(false, true)
		return
	}

	delivery.Ack(false)
}

func (s *Subscriber) Close() error {
	close(s.done)
	s.wg.Wait()

	s.ch.Close()

	return s.conn.Close()
}
