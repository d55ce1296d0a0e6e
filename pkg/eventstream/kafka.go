// Package eventstream mirrors order lifecycle events onto a Kafka topic so
// downstream systems (kitchen display, accounting) can follow the till.
package eventstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/IBM/sarama"

	"github.com/shashiranjanraj/beanleaf/pkg/event"
	"github.com/shashiranjanraj/beanleaf/pkg/logger"
	"github.com/shashiranjanraj/beanleaf/pkg/reqid"
)

// NewConfig returns the producer settings shared by every publisher.
func NewConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = "beanleaf"
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Consumer.Return.Errors = true
	return config
}

// KafkaPublisher writes OrderEvents as JSON, keyed by order id so every
// event of one order lands on the same partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *slog.Logger
}

// NewKafkaPublisher dials brokers and returns a publisher for topic.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewConfig())
	if err != nil {
		return nil, fmt.Errorf("eventstream: create producer: %w", err)
	}
	return NewPublisher(producer, topic), nil
}

// NewPublisher wraps an existing producer.
func NewPublisher(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, log: logger.L}
}

// Publish sends e and waits for the broker ack.
func (p *KafkaPublisher) Publish(ctx context.Context, e event.OrderEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("eventstream: marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.Itoa(e.OrderID)),
		Value: sarama.ByteEncoder(payload),
	}
	if id := reqid.FromCtx(ctx); id != "" {
		msg.Headers = []sarama.RecordHeader{{Key: []byte("request_id"), Value: []byte(id)}}
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("eventstream: send order %d: %w", e.OrderID, err)
	}

	logger.WithCtx(ctx).Debug("eventstream: published",
		"topic", p.topic,
		"order_id", e.OrderID,
		"to", e.To,
		"partition", partition,
		"offset", offset,
	)
	return nil
}

// Listener adapts the publisher to the in-process bus. Failures are logged;
// the order transition has already been persisted.
func (p *KafkaPublisher) Listener() event.Handler {
	return func(e event.OrderEvent) {
		if err := p.Publish(context.Background(), e); err != nil {
			p.log.Error("eventstream: publish failed", "order_id", e.OrderID, "error", err)
		}
	}
}

// Close flushes and closes the producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
