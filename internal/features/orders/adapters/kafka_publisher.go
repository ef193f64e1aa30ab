package adapters

import (
	"context"
	"encoding/json"
	"fmt"

	"kmerzone/internal/core/logger"
	"kmerzone/internal/features/orders/domain"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// KafkaPublisher implements ports.EventPublisher on a Kafka topic.
// Events are keyed by order id so one order's events stay in one partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger
}

// NewKafkaPublisher connects a synchronous producer to brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Version = sarama.V2_6_0_0

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(producer, topic), nil
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, log: logger.Named("events")}
}

// Publish implements ports.EventPublisher.
func (p *KafkaPublisher) Publish(_ context.Context, e domain.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(e.OrderID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event-type"), Value: []byte(e.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send %s: %w", e.Type, err)
	}

	p.log.Debug("Event published",
		zap.String("topic", p.topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
		zap.String("event", string(e.Type)),
		zap.String("order_id", e.OrderID),
	)
	return nil
}

// Close implements ports.EventPublisher.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// LogPublisher implements ports.EventPublisher by writing events to the log.
// It is used when no broker is configured.
type LogPublisher struct {
	log *zap.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{log: logger.Named("events")}
}

// Publish implements ports.EventPublisher.
func (p *LogPublisher) Publish(_ context.Context, e domain.Event) error {
	p.log.Info("Order event",
		zap.String("event", string(e.Type)),
		zap.String("order_id", e.OrderID),
		zap.String("status", string(e.Status)),
		zap.Int64("version", e.Version),
	)
	return nil
}

// Close implements ports.EventPublisher.
func (p *LogPublisher) Close() error { return nil }
