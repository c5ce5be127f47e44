package repository

import (
	"context"

	"CoinPulse/internal/domain/models"
	pkgkafka "CoinPulse/pkg/kafka"
)

// KafkaQuotePublisher pushes price-update events to a Kafka topic, keyed by
// symbol so per-asset ordering survives partitioning.
type KafkaQuotePublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaQuotePublisher(producer *pkgkafka.Producer, topic string) *KafkaQuotePublisher {
	return &KafkaQuotePublisher{producer: producer, topic: topic}
}

func (p *KafkaQuotePublisher) PublishBatch(ctx context.Context, events []models.QuoteEvent) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]pkgkafka.Message, 0, len(events))
	for _, ev := range events {
		msgs = append(msgs, pkgkafka.Message{
			Key:   []byte(ev.Symbol),
			Value: ev,
		})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaQuotePublisher) Close() error {
	return p.producer.Close()
}
