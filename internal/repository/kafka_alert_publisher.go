package repository

import (
	"context"
	"fmt"

	"PriceTrack/internal/domain/models"
	domrepo "PriceTrack/internal/domain/repository"
	pkgkafka "PriceTrack/pkg/kafka"
)

// KafkaAlertPublisher writes price drop alerts keyed by product id, so all
// alerts of a product land on one partition.
type KafkaAlertPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

var _ domrepo.AlertPublisher = (*KafkaAlertPublisher)(nil)

func NewKafkaAlertPublisher(p *pkgkafka.Producer, topic string) *KafkaAlertPublisher {
	return &KafkaAlertPublisher{producer: p, topic: topic}
}

func (k *KafkaAlertPublisher) PublishAlerts(ctx context.Context, alerts []models.PriceDropAlert) error {
	if len(alerts) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(alerts))
	for _, a := range alerts {
		msgs = append(msgs, pkgkafka.Message{Key: []byte(a.ProductID), Value: a})
	}
	if err := k.producer.PublishBatch(ctx, k.topic, msgs); err != nil {
		return fmt.Errorf("publish %d alerts: %w", len(alerts), err)
	}
	return nil
}

func (k *KafkaAlertPublisher) Close() error {
	return k.producer.Close()
}

// NopAlertPublisher drops alerts; used when Kafka is disabled.
type NopAlertPublisher struct{}

var _ domrepo.AlertPublisher = NopAlertPublisher{}

func (NopAlertPublisher) PublishAlerts(context.Context, []models.PriceDropAlert) error { return nil }

func (NopAlertPublisher) Close() error { return nil }
