package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"PriceTrack/internal/domain/models"
	pkgkafka "PriceTrack/pkg/kafka"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *recordingWriter) Close() error { return nil }

func TestKafkaAlertPublisherKeysByProduct(t *testing.T) {
	w := &recordingWriter{}
	pub := NewKafkaAlertPublisher(pkgkafka.NewProducerWithWriter(w, "", "gzip"), "price-alerts")

	err := pub.PublishAlerts(context.Background(), []models.PriceDropAlert{
		{TrackedID: "t1", UserID: "u1", ProductID: "p1", Price: 9, TargetPrice: 10},
		{TrackedID: "t2", UserID: "u2", ProductID: "p1", Price: 9, TargetPrice: 9.5},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "price-alerts", w.msgs[0].Topic)
	assert.Equal(t, []byte("p1"), w.msgs[0].Key)

	var got models.PriceDropAlert
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &got))
	assert.Equal(t, "u2", got.UserID)
}

func TestKafkaAlertPublisherEmptyAndError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	pub := NewKafkaAlertPublisher(pkgkafka.NewProducerWithWriter(w, "", "gzip"), "price-alerts")

	require.NoError(t, pub.PublishAlerts(context.Background(), nil))
	assert.Empty(t, w.msgs)

	err := pub.PublishAlerts(context.Background(), []models.PriceDropAlert{{ProductID: "p1"}})
	assert.ErrorContains(t, err, "broker down")
}
