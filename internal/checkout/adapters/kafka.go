// Package adapters publishes checkout events to the outside world.
package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"storefront/internal/checkout/models"
)

const eventOrderPlaced = "order.placed"

// KafkaPublisher produces OrderPlaced events keyed by order id.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaPublisher publishes to topic through client.
func NewKafkaPublisher(client *kgo.Client, topic string, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{client: client, topic: topic, logger: logger}
}

// PublishOrderPlaced encodes evt and hands it to the producer without waiting
// for the broker. When the client buffer is full the record fails at once with
// kgo.ErrMaxBuffered instead of blocking. Delivery failures are logged by the
// produce callback.
func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, evt models.OrderPlaced) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal order event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(evt.OrderID),
		Value: body,
		Headers: []kgo.RecordHeader{
			{Key: "event", Value: []byte(eventOrderPlaced)},
			{Key: "content-type", Value: []byte("application/json")},
		},
	}
	p.client.TryProduce(ctx, record, func(r *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("failed to deliver order event",
				"order_id", evt.OrderID,
				"topic", r.Topic,
				"error", err,
			)
			return
		}
		p.logger.Debug("order event delivered",
			"order_id", evt.OrderID,
			"partition", r.Partition,
			"offset", r.Offset,
		)
	})
	return nil
}

// Flush waits for buffered events. Call before closing the client.
func (p *KafkaPublisher) Flush(ctx context.Context) error {
	return p.client.Flush(ctx)
}
