//go:build integration

package adapters_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"storefront/internal/checkout/adapters"
	"storefront/internal/checkout/models"
	"storefront/internal/platform/config"
	"storefront/internal/platform/kafka"
	id "storefront/pkg/domain"
	"storefront/pkg/testutil/containers"
)

type KafkaPublisherSuite struct {
	suite.Suite
	brokers []string
}

func TestKafkaPublisherSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaPublisherSuite))
}

func (s *KafkaPublisherSuite) SetupSuite() {
	s.brokers = containers.GetManager().GetRedpanda(s.T()).Brokers
}

func (s *KafkaPublisherSuite) TestOrderPlacedIsDelivered() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "orders-" + id.NewOrderID().String()[:8]
	producer, err := kafka.NewProducer(ctx, config.KafkaConfig{Brokers: s.brokers, OrderTopic: topic})
	s.Require().NoError(err)
	defer producer.Close()
	s.Require().NoError(kafka.EnsureTopic(ctx, producer, topic, 1, 1))
	s.Require().NoError(kafka.EnsureTopic(ctx, producer, topic, 1, 1), "ensuring twice is a no-op")

	pub := adapters.NewKafkaPublisher(producer, topic, slog.New(slog.NewTextHandler(io.Discard, nil)))
	evt := models.OrderPlaced{
		OrderID:   id.NewOrderID().String(),
		OwnerID:   id.NewUserID().String(),
		Total:     "25.50",
		LineCount: 2,
		PlacedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(pub.PublishOrderPlaced(ctx, evt))
	s.Require().NoError(pub.Flush(ctx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().Len(records, 1)

	s.Equal(evt.OrderID, string(records[0].Key))
	var got models.OrderPlaced
	s.Require().NoError(json.Unmarshal(records[0].Value, &got))
	s.Equal(evt, got)
}
