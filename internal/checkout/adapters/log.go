package adapters

import (
	"context"
	"log/slog"

	"storefront/internal/checkout/models"
)

// LogPublisher writes events to the log. Used when no brokers are configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher returns a publisher that logs through logger.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogPublisher{logger: logger}
}

// PublishOrderPlaced logs evt at info level.
func (p *LogPublisher) PublishOrderPlaced(ctx context.Context, evt models.OrderPlaced) error {
	p.logger.InfoContext(ctx, "order event",
		"event", eventOrderPlaced,
		"order_id", evt.OrderID,
		"owner_id", evt.OwnerID,
		"total", evt.Total,
		"line_count", evt.LineCount,
		"placed_at", evt.PlacedAt,
	)
	return nil
}
