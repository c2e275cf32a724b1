package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/internal/checkout/models"
)

func TestLogPublisherWritesEvent(t *testing.T) {
	var buf bytes.Buffer
	pub := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))

	err := pub.PublishOrderPlaced(context.Background(), models.OrderPlaced{
		OrderID:   "00000000-0000-0000-0000-000000000042",
		Total:     "25.50",
		LineCount: 2,
		PlacedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "order.placed", line["event"])
	assert.Equal(t, "00000000-0000-0000-0000-000000000042", line["order_id"])
	assert.Equal(t, "25.50", line["total"])
	assert.EqualValues(t, 2, line["line_count"])
}
