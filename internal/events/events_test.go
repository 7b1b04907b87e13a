package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisherKeysByCart(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaPublisher{writer: w}
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	err := p.Publish(context.Background(), CartMutated{
		CartID:         "tok",
		Action:         ActionUpdateItem,
		ItemKey:        "abc",
		Quantity:       3,
		LineCount:      1,
		AppliedCoupons: []string{},
		OccurredAt:     at,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "tok", string(w.msgs[0].Key))
	assert.Equal(t, at, w.msgs[0].Time)

	var got map[string]any
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "update_item", got["action"])
	assert.Equal(t, "abc", got["itemKey"])
	assert.NotContains(t, got, "couponCode")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestNoop(t *testing.T) {
	var p Publisher = Noop{}
	assert.NoError(t, p.Publish(context.Background(), CartMutated{}))
	assert.NoError(t, p.Close())
}
