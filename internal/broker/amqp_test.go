package broker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/flowershop-admin/internal/model"
)

type stubChannel struct {
	published  []amqp.Publishing
	keys       []string
	publishErr error
	closed     bool
}

func (c *stubChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if c.publishErr != nil {
		return c.publishErr
	}
	c.keys = append(c.keys, key)
	c.published = append(c.published, msg)
	return nil
}

func (c *stubChannel) Close() error {
	c.closed = true
	return nil
}

func TestPublisher_Record(t *testing.T) {
	ch := &stubChannel{}
	p := &Publisher{channel: ch}

	e := model.AuditEntry{
		ID:        uuid.New(),
		Actor:     "florist",
		Action:    "order.status",
		Target:    "order:7",
		Details:   "new -> confirmed",
		CreatedAt: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Record(context.Background(), e))

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, AuditQueue, ch.keys[0])
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, e.ID.String(), msg.MessageId)
	assert.Equal(t, "order.status", msg.Type)

	var got model.AuditEntry
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, e, got)
}

func TestPublisher_RecordCanceledContext(t *testing.T) {
	ch := &stubChannel{}
	p := &Publisher{channel: ch}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Record(ctx, model.AuditEntry{ID: uuid.New()})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, ch.published)
}

func TestPublisher_RecordPublishError(t *testing.T) {
	p := &Publisher{channel: &stubChannel{publishErr: amqp.ErrClosed}}

	err := p.Record(context.Background(), model.AuditEntry{ID: uuid.New()})
	assert.True(t, errors.Is(err, amqp.ErrClosed))
}

func TestPublisher_Close(t *testing.T) {
	ch := &stubChannel{}
	p := &Publisher{channel: ch}

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}
