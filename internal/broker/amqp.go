// Package broker публикует записи журнала аудита в RabbitMQ.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/streadway/amqp"

	"github.com/mmeshcher/flowershop-admin/internal/model"
)

// AuditQueue очередь, в которую публикуются записи журнала.
const AuditQueue = "admin_audit"

type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher держит соединение и канал RabbitMQ.
type Publisher struct {
	conn    *amqp.Connection
	channel channel
	mu      sync.Mutex
}

// NewPublisher подключается к RabbitMQ и объявляет очередь журнала.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(AuditQueue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare %s: %w", AuditQueue, err)
	}

	return &Publisher{conn: conn, channel: ch}, nil
}

// Record публикует запись журнала как JSON.
func (p *Publisher) Record(ctx context.Context, e model.AuditEntry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID.String(),
		Timestamp:    e.CreatedAt,
		Type:         e.Action,
		Body:         body,
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	// amqp.Channel не поддерживает параллельную публикацию
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.Publish("", AuditQueue, false, false, msg); err != nil {
		return fmt.Errorf("publish audit entry: %w", err)
	}
	return nil
}

// Close закрывает канал и соединение.
func (p *Publisher) Close() error {
	var errs []error
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close rabbitmq publisher: %w", err)
	}
	return nil
}
