package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrPublisherClosed — публикация после Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// AMQPPublisher публикует события в durable-очередь RabbitMQ через
// default exchange (routing key = имя очереди). Сообщения persistent.
//
// Разорванное соединение (рестарт брокера, сетевой сбой) восстанавливается
// лениво: при следующей публикации.
type AMQPPublisher struct {
	mu     sync.Mutex
	url    string
	queue  string
	conn   *amqp.Connection
	ch     *amqp.Channel
	closed bool
}

var _ Publisher = (*AMQPPublisher)(nil)

// NewAMQP подключается к брокеру и объявляет очередь (идемпотентно).
func NewAMQP(url, queue string) (*AMQPPublisher, error) {
	const op = "events.NewAMQP"

	p := &AMQPPublisher{url: url, queue: queue}
	if err := p.connect(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// Publish сериализует событие в JSON и отправляет его в очередь.
// Если канал закрыт, выполняется одно переподключение и повтор.
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	const op = "events.AMQPPublisher.Publish"

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(e.Type),
		MessageId:    e.BookingID.String(),
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureChannel(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg)
	if errors.Is(err, amqp.ErrClosed) {
		p.drop()
		if err := p.connect(); err != nil {
			return fmt.Errorf("%s: reconnect: %w", op, err)
		}
		err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Close закрывает канал и соединение. Дальнейшие публикации возвращают
// ErrPublisherClosed.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.conn == nil {
		return nil
	}

	var chErr error
	if p.ch != nil && !p.ch.IsClosed() {
		chErr = p.ch.Close()
	}
	if !p.conn.IsClosed() {
		if err := p.conn.Close(); err != nil {
			return err
		}
	}

	return chErr
}

// ensureChannel проверяет живость соединения и канала и при необходимости
// переподключается. Вызывается под p.mu.
func (p *AMQPPublisher) ensureChannel() error {
	if p.closed {
		return ErrPublisherClosed
	}

	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed() {
		return nil
	}

	p.drop()
	if err := p.connect(); err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}

	return nil
}

// connect открывает соединение, канал и объявляет очередь.
func (p *AMQPPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("channel: %w", err)
	}

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("queue declare: %w", err)
	}

	p.conn, p.ch = conn, ch
	return nil
}

// drop освобождает полуживые соединение и канал.
func (p *AMQPPublisher) drop() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
