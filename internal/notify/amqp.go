package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPDispatcher publishes events as JSON to a durable topic exchange,
// routing-keyed by event type.
type AMQPDispatcher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	logger   *log.Logger
}

func NewAMQP(url, exchange string, logger *log.Logger) (*AMQPDispatcher, error) {
	if logger == nil {
		logger = log.Default()
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPDispatcher{conn: conn, ch: ch, exchange: exchange, logger: logger}, nil
}

// Send publishes the event. Failures are logged with the full payload so a
// missed notification can be replayed by hand; they are never surfaced to
// the caller.
func (d *AMQPDispatcher) Send(ctx context.Context, ev Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		d.logger.Printf("WARN: notification encode failed type=%s recipient=%s err=%v", ev.Type, ev.Recipient, err)
		return
	}
	err = d.ch.PublishWithContext(ctx, d.exchange, string(ev.Type), false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
	if err != nil {
		d.logger.Printf("WARN: notification publish failed type=%s recipient=%s payload=%s err=%v", ev.Type, ev.Recipient, body, err)
	}
}

func (d *AMQPDispatcher) Close() error {
	if d.ch != nil {
		_ = d.ch.Close()
	}
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}
