package mqx

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/samber/lo"

	"fiber-ent-blog/internal/config"
)

// Sender sends an event body under a routing key such as "post.created".
type Sender interface {
	Publish(ctx context.Context, routingKey string, body []byte) error
}

type Publisher interface {
	Sender
	Close() error
}

type RabbitPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

// Open dials RabbitMQ when MQ_URL is set and returns nil otherwise.
func Open(cfg *config.Config) (*RabbitPublisher, func(), error) {
	if cfg.MQ.URL == "" {
		return nil, func() {}, nil
	}
	p, err := NewRabbitPublisher(cfg.MQ.URL, cfg.MQ.Exchange)
	if err != nil {
		return nil, func() {}, err
	}
	return p, func() { _ = p.Close() }, nil
}

func NewRabbitPublisher(url string, exchange string) (*RabbitPublisher, error) {
	exchange = lo.Ternary(exchange != "", exchange, "blog.events")
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, body []byte) error {
	return p.ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		Timestamp:    time.Now(),
		DeliveryMode: amqp.Persistent,
	})
}

// PublishJSON marshals v and publishes it.
func PublishJSON(ctx context.Context, p Sender, routingKey string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.Publish(ctx, routingKey, b)
}

func (p *RabbitPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// Recorder keeps published events in memory.
type Recorder struct {
	Events []Event
}

// Event is one recorded publication.
type Event struct {
	RoutingKey string
	Body       []byte
}

func (r *Recorder) Publish(_ context.Context, routingKey string, body []byte) error {
	r.Events = append(r.Events, Event{RoutingKey: routingKey, Body: append([]byte(nil), body...)})
	return nil
}

func (r *Recorder) Close() error { return nil }

// Keys returns the routing keys in publication order.
func (r *Recorder) Keys() []string {
	return lo.Map(r.Events, func(e Event, _ int) string { return e.RoutingKey })
}
