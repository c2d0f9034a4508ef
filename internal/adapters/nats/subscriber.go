package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/mileage/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own NATS connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

// ack decides how a delivered message is settled. Undecodable messages are
// terminated since redelivery cannot fix them; handler errors are retried.
func ack[T any](ctx context.Context, data []byte, handler func(ctx context.Context, v *T) error) (how string, err error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return "term", err
	}
	if err := handler(ctx, &v); err != nil {
		return "nak", err
	}
	return "ack", nil
}

func settle(msg *nats.Msg, how string) {
	switch how {
	case "ack":
		_ = msg.Ack()
	case "term":
		_ = msg.Term()
	default:
		_ = msg.Nak()
	}
}

// SubscribeMileageRequests consumes the request work queue.
func (s *Subscriber) SubscribeMileageRequests(ctx context.Context, handler func(ctx context.Context, req *domain.MileageRequest) error) error {
	sub, err := s.js.Subscribe(SubjectRequests+".>", func(msg *nats.Msg) {
		how, err := ack(ctx, msg.Data, handler)
		if err != nil {
			slog.WarnContext(ctx, "mileage request failed", "subject", msg.Subject, "settle", how, "error", err)
		}
		settle(msg, how)
	},
		nats.Durable("mileage-request-processor"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// SubscribeMileageComputed consumes computed results.
func (s *Subscriber) SubscribeMileageComputed(ctx context.Context, handler func(ctx context.Context, m *domain.RouteMileage) error) error {
	sub, err := s.js.Subscribe(SubjectComputed+".>", func(msg *nats.Msg) {
		how, err := ack(ctx, msg.Data, handler)
		if err != nil {
			slog.WarnContext(ctx, "mileage result handler failed", "subject", msg.Subject, "settle", how, "error", err)
		}
		settle(msg, how)
	},
		nats.Durable("mileage-result-processor"),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
