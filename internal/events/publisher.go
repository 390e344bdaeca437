// Package events publishes order lifecycle events to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arzan03/shopfront/internal/config"
	"github.com/arzan03/shopfront/internal/logger"
	"github.com/nats-io/nats.go"
)

const (
	SubjectOrderCreated       = "order.created"
	SubjectOrderStatusUpdated = "order.status.updated"

	connectWait   = 5 * time.Second
	maxReconnects = 5
	reconnectWait = 2 * time.Second
)

type Publisher interface {
	Publish(ctx context.Context, subject string, payload interface{}) error
	Close()
}

// OrderEvent is the payload of both order subjects.
type OrderEvent struct {
	OrderID        string    `json:"order_id"`
	UserID         string    `json:"user_id"`
	Status         string    `json:"status"`
	PreviousStatus string    `json:"previous_status,omitempty"`
	TotalAmount    float64   `json:"total_amount"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type natsPublisher struct {
	conn *nats.Conn
}

// NewNATSPublisher connects to cfg.URL. An empty URL yields a publisher that drops everything.
func NewNATSPublisher(cfg config.NATSConfig, log logger.Logger) (Publisher, error) {
	if cfg.URL == "" {
		log.Info("NATS URL not configured, order events are disabled")
		return NopPublisher{}, nil
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name("shopfront"),
		nats.Timeout(connectWait),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}
	return &natsPublisher{conn: conn}, nil
}

func (p *natsPublisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message to JSON for subject %s: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish message to NATS subject %s: %w", subject, err)
	}
	return nil
}

func (p *natsPublisher) Close() {
	_ = p.conn.Drain()
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error { return nil }
func (NopPublisher) Close()                                             {}
