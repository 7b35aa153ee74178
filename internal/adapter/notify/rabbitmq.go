// Package notify publishes lead events to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/arturoeanton/go-property-search/internal/domain"
	"github.com/arturoeanton/go-property-search/internal/port"
)

// Lead event routing and versioning.
const (
	LeadRoutingKey   = "lead.captured"
	LeadEventType    = "LeadCapturedEvent"
	LeadEventVersion = "1.0.0"
	publishTimeout   = 5 * time.Second
)

// LeadEvent is the message body published for each captured lead.
type LeadEvent struct {
	LeadID     string    `json:"lead_id"`
	Name       string    `json:"name"`
	Contact    string    `json:"contact"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Interest   string    `json:"interest"`
	PropertyID string    `json:"property_id,omitempty"`
	Storage    string    `json:"storage"`
	CapturedAt time.Time `json:"captured_at"`
}

type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQNotifier implements port.LeadNotifier on a topic exchange.
type RabbitMQNotifier struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  publisher
	exchange string
}

// NewRabbitMQNotifier dials the broker and declares a durable topic exchange.
func NewRabbitMQNotifier(url, exchange string) (*RabbitMQNotifier, error) {
	if exchange == "" {
		return nil, fmt.Errorf("rabbitmq: exchange name is required")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq: declare exchange %q: %w", exchange, err)
	}
	slog.Info("rabbitmq notifier ready", "exchange", exchange)
	return &RabbitMQNotifier{conn: conn, channel: ch, exchange: exchange}, nil
}

// NotifyLead publishes a persistent LeadEvent.
func (n *RabbitMQNotifier) NotifyLead(ctx context.Context, lead *domain.Lead) error {
	msg, err := leadMessage(lead)
	if err != nil {
		return err
	}
	if traceID := port.TraceIDFromContext(ctx); traceID != "" {
		msg.Headers["x-trace-id"] = traceID
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.conn != nil && n.conn.IsClosed() {
		return fmt.Errorf("rabbitmq: connection is closed")
	}
	if err := n.channel.PublishWithContext(publishCtx, n.exchange, LeadRoutingKey, false, false, msg); err != nil {
		return fmt.Errorf("rabbitmq: publish lead %s: %w", lead.ID, err)
	}
	slog.Debug("lead event published", "lead_id", lead.ID, "exchange", n.exchange)
	return nil
}

// Close closes the channel and the connection.
func (n *RabbitMQNotifier) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.channel.Close()
	if n.conn != nil {
		if cerr := n.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func leadMessage(lead *domain.Lead) (amqp.Publishing, error) {
	body, err := json.Marshal(LeadEvent{
		LeadID:     lead.ID,
		Name:       lead.Name,
		Contact:    lead.Contact,
		Email:      lead.Email,
		Phone:      lead.Phone,
		Interest:   lead.Interest,
		PropertyID: lead.PropertyID,
		Storage:    lead.Source,
		CapturedAt: lead.CreatedAt,
	})
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal lead event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		MessageId:    lead.ID,
		Headers: amqp.Table{
			"event-type":    LeadEventType,
			"event-version": LeadEventVersion,
		},
	}, nil
}

// LogNotifier records lead events in the log when no broker is configured.
type LogNotifier struct{}

// NotifyLead logs the event.
func (LogNotifier) NotifyLead(_ context.Context, lead *domain.Lead) error {
	slog.Info("lead event", "lead_id", lead.ID, "interest", lead.Interest, "property_id", lead.PropertyID, "storage", lead.Source)
	return nil
}
