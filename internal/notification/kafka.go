package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event types published to the notification topic.
const (
	EventVerificationCode = "account.verification_code"
	EventPasswordReset    = "account.password_reset"
	EventWelcome          = "account.welcome"
)

// defaultBatchTimeout keeps synchronous writes from waiting on kafka-go's 1s default.
const defaultBatchTimeout = 10 * time.Millisecond

// Event is the JSON payload handed to downstream mailers. Code and ResetToken are
// the plaintext secrets the mailer delivers; ExpiresAt tells consumers when to drop
// the event instead of sending a dead link.
type Event struct {
	Type       string     `json:"type"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	Code       string     `json:"code,omitempty"`
	ResetToken string     `json:"reset_token,omitempty"`
	OccurredAt time.Time  `json:"occurred_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// KafkaNotifierConfig configures a KafkaNotifier.
type KafkaNotifierConfig struct {
	Brokers      []string
	Topic        string
	CodeTTL      time.Duration
	ResetTTL     time.Duration
	BatchTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes account notifications as events instead of sending mail
// directly. Messages are keyed by email so one recipient's events stay ordered.
type KafkaNotifier struct {
	writer   messageWriter
	topic    string
	codeTTL  time.Duration
	resetTTL time.Duration
	now      func() time.Time
}

// NewKafkaNotifier creates a notifier writing to cfg.Topic. Writes wait for all
// in-sync replicas.
func NewKafkaNotifier(cfg KafkaNotifierConfig) (*KafkaNotifier, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka notifier requires at least one broker")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka notifier requires a topic")
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			RequiredAcks: kafka.RequireAll,
			Balancer:     &kafka.Hash{},
			BatchTimeout: cfg.BatchTimeout,
		},
		topic:    cfg.Topic,
		codeTTL:  cfg.CodeTTL,
		resetTTL: cfg.ResetTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// SendVerificationCode publishes a verification code event.
func (n *KafkaNotifier) SendVerificationCode(ctx context.Context, email, name, code string) error {
	return n.publish(ctx, Event{Type: EventVerificationCode, Email: email, Name: name, Code: code}, n.codeTTL)
}

// SendPasswordReset publishes a password reset event.
func (n *KafkaNotifier) SendPasswordReset(ctx context.Context, email, name, token string) error {
	return n.publish(ctx, Event{Type: EventPasswordReset, Email: email, Name: name, ResetToken: token}, n.resetTTL)
}

// SendWelcome publishes a welcome event.
func (n *KafkaNotifier) SendWelcome(ctx context.Context, email, name string) error {
	return n.publish(ctx, Event{Type: EventWelcome, Email: email, Name: name}, 0)
}

func (n *KafkaNotifier) publish(ctx context.Context, event Event, ttl time.Duration) error {
	event.OccurredAt = n.now()
	if ttl > 0 {
		expires := event.OccurredAt.Add(ttl)
		event.ExpiresAt = &expires
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}
	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(event.Email),
		Value:   payload,
		Time:    event.OccurredAt,
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(event.Type)}},
	})
	if err != nil {
		return fmt.Errorf("publish %s event to %s: %w", event.Type, n.topic, err)
	}
	return nil
}

// Close flushes pending writes and closes the writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
