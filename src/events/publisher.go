package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

const (
	EventTradeCreated   = "trade.created"
	EventTradeSettled   = "trade.settled"
	EventBalanceUpdated = "balance.updated"
)

// Event carries enough fields for a UI to refresh without re-querying.
type Event struct {
	Type      string           `json:"type"`
	AccountID uint             `json:"account_id"`
	TradeID   uint             `json:"trade_id,omitempty"`
	TradeRef  string           `json:"trade_ref,omitempty"`
	Symbol    string           `json:"symbol,omitempty"`
	Currency  string           `json:"currency,omitempty"`
	Stake     *decimal.Decimal `json:"stake,omitempty"`
	Pnl       *decimal.Decimal `json:"pnl,omitempty"`
	Total     *decimal.Decimal `json:"total,omitempty"`
	Status    string           `json:"status,omitempty"`
	Result    string           `json:"result,omitempty"`
	At        time.Time        `json:"at"`
}

// Publisher is the outbound event sink. Publishing is best-effort and
// post-commit; persistence never depends on it.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// KafkaPublisher writes events to a single topic keyed by account id so one
// account's events stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(cfg Config) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
	}

	logger.WithFields(map[string]interface{}{
		"brokers": cfg.Brokers,
		"topic":   cfg.Topic,
	}).Info("Kafka event publisher initialized")

	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.AccountID), 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.WithFields(map[string]interface{}{
			"event_type": event.Type,
			"account_id": event.AccountID,
			"trade_id":   event.TradeID,
		}).WithError(err).Error("Failed to publish event")
		return err
	}

	logger.WithFields(map[string]interface{}{
		"event_type": event.Type,
		"account_id": event.AccountID,
		"trade_id":   event.TradeID,
	}).Debug("Event published")

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops all events. Used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, event Event) error { return nil }
func (NoopPublisher) Close() error                                   { return nil }

// NewFromEnv returns a kafka publisher when brokers are configured, a noop
// publisher otherwise.
func NewFromEnv() Publisher {
	cfg := GetConfig()
	if len(cfg.Brokers) == 0 {
		logger.Info("No kafka brokers configured, events disabled")
		return NoopPublisher{}
	}
	return NewKafkaPublisher(cfg)
}

// Recorder collects published events in memory for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Publish(ctx context.Context, event Event) error {
	if event.At.IsZero() {
		event.At = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByType returns the recorded events matching one event type.
func (r *Recorder) ByType(eventType string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
