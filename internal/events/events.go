// Package events publishes calculation lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"go-chi-calculations/internal/calculation"
)

var (
	_ calculation.Publisher = (*KafkaPublisher)(nil)
	_ calculation.Publisher = NopPublisher{}
)

// Event is the JSON value written for every lifecycle change.
type Event struct {
	ID          uuid.UUID            `json:"event_id"`
	Type        string               `json:"event_type"`
	OccurredAt  time.Time            `json:"occurred_at"`
	Calculation calculation.Response `json:"calculation"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per event, keyed by owner id so each
// user's events stay ordered within a partition.
type KafkaPublisher struct {
	w   messageWriter
	now func() time.Time
}

// NewKafkaPublisher builds a publisher for a comma separated broker list.
// No connection is made until the first publish.
func NewKafkaPublisher(brokers, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(splitBrokers(brokers)...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
	}
	return newKafkaPublisher(w)
}

func newKafkaPublisher(w messageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w, now: time.Now}
}

func splitBrokers(brokers string) []string {
	parts := strings.Split(brokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"localhost:9092"}
	}
	return out
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, rec *calculation.Record) error {
	evt := Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: p.now().UTC(),
		Calculation: calculation.Response{
			ID:        rec.ID,
			UserID:    rec.OwnerID,
			Type:      rec.Operation,
			Inputs:    rec.Operands,
			Result:    rec.Result,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		},
	}

	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(rec.OwnerID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// NopPublisher drops every event. Used when Kafka is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, *calculation.Record) error { return nil }
