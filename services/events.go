package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Event types published after a unit of work commits
const (
	EventOrderCreated       = "ordem.criada"
	EventOrderStatusChanged = "ordem.status_alterado"
	EventOrderCompleted     = "ordem.concluida"
	EventLedgerReversed     = "financeiro.estornado"
)

// Event is a domain notification for downstream consumers
type Event struct {
	ID         string         `json:"id"`
	Type       string         `json:"tipo"`
	Key        string         `json:"chave"`
	OccurredAt time.Time      `json:"ocorridoEm"`
	Payload    map[string]any `json:"dados"`
}

// NewEvent stamps an event with a fresh id
func NewEvent(eventType, key string, at time.Time, payload map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Key:        key,
		OccurredAt: at,
		Payload:    payload,
	}
}

// EventPublisher delivers events on a best-effort basis. Publish never
// fails the caller.
type EventPublisher interface {
	Publish(ctx context.Context, event Event)
}

// NopPublisher discards events
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}

// KafkaPublisher writes events to a topic, keyed by order id
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *log.Logger
}

func NewKafkaPublisher(brokers []string, topic string, logger *log.Logger) *KafkaPublisher {
	if logger == nil {
		logger = log.Default()
	}
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			Async:                  true,
			AllowAutoTopicCreation: true,
			Completion: func(messages []kafka.Message, err error) {
				if err != nil {
					logger.Printf("events: failed to deliver %d message(s): %v", len(messages), err)
				}
			},
		},
		logger: logger,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event Event) {
	value, err := json.Marshal(event)
	if err != nil {
		p.logger.Printf("events: failed to encode %s: %v", event.Type, err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(event.Key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "tipo", Value: []byte(event.Type)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Printf("events: failed to publish %s: %v", event.Type, err)
	}
}

// Close flushes pending messages
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
