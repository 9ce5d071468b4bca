package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fieldscale/takt/internal/shared/domain"
	"github.com/google/uuid"
)

// Message is one staged domain event. Command handlers append rows in
// the same transaction that mutates the aggregate; the relay drains
// them afterwards, so a committed plan.computed or project.imported
// event survives a broker outage at commit time.
type Message struct {
	ID               int64
	EventID          uuid.UUID
	AggregateType    string
	AggregateID      uuid.UUID
	EventType        string
	RoutingKey       string
	Payload          json.RawMessage
	Metadata         json.RawMessage
	CreatedAt        time.Time
	PublishedAt      *time.Time
	NextRetryAt      *time.Time
	RetryCount       int
	LastError        *string
	DeadLetteredAt   *time.Time
	DeadLetterReason *string
}

// NewMessage stages a domain event for publication. The event body and
// its tracing metadata are serialized separately so the relay can log
// correlation IDs without decoding payloads.
func NewMessage(event domain.DomainEvent) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}

	meta, err := json.Marshal(event.Metadata())
	if err != nil {
		return nil, fmt.Errorf("marshal event metadata: %w", err)
	}

	return &Message{
		EventID:       event.EventID(),
		AggregateType: event.AggregateType(),
		AggregateID:   event.AggregateID(),
		EventType:     event.RoutingKey(),
		RoutingKey:    event.RoutingKey(),
		Payload:       payload,
		Metadata:      meta,
		CreatedAt:     event.OccurredAt(),
	}, nil
}

// IsPublished reports whether the relay has delivered the message.
func (m *Message) IsPublished() bool {
	return m.PublishedAt != nil
}

// CanRetry reports whether the message has publish attempts left.
func (m *Message) CanRetry(maxRetries int) bool {
	return m.RetryCount < maxRetries
}
