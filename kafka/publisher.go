package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	conflictmodel "github.com/harborview/crmsync/conflict/model"
	"github.com/harborview/crmsync/e"
	recordmodel "github.com/harborview/crmsync/record/model"
	"github.com/segmentio/kafka-go"
)

const (
	// EventsTopic is the topic sync lifecycle events are published to
	EventsTopic = "crmsync.events"

	// EventEntryOutcome is emitted for every settled queue entry
	EventEntryOutcome = "entry.outcome"
	// EventConflictDetected is emitted when a divergence is stored
	EventConflictDetected = "conflict.detected"
	// EventConflictResolved is emitted when a conflict is resolved
	EventConflictResolved = "conflict.resolved"

	publishTimeout = 10 * time.Second

	ECodeKF0201 = e.CodeKF02 + "01"
	ECodeKF0202 = e.CodeKF02 + "02"
)

// Event is the JSON payload written to the events topic
type Event struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	EntityType     string    `json:"entity_type"`
	EntityID       int       `json:"entity_id"`
	Operation      string    `json:"operation,omitempty"`
	Outcome        string    `json:"outcome,omitempty"`
	Error          string    `json:"error,omitempty"`
	ConflictID     int       `json:"conflict_id,omitempty"`
	ConflictFields []string  `json:"conflict_fields,omitempty"`
	Resolution     string    `json:"resolution,omitempty"`
	OccurredOn     time.Time `json:"occurred_on"`
}

// Publisher writes sync lifecycle events to the events topic. Messages are
// keyed by entity so per record ordering is preserved across partitions.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher returns a publisher writing to the passed topic over the
// connection
func NewPublisher(conn *Connection, topic string) (p *Publisher) {
	if topic == "" {
		topic = EventsTopic
	}

	return &Publisher{
		writer: conn.NewWriter(topic),
	}
}

// PublishOutcome emits an entry.outcome event for a settled queue entry
func (p *Publisher) PublishOutcome(entityType recordmodel.EntityType,
	entityID int, operation, outcome, errMsg string) (err error) {

	return p.publish(&Event{
		Type:       EventEntryOutcome,
		EntityType: string(entityType),
		EntityID:   entityID,
		Operation:  operation,
		Outcome:    outcome,
		Error:      errMsg,
	})
}

// PublishConflict emits a conflict lifecycle event
func (p *Publisher) PublishConflict(c *conflictmodel.Conflict,
	event string) (err error) {

	ev := &Event{
		Type:           event,
		EntityType:     string(c.EntityType),
		EntityID:       c.EntityID,
		ConflictID:     c.ID,
		ConflictFields: c.ConflictFields,
	}
	if c.ResolutionType != nil {
		ev.Resolution = string(*c.ResolutionType)
	}

	return p.publish(ev)
}

// publish assigns the event id/timestamp and writes the message
func (p *Publisher) publish(ev *Event) (err error) {
	ev.ID = uuid.New().String()
	ev.OccurredOn = time.Now().UTC()

	value, err := json.Marshal(ev)
	if err != nil {
		return e.W(err, ECodeKF0201)
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("%s:%d", ev.EntityType, ev.EntityID)),
		Value: value,
	}); err != nil {
		return e.W(err, ECodeKF0202)
	}

	return nil
}

// Close flushes and closes the underlying writer
func (p *Publisher) Close() (err error) {
	if err := p.writer.Close(); err != nil {
		return e.W(err, ECodeKF0202)
	}

	return nil
}
