// Package kafka streams audit events to a Kafka topic for downstream
// compliance consumers. The sink is append-only; reads go to the primary store.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "fintrust/pkg/platform/audit"
)

// ErrReadUnsupported is returned from ListBySubject; the topic is not queryable.
var ErrReadUnsupported = errors.New("kafka audit sink does not support reads")

// record is the wire form of an audit event.
type record struct {
	ID         string            `json:"id"`
	Category   string            `json:"category"`
	Timestamp  time.Time         `json:"timestamp"`
	SubjectID  string            `json:"subject_id"`
	Resource   string            `json:"resource,omitempty"`
	Action     string            `json:"action"`
	Purpose    string            `json:"purpose,omitempty"`
	Decision   string            `json:"decision,omitempty"`
	Reason     string            `json:"reason,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Sink produces audit events keyed by subject so one subject's events stay ordered.
type Sink struct {
	client *kgo.Client
	topic  string
}

// NewSink connects a producer to the given brokers.
func NewSink(brokers []string, topic string) (*Sink, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Sink{client: client, topic: topic}, nil
}

// EnsureTopic creates the audit topic if it is missing.
func (s *Sink) EnsureTopic(ctx context.Context, partitions int32, replicas int16) error {
	admin := kadm.NewClient(s.client)
	topics, err := admin.ListTopics(ctx, s.topic)
	if err != nil {
		return fmt.Errorf("list topics: %w", err)
	}
	if topics.Has(s.topic) {
		return nil
	}
	resp, err := admin.CreateTopic(ctx, partitions, replicas, nil, s.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", s.topic, err)
	}
	if resp.Err != nil {
		return fmt.Errorf("create topic %s: %w", s.topic, resp.Err)
	}
	return nil
}

// Append produces the event synchronously.
func (s *Sink) Append(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(record{
		ID:         event.ID,
		Category:   string(event.Category),
		Timestamp:  event.Timestamp,
		SubjectID:  event.SubjectID,
		Resource:   event.Resource,
		Action:     event.Action,
		Purpose:    event.Purpose,
		Decision:   event.Decision,
		Reason:     event.Reason,
		RequestID:  event.RequestID,
		Attributes: event.Attributes,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	rec := &kgo.Record{
		Key:   []byte(event.SubjectID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(event.Action)},
		},
	}
	if err := s.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

func (s *Sink) ListBySubject(context.Context, string) ([]audit.Event, error) {
	return nil, ErrReadUnsupported
}

// Decode parses a produced record value back into an event.
func Decode(value []byte) (audit.Event, error) {
	var r record
	if err := json.Unmarshal(value, &r); err != nil {
		return audit.Event{}, fmt.Errorf("decode audit record: %w", err)
	}
	return audit.Event{
		ID:         r.ID,
		Category:   audit.EventCategory(r.Category),
		Timestamp:  r.Timestamp,
		SubjectID:  r.SubjectID,
		Resource:   r.Resource,
		Action:     r.Action,
		Purpose:    r.Purpose,
		Decision:   r.Decision,
		Reason:     r.Reason,
		RequestID:  r.RequestID,
		Attributes: r.Attributes,
	}, nil
}

func (s *Sink) Close() {
	s.client.Close()
}
