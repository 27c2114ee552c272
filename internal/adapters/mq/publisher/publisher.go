// Package publisher emits lead scored events to downstream consumers.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/samwel-gachiri/digital-sales-agent/internal/domain/model"
	"github.com/samwel-gachiri/digital-sales-agent/pkg/logger"
	"github.com/samwel-gachiri/digital-sales-agent/pkg/metrics"
)

// ErrNoBrokers is returned by NewKafkaPublisher without brokers.
var ErrNoBrokers = errors.New("at least one kafka broker is required")

// Publisher publishes lead scored events.
type Publisher interface {
	Publish(ctx context.Context, e model.LeadScored) error
	Close() error
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.LeadScored) error { return nil }
func (NopPublisher) Close() error                                     { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events as JSON keyed by prospect id, so every event
// of a prospect lands on the same partition.
type KafkaPublisher struct {
	writer       messageWriter
	topic        string
	writeTimeout time.Duration
	log          logger.Logger
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, opts ...Option) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if topic == "" {
		return nil, errors.New("kafka topic must not be empty")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
	return newKafkaPublisher(w, topic, opts...), nil
}

func newKafkaPublisher(w messageWriter, topic string, opts ...Option) *KafkaPublisher {
	p := &KafkaPublisher{
		writer:       w,
		topic:        topic,
		writeTimeout: 5 * time.Second,
		log:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish writes one event.
func (p *KafkaPublisher) Publish(ctx context.Context, e model.LeadScored) error {
	value, err := json.Marshal(e)
	if err != nil {
		metrics.RecordEventPublished("error")
		return fmt.Errorf("encode lead scored %s: %w", e.ProspectID, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.writeTimeout)
	defer cancel()

	msg := kafka.Message{
		Key:   []byte(e.ProspectID),
		Value: value,
		Time:  e.ScoredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte("lead.scored")},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		metrics.RecordEventPublished("error")
		p.log.Warn(ctx, "publish lead scored failed",
			logger.String("topic", p.topic),
			logger.String("prospect_id", e.ProspectID),
			logger.Error(err),
		)
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	metrics.RecordEventPublished("ok")
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

var (
	_ Publisher = NopPublisher{}
	_ Publisher = (*KafkaPublisher)(nil)
)
