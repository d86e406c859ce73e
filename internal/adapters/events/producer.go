package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher delivers one event envelope.
type Publisher interface {
	Publish(ctx context.Context, env Envelope) error
}

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// KafkaProducer lazily manages writers per topic.
type KafkaProducer struct {
	brokers []string
	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

// NewKafkaProducer creates a KafkaProducer.
func NewKafkaProducer(brokers []string) *KafkaProducer {
	return &KafkaProducer{
		brokers: brokers,
		writers: make(map[string]*kafka.Writer),
	}
}

// WriteMessages writes messages to the given topic, creating a writer if necessary.
func (p *KafkaProducer) WriteMessages(ctx context.Context, topic string, msgs ...kafka.Message) error {
	return p.writerForTopic(topic).WriteMessages(ctx, msgs...)
}

func (p *KafkaProducer) writerForTopic(topic string) *kafka.Writer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if writer, ok := p.writers[topic]; ok {
		return writer
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(p.brokers...),
		Topic:                  topic,
		RequiredAcks:           kafka.RequireAll,
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: true,
	}
	p.writers[topic] = writer
	return writer
}

// Close releases all writers.
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	for topic, writer := range p.writers {
		if err := writer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.writers, topic)
	}
	return firstErr
}

// TopicPublisher publishes every envelope to one topic with the event type
// in an "event_type" header.
type TopicPublisher struct {
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewTopicPublisher creates a publisher writing to topic through w.
// PRE: w is non-nil; topic is non-empty
func NewTopicPublisher(w messageWriter, topic string) *TopicPublisher {
	return &TopicPublisher{writer: w, topic: topic, now: time.Now}
}

// Publish writes env as a single Kafka message.
// POST: message is acknowledged by all in-sync replicas, or an error is returned
func (p *TopicPublisher) Publish(ctx context.Context, env Envelope) error {
	if err := env.Validate(); err != nil {
		return err
	}
	msg := kafka.Message{
		Key:     []byte(env.Key),
		Value:   env.Payload,
		Time:    p.now().UTC(),
		Headers: []kafka.Header{{Key: "event_type", Value: []byte(env.Type)}},
	}
	if err := p.writer.WriteMessages(ctx, p.topic, msg); err != nil {
		return fmt.Errorf("publish %s: %w", env.Type, err)
	}
	return nil
}
