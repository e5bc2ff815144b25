package refresh

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/twmb/franz-go/pkg/kgo"
)

// producer is the part of *kgo.Client the publisher uses.
type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// Publisher publishes refresh events.
type Publisher struct {
	client producer
	topic  string
	logger hclog.Logger
}

// PublisherConfig holds configuration for the publisher.
type PublisherConfig struct {
	Brokers []string
	Topic   string
	Logger  hclog.Logger
}

// NewPublisher creates a publisher connected to the configured brokers.
func NewPublisher(cfg PublisherConfig) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RetryBackoffFn(func(tries int) time.Duration {
			backoff := time.Duration(tries) * 100 * time.Millisecond
			if backoff > 10*time.Second {
				backoff = 10 * time.Second
			}
			return backoff
		}),
		kgo.RequestRetries(10),
		kgo.ProducerLinger(0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}
	return newPublisher(client, cfg.Topic, cfg.Logger), nil
}

func newPublisher(client producer, topic string, logger hclog.Logger) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Publisher{
		client: client,
		topic:  topic,
		logger: logger.Named("refresh-publisher"),
	}
}

// Publish sends a refresh event for path in locale and waits for the
// brokers to acknowledge it.
func (p *Publisher) Publish(ctx context.Context, path, locale string) (*Event, error) {
	event := NewEvent(path, locale)
	if err := event.Validate(); err != nil {
		return nil, err
	}

	value, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	// Keyed by path so events for one page stay ordered.
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(path),
		Value: value,
		Headers: []kgo.RecordHeader{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "locale", Value: []byte(locale)},
		},
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return nil, fmt.Errorf("failed to publish to kafka: %w", err)
	}

	p.logger.Debug("published refresh event",
		"event_id", event.ID,
		"path", path,
		"locale", locale,
	)
	return event, nil
}

// Close closes the Kafka client.
func (p *Publisher) Close() {
	p.client.Close()
}
