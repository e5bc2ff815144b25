package refresh

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/twmb/franz-go/pkg/kgo"
)

// Handler applies a refresh event.
type Handler interface {
	Refresh(ctx context.Context, path, locale string) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, path, locale string) error

// Refresh calls f.
func (f HandlerFunc) Refresh(ctx context.Context, path, locale string) error {
	return f(ctx, path, locale)
}

// maxHandlerRetries is how often a failing refresh is retried before the
// event is dropped.
const maxHandlerRetries = 5

// Consumer applies refresh events from Kafka.
type Consumer struct {
	kafkaClient *kgo.Client
	handler     Handler
	logger      hclog.Logger
	stopCh      chan struct{}
	backoff     func() backoff.BackOff
}

func defaultBackOff() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxHandlerRetries)
}

// ConsumerConfig holds configuration for the consumer.
type ConsumerConfig struct {
	Brokers []string
	Topic   string

	// ConsumerGroup shares events between consumers. Servers with their
	// own in-memory cache each need every event, so an empty group gives
	// this consumer a group of its own.
	ConsumerGroup string

	// ConsumeFromStart replays the topic for new groups. Tests use it to
	// see events published before the consumer joined.
	ConsumeFromStart bool

	Handler Handler
	Logger  hclog.Logger
}

// NewConsumer creates a consumer.
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if cfg.Handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.ConsumerGroup == "" {
		cfg.ConsumerGroup = "wiki-refresh-" + uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	offset := kgo.NewOffset().AtEnd()
	if cfg.ConsumeFromStart {
		offset = kgo.NewOffset().AtStart()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.ConsumerGroup),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(offset),
		kgo.SessionTimeout(10*time.Second),
		kgo.RebalanceTimeout(30*time.Second),
		kgo.DisableAutoCommit(),
		kgo.FetchMaxWait(500*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	return &Consumer{
		kafkaClient: client,
		handler:     cfg.Handler,
		logger:      cfg.Logger.Named("refresh-consumer"),
		stopCh:      make(chan struct{}),
		backoff:     defaultBackOff,
	}, nil
}

// Start polls for events until ctx is done or Stop is called.
func (c *Consumer) Start(ctx context.Context) error {
	group, _ := c.kafkaClient.GroupMetadata()
	c.logger.Info("starting refresh consumer", "consumer_group", group)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("refresh consumer stopped by context")
			return ctx.Err()

		case <-c.stopCh:
			c.logger.Info("refresh consumer stopped")
			return nil

		default:
			fetches := c.kafkaClient.PollFetches(ctx)
			if fetches.IsClientClosed() {
				return nil
			}
			if errs := fetches.Errors(); len(errs) > 0 {
				for _, err := range errs {
					c.logger.Error("kafka fetch error", "error", err.Err)
				}
				continue
			}

			fetches.EachRecord(func(record *kgo.Record) {
				if err := c.processRecord(ctx, record); err != nil {
					if ctx.Err() != nil {
						return
					}
					// Retries are exhausted. Commit and move on.
					c.logger.Error("dropping refresh event",
						"partition", record.Partition,
						"offset", record.Offset,
						"error", err,
					)
				}
				if err := c.kafkaClient.CommitRecords(ctx, record); err != nil {
					c.logger.Warn("failed to commit kafka offset",
						"partition", record.Partition,
						"offset", record.Offset,
						"error", err,
					)
				}
			})
		}
	}
}

// Stop stops the polling loop and closes the client.
func (c *Consumer) Stop() {
	select {
	case <-c.stopCh:
		return
	default:
		close(c.stopCh)
		c.kafkaClient.Close()
	}
}

func (c *Consumer) processRecord(ctx context.Context, record *kgo.Record) error {
	return apply(ctx, c.handler, c.logger, backoff.WithContext(c.backoff(), ctx), record.Value)
}

// apply decodes one event and hands it to h, retrying failed refreshes
// with b. Malformed events are not retried.
func apply(ctx context.Context, h Handler, logger hclog.Logger, b backoff.BackOff, value []byte) error {
	var event Event
	if err := json.Unmarshal(value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	attempt := 0
	op := func() error {
		attempt++
		err := h.Refresh(ctx, event.Path, event.Locale)
		if err != nil {
			logger.Warn("refresh failed",
				"event_id", event.ID,
				"path", event.Path,
				"locale", event.Locale,
				"attempt", attempt,
				"error", err,
			)
		}
		return err
	}
	if err := backoff.Retry(op, b); err != nil {
		return fmt.Errorf("failed to refresh %s/%s after %d attempts: %w", event.Path, event.Locale, attempt, err)
	}
	logger.Info("refreshed page",
		"event_id", event.ID,
		"path", event.Path,
		"locale", event.Locale,
	)
	return nil
}
