package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	defaultPollInterval = 2 * time.Second
	defaultBatchSize    = 100
)

// Relay drains the outbox into a Kafka topic. At-least-once: events are
// marked published only after the produce acks, so a crash between the two
// replays them.
type Relay struct {
	store    Store
	client   *kgo.Client
	topic    string
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

// NewRelay connects a franz-go producer for the given brokers and topic.
func NewRelay(store Store, brokers []string, topic string, logger *slog.Logger) (*Relay, error) {
	if store == nil {
		return nil, fmt.Errorf("audit store is required")
	}
	if len(brokers) == 0 || topic == "" {
		return nil, fmt.Errorf("kafka brokers and topic are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Relay{
		store:    store,
		client:   client,
		topic:    topic,
		logger:   logger,
		interval: defaultPollInterval,
		batch:    defaultBatchSize,
	}, nil
}

// Run polls the outbox until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drainOnce(ctx); err != nil {
				r.logger.ErrorContext(ctx, "audit relay drain failed", "error", err)
			}
		}
	}
}

func (r *Relay) drainOnce(ctx context.Context) error {
	events, err := r.store.ListUnpublished(ctx, r.batch)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(events))
	ids := make([]string, 0, len(events))
	for _, event := range events {
		value, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", event.ID, err)
		}
		records = append(records, &kgo.Record{
			Key:   []byte(event.EntityID),
			Value: value,
		})
		ids = append(ids, event.ID)
	}

	if err := r.client.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit events: %w", err)
	}
	if err := r.store.MarkPublished(ctx, ids, time.Now()); err != nil {
		return err
	}

	r.logger.DebugContext(ctx, "audit events relayed", "count", len(ids), "topic", r.topic)
	return nil
}

// Close flushes and releases the Kafka client.
func (r *Relay) Close() {
	r.client.Close()
}
