package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"docufind/internal/platform/config"
)

// KafkaBroker carries jobs on one topic shared by a consumer group. Offsets are
// committed only for records whose delivery was acknowledged.
type KafkaBroker struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger

	mu       sync.Mutex
	buffered []*kgo.Record
}

// NewKafkaBroker connects a combined producer/consumer client.
func NewKafkaBroker(cfg config.KafkaConfig, logger *slog.Logger) (*KafkaBroker, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka: no seed brokers configured")
	}
	if logger == nil {
		logger = slog.Default()
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.ConsumerGroup),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.AutoCommitMarks(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &KafkaBroker{client: client, topic: cfg.Topic, logger: logger}, nil
}

// EnsureTopic creates the jobs topic if it does not exist yet.
func (b *KafkaBroker) EnsureTopic(ctx context.Context, partitions int32) error {
	if partitions <= 0 {
		partitions = 1
	}
	adm := kadm.NewClient(b.client)
	resp, err := adm.CreateTopics(ctx, partitions, -1, nil, b.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", b.topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

func (b *KafkaBroker) Enqueue(ctx context.Context, job Job) error {
	value, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	record := &kgo.Record{Key: []byte(job.Kind), Value: value}
	if err := b.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce job %s: %w", job.ID, err)
	}
	return nil
}

// Next hands out one record at a time from the last poll. Polling is serialized;
// workers process concurrently once a delivery is handed out.
func (b *KafkaBroker) Next(ctx context.Context) (Delivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for {
		for len(b.buffered) > 0 {
			record := b.buffered[0]
			b.buffered = b.buffered[1:]

			var job Job
			if err := json.Unmarshal(record.Value, &job); err != nil {
				b.logger.ErrorContext(ctx, "dropping undecodable job record",
					"partition", record.Partition,
					"offset", record.Offset,
					"error", err,
				)
				b.client.MarkCommitRecords(record)
				continue
			}
			return Delivery{Job: job, Ack: func() { b.client.MarkCommitRecords(record) }}, nil
		}

		fetches := b.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return Delivery{}, ErrClosed
		}
		if err := ctx.Err(); err != nil {
			return Delivery{}, err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			b.logger.WarnContext(ctx, "kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})
		fetches.EachRecord(func(r *kgo.Record) {
			b.buffered = append(b.buffered, r)
		})
	}
}

// Close commits acknowledged offsets and leaves the group.
func (b *KafkaBroker) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.client.CommitMarkedOffsets(ctx); err != nil {
		b.logger.Warn("failed to commit job offsets on close", "error", err)
	}
	b.client.Close()
}
