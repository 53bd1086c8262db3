package source

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/vsearch-labs/vsearch/pkg/kafka"
)

// Kafka drains a document ingest topic into the build pipeline. It is a
// bounded source: it stops after maxRecords messages, or when the context
// ends, whichever comes first.
type Kafka struct {
	consumer   *kafka.Consumer
	logger     *slog.Logger
	maxRecords int
	read       int
}

// FromKafka wraps a consumer in a bounded Reader. maxRecords 0 means read
// until the context is cancelled.
func FromKafka(consumer *kafka.Consumer, maxRecords int) *Kafka {
	return &Kafka{
		consumer:   consumer,
		logger:     slog.Default().With("component", "kafka-source"),
		maxRecords: maxRecords,
	}
}

// Next implements Reader. Messages that fail to decode are committed and
// skipped; the builder logs them as data-quality events when text
// normalization fails, this layer only guards the envelope.
func (k *Kafka) Next(ctx context.Context) (Record, error) {
	for {
		if k.maxRecords > 0 && k.read >= k.maxRecords {
			return Record{}, io.EOF
		}
		msg, err := k.consumer.Fetch(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return Record{}, io.EOF
			}
			return Record{}, err
		}
		rec, err := kafka.DecodeJSON[Record](msg.Value)
		if err != nil {
			k.logger.Warn("skipping undecodable ingest message",
				"offset", msg.Offset,
				"error", err,
			)
			_ = k.consumer.Commit(ctx, msg)
			continue
		}
		if err := k.consumer.Commit(ctx, msg); err != nil {
			return Record{}, err
		}
		k.read++
		return rec, nil
	}
}

// Close implements Reader.
func (k *Kafka) Close() error {
	return k.consumer.Close()
}
