package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"order_video/internal/model"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Recorder persists scan events; store.ScanEventStore satisfies it.
type Recorder interface {
	Record(ctx context.Context, ev model.ScanEvent) error
}

// Consumer reads scan messages from Kafka and records them.
type Consumer struct {
	r   *kafka.Reader
	rec Recorder
	log *zap.Logger
}

func NewConsumer(brokers []string, topic, groupID string, rec Recorder, log *zap.Logger) *Consumer {
	return &Consumer{
		r: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1e3,
			MaxBytes: 1e6,
		}),
		rec: rec,
		log: log.Named("scan_consumer"),
	}
}

func (c *Consumer) Close() error { return c.r.Close() }

// Run blocks until ctx is cancelled or the reader fails.
func (c *Consumer) Run(ctx context.Context) {
	for {
		m, err := c.r.ReadMessage(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				c.log.Error("read message", zap.Error(err))
			}
			return
		}
		if err := c.handle(ctx, m.Value); err != nil {
			c.log.Warn("drop scan message",
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
				zap.Error(err))
		}
	}
}

// handle stores one message. Duplicates are absorbed by the store's unique event id.
func (c *Consumer) handle(ctx context.Context, value []byte) error {
	var msg ScanMessage
	if err := json.Unmarshal(value, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return err
	}
	return c.rec.Record(ctx, msg.Event())
}

// DirectSink records scans synchronously, for deployments without Kafka.
type DirectSink struct {
	rec Recorder
}

func NewDirectSink(rec Recorder) *DirectSink { return &DirectSink{rec: rec} }

func (d *DirectSink) Publish(ctx context.Context, msg ScanMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	return d.rec.Record(ctx, msg.Event())
}
