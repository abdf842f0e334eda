package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"order_video/internal/model"
	rediskey "order_video/pkg/redis"

	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StreamOutbox appends scan messages to a Redis stream; Relay drains it.
type StreamOutbox struct {
	rdb    *rd.Client
	stream string
}

func NewStreamOutbox(rdb *rd.Client, stream string) *StreamOutbox {
	if stream == "" {
		stream = rediskey.DefaultScanStream
	}
	return &StreamOutbox{rdb: rdb, stream: stream}
}

func (o *StreamOutbox) Publish(ctx context.Context, msg ScanMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	_, err := rediskey.AppendEvent(ctx, o.rdb, o.stream, msg.streamValues())
	return err
}

// Relay forwards stream entries to the next Publisher (Kafka, or SQLite when
// Kafka is off). An entry is acked only after the publish succeeds; failures
// stay pending and are retried.
type Relay struct {
	rdb  *rd.Client
	next Publisher
	log  *zap.Logger

	stream   string
	group    string
	consumer string
}

func NewRelay(rdb *rd.Client, next Publisher, stream, group, consumer string, log *zap.Logger) *Relay {
	return &Relay{
		rdb:      rdb,
		next:     next,
		log:      log.Named("scan_relay"),
		stream:   stream,
		group:    group,
		consumer: consumer,
	}
}

func (r *Relay) Run(ctx context.Context) {
	if err := r.ensureGroup(ctx); err != nil {
		r.log.Error("ensure consumer group", zap.Error(err))
		return
	}

	for {
		if ctx.Err() != nil {
			return
		}

		// this consumer's pending entries first, then new ones
		msgs, err := r.readGroup(ctx, "0", 0)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			r.log.Warn("read pending", zap.Error(err))
			sleep(ctx, 300*time.Millisecond)
			continue
		}
		if len(msgs) == 0 {
			msgs, err = r.readGroup(ctx, ">", 2*time.Second)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, context.Canceled) {
					return
				}
				r.log.Warn("read new", zap.Error(err))
				sleep(ctx, 300*time.Millisecond)
				continue
			}
		}

		for _, xm := range msgs {
			if err := r.processOne(ctx, xm); err != nil {
				r.log.Warn("relay entry", zap.String("id", xm.ID), zap.Error(err))
				sleep(ctx, 200*time.Millisecond)
				break
			}
		}
	}
}

func (r *Relay) ensureGroup(ctx context.Context) error {
	err := r.rdb.XGroupCreateMkStream(ctx, r.stream, r.group, "0").Err()
	if err == nil || strings.Contains(err.Error(), "BUSYGROUP") {
		return nil
	}
	return err
}

func (r *Relay) readGroup(ctx context.Context, streamID string, block time.Duration) ([]rd.XMessage, error) {
	streams, err := r.rdb.XReadGroup(ctx, &rd.XReadGroupArgs{
		Group:    r.group,
		Consumer: r.consumer,
		Streams:  []string{r.stream, streamID},
		Count:    16,
		Block:    block,
		NoAck:    false,
	}).Result()
	if err != nil {
		if errors.Is(err, rd.Nil) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]rd.XMessage, 0, 16)
	for _, s := range streams {
		out = append(out, s.Messages...)
	}
	return out, nil
}

func (r *Relay) processOne(ctx context.Context, xm rd.XMessage) error {
	msg, err := parseScanEvent(xm.Values)
	if err != nil {
		// malformed entries are acked and dropped so they cannot block the stream
		r.log.Warn("drop malformed entry", zap.String("id", xm.ID), zap.Error(err))
		return r.ackAndDelete(ctx, xm.ID)
	}

	pubCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.next.Publish(pubCtx, msg); err != nil {
		return err
	}
	return r.ackAndDelete(ctx, xm.ID)
}

func (r *Relay) ackAndDelete(ctx context.Context, id string) error {
	pipe := r.rdb.TxPipeline()
	pipe.XAck(ctx, r.stream, r.group, id)
	pipe.XDel(ctx, r.stream, id)
	_, err := pipe.Exec(ctx)
	return err
}

func parseScanEvent(values map[string]interface{}) (ScanMessage, error) {
	get := func(key string) (string, error) { return getStreamString(values, key) }

	eventID, err := get("event_id")
	if err != nil {
		return ScanMessage{}, err
	}
	orderID, err := get("order_id")
	if err != nil {
		return ScanMessage{}, err
	}
	phoneTag, err := get("phone_tag")
	if err != nil {
		return ScanMessage{}, err
	}
	outcome, err := get("outcome")
	if err != nil {
		return ScanMessage{}, err
	}
	scannedAtStr, err := get("scanned_at")
	if err != nil {
		return ScanMessage{}, err
	}
	scannedAt, err := time.Parse(time.RFC3339Nano, scannedAtStr)
	if err != nil {
		return ScanMessage{}, fmt.Errorf("invalid scanned_at %q", scannedAtStr)
	}
	// user agent is optional
	ua, _ := get("user_agent")

	msg := ScanMessage{
		EventID:   eventID,
		OrderID:   orderID,
		PhoneTag:  phoneTag,
		Outcome:   model.ScanOutcome(outcome),
		UserAgent: ua,
		ScannedAt: scannedAt,
	}
	if err := msg.Validate(); err != nil {
		return ScanMessage{}, err
	}
	return msg, nil
}

func getStreamString(values map[string]interface{}, key string) (string, error) {
	v, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing field %s", key)
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	default:
		return "", fmt.Errorf("unsupported field type %s: %T", key, v)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
