package redis

import (
	"context"

	rd "github.com/redis/go-redis/v9"
)

// streamMaxLen trims the outbox so an absent relay cannot grow it forever.
const streamMaxLen = 100_000

// AppendEvent adds one event to the outbox stream and returns its stream id.
func AppendEvent(ctx context.Context, rdb *rd.Client, stream string, values map[string]any) (string, error) {
	return rdb.XAdd(ctx, &rd.XAddArgs{
		Stream: stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: values,
	}).Result()
}
