package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// OfflineQueue is the per-recipient durable FIFO, one Redis stream per user.
// Streams give enqueue-order iteration and survive this process restarting;
// durability beyond what Redis itself guarantees is out of scope.
type OfflineQueue struct {
	rdb    *redis.Client
	maxLen int64
}

func NewOfflineQueue(rdb *redis.Client, maxLen int64) *OfflineQueue {
	return &OfflineQueue{rdb: rdb, maxLen: maxLen}
}

func (q *OfflineQueue) streamKey(recipient string) string {
	return "offline:" + recipient
}

func (q *OfflineQueue) Enqueue(ctx context.Context, recipient string, payload []byte) error {
	return q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.streamKey(recipient),
		MaxLen: q.maxLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{"data": payload},
	}).Err()
}

// Drain atomically reads and deletes everything queued for the recipient.
// XRANGE and DEL run inside one MULTI/EXEC so no message is both drained and
// left behind when an Enqueue races the drain.
func (q *OfflineQueue) Drain(ctx context.Context, recipient string) ([][]byte, error) {
	key := q.streamKey(recipient)
	var rangeCmd *redis.XMessageSliceCmd
	_, err := q.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		rangeCmd = pipe.XRange(ctx, key, "-", "+")
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil && err != redis.Nil {
		return nil, err
	}
	msgs := rangeCmd.Val()
	if len(msgs) == 0 {
		return nil, nil
	}
	out := make([][]byte, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values["data"].(string)
		if !ok {
			continue
		}
		out = append(out, []byte(raw))
	}
	return out, nil
}
