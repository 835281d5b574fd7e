package allocator

import (
	"context"
	"fmt"
	"time"

	redisx "github.com/Basantgrg924/QueueSystem/pkg/redisx"
)

// RedisSequence allocates per-(prefix, day) token sequences through an
// atomic Redis INCR, for deployments that want allocation serialized outside
// the database transaction. INCR is the serialization point: two concurrent
// allocations for the same (queue, day) always observe distinct values.
type RedisSequence struct {
	client *redisx.Client
	ttl    time.Duration
}

// NewRedisSequence creates a Redis-backed sequence allocator. Counter keys
// expire after ttl (default 48h, enough to outlive the calendar day they
// partition).
func NewRedisSequence(client *redisx.Client, ttl time.Duration) *RedisSequence {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &RedisSequence{client: client, ttl: ttl}
}

func sequenceKey(prefix, datePart string) string {
	return fmt.Sprintf("tokenseq:%s:%s", prefix, datePart)
}

// Next returns the next sequence number for the given queue name and
// admission instant, starting at 1 for the first token of the day.
func (s *RedisSequence) Next(ctx context.Context, queueName string, when time.Time) (int, error) {
	key := sequenceKey(Prefix(queueName), DatePartition(when))

	seq, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment token sequence %s: %w", key, err)
	}

	// First allocation of the day creates the key; give it an expiry so
	// stale day counters do not accumulate.
	if seq == 1 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return 0, fmt.Errorf("failed to set expiry on token sequence %s: %w", key, err)
		}
	}

	return int(seq), nil
}
