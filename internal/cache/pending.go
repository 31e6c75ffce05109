// internal/cache/pending.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Velozity/CastGameCoordinator/internal/models"
	"github.com/redis/go-redis/v9"
)

// PendingStore holds proposed matches and their ready-up counters in Redis.
// Both records are short-lived: once the TTLs lapse, a late acknowledgement
// simply finds nothing and no-ops.
type PendingStore struct {
	rdb *redis.Client
}

func NewPendingStore(rdb *redis.Client) *PendingStore {
	return &PendingStore{rdb: rdb}
}

func countKey(key string) string {
	return key + ".count"
}

// PutPendingMatch writes the pending-match payload under key and a zeroed
// acknowledgement counter under <key>.count, each with its own TTL.
func (p *PendingStore) PutPendingMatch(ctx context.Context, key string, pm *models.PendingMatch, payloadTTL, counterTTL time.Duration) error {
	data, err := json.Marshal(pm)
	if err != nil {
		return fmt.Errorf("failed to marshal pending match: %w", err)
	}
	if err := p.rdb.Set(ctx, key, data, payloadTTL).Err(); err != nil {
		return fmt.Errorf("failed to store pending match %s: %w", key, err)
	}
	if err := p.rdb.Set(ctx, countKey(key), 0, counterTTL).Err(); err != nil {
		return fmt.Errorf("failed to init ready counter for %s: %w", key, err)
	}
	return nil
}

// GetPendingMatch loads the payload for key. Returns nil, nil when the key
// has expired or never existed.
func (p *PendingStore) GetPendingMatch(ctx context.Context, key string) (*models.PendingMatch, error) {
	data, err := p.rdb.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pending match %s: %w", key, err)
	}
	var pm models.PendingMatch
	if err := json.Unmarshal(data, &pm); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending match %s: %w", key, err)
	}
	return &pm, nil
}

// IncrReadyCount bumps the acknowledgement counter and returns the new value.
// Redis INCR is atomic, which is what prevents two simultaneous ready-ups
// from both observing the threshold crossing.
func (p *PendingStore) IncrReadyCount(ctx context.Context, key string) (int64, error) {
	n, err := p.rdb.Incr(ctx, countKey(key)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment ready counter for %s: %w", key, err)
	}
	return n, nil
}
