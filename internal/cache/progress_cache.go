// Package cache keeps a short-lived Redis snapshot of each assessment's
// completion state for the high-frequency progress poll, sparing Postgres a
// read per poll. The database remains the source of truth; every entry
// carries a TTL and the read path falls through on a miss.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/domain"
	"github.com/pulsecheck-labs/pulsecheck-backend/internal/assessments/progress"
)

const (
	progressKeyPrefix = "pc:progress:" // pc:progress:{assessment_id}
	progressTTL       = time.Hour
)

// Snapshot is the cached view served to progress polls.
type Snapshot struct {
	Status            domain.Status                      `json:"status"`
	Progress          int                                `json:"progress"`
	QuestionsAnswered int                                `json:"questions_answered"`
	TotalQuestions    int                                `json:"total_questions"`
	Domains           map[string]progress.DomainProgress `json:"domains"`
	CachedAt          time.Time                          `json:"cached_at"`
}

// ProgressCache is a Redis-backed snapshot store.
type ProgressCache struct {
	client *redis.Client
}

func NewProgressCache(client *redis.Client) *ProgressCache {
	return &ProgressCache{client: client}
}

// Set writes the snapshot with a TTL. Implements lifecycle.ProgressSink.
func (c *ProgressCache) Set(ctx context.Context, id uuid.UUID, status domain.Status, res progress.Result) error {
	snap := Snapshot{
		Status:            status,
		Progress:          res.Progress,
		QuestionsAnswered: res.QuestionsAnswered,
		TotalQuestions:    res.TotalQuestions,
		Domains:           res.Domains,
		CachedAt:          time.Now().UTC(),
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := c.client.Set(ctx, c.key(id), data, progressTTL).Err(); err != nil {
		return fmt.Errorf("cache snapshot: %w", err)
	}
	return nil
}

// Get returns the cached snapshot, or (nil, nil) on a miss.
func (c *ProgressCache) Get(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	data, err := c.client.Get(ctx, c.key(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Invalidate drops the snapshot, forcing the next poll to the database.
func (c *ProgressCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	return c.client.Del(ctx, c.key(id)).Err()
}

func (c *ProgressCache) key(id uuid.UUID) string {
	return progressKeyPrefix + id.String()
}
