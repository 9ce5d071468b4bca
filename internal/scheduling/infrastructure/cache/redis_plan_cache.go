// Package cache provides the Redis-backed read cache for computed
// plans. Entries are JSON payloads keyed per project and carry a TTL,
// so the cache heals itself even if an invalidation is lost.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fieldscale/takt/internal/scheduling/domain"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisPlanCache stores the latest plan per project.
type RedisPlanCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPlanCache creates a new cache with the given entry TTL.
func NewRedisPlanCache(client *redis.Client, ttl time.Duration) *RedisPlanCache {
	return &RedisPlanCache{client: client, ttl: ttl}
}

func latestKey(projectID uuid.UUID) string {
	return fmt.Sprintf("takt:plan:latest:%s", projectID)
}

// planPayload is the cache serialization envelope; it carries the fields
// RehydratePlan needs, which the plan's own JSON form does not expose.
type planPayload struct {
	ID         uuid.UUID              `json:"id"`
	ProjectID  uuid.UUID              `json:"project_id"`
	StartDate  time.Time              `json:"start_date"`
	EndDate    time.Time              `json:"end_date"`
	ComputedAt time.Time              `json:"computed_at"`
	Tasks      []domain.ScheduledTask `json:"tasks"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
	Version    int                    `json:"version"`
}

// GetLatest returns the cached plan for a project, or (nil, nil) on a
// miss.
func (c *RedisPlanCache) GetLatest(ctx context.Context, projectID uuid.UUID) (*domain.Plan, error) {
	data, err := c.client.Get(ctx, latestKey(projectID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var p planPayload
	if err := json.Unmarshal(data, &p); err != nil {
		// A corrupt entry is a miss; the store rewrites it.
		return nil, nil
	}

	return domain.RehydratePlan(
		p.ID, p.ProjectID,
		p.StartDate, p.EndDate, p.ComputedAt,
		p.Tasks,
		p.CreatedAt, p.UpdatedAt, p.Version,
	), nil
}

// SetLatest stores a plan as the latest for its project.
func (c *RedisPlanCache) SetLatest(ctx context.Context, plan *domain.Plan) error {
	data, err := json.Marshal(planPayload{
		ID:         plan.ID(),
		ProjectID:  plan.ProjectID(),
		StartDate:  plan.StartDate(),
		EndDate:    plan.EndDate(),
		ComputedAt: plan.ComputedAt(),
		Tasks:      plan.Tasks(),
		CreatedAt:  plan.CreatedAt(),
		UpdatedAt:  plan.UpdatedAt(),
		Version:    plan.Version(),
	})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, latestKey(plan.ProjectID()), data, c.ttl).Err()
}

// InvalidateProject drops the cached plan for a project.
func (c *RedisPlanCache) InvalidateProject(ctx context.Context, projectID uuid.UUID) error {
	return c.client.Del(ctx, latestKey(projectID)).Err()
}
