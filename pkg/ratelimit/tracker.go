package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for throttle tracking.
var (
	classroomRateLimitExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classroom_rate_limit_exhausted_total",
		Help: "Total number of throttled Classroom calls recorded by resource",
	}, []string{"resource"})

	classroomRateLimitLastExhausted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "classroom_rate_limit_last_exhausted_timestamp_seconds",
		Help: "Unix time of the latest throttled Classroom call",
	})
)

// Tracker stores throttle observations in Redis.
type Tracker struct {
	redis        *redis.Client
	logger       zerolog.Logger
	healthWindow time.Duration
	now          func() time.Time
}

// NewTracker creates a new throttle tracker.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:        redisClient,
		logger:       logger,
		healthWindow: DefaultHealthWindow,
		now:          time.Now,
	}
}

// WithHealthWindow returns a copy of the tracker using a different health window.
func (t *Tracker) WithHealthWindow(window time.Duration) *Tracker {
	clone := *t
	clone.healthWindow = window
	return &clone
}

// RecordExhausted stores one throttled call for resource.
func (t *Tracker) RecordExhausted(ctx context.Context, resource string) error {
	now := t.now()

	pipe := t.redis.TxPipeline()
	count := pipe.Incr(ctx, RedisKeyExhaustedCount)
	pipe.Set(ctx, RedisKeyLastExhausted, now.UnixMilli(), 0)
	pipe.Set(ctx, RedisKeyLastResource, resource, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store throttle state in redis: %w", err)
	}

	classroomRateLimitExhaustedTotal.WithLabelValues(resource).Inc()
	classroomRateLimitLastExhausted.Set(float64(now.Unix()))

	t.logger.Warn().
		Str("resource", resource).
		Int64("exhausted_count", count.Val()).
		Msg("Classroom quota exhausted")

	return nil
}

// GetState retrieves the current throttle state from Redis.
// Returns an empty healthy state if nothing was recorded yet.
func (t *Tracker) GetState(ctx context.Context) (*ThrottleState, error) {
	values, err := t.redis.MGet(ctx, RedisKeyExhaustedCount, RedisKeyLastExhausted, RedisKeyLastResource).Result()
	if err != nil {
		return nil, fmt.Errorf("get throttle state: %w", err)
	}

	state := &ThrottleState{}

	if raw, ok := values[0].(string); ok {
		if state.ExhaustedCount, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("parse exhausted count: %w", err)
		}
	}

	if raw, ok := values[1].(string); ok {
		millis, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse last exhausted: %w", err)
		}
		state.LastExhaustedAt = time.UnixMilli(millis)
	}

	if raw, ok := values[2].(string); ok {
		state.LastResource = raw
	}

	state.UpdateHealth(t.healthWindow)

	if state.ExhaustedCount == 0 {
		t.logger.Debug().Msg("No throttle state in Redis, returning healthy state")
	}

	return state, nil
}

// Reset clears all recorded throttle state.
func (t *Tracker) Reset(ctx context.Context) error {
	if err := t.redis.Del(ctx, RedisKeyExhaustedCount, RedisKeyLastExhausted, RedisKeyLastResource).Err(); err != nil {
		return fmt.Errorf("reset throttle state: %w", err)
	}
	return nil
}
