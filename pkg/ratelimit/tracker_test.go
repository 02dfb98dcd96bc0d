package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// unreachableRedis returns a client pointing at a closed port.
func unreachableRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestNewTracker_Defaults(t *testing.T) {
	tracker := NewTracker(nil, zerolog.Nop())

	if tracker.healthWindow != DefaultHealthWindow {
		t.Errorf("healthWindow = %v, want %v", tracker.healthWindow, DefaultHealthWindow)
	}
	if tracker.now == nil {
		t.Error("now should default to time.Now")
	}
}

func TestTracker_WithHealthWindow(t *testing.T) {
	tracker := NewTracker(nil, zerolog.Nop())
	custom := tracker.WithHealthWindow(time.Second)

	if custom.healthWindow != time.Second {
		t.Errorf("healthWindow = %v, want 1s", custom.healthWindow)
	}
	if tracker.healthWindow != DefaultHealthWindow {
		t.Error("WithHealthWindow must not modify the original tracker")
	}
}

func TestTracker_RedisUnavailable(t *testing.T) {
	tracker := NewTracker(unreachableRedis(t), zerolog.Nop())
	ctx := context.Background()

	if err := tracker.RecordExhausted(ctx, "courses"); err == nil {
		t.Error("RecordExhausted() expected error when redis is unreachable")
	}
	if _, err := tracker.GetState(ctx); err == nil {
		t.Error("GetState() expected error when redis is unreachable")
	}
	if err := tracker.Reset(ctx); err == nil {
		t.Error("Reset() expected error when redis is unreachable")
	}
}
