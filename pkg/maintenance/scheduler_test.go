package maintenance

import (
	"testing"
	"time"

	"tilehub/atlas/pkg/cache"
	"tilehub/atlas/pkg/ratelimit"
)

func TestNewSchedulerRejectsBadExpression(t *testing.T) {
	c := cache.New(8, 0)
	defer c.Close()
	l := ratelimit.NewClientLimiter(10, time.Minute)

	if _, err := NewScheduler("not a cron line", c, l); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
	if _, err := NewScheduler("*/10 * * * *", c, l); err != nil {
		t.Fatalf("valid expression rejected: %v", err)
	}
}

func TestSweepRemovesExpiredAndIdle(t *testing.T) {
	c := cache.New(8, 0)
	defer c.Close()
	l := ratelimit.NewClientLimiter(10, 10*time.Millisecond)

	c.Set("gone", []byte("x"), "text/plain", time.Millisecond)
	c.Set("kept", []byte("y"), "text/plain", time.Hour)
	l.Allow("one-off-client")

	time.Sleep(20 * time.Millisecond)

	s, err := NewScheduler("* * * * *", c, l)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	s.sweep()

	if _, ok := c.Get("gone"); ok {
		t.Error("expired entry survived the sweep")
	}
	if _, ok := c.Get("kept"); !ok {
		t.Error("live entry was swept")
	}
	if got := l.Clients(); got != 0 {
		t.Errorf("idle clients after sweep = %d, want 0", got)
	}
}
