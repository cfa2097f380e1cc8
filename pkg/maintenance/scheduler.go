package maintenance

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"tilehub/atlas/pkg/cache"
	"tilehub/atlas/pkg/ratelimit"
)

// Scheduler runs periodic housekeeping: expired cache entries and idle
// rate-limiter clients are swept on a cron schedule. Both sweeps are
// best-effort; correctness never depends on them (expired entries are
// already treated as misses, the limiter prunes on every call).
type Scheduler struct {
	cron    *cron.Cron
	cache   *cache.ByteCache
	limiter *ratelimit.ClientLimiter
	logger  *slog.Logger
}

// NewScheduler creates a scheduler for the given standard cron expression.
func NewScheduler(schedule string, c *cache.ByteCache, l *ratelimit.ClientLimiter) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(),
		cache:   c,
		limiter: l,
		logger:  slog.Default().With("component", "maintenance"),
	}

	if _, err := s.cron.AddFunc(schedule, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid maintenance schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Start begins running scheduled sweeps in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("maintenance scheduler started")
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("maintenance scheduler stopped")
}

func (s *Scheduler) sweep() {
	expired := 0
	if s.cache != nil {
		expired = s.cache.SweepExpired()
	}
	clients := 0
	if s.limiter != nil {
		clients = s.limiter.Sweep()
	}
	s.logger.Debug("maintenance sweep completed",
		"expired_entries", expired,
		"idle_clients", clients,
	)
}
