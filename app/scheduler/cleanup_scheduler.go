// Package scheduler runs periodic background jobs next to the HTTP server
package scheduler

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/amirphl/flashcall-auth/utils"
	"github.com/benbjohnson/clock"
	"github.com/redis/go-redis/v9"
)

// SessionSweeper deletes sessions that expired before cutoff
type SessionSweeper interface {
	Sweep(ctx context.Context, cutoff time.Time) (int64, error)
}

// SweepLocker grants the sweep to a single replica per tick
type SweepLocker interface {
	TryLock(ctx context.Context) (bool, error)
}

// RedisSweepLock is a SETNX lock that is never released explicitly; it lapses after ttl
type RedisSweepLock struct {
	rc    redis.UniversalClient
	key   string
	ttl   time.Duration
	owner string
}

func NewRedisSweepLock(rc redis.UniversalClient, prefix string, ttl time.Duration) *RedisSweepLock {
	if ttl <= 0 {
		ttl = utils.SweepLockTTL
	}
	owner, _ := os.Hostname()
	return &RedisSweepLock{
		rc:    rc,
		key:   prefix + utils.SweepLockKey,
		ttl:   ttl,
		owner: owner,
	}
}

func (l *RedisSweepLock) TryLock(ctx context.Context) (bool, error) {
	return l.rc.SetNX(ctx, l.key, l.owner, l.ttl).Result()
}

// CleanupScheduler removes expired verification sessions once they are older than the retention window
type CleanupScheduler struct {
	sweeper   SessionSweeper
	locker    SweepLocker
	clock     clock.Clock
	logger    *log.Logger
	interval  time.Duration
	retention time.Duration
}

// NewCleanupScheduler builds the sweeper loop; locker may be nil when only one replica runs
func NewCleanupScheduler(sweeper SessionSweeper, locker SweepLocker, clk clock.Clock, logger *log.Logger, interval time.Duration, retentionDays int) *CleanupScheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	if retentionDays <= 0 {
		retentionDays = utils.DefaultCleanupRetentionDays
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CleanupScheduler{
		sweeper:   sweeper,
		locker:    locker,
		clock:     clk,
		logger:    logger,
		interval:  interval,
		retention: utils.DaysToDuration(retentionDays),
	}
}

// Start launches the sweep loop in a background goroutine and returns a stop function
func (s *CleanupScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)
	ticker := s.clock.Ticker(s.interval)

	go func() {
		defer ticker.Stop()

		s.runOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *CleanupScheduler) runOnce(ctx context.Context) {
	if s.locker != nil {
		acquired, err := s.locker.TryLock(ctx)
		if err != nil {
			s.logger.Printf("cleanup: lock failed: %v", err)
			return
		}
		if !acquired {
			return
		}
	}

	cutoff := s.clock.Now().UTC().Add(-s.retention)
	deleted, err := s.sweeper.Sweep(ctx, cutoff)
	if err != nil {
		s.logger.Printf("cleanup: sweep failed: %v", err)
		return
	}
	if deleted > 0 {
		s.logger.Printf("cleanup: removed %d sessions expired before %s", deleted, cutoff.Format(time.RFC3339))
	}
}
