// Package scheduler
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/crestvault/crestvault/app/middleware"
	businessflow "github.com/crestvault/crestvault/business_flow"
	"github.com/crestvault/crestvault/config"
	"github.com/crestvault/crestvault/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

const lastRunRedisKey = "crestvault:profit:last_run"

// ProfitScheduler drives the daily profit sweep on a ticker. The sweep
// itself has no re-run protection; when SkipIfRanToday is enabled the
// scheduler remembers the last run day (in Redis when available, else in
// memory) and skips further runs on the same UTC day.
type ProfitScheduler struct {
	profitFlow businessflow.ProfitFlow
	cfg        config.SchedulerConfig
	redis      *redis.Client
	logger     *log.Logger

	lastRun time.Time
	logFile *os.File
}

func NewProfitScheduler(profitFlow businessflow.ProfitFlow, cfg config.SchedulerConfig, redisClient *redis.Client) *ProfitScheduler {
	if cfg.ProfitInterval <= 0 {
		cfg.ProfitInterval = 24 * time.Hour
	}

	s := &ProfitScheduler{
		profitFlow: profitFlow,
		cfg:        cfg,
		redis:      redisClient,
	}

	if err := s.initSchedulerLogger(); err != nil {
		s.logger = log.Default()
		s.logger.Printf("scheduler: failed to initialize file logger: %v", err)
	}

	return s
}

// initSchedulerLogger configures a logger that writes to both stdout and a persistent file under data/ (or /data)
func (s *ProfitScheduler) initSchedulerLogger() error {
	candidates := []string{
		filepath.Join("data"),
		"/data",
	}
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			continue
		}
		logPath := filepath.Join(dir, "scheduler.log")
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			continue
		}
		s.logFile = f
		mw := io.MultiWriter(os.Stdout, f)
		s.logger = log.New(mw, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
		return nil
	}
	return fmt.Errorf("could not create scheduler log file in any candidate directory")
}

// Start launches the scheduler loop in a background goroutine and returns a stop function
func (s *ProfitScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.cfg.ProfitInterval)
		defer ticker.Stop()

		s.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				if s.logFile != nil {
					s.logFile.Close()
				}
				return
			case <-ticker.C:
				s.runOnce(ctx)
			}
		}
	}()

	return cancel
}

func (s *ProfitScheduler) runOnce(ctx context.Context) {
	if s.cfg.SkipIfRanToday && s.ranToday(ctx) {
		s.logger.Printf("scheduler: profit sweep already ran today, skipping")
		return
	}

	result, err := s.profitFlow.RunDailySweep(ctx)
	if err != nil {
		s.logger.Printf("scheduler: profit sweep failed: %v", err)
		return
	}

	s.recordRun(ctx, result.RanAt)
	middleware.ProfitSweepRuns.With(prometheus.Labels{"trigger": "scheduler"}).Inc()
	s.logger.Printf("scheduler: profit sweep done: %d credited, %d skipped, %d failed, total %.2f",
		result.UsersProcessed, result.UsersSkipped, result.UsersFailed, result.TotalProfit)
}

// ranToday reports whether a sweep already ran on the current UTC day
func (s *ProfitScheduler) ranToday(ctx context.Context) bool {
	now := utils.UTCNow()
	if s.redis != nil {
		day, err := s.redis.Get(ctx, lastRunRedisKey).Result()
		if err == nil {
			return day == now.Format("2006-01-02")
		}
		if err != redis.Nil {
			s.logger.Printf("scheduler: redis last-run lookup failed: %v", err)
		}
	}
	return !s.lastRun.IsZero() && utils.SameUTCDay(s.lastRun, now)
}

func (s *ProfitScheduler) recordRun(ctx context.Context, ranAt time.Time) {
	s.lastRun = ranAt
	if s.redis != nil {
		if err := s.redis.Set(ctx, lastRunRedisKey, ranAt.Format("2006-01-02"), 48*time.Hour).Err(); err != nil {
			s.logger.Printf("scheduler: redis last-run store failed: %v", err)
		}
	}
}
