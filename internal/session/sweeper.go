package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Sweeper runs the expired-session sweep on a fixed interval. Its lifecycle is
// owned by the composition root: construct, Start, and Stop explicitly.
type Sweeper struct {
	cron    *cron.Cron
	manager *Manager
	timeout time.Duration
}

// NewSweeper schedules CleanupExpiredSessions every interval (default 5
// minutes). The sweep does not start until Start is called.
func NewSweeper(manager *Manager, interval time.Duration) (*Sweeper, error) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	s := &Sweeper{
		cron:    cron.New(),
		manager: manager,
		timeout: interval,
	}

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), s.run)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule session sweep: %w", err)
	}
	return s, nil
}

// Start begins the periodic sweep.
func (s *Sweeper) Start() {
	s.cron.Start()
	slog.Info("session sweeper started", "interval", s.timeout)
}

// Stop halts scheduling and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
	slog.Info("session sweeper stopped")
}

func (s *Sweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.manager.CleanupExpiredSessions(ctx)
}
