// Package scheduler запускает цикл проверки цен по расписанию.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	sl "github.com/S1l3ntium/yandex-price-bot/internal/lib/logger"
	"github.com/S1l3ntium/yandex-price-bot/internal/monitor"

	"github.com/robfig/cron/v3"
)

type Runner interface {
	RunCheckCycle(ctx context.Context) error
}

// Scheduler оборачивает robfig/cron и владеет единственной записью расписания.
type Scheduler struct {
	log    *slog.Logger
	cron   *cron.Cron
	runner Runner

	mu      sync.Mutex
	entryID cron.EntryID
	minutes int
}

func New(log *slog.Logger, runner Runner, minutes int) *Scheduler {
	return &Scheduler{
		log:     log,
		cron:    cron.New(),
		runner:  runner,
		minutes: minutes,
	}
}

// Start регистрирует задачу и запускает планировщик. Одна проверка выполняется
// сразу, чтобы не ждать первого тика после перезапуска.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.cron.AddFunc(spec(s.minutes), func() { s.runCycle(ctx) })
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	s.entryID = id

	s.cron.Start()
	s.log.Info("scheduler started", slog.Int("interval_minutes", s.minutes))

	go s.runCycle(ctx)

	return nil
}

// Reconfigure меняет интервал проверки без перезапуска процесса.
func (s *Scheduler) Reconfigure(ctx context.Context, minutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if minutes == s.minutes {
		return nil
	}

	id, err := s.cron.AddFunc(spec(minutes), func() { s.runCycle(ctx) })
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Remove(s.entryID)
	s.entryID = id
	s.minutes = minutes

	s.log.Info("scheduler reconfigured", slog.Int("interval_minutes", minutes))

	return nil
}

// Stop останавливает планировщик и дожидается завершения текущей задачи.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) runCycle(ctx context.Context) {
	if err := s.runner.RunCheckCycle(ctx); err != nil {
		if errors.Is(err, monitor.ErrCycleRunning) {
			s.log.Warn("previous check cycle still running, tick skipped")
			return
		}
		s.log.Error("check cycle failed", sl.Err(err))
	}
}

func spec(minutes int) string {
	return fmt.Sprintf("@every %dm", minutes)
}
