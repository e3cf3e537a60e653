// Package recalibrate runs the daily and weekly item recalibration passes
// in-process. It is used when no Temporal cluster is configured.
package recalibrate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/neurobridge-psychometrics/internal/platform/logger"
	"github.com/yungbote/neurobridge-psychometrics/internal/services"
)

var ErrJobExists = errors.New("recalibrate: job already registered")

// PassRunner is the part of CalibrationService the scheduler needs.
type PassRunner interface {
	RunPass(ctx context.Context, pass string) (services.RecalibrationReport, error)
}

type job struct {
	pass     string
	schedule Schedule
	nextRun  time.Time
	running  bool
	lastRep  *services.RecalibrationReport
}

type Scheduler struct {
	log    *logger.Logger
	runner PassRunner
	now    func() time.Time

	mu   sync.Mutex
	jobs map[string]*job
	wg   sync.WaitGroup
}

func NewScheduler(baseLog *logger.Logger, runner PassRunner) *Scheduler {
	return &Scheduler{
		log:    baseLog.With("job", "RecalibrationScheduler"),
		runner: runner,
		now:    func() time.Time { return time.Now().UTC() },
		jobs:   map[string]*job{},
	}
}

// Default registers the daily pass at 02:00 UTC and the weekly pass on
// Sunday at 03:00 UTC.
func (s *Scheduler) Default() *Scheduler {
	_ = s.Register(services.PassDaily, DailyAt(2, 0, time.UTC))
	_ = s.Register(services.PassWeekly, WeeklyAt(time.Sunday, 3, time.UTC))
	return s
}

func (s *Scheduler) Register(pass string, schedule Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[pass]; ok {
		return fmt.Errorf("%w: %s", ErrJobExists, pass)
	}
	j := &job{pass: pass, schedule: schedule, nextRun: schedule.Next(s.now())}
	s.jobs[pass] = j
	s.log.Info("recalibration pass scheduled", "pass", pass, "schedule", schedule.String(), "next_run", j.nextRun.Format(time.RFC3339))
	return nil
}

// Start ticks every interval and fires due passes until ctx is cancelled.
// A pass that is still running when it comes due again is skipped.
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Wait blocks until the ticker loop and all in-flight passes have returned.
func (s *Scheduler) Wait() { s.wg.Wait() }

func (s *Scheduler) tick(ctx context.Context) {
	now := s.now()
	s.mu.Lock()
	var due []*job
	for _, j := range s.jobs {
		if j.running || now.Before(j.nextRun) {
			continue
		}
		j.running = true
		j.nextRun = j.schedule.Next(now)
		due = append(due, j)
	}
	s.mu.Unlock()

	for _, j := range due {
		s.wg.Add(1)
		go func(j *job) {
			defer s.wg.Done()
			s.run(ctx, j)
		}(j)
	}
}

// RunPass executes pass synchronously, outside its schedule. It satisfies
// PassRunner so the scheduler can stand in for the calibration service.
func (s *Scheduler) RunPass(ctx context.Context, pass string) (services.RecalibrationReport, error) {
	s.mu.Lock()
	j, ok := s.jobs[pass]
	if ok && j.running {
		s.mu.Unlock()
		return services.RecalibrationReport{}, fmt.Errorf("recalibrate: %s pass already running", pass)
	}
	if ok {
		j.running = true
	}
	s.mu.Unlock()
	if !ok {
		return s.runner.RunPass(ctx, pass)
	}
	return s.run(ctx, j)
}

func (s *Scheduler) run(ctx context.Context, j *job) (services.RecalibrationReport, error) {
	defer func() {
		s.mu.Lock()
		j.running = false
		s.mu.Unlock()
	}()
	rep, err := s.runner.RunPass(ctx, j.pass)
	if err != nil {
		s.log.Warn("recalibration pass failed", "pass", j.pass, "error", err)
		return rep, err
	}
	s.mu.Lock()
	j.lastRep = &rep
	s.mu.Unlock()
	return rep, nil
}

// LastReport returns the most recent successful report for pass.
func (s *Scheduler) LastReport(pass string) (services.RecalibrationReport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[pass]
	if !ok || j.lastRep == nil {
		return services.RecalibrationReport{}, false
	}
	return *j.lastRep, true
}
