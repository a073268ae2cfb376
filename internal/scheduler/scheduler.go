// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic maintenance jobs of the service on a
// cron schedule: idle workspace eviction, orphaned upload reports and
// pruning of the event log and login protection state.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrUnknownJob is returned by Trigger for an unregistered job name.
var ErrUnknownJob = errors.New("unknown job")

// jobTimeout bounds a single job run.
const jobTimeout = 5 * time.Minute

// Job is a named periodic task.
type Job struct {
	Name        string
	Description string
	// Schedule is a standard five-field cron expression or a descriptor
	// such as "@every 10m".
	Schedule string
	Run      func(ctx context.Context) error
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Schedule    string    `json:"schedule"`
	LastRun     time.Time `json:"last_run,omitempty"`
	LastError   string    `json:"last_error,omitempty"`
	NextRun     time.Time `json:"next_run,omitempty"`
}

type registeredJob struct {
	job     Job
	entryID cron.EntryID
	running sync.Mutex
	lastRun time.Time
	lastErr error
}

// Scheduler runs jobs with robfig/cron.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu   sync.RWMutex
	jobs map[string]*registeredJob
}

// New creates a scheduler. Jobs are added with Add and run after Start.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger))),
		logger: logger,
		jobs:   make(map[string]*registeredJob),
	}
}

// Add registers job.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("job needs a name and a run function")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[job.Name]; dup {
		return fmt.Errorf("job %q already registered", job.Name)
	}

	rj := &registeredJob{job: job}
	id, err := s.cron.AddFunc(job.Schedule, func() {
		_ = s.run(context.Background(), rj)
	})
	if err != nil {
		return fmt.Errorf("scheduling %q: %w", job.Name, err)
	}
	rj.entryID = id
	s.jobs[job.Name] = rj
	s.logger.Debug("registered scheduled job", "name", job.Name, "schedule", job.Schedule)
	return nil
}

// run executes rj unless a previous run is still in progress.
func (s *Scheduler) run(ctx context.Context, rj *registeredJob) error {
	if !rj.running.TryLock() {
		s.logger.Debug("skipping job still running", "name", rj.job.Name)
		return nil
	}
	defer rj.running.Unlock()

	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	start := time.Now()
	err := rj.job.Run(ctx)

	s.mu.Lock()
	rj.lastRun = start
	rj.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled job failed", "category", "system", "name", rj.job.Name, "error", err)
	} else {
		s.logger.Debug("scheduled job finished", "name", rj.job.Name, "duration", time.Since(start))
	}
	return err
}

// Trigger runs the named job now and returns its error.
func (s *Scheduler) Trigger(ctx context.Context, name string) error {
	s.mu.RLock()
	rj, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.run(ctx, rj)
}

// List returns the registered jobs ordered by name.
func (s *Scheduler) List() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for _, rj := range s.jobs {
		info := JobInfo{
			Name:        rj.job.Name,
			Description: rj.job.Description,
			Schedule:    rj.job.Schedule,
			LastRun:     rj.lastRun,
			NextRun:     s.cron.Entry(rj.entryID).Next,
		}
		if rj.lastErr != nil {
			info.LastError = rj.lastErr.Error()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Start starts the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop stops the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}
