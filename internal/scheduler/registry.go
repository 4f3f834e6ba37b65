// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrUnknownJob is returned for a job name that was never added.
var ErrUnknownJob = errors.New("job not found")

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name        string
	Description string
	Schedule    string
	LastRun     time.Time
	NextRun     time.Time
}

type registeredJob struct {
	job     Job
	entryID cron.EntryID
}

// Registry tracks the cron entry behind each job name.
type Registry struct {
	cron *cron.Cron
	mu   sync.RWMutex
	jobs map[string]*registeredJob
}

func newRegistry(c *cron.Cron) *Registry {
	return &Registry{cron: c, jobs: make(map[string]*registeredJob)}
}

func (r *Registry) add(job Job, fn func()) error {
	sched, err := parser.Parse(job.Schedule)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", job.Schedule, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.Name]; exists {
		return fmt.Errorf("job %q already registered", job.Name)
	}
	id := r.cron.Schedule(sched, cron.FuncJob(fn))
	r.jobs[job.Name] = &registeredJob{job: job, entryID: id}
	return nil
}

// replace swaps the schedule of an existing job. The old entry stays when
// the new expression does not parse.
func (r *Registry) replace(job Job, fn func()) error {
	sched, err := parser.Parse(job.Schedule)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", job.Schedule, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	rj, ok := r.jobs[job.Name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, job.Name)
	}
	r.cron.Remove(rj.entryID)
	rj.entryID = r.cron.Schedule(sched, cron.FuncJob(fn))
	rj.job = job
	return nil
}

func (r *Registry) job(name string) (Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rj, ok := r.jobs[name]
	if !ok {
		return Job{}, false
	}
	return rj.job, true
}

// List returns all jobs sorted by name.
func (r *Registry) List() []JobInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]JobInfo, 0, len(r.jobs))
	for _, rj := range r.jobs {
		e := r.cron.Entry(rj.entryID)
		out = append(out, JobInfo{
			Name:        rj.job.Name,
			Description: rj.job.Description,
			Schedule:    rj.job.Schedule,
			LastRun:     e.Prev,
			NextRun:     e.Next,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
