package cron

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Job names are also the metric labels and the values accepted by the
// worker's -job flag.
const (
	JobCriticalStock       = "critical-stock-alert"
	JobNotificationCleanup = "notification-cleanup"
)

// Job is one unit of scheduled work run by the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry keeps the worker's jobs in run order. Names are unique.
type Registry struct {
	jobs  []Job
	index map[string]struct{}
}

// NewRegistry registers jobs in order and fails on a nil, unnamed or
// duplicate job.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{index: map[string]struct{}{}}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register appends job to the run order.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return fmt.Errorf("cron job is nil")
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return fmt.Errorf("cron job has no name")
	}
	if _, dup := r.index[name]; dup {
		return fmt.Errorf("cron job %q registered twice", name)
	}
	r.index[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns a copy of the run order.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}

// Names lists the registered job names sorted alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.index))
	for name := range r.index {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Select narrows the registry to the named jobs, keeping run order. No names
// selects everything.
func (r *Registry) Select(names ...string) (*Registry, error) {
	wanted := map[string]struct{}{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := r.index[name]; !ok {
			return nil, fmt.Errorf("unknown cron job %q (known: %s)", name, strings.Join(r.Names(), ", "))
		}
		wanted[name] = struct{}{}
	}
	if len(wanted) == 0 {
		return r, nil
	}
	selected := &Registry{index: map[string]struct{}{}}
	for _, job := range r.jobs {
		if _, ok := wanted[job.Name()]; ok {
			selected.index[job.Name()] = struct{}{}
			selected.jobs = append(selected.jobs, job)
		}
	}
	return selected, nil
}
