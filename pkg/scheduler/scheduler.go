// Copyright (c) 2017-2026 Digital Asset (Switzerland) GmbH and/or its affiliates. All rights reserved.
// SPDX-License-Identifier: Apache-2.0

// Package scheduler runs the steps of a transaction. A job starts once
// every job it depends on has succeeded, and a limited number run at a
// time.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"portage.dev/x/pmerge/pkg/resolution"
)

var (
	ErrDependencyFailed = errors.New("a dependency failed")
	ErrNotStarted       = errors.New("not started")
)

type Job struct {
	// ID is the position of the job in the submitted list, set by Submit
	ID        int
	Entry     *resolution.MergeEntry
	DependsOn []int
}

func (j *Job) String() string {
	return fmt.Sprintf("(%s %s)", j.Entry.Operation, j.Entry)
}

// Status is the outcome of one job. Jobs that never ran carry Skipped.
type Status struct {
	Job      *Job
	ExitCode int
	Err      error
	Skipped  bool
}

func (s Status) Succeeded() bool {
	return !s.Skipped && s.Err == nil && s.ExitCode == 0
}

type Runner interface {
	Run(ctx context.Context, job *Job) (exitCode int, err error)
}

type Scheduler struct {
	runner Runner
	jobs   int
	// KeepGoing starts jobs unrelated to a failure instead of stopping
	KeepGoing bool
}

func New(runner Runner, jobs int) *Scheduler {
	return &Scheduler{runner: runner, jobs: max(jobs, 1)}
}

// JobsFromTransaction makes one job per merge-list entry
func JobsFromTransaction(t *resolution.Transaction) []*Job {
	return lo.Map(t.MergeList, func(e *resolution.MergeEntry, i int) *Job {
		return &Job{ID: i, Entry: e, DependsOn: e.DependsOn}
	})
}

// Submit starts running jobs and returns the stream of their statuses. The
// stream is closed once every job has a status. Jobs left when ctx is
// cancelled, or that depend on a failed job, are reported as skipped.
func (s *Scheduler) Submit(ctx context.Context, jobs []*Job) <-chan Status {
	for i, job := range jobs {
		job.ID = i
	}
	out := make(chan Status, len(jobs))
	go func() {
		defer close(out)
		s.run(ctx, jobs, out)
	}()
	return out
}

func (s *Scheduler) run(ctx context.Context, jobs []*Job, out chan<- Status) {
	waiting := make([]int, len(jobs))
	dependents := make([][]int, len(jobs))
	reported := make([]bool, len(jobs))
	for i, job := range jobs {
		for _, d := range lo.Uniq(job.DependsOn) {
			if d < 0 || d >= len(jobs) || d == i {
				continue
			}
			waiting[i]++
			dependents[d] = append(dependents[d], i)
		}
	}

	var ready []int
	for i := range jobs {
		if waiting[i] == 0 {
			ready = append(ready, i)
		}
	}

	report := func(i int, st Status) {
		reported[i] = true
		out <- st
	}
	// skip reports every job reachable from i as skipped
	var skip func(i int)
	skip = func(i int) {
		for _, d := range dependents[i] {
			if reported[d] {
				continue
			}
			slog.Debug("skipping job", "job", jobs[d], "failed-dependency", jobs[i])
			report(d, Status{Job: jobs[d], Skipped: true, Err: ErrDependencyFailed})
			skip(d)
		}
	}

	done := make(chan Status, len(jobs))
	g := new(errgroup.Group)
	// running counts the jobs whose status has not been handled yet, it
	// bounds the jobs in flight
	running := 0
	stopped := false

	for {
		for len(ready) > 0 && running < s.jobs && !stopped && ctx.Err() == nil {
			job := jobs[ready[0]]
			ready = ready[1:]
			running++
			slog.Debug("starting job", "job", job)
			g.Go(func() error {
				code, err := s.runner.Run(ctx, job)
				done <- Status{Job: job, ExitCode: code, Err: err}
				return nil
			})
		}
		if running == 0 {
			break
		}

		st := <-done
		running--
		report(st.Job.ID, st)
		if !st.Succeeded() {
			slog.Warn("job failed", "job", st.Job, "exit-code", st.ExitCode, "error", st.Err)
			skip(st.Job.ID)
			stopped = stopped || !s.KeepGoing
			continue
		}
		for _, d := range dependents[st.Job.ID] {
			waiting[d]--
			if waiting[d] == 0 && !reported[d] {
				ready = append(ready, d)
			}
		}
	}
	_ = g.Wait()

	reason := ErrNotStarted
	if ctx.Err() != nil {
		reason = ctx.Err()
	}
	for i, job := range jobs {
		if !reported[i] {
			report(i, Status{Job: job, Skipped: true, Err: reason})
		}
	}
}

// Wait drains a status stream and returns the statuses in the order the
// jobs were submitted
func Wait(statuses <-chan Status, count int) []Status {
	res := make([]Status, count)
	for st := range statuses {
		res[st.Job.ID] = st
	}
	return res
}
