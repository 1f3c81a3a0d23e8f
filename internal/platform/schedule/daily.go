// Package schedule runs a job once a day at a fixed wall-clock time.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	clockport "github.com/garage-labs/garage-api/internal/ports/out/clock"
)

// Daily is a time of day in a fixed location.
type Daily struct {
	Hour     int
	Minute   int
	Location *time.Location
}

// ParseDaily parses "HH:MM" in the named IANA zone.
func ParseDaily(at, zone string) (Daily, error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return Daily{}, fmt.Errorf("invalid time of day %q (want HH:MM): %w", at, err)
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return Daily{}, fmt.Errorf("invalid time zone %q: %w", zone, err)
	}
	return Daily{Hour: t.Hour(), Minute: t.Minute(), Location: loc}, nil
}

// Next returns the first occurrence strictly after t.
func (d Daily) Next(t time.Time) time.Time {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	y, m, day := local.Date()
	next := time.Date(y, m, day, d.Hour, d.Minute, 0, 0, loc)
	if !next.After(t) {
		// time.Date normalizes day+1 across month ends and DST shifts.
		next = time.Date(y, m, day+1, d.Hour, d.Minute, 0, 0, loc)
	}
	return next
}

func (d Daily) String() string {
	loc := "UTC"
	if d.Location != nil {
		loc = d.Location.String()
	}
	return fmt.Sprintf("%02d:%02d %s", d.Hour, d.Minute, loc)
}

// Runner fires job at every occurrence of its Daily. Occurrences that pass
// while the process is down or while a previous run is still going are
// skipped rather than replayed.
type Runner struct {
	daily  Daily
	clock  clockport.AlarmClock
	job    func(ctx context.Context)
	logger *slog.Logger

	wg sync.WaitGroup
}

func NewRunner(daily Daily, clk clockport.AlarmClock, job func(ctx context.Context), logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{daily: daily, clock: clk, job: job, logger: logger}
}

// Start launches the trigger loop in the background. It stops when ctx is
// cancelled; Wait blocks until it has.
func (r *Runner) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.Run(ctx)
	}()
}

// Wait blocks until a loop started with Start has returned.
func (r *Runner) Wait() { r.wg.Wait() }

// Run blocks, firing the job at each occurrence, until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	for {
		now := r.clock.Now()
		next := r.daily.Next(now)
		r.logger.Debug("next scheduled run", "at", next)

		select {
		case <-ctx.Done():
			return
		case <-r.clock.After(next.Sub(now)):
		}
		r.runOnce(ctx)
	}
}

// runOnce shields the loop from panics in the job.
func (r *Runner) runOnce(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("scheduled job panicked", "panic", p)
		}
	}()
	r.job(ctx)
}
