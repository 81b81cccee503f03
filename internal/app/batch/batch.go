// Package batch runs reconciliation jobs over a candidate set with bounded
// concurrency and one outcome per item.
package batch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"conciertapp/internal/logging"
	"conciertapp/internal/metrics"
)

// Status is the terminal state of one work item.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusNotFound Status = "not_found"
	StatusSkipped  Status = "skipped"
	StatusError    Status = "error"
)

// Outcome is implemented by per-item results so Run can count them.
type Outcome interface {
	Outcome() Status
}

// Options configure a run.
type Options struct {
	// Name labels metrics and logs, e.g. "populate-tags".
	Name string
	// Concurrency caps in-flight items. Values below 1 mean 1.
	Concurrency int
}

// Run applies fn to every item and returns the results in item order.
// A panic inside fn, or a context cancelled before an item starts, is
// turned into a result by fail. Run never returns early on item errors.
func Run[T any, R Outcome](ctx context.Context, opts Options, items []T, fn func(context.Context, T) R, fail func(T, error) R) []R {
	start := time.Now()
	metrics.JobRuns.WithLabelValues(opts.Name).Inc()
	defer func() {
		metrics.JobDuration.WithLabelValues(opts.Name).Observe(time.Since(start).Seconds())
	}()

	limit := opts.Concurrency
	if limit < 1 {
		limit = 1
	}

	results := make([]R, len(items))
	g := new(errgroup.Group)
	g.SetLimit(limit)

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			results[i] = fail(item, err)
			continue
		}
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					results[i] = fail(item, fmt.Errorf("panic: %v", r))
				}
			}()
			if err := ctx.Err(); err != nil {
				results[i] = fail(item, err)
				return nil
			}
			results[i] = fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()

	counts := make(map[Status]int, 4)
	for _, r := range results {
		status := r.Outcome()
		counts[status]++
		metrics.JobItems.WithLabelValues(opts.Name, string(status)).Inc()
	}

	logging.WithContext(ctx).Info().
		Str("job", opts.Name).
		Int("processed", len(results)).
		Int("success", counts[StatusSuccess]).
		Int("not_found", counts[StatusNotFound]).
		Int("skipped", counts[StatusSkipped]).
		Int("error", counts[StatusError]).
		Dur("elapsed", time.Since(start)).
		Msg("job finished")

	return results
}

// Count returns how many results ended in status.
func Count[R Outcome](results []R, status Status) int {
	n := 0
	for _, r := range results {
		if r.Outcome() == status {
			n++
		}
	}
	return n
}

// ErrorString renders err for a result entry, "" for nil.
func ErrorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
