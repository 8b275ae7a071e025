package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beam-cloud/metacatalog/pkg/common"
	"github.com/beam-cloud/metacatalog/pkg/types"
	"github.com/rs/zerolog/log"
)

// Unlimited drains the queue until it is empty.
const Unlimited = -1

// DefaultDrainInterval is used by Run when no interval is configured.
const DefaultDrainInterval = 30 * time.Second

// DrainReport is the outcome of one drain. Processed counts every executed job,
// failed ones included.
type DrainReport struct {
	RunID     string  `json:"run_id" yaml:"run_id"`
	Processed int     `json:"processed" yaml:"processed"`
	Failed    int     `json:"failed" yaml:"failed"`
	Remaining int64   `json:"remaining" yaml:"remaining"`
	Elapsed   float64 `json:"elapsed" yaml:"elapsed"`
}

// Runner executes queued indexing jobs against the selected catalogs.
type Runner struct {
	queue    Queue
	resolver Resolver
	source   CatalogSource
	selector Selector
	opts     options
}

func NewRunner(queue Queue, resolver Resolver, source CatalogSource, selector Selector, opts ...Option) *Runner {
	if selector == "" {
		selector = SelectAll
	}
	return &Runner{
		queue:    queue,
		resolver: resolver,
		source:   source,
		selector: selector,
		opts:     buildOptions(opts),
	}
}

// Drain executes up to limit jobs, or every pending job when limit is negative.
// A failing job is logged and counted; it never stops the drain.
func (r *Runner) Drain(ctx context.Context, limit int) (*DrainReport, error) {
	if limit == 0 {
		return nil, types.ErrInvalidLimit
	}
	if r.queue == nil {
		return nil, types.Unavailable("indexing queue")
	}
	if r.resolver == nil {
		return nil, types.Unavailable("object resolver")
	}

	catalogs, err := selectCatalogs(ctx, r.source, r.selector)
	if err != nil {
		return nil, err
	}

	if locker, ok := r.queue.(QueueLocker); ok {
		release, err := locker.LockDrain(ctx)
		if err != nil {
			return nil, fmt.Errorf("lock queue: %w", err)
		}
		defer release()
	}

	start := time.Now()
	report := &DrainReport{
		RunID:     common.GenerateRunID("drain"),
		Remaining: -1,
	}

	for limit < 0 || report.Processed < limit {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		job, err := r.queue.Pop(ctx)
		if err != nil {
			return report, fmt.Errorf("pop job: %w", err)
		}
		if job == nil {
			break
		}

		report.Processed++
		if err := r.execute(ctx, catalogs, *job); err != nil {
			report.Failed++
			log.Error().
				Err(err).
				Str("run_id", report.RunID).
				Int64("id", int64(job.ID)).
				Str("op", string(job.Op)).
				Msg("error processing job")
		}
	}

	if remaining, err := r.queue.Len(ctx); err == nil {
		report.Remaining = remaining
	}
	report.Elapsed = seconds(start)
	r.opts.metrics.ObserveDrain(time.Since(start), report.Processed, report.Failed, report.Remaining)

	if report.Processed > 0 {
		log.Info().
			Str("run_id", report.RunID).
			Int("processed", report.Processed).
			Int("failed", report.Failed).
			Int64("remaining", report.Remaining).
			Float64("elapsed", report.Elapsed).
			Msg("queue drained")
	}
	return report, nil
}

func (r *Runner) execute(ctx context.Context, catalogs []Catalog, job Job) error {
	switch job.Op {
	case JobOpUnindex:
		return unindexFrom(ctx, catalogs, job.ID)
	case JobOpIndex, "":
	default:
		return fmt.Errorf("unknown job op %q", job.Op)
	}

	obj, err := r.resolver.Resolve(ctx, job.ID)
	if err != nil {
		kind, ok := ResolutionKind(err)
		if !ok || kind != Missing {
			return err
		}
		obj = nil
	}
	if obj == nil {
		log.Debug().Int64("id", int64(job.ID)).Msg("object is gone, unindexing")
		return unindexFrom(ctx, catalogs, job.ID)
	}

	var errs []error
	for _, cat := range catalogs {
		if err := cat.IndexObject(ctx, job.ID, obj); err != nil {
			errs = append(errs, fmt.Errorf("index into %s: %w", cat.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func unindexFrom(ctx context.Context, catalogs []Catalog, id IntID) error {
	var errs []error
	for _, cat := range catalogs {
		if err := cat.UnindexObject(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("unindex from %s: %w", cat.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Run drains up to batch jobs every interval until ctx is canceled.
func (r *Runner) Run(ctx context.Context, interval time.Duration, batch int) error {
	if batch == 0 {
		return types.ErrInvalidLimit
	}
	if interval <= 0 {
		interval = DefaultDrainInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Int("batch", batch).Msg("queue processor started")
	for {
		if _, err := r.Drain(ctx, batch); err != nil && ctx.Err() == nil {
			if errors.Is(err, common.ErrLockNotObtained) {
				log.Debug().Msg("queue is being drained elsewhere")
			} else {
				log.Error().Err(err).Msg("queue drain failed")
			}
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("queue processor stopped")
			return nil
		case <-ticker.C:
		}
	}
}
