package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/beam-cloud/metacatalog/pkg/common"
	"github.com/beam-cloud/metacatalog/pkg/types"
	"github.com/rs/zerolog/log"
)

// RebuildReport is the outcome of a full rebuild of the canonical catalog.
type RebuildReport struct {
	RunID   string `json:"run_id" yaml:"run_id"`
	Catalog string `json:"catalog" yaml:"catalog"`
	// Collected is the number of distinct ids referenced before the clear.
	Collected int `json:"collected" yaml:"collected"`
	// Total is the number of objects re-indexed.
	Total   int     `json:"total" yaml:"total"`
	Skipped int     `json:"skipped" yaml:"skipped"`
	Failed  int     `json:"failed" yaml:"failed"`
	Elapsed float64 `json:"elapsed" yaml:"elapsed"`
}

// Rebuilder re-creates the canonical catalog from the ids it referenced.
type Rebuilder struct {
	source   CatalogSource
	resolver Resolver
	ids      IDTable
	opts     options
}

func NewRebuilder(source CatalogSource, resolver Resolver, ids IDTable, opts ...Option) *Rebuilder {
	return &Rebuilder{
		source:   source,
		resolver: resolver,
		ids:      ids,
		opts:     buildOptions(opts),
	}
}

// Rebuild collects every id referenced by the canonical catalog, clears all of its
// indexes, restores its topic filters and force-indexes each id that still resolves.
// Objects that fail to index are unregistered from the id table.
func (r *Rebuilder) Rebuild(ctx context.Context) (*RebuildReport, error) {
	if r.source == nil {
		return nil, types.Unavailable("catalog source")
	}
	if r.resolver == nil {
		return nil, types.Unavailable("object resolver")
	}
	if r.ids == nil {
		return nil, types.Unavailable("id table")
	}

	cat, err := r.source.Canonical(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve canonical catalog: %w", err)
	}

	start := time.Now()
	report := &RebuildReport{
		RunID:   common.GenerateRunID("rebuild"),
		Catalog: cat.Name(),
	}

	collected, err := CatalogIDs(ctx, cat)
	if err != nil {
		return nil, err
	}
	ids := collected.Sorted()
	report.Collected = len(ids)

	if err := r.reset(ctx, cat); err != nil {
		return nil, err
	}

	log.Info().
		Str("run_id", report.RunID).
		Str("catalog", cat.Name()).
		Int("ids", len(ids)).
		Msg("catalog cleared, re-indexing")

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		obj, err := r.resolver.Resolve(ctx, id)
		if err != nil || obj == nil {
			log.Debug().Err(err).Int64("id", int64(id)).Msg("unable to resolve object, skipping")
			report.Skipped++
			continue
		}

		if err := cat.ForceIndexObject(ctx, id, obj); err != nil {
			if isContextErr(ctx, err) {
				return nil, ctx.Err()
			}
			log.Error().
				Err(err).
				Str("catalog", cat.Name()).
				Int64("id", int64(id)).
				Str("type", TypeName(obj)).
				Msg("cannot index object, unregistering")
			if err := r.ids.ForceUnregister(ctx, id); err != nil {
				log.Debug().Err(err).Int64("id", int64(id)).Msg("unable to unregister id")
			}
			report.Failed++
			continue
		}
		report.Total++
	}

	report.Elapsed = seconds(start)
	r.opts.metrics.ObserveRebuild(time.Since(start), report.Total, report.Skipped, report.Failed)
	log.Info().
		Str("run_id", report.RunID).
		Str("catalog", cat.Name()).
		Int("total", report.Total).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Float64("elapsed", report.Elapsed).
		Msg("catalog rebuild complete")

	return report, nil
}

// reset clears every index of cat and re-registers its topic filters.
func (r *Rebuilder) reset(ctx context.Context, cat Catalog) error {
	indexes, err := cat.Indexes(ctx)
	if err != nil {
		return fmt.Errorf("list indexes of %s: %w", cat.Name(), err)
	}

	for _, idx := range indexes {
		if err := idx.Clear(ctx); err != nil {
			return fmt.Errorf("clear index %s of %s: %w", idx.Name(), cat.Name(), err)
		}
	}

	if registrar, ok := cat.(FilterRegistrar); ok {
		if err := registrar.EnsureFilters(ctx); err != nil {
			return fmt.Errorf("restore filters of %s: %w", cat.Name(), err)
		}
	}
	return nil
}
