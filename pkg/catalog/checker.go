package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/beam-cloud/metacatalog/pkg/common"
	"github.com/beam-cloud/metacatalog/pkg/types"
	"github.com/rs/zerolog/log"
)

// CheckOptions tunes a consistency check.
type CheckOptions struct {
	Selector Selector `json:"selector"`
	// TestBroken also removes ids whose object resolves but reports itself broken.
	TestBroken bool `json:"test_broken"`
	// InspectStructure runs each index's self-consistency check before enumeration.
	InspectStructure bool `json:"inspect_structure"`
}

// CheckReport is the outcome of one consistency check. Broken and TotalBroken are
// only set when broken objects were tested for.
type CheckReport struct {
	RunID        string           `json:"run_id" yaml:"run_id"`
	Catalogs     []string         `json:"catalogs" yaml:"catalogs"`
	Missing      []IntID          `json:"missing" yaml:"missing"`
	TotalIndexed int              `json:"total_indexed" yaml:"total_indexed"`
	TotalMissing int              `json:"total_missing" yaml:"total_missing"`
	TotalSkipped int              `json:"total_skipped" yaml:"total_skipped"`
	Broken       map[IntID]string `json:"broken,omitempty" yaml:"broken,omitempty"`
	TotalBroken  *int             `json:"total_broken,omitempty" yaml:"total_broken,omitempty"`
	Elapsed      float64          `json:"elapsed" yaml:"elapsed"`
}

// Checker finds ids referenced by catalog indexes whose objects no longer resolve
// (or resolve to broken objects) and unindexes them from every selected catalog.
type Checker struct {
	source   CatalogSource
	resolver Resolver
	opts     options
}

func NewChecker(source CatalogSource, resolver Resolver, opts ...Option) *Checker {
	return &Checker{
		source:   source,
		resolver: resolver,
		opts:     buildOptions(opts),
	}
}

type verdict int

const (
	verdictHealthy verdict = iota
	verdictMissing
	verdictBroken
	verdictSkipped
)

type checkRun struct {
	resolver Resolver
	opts     CheckOptions
	catalogs []Catalog
	seen     *Seen
	missing  IDSet
	broken   map[IntID]string
	skipped  int
}

// Check runs one consistency pass. Per-index and per-object failures are logged
// and do not abort the run; a canceled context does.
func (c *Checker) Check(ctx context.Context, opts CheckOptions) (*CheckReport, error) {
	if c.resolver == nil {
		return nil, types.Unavailable("object resolver")
	}

	catalogs, err := selectCatalogs(ctx, c.source, opts.Selector)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	runID := common.GenerateRunID("check")
	log.Info().
		Str("run_id", runID).
		Strs("catalogs", catalogNames(catalogs)).
		Bool("test_broken", opts.TestBroken).
		Msg("starting catalog check")

	run := &checkRun{
		resolver: c.resolver,
		opts:     opts,
		catalogs: catalogs,
		seen:     NewSeen(),
		missing:  IDSet{},
		broken:   make(map[IntID]string),
	}

	for _, cat := range catalogs {
		if err := run.checkCatalog(ctx, cat, c.opts); err != nil {
			return nil, err
		}
	}

	report := &CheckReport{
		RunID:        runID,
		Catalogs:     catalogNames(catalogs),
		Missing:      run.missing.Sorted(),
		TotalIndexed: run.seen.Len(),
		TotalMissing: len(run.missing),
		TotalSkipped: run.skipped,
		Elapsed:      seconds(start),
	}
	if opts.TestBroken {
		total := len(run.broken)
		report.Broken = run.broken
		report.TotalBroken = &total
	}

	c.opts.metrics.ObserveCheck(time.Since(start), report.TotalIndexed, report.TotalMissing, len(run.broken))
	log.Info().
		Str("run_id", runID).
		Int("indexed", report.TotalIndexed).
		Int("missing", report.TotalMissing).
		Int("broken", len(run.broken)).
		Int("skipped", report.TotalSkipped).
		Float64("elapsed", report.Elapsed).
		Msg("catalog check complete")

	return report, nil
}

func (r *checkRun) checkCatalog(ctx context.Context, cat Catalog, o options) error {
	indexes, err := cat.Indexes(ctx)
	if err != nil {
		if isContextErr(ctx, err) {
			return ctx.Err()
		}
		log.Error().Err(err).Str("catalog", cat.Name()).Msg("error listing catalog indexes")
		o.metrics.IndexError(cat.Name())
		return nil
	}

	for _, idx := range indexes {
		ids, err := CollectIDs(ctx, idx, CollectOptions{InspectStructure: r.opts.InspectStructure})
		if err != nil {
			if isContextErr(ctx, err) {
				return ctx.Err()
			}
			log.Error().
				Err(err).
				Str("catalog", cat.Name()).
				Str("index", idx.Name()).
				Msg("error getting ids from index")
			o.metrics.IndexError(cat.Name())
			continue
		}

		removed, err := r.checkIDs(ctx, ids)
		if err != nil {
			return err
		}
		if removed > 0 {
			log.Info().
				Str("catalog", cat.Name()).
				Str("index", idx.Name()).
				Int("count", removed).
				Msg("unindexed ids from index")
		}
	}
	return nil
}

// checkIDs classifies every unseen id and returns how many were unindexed.
func (r *checkRun) checkIDs(ctx context.Context, ids []IntID) (int, error) {
	removed := 0
	for _, id := range ids {
		if !r.seen.Add(id) {
			continue
		}

		v, typeName, err := r.classify(ctx, id)
		if err != nil {
			return removed, err
		}

		switch v {
		case verdictMissing:
			r.unindex(ctx, id)
			r.missing.Add(id)
			removed++
		case verdictBroken:
			r.unindex(ctx, id)
			r.broken[id] = typeName
			removed++
		case verdictSkipped:
			r.skipped++
		}
	}
	return removed, nil
}

func (r *checkRun) classify(ctx context.Context, id IntID) (verdict, string, error) {
	obj, err := r.resolver.Resolve(ctx, id)
	if err != nil {
		if isContextErr(ctx, err) {
			return verdictHealthy, "", ctx.Err()
		}

		kind, ok := ResolutionKind(err)
		switch {
		case ok && kind == Missing:
			return verdictMissing, "", nil
		case ok && (kind == Corrupt || kind == TypeMismatch):
			log.Warn().Err(err).Int64("id", int64(id)).Msg("broken object in catalog")
			return verdictBroken, brokenTypeName(err), nil
		default:
			log.Warn().Err(err).Int64("id", int64(id)).Msg("unable to classify indexed id, leaving it")
			return verdictSkipped, "", nil
		}
	}

	if obj == nil {
		return verdictMissing, "", nil
	}
	if r.opts.TestBroken && IsBroken(obj) {
		return verdictBroken, TypeName(obj), nil
	}
	return verdictHealthy, "", nil
}

func brokenTypeName(err error) string {
	var re *ResolutionError
	if errors.As(err, &re) && re.TypeName != "" {
		return re.TypeName
	}
	return UnknownMimeType
}

func (r *checkRun) unindex(ctx context.Context, id IntID) {
	for _, cat := range r.catalogs {
		if err := cat.UnindexObject(ctx, id); err != nil {
			log.Warn().
				Err(err).
				Str("catalog", cat.Name()).
				Int64("id", int64(id)).
				Msg("failed to unindex id")
		}
	}
}
