package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/beam-cloud/metacatalog/pkg/common"
	"github.com/beam-cloud/metacatalog/pkg/types"
	"github.com/rs/zerolog/log"
)

// ReindexRequest selects the principals whose objects are queued for indexing.
// Term takes precedence over AllPrincipals, which takes precedence over Usernames.
type ReindexRequest struct {
	Usernames     []string `json:"usernames"`
	Term          string   `json:"term"`
	AllPrincipals bool     `json:"all"`
	IncludeSystem bool     `json:"system"`
	Accept        []string `json:"accept"`
}

// ReindexReport is the outcome of one reindex run.
type ReindexReport struct {
	RunID         string        `json:"run_id" yaml:"run_id"`
	Total         int           `json:"total" yaml:"total"`
	MimeTypeCount MimeTypeCount `json:"mime_type_count" yaml:"mime_type_count"`
	Principals    []string      `json:"principals" yaml:"principals"`
	Skipped       []string      `json:"skipped" yaml:"skipped"`
	Elapsed       float64       `json:"elapsed" yaml:"elapsed"`
}

// Reindexer queues every indexable object owned by a set of principals.
type Reindexer struct {
	directory PrincipalDirectory
	owned     OwnedObjects
	ids       IDTable
	queue     Queue
	opts      options
}

func NewReindexer(directory PrincipalDirectory, owned OwnedObjects, ids IDTable, queue Queue, opts ...Option) *Reindexer {
	return &Reindexer{
		directory: directory,
		owned:     owned,
		ids:       ids,
		queue:     queue,
		opts:      buildOptions(opts),
	}
}

type enqueueError struct {
	err error
}

func (e *enqueueError) Error() string { return e.err.Error() }
func (e *enqueueError) Unwrap() error { return e.err }

type reindexRun struct {
	accept AcceptSet
	seen   *Seen
	counts MimeTypeCount
	total  int
}

// Reindex enqueues each accepted object at most once per run, even when it is
// reachable from several principals.
func (r *Reindexer) Reindex(ctx context.Context, req ReindexRequest) (*ReindexReport, error) {
	switch {
	case r.directory == nil:
		return nil, types.Unavailable("principal directory")
	case r.owned == nil:
		return nil, types.Unavailable("object store")
	case r.ids == nil:
		return nil, types.Unavailable("id table")
	case r.queue == nil:
		return nil, types.Unavailable("indexing queue")
	}

	accept, err := ParseAccept(req.Accept)
	if err != nil {
		return nil, err
	}

	names, err := r.principalNames(ctx, req)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	report := &ReindexReport{
		RunID:      common.GenerateRunID("reindex"),
		Principals: []string{},
		Skipped:    []string{},
	}
	run := &reindexRun{
		accept: accept,
		seen:   NewSeen(),
		counts: MimeTypeCount{},
	}

	var principals []Principal
	for _, name := range names {
		p, err := r.directory.Lookup(ctx, name)
		if err != nil {
			if isContextErr(ctx, err) {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Str("principal", name).Msg("skipping principal")
			report.Skipped = append(report.Skipped, name)
			continue
		}
		principals = append(principals, p)
	}
	if req.IncludeSystem {
		if system := r.directory.SystemPrincipal(); system != nil {
			principals = append(principals, system)
		}
	}

	for _, p := range principals {
		if err := r.reindexPrincipal(ctx, run, p); err != nil {
			var enqueueErr *enqueueError
			if errors.As(err, &enqueueErr) || isContextErr(ctx, err) {
				return nil, err
			}
			log.Warn().Err(err).Str("principal", p.Name()).Msg("failed to enumerate principal objects")
			report.Skipped = append(report.Skipped, p.Name())
			continue
		}
		report.Principals = append(report.Principals, p.Name())
	}

	report.Total = run.total
	report.MimeTypeCount = run.counts
	report.Elapsed = seconds(start)

	r.opts.metrics.ObserveReindex(run.counts)
	log.Info().
		Str("run_id", report.RunID).
		Int("principals", len(report.Principals)).
		Int("skipped", len(report.Skipped)).
		Int("total", report.Total).
		Float64("elapsed", report.Elapsed).
		Msg("reindex complete")

	return report, nil
}

func (r *Reindexer) reindexPrincipal(ctx context.Context, run *reindexRun, p Principal) error {
	queued := 0
	err := r.owned.OwnedObjects(ctx, p, func(obj Object, err error) error {
		if err != nil {
			if isContextErr(ctx, err) {
				return err
			}
			log.Debug().Err(err).Str("principal", p.Name()).Msg("skipping unreadable object")
			return nil
		}

		mimeType := MimeTypeOf(obj)
		if !run.accept.Accepts(mimeType) {
			return nil
		}

		id, ok, err := r.ids.IDOf(ctx, obj)
		if err != nil {
			if isContextErr(ctx, err) {
				return err
			}
			log.Debug().Err(err).Str("principal", p.Name()).Msg("unable to get object id")
			return nil
		}
		if !ok || !run.seen.Add(id) {
			return nil
		}

		if err := r.queue.Enqueue(ctx, id); err != nil {
			return &enqueueError{err: fmt.Errorf("enqueue %d: %w", id, err)}
		}
		run.total++
		run.counts.Inc(mimeType)
		queued++
		return nil
	})

	log.Debug().Str("principal", p.Name()).Int("queued", queued).Msg("principal reindexed")
	return err
}

// principalNames resolves the request into an ordered, de-duplicated name list.
func (r *Reindexer) principalNames(ctx context.Context, req ReindexRequest) ([]string, error) {
	var (
		names []string
		err   error
	)
	switch {
	case strings.TrimSpace(req.Term) != "":
		names, err = r.directory.SearchPrincipalNames(ctx, strings.TrimSpace(req.Term))
	case req.AllPrincipals:
		names, err = r.directory.AllPrincipalNames(ctx)
	default:
		names = splitNames(req.Usernames)
	}
	if err != nil {
		return nil, fmt.Errorf("list principals: %w", err)
	}
	return dedupe(names), nil
}

// splitNames accepts both repeated values and comma separated lists.
func splitNames(values []string) []string {
	var out []string
	for _, value := range values {
		for _, name := range strings.Split(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

func dedupe(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}
