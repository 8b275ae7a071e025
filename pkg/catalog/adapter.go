package catalog

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// CollectOptions tunes CollectIDs.
type CollectOptions struct {
	// InspectStructure runs the index's self-consistency check before enumerating.
	InspectStructure bool
}

// CollectIDs returns the sorted set of ids referenced by idx without mutating it.
// Value and keyword indexes are enumerated directly; topic indexes contribute the
// union of their enumerable filters. Indexes of an unknown shape yield nothing.
func CollectIDs(ctx context.Context, idx Index, opts CollectOptions) ([]IntID, error) {
	if opts.InspectStructure {
		if err := checkStructure(ctx, idx.Name(), idx); err != nil {
			return nil, err
		}
	}

	set := IDSet{}
	switch idx.Kind() {
	case IndexKindValue, IndexKindKeyword:
		enum, ok := idx.(IDEnumerator)
		if !ok {
			return nil, nil
		}
		ids, err := enum.IDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("enumerate %s index %s: %w", idx.Kind(), idx.Name(), err)
		}
		set.Add(ids...)

	case IndexKindTopic:
		topic, ok := idx.(TopicIndex)
		if !ok {
			return nil, nil
		}
		filters, err := topic.Filters(ctx)
		if err != nil {
			return nil, fmt.Errorf("list filters of %s: %w", idx.Name(), err)
		}
		for _, filter := range filters {
			enum, ok := filter.(IDEnumerator)
			if !ok {
				continue
			}
			if opts.InspectStructure {
				if err := checkStructure(ctx, idx.Name()+"/"+filter.Name(), filter); err != nil {
					return nil, err
				}
			}
			ids, err := enum.IDs(ctx)
			if err != nil {
				return nil, fmt.Errorf("enumerate filter %s of %s: %w", filter.Name(), idx.Name(), err)
			}
			set.Add(ids...)
		}

	default:
		return nil, nil
	}

	return set.Sorted(), nil
}

func checkStructure(ctx context.Context, name string, v any) error {
	checker, ok := v.(StructureChecker)
	if !ok {
		return nil
	}
	log.Info().Str("index", name).Msg("checking index structure")
	if err := checker.CheckStructure(ctx); err != nil {
		return fmt.Errorf("structural check of %s: %w", name, err)
	}
	return nil
}

// CatalogIDs returns the union of the ids referenced by every index of cat.
// Indexes that cannot be enumerated are logged and skipped.
func CatalogIDs(ctx context.Context, cat Catalog) (IDSet, error) {
	indexes, err := cat.Indexes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list indexes of %s: %w", cat.Name(), err)
	}

	set := IDSet{}
	for _, idx := range indexes {
		ids, err := CollectIDs(ctx, idx, CollectOptions{})
		if err != nil {
			log.Error().
				Err(err).
				Str("catalog", cat.Name()).
				Str("index", idx.Name()).
				Msg("error getting ids from index")
			continue
		}
		set.Add(ids...)
	}
	return set, nil
}
