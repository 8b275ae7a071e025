package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/beam-cloud/metacatalog/pkg/types"
)

// selectCatalogs returns the catalogs chosen by selector plus the library catalog,
// de-duplicated by name in first-seen order.
func selectCatalogs(ctx context.Context, source CatalogSource, selector Selector) ([]Catalog, error) {
	if source == nil {
		return nil, types.Unavailable("catalog source")
	}
	if selector == "" {
		selector = SelectDeferred
	}

	catalogs, err := source.Catalogs(ctx, selector)
	if err != nil {
		return nil, fmt.Errorf("list %s catalogs: %w", selector, err)
	}

	library, err := source.LibraryCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve library catalog: %w", err)
	}
	if library != nil {
		catalogs = append(catalogs, library)
	}

	names := make(map[string]struct{}, len(catalogs))
	out := make([]Catalog, 0, len(catalogs))
	for _, cat := range catalogs {
		if _, ok := names[cat.Name()]; ok {
			continue
		}
		names[cat.Name()] = struct{}{}
		out = append(out, cat)
	}
	return out, nil
}

func catalogNames(catalogs []Catalog) []string {
	names := make([]string, 0, len(catalogs))
	for _, cat := range catalogs {
		names = append(names, cat.Name())
	}
	return names
}

func isContextErr(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil
}

func seconds(start time.Time) float64 {
	return time.Since(start).Seconds()
}
