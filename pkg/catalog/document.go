package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// DocumentReport lists the catalogs touched by a single-document operation.
type DocumentReport struct {
	ID       IntID    `json:"id" yaml:"id"`
	Catalogs []string `json:"catalogs" yaml:"catalogs"`
}

// IndexDocument indexes obj under id into every editable catalog and the library
// catalog. Failures of individual catalogs are joined.
func IndexDocument(ctx context.Context, source CatalogSource, id IntID, obj Object) (*DocumentReport, error) {
	if obj == nil {
		return nil, NewResolutionError(id, Missing, "", nil)
	}

	catalogs, err := selectCatalogs(ctx, source, SelectAll)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, cat := range catalogs {
		log.Warn().Int64("id", int64(id)).Str("catalog", cat.Name()).Msg("indexing document")
		if err := cat.ForceIndexObject(ctx, id, obj); err != nil {
			errs = append(errs, fmt.Errorf("index into %s: %w", cat.Name(), err))
		}
	}
	return &DocumentReport{ID: id, Catalogs: catalogNames(catalogs)}, errors.Join(errs...)
}

// UnindexDocument removes id from every editable catalog and the library catalog.
func UnindexDocument(ctx context.Context, source CatalogSource, id IntID) (*DocumentReport, error) {
	catalogs, err := selectCatalogs(ctx, source, SelectAll)
	if err != nil {
		return nil, err
	}

	for _, cat := range catalogs {
		log.Warn().Int64("id", int64(id)).Str("catalog", cat.Name()).Msg("unindexing document")
	}
	return &DocumentReport{ID: id, Catalogs: catalogNames(catalogs)}, unindexFrom(ctx, catalogs, id)
}
