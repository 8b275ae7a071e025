package index

import (
	"context"
	"fmt"

	"github.com/beam-cloud/metacatalog/pkg/catalog"
	"github.com/beam-cloud/metacatalog/pkg/types"
)

// Source manages the registered catalogs and implements catalog.CatalogSource.
type Source struct {
	store     *SQLiteCatalogStore
	catalogs  map[string]*SQLiteCatalog
	order     []string
	canonical string
	library   string
}

// NewSource creates an empty source over store.
func NewSource(store *SQLiteCatalogStore) *Source {
	return &Source{
		store:    store,
		catalogs: make(map[string]*SQLiteCatalog),
	}
}

// NewDefaultSource registers the built-in catalogs according to cfg.
func NewDefaultSource(ctx context.Context, store *SQLiteCatalogStore, cfg types.CatalogConfig) (*Source, error) {
	s := NewSource(store)

	defs := []CatalogDef{MetadataCatalogDef(), EntityCatalogDef()}
	for _, def := range defs {
		if err := s.Register(ctx, def); err != nil {
			return nil, err
		}
	}

	if cfg.Library {
		if err := s.RegisterLibrary(ctx, LibraryCatalogDef()); err != nil {
			return nil, err
		}
	}

	canonical := cfg.Canonical
	if canonical == "" {
		canonical = MetadataCatalog
	}
	if err := s.SetCanonical(canonical); err != nil {
		return nil, err
	}
	return s, nil
}

// Register adds a catalog
func (s *Source) Register(ctx context.Context, def CatalogDef) error {
	if _, ok := s.catalogs[def.Name]; ok {
		return fmt.Errorf("catalog %s already registered", def.Name)
	}

	c, err := NewSQLiteCatalog(ctx, s.store, def)
	if err != nil {
		return err
	}
	s.catalogs[def.Name] = c
	s.order = append(s.order, def.Name)
	return nil
}

// RegisterLibrary adds the content-library catalog.
func (s *Source) RegisterLibrary(ctx context.Context, def CatalogDef) error {
	if err := s.Register(ctx, def); err != nil {
		return err
	}
	s.library = def.Name
	return nil
}

// SetCanonical picks the catalog returned by Canonical.
func (s *Source) SetCanonical(name string) error {
	if !s.Has(name) {
		return &types.ErrCatalogNotFound{Name: name}
	}
	s.canonical = name
	return nil
}

// Get returns a catalog by name
func (s *Source) Get(name string) (*SQLiteCatalog, error) {
	c, ok := s.catalogs[name]
	if !ok {
		return nil, &types.ErrCatalogNotFound{Name: name}
	}
	return c, nil
}

// Has returns true if a catalog is registered under name
func (s *Source) Has(name string) bool {
	_, ok := s.catalogs[name]
	return ok
}

// List returns every registered catalog in registration order
func (s *Source) List() []*SQLiteCatalog {
	out := make([]*SQLiteCatalog, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.catalogs[name])
	}
	return out
}

// Catalogs returns the deferred catalogs, or every catalog but the library one for
// catalog.SelectAll.
func (s *Source) Catalogs(_ context.Context, selector catalog.Selector) ([]catalog.Catalog, error) {
	var out []catalog.Catalog
	for _, c := range s.List() {
		if c.Name() == s.library {
			continue
		}
		switch selector {
		case catalog.SelectAll:
		case catalog.SelectDeferred, "":
			if c.Class() != ClassDeferred {
				continue
			}
		default:
			return nil, fmt.Errorf("unknown catalog selector %q", selector)
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *Source) LibraryCatalog(context.Context) (catalog.Catalog, error) {
	if s.library == "" {
		return nil, nil
	}
	return s.catalogs[s.library], nil
}

func (s *Source) Canonical(context.Context) (catalog.Catalog, error) {
	if s.canonical == "" {
		return nil, &types.ErrCatalogNotFound{Name: "canonical"}
	}
	return s.catalogs[s.canonical], nil
}

// Stats returns the number of indexed ids per catalog.
func (s *Source) Stats(ctx context.Context) (map[string]int64, error) {
	return s.store.Stats(ctx)
}
