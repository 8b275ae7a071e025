package index

import (
	"context"
	"fmt"

	"github.com/beam-cloud/metacatalog/pkg/catalog"
	"github.com/rs/zerolog/log"
)

// SQLiteCatalog is a catalog.Catalog backed by a SQLiteCatalogStore.
type SQLiteCatalog struct {
	def   CatalogDef
	store *SQLiteCatalogStore
}

// NewSQLiteCatalog validates def and registers its topic filters.
func NewSQLiteCatalog(ctx context.Context, store *SQLiteCatalogStore, def CatalogDef) (*SQLiteCatalog, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}

	c := &SQLiteCatalog{def: def, store: store}
	if err := c.EnsureFilters(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *SQLiteCatalog) Name() string {
	return c.def.Name
}

func (c *SQLiteCatalog) Class() Class {
	return c.def.Class
}

func (c *SQLiteCatalog) Indexes(ctx context.Context) ([]catalog.Index, error) {
	indexes := make([]catalog.Index, 0, len(c.def.Indexes))
	for _, def := range c.def.Indexes {
		switch def.Kind {
		case catalog.IndexKindTopic:
			indexes = append(indexes, &topicIndex{catalog: c.def.Name, name: def.Name, store: c.store})
		default:
			indexes = append(indexes, &fieldIndex{catalog: c.def.Name, name: def.Name, kind: def.Kind, store: c.store})
		}
	}
	return indexes, nil
}

func (c *SQLiteCatalog) Clear(ctx context.Context) error {
	return c.store.ClearCatalog(ctx, c.def.Name)
}

// IndexObject stores obj unless its extracted entry is unchanged since the last write.
func (c *SQLiteCatalog) IndexObject(ctx context.Context, id catalog.IntID, obj catalog.Object) error {
	entry := NewEntry(c.def, id, obj)

	fp, ok, err := c.store.Fingerprint(ctx, c.def.Name, id)
	if err != nil {
		return err
	}
	if ok && fp == entry.Fingerprint() {
		log.Debug().Str("catalog", c.def.Name).Int64("id", int64(id)).Msg("entry unchanged, skipping")
		return nil
	}

	return c.store.WriteEntry(ctx, c.def.Name, entry)
}

// ForceIndexObject stores obj unconditionally.
func (c *SQLiteCatalog) ForceIndexObject(ctx context.Context, id catalog.IntID, obj catalog.Object) error {
	return c.store.WriteEntry(ctx, c.def.Name, NewEntry(c.def, id, obj))
}

func (c *SQLiteCatalog) UnindexObject(ctx context.Context, id catalog.IntID) error {
	return c.store.DeleteID(ctx, c.def.Name, id)
}

// EnsureFilters registers every topic filter of the catalog.
func (c *SQLiteCatalog) EnsureFilters(ctx context.Context) error {
	for _, idx := range c.def.Indexes {
		for _, filter := range idx.Filters {
			if err := c.store.RegisterFilter(ctx, c.def.Name, idx.Name, filter.Name); err != nil {
				return err
			}
		}
	}
	return nil
}

// fieldIndex is a value or keyword index.
type fieldIndex struct {
	catalog string
	name    string
	kind    catalog.IndexKind
	store   *SQLiteCatalogStore
}

func (i *fieldIndex) Name() string {
	return i.name
}

func (i *fieldIndex) Kind() catalog.IndexKind {
	return i.kind
}

func (i *fieldIndex) Clear(ctx context.Context) error {
	return i.store.ClearIndex(ctx, i.catalog, i.name)
}

func (i *fieldIndex) IDs(ctx context.Context) ([]catalog.IntID, error) {
	return i.store.EntryIDs(ctx, i.catalog, i.name)
}

func (i *fieldIndex) Values(ctx context.Context) ([]string, error) {
	return i.store.Values(ctx, i.catalog, i.name)
}

// CheckStructure fails when a value index holds several values for one id or
// when an index references a non-positive id.
func (i *fieldIndex) CheckStructure(ctx context.Context) error {
	if i.kind == catalog.IndexKindValue {
		dups, err := i.store.DuplicateValueIDs(ctx, i.catalog, i.name)
		if err != nil {
			return err
		}
		if len(dups) > 0 {
			return fmt.Errorf("value index %s has %d ids with several values (first %d)", i.name, len(dups), dups[0])
		}
	}

	ids, err := i.IDs(ctx)
	if err != nil {
		return err
	}
	return checkIDs(i.name, ids)
}

type topicIndex struct {
	catalog string
	name    string
	store   *SQLiteCatalogStore
}

func (t *topicIndex) Name() string {
	return t.name
}

func (t *topicIndex) Kind() catalog.IndexKind {
	return catalog.IndexKindTopic
}

// Clear drops memberships and filter registrations.
func (t *topicIndex) Clear(ctx context.Context) error {
	return t.store.ClearTopic(ctx, t.catalog, t.name)
}

func (t *topicIndex) Filters(ctx context.Context) ([]catalog.TopicFilter, error) {
	names, err := t.store.Filters(ctx, t.catalog, t.name)
	if err != nil {
		return nil, err
	}

	filters := make([]catalog.TopicFilter, 0, len(names))
	for _, name := range names {
		filters = append(filters, &topicFilter{topic: t, name: name})
	}
	return filters, nil
}

type topicFilter struct {
	topic *topicIndex
	name  string
}

func (f *topicFilter) Name() string {
	return f.name
}

func (f *topicFilter) IDs(ctx context.Context) ([]catalog.IntID, error) {
	return f.topic.store.FilterIDs(ctx, f.topic.catalog, f.topic.name, f.name)
}

func (f *topicFilter) CheckStructure(ctx context.Context) error {
	ids, err := f.IDs(ctx)
	if err != nil {
		return err
	}
	return checkIDs(f.topic.name+"/"+f.name, ids)
}

func checkIDs(name string, ids []catalog.IntID) error {
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("index %s references invalid id %d", name, id)
		}
	}
	return nil
}
