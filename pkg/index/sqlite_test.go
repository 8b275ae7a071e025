package index

import (
	"context"
	"testing"

	"github.com/beam-cloud/metacatalog/pkg/catalog"
	"github.com/beam-cloud/metacatalog/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSource(t *testing.T) (*Source, *SQLiteCatalogStore) {
	t.Helper()

	store, err := NewSQLiteCatalogStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	source, err := NewDefaultSource(context.Background(), store, types.CatalogConfig{
		Canonical: MetadataCatalog,
		Library:   true,
	})
	require.NoError(t, err)
	return source, store
}

func note(creator string, extra map[string]any) map[string]any {
	obj := map[string]any{
		"mimeType":            "application/vnd.nextthought.note",
		"creator":             creator,
		"containerId":         "tag:nextthought.com,2011-10:course-1",
		"sharedWith":          []any{"bob", "carol"},
		"isUserGeneratedData": true,
		"isTopLevelContent":   true,
	}
	for k, v := range extra {
		obj[k] = v
	}
	return obj
}

func indexByName(t *testing.T, c catalog.Catalog, name string) catalog.Index {
	t.Helper()
	indexes, err := c.Indexes(context.Background())
	require.NoError(t, err)
	for _, idx := range indexes {
		if idx.Name() == name {
			return idx
		}
	}
	t.Fatalf("index %s not found", name)
	return nil
}

func collect(t *testing.T, idx catalog.Index) []catalog.IntID {
	t.Helper()
	ids, err := catalog.CollectIDs(context.Background(), idx, catalog.CollectOptions{InspectStructure: true})
	require.NoError(t, err)
	return ids
}

func TestSQLiteCatalog_IndexAndEnumerate(t *testing.T) {
	ctx := context.Background()
	source, _ := newTestSource(t)
	metadata, err := source.Get(MetadataCatalog)
	require.NoError(t, err)

	require.NoError(t, metadata.IndexObject(ctx, 1, note("alice", nil)))
	require.NoError(t, metadata.IndexObject(ctx, 2, note("bob", map[string]any{"isDeleted": true, "isTopLevelContent": false})))
	require.NoError(t, metadata.IndexObject(ctx, 3, map[string]any{"mimeType": "application/vnd.nextthought.bookmark", "creator": "alice"}))

	assert.Equal(t, []catalog.IntID{1, 2, 3}, collect(t, indexByName(t, metadata, "mimeType")))
	assert.Equal(t, []catalog.IntID{1, 2, 3}, collect(t, indexByName(t, metadata, "creator")))
	assert.Equal(t, []catalog.IntID{1, 2}, collect(t, indexByName(t, metadata, "sharedWith")))
	assert.Empty(t, collect(t, indexByName(t, metadata, "taggedTo")))
	assert.Equal(t, []catalog.IntID{1, 2}, collect(t, indexByName(t, metadata, "topics")))

	mimeTypes, err := catalog.IndexedMimeTypes(ctx, []catalog.Catalog{metadata})
	require.NoError(t, err)
	assert.Equal(t, []string{"application/vnd.nextthought.bookmark", "application/vnd.nextthought.note"}, mimeTypes)

	require.NoError(t, metadata.UnindexObject(ctx, 2))
	assert.Equal(t, []catalog.IntID{1, 3}, collect(t, indexByName(t, metadata, "creator")))
	assert.Equal(t, []catalog.IntID{1}, collect(t, indexByName(t, metadata, "topics")))
}

func TestSQLiteCatalog_ReindexReplacesValues(t *testing.T) {
	ctx := context.Background()
	source, _ := newTestSource(t)
	metadata, err := source.Get(MetadataCatalog)
	require.NoError(t, err)

	require.NoError(t, metadata.IndexObject(ctx, 1, note("alice", nil)))
	require.NoError(t, metadata.IndexObject(ctx, 1, note("alice", map[string]any{"sharedWith": []string{"dave"}})))

	values, err := metadata.store.ValuesOf(ctx, MetadataCatalog, "sharedWith", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"dave"}, values)
}

func TestSQLiteCatalog_IndexObjectSkipsUnchanged(t *testing.T) {
	ctx := context.Background()
	source, store := newTestSource(t)
	metadata, err := source.Get(MetadataCatalog)
	require.NoError(t, err)

	require.NoError(t, metadata.IndexObject(ctx, 1, note("alice", nil)))
	creator := indexByName(t, metadata, "creator")

	// Drop the rows behind the catalog's back; the fingerprint still matches
	_, err = store.db.ExecContext(ctx, `DELETE FROM catalog_entries WHERE catalog = ? AND index_name = ?`, MetadataCatalog, "creator")
	require.NoError(t, err)

	require.NoError(t, metadata.IndexObject(ctx, 1, note("alice", nil)))
	assert.Empty(t, collect(t, creator))

	require.NoError(t, metadata.ForceIndexObject(ctx, 1, note("alice", nil)))
	assert.Equal(t, []catalog.IntID{1}, collect(t, creator))
}

func TestSQLiteCatalog_ClearIndexDropsFingerprints(t *testing.T) {
	ctx := context.Background()
	source, store := newTestSource(t)
	metadata, err := source.Get(MetadataCatalog)
	require.NoError(t, err)

	require.NoError(t, metadata.IndexObject(ctx, 1, note("alice", nil)))
	creator := indexByName(t, metadata, "creator")
	require.NoError(t, creator.Clear(ctx))

	_, ok, err := store.Fingerprint(ctx, MetadataCatalog, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats[MetadataCatalog])

	require.NoError(t, metadata.IndexObject(ctx, 1, note("alice", nil)))
	assert.Equal(t, []catalog.IntID{1}, collect(t, creator))
}

func TestSQLiteCatalog_TopicClearDropsFilters(t *testing.T) {
	ctx := context.Background()
	source, _ := newTestSource(t)
	metadata, err := source.Get(MetadataCatalog)
	require.NoError(t, err)

	topics := indexByName(t, metadata, "topics").(catalog.TopicIndex)
	filters, err := topics.Filters(ctx)
	require.NoError(t, err)
	assert.Len(t, filters, 3)

	require.NoError(t, topics.Clear(ctx))
	filters, err = topics.Filters(ctx)
	require.NoError(t, err)
	assert.Empty(t, filters)

	// Memberships of unregistered filters are dropped
	require.NoError(t, metadata.ForceIndexObject(ctx, 1, note("alice", nil)))
	assert.Empty(t, collect(t, topics))

	require.NoError(t, metadata.EnsureFilters(ctx))
	require.NoError(t, metadata.EnsureFilters(ctx))
	require.NoError(t, metadata.ForceIndexObject(ctx, 1, note("alice", nil)))
	filters, err = topics.Filters(ctx)
	require.NoError(t, err)
	assert.Len(t, filters, 3)
	assert.Equal(t, []catalog.IntID{1}, collect(t, topics))
}

func TestFieldIndex_CheckStructure(t *testing.T) {
	ctx := context.Background()
	source, store := newTestSource(t)
	metadata, err := source.Get(MetadataCatalog)
	require.NoError(t, err)

	require.NoError(t, metadata.IndexObject(ctx, 1, note("alice", nil)))
	_, err = store.db.ExecContext(ctx, `
		INSERT INTO catalog_entries (catalog, index_name, intid, value) VALUES (?, ?, ?, ?)
	`, MetadataCatalog, "creator", 1, "mallory")
	require.NoError(t, err)

	creator := indexByName(t, metadata, "creator")
	_, err = catalog.CollectIDs(ctx, creator, catalog.CollectOptions{InspectStructure: true})
	assert.ErrorContains(t, err, "several values")

	// Without inspection the index still enumerates
	ids, err := catalog.CollectIDs(ctx, creator, catalog.CollectOptions{})
	require.NoError(t, err)
	assert.Equal(t, []catalog.IntID{1}, ids)

	// Keyword indexes may hold several values per id
	assert.Equal(t, []catalog.IntID{1}, collect(t, indexByName(t, metadata, "sharedWith")))
}

func TestSource_Selectors(t *testing.T) {
	ctx := context.Background()
	source, _ := newTestSource(t)

	deferred, err := source.Catalogs(ctx, catalog.SelectDeferred)
	require.NoError(t, err)
	assert.Equal(t, []string{MetadataCatalog}, names(deferred))

	all, err := source.Catalogs(ctx, catalog.SelectAll)
	require.NoError(t, err)
	assert.Equal(t, []string{MetadataCatalog, EntityCatalog}, names(all))

	library, err := source.LibraryCatalog(ctx)
	require.NoError(t, err)
	require.NotNil(t, library)
	assert.Equal(t, LibraryCatalog, library.Name())

	canonical, err := source.Canonical(ctx)
	require.NoError(t, err)
	assert.Equal(t, MetadataCatalog, canonical.Name())

	_, err = source.Catalogs(ctx, catalog.Selector("bogus"))
	assert.Error(t, err)
}

func TestSource_WithoutLibrary(t *testing.T) {
	store, err := NewSQLiteCatalogStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	source, err := NewDefaultSource(context.Background(), store, types.CatalogConfig{})
	require.NoError(t, err)

	library, err := source.LibraryCatalog(context.Background())
	require.NoError(t, err)
	assert.Nil(t, library)

	err = source.SetCanonical("nope")
	assert.True(t, (&types.ErrCatalogNotFound{}).From(err))
}

func TestCatalogDef_Validate(t *testing.T) {
	assert.NoError(t, MetadataCatalogDef().Validate())
	assert.NoError(t, LibraryCatalogDef().Validate())
	assert.NoError(t, EntityCatalogDef().Validate())

	def := CatalogDef{Name: "broken", Indexes: []IndexDef{
		{Name: "a", Kind: catalog.IndexKindValue, Extract: MimeTypeValues},
		{Name: "a", Kind: catalog.IndexKindKeyword, Extract: MimeTypeValues},
	}}
	assert.ErrorContains(t, def.Validate(), "duplicate index")

	def = CatalogDef{Name: "broken", Indexes: []IndexDef{{Name: "t", Kind: catalog.IndexKindTopic}}}
	assert.ErrorContains(t, def.Validate(), "no filters")
}

func names(catalogs []catalog.Catalog) []string {
	out := make([]string, 0, len(catalogs))
	for _, c := range catalogs {
		out = append(out, c.Name())
	}
	return out
}
