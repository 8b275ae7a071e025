package index

import (
	"context"
	"errors"
	"testing"

	"github.com/beam-cloud/metacatalog/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mock object store ---

type memoryObjects struct {
	objects      map[catalog.IntID]map[string]any
	errs         map[catalog.IntID]error
	unregistered []catalog.IntID
}

func (m *memoryObjects) Resolve(_ context.Context, id catalog.IntID) (catalog.Object, error) {
	if err := m.errs[id]; err != nil {
		return nil, err
	}
	if obj, ok := m.objects[id]; ok {
		return obj, nil
	}
	return nil, nil
}

func (m *memoryObjects) IDOf(context.Context, catalog.Object) (catalog.IntID, bool, error) {
	return 0, false, nil
}

func (m *memoryObjects) ForceUnregister(_ context.Context, id catalog.IntID) error {
	m.unregistered = append(m.unregistered, id)
	return nil
}

func TestMaintenance_CheckThenRebuild(t *testing.T) {
	ctx := context.Background()
	source, _ := newTestSource(t)
	metadata, err := source.Get(MetadataCatalog)
	require.NoError(t, err)
	library, err := source.Get(LibraryCatalog)
	require.NoError(t, err)

	objects := &memoryObjects{objects: map[catalog.IntID]map[string]any{
		1: note("alice", nil),
		2: note("bob", map[string]any{"isDeleted": true}),
		3: note("carol", nil),
	}}
	for id, obj := range objects.objects {
		require.NoError(t, metadata.IndexObject(ctx, id, obj))
	}
	require.NoError(t, library.IndexObject(ctx, 2, map[string]any{"ntiid": "tag:pkg-2"}))

	// Object 2 disappears from the store
	delete(objects.objects, 2)

	report, err := catalog.NewChecker(source, objects).Check(ctx, catalog.CheckOptions{InspectStructure: true})
	require.NoError(t, err)
	assert.Equal(t, []catalog.IntID{2}, report.Missing)
	assert.Equal(t, 3, report.TotalIndexed)
	assert.Empty(t, collect(t, indexByName(t, library, "ntiid")))

	// Second check finds nothing left to remove
	report, err = catalog.NewChecker(source, objects).Check(ctx, catalog.CheckOptions{})
	require.NoError(t, err)
	assert.Empty(t, report.Missing)
	assert.Equal(t, 2, report.TotalIndexed)

	rebuilt, err := catalog.NewRebuilder(source, objects, objects).Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rebuilt.Total)
	assert.Equal(t, 2, rebuilt.Collected)

	assert.Equal(t, []catalog.IntID{1, 3}, collect(t, indexByName(t, metadata, "creator")))
	assert.Equal(t, []catalog.IntID{1, 3}, collect(t, indexByName(t, metadata, "topics")))
	filters, err := indexByName(t, metadata, "topics").(catalog.TopicIndex).Filters(ctx)
	require.NoError(t, err)
	assert.Len(t, filters, 3)
}

func TestMaintenance_RebuildSkippedIDIsReindexed(t *testing.T) {
	ctx := context.Background()
	source, store := newTestSource(t)
	metadata, err := source.Get(MetadataCatalog)
	require.NoError(t, err)

	objects := &memoryObjects{
		objects: map[catalog.IntID]map[string]any{
			4: note("alice", nil),
			5: note("bob", nil),
		},
		errs: map[catalog.IntID]error{},
	}
	for id, obj := range objects.objects {
		require.NoError(t, metadata.IndexObject(ctx, id, obj))
	}

	// The store fails transiently for id 5 during the rebuild
	objects.errs[5] = errors.New("connection reset")
	rebuilt, err := catalog.NewRebuilder(source, objects, objects).Rebuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rebuilt.Total)
	assert.Equal(t, 1, rebuilt.Skipped)
	assert.Equal(t, []catalog.IntID{4}, collect(t, indexByName(t, metadata, "creator")))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[MetadataCatalog])

	// Once the store recovers a regular index writes the entry again
	delete(objects.errs, 5)
	require.NoError(t, metadata.IndexObject(ctx, 5, objects.objects[5]))
	assert.Equal(t, []catalog.IntID{4, 5}, collect(t, indexByName(t, metadata, "creator")))
}
