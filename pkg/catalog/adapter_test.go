package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectIDs_ValueAndKeyword(t *testing.T) {
	ctx := context.Background()

	value := &mockIndex{name: "mimeType", kind: IndexKindValue, ids: []IntID{9, 3, 3, 1}}
	ids, err := CollectIDs(ctx, value, CollectOptions{})
	require.NoError(t, err)
	assert.Equal(t, []IntID{1, 3, 9}, ids)

	keyword := &mockIndex{name: "sharedWith", kind: IndexKindKeyword, ids: []IntID{4, 2}}
	ids, err = CollectIDs(ctx, keyword, CollectOptions{})
	require.NoError(t, err)
	assert.Equal(t, []IntID{2, 4}, ids)

	// Enumeration does not mutate the index
	assert.Equal(t, []IntID{9, 3, 3, 1}, value.ids)
}

func TestCollectIDs_TopicUnionsFilters(t *testing.T) {
	topic := &mockTopic{
		mockIndex: mockIndex{name: "topics", kind: IndexKindTopic},
		filters: []TopicFilter{
			&mockFilter{name: "isDeleted", ids: []IntID{5, 7}},
			namedFilter("extentless"),
			&mockFilter{name: "isTopLevelContent", ids: []IntID{7, 2}},
		},
	}

	ids, err := CollectIDs(context.Background(), topic, CollectOptions{})
	require.NoError(t, err)
	assert.Equal(t, []IntID{2, 5, 7}, ids)
}

func TestCollectIDs_UnknownKind(t *testing.T) {
	idx := &mockIndex{name: "odd", kind: IndexKindUnknown, ids: []IntID{1}}
	ids, err := CollectIDs(context.Background(), idx, CollectOptions{})
	assert.NoError(t, err)
	assert.Empty(t, ids)
}

func TestCollectIDs_StructureCheck(t *testing.T) {
	idx := &mockIndex{name: "creator", kind: IndexKindValue, ids: []IntID{1}, structErr: errors.New("btree mismatch")}

	ids, err := CollectIDs(context.Background(), idx, CollectOptions{})
	require.NoError(t, err)
	assert.Equal(t, []IntID{1}, ids)

	_, err = CollectIDs(context.Background(), idx, CollectOptions{InspectStructure: true})
	assert.ErrorContains(t, err, "btree mismatch")
}

func TestCatalogIDs_SkipsFailingIndex(t *testing.T) {
	cat := newMockCatalog("metadata",
		&mockIndex{name: "mimeType", kind: IndexKindValue, ids: []IntID{1, 2}},
		&mockIndex{name: "creator", kind: IndexKindValue, err: errors.New("corrupt index")},
		&mockIndex{name: "sharedWith", kind: IndexKindKeyword, ids: []IntID{2, 3}},
	)

	set, err := CatalogIDs(context.Background(), cat)
	require.NoError(t, err)
	assert.Equal(t, []IntID{1, 2, 3}, set.Sorted())
}

func TestCatalogIDs_IndexListFailure(t *testing.T) {
	cat := newMockCatalog("metadata")
	cat.indexErr = errors.New("catalog gone")

	_, err := CatalogIDs(context.Background(), cat)
	assert.Error(t, err)
}
