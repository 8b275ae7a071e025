package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexDocument(t *testing.T) {
	metadata := newMockCatalog("metadata")
	entities := newMockCatalog("entities")
	library := newMockCatalog("library")
	source := &mockSource{catalogs: []Catalog{metadata, entities}, library: library}

	obj := &testObject{id: 5, mime: "application/vnd.note"}
	report, err := IndexDocument(context.Background(), source, 5, obj)
	require.NoError(t, err)
	assert.Equal(t, []string{"metadata", "entities", "library"}, report.Catalogs)
	assert.Equal(t, []Selector{SelectAll}, source.selected)

	for _, cat := range []*mockCatalog{metadata, entities, library} {
		assert.Equal(t, []IntID{5}, cat.forced, cat.name)
	}
}

func TestIndexDocument_PartialFailure(t *testing.T) {
	metadata := newMockCatalog("metadata")
	entities := newMockCatalog("entities")
	entities.forceErr[5] = errors.New("disk full")
	source := &mockSource{catalogs: []Catalog{metadata, entities}}

	report, err := IndexDocument(context.Background(), source, 5, &testObject{id: 5})
	assert.ErrorContains(t, err, "index into entities: disk full")
	require.NotNil(t, report)
	assert.Equal(t, []IntID{5}, metadata.forced)
}

func TestIndexDocument_NilObject(t *testing.T) {
	source := &mockSource{catalogs: []Catalog{newMockCatalog("metadata")}}

	_, err := IndexDocument(context.Background(), source, 5, nil)
	kind, ok := ResolutionKind(err)
	assert.True(t, ok)
	assert.Equal(t, Missing, kind)
	assert.Empty(t, source.selected)
}

func TestUnindexDocument(t *testing.T) {
	metadata := newMockCatalog("metadata")
	library := newMockCatalog("library")
	source := &mockSource{catalogs: []Catalog{metadata}, library: library}

	report, err := UnindexDocument(context.Background(), source, 9)
	require.NoError(t, err)
	assert.Equal(t, IntID(9), report.ID)
	assert.Equal(t, []IntID{9}, metadata.unindexed)
	assert.Equal(t, []IntID{9}, library.unindexed)
}
