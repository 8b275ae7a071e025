package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/beam-cloud/metacatalog/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebuilder_Rebuild(t *testing.T) {
	store := newMockStore(
		&testObject{id: 1, mime: "application/vnd.note"},
		&testObject{id: 2, mime: "application/vnd.highlight"},
		&testObject{id: 4, mime: "application/vnd.note"},
	)
	mime := &mockIndex{name: "mimeType", kind: IndexKindValue, ids: []IntID{1, 2, 3}}
	shared := &mockIndex{name: "sharedWith", kind: IndexKindKeyword, ids: []IntID{2, 4}}
	topic := &mockTopic{
		mockIndex: mockIndex{name: "topics", kind: IndexKindTopic},
		filters:   []TopicFilter{&mockFilter{name: "isDeleted", ids: []IntID{4}}},
	}
	cat := newMockCatalog("metadata", mime, shared, topic)
	cat.forceErr[4] = NewResolutionError(4, TypeMismatch, "LegacyNote", nil)

	report, err := NewRebuilder(&mockSource{catalogs: []Catalog{cat}}, store, store).Rebuild(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "metadata", report.Catalog)
	assert.Equal(t, 4, report.Collected)
	assert.Equal(t, 2, report.Total)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Failed)

	// Every index cleared before re-population, filters restored once
	assert.Equal(t, 1, mime.cleared)
	assert.Equal(t, 1, shared.cleared)
	assert.Equal(t, 1, topic.cleared)
	assert.Equal(t, 1, cat.ensured)

	assert.Equal(t, []IntID{1, 2}, cat.forced)
	assert.Equal(t, []IntID{4}, store.unregistered)
}

func TestRebuilder_EmptyCatalog(t *testing.T) {
	cat := newMockCatalog("metadata", &mockIndex{name: "mimeType", kind: IndexKindValue})

	report, err := NewRebuilder(&mockSource{catalogs: []Catalog{cat}}, newMockStore(), newMockStore()).Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total)
	assert.Equal(t, 1, cat.ensured)
}

func TestRebuilder_SkipsUnresolvable(t *testing.T) {
	store := newMockStore(&testObject{id: 2, mime: "application/vnd.note"})
	store.errs[1] = NewResolutionError(1, Corrupt, "", errors.New("bad payload"))
	cat := newMockCatalog("metadata", &mockIndex{name: "mimeType", kind: IndexKindValue, ids: []IntID{1, 2}})

	report, err := NewRebuilder(&mockSource{catalogs: []Catalog{cat}}, store, store).Rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 1, report.Skipped)
	assert.Empty(t, store.unregistered)
}

func TestRebuilder_SetupErrors(t *testing.T) {
	store := newMockStore()

	_, err := NewRebuilder(&mockSource{}, store, store).Rebuild(context.Background())
	assert.ErrorContains(t, err, "canonical catalog")

	_, err = NewRebuilder(&mockSource{}, store, nil).Rebuild(context.Background())
	assert.ErrorIs(t, err, types.ErrCollaboratorUnavailable)
}
