package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/beam-cloud/metacatalog/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReindexFixture() (*mockDirectory, *mockOwned, *mockStore) {
	note := &testObject{id: 1, mime: "application/vnd.note"}
	shared := &testObject{id: 2, mime: "application/vnd.highlight"}
	bookmark := &testObject{id: 3, mime: "application/vnd.bookmark"}
	system := &testObject{id: 4, mime: "application/vnd.note"}
	unregistered := &testObject{id: 0, mime: "application/vnd.note"}

	directory := &mockDirectory{
		names:  []string{"alice", "bob", "alfred"},
		system: testPrincipal("system.user"),
	}
	owned := &mockOwned{
		objects: map[string][]Object{
			"alice":       {note, shared, unregistered},
			"bob":         {shared, bookmark},
			"system.user": {system},
		},
		errs: map[string][]error{},
		fail: map[string]error{},
	}
	return directory, owned, newMockStore(note, shared, bookmark, system)
}

func TestReindexer_DeduplicatesAcrossPrincipals(t *testing.T) {
	directory, owned, store := newReindexFixture()
	queue := &mockQueue{}

	report, err := NewReindexer(directory, owned, store, queue).Reindex(context.Background(), ReindexRequest{
		Usernames: []string{"alice,bob", "Alice"},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, []IntID{1, 2, 3}, queue.ids())
	assert.Equal(t, MimeTypeCount{
		"application/vnd.note":      1,
		"application/vnd.highlight": 1,
		"application/vnd.bookmark":  1,
	}, report.MimeTypeCount)
	assert.Equal(t, []string{"alice", "bob"}, report.Principals)
	assert.Empty(t, report.Skipped)
}

func TestReindexer_AcceptFilter(t *testing.T) {
	directory, owned, store := newReindexFixture()
	queue := &mockQueue{}

	report, err := NewReindexer(directory, owned, store, queue).Reindex(context.Background(), ReindexRequest{
		AllPrincipals: true,
		Accept:        []string{"application/vnd.note", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, []IntID{1}, queue.ids())

	// */* accepts everything
	queue = &mockQueue{}
	report, err = NewReindexer(directory, owned, store, queue).Reindex(context.Background(), ReindexRequest{
		AllPrincipals: true,
		Accept:        []string{"application/vnd.note", "*/*"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
}

func TestReindexer_InvalidAccept(t *testing.T) {
	directory, owned, store := newReindexFixture()
	queue := &mockQueue{}

	_, err := NewReindexer(directory, owned, store, queue).Reindex(context.Background(), ReindexRequest{
		AllPrincipals: true,
		Accept:        []string{"application/vnd.note", "bad\ttype"},
	})
	assert.ErrorIs(t, err, types.ErrInvalidAcceptType)
	assert.Empty(t, queue.ids())
}

func TestReindexer_AcceptBareNames(t *testing.T) {
	first := &testObject{id: 2, mime: "note"}
	second := &testObject{id: 3, mime: "note"}
	forum := &testObject{id: 1, mime: "forum"}

	directory := &mockDirectory{names: []string{"alice"}, system: testPrincipal("system.user")}
	owned := &mockOwned{
		objects: map[string][]Object{"alice": {first, forum, second}},
		errs:    map[string][]error{},
		fail:    map[string]error{},
	}
	queue := &mockQueue{}

	report, err := NewReindexer(directory, owned, newMockStore(first, second, forum), queue).Reindex(context.Background(), ReindexRequest{
		Usernames: []string{"alice"},
		Accept:    []string{"note"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Total)
	assert.Equal(t, MimeTypeCount{"note": 2}, report.MimeTypeCount)
	assert.Equal(t, []IntID{2, 3}, queue.ids())
}

func TestReindexer_SystemSharesObjectWithUser(t *testing.T) {
	shared := &testObject{id: 42, mime: "application/vnd.note"}

	directory := &mockDirectory{names: []string{"alice"}, system: testPrincipal("system.user")}
	owned := &mockOwned{
		objects: map[string][]Object{
			"alice":       {shared},
			"system.user": {shared},
		},
		errs: map[string][]error{},
		fail: map[string]error{},
	}
	queue := &mockQueue{}

	report, err := NewReindexer(directory, owned, newMockStore(shared), queue).Reindex(context.Background(), ReindexRequest{
		Usernames:     []string{"alice"},
		IncludeSystem: true,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Total)
	assert.Equal(t, []IntID{42}, queue.ids())
	assert.Equal(t, []string{"alice", "system.user"}, report.Principals)
}

func TestReindexer_SystemAndTerm(t *testing.T) {
	directory, owned, store := newReindexFixture()
	queue := &mockQueue{}

	report, err := NewReindexer(directory, owned, store, queue).Reindex(context.Background(), ReindexRequest{
		Term:          "al",
		IncludeSystem: true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "alfred", "system.user"}, report.Principals)
	assert.Equal(t, []IntID{1, 2, 4}, queue.ids())
}

func TestReindexer_SkipsUnknownAndFailingPrincipals(t *testing.T) {
	directory, owned, store := newReindexFixture()
	owned.fail["bob"] = errors.New("owner index unavailable")
	owned.errs["alice"] = []error{NewResolutionError(9, Corrupt, "", errors.New("bad record"))}
	queue := &mockQueue{}

	report, err := NewReindexer(directory, owned, store, queue).Reindex(context.Background(), ReindexRequest{
		Usernames: []string{"mallory", "bob", "alice"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"alice"}, report.Principals)
	assert.Equal(t, []string{"mallory", "bob"}, report.Skipped)
	assert.Equal(t, 2, report.Total)
}

func TestReindexer_EnqueueFailurePropagates(t *testing.T) {
	directory, owned, store := newReindexFixture()
	queue := &mockQueue{pushErr: errors.New("queue down")}

	_, err := NewReindexer(directory, owned, store, queue).Reindex(context.Background(), ReindexRequest{
		Usernames: []string{"alice"},
	})
	assert.ErrorContains(t, err, "queue down")
}

func TestReindexer_Unavailable(t *testing.T) {
	directory, owned, store := newReindexFixture()
	_, err := NewReindexer(directory, owned, store, nil).Reindex(context.Background(), ReindexRequest{})
	assert.ErrorIs(t, err, types.ErrCollaboratorUnavailable)
}
