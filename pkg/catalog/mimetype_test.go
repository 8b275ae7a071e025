package catalog

import (
	"context"
	"testing"

	"github.com/beam-cloud/metacatalog/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contentTyped struct{}

func (contentTyped) ContentType() string { return "text/html" }
func (contentTyped) MimeType() string    { return "application/ignored" }

func TestMimeTypeOf(t *testing.T) {
	assert.Equal(t, "text/html", MimeTypeOf(contentTyped{}))
	assert.Equal(t, "application/vnd.note", MimeTypeOf(&testObject{mime: "application/vnd.note"}))
	assert.Equal(t, "application/pdf", MimeTypeOf(map[string]any{"mimeType": "application/pdf"}))
	assert.Equal(t, "image/png", MimeTypeOf(map[string]any{"mime_type": "image/png"}))
	assert.Equal(t, UnknownMimeType, MimeTypeOf(map[string]any{}))
	assert.Equal(t, UnknownMimeType, MimeTypeOf(42))
	assert.Equal(t, UnknownMimeType, MimeTypeOf(nil))
}

func TestParseAccept(t *testing.T) {
	accept, err := ParseAccept(nil)
	require.NoError(t, err)
	assert.True(t, accept.Accepts("anything/at-all"))

	accept, err = ParseAccept([]string{"text/plain, application/pdf", "", "unknown"})
	require.NoError(t, err)
	assert.True(t, accept.Accepts("text/plain"))
	assert.True(t, accept.Accepts("application/pdf"))
	assert.True(t, accept.Accepts(UnknownMimeType))
	assert.False(t, accept.Accepts("image/png"))

	accept, err = ParseAccept([]string{"text/plain", AnyMimeType})
	require.NoError(t, err)
	assert.Nil(t, accept)

	// Bare names are matched verbatim
	accept, err = ParseAccept([]string{" note ,forum"})
	require.NoError(t, err)
	assert.True(t, accept.Accepts("note"))
	assert.True(t, accept.Accepts("forum"))
	assert.False(t, accept.Accepts("application/vnd.note"))

	_, err = ParseAccept([]string{"not a type"})
	assert.ErrorIs(t, err, types.ErrInvalidAcceptType)
	_, err = ParseAccept([]string{"text/plain\x00"})
	assert.ErrorIs(t, err, types.ErrInvalidAcceptType)
}

type valuesIndex struct {
	mockIndex
	values []string
}

func (v *valuesIndex) Values(context.Context) ([]string, error) { return v.values, nil }

func TestIndexedMimeTypes(t *testing.T) {
	a := newMockCatalog("metadata", &valuesIndex{
		mockIndex: mockIndex{name: IndexMimeType, kind: IndexKindValue},
		values:    []string{"text/plain", "application/pdf"},
	})
	b := newMockCatalog("library", &valuesIndex{
		mockIndex: mockIndex{name: IndexMimeType, kind: IndexKindValue},
		values:    []string{"text/plain", "image/png"},
	}, &valuesIndex{
		mockIndex: mockIndex{name: "ntiid", kind: IndexKindValue},
		values:    []string{"tag:ignored"},
	})

	got, err := IndexedMimeTypes(context.Background(), []Catalog{a, b})
	require.NoError(t, err)
	assert.Equal(t, []string{"application/pdf", "image/png", "text/plain"}, got)
}
