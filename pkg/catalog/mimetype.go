package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/beam-cloud/metacatalog/pkg/types"
	"github.com/rs/zerolog/log"
)

const (
	// UnknownMimeType is reported for objects without a content type
	UnknownMimeType = "unknown"
	// AnyMimeType in an accept list disables filtering
	AnyMimeType = "*/*"
	// IndexMimeType is the conventional name of the mime type value index
	IndexMimeType = "mimeType"
)

// ContentTypeAware is the preferred source of an object's content type.
type ContentTypeAware interface {
	ContentType() string
}

// MimeTyped objects expose a mime type attribute.
type MimeTyped interface {
	MimeType() string
}

// Breakable objects carry a corrupt-object marker.
type Breakable interface {
	IsBroken() bool
}

// TypeNamer objects report the stored class name used in broken reports.
type TypeNamer interface {
	TypeName() string
}

// MimeTypeOf returns the content type of obj, UnknownMimeType when it has none.
func MimeTypeOf(obj Object) string {
	if ct, ok := obj.(ContentTypeAware); ok {
		if v := ct.ContentType(); v != "" {
			return v
		}
	}
	if mt, ok := obj.(MimeTyped); ok {
		if v := mt.MimeType(); v != "" {
			return v
		}
	}
	if m, ok := obj.(map[string]any); ok {
		for _, key := range []string{"mimeType", "mime_type"} {
			if v, ok := m[key].(string); ok && v != "" {
				return v
			}
		}
	}
	return UnknownMimeType
}

// IsBroken reports whether obj carries the corrupt-object marker.
func IsBroken(obj Object) bool {
	b, ok := obj.(Breakable)
	return ok && b.IsBroken()
}

// TypeName describes obj's type for reports.
func TypeName(obj Object) string {
	if obj == nil {
		return "<nil>"
	}
	if tn, ok := obj.(TypeNamer); ok {
		if v := tn.TypeName(); v != "" {
			return v
		}
	}
	return fmt.Sprintf("%T", obj)
}

// AcceptSet is a normalised accepted mime type filter. A nil set accepts everything.
type AcceptSet map[string]struct{}

// ParseAccept normalises a list of accepted mime types. Entries may themselves be
// comma separated and are compared verbatim. An empty list or one containing */*
// accepts everything.
func ParseAccept(values []string) (AcceptSet, error) {
	accept := AcceptSet{}
	for _, value := range values {
		for _, mt := range strings.Split(value, ",") {
			mt = strings.TrimSpace(mt)
			if mt == "" {
				continue
			}
			if mt == AnyMimeType {
				return nil, nil
			}
			if !validMimeType(mt) {
				return nil, fmt.Errorf("%w: %q", types.ErrInvalidAcceptType, mt)
			}
			accept[mt] = struct{}{}
		}
	}
	if len(accept) == 0 {
		return nil, nil
	}
	return accept, nil
}

// Accepts reports whether mimeType passes the filter.
func (a AcceptSet) Accepts(mimeType string) bool {
	if len(a) == 0 {
		return true
	}
	_, ok := a[mimeType]
	return ok
}

// validMimeType rejects entries with whitespace or control characters. Bare
// names such as "note" are matched literally.
func validMimeType(mt string) bool {
	return strings.IndexFunc(mt, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) < 0
}

// IndexedMimeTypes returns the sorted union of the values held by the mime type
// value index of every catalog.
func IndexedMimeTypes(ctx context.Context, catalogs []Catalog) ([]string, error) {
	seen := make(map[string]struct{})
	for _, cat := range catalogs {
		indexes, err := cat.Indexes(ctx)
		if err != nil {
			return nil, fmt.Errorf("list indexes of %s: %w", cat.Name(), err)
		}
		for _, idx := range indexes {
			if idx.Name() != IndexMimeType || idx.Kind() != IndexKindValue {
				continue
			}
			lister, ok := idx.(ValueLister)
			if !ok {
				continue
			}
			values, err := lister.Values(ctx)
			if err != nil {
				log.Error().Err(err).Str("catalog", cat.Name()).Str("index", idx.Name()).Msg("failed to list index values")
				continue
			}
			for _, v := range values {
				seen[v] = struct{}{}
			}
		}
	}

	result := make([]string, 0, len(seen))
	for v := range seen {
		result = append(result, v)
	}
	sort.Strings(result)
	return result, nil
}
