package index

import (
	"fmt"

	"github.com/beam-cloud/metacatalog/pkg/catalog"
)

// Class groups catalogs for selection.
type Class string

const (
	// ClassDeferred catalogs belong to the application and are checked by default
	ClassDeferred Class = "deferred"
	// ClassEdit catalogs are only selected when every catalog is requested
	ClassEdit Class = "edit"
)

// Extractor returns the values an index stores for an object.
type Extractor func(obj catalog.Object) []string

// Predicate reports whether an object belongs to a topic filter.
type Predicate func(obj catalog.Object) bool

// FilterDef is one named filter of a topic index.
type FilterDef struct {
	Name  string
	Match Predicate
}

// IndexDef describes one index of a catalog.
type IndexDef struct {
	Name    string
	Kind    catalog.IndexKind
	Extract Extractor   // value and keyword indexes
	Filters []FilterDef // topic indexes
}

// CatalogDef describes a catalog and its indexes.
type CatalogDef struct {
	Name    string
	Class   Class
	Indexes []IndexDef
}

// Validate checks that index names are unique and each index is usable.
func (d CatalogDef) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("catalog name is required")
	}

	names := make(map[string]struct{}, len(d.Indexes))
	for _, idx := range d.Indexes {
		if _, ok := names[idx.Name]; ok {
			return fmt.Errorf("catalog %s: duplicate index %s", d.Name, idx.Name)
		}
		names[idx.Name] = struct{}{}

		switch idx.Kind {
		case catalog.IndexKindValue, catalog.IndexKindKeyword:
			if idx.Extract == nil {
				return fmt.Errorf("catalog %s: index %s has no extractor", d.Name, idx.Name)
			}
		case catalog.IndexKindTopic:
			if len(idx.Filters) == 0 {
				return fmt.Errorf("catalog %s: topic index %s has no filters", d.Name, idx.Name)
			}
		default:
			return fmt.Errorf("catalog %s: index %s has unsupported kind %s", d.Name, idx.Name, idx.Kind)
		}
	}
	return nil
}

// Fields is implemented by objects that expose named attributes.
type Fields interface {
	Field(name string) any
}

func fieldOf(obj catalog.Object, name string) any {
	switch o := obj.(type) {
	case Fields:
		return o.Field(name)
	case map[string]any:
		return o[name]
	default:
		return nil
	}
}

func stringsOf(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case fmt.Stringer:
		return []string{t.String()}
	default:
		return nil
	}
}

func boolOf(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "1"
	default:
		return false
	}
}

// FieldValues extracts the string values of a named field.
func FieldValues(name string) Extractor {
	return func(obj catalog.Object) []string {
		return stringsOf(fieldOf(obj, name))
	}
}

// FieldTrue matches objects whose named field is true.
func FieldTrue(name string) Predicate {
	return func(obj catalog.Object) bool {
		return boolOf(fieldOf(obj, name))
	}
}

// MimeTypeValues extracts the content type of an object.
func MimeTypeValues(obj catalog.Object) []string {
	return []string{catalog.MimeTypeOf(obj)}
}
