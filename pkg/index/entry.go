package index

import (
	"sort"
	"strconv"
	"strings"

	"github.com/beam-cloud/metacatalog/pkg/catalog"
	"github.com/cespare/xxhash/v2"
)

// Entry is what a catalog stores for one object: the values extracted for each
// value and keyword index, and the topic filters the object belongs to.
type Entry struct {
	ID catalog.IntID `json:"id"`

	// Values maps an index name to the sorted values stored for the object
	Values map[string][]string `json:"values"`

	// Filters maps a topic index name to the sorted filters the object matches
	Filters map[string][]string `json:"filters"`
}

// NewEntry extracts the entry of obj according to def.
func NewEntry(def CatalogDef, id catalog.IntID, obj catalog.Object) *Entry {
	entry := &Entry{
		ID:      id,
		Values:  make(map[string][]string),
		Filters: make(map[string][]string),
	}

	for _, idx := range def.Indexes {
		switch idx.Kind {
		case catalog.IndexKindValue, catalog.IndexKindKeyword:
			values := normalize(idx.Extract(obj))
			if idx.Kind == catalog.IndexKindValue && len(values) > 1 {
				values = values[:1]
			}
			sort.Strings(values)
			if len(values) > 0 {
				entry.Values[idx.Name] = values
			}
		case catalog.IndexKindTopic:
			var matched []string
			for _, filter := range idx.Filters {
				if filter.Match(obj) {
					matched = append(matched, filter.Name)
				}
			}
			if len(matched) > 0 {
				sort.Strings(matched)
				entry.Filters[idx.Name] = matched
			}
		}
	}
	return entry
}

// Fingerprint hashes the entry content. Two entries with the same fingerprint
// store identical rows.
func (e *Entry) Fingerprint() int64 {
	digest := xxhash.New()
	writeSection(digest, "v", e.Values)
	writeSection(digest, "f", e.Filters)
	return int64(digest.Sum64())
}

func writeSection(d *xxhash.Digest, tag string, section map[string][]string) {
	names := make([]string, 0, len(section))
	for name := range section {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		_, _ = d.WriteString(tag)
		_, _ = d.WriteString(strconv.Itoa(len(name)))
		_, _ = d.WriteString(name)
		for _, v := range section[name] {
			_, _ = d.WriteString("\x00")
			_, _ = d.WriteString(v)
		}
		_, _ = d.WriteString("\x01")
	}
}

// normalize trims, drops empty values and de-duplicates in order.
func normalize(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
