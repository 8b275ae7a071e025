package catalog

import "sort"

// Seen is the run-scoped set of ids already processed by one operation.
type Seen struct {
	ids map[IntID]struct{}
}

func NewSeen() *Seen {
	return &Seen{ids: make(map[IntID]struct{})}
}

// Add marks id as seen and reports whether it was new.
func (s *Seen) Add(id IntID) bool {
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

func (s *Seen) Has(id IntID) bool {
	_, ok := s.ids[id]
	return ok
}

func (s *Seen) Len() int {
	return len(s.ids)
}

// IDSet is an unordered set of ids.
type IDSet map[IntID]struct{}

func (s IDSet) Add(ids ...IntID) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []IntID {
	return sortIDs(s)
}

func sortIDs(set map[IntID]struct{}) []IntID {
	out := make([]IntID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// MimeTypeCount counts processed objects per mime type.
type MimeTypeCount map[string]int

func (c MimeTypeCount) Inc(mimeType string) {
	c[mimeType]++
}
