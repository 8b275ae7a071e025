// Package catalog implements catalog maintenance: index enumeration, consistency
// checks, full rebuilds, per-principal reindexing and draining of the indexing queue.
//
// The object store, the catalogs and the queue are collaborators reached through the
// interfaces below; concrete backends live in pkg/index and pkg/repository.
package catalog

import "context"

// IntID is the integer handle the object store assigns to every indexable object.
type IntID int64

// IndexKind tags the structural variant of an index.
type IndexKind int

const (
	IndexKindUnknown IndexKind = iota
	IndexKindValue
	IndexKindKeyword
	IndexKindTopic
)

func (k IndexKind) String() string {
	switch k {
	case IndexKindValue:
		return "value"
	case IndexKindKeyword:
		return "keyword"
	case IndexKindTopic:
		return "topic"
	default:
		return "unknown"
	}
}

// Index is one named index of a catalog.
type Index interface {
	Name() string
	Kind() IndexKind
	Clear(ctx context.Context) error
}

// IDEnumerator is implemented by value and keyword indexes and by topic filters.
type IDEnumerator interface {
	IDs(ctx context.Context) ([]IntID, error)
}

// ValueLister exposes the distinct values held by a value index.
type ValueLister interface {
	Values(ctx context.Context) ([]string, error)
}

// TopicFilter is one named subset of a topic index. Filters that also implement
// IDEnumerator contribute their ids when the topic index is enumerated.
type TopicFilter interface {
	Name() string
}

// TopicIndex is an index made of named filters.
type TopicIndex interface {
	Index
	Filters(ctx context.Context) ([]TopicFilter, error)
}

// StructureChecker runs an index's internal self-consistency check.
type StructureChecker interface {
	CheckStructure(ctx context.Context) error
}

// Catalog is a named collection of indexes.
type Catalog interface {
	Name() string
	Indexes(ctx context.Context) ([]Index, error)
	Clear(ctx context.Context) error
	IndexObject(ctx context.Context, id IntID, obj Object) error
	ForceIndexObject(ctx context.Context, id IntID, obj Object) error
	UnindexObject(ctx context.Context, id IntID) error
}

// FilterRegistrar is implemented by catalogs whose topic filters must be
// registered again after a clear. EnsureFilters is idempotent.
type FilterRegistrar interface {
	EnsureFilters(ctx context.Context) error
}

// Selector picks a class of catalogs.
type Selector string

const (
	// SelectDeferred selects the application's deferred catalogs only
	SelectDeferred Selector = "deferred"
	// SelectAll selects every editable catalog
	SelectAll Selector = "all"
)

// CatalogSource yields catalogs.
type CatalogSource interface {
	Catalogs(ctx context.Context, selector Selector) ([]Catalog, error)
	// LibraryCatalog returns the content-library catalog, or nil when there is none.
	LibraryCatalog(ctx context.Context) (Catalog, error)
	// Canonical returns the catalog rebuilt from scratch by the Rebuilder.
	Canonical(ctx context.Context) (Catalog, error)
}

// Object is any store-resident entity. See MimeTypeOf and IsBroken for the
// capabilities the engine looks for.
type Object any

// Resolver resolves an id to its object. A nil object with a nil error means the
// object is missing; failures are reported as *ResolutionError.
type Resolver interface {
	Resolve(ctx context.Context, id IntID) (Object, error)
}

// IDTable maps objects to their ids.
type IDTable interface {
	// IDOf returns the id of obj; ok is false when obj is not registered.
	IDOf(ctx context.Context, obj Object) (id IntID, ok bool, err error)
	// ForceUnregister drops id from the table; absent ids are not an error.
	ForceUnregister(ctx context.Context, id IntID) error
}

// Principal is a user or the system principal.
type Principal interface {
	Name() string
}

// PrincipalDirectory looks principals up by name.
type PrincipalDirectory interface {
	Lookup(ctx context.Context, name string) (Principal, error)
	AllPrincipalNames(ctx context.Context) ([]string, error)
	SearchPrincipalNames(ctx context.Context, prefix string) ([]string, error)
	SystemPrincipal() Principal
}

// OwnedObjects enumerates the indexable objects owned by (or shared with) a
// principal. fn receives a non-nil error for objects that failed to load; returning
// an error from fn stops the enumeration.
type OwnedObjects interface {
	OwnedObjects(ctx context.Context, p Principal, fn func(obj Object, err error) error) error
}

// JobOp is the mutation performed by a queued job.
type JobOp string

const (
	JobOpIndex   JobOp = "index"
	JobOpUnindex JobOp = "unindex"
)

// Job is a pending request to (re)index one identifier.
type Job struct {
	ID IntID `json:"id"`
	Op JobOp `json:"op"`
}

// Queue is the asynchronous indexing queue. At most one job is pending per id;
// enqueueing an already queued id replaces its operation.
type Queue interface {
	Enqueue(ctx context.Context, id IntID) error
	EnqueueJob(ctx context.Context, job Job) error
	// Pop removes the oldest job; it returns nil, nil when the queue is empty.
	Pop(ctx context.Context) (*Job, error)
	Len(ctx context.Context) (int64, error)
	Keys(ctx context.Context) ([]IntID, error)
	Clear(ctx context.Context) error
}

// QueueLocker is implemented by queues that can be drained by one runner at a time.
type QueueLocker interface {
	LockDrain(ctx context.Context) (release func(), err error)
}
