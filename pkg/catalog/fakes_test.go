package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// --- Objects ---

type testObject struct {
	id     IntID
	mime   string
	broken bool
}

func (o *testObject) MimeType() string { return o.mime }
func (o *testObject) IsBroken() bool   { return o.broken }
func (o *testObject) TypeName() string { return "TestObject" }

// --- Mock Indexes ---

type mockIndex struct {
	name      string
	kind      IndexKind
	ids       []IntID
	err       error
	structErr error
	cleared   int
}

func (i *mockIndex) Name() string    { return i.name }
func (i *mockIndex) Kind() IndexKind { return i.kind }

func (i *mockIndex) Clear(context.Context) error {
	i.cleared++
	i.ids = nil
	return nil
}

func (i *mockIndex) IDs(context.Context) ([]IntID, error) {
	if i.err != nil {
		return nil, i.err
	}
	return append([]IntID(nil), i.ids...), nil
}

func (i *mockIndex) CheckStructure(context.Context) error { return i.structErr }

type mockFilter struct {
	name string
	ids  []IntID
}

func (f *mockFilter) Name() string                         { return f.name }
func (f *mockFilter) IDs(context.Context) ([]IntID, error) { return f.ids, nil }

// namedFilter has no ids
type namedFilter string

func (f namedFilter) Name() string { return string(f) }

type mockTopic struct {
	mockIndex
	filters []TopicFilter
}

func (t *mockTopic) Filters(context.Context) ([]TopicFilter, error) { return t.filters, nil }

// --- Mock Catalog ---

type mockCatalog struct {
	mu         sync.Mutex
	name       string
	indexes    []Index
	indexErr   error
	indexed    map[IntID]Object
	forced     []IntID
	unindexed  []IntID
	forceErr   map[IntID]error
	indexObjEr error
	ensured    int
}

func newMockCatalog(name string, indexes ...Index) *mockCatalog {
	return &mockCatalog{
		name:     name,
		indexes:  indexes,
		indexed:  make(map[IntID]Object),
		forceErr: make(map[IntID]error),
	}
}

func (c *mockCatalog) Name() string { return c.name }

func (c *mockCatalog) Indexes(context.Context) ([]Index, error) {
	if c.indexErr != nil {
		return nil, c.indexErr
	}
	return c.indexes, nil
}

func (c *mockCatalog) Clear(ctx context.Context) error {
	for _, idx := range c.indexes {
		if err := idx.Clear(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *mockCatalog) IndexObject(_ context.Context, id IntID, obj Object) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.indexObjEr != nil {
		return c.indexObjEr
	}
	c.indexed[id] = obj
	return nil
}

func (c *mockCatalog) ForceIndexObject(_ context.Context, id IntID, obj Object) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.forceErr[id]; err != nil {
		return err
	}
	c.forced = append(c.forced, id)
	c.indexed[id] = obj
	return nil
}

func (c *mockCatalog) UnindexObject(_ context.Context, id IntID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unindexed = append(c.unindexed, id)
	delete(c.indexed, id)
	return nil
}

func (c *mockCatalog) EnsureFilters(context.Context) error {
	c.ensured++
	return nil
}

// --- Mock CatalogSource ---

type mockSource struct {
	catalogs []Catalog
	library  Catalog
	err      error
	selected []Selector
}

func (s *mockSource) Catalogs(_ context.Context, sel Selector) ([]Catalog, error) {
	s.selected = append(s.selected, sel)
	if s.err != nil {
		return nil, s.err
	}
	return append([]Catalog(nil), s.catalogs...), nil
}

func (s *mockSource) LibraryCatalog(context.Context) (Catalog, error) { return s.library, nil }

func (s *mockSource) Canonical(context.Context) (Catalog, error) {
	if len(s.catalogs) == 0 {
		return nil, errors.New("no catalogs")
	}
	return s.catalogs[0], nil
}

// --- Mock Resolver / IDTable ---

type mockStore struct {
	mu           sync.Mutex
	objects      map[IntID]Object
	errs         map[IntID]error
	idErrs       map[IntID]error
	unregistered []IntID
	resolved     int
}

func newMockStore(objects ...*testObject) *mockStore {
	s := &mockStore{
		objects: make(map[IntID]Object),
		errs:    make(map[IntID]error),
		idErrs:  make(map[IntID]error),
	}
	for _, obj := range objects {
		s.objects[obj.id] = obj
	}
	return s
}

func (s *mockStore) Resolve(_ context.Context, id IntID) (Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolved++
	if err := s.errs[id]; err != nil {
		return nil, err
	}
	return s.objects[id], nil
}

func (s *mockStore) IDOf(_ context.Context, obj Object) (IntID, bool, error) {
	o, ok := obj.(*testObject)
	if !ok {
		return 0, false, nil
	}
	if err := s.idErrs[o.id]; err != nil {
		return 0, false, err
	}
	if o.id <= 0 {
		return 0, false, nil
	}
	return o.id, true, nil
}

func (s *mockStore) ForceUnregister(_ context.Context, id IntID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unregistered = append(s.unregistered, id)
	return nil
}

// --- Mock Principals ---

type testPrincipal string

func (p testPrincipal) Name() string { return string(p) }

type mockDirectory struct {
	names  []string
	system Principal
}

func (d *mockDirectory) Lookup(_ context.Context, name string) (Principal, error) {
	for _, n := range d.names {
		if strings.EqualFold(n, name) {
			return testPrincipal(n), nil
		}
	}
	return nil, errors.New("principal not found: " + name)
}

func (d *mockDirectory) AllPrincipalNames(context.Context) ([]string, error) {
	return d.names, nil
}

func (d *mockDirectory) SearchPrincipalNames(_ context.Context, prefix string) ([]string, error) {
	var out []string
	for _, n := range d.names {
		if strings.HasPrefix(strings.ToLower(n), strings.ToLower(prefix)) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (d *mockDirectory) SystemPrincipal() Principal { return d.system }

type mockOwned struct {
	objects map[string][]Object
	errs    map[string][]error
	fail    map[string]error
}

func (o *mockOwned) OwnedObjects(_ context.Context, p Principal, fn func(Object, error) error) error {
	if err := o.fail[p.Name()]; err != nil {
		return err
	}
	for _, err := range o.errs[p.Name()] {
		if err := fn(nil, err); err != nil {
			return err
		}
	}
	for _, obj := range o.objects[p.Name()] {
		if err := fn(obj, nil); err != nil {
			return err
		}
	}
	return nil
}

// --- Mock Queue ---

type mockQueue struct {
	mu       sync.Mutex
	jobs     []Job
	popErr   error
	pushErr  error
	locked   int
	released int
}

func (q *mockQueue) Enqueue(ctx context.Context, id IntID) error {
	return q.EnqueueJob(ctx, Job{ID: id, Op: JobOpIndex})
}

func (q *mockQueue) EnqueueJob(_ context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pushErr != nil {
		return q.pushErr
	}
	for i := range q.jobs {
		if q.jobs[i].ID == job.ID {
			q.jobs[i].Op = job.Op
			return nil
		}
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *mockQueue) Pop(context.Context) (*Job, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.popErr != nil {
		return nil, q.popErr
	}
	if len(q.jobs) == 0 {
		return nil, nil
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return &job, nil
}

func (q *mockQueue) Len(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.jobs)), nil
}

func (q *mockQueue) Keys(context.Context) ([]IntID, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	ids := make([]IntID, 0, len(q.jobs))
	for _, job := range q.jobs {
		ids = append(ids, job.ID)
	}
	return ids, nil
}

func (q *mockQueue) Clear(context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = nil
	return nil
}

func (q *mockQueue) LockDrain(context.Context) (func(), error) {
	q.locked++
	return func() { q.released++ }, nil
}

func (q *mockQueue) ids() []IntID {
	ids, _ := q.Keys(context.Background())
	return ids
}
