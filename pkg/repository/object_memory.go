package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/beam-cloud/metacatalog/pkg/catalog"
	"github.com/beam-cloud/metacatalog/pkg/types"
	"github.com/google/uuid"
)

// ObjectMemoryRepository implements ObjectRepository using in-memory storage.
// This is used for local mode where we don't have Postgres.
type ObjectMemoryRepository struct {
	mu         sync.RWMutex
	principals map[string]*types.Principal // lower-cased name
	records    map[string]*objectRecord    // external id
	ids        map[catalog.IntID]string    // intid -> external id
	nextOID    uint
	nextIntID  int64
}

// NewObjectMemoryRepository creates a new in-memory object repository
func NewObjectMemoryRepository() *ObjectMemoryRepository {
	r := &ObjectMemoryRepository{
		principals: make(map[string]*types.Principal),
		records:    make(map[string]*objectRecord),
		ids:        make(map[catalog.IntID]string),
	}
	r.principals[types.SystemPrincipalName] = &types.Principal{
		Id:        1,
		Username:  types.SystemPrincipalName,
		Kind:      types.PrincipalKindSystem,
		CreatedAt: time.Now(),
	}
	return r
}

func (r *ObjectMemoryRepository) CreatePrincipal(ctx context.Context, name string, kind types.PrincipalKind) (*types.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.principals[strings.ToLower(name)]; ok {
		return p, nil
	}
	p := &types.Principal{
		Id:        uint(len(r.principals) + 1),
		Username:  name,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
	r.principals[strings.ToLower(name)] = p
	return p, nil
}

func (r *ObjectMemoryRepository) Lookup(ctx context.Context, name string) (catalog.Principal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.principals[strings.ToLower(name)]
	if !ok || p.Kind != types.PrincipalKindUser {
		return nil, &types.ErrPrincipalNotFound{Name: name}
	}
	return p, nil
}

func (r *ObjectMemoryRepository) AllPrincipalNames(ctx context.Context) ([]string, error) {
	return r.principalNames(""), nil
}

func (r *ObjectMemoryRepository) SearchPrincipalNames(ctx context.Context, prefix string) ([]string, error) {
	return r.principalNames(strings.ToLower(prefix)), nil
}

func (r *ObjectMemoryRepository) principalNames(prefix string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for key, p := range r.principals {
		if p.Kind == types.PrincipalKindUser && strings.HasPrefix(key, prefix) {
			names = append(names, p.Username)
		}
	}
	sort.Strings(names)
	return names
}

func (r *ObjectMemoryRepository) SystemPrincipal() catalog.Principal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.principals[types.SystemPrincipalName]
}

func (r *ObjectMemoryRepository) SaveObject(ctx context.Context, obj *types.Object) (*types.Object, error) {
	payload, err := encodePayload(obj)
	if err != nil {
		return nil, err
	}
	return r.save(obj, payload)
}

// SaveRaw stores obj with a raw, possibly undecodable, payload.
func (r *ObjectMemoryRepository) SaveRaw(obj *types.Object, payload string) (*types.Object, error) {
	return r.save(obj, payload)
}

func (r *ObjectMemoryRepository) save(obj *types.Object, payload string) (*types.Object, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.principals[strings.ToLower(obj.Owner)]; !ok {
		return nil, &types.ErrPrincipalNotFound{Name: obj.Owner}
	}

	now := time.Now()
	rec, ok := r.records[obj.ExternalId]
	if !ok {
		r.nextOID++
		rec = &objectRecord{
			Id:         r.nextOID,
			ExternalId: uuid.New().String(),
			CreatedAt:  now,
		}
	}
	if rec.IntID == 0 {
		r.nextIntID++
		rec.IntID = r.nextIntID
	}

	rec.Owner = obj.Owner
	rec.Class = obj.Class
	rec.Mime = obj.Mime
	rec.Payload = payload
	rec.Broken = obj.Broken
	rec.UpdatedAt = now

	r.records[rec.ExternalId] = rec
	r.ids[catalog.IntID(rec.IntID)] = rec.ExternalId

	saved := *obj
	saved.Id = rec.Id
	saved.ExternalId = rec.ExternalId
	saved.IntID = rec.IntID
	saved.CreatedAt = rec.CreatedAt
	saved.UpdatedAt = rec.UpdatedAt
	return &saved, nil
}

func (r *ObjectMemoryRepository) record(id catalog.IntID) *objectRecord {
	ext, ok := r.ids[id]
	if !ok {
		return nil
	}
	return r.records[ext]
}

func (r *ObjectMemoryRepository) Resolve(ctx context.Context, id catalog.IntID) (catalog.Object, error) {
	r.mu.RLock()
	rec := r.record(id)
	r.mu.RUnlock()

	if rec == nil {
		return nil, nil
	}
	obj, err := rec.decode()
	if err != nil {
		return nil, err
	}
	return obj, nil
}

func (r *ObjectMemoryRepository) GetObject(ctx context.Context, id catalog.IntID) (*types.Object, error) {
	obj, err := r.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, catalog.NewResolutionError(id, catalog.Missing, "", nil)
	}
	return obj.(*types.Object), nil
}

func (r *ObjectMemoryRepository) GetObjectByExternalId(ctx context.Context, externalId string) (*types.Object, error) {
	r.mu.RLock()
	rec, ok := r.records[externalId]
	r.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	return rec.decode()
}

func (r *ObjectMemoryRepository) DeleteObject(ctx context.Context, id catalog.IntID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ext, ok := r.ids[id]; ok {
		delete(r.records, ext)
		delete(r.ids, id)
	}
	return nil
}

func (r *ObjectMemoryRepository) ShareObject(ctx context.Context, id catalog.IntID, principal string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := r.record(id)
	if rec == nil {
		return nil
	}
	p, ok := r.principals[strings.ToLower(principal)]
	if !ok {
		return &types.ErrPrincipalNotFound{Name: principal}
	}
	for _, name := range rec.SharedWith {
		if name == p.Username {
			return nil
		}
	}
	rec.SharedWith = append(rec.SharedWith, p.Username)
	sort.Strings(rec.SharedWith)
	return nil
}

func (r *ObjectMemoryRepository) IDOf(ctx context.Context, obj catalog.Object) (catalog.IntID, bool, error) {
	o, ok := obj.(*types.Object)
	if !ok || o.ExternalId == "" {
		return 0, false, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[o.ExternalId]
	if !ok || rec.IntID == 0 {
		return 0, false, nil
	}
	return catalog.IntID(rec.IntID), true, nil
}

func (r *ObjectMemoryRepository) ForceUnregister(ctx context.Context, id catalog.IntID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec := r.record(id); rec != nil {
		rec.IntID = 0
	}
	delete(r.ids, id)
	return nil
}

func (r *ObjectMemoryRepository) OwnedObjects(ctx context.Context, p catalog.Principal, fn func(catalog.Object, error) error) error {
	r.mu.RLock()
	var records []objectRecord
	for _, rec := range r.records {
		if rec.IntID == 0 {
			continue
		}
		if strings.EqualFold(rec.Owner, p.Name()) || containsFold(rec.SharedWith, p.Name()) {
			records = append(records, *rec)
		}
	}
	r.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool { return records[i].Id < records[j].Id })

	for i := range records {
		obj, err := records[i].decode()
		if err != nil {
			if err := fn(nil, err); err != nil {
				return err
			}
			continue
		}
		if err := fn(obj, nil); err != nil {
			return err
		}
	}
	return nil
}

func (r *ObjectMemoryRepository) Ping(ctx context.Context) error {
	return nil
}

func (r *ObjectMemoryRepository) Close() error {
	return nil
}

func containsFold(values []string, s string) bool {
	for _, v := range values {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
