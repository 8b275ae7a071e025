package repository

import (
	"context"
	"database/sql"

	"github.com/beam-cloud/metacatalog/pkg/catalog"
	"github.com/beam-cloud/metacatalog/pkg/types"
)

// ObjectRepository is the object store: it resolves ids, owns the id table and
// the principal directory, and enumerates the objects of a principal.
type ObjectRepository interface {
	catalog.Resolver
	catalog.IDTable
	catalog.OwnedObjects
	catalog.PrincipalDirectory

	// Principals
	CreatePrincipal(ctx context.Context, name string, kind types.PrincipalKind) (*types.Principal, error)

	// Objects
	SaveObject(ctx context.Context, obj *types.Object) (*types.Object, error)
	GetObject(ctx context.Context, id catalog.IntID) (*types.Object, error)
	GetObjectByExternalId(ctx context.Context, externalId string) (*types.Object, error)
	DeleteObject(ctx context.Context, id catalog.IntID) error
	ShareObject(ctx context.Context, id catalog.IntID, principal string) error

	// Utilities
	Ping(ctx context.Context) error
	Close() error
}

// JobQueue is the indexing queue.
type JobQueue interface {
	catalog.Queue
	catalog.QueueLocker
	Name() string
}

// BackendRepository is the main Postgres repository for persistent data.
type BackendRepository interface {
	ObjectRepository

	// Database access
	DB() *sql.DB

	RunMigrations() error
}
