package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"github.com/beam-cloud/metacatalog/pkg/catalog"
	"github.com/beam-cloud/metacatalog/pkg/common"
	"github.com/beam-cloud/metacatalog/pkg/index"
	"github.com/beam-cloud/metacatalog/pkg/metrics"
	"github.com/beam-cloud/metacatalog/pkg/repository"
	"github.com/beam-cloud/metacatalog/pkg/types"
)

const maintenanceLockTtlS = 3600

// Services holds the collaborators of the maintenance engine for one process.
type Services struct {
	Config      types.AppConfig
	RedisClient *common.RedisClient
	Objects     repository.ObjectRepository
	Queue       repository.JobQueue
	Store       *index.SQLiteCatalogStore
	Source      *index.Source
	Registry    *prometheus.Registry
	Metrics     *metrics.Metrics
}

// NewServices wires the object store, queue and catalogs for the configured mode.
func NewServices(ctx context.Context, config types.AppConfig, clientName string) (*Services, error) {
	s := &Services{
		Config:   config,
		Registry: prometheus.NewRegistry(),
	}
	s.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	s.Metrics = metrics.NewMetrics(s.Registry)

	if config.IsLocalMode() {
		log.Info().Msg("running in local mode - Redis and Postgres disabled")
		s.Objects = repository.NewObjectMemoryRepository()
		s.Queue = repository.NewMemoryJobQueue(config.Queue.Name)
	} else {
		redisClient, err := common.NewRedisClient(config.Database.Redis, common.WithClientName(clientName))
		if err != nil {
			return nil, err
		}
		s.RedisClient = redisClient

		backend, err := repository.NewPostgresBackend(config.Database.Postgres)
		if err != nil {
			s.Close()
			return nil, err
		}
		if err := backend.RunMigrations(); err != nil {
			backend.Close()
			s.Close()
			return nil, fmt.Errorf("failed to run postgres migrations: %w", err)
		}
		s.Objects = backend
		s.Queue = repository.NewRedisJobQueue(redisClient, config.Queue.Name, config.Queue.LockTTL)
	}

	store, err := index.NewSQLiteCatalogStore(config.Catalog.Path)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Store = store

	source, err := index.NewDefaultSource(ctx, store, config.Catalog)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Source = source

	log.Info().
		Str("mode", config.Mode).
		Str("catalog_path", config.Catalog.Path).
		Str("queue", s.Queue.Name()).
		Msg("services initialized")
	return s, nil
}

func (s *Services) options() []catalog.Option {
	return []catalog.Option{catalog.WithMetrics(s.Metrics)}
}

func (s *Services) Checker() *catalog.Checker {
	return catalog.NewChecker(s.Source, s.Objects, s.options()...)
}

func (s *Services) Rebuilder() *catalog.Rebuilder {
	return catalog.NewRebuilder(s.Source, s.Objects, s.Objects, s.options()...)
}

func (s *Services) Reindexer() *catalog.Reindexer {
	return catalog.NewReindexer(s.Objects, s.Objects, s.Objects, s.Queue, s.options()...)
}

// Runner drains the queue into every editable catalog.
func (s *Services) Runner() *catalog.Runner {
	return catalog.NewRunner(s.Queue, s.Objects, s.Source, catalog.SelectAll, s.options()...)
}

// Lock takes the cluster-wide lock of a maintenance operation. Without Redis
// there is a single process and the lock is a no-op.
func (s *Services) Lock(ctx context.Context, operation string) (func(), error) {
	if s.RedisClient == nil {
		return func() {}, nil
	}

	lockKey := common.Keys.MaintenanceLock(operation)
	lock := common.NewRedisLock(s.RedisClient)

	if err := lock.Acquire(ctx, lockKey, common.RedisLockOptions{TtlS: maintenanceLockTtlS, Retries: 0}); err != nil {
		return nil, err
	}

	return func() {
		if err := lock.Release(lockKey); err != nil {
			log.Error().Str("lock_key", lockKey).Err(err).Msg("failed to release maintenance lock")
		}
	}, nil
}

// Close releases every backend. It is safe on partially built services.
func (s *Services) Close() error {
	var errs []error
	if s.Store != nil {
		errs = append(errs, s.Store.Close())
	}
	if s.Objects != nil {
		errs = append(errs, s.Objects.Close())
	}
	if s.RedisClient != nil {
		errs = append(errs, s.RedisClient.Close())
	}
	return errors.Join(errs...)
}
