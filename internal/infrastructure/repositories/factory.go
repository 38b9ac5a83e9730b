package repositories

import (
	"context"

	"github.com/digisapp/digis-app-sub003/internal/core/ports"
	"github.com/digisapp/digis-app-sub003/internal/infrastructure/repositories/file"
	"github.com/digisapp/digis-app-sub003/internal/infrastructure/repositories/memory"
	redisrepo "github.com/digisapp/digis-app-sub003/internal/infrastructure/repositories/redis"
	"github.com/digisapp/digis-app-sub003/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory creates the persistence backends with fallback support:
// an unreachable Redis or an unwritable state file degrades to memory rather
// than failing startup, since persistence is an optimization for the client.
type RepositoryFactory struct {
	backend     string
	redisClient *redis.Client
	fileStore   *file.Store
	logger      *zap.SugaredLogger
}

func NewRepositoryFactory(cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		backend: cfg.Persistence.Backend,
		logger:  logger,
	}

	switch cfg.Persistence.Backend {
	case "redis":
		client, err := redisrepo.NewRedisClient(
			cfg.Persistence.Redis.Address,
			cfg.Persistence.Redis.Password,
			cfg.Persistence.Redis.DB,
			cfg.Persistence.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory persistence",
				"error", err,
			)
			factory.backend = "memory"
		} else {
			factory.redisClient = client
		}

	case "file":
		store, err := file.NewStore(cfg.Persistence.FilePath)
		if err != nil {
			logger.Warnw("failed to open state file, falling back to memory persistence",
				"path", cfg.Persistence.FilePath,
				"error", err,
			)
			factory.backend = "memory"
		} else {
			factory.fileStore = store
		}
	}

	logger.Infow("persistence backend selected", "backend", factory.backend)
	return factory, nil
}

// CreateHintRepository creates the role hint repository for the configured
// backend.
func (f *RepositoryFactory) CreateHintRepository() ports.HintRepository {
	switch {
	case f.backend == "redis" && f.redisClient != nil:
		return redisrepo.NewRedisHintRepository(f.redisClient)
	case f.backend == "file" && f.fileStore != nil:
		return file.NewFileHintRepository(f.fileStore)
	default:
		return memory.NewMemoryHintRepository()
	}
}

// CreateSnapshotRepository creates the state snapshot repository for the
// configured backend.
func (f *RepositoryFactory) CreateSnapshotRepository() ports.SnapshotRepository {
	switch {
	case f.backend == "redis" && f.redisClient != nil:
		return redisrepo.NewRedisSnapshotRepository(f.redisClient)
	case f.backend == "file" && f.fileStore != nil:
		return file.NewFileSnapshotRepository(f.fileStore)
	default:
		return memory.NewMemorySnapshotRepository()
	}
}

// Close closes the Redis connection if one is open.
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		return redisrepo.CloseRedisClient(f.redisClient)
	}
	return nil
}

// HealthCheck checks backend connectivity.
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.backend == "redis" && f.redisClient != nil {
		return f.redisClient.Ping(ctx).Err()
	}
	return nil
}
