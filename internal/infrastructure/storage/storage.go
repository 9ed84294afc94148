package storage

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-ddd-users-api/config"
	repouser "github.com/oksasatya/go-ddd-users-api/internal/domain/repository"
	"github.com/oksasatya/go-ddd-users-api/internal/infrastructure/memory"
	"github.com/oksasatya/go-ddd-users-api/internal/infrastructure/mongodb"
	pginfra "github.com/oksasatya/go-ddd-users-api/internal/infrastructure/postgres"
)

// Open builds the user repository for cfg.StorageDriver and prepares its
// unique email constraint. The returned close func releases the connection.
func Open(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (repouser.UserRepository, func(), error) {
	log := logger.WithField("driver", cfg.StorageDriver)

	switch cfg.StorageDriver {
	case config.DriverMongo:
		client, err := mongodb.NewClient(ctx, cfg.MongoURI, cfg.MongoTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo: %w", err)
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		repo := mongodb.NewUserRepository(client.Database(cfg.MongoDatabase))
		if err := repo.EnsureIndexes(ctx); err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("mongo indexes: %w", err)
		}
		log.WithField("database", cfg.MongoDatabase).Info("storage ready")
		return repo, closeFn, nil

	case config.DriverPostgres:
		pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
			MaxConns:    cfg.DBMaxConns,
			MinConns:    cfg.DBMinConns,
			MaxConnLife: cfg.DBMaxConnLife,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		repo := pginfra.NewUserRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres schema: %w", err)
		}
		log.WithField("database", cfg.DBName).Info("storage ready")
		return repo, pool.Close, nil

	case config.DriverMemory:
		log.Warn("in-memory storage, data is lost on restart")
		return memory.NewUserRepository(), func() {}, nil
	}

	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}
