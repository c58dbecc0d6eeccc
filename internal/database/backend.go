package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-session/internal/config"
	"github.com/stemsi/exstem-session/internal/repository"
)

// OpenRepository connects the configured state backend and returns the
// profile-scoped repository plus a close func releasing its connections.
func OpenRepository(ctx context.Context, cfg *config.Config, log zerolog.Logger) (repository.Repository, func(), error) {
	switch cfg.StateBackend {
	case config.BackendRedis:
		rdb, err := NewRedisClient(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisRepository(rdb, cfg.ProfileID), func() { rdb.Close() }, nil

	case config.BackendPostgres:
		pool, err := NewPostgresPool(ctx, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewPostgresRepository(pool, cfg.ProfileID), pool.Close, nil

	case config.BackendMemory:
		log.Warn().Msg("Using in-memory state backend; progress will not survive a restart")
		return repository.NewMemoryRepository(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}
}
