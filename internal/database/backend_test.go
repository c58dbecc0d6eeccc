package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-session/internal/config"
	"github.com/stemsi/exstem-session/internal/repository"
)

func TestOpenRepository_Memory(t *testing.T) {
	repo, closeFn, err := OpenRepository(context.Background(), &config.Config{StateBackend: config.BackendMemory}, zerolog.Nop())
	require.NoError(t, err)
	defer closeFn()

	assert.IsType(t, &repository.MemoryRepository{}, repo)
}

func TestOpenRepository_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		StateBackend: config.BackendRedis,
		RedisURL:     "redis://" + mr.Addr() + "/0",
		ProfileID:    "p1",
	}

	repo, closeFn, err := OpenRepository(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer closeFn()

	assert.IsType(t, &repository.RedisRepository{}, repo)
}

func TestOpenRepository_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := &config.Config{StateBackend: config.BackendRedis, RedisURL: "redis://" + addr + "/0"}
	_, _, err := OpenRepository(context.Background(), cfg, zerolog.Nop())
	assert.ErrorContains(t, err, "ping redis")
}

func TestOpenRepository_Unknown(t *testing.T) {
	_, _, err := OpenRepository(context.Background(), &config.Config{StateBackend: "sqlite"}, zerolog.Nop())
	assert.ErrorContains(t, err, "unknown state backend")
}
