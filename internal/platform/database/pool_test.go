package database

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMigrations = fstest.MapFS{
	"001_widgets.sql": {Data: []byte("-- +migrate Up\nCREATE TABLE widgets (id INTEGER PRIMARY KEY, name TEXT);\n-- +migrate Down\nDROP TABLE widgets;\n")},
	"002_seed.sql":    {Data: []byte("INSERT INTO widgets (name) VALUES ('first');")},
	"README.md":       {Data: []byte("not a migration")},
}

func TestOpen_AppliesMigrationsOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "node.db")

	pool, err := Open(ctx, DefaultConfig(path), testMigrations)
	require.NoError(t, err)
	require.NoError(t, pool.Health(ctx))
	require.NoError(t, pool.Close())

	// Re-opening must not re-run the seed.
	pool, err = Open(ctx, DefaultConfig(path), testMigrations)
	require.NoError(t, err)
	defer pool.Close()

	var count int
	require.NoError(t, pool.DB().QueryRowContext(ctx, "SELECT COUNT(*) FROM widgets").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestOpen_Memory(t *testing.T) {
	pool, err := Open(context.Background(), DefaultConfig(MemoryPath), testMigrations)
	require.NoError(t, err)
	defer pool.Close()
	assert.Equal(t, 1, pool.Stats().MaxOpenConnections)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), Config{}, nil)
	assert.Error(t, err)
}

func TestExtractUpMigration(t *testing.T) {
	assert.Equal(t, "\nA\n", ExtractUpMigration("-- +migrate Up\nA\n-- +migrate Down\nB"))
	assert.Equal(t, "\nA", ExtractUpMigration("-- +migrate Up\nA"))
	assert.Equal(t, "plain", ExtractUpMigration("plain"))
}

func TestNilPool(t *testing.T) {
	var p *Pool
	assert.Error(t, p.Health(context.Background()))
	assert.NoError(t, p.Close())
}
