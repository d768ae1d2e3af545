package repository_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nazarious-ucu/weather-collector/internal/models"
	"github.com/Nazarious-ucu/weather-collector/internal/repository"
)

func newRepo(t *testing.T) *repository.CycleRepository {
	t.Helper()

	db, err := repository.Open(filepath.Join(t.TempDir(), "cycles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, repository.Migrate(db, "sqlite3"))
	return repository.NewCycleRepository(db)
}

func TestCycleRepository_SaveAndRecent(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := range 3 {
		require.NoError(t, repo.SaveCycle(ctx, models.CycleReport{
			StartedAt:     base.Add(time.Duration(i) * time.Hour),
			Duration:      30 * time.Second,
			Attempted:     14,
			Succeeded:     14 - i,
			Failed:        i,
			FetchFailures: i,
		}))
	}

	got, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, base.Add(2*time.Hour), got[0].StartedAt)
	assert.Equal(t, 12, got[0].Succeeded)
	assert.Equal(t, 2, got[0].FetchFailures)
	assert.Equal(t, 30*time.Second, got[0].Duration)
	assert.Equal(t, base.Add(time.Hour), got[1].StartedAt)
}

func TestCycleRepository_Empty(t *testing.T) {
	got, err := newRepo(t).Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMigrate_Idempotent(t *testing.T) {
	db, err := repository.Open(filepath.Join(t.TempDir(), "cycles.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, repository.Migrate(db, "sqlite3"))
	require.NoError(t, repository.Migrate(db, "sqlite3"))
}
