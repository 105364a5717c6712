//go:build integration

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/activity-tracker/internal/domain"
)

func setupRepository(t *testing.T, ctx context.Context) *Repository {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("activities"),
		postgrescontainer.WithUsername("tracker"),
		postgrescontainer.WithPassword("tracker"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))
	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return NewRepository(pool)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	var lastErr error
	for time.Now().Before(deadline) {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		lastErr = err
		time.Sleep(500 * time.Millisecond)
	}
	return lastErr
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	t.Helper()

	ddl, err := os.ReadFile("../../../db/migrations/0001_init.up.sql")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, string(ddl))
	require.NoError(t, err)
}

func float64Ptr(v float64) *float64 { return &v }
func int64Ptr(v int64) *int64       { return &v }

func TestRepositoryReconciliationLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t, ctx)

	start := time.Date(2024, time.January, 1, 6, 0, 0, 0, time.UTC)
	firstPass := time.Now().UTC().Truncate(time.Microsecond)

	activity := domain.Activity{
		ExternalID: "i42",
		Name:       "Morning Run",
		Type:       "Run",
		StartDate:  &start,
		MovingTime: int64Ptr(1800),
		Distance:   float64Ptr(5000),
		Tags:       "hard,z4",
		CreatedAt:  firstPass,
		UpdatedAt:  firstPass,
		SyncedAt:   &firstPass,
	}

	outcome, err := repo.Upsert(ctx, &activity)
	require.NoError(t, err)
	require.Equal(t, domain.UpsertInserted, outcome)
	require.NotZero(t, activity.ID)

	// Second pass for the same external id updates the row in place, keeps
	// values the source no longer reports, and never duplicates.
	secondPass := firstPass.Add(time.Hour)
	replayed := domain.Activity{
		ExternalID: "i42",
		Name:       "Morning Run",
		Type:       "Run",
		Distance:   float64Ptr(5200),
		CreatedAt:  secondPass,
		UpdatedAt:  secondPass,
		SyncedAt:   &secondPass,
	}

	outcome, err = repo.Upsert(ctx, &replayed)
	require.NoError(t, err)
	require.Equal(t, domain.UpsertUpdated, outcome)
	require.Equal(t, activity.ID, replayed.ID)

	// CreatedAt survives the overwrite.
	require.Equal(t, firstPass, replayed.CreatedAt.UTC())

	stored, err := repo.Get(ctx, activity.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	require.Equal(t, "i42", stored.ExternalID)
	require.NotNil(t, stored.Distance)
	require.InDelta(t, 5200, *stored.Distance, 0.001)
	require.NotNil(t, stored.MovingTime)
	require.Equal(t, int64(1800), *stored.MovingTime)
	require.NotNil(t, stored.StartDate)
	require.NotNil(t, stored.SyncedAt)
	require.False(t, stored.UpdatedAt.Before(stored.CreatedAt))

	byExternal, err := repo.GetByExternalID(ctx, "i42")
	require.NoError(t, err)
	require.NotNil(t, byExternal)
	require.Equal(t, activity.ID, byExternal.ID)

	// Each pass leaves one outbox event behind.
	var outboxCount int
	require.NoError(t, repo.pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE partition_key = 'i42'`).Scan(&outboxCount))
	require.Equal(t, 2, outboxCount)
}

func TestRepositoryQueriesAndMutations(t *testing.T) {
	ctx := context.Background()
	repo := setupRepository(t, ctx)

	now := time.Now().UTC().Truncate(time.Microsecond)
	seed := []domain.Activity{
		{ExternalID: "a1", Name: "Run one", Type: "Run", StartDate: timePtr(now.Add(-48 * time.Hour)), Distance: float64Ptr(5000), MovingTime: int64Ptr(1800)},
		{ExternalID: "a2", Name: "Ride one", Type: "Ride", StartDate: timePtr(now.Add(-24 * time.Hour)), Distance: float64Ptr(40000), MovingTime: int64Ptr(5400)},
		{ExternalID: "a3", Name: "Run two", Type: "Run", StartDate: timePtr(now), MovingTime: int64Ptr(2400)},
	}
	for i := range seed {
		seed[i].CreatedAt = now
		seed[i].UpdatedAt = now
		seed[i].SyncedAt = &now
		_, err := repo.Upsert(ctx, &seed[i])
		require.NoError(t, err)
	}

	runs, err := repo.List(ctx, domain.ListFilter{ActivityType: "Run", Limit: 10})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	// Newest start date first.
	require.Equal(t, "a3", runs[0].ExternalID)
	require.Equal(t, "a1", runs[1].ExternalID)

	since := now.Add(-30 * time.Hour)
	recent, err := repo.List(ctx, domain.ListFilter{StartDate: &since, Limit: 10})
	require.NoError(t, err)
	require.Len(t, recent, 2)

	paged, err := repo.List(ctx, domain.ListFilter{Limit: 1, Skip: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	require.Equal(t, "a2", paged[0].ExternalID)

	summary, err := repo.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), summary.TotalActivities)
	require.InDelta(t, 45000, summary.TotalDistance, 0.001)
	require.Equal(t, int64(9600), summary.TotalMovingTime)
	require.InDelta(t, 15000, summary.AvgDistance, 0.001)
	require.NotNil(t, summary.RecentActivity)
	require.Equal(t, "a3", summary.RecentActivity.ExternalID)

	name := "Renamed run"
	updated, err := repo.UpdateDetails(ctx, seed[0].ID, domain.UpdateInput{Name: &name}, now.Add(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, updated)
	require.Equal(t, "Renamed run", updated.Name)
	require.Equal(t, "Run", updated.Type)

	missing, err := repo.UpdateDetails(ctx, 9999, domain.UpdateInput{Name: &name}, now)
	require.NoError(t, err)
	require.Nil(t, missing)

	deleted, err := repo.Delete(ctx, seed[1].ID)
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = repo.Delete(ctx, seed[1].ID)
	require.NoError(t, err)
	require.False(t, deleted)
}

func timePtr(t time.Time) *time.Time { return &t }
