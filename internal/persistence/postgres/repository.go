// Package postgres provides pgx-backed persistence for activities and outbox events.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/activity-tracker/internal/domain"
	"example.com/activity-tracker/internal/observability"
	"example.com/activity-tracker/internal/outbox"
)

// Repository provides Postgres-backed persistence for activities.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const activityColumns = `id, external_id, name, type, start_date, moving_time, elapsed_time, distance,
        average_speed, max_speed, average_heartrate, max_heartrate, average_power, max_power,
        tss, intensity_factor, normalized_power, description, tags, created_at, updated_at, synced_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActivity(row rowScanner) (*domain.Activity, error) {
	var a domain.Activity
	err := row.Scan(
		&a.ID, &a.ExternalID, &a.Name, &a.Type, &a.StartDate,
		&a.MovingTime, &a.ElapsedTime, &a.Distance,
		&a.AverageSpeed, &a.MaxSpeed, &a.AverageHeartrate, &a.MaxHeartrate,
		&a.AveragePower, &a.MaxPower,
		&a.TSS, &a.IntensityFactor, &a.NormalizedPower,
		&a.Description, &a.Tags,
		&a.CreatedAt, &a.UpdatedAt, &a.SyncedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// List returns activities matching the filter, newest start date first.
func (r *Repository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities`
	args := make([]any, 0, 4)
	conditions := make([]string, 0, 3)

	if filter.ActivityType != "" {
		args = append(args, filter.ActivityType)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.StartDate != nil {
		args = append(args, *filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("start_date >= $%d", len(args)))
	}
	if filter.EndDate != nil {
		args = append(args, *filter.EndDate)
		conditions = append(conditions, fmt.Sprintf("start_date <= $%d", len(args)))
	}
	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}

	args = append(args, filter.Limit)
	query += fmt.Sprintf(" ORDER BY start_date DESC NULLS LAST LIMIT $%d", len(args))
	args = append(args, filter.Skip)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.Activity, 0, filter.Limit)
	for rows.Next() {
		activity, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *activity)
	}
	return results, rows.Err()
}

// Get retrieves an activity by local id; a missing row yields (nil, nil).
func (r *Repository) Get(ctx context.Context, id int64) (*domain.Activity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = $1`, id)
	activity, err := scanActivity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return activity, err
}

// GetByExternalID retrieves an activity by its upstream id; a missing row
// yields (nil, nil).
func (r *Repository) GetByExternalID(ctx context.Context, externalID string) (*domain.Activity, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities WHERE external_id = $1`, externalID)
	activity, err := scanActivity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return activity, err
}

// UpdateDetails applies the restricted manual update. Nil input fields keep
// their stored values. A missing row yields (nil, nil).
func (r *Repository) UpdateDetails(ctx context.Context, id int64, input domain.UpdateInput, updatedAt time.Time) (*domain.Activity, error) {
	const stmt = `UPDATE activities
        SET name = COALESCE($2, name),
            description = COALESCE($3, description),
            tags = COALESCE($4, tags),
            updated_at = $5
        WHERE id = $1
        RETURNING ` + activityColumns

	row := r.pool.QueryRow(ctx, stmt, id, input.Name, input.Description, input.Tags, updatedAt)
	activity, err := scanActivity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return activity, err
}

// Delete removes an activity, reporting whether a row existed.
func (r *Repository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM activities WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// Summary aggregates all stored activities. NULL measured values count as zero.
func (r *Repository) Summary(ctx context.Context) (domain.Summary, error) {
	var summary domain.Summary
	row := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(distance), 0)::DOUBLE PRECISION, COALESCE(SUM(moving_time), 0)::BIGINT FROM activities`)
	if err := row.Scan(&summary.TotalActivities, &summary.TotalDistance, &summary.TotalMovingTime); err != nil {
		return domain.Summary{}, err
	}

	if summary.TotalActivities > 0 {
		summary.AvgDistance = summary.TotalDistance / float64(summary.TotalActivities)

		row := r.pool.QueryRow(ctx, `SELECT `+activityColumns+` FROM activities ORDER BY start_date DESC NULLS LAST LIMIT 1`)
		recent, err := scanActivity(row)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return domain.Summary{}, err
		}
		summary.RecentActivity = recent
	}
	return summary, nil
}

// Upsert inserts the activity or, when a row with the same external id
// already exists, overwrites it while preserving stored values for fields the
// source omitted. The matching activity.synced outbox event is recorded in
// the same transaction. The external id itself is never rewritten.
func (r *Repository) Upsert(ctx context.Context, activity *domain.Activity) (domain.UpsertOutcome, error) {
	const stmt = `INSERT INTO activities (
            external_id, name, type, start_date, moving_time, elapsed_time, distance,
            average_speed, max_speed, average_heartrate, max_heartrate, average_power, max_power,
            tss, intensity_factor, normalized_power, description, tags, created_at, updated_at, synced_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
        ON CONFLICT (external_id) DO UPDATE SET
            name = EXCLUDED.name,
            type = EXCLUDED.type,
            start_date = COALESCE(EXCLUDED.start_date, activities.start_date),
            moving_time = COALESCE(EXCLUDED.moving_time, activities.moving_time),
            elapsed_time = COALESCE(EXCLUDED.elapsed_time, activities.elapsed_time),
            distance = COALESCE(EXCLUDED.distance, activities.distance),
            average_speed = COALESCE(EXCLUDED.average_speed, activities.average_speed),
            max_speed = COALESCE(EXCLUDED.max_speed, activities.max_speed),
            average_heartrate = COALESCE(EXCLUDED.average_heartrate, activities.average_heartrate),
            max_heartrate = COALESCE(EXCLUDED.max_heartrate, activities.max_heartrate),
            average_power = COALESCE(EXCLUDED.average_power, activities.average_power),
            max_power = COALESCE(EXCLUDED.max_power, activities.max_power),
            tss = COALESCE(EXCLUDED.tss, activities.tss),
            intensity_factor = COALESCE(EXCLUDED.intensity_factor, activities.intensity_factor),
            normalized_power = COALESCE(EXCLUDED.normalized_power, activities.normalized_power),
            description = EXCLUDED.description,
            tags = EXCLUDED.tags,
            updated_at = EXCLUDED.updated_at,
            synced_at = EXCLUDED.synced_at
        RETURNING id, created_at, (xmax = 0) AS inserted`

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	var inserted bool
	err = tx.QueryRow(ctx, stmt,
		activity.ExternalID,
		activity.Name,
		activity.Type,
		activity.StartDate,
		activity.MovingTime,
		activity.ElapsedTime,
		activity.Distance,
		activity.AverageSpeed,
		activity.MaxSpeed,
		activity.AverageHeartrate,
		activity.MaxHeartrate,
		activity.AveragePower,
		activity.MaxPower,
		activity.TSS,
		activity.IntensityFactor,
		activity.NormalizedPower,
		activity.Description,
		activity.Tags,
		activity.CreatedAt,
		activity.UpdatedAt,
		activity.SyncedAt,
	).Scan(&activity.ID, &activity.CreatedAt, &inserted)
	if err != nil {
		return 0, err
	}

	outcome := domain.UpsertUpdated
	if inserted {
		outcome = domain.UpsertInserted
	}

	if err = insertOutboxEvent(ctx, tx, activity, outcome); err != nil {
		return 0, err
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, err
	}
	observability.RecordActivityPersisted(activity.UpdatedAt)
	return outcome, nil
}

func insertOutboxEvent(ctx context.Context, tx pgx.Tx, activity *domain.Activity, outcome domain.UpsertOutcome) error {
	event := outbox.NewActivitySynced(activity, outcome)
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	const stmt = `INSERT INTO outbox (event_type, topic, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (dedupe_key) DO NOTHING`

	_, err = tx.Exec(ctx, stmt,
		outbox.EventActivitySynced,
		outbox.TopicActivitySyncEvents,
		activity.ExternalID,
		body,
		event.DedupeKey(),
	)
	return err
}
