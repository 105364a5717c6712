// Package domain defines the canonical activity model and business logic.
package domain

import (
	"context"
	"errors"
	"time"
)

// ErrActivityNotFound is returned when an activity cannot be located.
var ErrActivityNotFound = errors.New("activity not found")

// Activity is the canonical workout record stored in Postgres.
//
// ExternalID is the stable id assigned by Intervals.icu and is the
// reconciliation key: unique across all records and immutable once set.
// Measured attributes are pointers because the upstream source may omit
// any of them; absence is preserved as NULL, never coerced to zero.
type Activity struct {
	ID         int64
	ExternalID string

	Name      string
	Type      string
	StartDate *time.Time

	MovingTime  *int64   // seconds
	ElapsedTime *int64   // seconds
	Distance    *float64 // meters

	AverageSpeed     *float64 // m/s
	MaxSpeed         *float64 // m/s
	AverageHeartrate *float64
	MaxHeartrate     *float64
	AveragePower     *float64
	MaxPower         *float64

	TSS             *float64
	IntensityFactor *float64
	NormalizedPower *float64

	Description string
	Tags        string // comma-joined tag list

	CreatedAt time.Time
	UpdatedAt time.Time
	SyncedAt  *time.Time // set only by reconciliation, nil otherwise
}

// UpsertOutcome reports whether an upsert inserted a new row or updated an
// existing one.
type UpsertOutcome int

const (
	UpsertInserted UpsertOutcome = iota
	UpsertUpdated
)

// ListFilter narrows and pages an activity listing. Date bounds are inclusive
// and compare against the activity start date.
type ListFilter struct {
	ActivityType string
	StartDate    *time.Time
	EndDate      *time.Time
	Skip         int
	Limit        int
}

// UpdateInput is the restricted field set a manual update may touch.
// Nil fields are left unchanged.
type UpdateInput struct {
	Name        *string
	Description *string
	Tags        *string
}

// Summary aggregates all stored activities. Absent measured values count as
// zero in the sums.
type Summary struct {
	TotalActivities int64
	TotalDistance   float64
	TotalMovingTime int64
	AvgDistance     float64
	RecentActivity  *Activity
}

// ActivityRepository captures persistence operations.
type ActivityRepository interface {
	List(ctx context.Context, filter ListFilter) ([]Activity, error)
	Get(ctx context.Context, id int64) (*Activity, error)
	UpdateDetails(ctx context.Context, id int64, input UpdateInput, updatedAt time.Time) (*Activity, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Summary(ctx context.Context) (Summary, error)
	Upsert(ctx context.Context, activity *Activity) (UpsertOutcome, error)
}
