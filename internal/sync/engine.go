// Package sync reconciles activities fetched from Intervals.icu against the
// local store.
package sync

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"example.com/activity-tracker/internal/domain"
	"example.com/activity-tracker/internal/intervals"
)

// Source fetches raw activity records from the upstream API.
type Source interface {
	FetchActivities(ctx context.Context, oldest, newest *time.Time, limit int) ([]intervals.RawActivity, error)
}

// Store applies reconciled activities to local storage.
type Store interface {
	Upsert(ctx context.Context, activity *domain.Activity) (domain.UpsertOutcome, error)
}

// Status is the terminal state of a reconciliation pass.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// OutcomeKind tags what happened to one fetched record.
type OutcomeKind string

const (
	OutcomeInserted OutcomeKind = "inserted"
	OutcomeUpdated  OutcomeKind = "updated"
	OutcomeSkipped  OutcomeKind = "skipped"
	OutcomeFailed   OutcomeKind = "failed"
)

// RecordOutcome is the per-record entry of a batch report.
type RecordOutcome struct {
	ExternalID string
	Kind       OutcomeKind
	Reason     string
}

// Result is the batch report of one reconciliation pass. TotalProcessed is
// the raw fetched count, including records that were skipped or failed.
type Result struct {
	Status            Status
	ActivitiesSynced  int
	ActivitiesUpdated int
	TotalProcessed    int
	LastSync          *time.Time
	Message           string
	Outcomes          []RecordOutcome
}

// Options bounds a reconciliation pass.
type Options struct {
	Oldest *time.Time
	Newest *time.Time
	Limit  int
}

// Engine reconciles fetched records against the store, keyed on the upstream
// external id. Each call is independent; re-running an overlapping range
// updates existing rows instead of duplicating them.
type Engine struct {
	source Source
	store  Store
}

// NewEngine constructs an Engine.
func NewEngine(source Source, store Store) *Engine {
	return &Engine{source: source, store: store}
}

// Sync fetches one bounded page of upstream records and upserts each into the
// store. A fetch failure aborts the pass with an error result and no writes.
// Per-record failures are logged and skipped; they never abort the batch.
// Records without an external id count toward TotalProcessed only.
func (e *Engine) Sync(ctx context.Context, opts Options) Result {
	runStart := time.Now()
	log := logrus.WithField("sync_run", uuid.NewString())

	rawActivities, err := e.source.FetchActivities(ctx, opts.Oldest, opts.Newest, opts.Limit)
	if err != nil {
		log.WithError(err).Error("sync: fetching activities failed")
		recordRun(StatusError, time.Since(runStart))
		return Result{Status: StatusError, Message: err.Error()}
	}

	// Every record written by this pass carries the same timestamp.
	now := time.Now().UTC()

	result := Result{
		Status:         StatusSuccess,
		TotalProcessed: len(rawActivities),
		LastSync:       &now,
		Outcomes:       make([]RecordOutcome, 0, len(rawActivities)),
	}

	for _, raw := range rawActivities {
		activity := intervals.Normalize(raw)
		if activity.ExternalID == "" {
			log.Warn("sync: skipping activity without external id")
			result.record(RecordOutcome{Kind: OutcomeSkipped, Reason: "missing external id"})
			continue
		}

		activity.CreatedAt = now
		activity.UpdatedAt = now
		activity.SyncedAt = &now

		outcome, err := e.store.Upsert(ctx, &activity)
		if err != nil {
			log.WithError(err).WithField("external_id", activity.ExternalID).Error("sync: failed to process activity")
			result.record(RecordOutcome{ExternalID: activity.ExternalID, Kind: OutcomeFailed, Reason: err.Error()})
			continue
		}

		switch outcome {
		case domain.UpsertInserted:
			result.ActivitiesSynced++
			result.record(RecordOutcome{ExternalID: activity.ExternalID, Kind: OutcomeInserted})
		case domain.UpsertUpdated:
			result.ActivitiesUpdated++
			result.record(RecordOutcome{ExternalID: activity.ExternalID, Kind: OutcomeUpdated})
		}
	}

	recordRun(StatusSuccess, time.Since(runStart))
	lastSyncGauge.Set(float64(now.Unix()))

	log.WithFields(logrus.Fields{
		"synced":    result.ActivitiesSynced,
		"updated":   result.ActivitiesUpdated,
		"processed": result.TotalProcessed,
	}).Info("sync: pass complete")

	return result
}

func (r *Result) record(outcome RecordOutcome) {
	r.Outcomes = append(r.Outcomes, outcome)
	recordsCounter.WithLabelValues(string(outcome.Kind)).Inc()
}
