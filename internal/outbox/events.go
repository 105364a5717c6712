package outbox

import (
	"fmt"
	"time"

	"example.com/activity-tracker/internal/domain"
)

const (
	// EventActivitySynced is emitted whenever reconciliation inserts or
	// overwrites an activity.
	EventActivitySynced = "activity.synced"
	// TopicActivitySyncEvents is the Kafka topic carrying sync events.
	TopicActivitySyncEvents = "activity_sync_events"
)

// ActivitySynced is the payload published after a reconciliation upsert.
type ActivitySynced struct {
	ActivityID   int64      `json:"activity_id"`
	ExternalID   string     `json:"external_id"`
	Name         string     `json:"name"`
	ActivityType string     `json:"activity_type"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	Outcome      string     `json:"outcome"`
	SyncedAt     *time.Time `json:"synced_at,omitempty"`
}

// NewActivitySynced builds the event for an upserted activity.
func NewActivitySynced(activity *domain.Activity, outcome domain.UpsertOutcome) ActivitySynced {
	name := "updated"
	if outcome == domain.UpsertInserted {
		name = "inserted"
	}
	return ActivitySynced{
		ActivityID:   activity.ID,
		ExternalID:   activity.ExternalID,
		Name:         activity.Name,
		ActivityType: activity.Type,
		StartDate:    activity.StartDate,
		Outcome:      name,
		SyncedAt:     activity.SyncedAt,
	}
}

// DedupeKey identifies this event uniquely per reconciliation pass so a
// replayed upsert in the same pass cannot enqueue twice.
func (e ActivitySynced) DedupeKey() string {
	var ts int64
	if e.SyncedAt != nil {
		ts = e.SyncedAt.UnixNano()
	}
	return fmt.Sprintf("%s:%s:%d", e.ExternalID, e.Outcome, ts)
}
