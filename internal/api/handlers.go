// Package api exposes the HTTP query/mutation surface for stored activities.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/activity-tracker/internal/domain"
	"example.com/activity-tracker/internal/sync"
)

// Syncer triggers a reconciliation pass on demand.
type Syncer interface {
	Sync(ctx context.Context, opts sync.Options) sync.Result
}

// Prober checks upstream reachability.
type Prober interface {
	TestConnection(ctx context.Context) bool
}

// manualSyncLookback is applied when a manual sync supplies no oldest bound.
const manualSyncLookback = 30 * 24 * time.Hour

// Handler coordinates HTTP requests with the domain service and sync engine.
type Handler struct {
	service *domain.Service
	syncer  Syncer
	probe   Prober
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, syncer Syncer, probe Prober) *Handler {
	return &Handler{service: service, syncer: syncer, probe: probe}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/activities", h.activities)
	mux.HandleFunc("/activities/summary", h.summary)
	mux.HandleFunc("/activities/sync", h.syncActivities)
	mux.HandleFunc("/activities/", h.activityByID)
	mux.HandleFunc("/health", h.health)
	mux.HandleFunc("/health/intervals", h.intervalsHealth)
}

func (h *Handler) activities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	filter := domain.ListFilter{Limit: 100}

	query := r.URL.Query()
	if raw := query.Get("skip"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			filter.Skip = parsed
		}
	}
	if raw := query.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 1 && parsed <= 1000 {
			filter.Limit = parsed
		}
	}
	filter.ActivityType = query.Get("activity_type")

	var err error
	if filter.StartDate, err = parseDateParam(query.Get("start_date")); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid start_date, expected YYYY-MM-DD")
		return
	}
	if filter.EndDate, err = parseDateParam(query.Get("end_date")); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid end_date, expected YYYY-MM-DD")
		return
	}

	activities, err := h.service.ListActivities(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	views := make([]ActivityView, 0, len(activities))
	for _, activity := range activities {
		views = append(views, toActivityView(activity))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	summary := h.service.GetSummary(r.Context())

	resp := SummaryResponse{
		TotalActivities: summary.TotalActivities,
		TotalDistance:   summary.TotalDistance,
		TotalMovingTime: summary.TotalMovingTime,
		AvgDistance:     summary.AvgDistance,
	}
	if summary.RecentActivity != nil {
		view := toActivityView(*summary.RecentActivity)
		resp.RecentActivity = &view
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) syncActivities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	query := r.URL.Query()
	opts := sync.Options{Limit: 100}

	var err error
	if opts.Oldest, err = parseDateParam(query.Get("oldest")); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid oldest, expected YYYY-MM-DD")
		return
	}
	if opts.Newest, err = parseDateParam(query.Get("newest")); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid newest, expected YYYY-MM-DD")
		return
	}
	if raw := query.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 1 && parsed <= 1000 {
			opts.Limit = parsed
		}
	}

	if opts.Oldest == nil {
		oldest := time.Now().UTC().Add(-manualSyncLookback)
		opts.Oldest = &oldest
	}

	result := h.syncer.Sync(r.Context(), opts)

	// A failed pass is reported in the body, not as an HTTP error.
	writeJSON(w, http.StatusOK, SyncStatusResponse{
		Status:            string(result.Status),
		ActivitiesSynced:  result.ActivitiesSynced,
		ActivitiesUpdated: result.ActivitiesUpdated,
		TotalProcessed:    result.TotalProcessed,
		LastSync:          result.LastSync,
		Message:           result.Message,
	})
}

func (h *Handler) activityByID(w http.ResponseWriter, r *http.Request) {
	rawID := strings.TrimPrefix(r.URL.Path, "/activities/")
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid activity id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getActivity(w, r, id)
	case http.MethodPut:
		h.updateActivity(w, r, id)
	case http.MethodDelete:
		h.deleteActivity(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request, id int64) {
	activity, err := h.service.GetActivity(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrActivityNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "activity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*activity))
}

func (h *Handler) updateActivity(w http.ResponseWriter, r *http.Request, id int64) {
	var req UpdateActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	activity, err := h.service.UpdateActivity(r.Context(), id, domain.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		if errors.Is(err, domain.ErrActivityNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "activity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toActivityView(*activity))
}

func (h *Handler) deleteActivity(w http.ResponseWriter, r *http.Request, id int64) {
	if err := h.service.DeleteActivity(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrActivityNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "activity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Activity deleted successfully"})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "Intervals.icu Activity Tracker",
		"version": "1.0.0",
	})
}

func (h *Handler) intervalsHealth(w http.ResponseWriter, r *http.Request) {
	connected := h.probe.TestConnection(r.Context())
	status := "unhealthy"
	if connected {
		status = "healthy"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"service":   "Intervals.icu API",
		"connected": connected,
	})
}

func parseDateParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// UpdateActivityRequest is the restricted payload for PUT /activities/{id}.
type UpdateActivityRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Tags        *string `json:"tags"`
}

// ActivityView exposes full details about a stored activity.
type ActivityView struct {
	ID               int64      `json:"id"`
	ExternalID       string     `json:"external_id"`
	Name             string     `json:"name"`
	Type             string     `json:"type"`
	StartDate        *time.Time `json:"start_date"`
	MovingTime       *int64     `json:"moving_time"`
	ElapsedTime      *int64     `json:"elapsed_time"`
	Distance         *float64   `json:"distance"`
	AverageSpeed     *float64   `json:"average_speed"`
	MaxSpeed         *float64   `json:"max_speed"`
	AverageHeartrate *float64   `json:"average_heartrate"`
	MaxHeartrate     *float64   `json:"max_heartrate"`
	AveragePower     *float64   `json:"average_power"`
	MaxPower         *float64   `json:"max_power"`
	TSS              *float64   `json:"tss"`
	IntensityFactor  *float64   `json:"intensity_factor"`
	NormalizedPower  *float64   `json:"normalized_power"`
	Description      string     `json:"description"`
	Tags             string     `json:"tags"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	SyncedAt         *time.Time `json:"synced_at"`
}

// SummaryResponse aggregates all stored activities.
type SummaryResponse struct {
	TotalActivities int64         `json:"total_activities"`
	TotalDistance   float64       `json:"total_distance"`
	TotalMovingTime int64         `json:"total_moving_time"`
	AvgDistance     float64       `json:"avg_distance"`
	RecentActivity  *ActivityView `json:"recent_activity"`
}

// SyncStatusResponse reports the outcome of a manual sync trigger.
type SyncStatusResponse struct {
	Status            string     `json:"status"`
	ActivitiesSynced  int        `json:"activities_synced"`
	ActivitiesUpdated int        `json:"activities_updated"`
	TotalProcessed    int        `json:"total_processed"`
	LastSync          *time.Time `json:"last_sync,omitempty"`
	Message           string     `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toActivityView(a domain.Activity) ActivityView {
	return ActivityView{
		ID:               a.ID,
		ExternalID:       a.ExternalID,
		Name:             a.Name,
		Type:             a.Type,
		StartDate:        a.StartDate,
		MovingTime:       a.MovingTime,
		ElapsedTime:      a.ElapsedTime,
		Distance:         a.Distance,
		AverageSpeed:     a.AverageSpeed,
		MaxSpeed:         a.MaxSpeed,
		AverageHeartrate: a.AverageHeartrate,
		MaxHeartrate:     a.MaxHeartrate,
		AveragePower:     a.AveragePower,
		MaxPower:         a.MaxPower,
		TSS:              a.TSS,
		IntensityFactor:  a.IntensityFactor,
		NormalizedPower:  a.NormalizedPower,
		Description:      a.Description,
		Tags:             a.Tags,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
		SyncedAt:         a.SyncedAt,
	}
}
