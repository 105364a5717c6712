package domain

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Service orchestrates activity queries and manual mutations.
type Service struct {
	repo ActivityRepository
}

// NewService constructs a Service.
func NewService(repo ActivityRepository) *Service {
	return &Service{repo: repo}
}

// ListActivities fetches activities matching the filter, newest start date first.
func (s *Service) ListActivities(ctx context.Context, filter ListFilter) ([]Activity, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Skip < 0 {
		filter.Skip = 0
	}
	return s.repo.List(ctx, filter)
}

// GetActivity fetches a single activity by its local id.
func (s *Service) GetActivity(ctx context.Context, id int64) (*Activity, error) {
	activity, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, ErrActivityNotFound
	}
	return activity, nil
}

// UpdateActivity applies a restricted manual update (name, description, tags)
// and bumps the updated timestamp.
func (s *Service) UpdateActivity(ctx context.Context, id int64, input UpdateInput) (*Activity, error) {
	activity, err := s.repo.UpdateDetails(ctx, id, input, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return nil, ErrActivityNotFound
	}
	logrus.WithFields(logrus.Fields{"activity_id": id, "name": activity.Name}).Info("updated activity")
	return activity, nil
}

// DeleteActivity removes an activity by its local id.
func (s *Service) DeleteActivity(ctx context.Context, id int64) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrActivityNotFound
	}
	logrus.WithField("activity_id", id).Info("deleted activity")
	return nil
}

// GetSummary aggregates all stored activities. It never surfaces an error:
// any storage failure degrades to an all-zero summary.
func (s *Service) GetSummary(ctx context.Context) Summary {
	summary, err := s.repo.Summary(ctx)
	if err != nil {
		logrus.WithError(err).Error("failed to compute activity summary")
		return Summary{}
	}
	return summary
}
