package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"sales-tracker-backend/pkg/database"
	"sales-tracker-backend/pkg/metrics"
	"sales-tracker-backend/pkg/models"
	"sales-tracker-backend/pkg/utils"
)

// ActivityService 每周活动记录
type ActivityService struct {
	db     database.DatabaseInterface
	logger logrus.FieldLogger
}

// NewActivityService 创建活动服务
func NewActivityService(db database.DatabaseInterface, logger logrus.FieldLogger) *ActivityService {
	return &ActivityService{db: db, logger: logger}
}

// GetWeek returns the user's record for weekStartDate, or nil when none exists
func (s *ActivityService) GetWeek(ctx context.Context, userID, weekStartDate string) (*models.WeeklyActivity, error) {
	if _, err := utils.ParseWeekStart(weekStartDate); err != nil {
		return nil, err
	}

	a, err := s.db.GetWeeklyActivity(ctx, userID, weekStartDate)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return a, nil
}

// SaveWeek replaces the user's record for the payload's week. Missing
// counters are 0; a negative counter rejects the whole payload.
func (s *ActivityService) SaveWeek(ctx context.Context, userID string, req *models.WeekActivityRequest) (*models.WeeklyActivity, error) {
	if _, err := utils.ParseWeekStart(req.WeekStartDate); err != nil {
		return nil, err
	}

	a := &models.WeeklyActivity{UserID: userID, WeekStartDate: req.WeekStartDate}
	days := a.Days()
	for i, in := range req.Days() {
		*days[i] = in.Resolve()
	}
	for _, v := range a.Counters() {
		if v < 0 {
			return nil, utils.NewAppError(utils.CodeInvalidValue, "All activity values must be non-negative")
		}
	}

	if err := s.db.UpsertWeeklyActivity(ctx, a); err != nil {
		metrics.RecordActivitySave(false)
		return nil, fmt.Errorf("save weekly activity: %w", err)
	}
	metrics.RecordActivitySave(true)

	s.logger.WithFields(logrus.Fields{
		"user_id":         userID,
		"week_start_date": a.WeekStartDate,
	}).Debug("weekly activity saved")
	return a, nil
}

// ListAll returns the user's records newest week first, optionally limited
// to an inclusive range.
func (s *ActivityService) ListAll(ctx context.Context, userID, startDate, endDate string) ([]*models.WeekActivity, error) {
	if err := utils.ValidateQueryDate("startDate", startDate); err != nil {
		return nil, err
	}
	if err := utils.ValidateQueryDate("endDate", endDate); err != nil {
		return nil, err
	}

	records, err := s.db.ListWeeklyActivities(ctx, userID, startDate, endDate)
	if err != nil {
		return nil, err
	}
	out := make([]*models.WeekActivity, 0, len(records))
	for i := range records {
		out = append(out, records[i].View(false))
	}
	return out, nil
}
