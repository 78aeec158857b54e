package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"sales-tracker-backend/pkg/database"
	"sales-tracker-backend/pkg/metrics"
	"sales-tracker-backend/pkg/models"
	"sales-tracker-backend/pkg/policy"
	"sales-tracker-backend/pkg/utils"
)

// GoalsService 目标解析与更新
type GoalsService struct {
	db     database.DatabaseInterface
	logger logrus.FieldLogger
}

// NewGoalsService 创建目标服务
func NewGoalsService(db database.DatabaseInterface, logger logrus.FieldLogger) *GoalsService {
	return &GoalsService{db: db, logger: logger}
}

// Resolve returns the goals that apply to identity.
//
// Sales reps read the organization record (created on first read) or the
// static defaults when they have no organization; they never get a personal
// record. Managers and admins fall back from organization to personal goals
// and create whichever scope they belong to when neither exists.
func (s *GoalsService) Resolve(ctx context.Context, identity *models.UserProfile) (*models.GoalsData, error) {
	if identity.Role == models.RoleSalesRep {
		if identity.OrganizationID == nil {
			metrics.RecordGoalsResolution(metrics.GoalsStaticDefault)
			return models.DefaultGoalsData(), nil
		}
		return s.organizationGoals(ctx, *identity.OrganizationID)
	}

	if identity.OrganizationID != nil {
		g, err := s.db.FindActiveOrganizationGoals(ctx, *identity.OrganizationID)
		switch {
		case err == nil:
			metrics.RecordGoalsResolution(metrics.GoalsOrganization)
			return g.Data(), nil
		case !errors.Is(err, database.ErrNotFound):
			return nil, err
		}
	}

	g, err := s.db.FindActivePersonalGoals(ctx, identity.ID)
	switch {
	case err == nil:
		metrics.RecordGoalsResolution(metrics.GoalsPersonal)
		return g.Data(), nil
	case !errors.Is(err, database.ErrNotFound):
		return nil, err
	}

	created := models.NewDefaultGoals()
	source := metrics.GoalsPersonalCreated
	if identity.OrganizationID != nil {
		created.OrganizationID = identity.OrganizationID
		source = metrics.GoalsOrganizationCreated
	} else {
		id := identity.ID
		created.UserID = &id
	}
	if err := s.db.CreateGoals(ctx, created); err != nil {
		return nil, fmt.Errorf("create default goals: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"user_id": identity.ID, "source": source}).Info("created default goals")
	metrics.RecordGoalsResolution(source)
	return created.Data(), nil
}

// organizationGoals 读取组织目标，不存在时以默认值创建
func (s *GoalsService) organizationGoals(ctx context.Context, orgID string) (*models.GoalsData, error) {
	g, err := s.db.FindActiveOrganizationGoals(ctx, orgID)
	if err == nil {
		metrics.RecordGoalsResolution(metrics.GoalsOrganization)
		return g.Data(), nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	created := models.NewDefaultGoals()
	created.OrganizationID = &orgID
	if err := s.db.CreateGoals(ctx, created); err != nil {
		return nil, fmt.Errorf("create organization goals: %w", err)
	}
	s.logger.WithField("organization_id", orgID).Info("created default organization goals")
	metrics.RecordGoalsResolution(metrics.GoalsOrganizationCreated)
	return created.Data(), nil
}

// Update overwrites the caller's organization goals. Every check runs before
// anything is written.
func (s *GoalsService) Update(ctx context.Context, identity *models.UserProfile, req *models.GoalsUpdateRequest) (*models.GoalsData, error) {
	if !policy.HasRole(identity, models.RoleManager, models.RoleAdmin) {
		return nil, utils.NewAppError(utils.CodeForbidden, "Only managers can update goals")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	for _, v := range req.Values() {
		if *v < 0 {
			return nil, utils.NewAppError(utils.CodeInvalidMetrics, "All metric values must be non-negative")
		}
	}
	if identity.OrganizationID == nil {
		return nil, utils.NewAppError(utils.CodeNoOrganization, "Manager must belong to an organization to set goals")
	}

	g, err := s.db.FindActiveOrganizationGoals(ctx, *identity.OrganizationID)
	switch {
	case err == nil:
		req.ApplyTo(g)
		if err := s.db.UpdateGoals(ctx, g); err != nil {
			return nil, fmt.Errorf("update organization goals: %w", err)
		}
	case errors.Is(err, database.ErrNotFound):
		g = &models.Goals{OrganizationID: identity.OrganizationID, IsActive: true}
		req.ApplyTo(g)
		if err := s.db.CreateGoals(ctx, g); err != nil {
			return nil, fmt.Errorf("create organization goals: %w", err)
		}
	default:
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":         identity.ID,
		"organization_id": *identity.OrganizationID,
	}).Info("organization goals updated")
	return g.Data(), nil
}
