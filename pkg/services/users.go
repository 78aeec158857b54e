package services

import (
	"context"

	"sales-tracker-backend/pkg/database"
	"sales-tracker-backend/pkg/models"
	"sales-tracker-backend/pkg/policy"
	"sales-tracker-backend/pkg/utils"
)

// DirectoryService lists users, team members and organizations
type DirectoryService struct {
	db     database.DatabaseInterface
	policy policy.Policy
}

// NewDirectoryService 创建目录服务
func NewDirectoryService(db database.DatabaseInterface, p policy.Policy) *DirectoryService {
	return &DirectoryService{db: db, policy: p}
}

// ListUsers 列出调用者可见的用户，按创建时间倒序
func (s *DirectoryService) ListUsers(ctx context.Context, caller *models.UserProfile) ([]models.UserSummary, error) {
	scope, err := s.policy.ListingScope(caller)
	if err != nil {
		return nil, err
	}
	users, err := s.db.ListUsers(ctx, scope)
	if err != nil {
		return nil, err
	}
	return summaries(users), nil
}

// ListTeamMembers 列出同组织的其他成员
func (s *DirectoryService) ListTeamMembers(ctx context.Context, caller *models.UserProfile) ([]models.UserSummary, error) {
	if caller.OrganizationID == nil {
		return nil, utils.NewAppError(utils.CodeNoOrganization, "User is not part of an organization")
	}
	users, err := s.db.ListTeamMembers(ctx, *caller.OrganizationID, caller.ID)
	if err != nil {
		return nil, err
	}
	return summaries(users), nil
}

// ListOrganizations 按名称列出组织（公开接口）
func (s *DirectoryService) ListOrganizations(ctx context.Context) ([]models.OrganizationSummary, error) {
	orgs, err := s.db.ListOrganizations(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.OrganizationSummary, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, models.OrganizationSummary{ID: o.ID, Name: o.Name, CreatedAt: o.CreatedAt})
	}
	return out, nil
}

// Member loads a user the caller is allowed to see
func (s *DirectoryService) Member(ctx context.Context, caller *models.UserProfile, userID string) (*models.User, error) {
	return s.policy.RequireSameOrganization(ctx, s.db, caller, userID)
}

func summaries(users []models.User) []models.UserSummary {
	out := make([]models.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, users[i].Summary())
	}
	return out
}
