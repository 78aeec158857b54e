package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"sales-tracker-backend/pkg/database"
	"sales-tracker-backend/pkg/models"
	"sales-tracker-backend/pkg/utils"
)

// AuthService 注册、登录与当前用户
type AuthService struct {
	db     database.DatabaseInterface
	jwt    *utils.JWTService
	hasher *utils.PasswordHasher
	logger logrus.FieldLogger
}

// NewAuthService 创建认证服务
func NewAuthService(db database.DatabaseInterface, jwt *utils.JWTService, hasher *utils.PasswordHasher, logger logrus.FieldLogger) *AuthService {
	return &AuthService{db: db, jwt: jwt, hasher: hasher, logger: logger}
}

// Register creates a user, joining or founding an organization on the way.
// Input checks run in a fixed order and return on the first failure.
func (s *AuthService) Register(ctx context.Context, req *models.UserRegisterRequest) (*models.AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if !utils.IsValidEmail(req.Email) {
		return nil, utils.NewAppError(utils.CodeInvalidEmail, "Invalid email format")
	}
	if !utils.IsStrongPassword(req.Password) {
		return nil, utils.NewAppError(utils.CodeWeakPassword, "Password must be at least 8 characters with 1 uppercase letter and 1 number")
	}

	role := models.RoleSalesRep
	if req.Role != "" {
		role = models.Role(req.Role)
	}
	if !role.Valid() {
		return nil, utils.NewAppError(utils.CodeInvalidRole, "Invalid role")
	}

	if _, err := s.db.GetUserByEmail(ctx, req.Email); err == nil {
		return nil, utils.NewAppError(utils.CodeEmailExists, "Email already exists")
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	orgID, err := s.resolveOrganization(ctx, req)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:          req.Email,
		Password:       hash,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Role:           role,
		OrganizationID: orgID,
	}
	if err := s.db.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			// 并发注册同一邮箱
			return nil, utils.NewAppError(utils.CodeEmailExists, "Email already exists")
		}
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user registered")
	return s.issue(user)
}

// resolveOrganization 返回新用户的组织ID；organizationId 优先于 organizationName
func (s *AuthService) resolveOrganization(ctx context.Context, req *models.UserRegisterRequest) (*string, error) {
	if id := strings.TrimSpace(req.OrganizationID); id != "" {
		if _, err := uuid.Parse(id); err != nil {
			return nil, utils.NewAppError(utils.CodeOrganizationNotFound, "Organization not found")
		}
		org, err := s.db.GetOrganizationByID(ctx, id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				return nil, utils.NewAppError(utils.CodeOrganizationNotFound, "Organization not found")
			}
			return nil, err
		}
		return &org.ID, nil
	}

	name := strings.TrimSpace(req.OrganizationName)
	if name == "" {
		return nil, nil
	}
	if _, err := s.db.GetOrganizationByName(ctx, name); err == nil {
		return nil, utils.NewAppError(utils.CodeOrganizationExists, "Organization name already exists")
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	org := &models.Organization{Name: name}
	if err := s.db.CreateOrganization(ctx, org); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, utils.NewAppError(utils.CodeOrganizationExists, "Organization name already exists")
		}
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"organization_id": org.ID, "name": org.Name}).Info("organization created")
	return &org.ID, nil
}

// Login 校验邮箱与密码并签发令牌
func (s *AuthService) Login(ctx context.Context, req *models.UserLoginRequest) (*models.AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.db.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, utils.NewAppError(utils.CodeInvalidCredentials, "Invalid credentials")
		}
		return nil, err
	}
	if !s.hasher.Compare(user.Password, req.Password) {
		return nil, utils.NewAppError(utils.CodeInvalidCredentials, "Invalid credentials")
	}
	return s.issue(user)
}

// Me reloads the caller's profile
func (s *AuthService) Me(ctx context.Context, userID string) (*models.UserProfile, error) {
	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, utils.NewAppError(utils.CodeUserNotFound, "User not found")
		}
		return nil, err
	}
	return user.Profile(), nil
}

func (s *AuthService) issue(user *models.User) (*models.AuthResponse, error) {
	token, err := s.jwt.GenerateToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &models.AuthResponse{Token: token, User: user.Profile()}, nil
}
