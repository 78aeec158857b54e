package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"sales-tracker-backend/pkg/models"
)

// 存储层哨兵错误
var (
	// ErrNotFound is returned when a lookup, update or delete matches no row
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned on a unique-constraint violation
	ErrDuplicate = errors.New("duplicate record")
)

// DatabaseInterface 定义数据库访问接口
type DatabaseInterface interface {
	// 用户管理
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	// ListUsers orders by created_at descending; a nil orgID lists every user
	ListUsers(ctx context.Context, orgID *string) ([]models.User, error)
	// ListTeamMembers orders by role then first name
	ListTeamMembers(ctx context.Context, orgID, excludeUserID string) ([]models.User, error)

	// 组织
	CreateOrganization(ctx context.Context, org *models.Organization) error
	GetOrganizationByID(ctx context.Context, id string) (*models.Organization, error)
	GetOrganizationByName(ctx context.Context, name string) (*models.Organization, error)
	ListOrganizations(ctx context.Context) ([]models.Organization, error)

	// 目标
	FindActiveOrganizationGoals(ctx context.Context, orgID string) (*models.Goals, error)
	FindActivePersonalGoals(ctx context.Context, userID string) (*models.Goals, error)
	CreateGoals(ctx context.Context, goals *models.Goals) error
	UpdateGoals(ctx context.Context, goals *models.Goals) error

	// 每周活动
	GetWeeklyActivity(ctx context.Context, userID, weekStartDate string) (*models.WeeklyActivity, error)
	// UpsertWeeklyActivity replaces every counter of the (user, week) row atomically
	UpsertWeeklyActivity(ctx context.Context, activity *models.WeeklyActivity) error
	// ListWeeklyActivities filters inclusively on week_start_date; empty bounds are open
	ListWeeklyActivities(ctx context.Context, userID, startDate, endDate string) ([]models.WeeklyActivity, error)

	// 健康检查
	HealthCheck(ctx context.Context) error
	Close() error
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver       string
	PostgresDSN  string
	LocalDataDir string
	Debug        bool
}

// 支持的驱动
const (
	DriverPostgres = "postgres"
	DriverGorm     = "gorm"
	DriverMemory   = "memory"
)

// NewDatabase 根据配置创建数据库实例
func NewDatabase(config DatabaseConfig, logger logrus.FieldLogger) (DatabaseInterface, error) {
	log := logger.WithField("driver", config.Driver)

	switch config.Driver {
	case DriverPostgres:
		log.Info("using PostgreSQL database (database/sql)")
		db, err := NewPostgresDatabase(config.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return db, nil
	case DriverGorm:
		log.Info("using PostgreSQL database (gorm)")
		db, err := NewGormDatabase(config.PostgresDSN, config.Debug)
		if err != nil {
			return nil, err
		}
		return db, nil
	case DriverMemory, "":
		if config.LocalDataDir != "" {
			log.WithField("data_dir", config.LocalDataDir).Info("using in-memory database with file snapshots")
		} else {
			log.Warn("using in-memory database; data is lost on restart")
		}
		db, err := NewLocalDatabase(config.LocalDataDir)
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", config.Driver)
	}
}
