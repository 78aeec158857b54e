package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"sales-tracker-backend/pkg/models"
)

// GormDatabase PostgreSQL数据库实现（gorm）
type GormDatabase struct {
	db *gorm.DB
}

func gormConfig(debug bool) *gorm.Config {
	level := logger.Warn
	if debug {
		level = logger.Info
	}
	return &gorm.Config{
		Logger:                 logger.Default.LogMode(level),
		TranslateError:         true,
		SkipDefaultTransaction: true,
	}
}

// NewGormDatabase 创建 gorm 数据库实例
func NewGormDatabase(dsn string, debug bool) (*GormDatabase, error) {
	db, err := gorm.Open(postgres.Open(strings.TrimSpace(dsn)), gormConfig(debug))
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return &GormDatabase{db: db}, nil
}

// NewGormDatabaseFromConn builds the gorm store on an existing connection
func NewGormDatabaseFromConn(conn *sql.DB) (*GormDatabase, error) {
	cfg := gormConfig(false)
	cfg.Logger = logger.Default.LogMode(logger.Silent)
	cfg.DisableAutomaticPing = true

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm postgres: %w", err)
	}
	return &GormDatabase{db: db}, nil
}

// translateGormError 将 gorm 错误映射为哨兵错误
func translateGormError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

// CreateUser 创建用户
func (g *GormDatabase) CreateUser(ctx context.Context, user *models.User) error {
	if err := g.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", translateGormError(err))
	}
	return nil
}

// GetUserByID 根据ID获取用户
func (g *GormDatabase) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := g.db.WithContext(ctx).Where("id = ?", id).Take(&u).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", translateGormError(err))
	}
	return &u, nil
}

// GetUserByEmail 根据邮箱获取用户
func (g *GormDatabase) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := g.db.WithContext(ctx).Where("email = ?", email).Take(&u).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", translateGormError(err))
	}
	return &u, nil
}

// ListUsers 列出用户，orgID 为 nil 时不按组织过滤
func (g *GormDatabase) ListUsers(ctx context.Context, orgID *string) ([]models.User, error) {
	users := []models.User{}
	q := g.db.WithContext(ctx)
	if orgID != nil {
		q = q.Where("organization_id = ?", *orgID)
	}
	if err := q.Order("created_at DESC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ListTeamMembers 列出组织成员（不含调用者）
func (g *GormDatabase) ListTeamMembers(ctx context.Context, orgID, excludeUserID string) ([]models.User, error) {
	users := []models.User{}
	err := g.db.WithContext(ctx).
		Where("organization_id = ? AND id <> ?", orgID, excludeUserID).
		Order("role ASC, first_name ASC").
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}
	return users, nil
}

// CreateOrganization 创建组织
func (g *GormDatabase) CreateOrganization(ctx context.Context, org *models.Organization) error {
	if err := g.db.WithContext(ctx).Create(org).Error; err != nil {
		return fmt.Errorf("failed to create organization: %w", translateGormError(err))
	}
	return nil
}

// GetOrganizationByID 根据ID获取组织
func (g *GormDatabase) GetOrganizationByID(ctx context.Context, id string) (*models.Organization, error) {
	var o models.Organization
	if err := g.db.WithContext(ctx).Where("id = ?", id).Take(&o).Error; err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", translateGormError(err))
	}
	return &o, nil
}

// GetOrganizationByName 根据名称获取组织
func (g *GormDatabase) GetOrganizationByName(ctx context.Context, name string) (*models.Organization, error) {
	var o models.Organization
	if err := g.db.WithContext(ctx).Where("name = ?", name).Take(&o).Error; err != nil {
		return nil, fmt.Errorf("failed to get organization by name: %w", translateGormError(err))
	}
	return &o, nil
}

// ListOrganizations 按名称列出全部组织
func (g *GormDatabase) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	orgs := []models.Organization{}
	if err := g.db.WithContext(ctx).Order("name ASC").Find(&orgs).Error; err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	return orgs, nil
}

// FindActiveOrganizationGoals 查找组织级生效目标
func (g *GormDatabase) FindActiveOrganizationGoals(ctx context.Context, orgID string) (*models.Goals, error) {
	var goals models.Goals
	err := g.db.WithContext(ctx).
		Where("organization_id = ? AND user_id IS NULL AND is_active = ?", orgID, true).
		Order("created_at ASC").
		Take(&goals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find organization goals: %w", translateGormError(err))
	}
	return &goals, nil
}

// FindActivePersonalGoals 查找个人生效目标
func (g *GormDatabase) FindActivePersonalGoals(ctx context.Context, userID string) (*models.Goals, error) {
	var goals models.Goals
	err := g.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at ASC").
		Take(&goals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find personal goals: %w", translateGormError(err))
	}
	return &goals, nil
}

// CreateGoals 创建目标记录
func (g *GormDatabase) CreateGoals(ctx context.Context, goals *models.Goals) error {
	if err := g.db.WithContext(ctx).Create(goals).Error; err != nil {
		return fmt.Errorf("failed to create goals: %w", translateGormError(err))
	}
	return nil
}

// UpdateGoals 原地更新八个目标值；使用 map 以便写入零值
func (g *GormDatabase) UpdateGoals(ctx context.Context, goals *models.Goals) error {
	now := time.Now()
	res := g.db.WithContext(ctx).Model(&models.Goals{}).Where("id = ?", goals.ID).Updates(map[string]interface{}{
		"calls_per_day":      goals.CallsPerDay,
		"emails_per_day":     goals.EmailsPerDay,
		"contacts_per_day":   goals.ContactsPerDay,
		"responses_per_day":  goals.ResponsesPerDay,
		"calls_per_week":     goals.CallsPerWeek,
		"emails_per_week":    goals.EmailsPerWeek,
		"contacts_per_week":  goals.ContactsPerWeek,
		"responses_per_week": goals.ResponsesPerWeek,
		"updated_at":         now,
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update goals: %w", translateGormError(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("failed to update goals: %w", ErrNotFound)
	}
	goals.UpdatedAt = now
	return nil
}

// GetWeeklyActivity 获取某用户某周的活动
func (g *GormDatabase) GetWeeklyActivity(ctx context.Context, userID, weekStartDate string) (*models.WeeklyActivity, error) {
	var a models.WeeklyActivity
	err := g.db.WithContext(ctx).
		Where("user_id = ? AND week_start_date = ?", userID, weekStartDate).
		Take(&a).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get weekly activity: %w", translateGormError(err))
	}
	return &a, nil
}

// UpsertWeeklyActivity 插入或整体覆盖一周的活动
func (g *GormDatabase) UpsertWeeklyActivity(ctx context.Context, a *models.WeeklyActivity) error {
	updateColumns := append(append([]string{}, activityCounterColumns...), "updated_at")
	err := g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "week_start_date"}},
		DoUpdates: clause.AssignmentColumns(updateColumns),
	}).Create(a).Error
	if err != nil {
		return fmt.Errorf("failed to save weekly activity: %w", translateGormError(err))
	}
	return nil
}

// ListWeeklyActivities 按周倒序列出活动，可选日期范围（闭区间）
func (g *GormDatabase) ListWeeklyActivities(ctx context.Context, userID, startDate, endDate string) ([]models.WeeklyActivity, error) {
	activities := []models.WeeklyActivity{}
	q := g.db.WithContext(ctx).Where("user_id = ?", userID)
	if startDate != "" {
		q = q.Where("week_start_date >= ?", startDate)
	}
	if endDate != "" {
		q = q.Where("week_start_date <= ?", endDate)
	}
	if err := q.Order("week_start_date DESC").Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("failed to list weekly activities: %w", err)
	}
	return activities, nil
}

// HealthCheck 健康检查
func (g *GormDatabase) HealthCheck(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 关闭连接
func (g *GormDatabase) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
