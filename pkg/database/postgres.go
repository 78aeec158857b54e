package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"sales-tracker-backend/pkg/models"
)

// uniqueViolation is the SQLSTATE for unique_violation
const uniqueViolation = "23505"

const userColumns = `id, email, password_hash, first_name, last_name, role, organization_id, created_at, updated_at`

const organizationColumns = `id, name, created_at, updated_at`

const goalsColumns = `id, user_id, organization_id,
	calls_per_day, emails_per_day, contacts_per_day, responses_per_day,
	calls_per_week, emails_per_week, contacts_per_week, responses_per_week,
	is_active, created_at, updated_at`

// activityCounterColumns lists the 20 counters, monday_calls .. friday_responses
var activityCounterColumns = func() []string {
	cols := make([]string, 0, 20)
	for _, day := range models.Weekdays {
		for _, metric := range []string{"calls", "emails", "contacts", "responses"} {
			cols = append(cols, day+"_"+metric)
		}
	}
	return cols
}()

var activityColumns = "id, user_id, week_start_date, " + strings.Join(activityCounterColumns, ", ") + ", created_at, updated_at"

// PostgresDatabase PostgreSQL数据库实现（database/sql + lib/pq）
type PostgresDatabase struct {
	db *sql.DB
}

// NewPostgresDatabase 创建PostgreSQL数据库实例
func NewPostgresDatabase(dsn string) (*PostgresDatabase, error) {
	// Sanitize DSN to avoid stray CR/LF from env values
	db, err := sql.Open("postgres", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	// 连接池参数，适合无服务器环境
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresDatabase{db: db}, nil
}

// NewPostgresDatabaseFromDB wraps an already opened *sql.DB
func NewPostgresDatabaseFromDB(db *sql.DB) *PostgresDatabase {
	return &PostgresDatabase{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// translateError 将驱动错误映射为哨兵错误
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pqErr.Constraint)
	}
	return err
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var role string
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FirstName, &u.LastName, &role, &u.OrganizationID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return &u, nil
}

// CreateUser 创建用户
func (db *PostgresDatabase) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, password_hash, first_name, last_name, role, organization_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := db.db.QueryRowContext(ctx, query,
		user.Email, user.Password, user.FirstName, user.LastName, string(user.Role), user.OrganizationID,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", translateError(err))
	}
	return nil
}

// GetUserByID 根据ID获取用户
func (db *PostgresDatabase) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(db.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", translateError(err))
	}
	return u, nil
}

// GetUserByEmail 根据邮箱获取用户
func (db *PostgresDatabase) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := scanUser(db.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", translateError(err))
	}
	return u, nil
}

// ListUsers 列出用户，orgID 为 nil 时不按组织过滤
func (db *PostgresDatabase) ListUsers(ctx context.Context, orgID *string) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []interface{}
	if orgID != nil {
		query += ` WHERE organization_id = $1`
		args = append(args, *orgID)
	}
	query += ` ORDER BY created_at DESC`

	return db.queryUsers(ctx, query, args...)
}

// ListTeamMembers 列出组织成员（不含调用者）
func (db *PostgresDatabase) ListTeamMembers(ctx context.Context, orgID, excludeUserID string) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE organization_id = $1 AND id <> $2
		ORDER BY role ASC, first_name ASC`
	return db.queryUsers(ctx, query, orgID, excludeUserID)
}

func (db *PostgresDatabase) queryUsers(ctx context.Context, query string, args ...interface{}) ([]models.User, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// CreateOrganization 创建组织
func (db *PostgresDatabase) CreateOrganization(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (name, created_at, updated_at)
		VALUES ($1, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	if err := db.db.QueryRowContext(ctx, query, org.Name).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create organization: %w", translateError(err))
	}
	return nil
}

func scanOrganization(row rowScanner) (*models.Organization, error) {
	var o models.Organization
	if err := row.Scan(&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

// GetOrganizationByID 根据ID获取组织
func (db *PostgresDatabase) GetOrganizationByID(ctx context.Context, id string) (*models.Organization, error) {
	o, err := scanOrganization(db.db.QueryRowContext(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", translateError(err))
	}
	return o, nil
}

// GetOrganizationByName 根据名称获取组织
func (db *PostgresDatabase) GetOrganizationByName(ctx context.Context, name string) (*models.Organization, error) {
	o, err := scanOrganization(db.db.QueryRowContext(ctx, `SELECT `+organizationColumns+` FROM organizations WHERE name = $1`, name))
	if err != nil {
		return nil, fmt.Errorf("failed to get organization by name: %w", translateError(err))
	}
	return o, nil
}

// ListOrganizations 按名称列出全部组织
func (db *PostgresDatabase) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	rows, err := db.db.QueryContext(ctx, `SELECT `+organizationColumns+` FROM organizations ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list organizations: %w", err)
	}
	defer rows.Close()

	orgs := []models.Organization{}
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organization: %w", err)
		}
		orgs = append(orgs, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate organizations: %w", err)
	}
	return orgs, nil
}

func scanGoals(row rowScanner) (*models.Goals, error) {
	var g models.Goals
	err := row.Scan(&g.ID, &g.UserID, &g.OrganizationID,
		&g.CallsPerDay, &g.EmailsPerDay, &g.ContactsPerDay, &g.ResponsesPerDay,
		&g.CallsPerWeek, &g.EmailsPerWeek, &g.ContactsPerWeek, &g.ResponsesPerWeek,
		&g.IsActive, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// FindActiveOrganizationGoals 查找组织级生效目标
func (db *PostgresDatabase) FindActiveOrganizationGoals(ctx context.Context, orgID string) (*models.Goals, error) {
	query := `SELECT ` + goalsColumns + ` FROM goals
		WHERE organization_id = $1 AND user_id IS NULL AND is_active = TRUE
		ORDER BY created_at ASC LIMIT 1`
	g, err := scanGoals(db.db.QueryRowContext(ctx, query, orgID))
	if err != nil {
		return nil, fmt.Errorf("failed to find organization goals: %w", translateError(err))
	}
	return g, nil
}

// FindActivePersonalGoals 查找个人生效目标
func (db *PostgresDatabase) FindActivePersonalGoals(ctx context.Context, userID string) (*models.Goals, error) {
	query := `SELECT ` + goalsColumns + ` FROM goals
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY created_at ASC LIMIT 1`
	g, err := scanGoals(db.db.QueryRowContext(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to find personal goals: %w", translateError(err))
	}
	return g, nil
}

// CreateGoals 创建目标记录
func (db *PostgresDatabase) CreateGoals(ctx context.Context, g *models.Goals) error {
	query := `
		INSERT INTO goals (user_id, organization_id,
			calls_per_day, emails_per_day, contacts_per_day, responses_per_day,
			calls_per_week, emails_per_week, contacts_per_week, responses_per_week,
			is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
		RETURNING id, created_at, updated_at
	`
	err := db.db.QueryRowContext(ctx, query, g.UserID, g.OrganizationID,
		g.CallsPerDay, g.EmailsPerDay, g.ContactsPerDay, g.ResponsesPerDay,
		g.CallsPerWeek, g.EmailsPerWeek, g.ContactsPerWeek, g.ResponsesPerWeek,
		g.IsActive,
	).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create goals: %w", translateError(err))
	}
	return nil
}

// UpdateGoals 原地更新八个目标值
func (db *PostgresDatabase) UpdateGoals(ctx context.Context, g *models.Goals) error {
	query := `
		UPDATE goals SET
			calls_per_day = $1, emails_per_day = $2, contacts_per_day = $3, responses_per_day = $4,
			calls_per_week = $5, emails_per_week = $6, contacts_per_week = $7, responses_per_week = $8,
			updated_at = NOW()
		WHERE id = $9
		RETURNING updated_at
	`
	err := db.db.QueryRowContext(ctx, query,
		g.CallsPerDay, g.EmailsPerDay, g.ContactsPerDay, g.ResponsesPerDay,
		g.CallsPerWeek, g.EmailsPerWeek, g.ContactsPerWeek, g.ResponsesPerWeek,
		g.ID,
	).Scan(&g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update goals: %w", translateError(err))
	}
	return nil
}

func scanActivity(row rowScanner) (*models.WeeklyActivity, error) {
	var a models.WeeklyActivity
	dest := []interface{}{&a.ID, &a.UserID, &a.WeekStartDate}
	for _, d := range a.Days() {
		dest = append(dest, &d.Calls, &d.Emails, &d.Contacts, &d.Responses)
	}
	dest = append(dest, &a.CreatedAt, &a.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetWeeklyActivity 获取某用户某周的活动
func (db *PostgresDatabase) GetWeeklyActivity(ctx context.Context, userID, weekStartDate string) (*models.WeeklyActivity, error) {
	query := `SELECT ` + activityColumns + ` FROM weekly_activities WHERE user_id = $1 AND week_start_date = $2`
	a, err := scanActivity(db.db.QueryRowContext(ctx, query, userID, weekStartDate))
	if err != nil {
		return nil, fmt.Errorf("failed to get weekly activity: %w", translateError(err))
	}
	return a, nil
}

// upsertActivityQuery 使用UPSERT语句（INSERT ... ON CONFLICT）整行覆盖
var upsertActivityQuery = func() string {
	placeholders := make([]string, len(activityCounterColumns))
	updates := make([]string, len(activityCounterColumns))
	for i, col := range activityCounterColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+3)
		updates[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
	}
	return `
		INSERT INTO weekly_activities (user_id, week_start_date, ` + strings.Join(activityCounterColumns, ", ") + `, created_at, updated_at)
		VALUES ($1, $2, ` + strings.Join(placeholders, ", ") + `, NOW(), NOW())
		ON CONFLICT (user_id, week_start_date)
		DO UPDATE SET
			` + strings.Join(updates, ",\n\t\t\t") + `,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`
}()

// UpsertWeeklyActivity 插入或整体覆盖一周的活动
func (db *PostgresDatabase) UpsertWeeklyActivity(ctx context.Context, a *models.WeeklyActivity) error {
	args := []interface{}{a.UserID, a.WeekStartDate}
	for _, v := range a.Counters() {
		args = append(args, v)
	}

	if err := db.db.QueryRowContext(ctx, upsertActivityQuery, args...).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return fmt.Errorf("failed to save weekly activity: %w", translateError(err))
	}
	return nil
}

// ListWeeklyActivities 按周倒序列出活动，可选日期范围（闭区间）
func (db *PostgresDatabase) ListWeeklyActivities(ctx context.Context, userID, startDate, endDate string) ([]models.WeeklyActivity, error) {
	query := `SELECT ` + activityColumns + ` FROM weekly_activities WHERE user_id = $1`
	args := []interface{}{userID}
	if startDate != "" {
		args = append(args, startDate)
		query += fmt.Sprintf(" AND week_start_date >= $%d", len(args))
	}
	if endDate != "" {
		args = append(args, endDate)
		query += fmt.Sprintf(" AND week_start_date <= $%d", len(args))
	}
	query += " ORDER BY week_start_date DESC"

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list weekly activities: %w", err)
	}
	defer rows.Close()

	activities := []models.WeeklyActivity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan weekly activity: %w", err)
		}
		activities = append(activities, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate weekly activities: %w", err)
	}
	return activities, nil
}

// HealthCheck 健康检查
func (db *PostgresDatabase) HealthCheck(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

// Close 关闭连接
func (db *PostgresDatabase) Close() error {
	return db.db.Close()
}
