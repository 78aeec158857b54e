package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"sales-tracker-backend/pkg/models"
)

const snapshotFile = "store.json"

// LocalDatabase 内存数据库实现，可选地把快照写入本地文件
type LocalDatabase struct {
	mu      sync.RWMutex
	dataDir string

	users         []*models.User
	organizations []*models.Organization
	goals         []*models.Goals
	activities    []*models.WeeklyActivity
}

// snapshotUser keeps the password hash, which models.User hides from JSON
type snapshotUser struct {
	models.User
	PasswordHash string `json:"passwordHash"`
}

type localSnapshot struct {
	Users         []snapshotUser           `json:"users"`
	Organizations []*models.Organization   `json:"organizations"`
	Goals         []*models.Goals          `json:"goals"`
	Activities    []*models.WeeklyActivity `json:"activities"`
}

// NewLocalDatabase 创建本地数据库实例；dataDir 为空时只保存在内存中
func NewLocalDatabase(dataDir string) (*LocalDatabase, error) {
	db := &LocalDatabase{dataDir: dataDir}
	if dataDir == "" {
		return db, nil
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := db.load(); err != nil {
		return nil, err
	}
	return db, nil
}

func (db *LocalDatabase) load() error {
	data, err := os.ReadFile(filepath.Join(db.dataDir, snapshotFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	var snap localSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	for i := range snap.Users {
		u := snap.Users[i].User
		u.Password = snap.Users[i].PasswordHash
		db.users = append(db.users, &u)
	}
	db.organizations = snap.Organizations
	db.goals = snap.Goals
	db.activities = snap.Activities
	return nil
}

// persist writes the snapshot; caller holds the write lock
func (db *LocalDatabase) persist() error {
	if db.dataDir == "" {
		return nil
	}

	snap := localSnapshot{
		Organizations: db.organizations,
		Goals:         db.goals,
		Activities:    db.activities,
	}
	for _, u := range db.users {
		snap.Users = append(snap.Users, snapshotUser{User: *u, PasswordHash: u.Password})
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp := filepath.Join(db.dataDir, snapshotFile+".tmp")
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return os.Rename(tmp, filepath.Join(db.dataDir, snapshotFile))
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyUser(u *models.User) *models.User {
	c := *u
	c.OrganizationID = copyString(u.OrganizationID)
	return &c
}

func copyGoals(g *models.Goals) *models.Goals {
	c := *g
	c.UserID = copyString(g.UserID)
	c.OrganizationID = copyString(g.OrganizationID)
	return &c
}

// CreateUser 创建用户
func (db *LocalDatabase) CreateUser(ctx context.Context, user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Email == user.Email {
			return fmt.Errorf("failed to create user: %w: email", ErrDuplicate)
		}
	}

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	db.users = append(db.users, copyUser(user))
	return db.persist()
}

// GetUserByID 根据ID获取用户
func (db *LocalDatabase) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, u := range db.users {
		if u.ID == id {
			return copyUser(u), nil
		}
	}
	return nil, fmt.Errorf("failed to get user by id: %w", ErrNotFound)
}

// GetUserByEmail 根据邮箱获取用户
func (db *LocalDatabase) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, u := range db.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, fmt.Errorf("failed to get user by email: %w", ErrNotFound)
}

// ListUsers 列出用户，orgID 为 nil 时不按组织过滤
func (db *LocalDatabase) ListUsers(ctx context.Context, orgID *string) ([]models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	users := []models.User{}
	// newest insertion first so equal timestamps still list most recent first
	for i := len(db.users) - 1; i >= 0; i-- {
		u := db.users[i]
		if orgID != nil && (u.OrganizationID == nil || *u.OrganizationID != *orgID) {
			continue
		}
		users = append(users, *copyUser(u))
	}
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	return users, nil
}

// ListTeamMembers 列出组织成员（不含调用者）
func (db *LocalDatabase) ListTeamMembers(ctx context.Context, orgID, excludeUserID string) ([]models.User, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	users := []models.User{}
	for _, u := range db.users {
		if u.ID == excludeUserID || u.OrganizationID == nil || *u.OrganizationID != orgID {
			continue
		}
		users = append(users, *copyUser(u))
	}
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].Role != users[j].Role {
			return users[i].Role < users[j].Role
		}
		return users[i].FirstName < users[j].FirstName
	})
	return users, nil
}

// CreateOrganization 创建组织
func (db *LocalDatabase) CreateOrganization(ctx context.Context, org *models.Organization) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, o := range db.organizations {
		if o.Name == org.Name {
			return fmt.Errorf("failed to create organization: %w: name", ErrDuplicate)
		}
	}

	if org.ID == "" {
		org.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	org.CreatedAt = now
	org.UpdatedAt = now

	c := *org
	db.organizations = append(db.organizations, &c)
	return db.persist()
}

// GetOrganizationByID 根据ID获取组织
func (db *LocalDatabase) GetOrganizationByID(ctx context.Context, id string) (*models.Organization, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, o := range db.organizations {
		if o.ID == id {
			c := *o
			return &c, nil
		}
	}
	return nil, fmt.Errorf("failed to get organization: %w", ErrNotFound)
}

// GetOrganizationByName 根据名称获取组织
func (db *LocalDatabase) GetOrganizationByName(ctx context.Context, name string) (*models.Organization, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, o := range db.organizations {
		if o.Name == name {
			c := *o
			return &c, nil
		}
	}
	return nil, fmt.Errorf("failed to get organization by name: %w", ErrNotFound)
}

// ListOrganizations 按名称列出全部组织
func (db *LocalDatabase) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	orgs := make([]models.Organization, 0, len(db.organizations))
	for _, o := range db.organizations {
		orgs = append(orgs, *o)
	}
	sort.SliceStable(orgs, func(i, j int) bool { return orgs[i].Name < orgs[j].Name })
	return orgs, nil
}

// FindActiveOrganizationGoals 查找组织级生效目标
func (db *LocalDatabase) FindActiveOrganizationGoals(ctx context.Context, orgID string) (*models.Goals, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, g := range db.goals {
		if g.IsActive && g.UserID == nil && g.OrganizationID != nil && *g.OrganizationID == orgID {
			return copyGoals(g), nil
		}
	}
	return nil, fmt.Errorf("failed to find organization goals: %w", ErrNotFound)
}

// FindActivePersonalGoals 查找个人生效目标
func (db *LocalDatabase) FindActivePersonalGoals(ctx context.Context, userID string) (*models.Goals, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, g := range db.goals {
		if g.IsActive && g.UserID != nil && *g.UserID == userID {
			return copyGoals(g), nil
		}
	}
	return nil, fmt.Errorf("failed to find personal goals: %w", ErrNotFound)
}

// CreateGoals 创建目标记录
func (db *LocalDatabase) CreateGoals(ctx context.Context, g *models.Goals) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	g.CreatedAt = now
	g.UpdatedAt = now

	db.goals = append(db.goals, copyGoals(g))
	return db.persist()
}

// UpdateGoals 原地更新八个目标值
func (db *LocalDatabase) UpdateGoals(ctx context.Context, g *models.Goals) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, existing := range db.goals {
		if existing.ID != g.ID {
			continue
		}
		existing.CallsPerDay = g.CallsPerDay
		existing.EmailsPerDay = g.EmailsPerDay
		existing.ContactsPerDay = g.ContactsPerDay
		existing.ResponsesPerDay = g.ResponsesPerDay
		existing.CallsPerWeek = g.CallsPerWeek
		existing.EmailsPerWeek = g.EmailsPerWeek
		existing.ContactsPerWeek = g.ContactsPerWeek
		existing.ResponsesPerWeek = g.ResponsesPerWeek
		existing.UpdatedAt = time.Now().UTC()
		g.UpdatedAt = existing.UpdatedAt
		return db.persist()
	}
	return fmt.Errorf("failed to update goals: %w", ErrNotFound)
}

// GetWeeklyActivity 获取某用户某周的活动
func (db *LocalDatabase) GetWeeklyActivity(ctx context.Context, userID, weekStartDate string) (*models.WeeklyActivity, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	for _, a := range db.activities {
		if a.UserID == userID && a.WeekStartDate == weekStartDate {
			c := *a
			return &c, nil
		}
	}
	return nil, fmt.Errorf("failed to get weekly activity: %w", ErrNotFound)
}

// UpsertWeeklyActivity 插入或整体覆盖一周的活动
func (db *LocalDatabase) UpsertWeeklyActivity(ctx context.Context, a *models.WeeklyActivity) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := time.Now().UTC()
	for _, existing := range db.activities {
		if existing.UserID != a.UserID || existing.WeekStartDate != a.WeekStartDate {
			continue
		}
		a.ID = existing.ID
		a.CreatedAt = existing.CreatedAt
		a.UpdatedAt = now
		*existing = *a
		return db.persist()
	}

	a.ID = uuid.New().String()
	a.CreatedAt = now
	a.UpdatedAt = now
	c := *a
	db.activities = append(db.activities, &c)
	return db.persist()
}

// ListWeeklyActivities 按周倒序列出活动，可选日期范围（闭区间）
func (db *LocalDatabase) ListWeeklyActivities(ctx context.Context, userID, startDate, endDate string) ([]models.WeeklyActivity, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	activities := []models.WeeklyActivity{}
	for _, a := range db.activities {
		if a.UserID != userID {
			continue
		}
		if startDate != "" && a.WeekStartDate < startDate {
			continue
		}
		if endDate != "" && a.WeekStartDate > endDate {
			continue
		}
		activities = append(activities, *a)
	}
	sort.Slice(activities, func(i, j int) bool {
		return activities[i].WeekStartDate > activities[j].WeekStartDate
	})
	return activities, nil
}

// HealthCheck 健康检查
func (db *LocalDatabase) HealthCheck(ctx context.Context) error {
	return ctx.Err()
}

// Close 关闭数据库
func (db *LocalDatabase) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.persist()
}
