package database

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"sales-tracker-backend/pkg/models"
)

func newMockGorm(t *testing.T) (*GormDatabase, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	db, err := NewGormDatabaseFromConn(conn)
	require.NoError(t, err)
	return db, mock
}

func TestGormCreateUser(t *testing.T) {
	db, mock := newMockGorm(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u1"))

	u := &models.User{Email: "ada@acme.com", Password: "hash", FirstName: "Ada", LastName: "L", Role: models.RoleManager}
	require.NoError(t, db.CreateUser(context.Background(), u))
	assert.Equal(t, "u1", u.ID)
	assert.False(t, u.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormGetUserByEmail(t *testing.T) {
	db, mock := newMockGorm(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1`)).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u1", "rep@acme.com", "hash", "Rae", "P", "sales_rep", "org-1", now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE email = $1`)).
		WillReturnRows(sqlmock.NewRows(userCols))

	u, err := db.GetUserByEmail(context.Background(), "rep@acme.com")
	require.NoError(t, err)
	assert.Equal(t, "hash", u.Password)
	assert.Equal(t, models.RoleSalesRep, u.Role)
	require.NotNil(t, u.OrganizationID)
	assert.Equal(t, "org-1", *u.OrganizationID)

	_, err = db.GetUserByEmail(context.Background(), "nobody@acme.com")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormCreateOrganizationDuplicate(t *testing.T) {
	db, mock := newMockGorm(t)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "organizations"`)).
		WillReturnError(gorm.ErrDuplicatedKey)

	err := db.CreateOrganization(context.Background(), &models.Organization{Name: "Acme"})
	assert.ErrorIs(t, err, ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUpdateGoalsNotFound(t *testing.T) {
	db, mock := newMockGorm(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "goals" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "goals" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := db.UpdateGoals(context.Background(), &models.Goals{ID: "gone"})
	assert.ErrorIs(t, err, ErrNotFound)

	g := &models.Goals{ID: "g1", CallsPerDay: 0}
	require.NoError(t, db.UpdateGoals(context.Background(), g))
	assert.False(t, g.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormUpsertWeeklyActivity(t *testing.T) {
	db, mock := newMockGorm(t)

	mock.ExpectQuery(`INSERT INTO "weekly_activities" .* ON CONFLICT \("user_id","week_start_date"\) DO UPDATE SET`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("a1"))

	a := &models.WeeklyActivity{UserID: "u1", WeekStartDate: "2024-01-01"}
	a.Tuesday.Emails = 3
	require.NoError(t, db.UpsertWeeklyActivity(context.Background(), a))
	assert.Equal(t, "a1", a.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormListWeeklyActivities(t *testing.T) {
	db, mock := newMockGorm(t)
	now := time.Now()

	rows := sqlmock.NewRows(activityCols())
	activityRow(rows, "a1", "u1", "2024-01-08", 11, now)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "weekly_activities" WHERE user_id = $1 AND week_start_date >= $2 ORDER BY week_start_date DESC`)).
		WithArgs("u1", "2024-01-01").
		WillReturnRows(rows)

	list, err := db.ListWeeklyActivities(context.Background(), "u1", "2024-01-01", "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 11, list[0].Monday.Calls)
	assert.Equal(t, "2024-01-08", list[0].WeekStartDate)
	assert.NoError(t, mock.ExpectationsWereMet())
}
