package services

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"sales-tracker-backend/pkg/database"
	"sales-tracker-backend/pkg/models"
	"sales-tracker-backend/pkg/utils"
)

func testLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	return logger
}

func newStore(t *testing.T) *database.LocalDatabase {
	t.Helper()
	db, err := database.NewLocalDatabase("")
	require.NoError(t, err)
	return db
}

func newAuthService(db database.DatabaseInterface) *AuthService {
	return NewAuthService(db, utils.NewJWTService("test-secret", time.Hour), utils.NewPasswordHasher(4), testLogger())
}

func intPtr(v int) *int { return &v }

func strPtr(s string) *string { return &s }

func mustUser(t *testing.T, db database.DatabaseInterface, email string, role models.Role, orgID *string) *models.UserProfile {
	t.Helper()
	u := &models.User{Email: email, Password: "x", FirstName: "F", LastName: "L", Role: role, OrganizationID: orgID}
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u.Profile()
}

func fullGoals(v int) *models.GoalsUpdateRequest {
	return &models.GoalsUpdateRequest{
		CallsPerDay: intPtr(v), EmailsPerDay: intPtr(v), ContactsPerDay: intPtr(v), ResponsesPerDay: intPtr(v),
		CallsPerWeek: intPtr(v), EmailsPerWeek: intPtr(v), ContactsPerWeek: intPtr(v), ResponsesPerWeek: intPtr(v),
	}
}
