package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sales-tracker-backend/pkg/config"
	"sales-tracker-backend/pkg/database"
	"sales-tracker-backend/pkg/middleware"
	"sales-tracker-backend/pkg/models"
	"sales-tracker-backend/pkg/policy"
	"sales-tracker-backend/pkg/services"
	"sales-tracker-backend/pkg/utils"
)

type fixture struct {
	db   *database.LocalDatabase
	team *TeamHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.NewLocalDatabase("")
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()

	directory := services.NewDirectoryService(db, policy.Policy{OrglessPeerAccess: true})
	team := NewTeamHandler(directory, services.NewGoalsService(db, logger), services.NewActivityService(db, logger), logger)
	return &fixture{db: db, team: team}
}

func (f *fixture) user(t *testing.T, email string, role models.Role, orgID *string) *models.User {
	t.Helper()
	u := &models.User{Email: email, Password: "x", FirstName: "F", LastName: "L", Role: role, OrganizationID: orgID}
	require.NoError(t, f.db.CreateUser(context.Background(), u))
	return u
}

// request builds a request carrying caller and chi URL params
func request(method, target string, body string, caller *models.User, params map[string]string) *http.Request {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
	if caller != nil {
		ctx = middleware.WithUser(ctx, caller.Profile())
	}
	return r.WithContext(ctx)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) utils.APIResponse {
	t.Helper()
	var resp utils.APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestDecodeBody(t *testing.T) {
	var req models.UserLoginRequest

	err := decodeBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), &req)
	appErr, ok := utils.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "Request body is required", appErr.Details[0].Message)

	err = decodeBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{bad")), &req)
	appErr, _ = utils.AsAppError(err)
	assert.Equal(t, "Invalid JSON body", appErr.Details[0].Message)

	r := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"email":"someone@example.com"}`))
	r.Body = http.MaxBytesReader(httptest.NewRecorder(), r.Body, 4)
	err = decodeBody(r, &req)
	appErr, _ = utils.AsAppError(err)
	assert.Equal(t, "Request body too large", appErr.Details[0].Message)

	err = decodeBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","password":"p"}`)), &req)
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", req.Email)
}

func TestUserIDParam(t *testing.T) {
	_, err := userIDParam(request(http.MethodGet, "/", "", nil, map[string]string{"userId": "42"}))
	assert.True(t, utils.IsCode(err, utils.CodeValidation))

	id := "2b0c1d7e-3c4f-4f0a-9d6e-6a1f0f5b9a11"
	got, err := userIDParam(request(http.MethodGet, "/", "", nil, map[string]string{"userId": id}))
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestTeamMemberWeek(t *testing.T) {
	f := newFixture(t)
	org := "0e7f9c2a-5a55-4c59-8c3b-4b6f5f3a2d10"
	manager := f.user(t, "m@acme.com", models.RoleManager, &org)
	rep := f.user(t, "r@acme.com", models.RoleSalesRep, &org)
	params := map[string]string{"userId": rep.ID, "weekStartDate": "2024-01-08"}

	rec := httptest.NewRecorder()
	f.team.MemberWeek(rec, request(http.MethodGet, "/", "", manager, params))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "No data found for this week", decode(t, rec).Message)

	rec = httptest.NewRecorder()
	f.team.SaveMemberWeek(rec, request(http.MethodPost, "/", `{"weekStartDate":"2024-01-08","friday":{"responses":2}}`, manager, params))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Team member activity updated successfully", decode(t, rec).Message)

	rec = httptest.NewRecorder()
	f.team.MemberWeek(rec, request(http.MethodGet, "/", "", manager, params))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data models.WeekActivity `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, rep.ID, body.Data.UserID)
	assert.Equal(t, 2, body.Data.Friday.Responses)
}

func TestTeamMemberWeekInvalidBody(t *testing.T) {
	f := newFixture(t)
	org := "0e7f9c2a-5a55-4c59-8c3b-4b6f5f3a2d10"
	manager := f.user(t, "m@acme.com", models.RoleManager, &org)
	rep := f.user(t, "r@acme.com", models.RoleSalesRep, &org)

	rec := httptest.NewRecorder()
	f.team.SaveMemberWeek(rec, request(http.MethodPost, "/", `{"weekStartDate":"2024-01-08","monday":{"calls":-1}}`, manager, map[string]string{"userId": rep.ID}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, utils.CodeInvalidValue, decode(t, rec).Error.Code)
}

func TestTeamUnknownMember(t *testing.T) {
	f := newFixture(t)
	org := "0e7f9c2a-5a55-4c59-8c3b-4b6f5f3a2d10"
	manager := f.user(t, "m@acme.com", models.RoleManager, &org)

	rec := httptest.NewRecorder()
	f.team.MemberGoals(rec, request(http.MethodGet, "/", "", manager, map[string]string{"userId": "2b0c1d7e-3c4f-4f0a-9d6e-6a1f0f5b9a11"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decode(t, rec).Error.Message)
}

func TestHandlersRequireIdentity(t *testing.T) {
	logger, _ := test.NewNullLogger()
	db, err := database.NewLocalDatabase("")
	require.NoError(t, err)
	h := NewGoalsHandler(services.NewGoalsService(db, logger), logger)

	rec := httptest.NewRecorder()
	h.GetGoals(rec, request(http.MethodGet, "/", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, utils.CodeUnauthorized, decode(t, rec).Error.Code)
}

func TestHealthCheck(t *testing.T) {
	logger, _ := test.NewNullLogger()
	db, err := database.NewLocalDatabase("")
	require.NoError(t, err)
	h := NewHealthHandler(&config.Config{Environment: "test", DBDriver: config.DriverMemory}, db, logger)

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "healthy", data["dbStatus"])
}
