package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sales-tracker-backend/pkg/config"
	"sales-tracker-backend/pkg/database"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func testConfig() *config.Config {
	return &config.Config{
		Environment:         "test",
		Port:                "5000",
		DBDriver:            config.DriverMemory,
		JWTSecret:           "test-secret",
		JWTExpiresIn:        "1h",
		BcryptCost:          4,
		RateLimitWindow:     time.Minute,
		RateLimitMax:        1000,
		AuthRateLimitWindow: time.Minute,
		AuthRateLimitMax:    5,
		AllowedOrigins:      []string{"*"},
		OrglessPeerAccess:   true,
		MetricsEnabled:      true,
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := testConfig()
	require.NoError(t, cfg.Validate())

	db, err := database.NewLocalDatabase("")
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()

	h, err := NewRouter(cfg, db, logger)
	require.NoError(t, err)
	return h
}

func call(t *testing.T, h http.Handler, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

type registered struct {
	Token string `json:"token"`
	User  struct {
		ID             string  `json:"id"`
		Role           string  `json:"role"`
		OrganizationID *string `json:"organizationId"`
	} `json:"user"`
}

func register(t *testing.T, h http.Handler, payload map[string]interface{}) registered {
	t.Helper()
	if _, ok := payload["password"]; !ok {
		payload["password"] = "Passw0rd!"
	}
	if _, ok := payload["firstName"]; !ok {
		payload["firstName"] = "Test"
		payload["lastName"] = "User"
	}
	status, env := call(t, h, http.MethodPost, "/api/auth/register", "", payload)
	require.Equal(t, http.StatusCreated, status, env.Error)
	var out registered
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t)

	status, env := call(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	assert.Equal(t, "Server is running", env.Message)

	var data map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "healthy", data["dbStatus"])
	assert.Equal(t, "memory", data["database"])
	assert.Equal(t, "test", data["environment"])
}

func TestOrganizationGoalsSharedByTeam(t *testing.T) {
	h := newTestRouter(t)

	manager := register(t, h, map[string]interface{}{
		"email": "boss@acme.com", "role": "manager", "organizationName": "Acme",
	})
	require.NotNil(t, manager.User.OrganizationID)

	rep := register(t, h, map[string]interface{}{
		"email": "rep@acme.com", "organizationId": *manager.User.OrganizationID,
	})
	assert.Equal(t, "sales_rep", rep.User.Role)
	assert.Equal(t, manager.User.OrganizationID, rep.User.OrganizationID)

	goals := map[string]int{
		"callsPerDay": 40, "emailsPerDay": 30, "contactsPerDay": 12, "responsesPerDay": 6,
		"callsPerWeek": 200, "emailsPerWeek": 150, "contactsPerWeek": 60, "responsesPerWeek": 30,
	}
	status, env := call(t, h, http.MethodPut, "/api/goals", manager.Token, goals)
	require.Equal(t, http.StatusOK, status, env.Error)

	status, env = call(t, h, http.MethodPut, "/api/goals", rep.Token, goals)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	status, env = call(t, h, http.MethodGet, "/api/goals", rep.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var data map[string]int
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, 40, data["callsPerDay"])
	assert.Equal(t, 2, data["meetingsPerDay"])
	assert.Equal(t, 10, data["meetingsPerWeek"])

	status, env = call(t, h, http.MethodGet, "/api/team/members", manager.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var members []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &members))
	require.Len(t, members, 1)
	assert.Equal(t, rep.User.ID, members[0]["id"])
}

func TestRegisterDuplicateOrganizationName(t *testing.T) {
	h := newTestRouter(t)
	register(t, h, map[string]interface{}{"email": "a@acme.com", "role": "manager", "organizationName": "Acme"})

	status, env := call(t, h, http.MethodPost, "/api/auth/register", "", map[string]interface{}{
		"email": "b@acme.com", "password": "Passw0rd!", "firstName": "B", "lastName": "B", "organizationName": "Acme",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ORGANIZATION_EXISTS", env.Error.Code)

	status, env = call(t, h, http.MethodGet, "/api/team/organizations", "", nil)
	require.Equal(t, http.StatusOK, status)
	var orgs []map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &orgs))
	require.Len(t, orgs, 1)
	assert.Equal(t, "Acme", orgs[0]["name"])
}

func TestCrossOrganizationAccessDenied(t *testing.T) {
	h := newTestRouter(t)

	managerA := register(t, h, map[string]interface{}{"email": "a@acme.com", "role": "manager", "organizationName": "Acme"})
	repA := register(t, h, map[string]interface{}{"email": "rep@acme.com", "organizationId": *managerA.User.OrganizationID})
	managerB := register(t, h, map[string]interface{}{"email": "b@globex.com", "role": "manager", "organizationName": "Globex"})

	status, env := call(t, h, http.MethodGet, "/api/team/member/"+repA.User.ID+"/goals", managerB.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Cannot access users from other organizations", env.Error.Message)

	status, _ = call(t, h, http.MethodGet, "/api/users/"+repA.User.ID+"/activity/all", managerB.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = call(t, h, http.MethodGet, "/api/team/member/"+repA.User.ID+"/goals", managerA.Token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = call(t, h, http.MethodGet, "/api/team/member/not-a-uuid/goals", managerA.Token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)

	status, env = call(t, h, http.MethodGet, "/api/team/members", repA.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Insufficient permissions", env.Error.Message)
}

func TestActivityRoundTrip(t *testing.T) {
	h := newTestRouter(t)
	manager := register(t, h, map[string]interface{}{"email": "a@acme.com", "role": "manager", "organizationName": "Acme"})
	rep := register(t, h, map[string]interface{}{"email": "rep@acme.com", "organizationId": *manager.User.OrganizationID})

	status, env := call(t, h, http.MethodGet, "/api/activity/week/2024-01-01", rep.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "No activity found for this week", env.Message)
	assert.Empty(t, env.Data)

	status, env = call(t, h, http.MethodPost, "/api/activity/week", rep.Token, map[string]interface{}{
		"weekStartDate": "2024-01-01",
		"monday":        map[string]int{"calls": 5, "emails": 3},
	})
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.Equal(t, "Weekly activity saved successfully", env.Message)

	status, env = call(t, h, http.MethodGet, "/api/activity/week/2024-01-01", rep.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var week struct {
		WeekStartDate string         `json:"weekStartDate"`
		Monday        map[string]int `json:"monday"`
		Friday        map[string]int `json:"friday"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &week))
	assert.Equal(t, 5, week.Monday["calls"])
	assert.Equal(t, 0, week.Friday["responses"])

	// 经理覆盖整周
	status, env = call(t, h, http.MethodPost, "/api/team/member/"+rep.User.ID+"/activity", manager.Token, map[string]interface{}{
		"weekStartDate": "2024-01-01",
		"tuesday":       map[string]int{"calls": 9},
	})
	require.Equal(t, http.StatusOK, status, env.Error)
	var teamView map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &teamView))
	assert.Equal(t, rep.User.ID, teamView["userId"])

	status, env = call(t, h, http.MethodGet, "/api/activity/all", rep.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var all []struct {
		Monday  map[string]int `json:"monday"`
		Tuesday map[string]int `json:"tuesday"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &all))
	require.Len(t, all, 1)
	assert.Equal(t, 0, all[0].Monday["calls"])
	assert.Equal(t, 9, all[0].Tuesday["calls"])

	status, env = call(t, h, http.MethodGet, "/api/activity/week/2024-01-02", rep.Token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "NOT_MONDAY", env.Error.Code)

	status, env = call(t, h, http.MethodGet, "/api/activity/all?startDate=01-01-2024", rep.Token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
}

func TestAuthenticationRequired(t *testing.T) {
	h := newTestRouter(t)

	status, env := call(t, h, http.MethodGet, "/api/goals", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "NO_TOKEN", env.Error.Code)

	status, env = call(t, h, http.MethodGet, "/api/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_TOKEN", env.Error.Code)
}

func TestMeAndLogin(t *testing.T) {
	h := newTestRouter(t)
	reg := register(t, h, map[string]interface{}{"email": "solo@example.com"})
	assert.Nil(t, reg.User.OrganizationID)

	status, env := call(t, h, http.MethodGet, "/api/auth/me", reg.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var me map[string]interface{}
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, "solo@example.com", me["email"])
	assert.Nil(t, me["organizationId"])

	status, env = call(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "solo@example.com", "password": "Passw0rd!"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Login successful", env.Message)

	status, env = call(t, h, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "solo@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)

	// 无组织用户使用默认目标
	status, env = call(t, h, http.MethodGet, "/api/goals", reg.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var goals map[string]int
	require.NoError(t, json.Unmarshal(env.Data, &goals))
	assert.Equal(t, 25, goals["callsPerDay"])
}

func TestAuthRateLimit(t *testing.T) {
	h := newTestRouter(t)
	creds := map[string]string{"email": "nobody@example.com", "password": "Passw0rd!"}

	for i := 0; i < 5; i++ {
		status, env := call(t, h, http.MethodPost, "/api/auth/login", "", creds)
		require.Equal(t, http.StatusUnauthorized, status)
		require.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
	}

	status, env := call(t, h, http.MethodPost, "/api/auth/login", "", creds)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "AUTH_RATE_LIMIT", env.Error.Code)
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := newTestRouter(t)

	status, env := call(t, h, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
	assert.Equal(t, "Route GET /api/nope not found", env.Error.Message)

	status, env = call(t, h, http.MethodDelete, "/health", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, status)
	assert.Equal(t, "METHOD_NOT_ALLOWED", env.Error.Code)
}

func TestRejectsNonJSONBody(t *testing.T) {
	h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString("email=a"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(t)
	call(t, h, http.MethodGet, "/health", "", nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sales_tracker_http_requests_total")
}

func TestAuthRateLimitIgnoresSpoofedForwarding(t *testing.T) {
	h := newTestRouter(t)
	body := `{"email":"nobody@example.com","password":"Passw0rd!"}`

	throttled := 0
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "203.0.113.7:4000"
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i+1))
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("192.0.2.%d", i+1))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			throttled++
		}
	}
	assert.Equal(t, 15, throttled)
}
