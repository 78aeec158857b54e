package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sales-tracker-backend/pkg/database"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestWriteSuccessResponseOmitsEmptyFields(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessResponse(rec, "No activity found for this week", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "No activity found for this week", body["message"])
	_, hasData := body["data"]
	assert.False(t, hasData)
	_, hasError := body["error"]
	assert.False(t, hasError)
}

func TestWriteSuccessResponseKeepsEmptyList(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccessResponse(rec, "", []string{})

	body := decode(t, rec)
	assert.Equal(t, []interface{}{}, body["data"])
	_, hasMessage := body["message"]
	assert.False(t, hasMessage)
}

func TestWriteErrorMapsKnownErrors(t *testing.T) {
	logger, hook := test.NewNullLogger()
	req := httptest.NewRequest(http.MethodGet, "/api/goals", nil)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
		logged bool
	}{
		{"app error", NewAppError(CodeNoOrganization, "no org"), http.StatusBadRequest, CodeNoOrganization, false},
		{"wrapped app error", fmt.Errorf("wrap: %w", NewAppError(CodeForbidden, "nope")), http.StatusForbidden, CodeForbidden, false},
		{"duplicate", fmt.Errorf("insert: %w", database.ErrDuplicate), http.StatusConflict, CodeDuplicateEntry, false},
		{"not found", database.ErrNotFound, http.StatusNotFound, CodeNotFound, false},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError, CodeInternal, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook.Reset()
			rec := httptest.NewRecorder()
			WriteError(rec, req, logger, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			body := decode(t, rec)
			assert.Equal(t, false, body["success"])
			errBody := body["error"].(map[string]interface{})
			assert.Equal(t, tt.code, errBody["code"])
			if tt.logged {
				require.Len(t, hook.Entries, 1)
				assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
				assert.Equal(t, "/api/goals", hook.LastEntry().Data["path"])
			} else {
				assert.Empty(t, hook.Entries)
			}
		})
	}
}

func TestValidationErrorDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteAppError(rec, NewValidationError(FieldError{Field: "email", Message: "email is required"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decode(t, rec)["error"].(map[string]interface{})
	assert.Equal(t, "Validation failed", errBody["message"])
	details := errBody["details"].([]interface{})
	require.Len(t, details, 1)
	assert.Equal(t, "email", details[0].(map[string]interface{})["field"])
}

func TestStatusForCodeIsDeterministic(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, StatusForCode(CodeTokenExpired))
	assert.Equal(t, http.StatusConflict, StatusForCode(CodeEmailExists))
	assert.Equal(t, http.StatusTooManyRequests, StatusForCode(CodeAuthRateLimit))
	assert.Equal(t, http.StatusInternalServerError, StatusForCode("SOMETHING_NEW"))
}
