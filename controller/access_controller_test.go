// api/controller/access_controller_test.go
package controller_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campushq/sentra/api/controller"
	sentra_errors "github.com/campushq/sentra/api/errors"
	logger "github.com/campushq/sentra/api/logging"
	"github.com/campushq/sentra/api/model"
	"github.com/campushq/sentra/api/service"
	mocks "github.com/campushq/sentra/api/test/mock"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	logger.InitLogger(os.TempDir())
	os.Exit(m.Run())
}

func setupRouter(svc service.IAccessService) *gin.Engine {
	r := gin.New()
	controller.NewAccessController(svc).RegisterRoutes(r.Group("/api/v1"))
	return r
}

func postJSON(t *testing.T, r *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func checkBody() *controller.CheckAccessRequest {
	return &controller.CheckAccessRequest{
		Subject:  model.Subject{ID: "s-1", Role: "student"},
		Resource: model.Resource{Type: "grades", ID: "g-1"},
		Action:   "read",
		Context:  model.RequestContext{IP: "10.0.0.1"},
	}
}

func TestCheckAccessPermitted(t *testing.T) {
	svc := &mocks.MockAccessService{}
	svc.On("CheckAccess", mock.Anything, mock.Anything).Return(&service.CheckResult{
		Decision: &model.Decision{Allowed: true, MatchedPolicyIDs: []string{"p1"}, Reason: "allowed by policy p1"},
	}, nil)

	w := postJSON(t, setupRouter(svc), "/api/v1/access/check", checkBody())

	assert.Equal(t, http.StatusOK, w.Code)
	var result service.CheckResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Decision.Allowed)
	assert.False(t, result.Blocked)
}

func TestCheckAccessDenied(t *testing.T) {
	svc := &mocks.MockAccessService{}
	svc.On("CheckAccess", mock.Anything, mock.Anything).Return(&service.CheckResult{
		Decision: &model.Decision{Allowed: false, Reason: "no matching policies (implicit deny)"},
	}, nil)

	w := postJSON(t, setupRouter(svc), "/api/v1/access/check", checkBody())

	assert.Equal(t, http.StatusForbidden, w.Code)
	var result service.CheckResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.Decision.Allowed)
}

func TestCheckAccessBlockedByAnomaly(t *testing.T) {
	svc := &mocks.MockAccessService{}
	svc.On("CheckAccess", mock.Anything, mock.Anything).Return(&service.CheckResult{
		Decision: &model.Decision{Allowed: true, Reason: "allowed by policy p1"},
		Alerts:   []model.Alert{{Type: model.AlertDataExfiltration, Severity: model.SeverityCritical}},
		Blocked:  true,
	}, nil)

	w := postJSON(t, setupRouter(svc), "/api/v1/access/check", checkBody())

	assert.Equal(t, http.StatusForbidden, w.Code)
	var result service.CheckResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Blocked)
	assert.Len(t, result.Alerts, 1)
}

func TestCheckAccessBadRequests(t *testing.T) {
	t.Run("MalformedJSON", func(t *testing.T) {
		svc := &mocks.MockAccessService{}
		r := setupRouter(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/access/check", bytes.NewBufferString("{nope"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		svc.AssertNotCalled(t, "CheckAccess", mock.Anything, mock.Anything)
	})

	t.Run("MissingAction", func(t *testing.T) {
		svc := &mocks.MockAccessService{}
		body := checkBody()
		body.Action = ""

		w := postJSON(t, setupRouter(svc), "/api/v1/access/check", body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("ServiceRejectsInput", func(t *testing.T) {
		svc := &mocks.MockAccessService{}
		svc.On("CheckAccess", mock.Anything, mock.Anything).
			Return(nil, sentra_errors.ErrInvalidCheckInput)

		w := postJSON(t, setupRouter(svc), "/api/v1/access/check", checkBody())
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCheckAccessServiceError(t *testing.T) {
	svc := &mocks.MockAccessService{}
	svc.On("CheckAccess", mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	w := postJSON(t, setupRouter(svc), "/api/v1/access/check", checkBody())
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCheckAccessFillsClientIP(t *testing.T) {
	svc := &mocks.MockAccessService{}
	svc.On("CheckAccess", mock.Anything, mock.MatchedBy(func(req *service.CheckRequest) bool {
		return req.Context != nil && req.Context.IP != ""
	})).Return(&service.CheckResult{
		Decision: &model.Decision{Allowed: true},
	}, nil)

	body := checkBody()
	body.Context = model.RequestContext{}

	w := postJSON(t, setupRouter(svc), "/api/v1/access/check", body)
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestReloadPolicies(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := &mocks.MockAccessService{}
		svc.On("ReloadPolicies", mock.Anything).Return(nil)

		w := postJSON(t, setupRouter(svc), "/api/v1/policies/reload", nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "reloaded")
	})

	t.Run("Failure", func(t *testing.T) {
		svc := &mocks.MockAccessService{}
		svc.On("ReloadPolicies", mock.Anything).Return(sentra_errors.ErrPolicyValidation)

		w := postJSON(t, setupRouter(svc), "/api/v1/policies/reload", nil)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}
