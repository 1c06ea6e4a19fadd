// api/service/access_service_test.go
package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campushq/sentra/api/anomaly"
	sentra_errors "github.com/campushq/sentra/api/errors"
	logger "github.com/campushq/sentra/api/logging"
	"github.com/campushq/sentra/api/model"
	"github.com/campushq/sentra/api/pdp"
	"github.com/campushq/sentra/api/policy"
	"github.com/campushq/sentra/api/service"
	mocks "github.com/campushq/sentra/api/test/mock"
	"github.com/campushq/sentra/api/util"
)

func TestMain(m *testing.M) {
	logger.InitLogger(os.TempDir())
	os.Exit(m.Run())
}

const checkPolicies = `
policies:
  - id: student-read-grades
    effect: allow
    subject:
      role: student
    resources: grades
    actions: [read, access, download]
    conditions:
      anonymized: true
  - id: student-login
    effect: allow
    subject:
      role: student
    resources: session
    actions: login
`

// midday keeps the off-hours rule out of the picture.
var midday = time.Date(2024, 3, 14, 14, 0, 0, 0, time.UTC)

type fixture struct {
	svc   *service.AccessService
	audit *mocks.MockAuditService
	bytes *mocks.MockByteCounter
	attrs *mocks.MockAttributeStore
	path  string
}

func newFixture(t *testing.T, withAttrs bool, recorder service.ActivityRecorder) *fixture {
	t.Helper()

	path := filepath.Join(t.TempDir(), "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(checkPolicies), 0o644))

	store := policy.NewStore(nil)
	require.NoError(t, store.Load(path))

	engine := pdp.NewEngine(store, pdp.NewConditionRegistry(), time.Minute)
	t.Cleanup(engine.Close)

	auditSvc := &mocks.MockAuditService{}
	bytes := &mocks.MockByteCounter{}
	guard := anomaly.NewGuard(auditSvc, bytes, anomaly.DefaultConfig())

	f := &fixture{audit: auditSvc, bytes: bytes, path: path}

	var attrs service.AttributeStore
	if withAttrs {
		f.attrs = &mocks.MockAttributeStore{}
		attrs = f.attrs
	}

	f.svc = service.NewAccessService(engine, guard, store, path, attrs,
		auditSvc, recorder, util.NewNotificationService(), nil)
	return f
}

// quiet arms the history and counter mocks with benign values so no
// anomaly rule triggers.
func (f *fixture) quiet() {
	f.audit.On("CountAccessEvents", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(int64(0), nil)
	f.audit.On("KnownLoginIPs", mock.Anything, mock.Anything, mock.Anything).
		Return([]string(nil), nil)
	f.bytes.On("Add", mock.Anything, mock.Anything, mock.Anything).
		Return(int64(0), nil)
}

func studentRequest(action string) *service.CheckRequest {
	return &service.CheckRequest{
		Subject:  &model.Subject{ID: "s-1", Role: "student"},
		Resource: &model.Resource{Type: "grades", ID: "g-1", Anonymized: true},
		Action:   action,
		Context:  &model.RequestContext{Timestamp: midday, IP: "10.0.0.1"},
	}
}

func TestCheckAccessRejectsUnusableInput(t *testing.T) {
	f := newFixture(t, false, nil)

	cases := map[string]*service.CheckRequest{
		"Nil":            nil,
		"NoSubject":      {Resource: &model.Resource{Type: "grades"}, Action: "read"},
		"EmptySubjectID": {Subject: &model.Subject{}, Resource: &model.Resource{Type: "grades"}, Action: "read"},
		"NoResource":     {Subject: &model.Subject{ID: "s-1"}, Action: "read"},
		"NoResourceType": {Subject: &model.Subject{ID: "s-1"}, Resource: &model.Resource{ID: "g-1"}, Action: "read"},
		"NoAction":       {Subject: &model.Subject{ID: "s-1"}, Resource: &model.Resource{Type: "grades"}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			result, err := f.svc.CheckAccess(context.Background(), req)
			assert.Nil(t, result)
			assert.ErrorIs(t, err, sentra_errors.ErrInvalidCheckInput)
		})
	}
}

func TestCheckAccessAllowedCleanRequest(t *testing.T) {
	f := newFixture(t, false, nil)
	f.quiet()
	f.audit.On("Record", mock.Anything, mock.Anything).Return(nil)

	result, err := f.svc.CheckAccess(context.Background(), studentRequest("read"))

	require.NoError(t, err)
	assert.True(t, result.Permitted())
	assert.Empty(t, result.Alerts)
	assert.False(t, result.Blocked)
	f.audit.AssertCalled(t, "Record", mock.Anything, mock.Anything)
}

func TestCheckAccessDeniedSkipsGuard(t *testing.T) {
	f := newFixture(t, false, nil)
	f.audit.On("Record", mock.Anything, mock.Anything).Return(nil)

	req := studentRequest("read")
	req.Subject.Role = "visitor"

	result, err := f.svc.CheckAccess(context.Background(), req)

	require.NoError(t, err)
	assert.False(t, result.Permitted())
	assert.False(t, result.Blocked)
	// The guard never ran: no byte accounting for a denied action.
	f.bytes.AssertNotCalled(t, "Add", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckAccessCriticalAlertBlocks(t *testing.T) {
	f := newFixture(t, false, nil)
	f.audit.On("CountAccessEvents", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(int64(0), nil)
	f.audit.On("KnownLoginIPs", mock.Anything, mock.Anything, mock.Anything).
		Return([]string(nil), nil)
	f.audit.On("Record", mock.Anything, mock.Anything).Return(nil)
	f.audit.On("RecordBatch", mock.Anything, mock.Anything).Return(nil)
	// The running download total crosses the exfiltration threshold.
	f.bytes.On("Add", mock.Anything, "s-1", int64(5*1024*1024)).
		Return(int64(120*1024*1024), nil)

	req := studentRequest("download")
	req.BytesOut = 5 * 1024 * 1024

	result, err := f.svc.CheckAccess(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, result.Decision.Allowed)
	assert.True(t, result.Blocked)
	assert.False(t, result.Permitted())
	require.Len(t, result.Alerts, 1)
	assert.Equal(t, model.AlertDataExfiltration, result.Alerts[0].Type)
	f.audit.AssertCalled(t, "RecordBatch", mock.Anything, mock.Anything)
}

func TestCheckAccessAutoFetchesBareResource(t *testing.T) {
	f := newFixture(t, true, nil)
	f.quiet()
	f.audit.On("Record", mock.Anything, mock.Anything).Return(nil)
	f.attrs.On("GetResource", mock.Anything, "grades", "g-9").
		Return(&model.Resource{ID: "g-9", Type: "grades", Anonymized: true}, nil)

	req := studentRequest("read")
	req.Resource = &model.Resource{Type: "grades", ID: "g-9"}

	result, err := f.svc.CheckAccess(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, result.Permitted())
	f.attrs.AssertExpectations(t)
}

func TestCheckAccessFetchFailureFallsBackToBare(t *testing.T) {
	f := newFixture(t, true, nil)
	f.audit.On("Record", mock.Anything, mock.Anything).Return(nil)
	f.attrs.On("GetResource", mock.Anything, "grades", "g-9").
		Return(nil, sentra_errors.ErrStoreUnavailable)

	req := studentRequest("read")
	req.Resource = &model.Resource{Type: "grades", ID: "g-9"}

	result, err := f.svc.CheckAccess(context.Background(), req)

	// The bare resource fails the anonymized condition, so the policy
	// does not match and the verdict is an implicit deny, not an error.
	require.NoError(t, err)
	assert.False(t, result.Permitted())
	assert.Empty(t, result.Decision.MatchedPolicyIDs)
}

func TestCheckAccessFeedsActivityRecorder(t *testing.T) {
	loginRequest := func() *service.CheckRequest {
		req := studentRequest("login")
		req.Resource = &model.Resource{Type: "session", ID: "sess-1"}
		return req
	}

	t.Run("CheckedActionRecorded", func(t *testing.T) {
		rec := &mocks.MockActivityRecorder{}
		f := newFixture(t, false, rec)
		f.quiet()
		f.audit.On("Record", mock.Anything, mock.Anything).Return(nil)
		rec.On("RecordAccessEvent", mock.Anything, "s-1", "read").Return(nil)

		result, err := f.svc.CheckAccess(context.Background(), studentRequest("read"))

		require.NoError(t, err)
		assert.True(t, result.Permitted())
		rec.AssertExpectations(t)
	})

	t.Run("SuccessfulLoginExtendsAddressBaseline", func(t *testing.T) {
		rec := &mocks.MockActivityRecorder{}
		f := newFixture(t, false, rec)
		f.quiet()
		f.audit.On("Record", mock.Anything, mock.Anything).Return(nil)
		rec.On("RecordAccessEvent", mock.Anything, "s-1", "login").Return(nil)
		rec.On("RecordLoginIP", mock.Anything, "s-1", "10.0.0.1").Return(nil)

		result, err := f.svc.CheckAccess(context.Background(), loginRequest())

		require.NoError(t, err)
		assert.True(t, result.Permitted())
		rec.AssertExpectations(t)
	})

	t.Run("DeniedLoginDoesNotExtendBaseline", func(t *testing.T) {
		rec := &mocks.MockActivityRecorder{}
		f := newFixture(t, false, rec)
		f.audit.On("Record", mock.Anything, mock.Anything).Return(nil)
		rec.On("RecordAccessEvent", mock.Anything, "s-1", "login").Return(nil)

		req := loginRequest()
		req.Subject.Role = "visitor"

		result, err := f.svc.CheckAccess(context.Background(), req)

		require.NoError(t, err)
		assert.False(t, result.Permitted())
		// The attempt still counts toward the volume window, but a
		// denied login must not whitelist its source address.
		rec.AssertCalled(t, "RecordAccessEvent", mock.Anything, "s-1", "login")
		rec.AssertNotCalled(t, "RecordLoginIP", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("RecorderFailureDoesNotPropagate", func(t *testing.T) {
		rec := &mocks.MockActivityRecorder{}
		f := newFixture(t, false, rec)
		f.quiet()
		f.audit.On("Record", mock.Anything, mock.Anything).Return(nil)
		rec.On("RecordAccessEvent", mock.Anything, "s-1", "read").Return(assert.AnError)

		result, err := f.svc.CheckAccess(context.Background(), studentRequest("read"))

		require.NoError(t, err)
		assert.True(t, result.Permitted())
	})
}

func TestCheckAccessAuditFailureDoesNotPropagate(t *testing.T) {
	f := newFixture(t, false, nil)
	f.quiet()
	f.audit.On("Record", mock.Anything, mock.Anything).Return(sentra_errors.ErrAuditWriteFailed)

	result, err := f.svc.CheckAccess(context.Background(), studentRequest("read"))

	require.NoError(t, err)
	assert.True(t, result.Permitted())
}

func TestReloadPolicies(t *testing.T) {
	f := newFixture(t, false, nil)

	t.Run("InvalidDocumentFails", func(t *testing.T) {
		require.NoError(t, os.WriteFile(f.path, []byte("policies: [{id: broken"), 0o644))
		assert.Error(t, f.svc.ReloadPolicies(context.Background()))
	})

	t.Run("ValidDocumentSwaps", func(t *testing.T) {
		require.NoError(t, os.WriteFile(f.path, []byte(checkPolicies), 0o644))
		assert.NoError(t, f.svc.ReloadPolicies(context.Background()))
	})
}
