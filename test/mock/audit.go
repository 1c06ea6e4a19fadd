// test/mock/audit.go
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/campushq/sentra/api/audit"
)

// MockAuditService is a mock implementation of audit.Service
type MockAuditService struct {
	mock.Mock
}

func (m *MockAuditService) Record(ctx context.Context, entry audit.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockAuditService) RecordBatch(ctx context.Context, entries []audit.Entry) error {
	args := m.Called(ctx, entries)
	return args.Error(0)
}

func (m *MockAuditService) CountAccessEvents(ctx context.Context, subjectID string, actions []string, window time.Duration) (int64, error) {
	args := m.Called(ctx, subjectID, actions, window)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAuditService) KnownLoginIPs(ctx context.Context, subjectID string, window time.Duration) ([]string, error) {
	args := m.Called(ctx, subjectID, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
