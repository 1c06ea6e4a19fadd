// test/mock/activity.go
package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockActivityStore is a mock implementation of anomaly.ActivityStore
type MockActivityStore struct {
	mock.Mock
}

func (m *MockActivityStore) CountAccessEvents(ctx context.Context, subjectID string, actions []string, window time.Duration) (int64, error) {
	args := m.Called(ctx, subjectID, actions, window)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockActivityStore) KnownLoginIPs(ctx context.Context, subjectID string, window time.Duration) ([]string, error) {
	args := m.Called(ctx, subjectID, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockActivityRecorder is a mock implementation of service.ActivityRecorder
type MockActivityRecorder struct {
	mock.Mock
}

func (m *MockActivityRecorder) RecordAccessEvent(ctx context.Context, subjectID, action string) error {
	args := m.Called(ctx, subjectID, action)
	return args.Error(0)
}

func (m *MockActivityRecorder) RecordLoginIP(ctx context.Context, subjectID, ip string) error {
	args := m.Called(ctx, subjectID, ip)
	return args.Error(0)
}

// MockByteCounter is a mock implementation of anomaly.ByteCounter
type MockByteCounter struct {
	mock.Mock
}

func (m *MockByteCounter) Add(ctx context.Context, subjectID string, n int64) (int64, error) {
	args := m.Called(ctx, subjectID, n)
	return args.Get(0).(int64), args.Error(1)
}
