// test/mock/access.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/campushq/sentra/api/service"
)

// MockAccessService is a mock implementation of service.IAccessService
type MockAccessService struct {
	mock.Mock
}

func (m *MockAccessService) CheckAccess(ctx context.Context, req *service.CheckRequest) (*service.CheckResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CheckResult), args.Error(1)
}

func (m *MockAccessService) ReloadPolicies(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
