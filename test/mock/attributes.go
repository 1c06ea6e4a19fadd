// test/mock/attributes.go
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/campushq/sentra/api/model"
)

// MockAttributeStore is a mock implementation of service.AttributeStore
type MockAttributeStore struct {
	mock.Mock
}

func (m *MockAttributeStore) GetResource(ctx context.Context, resourceType, resourceID string) (*model.Resource, error) {
	args := m.Called(ctx, resourceType, resourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Resource), args.Error(1)
}
