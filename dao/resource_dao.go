// api/dao/resource_dao.go
package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/campushq/sentra/api/db"
	sentra_errors "github.com/campushq/sentra/api/errors"
	logger "github.com/campushq/sentra/api/logging"
	"github.com/campushq/sentra/api/model"
)

// ResourceDAO resolves resource attributes from Neo4j when a caller
// supplies only a resource type and id.
type ResourceDAO struct {
	Driver neo4j.Driver
}

func NewResourceDAO(driver neo4j.Driver) *ResourceDAO {
	return &ResourceDAO{Driver: driver}
}

// GetResource fetches one resource by type and id. A missing node maps
// to ErrResourceNotFound, any driver failure to ErrStoreUnavailable so
// callers can degrade instead of aborting.
func (dao *ResourceDAO) GetResource(ctx context.Context, resourceType, resourceID string) (*model.Resource, error) {
	start := time.Now()

	result, err := db.ExecuteReadTransaction(ctx, dao.Driver, func(transaction neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (r:RESOURCE {type: $type, id: $id})
        RETURN r
        `
		records, err := transaction.Run(query, map[string]interface{}{
			"type": resourceType,
			"id":   resourceID,
		})
		if err != nil {
			return nil, err
		}

		record, err := records.Single()
		if err != nil {
			return nil, sentra_errors.ErrResourceNotFound
		}

		value, found := record.Get("r")
		if !found {
			return nil, sentra_errors.ErrResourceNotFound
		}
		node, ok := value.(neo4j.Node)
		if !ok {
			return nil, fmt.Errorf("unexpected result type %T", value)
		}
		return node.Props, nil
	})
	if err != nil {
		if errors.Is(err, sentra_errors.ErrResourceNotFound) {
			logger.Debug("Resource not found",
				zap.String("resourceType", resourceType),
				zap.String("resourceID", resourceID))
			return nil, err
		}
		logger.Error("Failed to fetch resource",
			zap.String("resourceType", resourceType),
			zap.String("resourceID", resourceID),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", sentra_errors.ErrStoreUnavailable, err)
	}

	props, ok := result.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: unexpected transaction result", sentra_errors.ErrStoreUnavailable)
	}

	resource := mapResource(resourceType, resourceID, props)

	logger.Debug("Resource fetched",
		zap.String("resourceType", resourceType),
		zap.String("resourceID", resourceID),
		zap.Duration("duration", time.Since(start)))
	return resource, nil
}

func mapResource(resourceType, resourceID string, props map[string]interface{}) *model.Resource {
	r := &model.Resource{
		ID:              resourceID,
		Type:            resourceType,
		UserID:          stringProp(props, "user_id"),
		EntityID:        stringProp(props, "entity_id"),
		OwnerID:         stringProp(props, "owner_id"),
		Department:      stringProp(props, "department"),
		DepartmentID:    stringProp(props, "department_id"),
		OrganizationID:  stringProp(props, "organization_id"),
		CourseID:        stringProp(props, "course_id"),
		Anonymized:      boolProp(props, "anonymized"),
		WillingToMentor: boolProp(props, "willing_to_mentor"),
	}

	known := map[string]struct{}{
		"id": {}, "type": {}, "user_id": {}, "entity_id": {}, "owner_id": {},
		"department": {}, "department_id": {}, "organization_id": {},
		"course_id": {}, "anonymized": {}, "willing_to_mentor": {},
	}
	for key, value := range props {
		if _, skip := known[key]; skip {
			continue
		}
		if r.Attributes == nil {
			r.Attributes = make(map[string]interface{})
		}
		r.Attributes[key] = value
	}

	return r
}

func stringProp(props map[string]interface{}, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func boolProp(props map[string]interface{}, key string) bool {
	if v, ok := props[key].(bool); ok {
		return v
	}
	return false
}
