// api/pdp/conditions.go
package pdp

import (
	"sync"

	"go.uber.org/zap"

	logger "github.com/campushq/sentra/api/logging"
	"github.com/campushq/sentra/api/model"
)

// ConditionFunc computes a boolean fact about a request tuple. The
// policy's expected value is compared against the computed fact, so a
// policy can require either the presence or the absence of the fact.
type ConditionFunc func(subject *model.Subject, resource *model.Resource, reqCtx *model.RequestContext) bool

// ConditionRegistry maps condition-type names from policy documents to
// their evaluators. New condition types register here; the matcher
// itself never changes.
type ConditionRegistry struct {
	mu    sync.RWMutex
	funcs map[string]ConditionFunc
}

// NewConditionRegistry returns a registry with the built-in evaluators
// installed.
func NewConditionRegistry() *ConditionRegistry {
	r := &ConditionRegistry{funcs: make(map[string]ConditionFunc)}

	r.Register("owner_match", ownerMatch)
	r.Register("same_department", sameDepartment)
	r.Register("same_organization", sameOrganization)
	r.Register("teaches_course", teachesCourse)
	r.Register("anonymized", anonymized)
	r.Register("is_department_head", isDepartmentHead)
	r.Register("willing_to_mentor", willingToMentor)

	return r
}

// Register installs or replaces the evaluator for a condition type.
func (r *ConditionRegistry) Register(conditionType string, fn ConditionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[conditionType] = fn
}

// Evaluate computes the named condition and compares it with the
// expected value. An unknown condition type evaluates false, so a
// policy referencing one can never match (fail-closed on unrecognized
// policy data).
func (r *ConditionRegistry) Evaluate(conditionType string, expected bool, subject *model.Subject, resource *model.Resource, reqCtx *model.RequestContext) bool {
	r.mu.RLock()
	fn, ok := r.funcs[conditionType]
	r.mu.RUnlock()

	if !ok {
		logger.Warn("Unknown condition type", zap.String("conditionType", conditionType))
		return false
	}

	return fn(subject, resource, reqCtx) == expected
}

// ownerMatch checks the resource's owner-like fields against the
// subject, in a fixed priority order: user id, then entity id, then
// owner id. The first populated field decides.
func ownerMatch(subject *model.Subject, resource *model.Resource, _ *model.RequestContext) bool {
	if resource == nil || subject == nil {
		return false
	}
	if resource.UserID != "" {
		return resource.UserID == subject.ID
	}
	if resource.EntityID != "" {
		return subject.EntityID != "" && resource.EntityID == subject.EntityID
	}
	if resource.OwnerID != "" {
		return resource.OwnerID == subject.ID
	}
	return false
}

// sameDepartment accepts either a department name or a department id on
// the resource side.
func sameDepartment(subject *model.Subject, resource *model.Resource, _ *model.RequestContext) bool {
	if subject == nil || resource == nil || subject.Department == "" {
		return false
	}
	return subject.Department == resource.Department ||
		subject.Department == resource.DepartmentID
}

func sameOrganization(subject *model.Subject, resource *model.Resource, _ *model.RequestContext) bool {
	if subject == nil || resource == nil || subject.OrganizationID == "" {
		return false
	}
	return subject.OrganizationID == resource.OrganizationID
}

func teachesCourse(subject *model.Subject, resource *model.Resource, _ *model.RequestContext) bool {
	if subject == nil || resource == nil {
		return false
	}
	return subject.TeachesCourse(resource.CourseID)
}

func anonymized(_ *model.Subject, resource *model.Resource, _ *model.RequestContext) bool {
	return resource != nil && resource.Anonymized
}

func isDepartmentHead(subject *model.Subject, _ *model.Resource, _ *model.RequestContext) bool {
	return subject != nil && subject.DepartmentHead
}

func willingToMentor(_ *model.Subject, resource *model.Resource, _ *model.RequestContext) bool {
	return resource != nil && resource.WillingToMentor
}
