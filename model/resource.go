// api/model/resource.go
package model

// Resource is a projection of the target object carrying the attributes
// the condition evaluators need. When only a type and id are known the
// remaining attributes are fetched from the attribute store.
type Resource struct {
	ID   string `json:"id"`
	Type string `json:"type"` // e.g. "grades", "course", "profile"

	// Ownership candidates, checked in priority order by owner_match.
	UserID   string `json:"user_id,omitempty"`
	EntityID string `json:"entity_id,omitempty"`
	OwnerID  string `json:"owner_id,omitempty"`

	Department     string `json:"department,omitempty"`
	DepartmentID   string `json:"department_id,omitempty"`
	OrganizationID string `json:"organization_id,omitempty"`
	CourseID       string `json:"course_id,omitempty"`

	Anonymized      bool `json:"anonymized,omitempty"`
	WillingToMentor bool `json:"willing_to_mentor,omitempty"`

	// Custom attributes for flexible ABAC policies.
	Attributes map[string]interface{} `json:"attributes,omitempty"`
}

// Bare reports whether the resource carries nothing beyond its type
// and id, in which case its attributes should be auto-fetched before
// evaluation.
func (r *Resource) Bare() bool {
	return r.UserID == "" && r.EntityID == "" && r.OwnerID == "" &&
		r.Department == "" && r.DepartmentID == "" && r.OrganizationID == "" &&
		r.CourseID == "" && !r.Anonymized && !r.WillingToMentor &&
		len(r.Attributes) == 0
}

// CacheID returns the resource id component of a decision cache key.
// A resource without an id represents "all" instances of its type.
func (r *Resource) CacheID() string {
	if r.ID == "" {
		return "all"
	}
	return r.ID
}
