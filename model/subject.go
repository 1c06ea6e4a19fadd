// api/model/subject.go
package model

// Subject is the caller's identity as resolved by the authentication
// layer. The decision core never mutates it.
type Subject struct {
	ID             string            `json:"id"`
	Role           string            `json:"role"`
	Department     string            `json:"department,omitempty"`
	OrganizationID string            `json:"organization_id,omitempty"`
	EntityID       string            `json:"entity_id,omitempty"` // domain identity, e.g. student id
	Email          string            `json:"email,omitempty"`
	CourseIDs      []string          `json:"course_ids,omitempty"`
	DepartmentHead bool              `json:"department_head,omitempty"`
	Attributes     map[string]string `json:"attributes,omitempty"`
}

// Attribute resolves a subject attribute by its policy-document name.
// Well-known fields take precedence over the free-form attribute map.
func (s *Subject) Attribute(name string) (string, bool) {
	switch name {
	case "id", "user_id":
		return s.ID, s.ID != ""
	case "role":
		return s.Role, s.Role != ""
	case "department":
		return s.Department, s.Department != ""
	case "organization_id":
		return s.OrganizationID, s.OrganizationID != ""
	case "entity_id":
		return s.EntityID, s.EntityID != ""
	case "email":
		return s.Email, s.Email != ""
	}
	v, ok := s.Attributes[name]
	return v, ok
}

// TeachesCourse reports whether the subject's course list contains courseID.
func (s *Subject) TeachesCourse(courseID string) bool {
	if courseID == "" {
		return false
	}
	for _, id := range s.CourseIDs {
		if id == courseID {
			return true
		}
	}
	return false
}
