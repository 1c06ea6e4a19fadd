// api/model/policy.go
package model

import "gopkg.in/yaml.v3"

const (
	EffectAllow = "allow"
	EffectDeny  = "deny"
)

// Policy is a single declarative access rule. Policies are immutable
// once loaded; the store replaces the whole set on reload.
type Policy struct {
	ID          string `json:"id" yaml:"id" validate:"required"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Effect      string `json:"effect" yaml:"effect" validate:"required,oneof=allow deny"`

	// Subject attribute predicates, attribute name -> required value.
	// An empty map matches any subject.
	Subject map[string]string `json:"subject,omitempty" yaml:"subject,omitempty"`

	// Resource type predicate: "*" or empty matches any type, one or
	// more entries require membership.
	Resources StringOrList `json:"resources,omitempty" yaml:"resources,omitempty"`

	// Action predicate: empty matches any action.
	Actions StringOrList `json:"actions,omitempty" yaml:"actions,omitempty"`

	// Condition type -> expected outcome. Every declared condition must
	// evaluate to its expected value for the policy to match.
	Conditions map[string]bool `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// StringOrList accepts either a scalar or a sequence in the policy
// document, so `resources: grades` and `resources: [grades, courses]`
// both parse.
type StringOrList []string

func (s *StringOrList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		*s = StringOrList{single}
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*s = StringOrList(list)
	return nil
}

// MatchesAny reports whether the predicate admits any value, i.e. it is
// absent or contains the wildcard.
func (s StringOrList) MatchesAny() bool {
	if len(s) == 0 {
		return true
	}
	for _, v := range s {
		if v == "*" {
			return true
		}
	}
	return false
}

// Contains reports whether v is one of the declared values.
func (s StringOrList) Contains(v string) bool {
	for _, item := range s {
		if item == v {
			return true
		}
	}
	return false
}

// PolicyDocument is the root of a policy source file.
type PolicyDocument struct {
	Policies []Policy `json:"policies" yaml:"policies" validate:"dive"`
}
