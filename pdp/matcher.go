// api/pdp/matcher.go
package pdp

import "github.com/campushq/sentra/api/model"

// Matches reports whether a single policy applies to the request
// tuple. All four predicate groups must hold: subject attributes,
// resource type, action and conditions. The check is pure; evaluating
// the same tuple twice yields the same result.
func (r *ConditionRegistry) Matches(p *model.Policy, subject *model.Subject, resource *model.Resource, action string, reqCtx *model.RequestContext) bool {
	if !matchSubject(p, subject) {
		return false
	}
	if !matchResource(p, resource) {
		return false
	}
	if !matchAction(p, action) {
		return false
	}
	return r.matchConditions(p, subject, resource, reqCtx)
}

// matchSubject requires every attribute the policy declares to equal
// the subject's same-named attribute. Attributes the policy does not
// declare are ignored (open-world matching), so an empty predicate
// matches any subject.
func matchSubject(p *model.Policy, subject *model.Subject) bool {
	if len(p.Subject) == 0 {
		return true
	}
	if subject == nil {
		return false
	}
	for name, required := range p.Subject {
		got, ok := subject.Attribute(name)
		if !ok || got != required {
			return false
		}
	}
	return true
}

func matchResource(p *model.Policy, resource *model.Resource) bool {
	if p.Resources.MatchesAny() {
		return true
	}
	if resource == nil {
		return false
	}
	return p.Resources.Contains(resource.Type)
}

func matchAction(p *model.Policy, action string) bool {
	if p.Actions.MatchesAny() {
		return true
	}
	return p.Actions.Contains(action)
}

func (r *ConditionRegistry) matchConditions(p *model.Policy, subject *model.Subject, resource *model.Resource, reqCtx *model.RequestContext) bool {
	for conditionType, expected := range p.Conditions {
		if !r.Evaluate(conditionType, expected, subject, resource, reqCtx) {
			return false
		}
	}
	return true
}
