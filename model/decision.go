// api/model/decision.go
package model

// Decision is the outcome of evaluating one access request against the
// loaded policy set. Decisions are never mutated after creation; the
// engine caches and returns the same value for identical requests
// within the cache TTL.
type Decision struct {
	Allowed          bool     `json:"allowed"`
	MatchedPolicyIDs []string `json:"matched_policy_ids,omitempty"`
	DenyPolicyIDs    []string `json:"deny_policy_ids,omitempty"`
	Reason           string   `json:"reason"`
}
