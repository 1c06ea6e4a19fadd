// api/pdp/engine.go
package pdp

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	logger "github.com/campushq/sentra/api/logging"
	"github.com/campushq/sentra/api/model"
	"github.com/campushq/sentra/api/policy"
)

// DefaultDecisionTTL is how long a computed decision stays valid in the
// cache before the next identical request triggers a fresh evaluation.
const DefaultDecisionTTL = 5 * time.Minute

// Engine evaluates access requests against the policy store with
// deny-override precedence. It is constructed once at the composition
// root and injected wherever decisions are needed; there is no global
// instance.
type Engine struct {
	store      *policy.Store
	conditions *ConditionRegistry
	cache      *decisionCache

	// evaluations counts full policy-set iterations (cache misses).
	// Exposed for cache-correctness instrumentation.
	evaluations atomic.Int64
}

// NewEngine creates a decision engine over the given store. A
// non-positive ttl falls back to DefaultDecisionTTL.
func NewEngine(store *policy.Store, conditions *ConditionRegistry, ttl time.Duration) *Engine {
	if ttl <= 0 {
		ttl = DefaultDecisionTTL
	}
	if conditions == nil {
		conditions = NewConditionRegistry()
	}
	return &Engine{
		store:      store,
		conditions: conditions,
		cache:      newDecisionCache(ttl),
	}
}

// Evaluate answers whether the subject may perform the action on the
// resource. It never returns an error: every internal failure degrades
// to an implicit deny. The decision is cached under
// (subjectID, resourceType, resourceID|"all", action) for the TTL,
// stamped with the policy-set version current at the start of the
// evaluation; a reload mid-flight leaves the entry stale and it is
// recomputed on the next request.
func (e *Engine) Evaluate(ctx context.Context, subject *model.Subject, resource *model.Resource, action string, reqCtx *model.RequestContext) *model.Decision {
	version := e.store.Version()
	key := cacheKey(subject, resource, action)
	if cached, ok := e.cache.Get(key, version); ok {
		logger.Debug("Decision cache hit",
			zap.String("subjectID", subject.ID),
			zap.String("cacheKey", key))
		return cached
	}

	e.evaluations.Add(1)

	var matched, denied []string
	policies := e.store.Policies()
	for i := range policies {
		p := &policies[i]
		if e.conditions.Matches(p, subject, resource, action, reqCtx) {
			matched = append(matched, p.ID)
			if p.Effect == model.EffectDeny {
				denied = append(denied, p.ID)
			}
		}
	}

	decision := combine(matched, denied)

	// An aborted request must never populate the cache: the caller is
	// gone and the computation may have been cut short upstream.
	if ctx.Err() != nil {
		logger.Warn("Request aborted during evaluation, decision not cached",
			zap.String("subjectID", subject.ID),
			zap.Error(ctx.Err()))
		return decision
	}

	e.cache.Set(key, decision, version)

	logger.Info("Access decision computed",
		zap.String("subjectID", subject.ID),
		zap.String("resourceType", resource.Type),
		zap.String("action", action),
		zap.Bool("allowed", decision.Allowed),
		zap.Strings("matchedPolicies", decision.MatchedPolicyIDs))

	return decision
}

// combine applies deny-override precedence: any matched deny policy
// defeats all allows, and zero matches is an implicit deny.
func combine(matched, denied []string) *model.Decision {
	switch {
	case len(denied) > 0:
		return &model.Decision{
			Allowed:          false,
			MatchedPolicyIDs: matched,
			DenyPolicyIDs:    denied,
			Reason:           fmt.Sprintf("denied by policy %s", strings.Join(denied, ", ")),
		}
	case len(matched) > 0:
		return &model.Decision{
			Allowed:          true,
			MatchedPolicyIDs: matched,
			Reason:           fmt.Sprintf("allowed by policy %s", strings.Join(matched, ", ")),
		}
	default:
		return &model.Decision{
			Allowed: false,
			Reason:  "no matching policies (implicit deny)",
		}
	}
}

// Evaluations returns how many cache-miss evaluations have run.
func (e *Engine) Evaluations() int64 {
	return e.evaluations.Load()
}

// Close stops the cache janitor.
func (e *Engine) Close() {
	e.cache.Stop()
}

func cacheKey(subject *model.Subject, resource *model.Resource, action string) string {
	return subject.ID + ":" + resource.Type + ":" + resource.CacheID() + ":" + action
}
