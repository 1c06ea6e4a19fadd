// api/policy/store.go
package policy

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	sentra_errors "github.com/campushq/sentra/api/errors"
	logger "github.com/campushq/sentra/api/logging"
	"github.com/campushq/sentra/api/model"
	"github.com/campushq/sentra/api/util"
)

// EventPolicyReloaded is published on the event bus after a successful
// reload so dependents (the decision cache in particular) can discard
// state derived from the previous policy set.
const EventPolicyReloaded = "policy.reloaded"

// Store holds the in-memory policy set. It carries no decision logic:
// it loads, validates and atomically swaps the set, nothing more.
type Store struct {
	mu       sync.RWMutex
	policies []model.Policy
	version  uint64
	validate *validator.Validate
	eventBus *util.EventBus
}

// NewStore creates an empty policy store. The event bus may be nil in
// tests; reload events are then skipped.
func NewStore(eventBus *util.EventBus) *Store {
	return &Store{
		validate: validator.New(),
		eventBus: eventBus,
	}
}

// Load parses the policy document at path and installs it as the
// current set. On any failure the set is left EMPTY: with no policies
// every decision is an implicit deny, so a broken document fails
// closed rather than open.
func (s *Store) Load(path string) error {
	policies, err := s.parse(path)
	if err != nil {
		logger.Error("Failed to load policy document, policy set is empty (fail-closed)",
			zap.String("path", path),
			zap.Error(err))
		s.mu.Lock()
		s.policies = nil
		s.version++
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.policies = policies
	s.version++
	s.mu.Unlock()

	logger.Info("Policy set loaded",
		zap.String("path", path),
		zap.Int("policyCount", len(policies)))
	return nil
}

// Reload re-parses the document and atomically replaces the current
// set only if parsing and validation succeed; on failure the previous
// good set stays in place. The swap bumps the set version, which
// invalidates every decision cached against the old set the moment
// Reload returns; EventPolicyReloaded is published afterwards for
// out-of-band listeners.
func (s *Store) Reload(ctx context.Context, path string) error {
	policies, err := s.parse(path)
	if err != nil {
		logger.Error("Policy reload failed, keeping previous policy set",
			zap.String("path", path),
			zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.policies = policies
	s.version++
	s.mu.Unlock()

	logger.Info("Policy set reloaded",
		zap.String("path", path),
		zap.Int("policyCount", len(policies)))

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, EventPolicyReloaded, len(policies))
	}
	return nil
}

// Policies returns the current policy set. The slice is swapped as a
// whole on reload, so concurrent readers always see either the old or
// the new set, never a mix. Callers must not mutate it.
func (s *Store) Policies() []model.Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policies
}

// Version identifies the current policy set. It increments on every
// swap, including a fail-closed emptying, so a decision computed
// against an earlier set can be recognized as stale no matter when it
// lands in a cache.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Count returns the number of loaded policies.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.policies)
}

func (s *Store) parse(path string) ([]model.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sentra_errors.ErrPolicyLoad, err)
	}

	var doc model.PolicyDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", sentra_errors.ErrPolicyLoad, err)
	}

	// Structurally invalid entries reject the whole document. Silently
	// dropping a malformed policy could turn an intended deny into an
	// implicit allow-by-omission elsewhere, so the load fails loudly.
	seen := make(map[string]struct{}, len(doc.Policies))
	for i := range doc.Policies {
		p := &doc.Policies[i]
		if err := s.validate.Struct(p); err != nil {
			return nil, fmt.Errorf("%w: policy %q (index %d): %v",
				sentra_errors.ErrPolicyValidation, p.ID, i, err)
		}
		if _, dup := seen[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate policy id %q",
				sentra_errors.ErrPolicyValidation, p.ID)
		}
		seen[p.ID] = struct{}{}
	}

	return doc.Policies, nil
}
