// api/service/access_service.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/campushq/sentra/api/anomaly"
	"github.com/campushq/sentra/api/audit"
	sentra_errors "github.com/campushq/sentra/api/errors"
	logger "github.com/campushq/sentra/api/logging"
	"github.com/campushq/sentra/api/model"
	"github.com/campushq/sentra/api/pdp"
	"github.com/campushq/sentra/api/policy"
	"github.com/campushq/sentra/api/util"
)

// EventCriticalAlerts is published with a []model.Alert payload when an
// assessment produces critical findings; the notification sink is
// driven off this event so escalation stays off the request path.
const EventCriticalAlerts = "anomaly.critical"

// AttributeStore resolves resource attributes when the caller supplies
// only a type and id.
type AttributeStore interface {
	GetResource(ctx context.Context, resourceType, resourceID string) (*model.Resource, error)
}

// ActivityRecorder ingests the events the anomaly guard later reads
// back as history. Nil when the audit trail itself serves as history:
// the elasticsearch backend answers its queries from the audit entries
// this service already writes, so only the redis counters need an
// explicit feed.
type ActivityRecorder interface {
	RecordAccessEvent(ctx context.Context, subjectID, action string) error
	RecordLoginIP(ctx context.Context, subjectID, ip string) error
}

// CheckRequest is one fully-specified access check.
type CheckRequest struct {
	Subject  *model.Subject
	Resource *model.Resource
	Action   string
	Context  *model.RequestContext

	// BytesOut is how many bytes this action will send to the caller,
	// fed to the exfiltration accumulator.
	BytesOut int64
}

// CheckResult is the combined verdict: the policy decision, any anomaly
// alerts, and whether a critical alert blocks an otherwise-allowed
// action.
type CheckResult struct {
	Decision *model.Decision `json:"decision"`
	Alerts   []model.Alert   `json:"alerts,omitempty"`
	Blocked  bool            `json:"blocked"`
}

// Permitted reports the final verdict after both layers.
func (r *CheckResult) Permitted() bool {
	return r.Decision != nil && r.Decision.Allowed && !r.Blocked
}

// IAccessService is the surface the transport layer depends on.
type IAccessService interface {
	CheckAccess(ctx context.Context, req *CheckRequest) (*CheckResult, error)
	ReloadPolicies(ctx context.Context) error
}

// AccessService runs the full decision pipeline: resolve facts, decide
// via the policy engine, assess via the anomaly guard, audit, escalate.
type AccessService struct {
	engine          *pdp.Engine
	guard           *anomaly.Guard
	policyStore     *policy.Store
	policyPath      string
	attributes      AttributeStore
	auditService    audit.Service
	recorder        ActivityRecorder
	notificationSvc *util.NotificationService
	eventBus        *util.EventBus
	fetchTimeout    time.Duration
}

// NewAccessService wires the pipeline together. It subscribes the
// notification sink to critical-alert events.
func NewAccessService(
	engine *pdp.Engine,
	guard *anomaly.Guard,
	policyStore *policy.Store,
	policyPath string,
	attributes AttributeStore,
	auditService audit.Service,
	recorder ActivityRecorder,
	notificationSvc *util.NotificationService,
	eventBus *util.EventBus,
) *AccessService {
	s := &AccessService{
		engine:          engine,
		guard:           guard,
		policyStore:     policyStore,
		policyPath:      policyPath,
		attributes:      attributes,
		auditService:    auditService,
		recorder:        recorder,
		notificationSvc: notificationSvc,
		eventBus:        eventBus,
		fetchTimeout:    2 * time.Second,
	}

	if eventBus != nil {
		eventBus.Subscribe(EventCriticalAlerts, s.handleCriticalAlerts)
	}

	return s
}

func (s *AccessService) handleCriticalAlerts(ctx context.Context, event util.Event) error {
	alerts, ok := event.Payload.([]model.Alert)
	if !ok {
		logger.Error("Invalid critical alert payload", zap.Any("payload", event.Payload))
		return nil
	}
	return s.notificationSvc.NotifyCriticalAlerts(ctx, alerts)
}

// CheckAccess evaluates the request against the policy set and, when
// allowed, runs the anomaly guard over the same action. It returns an
// error only for unusable input; every internal fault degrades to a
// deny-leaning result.
func (s *AccessService) CheckAccess(ctx context.Context, req *CheckRequest) (*CheckResult, error) {
	if req == nil || req.Subject == nil || req.Subject.ID == "" ||
		req.Resource == nil || req.Resource.Type == "" || req.Action == "" {
		return nil, sentra_errors.ErrInvalidCheckInput
	}

	resource := s.resolveResource(ctx, req.Resource)

	decision := s.engine.Evaluate(ctx, req.Subject, resource, req.Action, req.Context)
	s.auditDecision(ctx, req, decision)
	s.recordActivity(ctx, req, decision)

	result := &CheckResult{Decision: decision}
	if !decision.Allowed {
		return result, nil
	}

	activity := model.Activity{
		Action:    req.Action,
		Resource:  resource.Type + ":" + resource.CacheID(),
		IP:        ipOf(req.Context),
		Timestamp: req.Context.Time(),
		BytesOut:  req.BytesOut,
	}

	result.Alerts = s.guard.Assess(ctx, req.Subject, activity)
	result.Blocked = anomaly.ShouldBlock(result.Alerts)

	if len(result.Alerts) > 0 {
		s.auditAlerts(ctx, req.Subject.ID, activity, result.Alerts)
		s.escalateCritical(ctx, result.Alerts)
	}

	if result.Blocked {
		logger.Warn("Allowed action blocked by anomaly guard",
			zap.String("subjectID", req.Subject.ID),
			zap.String("action", req.Action),
			zap.Int("alertCount", len(result.Alerts)))
	}

	return result, nil
}

// ReloadPolicies re-reads the policy document; a successful reload
// flushes the decision cache through the reload event.
func (s *AccessService) ReloadPolicies(ctx context.Context) error {
	if err := s.policyStore.Reload(ctx, s.policyPath); err != nil {
		return err
	}
	if err := s.notificationSvc.NotifyPolicyReload(ctx, s.policyStore.Count()); err != nil {
		logger.Warn("Failed to send policy reload notification", zap.Error(err))
	}
	return nil
}

// resolveResource fetches attributes for a bare type+id reference. On
// store failure it keeps the bare resource: attribute-dependent
// conditions then evaluate false, which is the deny-leaning choice.
func (s *AccessService) resolveResource(ctx context.Context, resource *model.Resource) *model.Resource {
	if s.attributes == nil || resource.ID == "" || !resource.Bare() {
		return resource
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	fetched, err := s.attributes.GetResource(fetchCtx, resource.Type, resource.ID)
	if err != nil {
		if errors.Is(err, sentra_errors.ErrResourceNotFound) {
			logger.Debug("Resource attributes not found, evaluating bare reference",
				zap.String("resourceType", resource.Type),
				zap.String("resourceID", resource.ID))
		} else {
			logger.Error("Resource auto-fetch failed, evaluating bare reference",
				zap.String("resourceType", resource.Type),
				zap.String("resourceID", resource.ID),
				zap.Error(err))
		}
		return resource
	}
	return fetched
}

// recordActivity feeds the external history counters the anomaly guard
// reads. Every checked action counts toward the volume window, matching
// the audit trail; a successful login additionally extends the subject's
// known-address baseline. Recording failures are logged, never
// propagated.
func (s *AccessService) recordActivity(ctx context.Context, req *CheckRequest, decision *model.Decision) {
	if s.recorder == nil {
		return
	}

	if err := s.recorder.RecordAccessEvent(ctx, req.Subject.ID, req.Action); err != nil {
		logger.Warn("Failed to record access event",
			zap.String("subjectID", req.Subject.ID),
			zap.String("action", req.Action),
			zap.Error(err))
	}

	if req.Action != "login" || !decision.Allowed {
		return
	}
	ip := ipOf(req.Context)
	if ip == "" {
		return
	}
	if err := s.recorder.RecordLoginIP(ctx, req.Subject.ID, ip); err != nil {
		logger.Warn("Failed to record login address",
			zap.String("subjectID", req.Subject.ID),
			zap.String("ip", ip),
			zap.Error(err))
	}
}

func (s *AccessService) auditDecision(ctx context.Context, req *CheckRequest, decision *model.Decision) {
	details, err := json.Marshal(decision)
	if err != nil {
		logger.Error("Failed to marshal decision for audit", zap.Error(err))
		details = nil
	}

	entry := audit.Entry{
		SubjectID: req.Subject.ID,
		Action:    req.Action,
		Success:   decision.Allowed,
		Message:   decision.Reason,
		IP:        ipOf(req.Context),
		Details:   details,
	}
	if err := s.auditService.Record(ctx, entry); err != nil {
		logger.Error("Audit write failed for decision",
			zap.String("subjectID", req.Subject.ID),
			zap.Error(err))
	}
}

func (s *AccessService) auditAlerts(ctx context.Context, subjectID string, activity model.Activity, alerts []model.Alert) {
	entries := make([]audit.Entry, 0, len(alerts))
	for i := range alerts {
		details, err := json.Marshal(&alerts[i])
		if err != nil {
			logger.Error("Failed to marshal alert for audit", zap.Error(err))
			details = nil
		}
		entries = append(entries, audit.Entry{
			SubjectID: subjectID,
			Action:    "anomaly_alert",
			Success:   false,
			Message:   alerts[i].Message,
			IP:        activity.IP,
			Details:   details,
		})
	}
	if err := s.auditService.RecordBatch(ctx, entries); err != nil {
		logger.Error("Audit write failed for alert batch",
			zap.String("subjectID", subjectID),
			zap.Error(err))
	}
}

func (s *AccessService) escalateCritical(ctx context.Context, alerts []model.Alert) {
	var critical []model.Alert
	for i := range alerts {
		if alerts[i].Critical() {
			critical = append(critical, alerts[i])
		}
	}
	if len(critical) == 0 {
		return
	}
	if s.eventBus != nil {
		s.eventBus.Publish(ctx, EventCriticalAlerts, critical)
	} else if s.notificationSvc != nil {
		if err := s.notificationSvc.NotifyCriticalAlerts(ctx, critical); err != nil {
			logger.Error("Critical alert notification failed", zap.Error(err))
		}
	}
}

func ipOf(reqCtx *model.RequestContext) string {
	if reqCtx == nil {
		return ""
	}
	return reqCtx.IP
}
