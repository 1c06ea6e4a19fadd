// api/anomaly/guard.go
package anomaly

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	logger "github.com/campushq/sentra/api/logging"
	"github.com/campushq/sentra/api/model"
)

// ActivityStore supplies a subject's recent history: how often it
// accessed things and from which addresses it logged in. Implementations
// must bound their own query time; the guard additionally caps each
// fetch with a timeout.
type ActivityStore interface {
	CountAccessEvents(ctx context.Context, subjectID string, actions []string, window time.Duration) (int64, error)
	KnownLoginIPs(ctx context.Context, subjectID string, window time.Duration) ([]string, error)
}

// ByteCounter accumulates downloaded bytes per subject over a rolling
// window and returns the running total.
type ByteCounter interface {
	Add(ctx context.Context, subjectID string, n int64) (int64, error)
}

// Config carries the guard's detection thresholds.
type Config struct {
	HighVolumeThreshold   int64
	HighVolumeWindow      time.Duration
	OffHoursStart         int // inclusive, local hour
	OffHoursEnd           int // exclusive
	ExfiltrationThreshold int64
	ExfiltrationWindow    time.Duration
	KnownIPWindow         time.Duration
	FetchTimeout          time.Duration

	// RestrictedActions only privileged roles may perform.
	RestrictedActions map[string]struct{}
	// PrivilegedRoles allowed to perform restricted actions.
	PrivilegedRoles map[string]struct{}
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		HighVolumeThreshold:   50,
		HighVolumeWindow:      10 * time.Minute,
		OffHoursStart:         0,
		OffHoursEnd:           6,
		ExfiltrationThreshold: 100 * 1024 * 1024,
		ExfiltrationWindow:    24 * time.Hour,
		KnownIPWindow:         30 * 24 * time.Hour,
		FetchTimeout:          2 * time.Second,
		RestrictedActions: map[string]struct{}{
			"access_admin_panel": {},
			"modify_permissions": {},
			"delete_user":        {},
			"bulk_export":        {},
		},
		PrivilegedRoles: map[string]struct{}{
			"admin":       {},
			"super_admin": {},
		},
	}
}

// accessActions are the action kinds counted by the high-volume rule.
var accessActions = []string{"read", "access"}

// Guard runs the behavioral detection rules for one request. It is
// safe for concurrent use; the only mutable state is the byte counter,
// which synchronizes internally.
type Guard struct {
	history ActivityStore
	bytes   ByteCounter
	cfg     Config
	nowFn   func() time.Time
}

// NewGuard creates a guard over the given history store. A nil counter
// falls back to the in-memory download tracker.
func NewGuard(history ActivityStore, bytes ByteCounter, cfg Config) *Guard {
	if bytes == nil {
		bytes = NewDownloadTracker(cfg.ExfiltrationWindow)
	}
	return &Guard{
		history: history,
		bytes:   bytes,
		cfg:     cfg,
		nowFn:   time.Now,
	}
}

// facts are everything the rules need, fetched once per request before
// any rule runs so the scoring loop itself does no I/O. Each fact
// records its own fetch error; a failed fetch disables only the rules
// that depend on it.
type facts struct {
	accessCount int64
	accessErr   error

	knownIPs []string
	ipErr    error

	bytesTotal int64
	bytesErr   error
}

// Assess evaluates all detection rules against the subject's current
// activity. Rules are independent: one failing never suppresses the
// others, and Assess itself never fails — a rule that cannot be
// evaluated reports "not triggered" and the error is logged.
func (g *Guard) Assess(ctx context.Context, subject *model.Subject, activity model.Activity) []model.Alert {
	if subject == nil || subject.ID == "" {
		return nil
	}

	f := g.gatherFacts(ctx, subject.ID, activity)

	rules := []func(*model.Subject, model.Activity, *facts) (*model.Alert, error){
		g.checkHighVolume,
		g.checkOffHours,
		g.checkPrivilegeEscalation,
		g.checkGeoAnomaly,
		g.checkExfiltration,
	}

	var alerts []model.Alert
	for _, rule := range rules {
		alert, err := rule(subject, activity, f)
		if err != nil {
			logger.Error("Anomaly rule evaluation failed, treating as not triggered",
				zap.String("subjectID", subject.ID),
				zap.Error(err))
			continue
		}
		if alert != nil {
			alerts = append(alerts, *alert)
		}
	}

	if len(alerts) > 0 {
		logger.Warn("Anomalous activity detected",
			zap.String("subjectID", subject.ID),
			zap.String("action", activity.Action),
			zap.Int("alertCount", len(alerts)))
	}

	return alerts
}

// ShouldBlock reports whether the alert batch is severe enough to
// override an otherwise-allowed decision: true iff at least one alert
// is critical.
func ShouldBlock(alerts []model.Alert) bool {
	for i := range alerts {
		if alerts[i].Critical() {
			return true
		}
	}
	return false
}

// gatherFacts pre-fetches history and updates the byte counter, all
// concurrently and under one bounded timeout. Fetch errors are stored
// per fact, never returned.
func (g *Guard) gatherFacts(ctx context.Context, subjectID string, activity model.Activity) *facts {
	fetchCtx, cancel := context.WithTimeout(ctx, g.cfg.FetchTimeout)
	defer cancel()

	f := &facts{}
	grp, grpCtx := errgroup.WithContext(fetchCtx)

	grp.Go(func() error {
		f.accessCount, f.accessErr = g.history.CountAccessEvents(grpCtx, subjectID, accessActions, g.cfg.HighVolumeWindow)
		return nil
	})
	grp.Go(func() error {
		f.knownIPs, f.ipErr = g.history.KnownLoginIPs(grpCtx, subjectID, g.cfg.KnownIPWindow)
		return nil
	})
	grp.Go(func() error {
		f.bytesTotal, f.bytesErr = g.bytes.Add(grpCtx, subjectID, activity.BytesOut)
		return nil
	})

	// Goroutines always return nil; per-fact errors degrade individual
	// rules instead of aborting the assessment.
	_ = grp.Wait()
	return f
}

func (g *Guard) checkHighVolume(subject *model.Subject, activity model.Activity, f *facts) (*model.Alert, error) {
	if f.accessErr != nil {
		return nil, fmt.Errorf("high volume rule: %w", f.accessErr)
	}
	if f.accessCount <= g.cfg.HighVolumeThreshold {
		return nil, nil
	}
	return &model.Alert{
		Type:      model.AlertHighVolumeAccess,
		Severity:  model.SeverityHigh,
		SubjectID: subject.ID,
		Timestamp: g.nowFn(),
		Message: fmt.Sprintf("%d read/access operations in the last %s (threshold %d)",
			f.accessCount, g.cfg.HighVolumeWindow, g.cfg.HighVolumeThreshold),
	}, nil
}

func (g *Guard) checkOffHours(subject *model.Subject, activity model.Activity, _ *facts) (*model.Alert, error) {
	at := activity.Timestamp
	if at.IsZero() {
		at = g.nowFn()
	}
	hour := at.Hour()
	if hour < g.cfg.OffHoursStart || hour >= g.cfg.OffHoursEnd {
		return nil, nil
	}
	return &model.Alert{
		Type:      model.AlertOffHoursAccess,
		Severity:  model.SeverityMedium,
		SubjectID: subject.ID,
		Timestamp: g.nowFn(),
		Resource:  activity.Resource,
		Message:   fmt.Sprintf("activity at %02d:00, outside normal hours", hour),
	}, nil
}

func (g *Guard) checkPrivilegeEscalation(subject *model.Subject, activity model.Activity, _ *facts) (*model.Alert, error) {
	if _, restricted := g.cfg.RestrictedActions[activity.Action]; !restricted {
		return nil, nil
	}
	if _, privileged := g.cfg.PrivilegedRoles[subject.Role]; privileged {
		return nil, nil
	}
	return &model.Alert{
		Type:      model.AlertPrivilegeEscalation,
		Severity:  model.SeverityCritical,
		SubjectID: subject.ID,
		Timestamp: g.nowFn(),
		Resource:  activity.Resource,
		Message: fmt.Sprintf("role %q attempted restricted action %q",
			subject.Role, activity.Action),
	}, nil
}

func (g *Guard) checkGeoAnomaly(subject *model.Subject, activity model.Activity, f *facts) (*model.Alert, error) {
	if f.ipErr != nil {
		return nil, fmt.Errorf("geo anomaly rule: %w", f.ipErr)
	}
	// A subject with no login history has no baseline to deviate from.
	if len(f.knownIPs) == 0 || activity.IP == "" {
		return nil, nil
	}
	for _, ip := range f.knownIPs {
		if ip == activity.IP {
			return nil, nil
		}
	}
	return &model.Alert{
		Type:      model.AlertGeoAnomaly,
		Severity:  model.SeverityHigh,
		SubjectID: subject.ID,
		Timestamp: g.nowFn(),
		IP:        activity.IP,
		Message: fmt.Sprintf("request from %s, not seen among %d known addresses",
			activity.IP, len(f.knownIPs)),
	}, nil
}

func (g *Guard) checkExfiltration(subject *model.Subject, activity model.Activity, f *facts) (*model.Alert, error) {
	if f.bytesErr != nil {
		return nil, fmt.Errorf("exfiltration rule: %w", f.bytesErr)
	}
	if f.bytesTotal <= g.cfg.ExfiltrationThreshold {
		return nil, nil
	}
	return &model.Alert{
		Type:      model.AlertDataExfiltration,
		Severity:  model.SeverityCritical,
		SubjectID: subject.ID,
		Timestamp: g.nowFn(),
		Bytes:     f.bytesTotal,
		Message: fmt.Sprintf("%d bytes downloaded in rolling %s window (threshold %d)",
			f.bytesTotal, g.cfg.ExfiltrationWindow, g.cfg.ExfiltrationThreshold),
	}, nil
}
