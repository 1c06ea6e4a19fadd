// api/util/activity_service.go

package util

import (
	"context"
	"time"

	"github.com/campushq/sentra/api/db"
)

// ActivityService is the redis-backed activity history. Counters live
// in shared, atomically incremented keys with expiring windows, so
// anomaly thresholds apply to global activity even when several
// service instances handle the same subject. It is both the recording
// side (fed from the access pipeline) and the query side (read by the
// anomaly guard) of the same keys.
type ActivityService struct {
	accessWindow       time.Duration
	knownIPWindow      time.Duration
	exfiltrationWindow time.Duration
}

func NewActivityService(accessWindow, knownIPWindow, exfiltrationWindow time.Duration) *ActivityService {
	return &ActivityService{
		accessWindow:       accessWindow,
		knownIPWindow:      knownIPWindow,
		exfiltrationWindow: exfiltrationWindow,
	}
}

// RecordAccessEvent notes one checked action for the subject. Events
// are retained for the volume-counting window.
func (a *ActivityService) RecordAccessEvent(ctx context.Context, subjectID, action string) error {
	return db.RecordAccessEvent(ctx, subjectID, action, a.accessWindow)
}

// RecordLoginIP notes a successful login address for the subject.
func (a *ActivityService) RecordLoginIP(ctx context.Context, subjectID, ip string) error {
	return db.RecordLoginIP(ctx, subjectID, ip, a.knownIPWindow)
}

// CountAccessEvents implements the anomaly guard's history lookup.
func (a *ActivityService) CountAccessEvents(ctx context.Context, subjectID string, actions []string, window time.Duration) (int64, error) {
	return db.CountAccessEvents(ctx, subjectID, actions, window)
}

// KnownLoginIPs implements the anomaly guard's address baseline lookup.
func (a *ActivityService) KnownLoginIPs(ctx context.Context, subjectID string, window time.Duration) ([]string, error) {
	return db.KnownLoginIPs(ctx, subjectID, window)
}

// Add implements the anomaly guard's download byte counter.
func (a *ActivityService) Add(ctx context.Context, subjectID string, n int64) (int64, error) {
	return db.AddDownloadBytes(ctx, subjectID, n, a.exfiltrationWindow)
}
