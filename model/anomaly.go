// api/model/anomaly.go
package model

import "time"

// Alert types produced by the anomaly guard.
const (
	AlertHighVolumeAccess    = "HIGH_VOLUME_ACCESS"
	AlertOffHoursAccess      = "OFF_HOURS_ACCESS"
	AlertPrivilegeEscalation = "PRIVILEGE_ESCALATION"
	AlertGeoAnomaly          = "GEOGRAPHIC_ANOMALY"
	AlertDataExfiltration    = "DATA_EXFILTRATION"
)

// Alert severities, in increasing order of urgency.
const (
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Alert is an ephemeral anomaly finding. Alerts are written to the
// audit log as a batch and critical ones are escalated to the
// notification sink; they are never persisted as standalone entities.
type Alert struct {
	Type      string    `json:"type"`
	Severity  string    `json:"severity"`
	Message   string    `json:"message"`
	SubjectID string    `json:"subject_id"`
	Timestamp time.Time `json:"timestamp"`
	Resource  string    `json:"resource,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Bytes     int64     `json:"bytes,omitempty"`
}

// Critical reports whether the alert alone is severe enough to block an
// otherwise-allowed action.
func (a *Alert) Critical() bool {
	return a.Severity == SeverityCritical
}

// Activity describes the action the anomaly guard is assessing: what
// was done, from where, and how many bytes left the system doing it.
type Activity struct {
	Action    string    `json:"action"`
	Resource  string    `json:"resource,omitempty"`
	IP        string    `json:"ip,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	BytesOut  int64     `json:"bytes_out,omitempty"`
}
