// api/audit/model.go
package audit

import (
	"encoding/json"
	"time"
)

// Entry is one audit-log record: who did what, whether it was allowed,
// and an arbitrary structured payload (decision rationale, alert body).
type Entry struct {
	ID        string          `json:"id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	SubjectID string          `json:"subject_id"`
	Action    string          `json:"action"`
	Success   bool            `json:"success"`
	Message   string          `json:"message,omitempty"`
	IP        string          `json:"ip,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
}
