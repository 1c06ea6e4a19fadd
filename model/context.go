// api/model/context.go
package model

import "time"

// RequestContext carries the ambient attributes of the request being
// decided: when it happened, where it came from and what it touched.
// Read-only to the decision core.
type RequestContext struct {
	Timestamp time.Time `json:"timestamp"`
	IP        string    `json:"ip,omitempty"`
	Method    string    `json:"method,omitempty"`
	Path      string    `json:"path,omitempty"`
}

// Time returns the context timestamp, defaulting to the wall clock when
// the caller did not stamp the request.
func (c *RequestContext) Time() time.Time {
	if c == nil || c.Timestamp.IsZero() {
		return time.Now()
	}
	return c.Timestamp
}
