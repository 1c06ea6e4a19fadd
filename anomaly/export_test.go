// api/anomaly/export_test.go
package anomaly

import "time"

// SetNowFunc overrides the guard's clock for tests.
func (g *Guard) SetNowFunc(fn func() time.Time) { g.nowFn = fn }

// Counter exposes the guard's byte counter for tests.
func (g *Guard) Counter() ByteCounter { return g.bytes }
