// Package metrics records allocation engine measurements.
//
// Two collectors implement Collector: Nop, which discards everything, and
// Prometheus, which exports counters and histograms under the configured
// namespace with subsystem "allocation".
package metrics

import "time"

// Commit kinds.
const (
	KindBulk   = "bulk"
	KindSingle = "single"
	KindManual = "manual"
	KindSelf   = "self"
)

// Commit results.
const (
	ResultOK        = "ok"
	ResultConflict  = "conflict"
	ResultForbidden = "forbidden"
	ResultError     = "error"
)

// Collector receives allocation engine measurements.
type Collector interface {
	// RecordPreview records one matcher run over a company pool.
	RecordPreview(placed, unplaced int, duration time.Duration)

	// RecordCommit records the outcome of one commit of the given kind.
	RecordCommit(kind, result string, duration time.Duration)

	// RecordSeatsWritten records assignments created by a commit.
	RecordSeatsWritten(kind string, n int)

	// RecordLockWait records how long a bulk commit waited for the company lock.
	RecordLockWait(duration time.Duration, acquired bool)
}
