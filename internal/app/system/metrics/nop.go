package metrics

import "time"

// Nop implements a no-op collector.
//
// All measurements are discarded. Used by tests and when metrics are
// disabled.
type Nop struct{}

// Compile-time assertion that Nop implements Collector.
var _ Collector = (*Nop)(nil)

// NewNop creates a new no-op collector.
func NewNop() *Nop {
	return &Nop{}
}

// RecordPreview discards the preview measurement.
func (n *Nop) RecordPreview(_ /* placed */, _ /* unplaced */ int, _ /* duration */ time.Duration) {
	// No-op
}

// RecordCommit discards the commit measurement.
func (n *Nop) RecordCommit(_ /* kind */, _ /* result */ string, _ /* duration */ time.Duration) {
	// No-op
}

// RecordSeatsWritten discards the seat count.
func (n *Nop) RecordSeatsWritten(_ /* kind */ string, _ /* n */ int) {
	// No-op
}

// RecordLockWait discards the lock wait measurement.
func (n *Nop) RecordLockWait(_ /* duration */ time.Duration, _ /* acquired */ bool) {
	// No-op
}
