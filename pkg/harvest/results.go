package harvest

import (
	"sync"

	"github.com/Sternrassler/comic-harvester/pkg/records"
)

// Results accumulates detail records from concurrent fetches. Records are
// kept in the order Append was called, which is completion order.
type Results struct {
	mu      sync.Mutex
	records []records.DetailRecord
}

// NewResults creates an empty result set.
func NewResults() *Results {
	return &Results{}
}

// Append adds one record and returns the new length. Safe for concurrent use.
func (r *Results) Append(rec records.DetailRecord) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return len(r.records)
}

// Len returns the number of records appended so far.
func (r *Results) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Snapshot returns a copy of all records. Call it after every writer has
// finished to observe the complete set.
func (r *Results) Snapshot() []records.DetailRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]records.DetailRecord, len(r.records))
	copy(out, r.records)
	return out
}
