package pie

import "github.com/google/uuid"

// NewRowID mints a row identifier. UUIDs keep inserts append-only and avoid
// coordinating counters across writers.
func NewRowID() string {
	return uuid.NewString()
}

func newRowID() string { return NewRowID() }
