package storage

import "errors"

// ErrNotFound is returned by repository methods when the requested record
// does not exist. Callers check with errors.Is.
var ErrNotFound = errors.New("storage: record not found")

// ErrDuplicateTimestamp is returned by AppendDynamic when timestamp_utc is
// not strictly monotonic for the UPS.
var ErrDuplicateTimestamp = errors.New("storage: duplicate or out-of-order timestamp_utc")
