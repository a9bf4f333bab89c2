package querycache

import "time"

// Status is the lifecycle state of a cached query.
type Status int

const (
	// StatusPending means a fetch is running. Data from an earlier success
	// may still be present.
	StatusPending Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is a snapshot of one query. HasData distinguishes a zero Data from
// no data at all.
type Result[T any] struct {
	Status    Status
	Data      T
	HasData   bool
	Err       error
	UpdatedAt time.Time
}

func (r Result[T]) Pending() bool { return r.Status == StatusPending }
func (r Result[T]) Failed() bool  { return r.Status == StatusError }
