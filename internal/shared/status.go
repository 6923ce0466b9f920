package shared

import "fmt"

// Status is the lifecycle state of a product or sale.
type Status int

const (
	// StatusActive records participate in listings and reports.
	StatusActive Status = iota + 1
	// StatusDeleted records are hidden but kept for history.
	StatusDeleted
)

// FromActive maps the persisted is_active column to a Status.
func FromActive(active bool) Status {
	if active {
		return StatusActive
	}
	return StatusDeleted
}

// Active reports whether the status is StatusActive.
func (s Status) Active() bool { return s == StatusActive }

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusDeleted:
		return "deleted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}
