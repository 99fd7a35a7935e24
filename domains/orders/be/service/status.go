package service

import "fmt"

// Status is the closed set of order states.
type Status string

const (
	StatusPending     Status = "pending"
	StatusHasToBePaid Status = "hasToBePaid"
	StatusPaid        Status = "paid"
	StatusProcessing  Status = "processing"
	StatusShipped     Status = "shipped"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusComplain    Status = "complain"
)

// BoardOrder is the order in which statuses are presented on the admin board.
var BoardOrder = []Status{
	StatusPending,
	StatusHasToBePaid,
	StatusPaid,
	StatusProcessing,
	StatusShipped,
	StatusCompleted,
	StatusComplain,
	StatusCancelled,
}

var labels = map[Status]string{
	StatusPending:     "Pending",
	StatusHasToBePaid: "Harus Dibayar",
	StatusPaid:        "Sudah Dibayar",
	StatusProcessing:  "Processing",
	StatusShipped:     "Shipped",
	StatusCompleted:   "Completed",
	StatusCancelled:   "Cancelled",
	StatusComplain:    "Complain",
}

var transitions = map[Status][]Status{
	StatusPending:     {StatusHasToBePaid, StatusCancelled, StatusComplain},
	StatusHasToBePaid: {StatusPaid, StatusCancelled, StatusComplain},
	StatusPaid:        {StatusProcessing, StatusCancelled, StatusComplain},
	StatusProcessing:  {StatusShipped, StatusCancelled, StatusComplain},
	StatusShipped:     {StatusCompleted, StatusCancelled, StatusComplain},
	StatusCompleted:   nil,
	StatusCancelled:   nil,
	StatusComplain:    {StatusCancelled},
}

// ParseStatus accepts either the wire name or the display label.
func ParseStatus(raw string) (Status, error) {
	if _, ok := labels[Status(raw)]; ok {
		return Status(raw), nil
	}
	for s, label := range labels {
		if label == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", raw)
}

func (s Status) String() string { return string(s) }

// Label is the human-facing name shown to customers and store admins.
func (s Status) Label() string {
	if l, ok := labels[s]; ok {
		return l
	}
	return string(s)
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// AllowsContact reports whether a customer may message the store about an order in s.
func (s Status) AllowsContact() bool {
	switch s {
	case StatusPending, StatusHasToBePaid, StatusPaid, StatusProcessing, StatusShipped, StatusComplain:
		return true
	case StatusCompleted, StatusCancelled:
		return false
	default:
		return false
	}
}

// Next lists the statuses reachable from s.
func (s Status) Next() []Status {
	return append([]Status(nil), transitions[s]...)
}

// IllegalTransitionError is returned for any move not in the transition table.
type IllegalTransitionError struct {
	From Status
	To   Status
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("order cannot move from %s to %s", e.From.Label(), e.To.Label())
}

// StatusChange is a checked transition. The only way to obtain one is Transition, so a
// repository that accepts a StatusChange never writes an unchecked status.
type StatusChange struct {
	from Status
	to   Status
}

func (c StatusChange) From() Status { return c.from }
func (c StatusChange) To() Status   { return c.to }

// Transition validates from -> to against the table.
func Transition(from, to Status) (StatusChange, error) {
	for _, next := range transitions[from] {
		if next == to {
			return StatusChange{from: from, to: to}, nil
		}
	}
	return StatusChange{}, &IllegalTransitionError{From: from, To: to}
}
