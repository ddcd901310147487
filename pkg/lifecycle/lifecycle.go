// Package lifecycle implements the state machine governing QR code records
// and their bound installations. It is storage-free: callers consult the
// table, then persist both sides of a transition in one transaction.
package lifecycle

import "fmt"

// QR code record statuses.
const (
	StatusGenerated      = "generated"
	StatusPrinted        = "printed"
	StatusVerified       = "verified"
	StatusInstalled      = "installed"
	StatusInService      = "in_service"
	StatusMaintenanceDue = "maintenance_due"
	StatusReplaced       = "replaced"
	StatusRetired        = "retired"
	StatusRejected       = "rejected"
	StatusNeedsReprint   = "needs_reprint"
)

// TransitionError names the exact illegal edge that was requested.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}

// transitions is the full legality table. A status missing from the map is
// terminal. needs_reprint -> printed is the only recovery edge out of a
// failed print; rejected stays terminal.
var transitions = map[string][]string{
	StatusGenerated:      {StatusPrinted, StatusRejected, StatusNeedsReprint},
	StatusPrinted:        {StatusVerified, StatusRejected, StatusNeedsReprint},
	StatusVerified:       {StatusInstalled, StatusRejected},
	StatusInstalled:      {StatusInService, StatusMaintenanceDue, StatusReplaced, StatusRetired},
	StatusInService:      {StatusMaintenanceDue, StatusReplaced, StatusRetired},
	StatusMaintenanceDue: {StatusInService, StatusReplaced, StatusRetired},
	StatusReplaced:       {StatusRetired},
	StatusNeedsReprint:   {StatusPrinted},
}

// Check returns nil when from -> to is a legal edge, and a *TransitionError
// identifying the edge otherwise.
func Check(from, to string) error {
	if !Known(to) {
		return &TransitionError{From: from, To: to}
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return &TransitionError{From: from, To: to}
}

// Known reports whether s is a recognised status.
func Known(s string) bool {
	switch s {
	case StatusGenerated, StatusPrinted, StatusVerified, StatusInstalled,
		StatusInService, StatusMaintenanceDue, StatusReplaced,
		StatusRetired, StatusRejected, StatusNeedsReprint:
		return true
	}
	return false
}

// Terminal reports whether s accepts no further transitions.
func Terminal(s string) bool {
	return Known(s) && len(transitions[s]) == 0
}

// Operational reports whether s is valid for a bound installation. The
// installation and its QR record carry the same status from installation
// onward.
func Operational(s string) bool {
	switch s {
	case StatusInstalled, StatusInService, StatusMaintenanceDue,
		StatusReplaced, StatusRetired:
		return true
	}
	return false
}
