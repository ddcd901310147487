package lifecycle

import (
	"errors"
	"testing"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name  string
		from  string
		to    string
		legal bool
	}{
		{"generated to printed", StatusGenerated, StatusPrinted, true},
		{"generated to rejected", StatusGenerated, StatusRejected, true},
		{"generated to needs_reprint", StatusGenerated, StatusNeedsReprint, true},
		{"generated skips to verified", StatusGenerated, StatusVerified, false},
		{"generated skips to installed", StatusGenerated, StatusInstalled, false},

		{"printed to verified", StatusPrinted, StatusVerified, true},
		{"printed to needs_reprint", StatusPrinted, StatusNeedsReprint, true},
		{"printed skips to installed", StatusPrinted, StatusInstalled, false},

		{"verified to installed", StatusVerified, StatusInstalled, true},
		{"verified to rejected", StatusVerified, StatusRejected, true},
		{"verified back to printed", StatusVerified, StatusPrinted, false},

		{"installed to in_service", StatusInstalled, StatusInService, true},
		{"installed to maintenance_due", StatusInstalled, StatusMaintenanceDue, true},
		{"installed to retired", StatusInstalled, StatusRetired, true},
		{"installed back to verified", StatusInstalled, StatusVerified, false},

		{"in_service to maintenance_due", StatusInService, StatusMaintenanceDue, true},
		{"maintenance_due back to in_service", StatusMaintenanceDue, StatusInService, true},
		{"maintenance_due to replaced", StatusMaintenanceDue, StatusReplaced, true},

		{"replaced to retired", StatusReplaced, StatusRetired, true},
		{"replaced back to in_service", StatusReplaced, StatusInService, false},

		{"needs_reprint recovers to printed", StatusNeedsReprint, StatusPrinted, true},
		{"needs_reprint skips to verified", StatusNeedsReprint, StatusVerified, false},

		{"rejected is terminal", StatusRejected, StatusPrinted, false},
		{"retired is terminal", StatusRetired, StatusInService, false},

		{"self transition", StatusInService, StatusInService, false},
		{"unknown target", StatusGenerated, "lost", false},
		{"unknown source", "lost", StatusPrinted, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.from, tt.to)
			if tt.legal && err != nil {
				t.Errorf("Check(%s, %s) = %v, want legal", tt.from, tt.to, err)
			}
			if !tt.legal && err == nil {
				t.Errorf("Check(%s, %s) = nil, want illegal", tt.from, tt.to)
			}
		})
	}
}

func TestCheckErrorNamesEdge(t *testing.T) {
	err := Check(StatusRejected, StatusPrinted)
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("want *TransitionError, got %T", err)
	}
	if te.From != StatusRejected || te.To != StatusPrinted {
		t.Errorf("error edge = %s -> %s, want rejected -> printed", te.From, te.To)
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []string{StatusRejected, StatusRetired} {
		if !Terminal(s) {
			t.Errorf("Terminal(%s) = false, want true", s)
		}
	}
	for _, s := range []string{StatusGenerated, StatusPrinted, StatusVerified,
		StatusInstalled, StatusInService, StatusMaintenanceDue, StatusReplaced, StatusNeedsReprint} {
		if Terminal(s) {
			t.Errorf("Terminal(%s) = true, want false", s)
		}
	}
	if Terminal("bogus") {
		t.Error("unknown status reported terminal")
	}
}

func TestOperational(t *testing.T) {
	operational := map[string]bool{
		StatusInstalled: true, StatusInService: true, StatusMaintenanceDue: true,
		StatusReplaced: true, StatusRetired: true,
		StatusGenerated: false, StatusPrinted: false, StatusVerified: false,
		StatusRejected: false, StatusNeedsReprint: false,
	}
	for s, want := range operational {
		if got := Operational(s); got != want {
			t.Errorf("Operational(%s) = %v, want %v", s, got, want)
		}
	}
}
