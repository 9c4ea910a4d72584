package behaviourprofile

import (
	"fmt"
	"time"
)

// MaxWindow is the longest capture window a profile may span.
const MaxWindow = 24 * time.Hour

// ValidateWindow enforces the profile window invariant: end strictly
// after start, and no wider than MaxWindow. Applied at creation time —
// a profile already in storage is never re-validated.
func ValidateWindow(start, end time.Time) error {
	if !end.After(start) {
		return fmt.Errorf("behaviourprofile: window end (%s) must be after start (%s)", end, start)
	}
	if end.Sub(start) > MaxWindow {
		return fmt.Errorf("behaviourprofile: window %s exceeds the %s maximum", end.Sub(start), MaxWindow)
	}
	return nil
}
