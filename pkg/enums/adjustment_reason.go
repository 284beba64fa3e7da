package enums

import "fmt"

// AdjustmentReason explains an inventory history entry.
type AdjustmentReason string

const (
	AdjustmentReasonDonation         AdjustmentReason = "donation"
	AdjustmentReasonRequestCompleted AdjustmentReason = "request_completed"
	AdjustmentReasonManualCorrection AdjustmentReason = "manual_correction"
	AdjustmentReasonExpired          AdjustmentReason = "expired"
)

var validAdjustmentReasons = []AdjustmentReason{
	AdjustmentReasonDonation,
	AdjustmentReasonRequestCompleted,
	AdjustmentReasonManualCorrection,
	AdjustmentReasonExpired,
}

// String implements fmt.Stringer.
func (r AdjustmentReason) String() string {
	return string(r)
}

// IsValid reports whether the value is a known AdjustmentReason.
func (r AdjustmentReason) IsValid() bool {
	for _, candidate := range validAdjustmentReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsManual reports whether staff may submit the reason directly.
func (r AdjustmentReason) IsManual() bool {
	return r == AdjustmentReasonManualCorrection || r == AdjustmentReasonExpired
}

// AllowsDelta reports whether the reason can carry a change of that sign.
// Stock only grows through donations; every other reason removes units.
func (r AdjustmentReason) AllowsDelta(delta int) bool {
	if r == AdjustmentReasonDonation {
		return delta > 0
	}
	return delta < 0
}

// ParseAdjustmentReason converts raw input into an AdjustmentReason.
func ParseAdjustmentReason(value string) (AdjustmentReason, error) {
	for _, candidate := range validAdjustmentReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid adjustment reason %q", value)
}
