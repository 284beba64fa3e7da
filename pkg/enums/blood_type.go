package enums

import (
	"fmt"
	"strings"
)

// BloodType is one of the eight ABO/Rh groups.
type BloodType string

const (
	BloodTypeAPos  BloodType = "A+"
	BloodTypeANeg  BloodType = "A-"
	BloodTypeBPos  BloodType = "B+"
	BloodTypeBNeg  BloodType = "B-"
	BloodTypeABPos BloodType = "AB+"
	BloodTypeABNeg BloodType = "AB-"
	BloodTypeOPos  BloodType = "O+"
	BloodTypeONeg  BloodType = "O-"
)

var validBloodTypes = []BloodType{
	BloodTypeAPos,
	BloodTypeANeg,
	BloodTypeBPos,
	BloodTypeBNeg,
	BloodTypeABPos,
	BloodTypeABNeg,
	BloodTypeOPos,
	BloodTypeONeg,
}

// donorsFor lists, per recipient type, the donor types it can receive red cells from.
var donorsFor = map[BloodType][]BloodType{
	BloodTypeONeg:  {BloodTypeONeg},
	BloodTypeOPos:  {BloodTypeOPos, BloodTypeONeg},
	BloodTypeANeg:  {BloodTypeANeg, BloodTypeONeg},
	BloodTypeAPos:  {BloodTypeAPos, BloodTypeANeg, BloodTypeOPos, BloodTypeONeg},
	BloodTypeBNeg:  {BloodTypeBNeg, BloodTypeONeg},
	BloodTypeBPos:  {BloodTypeBPos, BloodTypeBNeg, BloodTypeOPos, BloodTypeONeg},
	BloodTypeABNeg: {BloodTypeABNeg, BloodTypeANeg, BloodTypeBNeg, BloodTypeONeg},
	BloodTypeABPos: validBloodTypes,
}

// AllBloodTypes returns the canonical ordering used by dashboards.
func AllBloodTypes() []BloodType {
	out := make([]BloodType, len(validBloodTypes))
	copy(out, validBloodTypes)
	return out
}

// String implements fmt.Stringer.
func (b BloodType) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BloodType.
func (b BloodType) IsValid() bool {
	for _, candidate := range validBloodTypes {
		if candidate == b {
			return true
		}
	}
	return false
}

// CompatibleDonors returns the donor types whose blood the receiver can accept.
func (b BloodType) CompatibleDonors() []BloodType {
	donors := donorsFor[b]
	out := make([]BloodType, len(donors))
	copy(out, donors)
	return out
}

// CanDonateTo reports whether a donor of type b can give to recipient.
func (b BloodType) CanDonateTo(recipient BloodType) bool {
	for _, donor := range donorsFor[recipient] {
		if donor == b {
			return true
		}
	}
	return false
}

// Recipients returns every type a donor of type b can give to.
func (b BloodType) Recipients() []BloodType {
	out := []BloodType{}
	for _, recipient := range validBloodTypes {
		if b.CanDonateTo(recipient) {
			out = append(out, recipient)
		}
	}
	return out
}

// ParseBloodType converts raw input into a BloodType. Case and surrounding
// whitespace are ignored, and "pos"/"neg" suffixes are accepted so the value
// can travel in URL paths.
func ParseBloodType(value string) (BloodType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	switch {
	case strings.HasSuffix(normalized, "POS"):
		normalized = strings.TrimSuffix(normalized, "POS") + "+"
	case strings.HasSuffix(normalized, "NEG"):
		normalized = strings.TrimSuffix(normalized, "NEG") + "-"
	}
	for _, candidate := range validBloodTypes {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid blood type %q", value)
}
