package enums

import "fmt"

// Cadence classifies the recurrence interval of a merchant's charges.
type Cadence string

const (
	CadenceMonthly   Cadence = "monthly"
	CadenceWeekly    Cadence = "weekly"
	CadenceQuarterly Cadence = "quarterly"
	CadenceUnknown   Cadence = "unknown"
)

var validCadences = []Cadence{
	CadenceMonthly,
	CadenceWeekly,
	CadenceQuarterly,
	CadenceUnknown,
}

// String implements fmt.Stringer.
func (c Cadence) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Cadence.
func (c Cadence) IsValid() bool {
	for _, candidate := range validCadences {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCadence converts raw input into a Cadence.
func ParseCadence(value string) (Cadence, error) {
	for _, candidate := range validCadences {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cadence %q", value)
}

// Cadences returns every known cadence in classification order.
func Cadences() []Cadence {
	out := make([]Cadence, len(validCadences))
	copy(out, validCadences)
	return out
}
