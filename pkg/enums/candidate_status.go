package enums

import "fmt"

// CandidateStatus tracks a detected subscription's review state. Detection only
// ever writes CandidateStatusCandidate; the other states are set elsewhere.
type CandidateStatus string

const (
	CandidateStatusCandidate CandidateStatus = "candidate"
	CandidateStatusConfirmed CandidateStatus = "confirmed"
	CandidateStatusRejected  CandidateStatus = "rejected"
)

var validCandidateStatuses = []CandidateStatus{
	CandidateStatusCandidate,
	CandidateStatusConfirmed,
	CandidateStatusRejected,
}

// String implements fmt.Stringer.
func (s CandidateStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s CandidateStatus) IsValid() bool {
	for _, candidate := range validCandidateStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCandidateStatus converts raw input into a CandidateStatus.
func ParseCandidateStatus(value string) (CandidateStatus, error) {
	for _, candidate := range validCandidateStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid candidate status %q", value)
}
