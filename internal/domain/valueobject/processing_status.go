package valueobject

import "fmt"

// ProcessingStatus is an immutable value object describing where a
// transaction stands after scoring. Its string form doubles as the decision
// label sealed into ledger blocks.
type ProcessingStatus struct {
	value string
}

var (
	StatusPending     = ProcessingStatus{value: "PENDING"}
	StatusApproved    = ProcessingStatus{value: "APPROVED"}
	StatusDeclined    = ProcessingStatus{value: "DECLINED"}
	StatusUnderReview = ProcessingStatus{value: "UNDER_REVIEW"}
)

// ProcessingStatusFromString reconstructs a status from its string representation.
func ProcessingStatusFromString(s string) (ProcessingStatus, error) {
	switch s {
	case "PENDING":
		return StatusPending, nil
	case "APPROVED":
		return StatusApproved, nil
	case "DECLINED":
		return StatusDeclined, nil
	case "UNDER_REVIEW":
		return StatusUnderReview, nil
	default:
		return ProcessingStatus{}, fmt.Errorf("invalid processing status: %s", s)
	}
}

// StatusFromOutcome maps a scoring outcome to the status it leads to.
func StatusFromOutcome(fraudulent bool) ProcessingStatus {
	if fraudulent {
		return StatusUnderReview
	}
	return StatusApproved
}

// String returns the string representation.
func (s ProcessingStatus) String() string {
	return s.value
}

// IsZero returns true if the status has not been set.
func (s ProcessingStatus) IsZero() bool {
	return s.value == ""
}

// Equal checks equality with another ProcessingStatus.
func (s ProcessingStatus) Equal(other ProcessingStatus) bool {
	return s.value == other.value
}

// IsPending returns true if the transaction has not been scored yet.
func (s ProcessingStatus) IsPending() bool {
	return s.value == "PENDING"
}

// IsUnderReview returns true if the transaction was flagged for review.
func (s ProcessingStatus) IsUnderReview() bool {
	return s.value == "UNDER_REVIEW"
}
