package valueobject

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// AlertSeverity grades a fraud alert.
type AlertSeverity struct {
	value string
}

var (
	SeverityLow      = AlertSeverity{value: "LOW"}
	SeverityMedium   = AlertSeverity{value: "MEDIUM"}
	SeverityHigh     = AlertSeverity{value: "HIGH"}
	SeverityCritical = AlertSeverity{value: "CRITICAL"}
)

var (
	severityCriticalFloor = decimal.RequireFromString("0.8")
	severityHighFloor     = decimal.RequireFromString("0.6")
	severityMediumFloor   = decimal.RequireFromString("0.4")
)

// SeverityFromConfidence bands an aggregate confidence score.
func SeverityFromConfidence(confidence decimal.Decimal) AlertSeverity {
	switch {
	case confidence.GreaterThanOrEqual(severityCriticalFloor):
		return SeverityCritical
	case confidence.GreaterThanOrEqual(severityHighFloor):
		return SeverityHigh
	case confidence.GreaterThanOrEqual(severityMediumFloor):
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// AlertSeverityFromString reconstructs a severity from its string representation.
func AlertSeverityFromString(s string) (AlertSeverity, error) {
	switch s {
	case "LOW":
		return SeverityLow, nil
	case "MEDIUM":
		return SeverityMedium, nil
	case "HIGH":
		return SeverityHigh, nil
	case "CRITICAL":
		return SeverityCritical, nil
	default:
		return AlertSeverity{}, fmt.Errorf("invalid alert severity: %s", s)
	}
}

func (s AlertSeverity) String() string { return s.value }

func (s AlertSeverity) IsZero() bool { return s.value == "" }

func (s AlertSeverity) Equal(other AlertSeverity) bool { return s.value == other.value }

// AlertStatus tracks an alert through investigation.
type AlertStatus struct {
	value string
}

var (
	AlertOpen          = AlertStatus{value: "OPEN"}
	AlertInvestigating = AlertStatus{value: "INVESTIGATING"}
	AlertResolved      = AlertStatus{value: "RESOLVED"}
	AlertFalsePositive = AlertStatus{value: "FALSE_POSITIVE"}
)

// AlertStatusFromString reconstructs a status from its string representation.
func AlertStatusFromString(s string) (AlertStatus, error) {
	switch s {
	case "OPEN":
		return AlertOpen, nil
	case "INVESTIGATING":
		return AlertInvestigating, nil
	case "RESOLVED":
		return AlertResolved, nil
	case "FALSE_POSITIVE":
		return AlertFalsePositive, nil
	default:
		return AlertStatus{}, fmt.Errorf("invalid alert status: %s", s)
	}
}

func (s AlertStatus) String() string { return s.value }

func (s AlertStatus) Equal(other AlertStatus) bool { return s.value == other.value }

// IsClosed reports whether no further investigation is expected.
func (s AlertStatus) IsClosed() bool {
	return s == AlertResolved || s == AlertFalsePositive
}
