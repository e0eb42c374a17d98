package valueobject

import "strings"

// ActionType names the remediation a policy performs when it fires.
// Unknown values are representable so that stored policies with a
// mistyped action still load; IsKnown tells them apart.
type ActionType struct {
	value string
}

var (
	ActionBlockAccount       = ActionType{value: "BLOCK_ACCOUNT"}
	ActionFreezeFunds        = ActionType{value: "FREEZE_FUNDS"}
	ActionAlertAdmin         = ActionType{value: "ALERT_ADMIN"}
	ActionRequire2FA         = ActionType{value: "REQUIRE_2FA"}
	ActionDeclineTransaction = ActionType{value: "DECLINE_TRANSACTION"}
)

// NewActionType normalizes s into an ActionType.
func NewActionType(s string) ActionType {
	return ActionType{value: strings.ToUpper(strings.TrimSpace(s))}
}

// String returns the string representation.
func (a ActionType) String() string {
	return a.value
}

// IsKnown reports whether the executor has a dispatch branch for a.
func (a ActionType) IsKnown() bool {
	switch a {
	case ActionBlockAccount, ActionFreezeFunds, ActionAlertAdmin, ActionRequire2FA, ActionDeclineTransaction:
		return true
	default:
		return false
	}
}

// IsZero returns true if the action type has not been set.
func (a ActionType) IsZero() bool {
	return a.value == ""
}

// Equal checks equality with another ActionType.
func (a ActionType) Equal(other ActionType) bool {
	return a.value == other.value
}
