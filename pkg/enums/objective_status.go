package enums

// OrderObjectiveStatus is the lifecycle state of a single order objective.
type OrderObjectiveStatus string

const (
	ObjectiveStatusCreated            OrderObjectiveStatus = "CREATED"
	ObjectiveStatusProcessing         OrderObjectiveStatus = "PROCESSING"
	ObjectiveStatusAwaitingBooster    OrderObjectiveStatus = "AWAITING_BOOSTER"
	ObjectiveStatusTryingToLogin      OrderObjectiveStatus = "TRYING_TO_LOGIN"
	ObjectiveStatusRequired2FACode    OrderObjectiveStatus = "REQUIRED_2FA_CODE"
	ObjectiveStatusInvalidCredentials OrderObjectiveStatus = "INVALID_CREDENTIALS"
	ObjectiveStatusInProgress         OrderObjectiveStatus = "IN_PROGRESS"
	ObjectiveStatusPausedBooster      OrderObjectiveStatus = "PAUSED_BOOSTER"
	ObjectiveStatusPausedCondition    OrderObjectiveStatus = "PAUSED_CONDITION"
	ObjectiveStatusPendingApproval    OrderObjectiveStatus = "PENDING_APPROVAL"
	ObjectiveStatusCompleted          OrderObjectiveStatus = "COMPLETED"

	// Reserved: no trigger leads here but persisted rows may carry them.
	ObjectiveStatusSetReview OrderObjectiveStatus = "SET_REVIEW"
	ObjectiveStatusDisrupted OrderObjectiveStatus = "DISRUPTED"
)

var validObjectiveStatuses = set[OrderObjectiveStatus]{
	ObjectiveStatusCreated,
	ObjectiveStatusProcessing,
	ObjectiveStatusAwaitingBooster,
	ObjectiveStatusTryingToLogin,
	ObjectiveStatusRequired2FACode,
	ObjectiveStatusInvalidCredentials,
	ObjectiveStatusInProgress,
	ObjectiveStatusPausedBooster,
	ObjectiveStatusPausedCondition,
	ObjectiveStatusPendingApproval,
	ObjectiveStatusSetReview,
	ObjectiveStatusDisrupted,
	ObjectiveStatusCompleted,
}

// String implements fmt.Stringer.
func (s OrderObjectiveStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderObjectiveStatus.
func (s OrderObjectiveStatus) IsValid() bool {
	return validObjectiveStatuses.has(s)
}

// IsFinal reports whether the objective counts as finished for the order
// aggregate: pending client approval or completed.
func (s OrderObjectiveStatus) IsFinal() bool {
	return s == ObjectiveStatusPendingApproval || s == ObjectiveStatusCompleted
}

// ParseOrderObjectiveStatus converts raw input into an OrderObjectiveStatus.
func ParseOrderObjectiveStatus(value string) (OrderObjectiveStatus, error) {
	return validObjectiveStatuses.parse(value, "order objective status")
}
