package enums

// ObjectiveAction is a client or booster command on an objective.
type ObjectiveAction string

const (
	ActionApproveOrder              ObjectiveAction = "approve_order"
	ActionAcceptOrder               ObjectiveAction = "accept_order"
	ActionBoosterSignedIn           ObjectiveAction = "booster_signed_in"
	ActionInProgress                ObjectiveAction = "in_progress"
	ActionBoosterInvalidCredentials ObjectiveAction = "booster_invalid_credentials"
	ActionBoosterRequired2FA        ObjectiveAction = "booster_required_2_fa"
	ActionBoosterOrderCompleted     ObjectiveAction = "booster_order_completed"
	ActionBoosterPaused             ObjectiveAction = "booster_paused"
)

var validObjectiveActions = set[ObjectiveAction]{
	ActionApproveOrder,
	ActionAcceptOrder,
	ActionBoosterSignedIn,
	ActionInProgress,
	ActionBoosterInvalidCredentials,
	ActionBoosterRequired2FA,
	ActionBoosterOrderCompleted,
	ActionBoosterPaused,
}

func (a ObjectiveAction) IsValid() bool {
	return validObjectiveActions.has(a)
}

// IsClientAction reports whether only the owning client may issue the action.
func (a ObjectiveAction) IsClientAction() bool {
	return a == ActionApproveOrder
}

func ParseObjectiveAction(value string) (ObjectiveAction, error) {
	return validObjectiveActions.parse(value, "objective action")
}
