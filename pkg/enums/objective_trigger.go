package enums

// ObjectiveTrigger names an event that moves an objective through its lifecycle.
type ObjectiveTrigger string

const (
	TriggerProcessing         ObjectiveTrigger = "processing"
	TriggerBoosterAssigned    ObjectiveTrigger = "booster_assigned"
	TriggerBoosterAccepted    ObjectiveTrigger = "booster_accepted"
	TriggerTryingToSignIn     ObjectiveTrigger = "trying_to_sign_in"
	TriggerRequired2FACode    ObjectiveTrigger = "required_2fa_code"
	TriggerInvalidCredentials ObjectiveTrigger = "invalid_credentials"
	TriggerInProgress         ObjectiveTrigger = "in_progress"
	TriggerPauseBooster       ObjectiveTrigger = "pause_booster"
	TriggerPendingApproval    ObjectiveTrigger = "pending_approval"
	TriggerCompleted          ObjectiveTrigger = "completed"
)

var validObjectiveTriggers = set[ObjectiveTrigger]{
	TriggerProcessing,
	TriggerBoosterAssigned,
	TriggerBoosterAccepted,
	TriggerTryingToSignIn,
	TriggerRequired2FACode,
	TriggerInvalidCredentials,
	TriggerInProgress,
	TriggerPauseBooster,
	TriggerPendingApproval,
	TriggerCompleted,
}

func (t ObjectiveTrigger) String() string {
	return string(t)
}

func (t ObjectiveTrigger) IsValid() bool {
	return validObjectiveTriggers.has(t)
}

// ParseObjectiveTrigger converts raw input into an ObjectiveTrigger.
func ParseObjectiveTrigger(value string) (ObjectiveTrigger, error) {
	return validObjectiveTriggers.parse(value, "objective trigger")
}
