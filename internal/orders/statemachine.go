package orders

import (
	"github.com/littlelight-store/backend/pkg/enums"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
)

// destinations maps each trigger to the status it leads to. Triggers fire
// from any source status unless listed in guards.
var destinations = map[enums.ObjectiveTrigger]enums.OrderObjectiveStatus{
	enums.TriggerProcessing:         enums.ObjectiveStatusProcessing,
	enums.TriggerBoosterAssigned:    enums.ObjectiveStatusAwaitingBooster,
	enums.TriggerBoosterAccepted:    enums.ObjectiveStatusTryingToLogin,
	enums.TriggerTryingToSignIn:     enums.ObjectiveStatusTryingToLogin,
	enums.TriggerRequired2FACode:    enums.ObjectiveStatusRequired2FACode,
	enums.TriggerInvalidCredentials: enums.ObjectiveStatusInvalidCredentials,
	enums.TriggerInProgress:         enums.ObjectiveStatusInProgress,
	enums.TriggerPauseBooster:       enums.ObjectiveStatusPausedBooster,
	enums.TriggerPendingApproval:    enums.ObjectiveStatusPendingApproval,
	enums.TriggerCompleted:          enums.ObjectiveStatusCompleted,
}

var guards = map[enums.ObjectiveTrigger]enums.OrderObjectiveStatus{
	enums.TriggerCompleted: enums.ObjectiveStatusPendingApproval,
}

var actionTriggers = map[enums.ObjectiveAction]enums.ObjectiveTrigger{
	enums.ActionApproveOrder:              enums.TriggerCompleted,
	enums.ActionAcceptOrder:               enums.TriggerBoosterAccepted,
	enums.ActionBoosterSignedIn:           enums.TriggerInProgress,
	enums.ActionInProgress:                enums.TriggerInProgress,
	enums.ActionBoosterInvalidCredentials: enums.TriggerInvalidCredentials,
	enums.ActionBoosterRequired2FA:        enums.TriggerRequired2FACode,
	enums.ActionBoosterOrderCompleted:     enums.TriggerPendingApproval,
	enums.ActionBoosterPaused:             enums.TriggerPauseBooster,
}

// NextStatus resolves the destination of trigger fired from current.
func NextStatus(current enums.OrderObjectiveStatus, trigger enums.ObjectiveTrigger) (enums.OrderObjectiveStatus, error) {
	next, ok := destinations[trigger]
	if !ok {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "unknown trigger %q", trigger)
	}
	if source, guarded := guards[trigger]; guarded && current != source {
		return "", ErrTransitionNotAllowed(current, trigger)
	}
	return next, nil
}

// TriggerForAction maps an external client or booster action to its trigger.
func TriggerForAction(action enums.ObjectiveAction) (enums.ObjectiveTrigger, error) {
	trigger, ok := actionTriggers[action]
	if !ok {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation, "unknown objective action %q", action)
	}
	return trigger, nil
}
