package orders

import (
	"github.com/google/uuid"

	"github.com/littlelight-store/backend/pkg/enums"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
)

func ErrClientOrderNotExists() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "client order does not exist")
}

func ErrOrderObjectiveNotExists(id uuid.UUID) error {
	return pkgerrors.Newf(pkgerrors.CodeNotFound, "order objective %s does not exist", id)
}

func ErrTransitionNotAllowed(from enums.OrderObjectiveStatus, trigger enums.ObjectiveTrigger) error {
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "trigger %s is not allowed from %s", trigger, from).
		WithDetails(map[string]any{"from": from, "trigger": trigger})
}

// ErrOrderIsAlreadyAccepted is returned to the booster that lost the race
// for an objective.
func ErrOrderIsAlreadyAccepted(id uuid.UUID) error {
	return pkgerrors.Newf(pkgerrors.CodeInProgress, "order objective %s is already accepted", id)
}
