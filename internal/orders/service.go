package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/littlelight-store/backend/internal/notifications"
	"github.com/littlelight-store/backend/pkg/config"
	"github.com/littlelight-store/backend/pkg/db/models"
	"github.com/littlelight-store/backend/pkg/enums"
	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
	"github.com/littlelight-store/backend/pkg/logger"
	"github.com/littlelight-store/backend/pkg/metrics"
	"github.com/littlelight-store/backend/pkg/outbox"
	"github.com/littlelight-store/backend/pkg/outbox/payloads"
	"github.com/littlelight-store/backend/pkg/pagination"
)

const autoAcceptBatchSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type notifier interface {
	Schedule(ctx context.Context, req notifications.Request)
}

type credentialExpirer interface {
	ExpireCredentials(ctx context.Context, tx *gorm.DB, clientID uuid.UUID, platform enums.Platform) (bool, error)
}

// Actor is the caller of a mutating operation. ID is the client id for
// clients, the booster id for boosters and the user id for admins.
type Actor struct {
	Role enums.ActorRole
	ID   uuid.UUID
}

// DispatchInput carries an external action on one objective.
type DispatchInput struct {
	Action      enums.ObjectiveAction
	ObjectiveID uuid.UUID
	Actor       Actor
}

// ObjectiveList wraps a page of objectives plus the next cursor.
type ObjectiveList struct {
	Objectives []models.ClientOrderObjective `json:"objectives"`
	NextCursor string                        `json:"next_cursor,omitempty"`
}

// Service drives client orders and the objective lifecycle.
type Service interface {
	ProcessPaymentCallback(ctx context.Context, cartID uuid.UUID) (*models.ClientOrder, error)
	Dispatch(ctx context.Context, input DispatchInput) (*models.ClientOrderObjective, error)
	Transition(ctx context.Context, objectiveID uuid.UUID, trigger enums.ObjectiveTrigger) (*models.ClientOrderObjective, error)
	Claim(ctx context.Context, objectiveID, boosterID uuid.UUID) (*models.ClientOrderObjective, error)
	HandlePendingApproval(ctx context.Context, objectiveID uuid.UUID) error
	HandleInvalidCredentials(ctx context.Context, objectiveID uuid.UUID) error
	AutoAcceptPendingApproval(ctx context.Context, now time.Time) (int, error)
	ListClientObjectives(ctx context.Context, clientID uuid.UUID, params pagination.Params) (*ObjectiveList, error)
	ListBoosterObjectives(ctx context.Context, boosterID uuid.UUID, params pagination.Params) (*ObjectiveList, error)
	ListAvailableObjectives(ctx context.Context, params pagination.Params) (*ObjectiveList, error)
}

// ServiceParams bundles the dependencies required to build an orders service.
type ServiceParams struct {
	Repo        Repository
	Tx          txRunner
	Outbox      outboxPublisher
	Notifier    notifier
	Credentials credentialExpirer
	Metrics     *metrics.ObjectiveMetrics
	Config      config.OrdersConfig
	Logger      *logger.Logger
}

type service struct {
	repo            Repository
	tx              txRunner
	outbox          outboxPublisher
	notifier        notifier
	credentials     credentialExpirer
	metrics         *metrics.ObjectiveMetrics
	autoAcceptAfter time.Duration
	logg            *logger.Logger
	now             func() time.Time
}

// change is a committed transition waiting for its after-commit effects.
type change struct {
	objective models.ClientOrderObjective
	from      enums.OrderObjectiveStatus
	trigger   enums.ObjectiveTrigger
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notification scheduler required")
	}
	if params.Credentials == nil {
		return nil, fmt.Errorf("credentials service required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	autoAcceptAfter := params.Config.AutoAcceptAfter
	if autoAcceptAfter <= 0 {
		autoAcceptAfter = 48 * time.Hour
	}
	return &service{
		repo:            params.Repo,
		tx:              params.Tx,
		outbox:          params.Outbox,
		notifier:        params.Notifier,
		credentials:     params.Credentials,
		metrics:         params.Metrics,
		autoAcceptAfter: autoAcceptAfter,
		logg:            logg,
		now:             time.Now,
	}, nil
}

// ProcessPaymentCallback flips the order built from cartID to PAYED and
// moves every objective to PROCESSING. Repeated callbacks are no-ops.
func (s *service) ProcessPaymentCallback(ctx context.Context, cartID uuid.UUID) (*models.ClientOrder, error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id required")
	}

	var (
		order   *models.ClientOrder
		changes []change
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = repo.LockOrderByCartID(ctx, cartID)
		if err != nil {
			return err
		}
		if order.Status != enums.ClientOrderStatusAwaitPayment {
			return nil
		}

		now := s.now().UTC()
		if err := repo.UpdateOrderStatus(ctx, order.ID, enums.ClientOrderStatusPayed, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		order.Status = enums.ClientOrderStatusPayed
		order.StatusChangedAt = now

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateClientOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderPaidEvent{
				OrderID:  order.ID,
				CartID:   order.CartID,
				ClientID: order.ClientID,
			},
		}); err != nil {
			return err
		}

		objectives, err := repo.ListObjectivesByOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load objectives")
		}
		for _, objective := range objectives {
			c, err := s.transitionTx(ctx, tx, objective.ID, enums.TriggerProcessing, nil)
			if err != nil {
				return err
			}
			changes = append(changes, *c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, c := range changes {
		s.afterTransition(ctx, c)
	}
	logCtx := s.logg.WithFields(s.logg.WithField(ctx, logger.KeyOrderID, order.ID), map[string]any{
		"cart_id": cartID.String(),
		"status":  order.Status,
	})
	s.logg.Info(logCtx, "payment callback processed")
	return order, nil
}

// Dispatch maps a client or booster action to its trigger and fires it on
// an objective the actor owns.
func (s *service) Dispatch(ctx context.Context, input DispatchInput) (*models.ClientOrderObjective, error) {
	if input.ObjectiveID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "objective id required")
	}
	if input.Actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}
	trigger, err := TriggerForAction(input.Action)
	if err != nil {
		return nil, err
	}

	switch input.Actor.Role {
	case enums.ActorRoleClient:
		if !input.Action.IsClientAction() {
			return nil, pkgerrors.Newf(pkgerrors.CodeForbidden, "clients cannot %s", input.Action)
		}
	case enums.ActorRoleBooster:
		if input.Action.IsClientAction() {
			return nil, pkgerrors.Newf(pkgerrors.CodeForbidden, "boosters cannot %s", input.Action)
		}
	case enums.ActorRoleAdmin:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown actor role")
	}

	if input.Action == enums.ActionAcceptOrder {
		if input.Actor.Role != enums.ActorRoleBooster {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only boosters can accept objectives")
		}
		return s.Claim(ctx, input.ObjectiveID, input.Actor.ID)
	}
	return s.transition(ctx, input.ObjectiveID, trigger, &input.Actor)
}

// Transition fires trigger on behalf of the system.
func (s *service) Transition(ctx context.Context, objectiveID uuid.UUID, trigger enums.ObjectiveTrigger) (*models.ClientOrderObjective, error) {
	return s.transition(ctx, objectiveID, trigger, nil)
}

func (s *service) transition(ctx context.Context, objectiveID uuid.UUID, trigger enums.ObjectiveTrigger, actor *Actor) (*models.ClientOrderObjective, error) {
	var c *change
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		c, err = s.transitionTx(ctx, tx, objectiveID, trigger, actor)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterTransition(ctx, *c)
	return &c.objective, nil
}

func (s *service) transitionTx(ctx context.Context, tx *gorm.DB, objectiveID uuid.UUID, trigger enums.ObjectiveTrigger, actor *Actor) (*change, error) {
	repo := s.repo.WithTx(tx)
	objective, err := repo.LockObjective(ctx, objectiveID)
	if err != nil {
		return nil, err
	}
	if actor != nil {
		if err := authorize(objective, *actor); err != nil {
			return nil, err
		}
	}

	from := objective.Status
	next, err := NextStatus(from, trigger)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if err := repo.UpdateObjectiveStatus(ctx, objective.ID, next, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update objective status")
	}
	objective.Status = next
	objective.StatusChangedAt = now

	if err := s.emitStatusChanged(ctx, tx, *objective, from, trigger, actor); err != nil {
		return nil, err
	}

	if trigger == enums.TriggerCompleted {
		if err := s.completeOrderIfDone(ctx, repo, objective.OrderID, now); err != nil {
			return nil, err
		}
	}
	return &change{objective: *objective, from: from, trigger: trigger}, nil
}

func (s *service) completeOrderIfDone(ctx context.Context, repo Repository, orderID uuid.UUID, now time.Time) error {
	siblings, err := repo.ListObjectivesByOrder(ctx, orderID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sibling objectives")
	}
	for _, sibling := range siblings {
		if sibling.Status != enums.ObjectiveStatusCompleted {
			return nil
		}
	}
	order, err := repo.LockOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.Status == enums.ClientOrderStatusComplete {
		return nil
	}
	if err := repo.UpdateOrderStatus(ctx, orderID, enums.ClientOrderStatusComplete, now); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete order")
	}
	return nil
}

func (s *service) emitStatusChanged(ctx context.Context, tx *gorm.DB, objective models.ClientOrderObjective, from enums.OrderObjectiveStatus, trigger enums.ObjectiveTrigger, actor *Actor) error {
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventObjectiveStatusChanged,
		AggregateType: enums.AggregateOrderObjective,
		AggregateID:   objective.ID,
		Actor:         buildActor(actor),
		Data: payloads.ObjectiveStatusChangedEvent{
			ObjectiveID: objective.ID,
			OrderID:     objective.OrderID,
			ClientID:    objective.ClientID,
			BoosterID:   objective.BoosterID,
			Trigger:     trigger,
			From:        from,
			To:          objective.Status,
		},
	})
}

// afterTransition runs once the transition has committed. Failures here are
// logged and never undo the transition.
func (s *service) afterTransition(ctx context.Context, c change) {
	s.metrics.IncTransition(c.trigger.String(), c.objective.Status.String())

	logCtx := s.logg.WithFields(s.logg.WithField(ctx, logger.KeyObjectiveID, c.objective.ID), map[string]any{
		"trigger": c.trigger,
		"from":    c.from,
		"to":      c.objective.Status,
	})
	s.logg.Info(logCtx, "objective transitioned")

	switch c.trigger {
	case enums.TriggerRequired2FACode:
		s.notifier.Schedule(ctx, objectiveRequest(enums.NotificationRequired2FACode, c.objective))
	case enums.TriggerPauseBooster:
		s.notifier.Schedule(ctx, objectiveRequest(enums.NotificationOrderPaused, c.objective))
	case enums.TriggerInvalidCredentials:
		if err := s.HandleInvalidCredentials(ctx, c.objective.ID); err != nil {
			s.logg.Error(logCtx, "failed to handle invalid credentials", err)
		}
	}
}

// objectiveNotice is the data attached to objective-level notifications.
type objectiveNotice struct {
	ServiceSlug string                     `json:"service_slug"`
	Status      enums.OrderObjectiveStatus `json:"status"`
}

func objectiveRequest(kind enums.NotificationKind, objective models.ClientOrderObjective) notifications.Request {
	orderID := objective.OrderID
	objectiveID := objective.ID
	return notifications.Request{
		Kind:        kind,
		ClientID:    objective.ClientID,
		OrderID:     &orderID,
		ObjectiveID: &objectiveID,
		BoosterID:   objective.BoosterID,
		Data: objectiveNotice{
			ServiceSlug: objective.ServiceSlug,
			Status:      objective.Status,
		},
	}
}

// Claim assigns the booster to an unassigned objective and fires
// booster_accepted. Exactly one concurrent claimer wins.
func (s *service) Claim(ctx context.Context, objectiveID, boosterID uuid.UUID) (*models.ClientOrderObjective, error) {
	if objectiveID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "objective id required")
	}
	if boosterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booster id required")
	}

	var c *change
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		objective, err := repo.FindObjective(ctx, objectiveID)
		if err != nil {
			return err
		}
		if objective.BoosterID != nil {
			return ErrOrderIsAlreadyAccepted(objectiveID)
		}
		from := objective.Status
		next, err := NextStatus(from, enums.TriggerBoosterAccepted)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		claimed, err := repo.ClaimObjective(ctx, objectiveID, boosterID, next, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim objective")
		}
		if !claimed {
			return ErrOrderIsAlreadyAccepted(objectiveID)
		}
		objective.BoosterID = &boosterID
		objective.Status = next
		objective.StatusChangedAt = now

		actor := &Actor{Role: enums.ActorRoleBooster, ID: boosterID}
		if err := s.emitStatusChanged(ctx, tx, *objective, from, enums.TriggerBoosterAccepted, actor); err != nil {
			return err
		}
		c = &change{objective: *objective, from: from, trigger: enums.TriggerBoosterAccepted}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.afterTransition(ctx, *c)
	s.notifier.Schedule(ctx, objectiveRequest(enums.NotificationBoosterAssigned, c.objective))
	return &c.objective, nil
}

// HandlePendingApproval rescans every objective of the order. Once all of
// them are final the order moves to PENDING_APPROVAL and a single
// order_ready_for_approval event is emitted for it.
func (s *service) HandlePendingApproval(ctx context.Context, objectiveID uuid.UUID) error {
	objective, err := s.repo.FindObjective(ctx, objectiveID)
	if err != nil {
		return err
	}

	ready := false
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockOrder(ctx, objective.OrderID)
		if err != nil {
			return err
		}
		siblings, err := repo.ListObjectivesByOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sibling objectives")
		}
		for _, sibling := range siblings {
			if !sibling.Status.IsFinal() {
				return nil
			}
		}
		ready = true

		if order.Status != enums.ClientOrderStatusPendingApproval && order.Status != enums.ClientOrderStatusComplete {
			if err := repo.UpdateOrderStatus(ctx, order.ID, enums.ClientOrderStatusPendingApproval, s.now().UTC()); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
			}
		}

		orderID := order.ID
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderReadyForApproval,
			AggregateType: enums.AggregateClientOrder,
			AggregateID:   order.ID,
			Data: payloads.NotificationRequestedEvent{
				Kind:     enums.NotificationOrderReadyForApproval,
				Audience: enums.AudienceClient,
				ClientID: order.ClientID,
				OrderID:  &orderID,
			},
		})
	})
	if err != nil {
		return err
	}

	logCtx := s.logg.WithFields(s.logg.WithField(ctx, logger.KeyOrderID, objective.OrderID), map[string]any{
		"objective_id": objectiveID.String(),
		"ready":        ready,
	})
	s.logg.Info(logCtx, "pending approval check completed")
	return nil
}

// HandleInvalidCredentials expires the client's credentials for the order
// platform and asks the client to provide new ones.
func (s *service) HandleInvalidCredentials(ctx context.Context, objectiveID uuid.UUID) error {
	objective, err := s.repo.FindObjective(ctx, objectiveID)
	if err != nil {
		return err
	}
	order, err := s.repo.FindOrderWithObjectives(ctx, objective.OrderID)
	if err != nil {
		return err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.credentials.ExpireCredentials(ctx, tx, order.ClientID, order.Platform)
		return err
	})
	if err != nil {
		return err
	}

	s.notifier.Schedule(ctx, objectiveRequest(enums.NotificationInvalidCredentials, *objective))
	return nil
}

// AutoAcceptPendingApproval completes objectives the client left in
// PENDING_APPROVAL for longer than the configured window.
func (s *service) AutoAcceptPendingApproval(ctx context.Context, now time.Time) (int, error) {
	cutoff := now.Add(-s.autoAcceptAfter)
	objectives, err := s.repo.ListPendingApprovalBefore(ctx, cutoff, autoAcceptBatchSize)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending approval objectives")
	}

	var (
		accepted int
		errs     error
	)
	for _, objective := range objectives {
		if _, err := s.transition(ctx, objective.ID, enums.TriggerCompleted, nil); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("auto accept objective %s: %w", objective.ID, err))
			continue
		}
		accepted++
	}
	return accepted, errs
}

func (s *service) ListClientObjectives(ctx context.Context, clientID uuid.UUID, params pagination.Params) (*ObjectiveList, error) {
	if clientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "client id required")
	}
	return s.listObjectives(ctx, ObjectiveFilter{ClientID: &clientID}, params)
}

func (s *service) ListBoosterObjectives(ctx context.Context, boosterID uuid.UUID, params pagination.Params) (*ObjectiveList, error) {
	if boosterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booster id required")
	}
	return s.listObjectives(ctx, ObjectiveFilter{BoosterID: &boosterID}, params)
}

func (s *service) ListAvailableObjectives(ctx context.Context, params pagination.Params) (*ObjectiveList, error) {
	return s.listObjectives(ctx, ObjectiveFilter{Available: true}, params)
}

func (s *service) listObjectives(ctx context.Context, filter ObjectiveFilter, params pagination.Params) (*ObjectiveList, error) {
	if _, err := params.Decode(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	objectives, next, err := s.repo.ListObjectives(ctx, filter, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list objectives")
	}
	list := &ObjectiveList{Objectives: objectives}
	if next != nil {
		list.NextCursor = pagination.EncodeCursor(*next)
	}
	return list, nil
}

func authorize(objective *models.ClientOrderObjective, actor Actor) error {
	switch actor.Role {
	case enums.ActorRoleAdmin:
		return nil
	case enums.ActorRoleClient:
		if objective.ClientID == actor.ID {
			return nil
		}
	case enums.ActorRoleBooster:
		if objective.BoosterID != nil && *objective.BoosterID == actor.ID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "objective does not belong to actor")
}

func buildActor(actor *Actor) *outbox.ActorRef {
	if actor == nil {
		return nil
	}
	return &outbox.ActorRef{ActorID: actor.ID, Role: actor.Role}
}
