package enums

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateClientOrder    OutboxAggregateType = "client_order"
	AggregateOrderObjective OutboxAggregateType = "order_objective"
	AggregateNotification   OutboxAggregateType = "notification"
)

var validAggregateTypes = set[OutboxAggregateType]{
	AggregateClientOrder,
	AggregateOrderObjective,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	return validAggregateTypes.has(a)
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return validAggregateTypes.parse(value, "aggregate type")
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated           OutboxEventType = "order_created"
	EventOrderPaid              OutboxEventType = "order_paid"
	EventObjectiveStatusChanged OutboxEventType = "objective_status_changed"
	EventNotificationRequested  OutboxEventType = "notification_requested"
	EventOrderReadyForApproval  OutboxEventType = "order_ready_for_approval"
)

var validOutboxEventTypes = set[OutboxEventType]{
	EventOrderCreated,
	EventOrderPaid,
	EventObjectiveStatusChanged,
	EventNotificationRequested,
	EventOrderReadyForApproval,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	return validOutboxEventTypes.has(e)
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return validOutboxEventTypes.parse(value, "event type")
}
