package enums

// NotificationKind identifies what happened for the delivery collaborator.
type NotificationKind string

const (
	NotificationOrderCreated          NotificationKind = "order_created"
	NotificationBoosterAssigned       NotificationKind = "booster_assigned"
	NotificationOrderPaused           NotificationKind = "order_paused"
	NotificationInvalidCredentials    NotificationKind = "invalid_credentials"
	NotificationRequired2FACode       NotificationKind = "required_2fa_code"
	NotificationOrderReadyForApproval NotificationKind = "order_ready_for_approval"
)

var validNotificationKinds = set[NotificationKind]{
	NotificationOrderCreated,
	NotificationBoosterAssigned,
	NotificationOrderPaused,
	NotificationInvalidCredentials,
	NotificationRequired2FACode,
	NotificationOrderReadyForApproval,
}

// IsValid checks whether the given kind matches the canonical enum.
func (n NotificationKind) IsValid() bool {
	return validNotificationKinds.has(n)
}

// ExecutorFacing reports whether executor subscribers receive the kind too.
func (n NotificationKind) ExecutorFacing() bool {
	return n == NotificationOrderCreated || n == NotificationBoosterAssigned
}

// ParseNotificationKind converts raw strings into NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	return validNotificationKinds.parse(value, "notification kind")
}

// RecipientType distinguishes client inboxes from executor subscribers.
type RecipientType string

const (
	RecipientClient   RecipientType = "client"
	RecipientExecutor RecipientType = "executor"
)

// NotificationAudience narrows who receives a notification request. The
// zero value means the client plus, for executor-facing kinds, the executors.
type NotificationAudience string

const (
	AudienceDefault   NotificationAudience = ""
	AudienceClient    NotificationAudience = "client"
	AudienceExecutors NotificationAudience = "executors"
)

// IncludesClient reports whether the client inbox receives the notification.
func (a NotificationAudience) IncludesClient() bool {
	return a != AudienceExecutors
}

// IncludesExecutors reports whether executor subscribers receive kind k.
func (a NotificationAudience) IncludesExecutors(k NotificationKind) bool {
	return a != AudienceClient && k.ExecutorFacing()
}
