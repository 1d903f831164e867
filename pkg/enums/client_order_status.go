package enums

// ClientOrderStatus tracks the order-level lifecycle of a client checkout.
type ClientOrderStatus string

const (
	ClientOrderStatusAwaitPayment    ClientOrderStatus = "AWAIT_PAYMENT"
	ClientOrderStatusPayed           ClientOrderStatus = "PAYED"
	ClientOrderStatusPendingApproval ClientOrderStatus = "PENDING_APPROVAL"
	ClientOrderStatusComplete        ClientOrderStatus = "COMPLETE"
)

var validClientOrderStatuses = set[ClientOrderStatus]{
	ClientOrderStatusAwaitPayment,
	ClientOrderStatusPayed,
	ClientOrderStatusPendingApproval,
	ClientOrderStatusComplete,
}

func (s ClientOrderStatus) String() string {
	return string(s)
}

func (s ClientOrderStatus) IsValid() bool {
	return validClientOrderStatuses.has(s)
}

func ParseClientOrderStatus(value string) (ClientOrderStatus, error) {
	return validClientOrderStatuses.parse(value, "client order status")
}
