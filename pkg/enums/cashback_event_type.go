package enums

// CashbackEventType labels an immutable cashback ledger entry.
type CashbackEventType string

const (
	CashbackRedeemed CashbackEventType = "cashback_redeemed"
	CashbackEarned   CashbackEventType = "cashback_earned"
)

var validCashbackEventTypes = set[CashbackEventType]{
	CashbackRedeemed,
	CashbackEarned,
}

func (c CashbackEventType) IsValid() bool {
	return validCashbackEventTypes.has(c)
}

func ParseCashbackEventType(value string) (CashbackEventType, error) {
	return validCashbackEventTypes.parse(value, "cashback event type")
}
