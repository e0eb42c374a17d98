package valueobject

import "strings"

// PaymentMethod is an immutable value object naming how a transaction was paid.
type PaymentMethod struct {
	value string
}

var (
	PaymentCreditCard    = PaymentMethod{value: "CREDIT_CARD"}
	PaymentDebitCard     = PaymentMethod{value: "DEBIT_CARD"}
	PaymentBankTransfer  = PaymentMethod{value: "BANK_TRANSFER"}
	PaymentDigitalWallet = PaymentMethod{value: "DIGITAL_WALLET"}
	PaymentCash          = PaymentMethod{value: "CASH"}
	PaymentCheck         = PaymentMethod{value: "CHECK"}
)

var paymentMethods = map[string]PaymentMethod{
	"CREDIT_CARD":    PaymentCreditCard,
	"DEBIT_CARD":     PaymentDebitCard,
	"BANK_TRANSFER":  PaymentBankTransfer,
	"DIGITAL_WALLET": PaymentDigitalWallet,
	"CASH":           PaymentCash,
	"CHECK":          PaymentCheck,
}

// ParsePaymentMethod resolves a payment method case-insensitively.
// The boolean is false when the input names no known method.
func ParsePaymentMethod(s string) (PaymentMethod, bool) {
	pm, ok := paymentMethods[strings.ToUpper(strings.TrimSpace(s))]
	return pm, ok
}

// PaymentMethodOrDefault resolves s, falling back to CREDIT_CARD.
func PaymentMethodOrDefault(s string) PaymentMethod {
	if pm, ok := ParsePaymentMethod(s); ok {
		return pm
	}
	return PaymentCreditCard
}

// String returns the string representation.
func (p PaymentMethod) String() string {
	return p.value
}

// IsZero returns true if the method has not been set.
func (p PaymentMethod) IsZero() bool {
	return p.value == ""
}

// Equal checks equality with another PaymentMethod.
func (p PaymentMethod) Equal(other PaymentMethod) bool {
	return p.value == other.value
}
