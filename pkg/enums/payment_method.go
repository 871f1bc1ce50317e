package enums

// PaymentMethod selects the convenience fee rate.
type PaymentMethod string

const (
	PaymentMethodUPI        PaymentMethod = "upi"
	PaymentMethodCard       PaymentMethod = "card"
	PaymentMethodNetbanking PaymentMethod = "netbanking"
	PaymentMethodWallet     PaymentMethod = "wallet"
)

var allPaymentMethods = []PaymentMethod{PaymentMethodUPI, PaymentMethodCard, PaymentMethodNetbanking, PaymentMethodWallet}

func (p PaymentMethod) String() string { return string(p) }

func (p PaymentMethod) IsValid() bool { return oneOf(p, allPaymentMethods) }

// ParsePaymentMethod accepts the exact lowercase wire value.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	return parse(value, "payment method", allPaymentMethods)
}
