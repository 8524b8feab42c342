package domain

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailure PaymentStatus = "failure"
)

type Payment struct {
	ID      string        `json:"id"`
	OrderID string        `json:"order_id"`
	Status  PaymentStatus `json:"status"`
	Type    string        `json:"type,omitempty"`
}

// PaymentStatusFromGateway maps the status query parameter carried by the
// gateway redirect onto the client vocabulary. Unknown values stay pending.
func PaymentStatusFromGateway(s string) PaymentStatus {
	switch s {
	case "approved", "success":
		return PaymentStatusSuccess
	case "rejected", "failure":
		return PaymentStatusFailure
	default:
		return PaymentStatusPending
	}
}
