// Package notify processes the payment gateway's asynchronous callbacks.
package notify

// Outcome classifies how a callback was handled.
type Outcome int

const (
	// OutcomeRejected means the signature did not verify; nothing was changed.
	OutcomeRejected Outcome = iota
	// OutcomeIgnored means the callback was authentic but required no change:
	// a non-success trade status, an unknown order, or an order already settled.
	OutcomeIgnored
	// OutcomeProcessed means a pending order was settled.
	OutcomeProcessed
)

// String returns the outcome name used in logs.
func (o Outcome) String() string {
	switch o {
	case OutcomeRejected:
		return "rejected"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeProcessed:
		return "processed"
	default:
		return "unknown"
	}
}

// Acknowledged reports whether the gateway should be told the callback succeeded.
func (o Outcome) Acknowledged() bool {
	return o == OutcomeIgnored || o == OutcomeProcessed
}
