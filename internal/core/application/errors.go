package application

import "fmt"

// Transfer legs of a take operation, in execution order.
const (
	LegSource  = "source"
	LegCounter = "counter"
	LegFee     = "fee"
)

// LedgerError wraps a failure of the underlying ledger during a multi-leg
// settlement, identifying the leg that failed. Validation errors never
// produce a LedgerError since they are detected before any transfer is
// attempted.
type LedgerError struct {
	Leg string
	Err error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("ledger transfer failed on %s leg: %s", e.Leg, e.Err)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}
