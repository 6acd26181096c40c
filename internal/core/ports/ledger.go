package ports

import (
	"context"
	"math/big"
)

// TxReceipt is the proof of a transfer executed by the ledger.
type TxReceipt struct {
	TxID string
}

// Ledger is the abstract atomic value-transfer capability the settlement
// engine runs against. Implementations may be backed by a blockchain node,
// a remote ledger service or an in-memory book for tests. Transfer calls are
// the engine's only suspension points.
type Ledger interface {
	// Transfer moves amount of asset from one address to another and returns
	// a receipt, or an error when the ledger refuses the transfer (eg.
	// insufficient balance or allowance).
	Transfer(
		ctx context.Context, asset, from, to string, amount *big.Int,
	) (*TxReceipt, error)
	// BalanceOf returns the current balance of the address for the asset.
	BalanceOf(ctx context.Context, asset, address string) (*big.Int, error)
	// Allowance returns the transfer capacity the owner pre-authorized to the
	// spender for the asset. Native assets report unlimited allowance.
	Allowance(
		ctx context.Context, asset, owner, spender string,
	) (*big.Int, error)
}

// Clock supplies the current time for expiration checks and fill timestamps,
// often derived from the ledger's own clock for determinism.
type Clock interface {
	// Now returns the current time as Unix seconds.
	Now() int64
}
