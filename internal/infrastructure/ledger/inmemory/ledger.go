package inmemory

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/google/uuid"
	"github.com/swapmarket/swapd/internal/core/domain"
	"github.com/swapmarket/swapd/internal/core/ports"
	"github.com/swapmarket/swapd/pkg/mathutil"
)

var (
	// ErrInsufficientBalance is returned when a transfer exceeds the sender's
	// balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Ledger is an in-memory implementation of ports.Ledger keeping per-asset
// balance and allowance books. It backs tests and no-persistence runs of the
// daemon.
type Ledger struct {
	locker sync.Mutex
	// asset -> address -> balance
	balances map[string]map[string]*big.Int
	// asset -> owner -> spender -> allowance
	allowances map[string]map[string]map[string]*big.Int
}

// NewLedger returns an empty in-memory ledger.
func NewLedger() *Ledger {
	return &Ledger{
		balances:   make(map[string]map[string]*big.Int),
		allowances: make(map[string]map[string]map[string]*big.Int),
	}
}

// Fund credits the address with the given amount of the asset.
func (l *Ledger) Fund(asset, address string, amount *big.Int) {
	l.locker.Lock()
	defer l.locker.Unlock()

	balance := l.balanceOf(asset, address)
	balance.Add(balance, amount)
}

// Approve sets (not adds) the allowance the owner grants to the spender for
// the asset.
func (l *Ledger) Approve(asset, owner, spender string, amount *big.Int) {
	l.locker.Lock()
	defer l.locker.Unlock()

	byOwner, ok := l.allowances[asset]
	if !ok {
		byOwner = make(map[string]map[string]*big.Int)
		l.allowances[asset] = byOwner
	}
	bySpender, ok := byOwner[owner]
	if !ok {
		bySpender = make(map[string]*big.Int)
		byOwner[owner] = bySpender
	}
	bySpender[spender] = new(big.Int).Set(amount)
}

func (l *Ledger) Transfer(
	_ context.Context, asset, from, to string, amount *big.Int,
) (*ports.TxReceipt, error) {
	l.locker.Lock()
	defer l.locker.Unlock()

	if amount == nil || amount.Sign() < 0 {
		return nil, mathutil.ErrNegativeAmount
	}

	fromBalance := l.balanceOf(asset, from)
	if fromBalance.Cmp(amount) < 0 {
		return nil, ErrInsufficientBalance
	}

	fromBalance.Sub(fromBalance, amount)
	toBalance := l.balanceOf(asset, to)
	toBalance.Add(toBalance, amount)

	return &ports.TxReceipt{TxID: uuid.NewString()}, nil
}

func (l *Ledger) BalanceOf(
	_ context.Context, asset, address string,
) (*big.Int, error) {
	l.locker.Lock()
	defer l.locker.Unlock()

	return new(big.Int).Set(l.balanceOf(asset, address)), nil
}

func (l *Ledger) Allowance(
	_ context.Context, asset, owner, spender string,
) (*big.Int, error) {
	if asset == domain.NativeAsset {
		return new(big.Int).Set(mathutil.MaxAmount), nil
	}

	l.locker.Lock()
	defer l.locker.Unlock()

	if byOwner, ok := l.allowances[asset]; ok {
		if bySpender, ok := byOwner[owner]; ok {
			if allowance, ok := bySpender[spender]; ok {
				return new(big.Int).Set(allowance), nil
			}
		}
	}
	return new(big.Int), nil
}

func (l *Ledger) balanceOf(asset, address string) *big.Int {
	byAddress, ok := l.balances[asset]
	if !ok {
		byAddress = make(map[string]*big.Int)
		l.balances[asset] = byAddress
	}
	balance, ok := byAddress[address]
	if !ok {
		balance = new(big.Int)
		byAddress[address] = balance
	}
	return balance
}
