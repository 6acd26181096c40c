package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/google/uuid"
	"github.com/swapmarket/swapd/pkg/mathutil"
)

// NativeAsset is the sentinel asset hash denoting the ledger's base currency.
// Native legs require the amount to be attached as call value and always
// report unlimited allowance.
const NativeAsset = "0000000000000000000000000000000000000000"

const (
	OfferStatusCodeOpened = iota
	OfferStatusCodeCanceled
)

// ReadableStatus is the status surfaced to callers. It is derived on read
// from the stored status, the current time and the maker's live source
// balance, and is never persisted.
type ReadableStatus int

const (
	ReadableStatusOpened ReadableStatus = iota
	ReadableStatusFilled
	ReadableStatusCanceled
	ReadableStatusExpired
	ReadableStatusError
)

func (s ReadableStatus) String() string {
	switch s {
	case ReadableStatusOpened:
		return "opened"
	case ReadableStatusFilled:
		return "filled"
	case ReadableStatusCanceled:
		return "canceled"
	case ReadableStatusExpired:
		return "expired"
	case ReadableStatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Fill is the immutable record of one take executed against an offer.
type Fill struct {
	Id               string
	TakerAddress     string
	SourceAmount     *big.Int
	CounterAmount    *big.Int
	FeeAmountCharged *big.Int
	ClosedAt         int64
}

// SwapOffer is a standing order of a maker trading a fixed total of the
// source asset for a fixed total of the counter asset. Amount totals, assets
// and the partial-fill flag are immutable after creation; the only legal
// mutations are appending fills and the transition to Canceled.
type SwapOffer struct {
	Hash               string
	MakerAddress       string
	TakerAddress       string
	SourceAsset        string
	SourceAmountTotal  *big.Int
	CounterAsset       string
	CounterAmountTotal *big.Int
	FeeAmountPerFill   *big.Int
	PartialFillAllowed bool
	CreatedAt          int64
	ExpiresAt          int64
	StatusCode         int
	Fills              []Fill
}

// NewSwapOffer validates the given inputs and returns an Opened offer with
// no fills and a content-derived hash.
func NewSwapOffer(
	makerAddress, takerAddress string,
	sourceAsset string, sourceAmountTotal *big.Int,
	counterAsset string, counterAmountTotal *big.Int,
	feeAmountPerFill *big.Int,
	partialFillAllowed bool,
	now, expiresAt int64,
) (*SwapOffer, error) {
	if sourceAmountTotal == nil || sourceAmountTotal.Sign() <= 0 ||
		counterAmountTotal == nil || counterAmountTotal.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	if sourceAsset == counterAsset {
		return nil, ErrInvalidAmount
	}
	if expiresAt != 0 && expiresAt <= now {
		return nil, ErrInvalidExpiration
	}
	if feeAmountPerFill == nil {
		feeAmountPerFill = new(big.Int)
	}
	if feeAmountPerFill.Sign() < 0 {
		return nil, ErrInvalidAmount
	}

	offer := &SwapOffer{
		MakerAddress:       makerAddress,
		TakerAddress:       takerAddress,
		SourceAsset:        sourceAsset,
		SourceAmountTotal:  new(big.Int).Set(sourceAmountTotal),
		CounterAsset:       counterAsset,
		CounterAmountTotal: new(big.Int).Set(counterAmountTotal),
		FeeAmountPerFill:   new(big.Int).Set(feeAmountPerFill),
		PartialFillAllowed: partialFillAllowed,
		CreatedAt:          now,
		ExpiresAt:          expiresAt,
		StatusCode:         OfferStatusCodeOpened,
		Fills:              make([]Fill, 0),
	}
	offer.Hash = offerHash(offer)
	return offer, nil
}

// offerHash derives the offer identifier from its immutable fields plus a
// random nonce, so identical offers created back to back still get distinct
// keys.
func offerHash(o *SwapOffer) string {
	h := sha256.New()
	fmt.Fprintf(
		h, "%s|%s|%s|%s|%s|%s|%t|%d|%s",
		o.MakerAddress, o.SourceAsset, o.SourceAmountTotal,
		o.CounterAsset, o.CounterAmountTotal, o.FeeAmountPerFill,
		o.PartialFillAllowed, o.CreatedAt, uuid.NewString(),
	)
	return hex.EncodeToString(h.Sum(nil))
}

// CounterAmountFilled returns the sum of the counter amounts of all fills.
func (o *SwapOffer) CounterAmountFilled() *big.Int {
	total := new(big.Int)
	for _, f := range o.Fills {
		total.Add(total, f.CounterAmount)
	}
	return total
}

// SourceAmountFilled returns the sum of the source amounts of all fills.
func (o *SwapOffer) SourceAmountFilled() *big.Int {
	total := new(big.Int)
	for _, f := range o.Fills {
		total.Add(total, f.SourceAmount)
	}
	return total
}

// RemainingCounterAmount returns the counter amount still fillable.
func (o *SwapOffer) RemainingCounterAmount() *big.Int {
	return new(big.Int).Sub(o.CounterAmountTotal, o.CounterAmountFilled())
}

// RemainingSourceAmount returns the source amount still committed by the maker.
func (o *SwapOffer) RemainingSourceAmount() *big.Int {
	return new(big.Int).Sub(o.SourceAmountTotal, o.SourceAmountFilled())
}

// PercentFilled returns the filled percentage of the offer in [0, 100],
// floor rounded.
func (o *SwapOffer) PercentFilled() int {
	pct, err := mathutil.PercentFilled(o.CounterAmountFilled(), o.CounterAmountTotal)
	if err != nil {
		return 0
	}
	return pct
}

// IsCanceled returns whether the stored status is Canceled.
func (o *SwapOffer) IsCanceled() bool {
	return o.StatusCode == OfferStatusCodeCanceled
}

// IsFullyFilled returns whether the fills consumed the whole counter total.
func (o *SwapOffer) IsFullyFilled() bool {
	return o.CounterAmountFilled().Cmp(o.CounterAmountTotal) == 0
}

// IsExpiredAt returns whether the expiration date is set and has passed at
// the given time.
func (o *SwapOffer) IsExpiredAt(now int64) bool {
	return o.ExpiresAt != 0 && o.ExpiresAt < now
}

// IsRestricted returns whether the offer can only be taken by a designated
// counterparty.
func (o *SwapOffer) IsRestricted() bool {
	return len(o.TakerAddress) > 0
}

// HasNativeSourceAsset returns whether the source leg moves the ledger's
// base currency.
func (o *SwapOffer) HasNativeSourceAsset() bool {
	return o.SourceAsset == NativeAsset
}

// HasNativeCounterAsset returns whether the counter leg moves the ledger's
// base currency.
func (o *SwapOffer) HasNativeCounterAsset() bool {
	return o.CounterAsset == NativeAsset
}

// DeriveReadableStatus computes the status surfaced to callers. Precedence:
// Canceled, then Filled, then Expired, then Error when the maker's live
// balance no longer covers the remaining source commitment (funds are not
// escrowed at creation), otherwise Opened. A fully filled offer is never
// reported expired, no matter its expiration date.
func (o *SwapOffer) DeriveReadableStatus(
	now int64, makerSourceBalance *big.Int,
) ReadableStatus {
	if o.IsCanceled() {
		return ReadableStatusCanceled
	}
	if o.IsFullyFilled() {
		return ReadableStatusFilled
	}
	if o.IsExpiredAt(now) {
		return ReadableStatusExpired
	}
	if makerSourceBalance != nil &&
		makerSourceBalance.Cmp(o.RemainingSourceAmount()) < 0 {
		return ReadableStatusError
	}
	return ReadableStatusOpened
}

// Cancel brings the offer from the Opened to the Canceled stored status. A
// maker can always cancel their own still-open offer, regardless of derived
// expiration or balance state. No funds move since none were escrowed.
func (o *SwapOffer) Cancel() error {
	if o.StatusCode != OfferStatusCodeOpened {
		return ErrOfferNotOpen
	}
	o.StatusCode = OfferStatusCodeCanceled
	return nil
}

// ApplyFill appends the given fill after re-checking the structural
// invariants: a non-partial offer takes exactly one fill matching the offer
// totals, and the sum of counter amounts never exceeds the counter total.
func (o *SwapOffer) ApplyFill(fill Fill) error {
	if o.StatusCode != OfferStatusCodeOpened {
		return ErrOfferNotOpen
	}
	if fill.CounterAmount == nil || fill.CounterAmount.Sign() <= 0 {
		return ErrInvalidFillAmount
	}
	if !o.PartialFillAllowed {
		if len(o.Fills) > 0 {
			return ErrOfferNotOpen
		}
		if fill.CounterAmount.Cmp(o.CounterAmountTotal) != 0 {
			return ErrPartialFillNotAllowed
		}
	}
	if fill.CounterAmount.Cmp(o.RemainingCounterAmount()) > 0 {
		return ErrInvalidFillAmount
	}

	o.Fills = append(o.Fills, fill)
	return nil
}
