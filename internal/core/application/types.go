package application

import (
	"math/big"

	"github.com/swapmarket/swapd/internal/core/domain"
	"github.com/swapmarket/swapd/pkg/mathutil"
)

// OfferInput collects the caller-supplied fields of a create-offer request.
// AttachedValue is the native value attached to the call, required to equal
// SourceAmountTotal exactly when the source asset is native, zero otherwise.
type OfferInput struct {
	MakerAddress       string
	TakerAddress       string
	SourceAsset        string
	SourceAmountTotal  *big.Int
	CounterAsset       string
	CounterAmountTotal *big.Int
	FeeAmountPerFill   *big.Int
	PartialFillAllowed bool
	ExpiresAt          int64
	AttachedValue      *big.Int
}

// FillInfo is the caller-facing view of a fill.
type FillInfo struct {
	OfferHash        string
	TakerAddress     string
	SourceAmount     *big.Int
	CounterAmount    *big.Int
	FeeAmountCharged *big.Int
	ClosedAt         int64
}

// FillReceipt is returned by a successful take and carries the executed
// amounts along with the receipts of every transfer leg.
type FillReceipt struct {
	FillInfo
	TxIDs []string
}

// OfferInfo is the caller-facing view of an offer: the stored fields plus
// the derived amounts and readable status, recomputed on every read.
type OfferInfo struct {
	Hash                   string
	MakerAddress           string
	TakerAddress           string
	SourceAsset            string
	SourceAmountTotal      *big.Int
	CounterAsset           string
	CounterAmountTotal     *big.Int
	FeeAmountPerFill       *big.Int
	PartialFillAllowed     bool
	CreatedAt              int64
	ExpiresAt              int64
	Status                 string
	SourceAmountFilled     *big.Int
	CounterAmountFilled    *big.Int
	RemainingSourceAmount  *big.Int
	RemainingCounterAmount *big.Int
	PercentFilled          int
	// ExchangeRate is the counter/source price truncated to 8 decimals,
	// display-only.
	ExchangeRate string
	Fills        []FillInfo
}

func offerInfo(o *domain.SwapOffer, status domain.ReadableStatus) OfferInfo {
	fills := make([]FillInfo, 0, len(o.Fills))
	for _, f := range o.Fills {
		fills = append(fills, fillInfo(o.Hash, f))
	}
	return OfferInfo{
		Hash:                   o.Hash,
		MakerAddress:           o.MakerAddress,
		TakerAddress:           o.TakerAddress,
		SourceAsset:            o.SourceAsset,
		SourceAmountTotal:      o.SourceAmountTotal,
		CounterAsset:           o.CounterAsset,
		CounterAmountTotal:     o.CounterAmountTotal,
		FeeAmountPerFill:       o.FeeAmountPerFill,
		PartialFillAllowed:     o.PartialFillAllowed,
		CreatedAt:              o.CreatedAt,
		ExpiresAt:              o.ExpiresAt,
		Status:                 status.String(),
		SourceAmountFilled:     o.SourceAmountFilled(),
		CounterAmountFilled:    o.CounterAmountFilled(),
		RemainingSourceAmount:  o.RemainingSourceAmount(),
		RemainingCounterAmount: o.RemainingCounterAmount(),
		PercentFilled:          o.PercentFilled(),
		ExchangeRate: mathutil.ExchangeRate(
			o.SourceAmountTotal, o.CounterAmountTotal,
		).String(),
		Fills: fills,
	}
}

func fillInfo(offerHash string, f domain.Fill) FillInfo {
	return FillInfo{
		OfferHash:        offerHash,
		TakerAddress:     f.TakerAddress,
		SourceAmount:     f.SourceAmount,
		CounterAmount:    f.CounterAmount,
		FeeAmountCharged: f.FeeAmountCharged,
		ClosedAt:         f.ClosedAt,
	}
}
