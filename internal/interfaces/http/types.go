package httpinterface

import (
	"github.com/swapmarket/swapd/internal/core/application"
)

type createOfferRequest struct {
	MakerAddress       string `json:"makerAddress"`
	TakerAddress       string `json:"takerAddress,omitempty"`
	SourceAsset        string `json:"sourceAsset"`
	SourceAmountTotal  string `json:"sourceAmountTotal"`
	CounterAsset       string `json:"counterAsset"`
	CounterAmountTotal string `json:"counterAmountTotal"`
	FeeAmountPerFill   string `json:"feeAmountPerFill,omitempty"`
	PartialFillAllowed bool   `json:"partialFillAllowed"`
	ExpiresAt          int64  `json:"expiresAt,omitempty"`
	AttachedValue      string `json:"attachedValue,omitempty"`
}

func (r createOfferRequest) toInput() (application.OfferInput, error) {
	sourceTotal, err := parseAmount(r.SourceAmountTotal)
	if err != nil {
		return application.OfferInput{}, err
	}
	counterTotal, err := parseAmount(r.CounterAmountTotal)
	if err != nil {
		return application.OfferInput{}, err
	}
	fee, err := parseOptionalAmount(r.FeeAmountPerFill)
	if err != nil {
		return application.OfferInput{}, err
	}
	value, err := parseOptionalAmount(r.AttachedValue)
	if err != nil {
		return application.OfferInput{}, err
	}

	return application.OfferInput{
		MakerAddress:       r.MakerAddress,
		TakerAddress:       r.TakerAddress,
		SourceAsset:        r.SourceAsset,
		SourceAmountTotal:  sourceTotal,
		CounterAsset:       r.CounterAsset,
		CounterAmountTotal: counterTotal,
		FeeAmountPerFill:   fee,
		PartialFillAllowed: r.PartialFillAllowed,
		ExpiresAt:          r.ExpiresAt,
		AttachedValue:      value,
	}, nil
}

type takeOfferRequest struct {
	CallerAddress string `json:"callerAddress"`
	CounterAmount string `json:"counterAmount"`
	AttachedValue string `json:"attachedValue,omitempty"`
}

type cancelOfferRequest struct {
	CallerAddress string `json:"callerAddress"`
}

type offerResponse struct {
	Hash                   string         `json:"hash"`
	MakerAddress           string         `json:"makerAddress"`
	TakerAddress           string         `json:"takerAddress,omitempty"`
	SourceAsset            string         `json:"sourceAsset"`
	SourceAmountTotal      string         `json:"sourceAmountTotal"`
	CounterAsset           string         `json:"counterAsset"`
	CounterAmountTotal     string         `json:"counterAmountTotal"`
	FeeAmountPerFill       string         `json:"feeAmountPerFill"`
	PartialFillAllowed     bool           `json:"partialFillAllowed"`
	CreatedAt              int64          `json:"createdAt"`
	ExpiresAt              int64          `json:"expiresAt,omitempty"`
	Status                 string         `json:"status"`
	SourceAmountFilled     string         `json:"sourceAmountFilled"`
	CounterAmountFilled    string         `json:"counterAmountFilled"`
	RemainingSourceAmount  string         `json:"remainingSourceAmount"`
	RemainingCounterAmount string         `json:"remainingCounterAmount"`
	PercentFilled          int            `json:"percentFilled"`
	ExchangeRate           string         `json:"exchangeRate"`
	Fills                  []fillResponse `json:"fills"`
}

type fillResponse struct {
	OfferHash        string `json:"offerHash"`
	TakerAddress     string `json:"takerAddress"`
	SourceAmount     string `json:"sourceAmount"`
	CounterAmount    string `json:"counterAmount"`
	FeeAmountCharged string `json:"feeAmountCharged"`
	ClosedAt         int64  `json:"closedAt"`
}

type fillReceiptResponse struct {
	fillResponse
	TxIDs []string `json:"txids"`
}

func offerView(info application.OfferInfo) offerResponse {
	fills := make([]fillResponse, 0, len(info.Fills))
	for _, f := range info.Fills {
		fills = append(fills, fillView(f))
	}
	return offerResponse{
		Hash:                   info.Hash,
		MakerAddress:           info.MakerAddress,
		TakerAddress:           info.TakerAddress,
		SourceAsset:            info.SourceAsset,
		SourceAmountTotal:      info.SourceAmountTotal.String(),
		CounterAsset:           info.CounterAsset,
		CounterAmountTotal:     info.CounterAmountTotal.String(),
		FeeAmountPerFill:       info.FeeAmountPerFill.String(),
		PartialFillAllowed:     info.PartialFillAllowed,
		CreatedAt:              info.CreatedAt,
		ExpiresAt:              info.ExpiresAt,
		Status:                 info.Status,
		SourceAmountFilled:     info.SourceAmountFilled.String(),
		CounterAmountFilled:    info.CounterAmountFilled.String(),
		RemainingSourceAmount:  info.RemainingSourceAmount.String(),
		RemainingCounterAmount: info.RemainingCounterAmount.String(),
		PercentFilled:          info.PercentFilled,
		ExchangeRate:           info.ExchangeRate,
		Fills:                  fills,
	}
}

func fillView(f application.FillInfo) fillResponse {
	return fillResponse{
		OfferHash:        f.OfferHash,
		TakerAddress:     f.TakerAddress,
		SourceAmount:     f.SourceAmount.String(),
		CounterAmount:    f.CounterAmount.String(),
		FeeAmountCharged: f.FeeAmountCharged.String(),
		ClosedAt:         f.ClosedAt,
	}
}

func fillReceiptView(r application.FillReceipt) fillReceiptResponse {
	return fillReceiptResponse{
		fillResponse: fillView(r.FillInfo),
		TxIDs:        r.TxIDs,
	}
}
