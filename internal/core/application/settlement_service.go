package application

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/swapmarket/swapd/internal/core/domain"
	"github.com/swapmarket/swapd/internal/core/ports"
	"github.com/swapmarket/swapd/pkg/mathutil"
)

var errInsufficientAllowance = errors.New("maker allowance does not cover the source amount")

// SettlementService is the engine validating and executing offer operations
// against the repository and the ledger. It is the only component allowed to
// invoke ledger transfers and to append fills.
//
// Takes against the same offer are serialized on a per-offer mutex held
// across the whole validate, transfer, record sequence, so two competing
// takers racing for the same remaining amount result in exactly one success.
// Reads take no lock and observe a consistent snapshot.
type SettlementService struct {
	repoManager ports.RepoManager
	ledger      ports.Ledger
	clock       ports.Clock

	// settlementAddress is the spender the maker is expected to have
	// pre-authorized for token source legs, feeSinkAddress collects the
	// per-fill fee.
	settlementAddress string
	feeSinkAddress    string

	locksByOffer map[string]*sync.Mutex
	locker       sync.Mutex
}

// NewSettlementService returns a SettlementService after checking all of its
// collaborators are provided.
func NewSettlementService(
	repoManager ports.RepoManager,
	ledger ports.Ledger,
	clock ports.Clock,
	settlementAddress, feeSinkAddress string,
) (*SettlementService, error) {
	if repoManager == nil {
		return nil, fmt.Errorf("missing repo manager")
	}
	if ledger == nil {
		return nil, fmt.Errorf("missing ledger")
	}
	if clock == nil {
		return nil, fmt.Errorf("missing clock")
	}
	if settlementAddress == "" {
		return nil, fmt.Errorf("missing settlement address")
	}
	if feeSinkAddress == "" {
		return nil, fmt.Errorf("missing fee sink address")
	}

	return &SettlementService{
		repoManager:       repoManager,
		ledger:            ledger,
		clock:             clock,
		settlementAddress: settlementAddress,
		feeSinkAddress:    feeSinkAddress,
		locksByOffer:      make(map[string]*sync.Mutex),
	}, nil
}

// CreateOffer validates the given input and records a new Opened offer with
// no fills. Funds are not escrowed, the maker's balance and allowance are
// checked lazily at take time. When the source asset is native the maker
// must attach exactly the source total as call value.
func (s *SettlementService) CreateOffer(
	ctx context.Context, input OfferInput,
) (string, error) {
	now := s.clock.Now()
	offer, err := domain.NewSwapOffer(
		input.MakerAddress, input.TakerAddress,
		input.SourceAsset, input.SourceAmountTotal,
		input.CounterAsset, input.CounterAmountTotal,
		input.FeeAmountPerFill, input.PartialFillAllowed,
		now, input.ExpiresAt,
	)
	if err != nil {
		return "", err
	}

	requiredValue := new(big.Int)
	if offer.HasNativeSourceAsset() {
		requiredValue.Set(offer.SourceAmountTotal)
	}
	if attachedValue(input.AttachedValue).Cmp(requiredValue) != 0 {
		return "", domain.ErrIncorrectValueAttached
	}

	if err := s.repoManager.OfferRepository().AddOffer(ctx, offer); err != nil {
		return "", err
	}

	offersCreatedCounter.Inc()
	log.Debugf("created offer with hash %s", offer.Hash)
	return offer.Hash, nil
}

// TakeOffer executes a full or partial fill of the offer on behalf of the
// caller. Preconditions are checked in order, each with a distinct failure,
// before any transfer is attempted. The transfer legs and the fill record
// are applied atomically: a failing leg triggers compensation of the
// already-executed ones and the fill is never recorded.
func (s *SettlementService) TakeOffer(
	ctx context.Context,
	hash string, requestedCounterAmount *big.Int,
	callerAddress string, callerAttachedValue *big.Int,
) (*FillReceipt, error) {
	lock := s.lockForOffer(hash)
	lock.Lock()
	defer lock.Unlock()

	repo := s.repoManager.OfferRepository()
	offer, err := repo.GetOffer(ctx, hash)
	if err != nil {
		return nil, err
	}

	if callerAddress == offer.MakerAddress {
		return nil, domain.ErrSelfTakeForbidden
	}
	if offer.IsRestricted() && callerAddress != offer.TakerAddress {
		return nil, domain.ErrUnauthorizedTaker
	}

	now := s.clock.Now()
	makerBalance, err := s.ledger.BalanceOf(
		ctx, offer.SourceAsset, offer.MakerAddress,
	)
	if err != nil {
		return nil, &LedgerError{LegSource, err}
	}
	if status := offer.DeriveReadableStatus(now, makerBalance); status != domain.ReadableStatusOpened {
		return nil, domain.ErrOfferNotOpen
	}

	if !offer.PartialFillAllowed &&
		requestedCounterAmount.Cmp(offer.CounterAmountTotal) != 0 {
		return nil, domain.ErrPartialFillNotAllowed
	}
	if requestedCounterAmount.Sign() <= 0 ||
		requestedCounterAmount.Cmp(offer.RemainingCounterAmount()) > 0 {
		return nil, domain.ErrInvalidFillAmount
	}

	requiredValue := new(big.Int).Set(offer.FeeAmountPerFill)
	if offer.HasNativeCounterAsset() {
		requiredValue.Add(requiredValue, requestedCounterAmount)
	}
	if attachedValue(callerAttachedValue).Cmp(requiredValue) != 0 {
		return nil, domain.ErrIncorrectValueAttached
	}

	// The ratio basis is always the offer totals, never the remaining
	// amounts, so rounding error does not compound across partial fills. A
	// fill that completes the offer takes the whole remaining source
	// commitment instead, absorbing the floor rounding of the earlier fills
	// so no dust is stranded and a single full fill moves the source total
	// exactly.
	var sourceAmount *big.Int
	if requestedCounterAmount.Cmp(offer.RemainingCounterAmount()) == 0 {
		sourceAmount = offer.RemainingSourceAmount()
	} else {
		var err error
		sourceAmount, err = mathutil.ProportionalSourceAmount(
			requestedCounterAmount, offer.SourceAmountTotal, offer.CounterAmountTotal,
		)
		if err != nil {
			return nil, err
		}
	}

	if !offer.HasNativeSourceAsset() {
		allowance, err := s.ledger.Allowance(
			ctx, offer.SourceAsset, offer.MakerAddress, s.settlementAddress,
		)
		if err != nil {
			return nil, &LedgerError{LegSource, err}
		}
		if allowance.Cmp(sourceAmount) < 0 {
			return nil, &LedgerError{LegSource, errInsufficientAllowance}
		}
	}

	receipts, err := s.executeLegs(
		ctx, offer, callerAddress, sourceAmount, requestedCounterAmount,
	)
	if err != nil {
		settlementFailuresCounter.Inc()
		return nil, err
	}

	fill := domain.Fill{
		Id:               uuid.NewString(),
		TakerAddress:     callerAddress,
		SourceAmount:     sourceAmount,
		CounterAmount:    requestedCounterAmount,
		FeeAmountCharged: offer.FeeAmountPerFill,
		ClosedAt:         now,
	}
	if err := repo.UpdateOffer(
		ctx, hash, func(o *domain.SwapOffer) (*domain.SwapOffer, error) {
			if err := o.ApplyFill(fill); err != nil {
				return nil, err
			}
			return o, nil
		},
	); err != nil {
		// The fill was validated under the offer lock, recording it must not
		// fail. If it does, the executed legs are unwound before surfacing.
		s.compensate(ctx, offer, callerAddress, receipts)
		settlementFailuresCounter.Inc()
		return nil, err
	}

	fillsExecutedCounter.Inc()
	log.Debugf(
		"settled fill of %s against offer %s", requestedCounterAmount, hash,
	)

	txids := make([]string, 0, len(receipts))
	for _, r := range receipts {
		txids = append(txids, r.receipt.TxID)
	}
	return &FillReceipt{FillInfo: fillInfo(hash, fill), TxIDs: txids}, nil
}

// CancelOffer transitions the offer from the Opened to the Canceled stored
// status. Only the maker can cancel, and a maker can always cancel their own
// still-open offer even when its derived status is Expired or Error. No
// funds move.
func (s *SettlementService) CancelOffer(
	ctx context.Context, hash, callerAddress string,
) error {
	lock := s.lockForOffer(hash)
	lock.Lock()
	defer lock.Unlock()

	repo := s.repoManager.OfferRepository()
	offer, err := repo.GetOffer(ctx, hash)
	if err != nil {
		return err
	}
	if callerAddress != offer.MakerAddress {
		return domain.ErrUnauthorizedCancel
	}

	if err := repo.UpdateOffer(
		ctx, hash, func(o *domain.SwapOffer) (*domain.SwapOffer, error) {
			if err := o.Cancel(); err != nil {
				return nil, err
			}
			return o, nil
		},
	); err != nil {
		return err
	}

	offersCanceledCounter.Inc()
	log.Debugf("canceled offer with hash %s", hash)
	return nil
}

// GetOffer returns the offer with its derived amounts and readable status.
func (s *SettlementService) GetOffer(
	ctx context.Context, hash string,
) (*OfferInfo, error) {
	offer, err := s.repoManager.OfferRepository().GetOffer(ctx, hash)
	if err != nil {
		return nil, err
	}
	info := offerInfo(offer, s.deriveStatus(ctx, offer))
	return &info, nil
}

// ListOffersByMaker returns the views of all offers created by the address.
func (s *SettlementService) ListOffersByMaker(
	ctx context.Context, maker string,
) ([]OfferInfo, error) {
	offers, err := s.repoManager.OfferRepository().GetOffersByMaker(ctx, maker)
	if err != nil {
		return nil, err
	}
	return s.offerInfoList(ctx, offers), nil
}

// ListOffersRestrictedTo returns the views of all offers reserved for the
// address.
func (s *SettlementService) ListOffersRestrictedTo(
	ctx context.Context, taker string,
) ([]OfferInfo, error) {
	offers, err := s.repoManager.OfferRepository().GetOffersRestrictedTo(ctx, taker)
	if err != nil {
		return nil, err
	}
	return s.offerInfoList(ctx, offers), nil
}

// ListFillsByTaker returns the history of fills executed by the address.
func (s *SettlementService) ListFillsByTaker(
	ctx context.Context, taker string,
) ([]FillInfo, error) {
	fills, err := s.repoManager.OfferRepository().GetFillsByTaker(ctx, taker)
	if err != nil {
		return nil, err
	}
	list := make([]FillInfo, 0, len(fills))
	for _, f := range fills {
		list = append(list, fillInfo(f.OfferHash, f.Fill))
	}
	return list, nil
}

type executedLeg struct {
	leg     string
	asset   string
	from    string
	to      string
	amount  *big.Int
	receipt *ports.TxReceipt
}

// executeLegs runs the transfer legs of a take in order: source from maker
// to taker, counter from taker to maker, fee from taker to the fee sink. On
// a failing leg all previously executed ones are compensated before the
// error surfaces.
func (s *SettlementService) executeLegs(
	ctx context.Context,
	offer *domain.SwapOffer, taker string,
	sourceAmount, counterAmount *big.Int,
) ([]executedLeg, error) {
	legs := []executedLeg{
		{
			leg: LegSource, asset: offer.SourceAsset,
			from: offer.MakerAddress, to: taker, amount: sourceAmount,
		},
		{
			leg: LegCounter, asset: offer.CounterAsset,
			from: taker, to: offer.MakerAddress, amount: counterAmount,
		},
	}
	if offer.FeeAmountPerFill.Sign() > 0 {
		legs = append(legs, executedLeg{
			leg: LegFee, asset: domain.NativeAsset,
			from: taker, to: s.feeSinkAddress, amount: offer.FeeAmountPerFill,
		})
	}

	executed := make([]executedLeg, 0, len(legs))
	for _, leg := range legs {
		receipt, err := s.ledger.Transfer(
			ctx, leg.asset, leg.from, leg.to, leg.amount,
		)
		if err != nil {
			s.compensate(ctx, offer, taker, executed)
			return nil, &LedgerError{leg.leg, err}
		}
		leg.receipt = receipt
		executed = append(executed, leg)
	}
	return executed, nil
}

// compensate reverses already-executed legs in reverse order. Failures are
// logged and do not stop the remaining reversals.
func (s *SettlementService) compensate(
	ctx context.Context, offer *domain.SwapOffer, taker string,
	executed []executedLeg,
) {
	for i := len(executed) - 1; i >= 0; i-- {
		leg := executed[i]
		if _, err := s.ledger.Transfer(
			ctx, leg.asset, leg.to, leg.from, leg.amount,
		); err != nil {
			log.WithError(err).Warnf(
				"failed to compensate %s leg of offer %s", leg.leg, offer.Hash,
			)
		}
	}
}

func (s *SettlementService) deriveStatus(
	ctx context.Context, offer *domain.SwapOffer,
) domain.ReadableStatus {
	makerBalance, err := s.ledger.BalanceOf(
		ctx, offer.SourceAsset, offer.MakerAddress,
	)
	if err != nil {
		log.WithError(err).Debugf(
			"failed to retrieve maker balance for offer %s", offer.Hash,
		)
		makerBalance = nil
	}
	return offer.DeriveReadableStatus(s.clock.Now(), makerBalance)
}

func (s *SettlementService) offerInfoList(
	ctx context.Context, offers []*domain.SwapOffer,
) []OfferInfo {
	list := make([]OfferInfo, 0, len(offers))
	for _, o := range offers {
		list = append(list, offerInfo(o, s.deriveStatus(ctx, o)))
	}
	return list
}

// lockForOffer returns the mutex serializing writes against the given offer
// hash. Locks are never released from the map, an offer's lifetime is
// unbounded anyway since offers are never deleted.
func (s *SettlementService) lockForOffer(hash string) *sync.Mutex {
	s.locker.Lock()
	defer s.locker.Unlock()

	lock, ok := s.locksByOffer[hash]
	if !ok {
		lock = &sync.Mutex{}
		s.locksByOffer[hash] = lock
	}
	return lock
}

func attachedValue(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
