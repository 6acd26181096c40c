package application_test

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/swapmarket/swapd/internal/core/application"
	"github.com/swapmarket/swapd/internal/core/domain"
	"github.com/swapmarket/swapd/internal/core/ports"
	"github.com/swapmarket/swapd/internal/infrastructure/clock"
	ledgerinmemory "github.com/swapmarket/swapd/internal/infrastructure/ledger/inmemory"
	"github.com/swapmarket/swapd/internal/infrastructure/storage/db/inmemory"
	"github.com/thanhpk/randstr"
)

const now = int64(1700000000)

var ctx = context.Background()

type testEnv struct {
	svc     *application.SettlementService
	ledger  *ledgerinmemory.Ledger
	clock   *clock.ManualClock
	feeSink string
	engine  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ledger := ledgerinmemory.NewLedger()
	manualClock := clock.NewManualClock(now)
	feeSink := randomAddress()
	engine := randomAddress()

	svc, err := application.NewSettlementService(
		inmemory.NewRepoManager(), ledger, manualClock, engine, feeSink,
	)
	require.NoError(t, err)

	return &testEnv{svc, ledger, manualClock, feeSink, engine}
}

type offerFixture struct {
	hash         string
	maker        string
	sourceAsset  string
	counterAsset string
	fee          *big.Int
}

// newTokenOffer creates a funded and approved maker plus an offer trading
// 93029302 of a token source asset for 100000 of a token counter asset with
// a native fee of 50 per fill.
func (e *testEnv) newTokenOffer(
	t *testing.T, partial bool, restrictedTo string, expiresAt int64,
) offerFixture {
	t.Helper()

	maker := randomAddress()
	sourceAsset, counterAsset := randomAsset(), randomAsset()

	e.ledger.Fund(sourceAsset, maker, big.NewInt(93029302))
	e.ledger.Approve(sourceAsset, maker, e.engine, big.NewInt(93029302))

	hash, err := e.svc.CreateOffer(ctx, application.OfferInput{
		MakerAddress:       maker,
		TakerAddress:       restrictedTo,
		SourceAsset:        sourceAsset,
		SourceAmountTotal:  big.NewInt(93029302),
		CounterAsset:       counterAsset,
		CounterAmountTotal: big.NewInt(100000),
		FeeAmountPerFill:   big.NewInt(50),
		PartialFillAllowed: partial,
		ExpiresAt:          expiresAt,
	})
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	return offerFixture{hash, maker, sourceAsset, counterAsset, big.NewInt(50)}
}

// fundTaker gives the taker enough counter asset and native asset to fill
// the given counter amount plus the fee.
func (e *testEnv) fundTaker(
	taker string, counterAsset string, counterAmount, fee *big.Int,
) {
	e.ledger.Fund(counterAsset, taker, counterAmount)
	e.ledger.Fund(domain.NativeAsset, taker, fee)
}

func TestCreateAndGetOfferRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	fixture := env.newTokenOffer(t, true, "", now+3600)

	info, err := env.svc.GetOffer(ctx, fixture.hash)
	require.NoError(t, err)
	require.Equal(t, fixture.hash, info.Hash)
	require.Equal(t, fixture.maker, info.MakerAddress)
	require.Empty(t, info.TakerAddress)
	require.Equal(t, fixture.sourceAsset, info.SourceAsset)
	require.Equal(t, "93029302", info.SourceAmountTotal.String())
	require.Equal(t, fixture.counterAsset, info.CounterAsset)
	require.Equal(t, "100000", info.CounterAmountTotal.String())
	require.Equal(t, "50", info.FeeAmountPerFill.String())
	require.True(t, info.PartialFillAllowed)
	require.Equal(t, now, info.CreatedAt)
	require.Equal(t, now+3600, info.ExpiresAt)
	require.Equal(t, "opened", info.Status)
	require.Empty(t, info.Fills)
	require.Zero(t, info.PercentFilled)
}

func TestFailingCreateOffer(t *testing.T) {
	env := newTestEnv(t)
	maker := randomAddress()
	sourceAsset, counterAsset := randomAsset(), randomAsset()

	tests := []struct {
		name          string
		input         application.OfferInput
		expectedError error
	}{
		{
			"zero_amount",
			application.OfferInput{
				MakerAddress:       maker,
				SourceAsset:        sourceAsset,
				SourceAmountTotal:  new(big.Int),
				CounterAsset:       counterAsset,
				CounterAmountTotal: big.NewInt(1),
			},
			domain.ErrInvalidAmount,
		},
		{
			"expiration_in_the_past",
			application.OfferInput{
				MakerAddress:       maker,
				SourceAsset:        sourceAsset,
				SourceAmountTotal:  big.NewInt(1),
				CounterAsset:       counterAsset,
				CounterAmountTotal: big.NewInt(1),
				ExpiresAt:          now - 1,
			},
			domain.ErrInvalidExpiration,
		},
		{
			"native_source_without_value",
			application.OfferInput{
				MakerAddress:       maker,
				SourceAsset:        domain.NativeAsset,
				SourceAmountTotal:  big.NewInt(1000),
				CounterAsset:       counterAsset,
				CounterAmountTotal: big.NewInt(1),
			},
			domain.ErrIncorrectValueAttached,
		},
		{
			"token_source_with_value",
			application.OfferInput{
				MakerAddress:       maker,
				SourceAsset:        sourceAsset,
				SourceAmountTotal:  big.NewInt(1000),
				CounterAsset:       counterAsset,
				CounterAmountTotal: big.NewInt(1),
				AttachedValue:      big.NewInt(1000),
			},
			domain.ErrIncorrectValueAttached,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.CreateOffer(ctx, tt.input)
			require.EqualError(t, err, tt.expectedError.Error())
		})
	}
}

func TestTakeOfferFullFill(t *testing.T) {
	env := newTestEnv(t)
	fixture := env.newTokenOffer(t, false, "", 0)

	taker := randomAddress()
	env.fundTaker(taker, fixture.counterAsset, big.NewInt(100000), fixture.fee)

	receipt, err := env.svc.TakeOffer(
		ctx, fixture.hash, big.NewInt(100000), taker, big.NewInt(50),
	)
	require.NoError(t, err)
	// full fill moves the source total exactly, no floor rounding loss
	require.Equal(t, "93029302", receipt.SourceAmount.String())
	require.Equal(t, "100000", receipt.CounterAmount.String())
	require.Equal(t, "50", receipt.FeeAmountCharged.String())
	require.Len(t, receipt.TxIDs, 3)

	takerSource, err := env.ledger.BalanceOf(ctx, fixture.sourceAsset, taker)
	require.NoError(t, err)
	require.Equal(t, "93029302", takerSource.String())

	makerCounter, err := env.ledger.BalanceOf(ctx, fixture.counterAsset, fixture.maker)
	require.NoError(t, err)
	require.Equal(t, "100000", makerCounter.String())

	feeBalance, err := env.ledger.BalanceOf(ctx, domain.NativeAsset, env.feeSink)
	require.NoError(t, err)
	require.Equal(t, "50", feeBalance.String())

	info, err := env.svc.GetOffer(ctx, fixture.hash)
	require.NoError(t, err)
	require.Equal(t, "filled", info.Status)
	require.Equal(t, 100, info.PercentFilled)
	require.Len(t, info.Fills, 1)
}

func TestTakeOfferPartialFillsSumExactly(t *testing.T) {
	env := newTestEnv(t)
	fixture := env.newTokenOffer(t, true, "", 0)

	sum := new(big.Int)
	for _, amount := range []int64{40000, 40000, 20000} {
		taker := randomAddress()
		env.fundTaker(taker, fixture.counterAsset, big.NewInt(amount), fixture.fee)

		receipt, err := env.svc.TakeOffer(
			ctx, fixture.hash, big.NewInt(amount), taker, big.NewInt(50),
		)
		require.NoError(t, err)
		sum.Add(sum, receipt.SourceAmount)
	}

	// the completing fill absorbs the rounding of the first two
	require.Equal(t, "93029302", sum.String())

	makerSource, err := env.ledger.BalanceOf(ctx, fixture.sourceAsset, fixture.maker)
	require.NoError(t, err)
	require.Zero(t, makerSource.Sign())

	info, err := env.svc.GetOffer(ctx, fixture.hash)
	require.NoError(t, err)
	require.Equal(t, "filled", info.Status)
	require.Len(t, info.Fills, 3)
}

func TestFailingTakeOffer(t *testing.T) {
	env := newTestEnv(t)

	t.Run("offer_not_found", func(t *testing.T) {
		_, err := env.svc.TakeOffer(
			ctx, randstr.Hex(32), big.NewInt(1), randomAddress(), nil,
		)
		require.EqualError(t, err, domain.ErrOfferNotFound.Error())
	})

	t.Run("self_take", func(t *testing.T) {
		fixture := env.newTokenOffer(t, true, "", 0)
		_, err := env.svc.TakeOffer(
			ctx, fixture.hash, big.NewInt(1), fixture.maker, big.NewInt(50),
		)
		require.EqualError(t, err, domain.ErrSelfTakeForbidden.Error())
	})

	t.Run("unauthorized_taker", func(t *testing.T) {
		designated := randomAddress()
		fixture := env.newTokenOffer(t, true, designated, 0)
		_, err := env.svc.TakeOffer(
			ctx, fixture.hash, big.NewInt(1), randomAddress(), big.NewInt(50),
		)
		require.EqualError(t, err, domain.ErrUnauthorizedTaker.Error())
	})

	t.Run("canceled_offer", func(t *testing.T) {
		fixture := env.newTokenOffer(t, true, "", 0)
		require.NoError(t, env.svc.CancelOffer(ctx, fixture.hash, fixture.maker))

		_, err := env.svc.TakeOffer(
			ctx, fixture.hash, big.NewInt(1), randomAddress(), big.NewInt(50),
		)
		require.EqualError(t, err, domain.ErrOfferNotOpen.Error())
	})

	t.Run("expired_offer", func(t *testing.T) {
		fixture := env.newTokenOffer(t, true, "", now+10)
		env.clock.SetNow(now + 100)
		defer env.clock.SetNow(now)

		_, err := env.svc.TakeOffer(
			ctx, fixture.hash, big.NewInt(1), randomAddress(), big.NewInt(50),
		)
		require.EqualError(t, err, domain.ErrOfferNotOpen.Error())
	})

	t.Run("maker_cannot_cover_remaining", func(t *testing.T) {
		fixture := env.newTokenOffer(t, true, "", 0)
		// drain most of the maker's source balance after creation
		_, err := env.ledger.Transfer(
			ctx, fixture.sourceAsset, fixture.maker, randomAddress(),
			big.NewInt(93029302-1),
		)
		require.NoError(t, err)

		_, err = env.svc.TakeOffer(
			ctx, fixture.hash, big.NewInt(1), randomAddress(), big.NewInt(50),
		)
		require.EqualError(t, err, domain.ErrOfferNotOpen.Error())
	})

	t.Run("partial_fill_not_allowed", func(t *testing.T) {
		fixture := env.newTokenOffer(t, false, "", 0)
		_, err := env.svc.TakeOffer(
			ctx, fixture.hash, big.NewInt(40000), randomAddress(), big.NewInt(50),
		)
		require.EqualError(t, err, domain.ErrPartialFillNotAllowed.Error())
	})

	t.Run("overfill_request", func(t *testing.T) {
		fixture := env.newTokenOffer(t, true, "", 0)
		_, err := env.svc.TakeOffer(
			ctx, fixture.hash, big.NewInt(100001), randomAddress(), big.NewInt(50),
		)
		require.EqualError(t, err, domain.ErrInvalidFillAmount.Error())
	})

	t.Run("zero_request", func(t *testing.T) {
		fixture := env.newTokenOffer(t, true, "", 0)
		_, err := env.svc.TakeOffer(
			ctx, fixture.hash, new(big.Int), randomAddress(), big.NewInt(50),
		)
		require.EqualError(t, err, domain.ErrInvalidFillAmount.Error())
	})

	t.Run("wrong_attached_value", func(t *testing.T) {
		fixture := env.newTokenOffer(t, true, "", 0)
		_, err := env.svc.TakeOffer(
			ctx, fixture.hash, big.NewInt(1), randomAddress(), big.NewInt(49),
		)
		require.EqualError(t, err, domain.ErrIncorrectValueAttached.Error())
	})

	t.Run("missing_allowance", func(t *testing.T) {
		fixture := env.newTokenOffer(t, true, "", 0)
		env.ledger.Approve(fixture.sourceAsset, fixture.maker, env.engine, new(big.Int))

		taker := randomAddress()
		env.fundTaker(taker, fixture.counterAsset, big.NewInt(1), fixture.fee)

		_, err := env.svc.TakeOffer(
			ctx, fixture.hash, big.NewInt(1), taker, big.NewInt(50),
		)
		var ledgerErr *application.LedgerError
		require.ErrorAs(t, err, &ledgerErr)
		require.Equal(t, application.LegSource, ledgerErr.Leg)
	})
}

func TestTakeOfferWithNativeCounterAsset(t *testing.T) {
	env := newTestEnv(t)

	maker := randomAddress()
	sourceAsset := randomAsset()
	env.ledger.Fund(sourceAsset, maker, big.NewInt(5000))
	env.ledger.Approve(sourceAsset, maker, env.engine, big.NewInt(5000))

	hash, err := env.svc.CreateOffer(ctx, application.OfferInput{
		MakerAddress:       maker,
		SourceAsset:        sourceAsset,
		SourceAmountTotal:  big.NewInt(5000),
		CounterAsset:       domain.NativeAsset,
		CounterAmountTotal: big.NewInt(2000),
		FeeAmountPerFill:   big.NewInt(50),
		PartialFillAllowed: false,
	})
	require.NoError(t, err)

	taker := randomAddress()
	env.ledger.Fund(domain.NativeAsset, taker, big.NewInt(2050))

	t.Run("fee_only_value_rejected", func(t *testing.T) {
		_, err := env.svc.TakeOffer(
			ctx, hash, big.NewInt(2000), taker, big.NewInt(50),
		)
		require.EqualError(t, err, domain.ErrIncorrectValueAttached.Error())
	})

	t.Run("counter_plus_fee_value_accepted", func(t *testing.T) {
		receipt, err := env.svc.TakeOffer(
			ctx, hash, big.NewInt(2000), taker, big.NewInt(2050),
		)
		require.NoError(t, err)
		require.Equal(t, "5000", receipt.SourceAmount.String())

		makerNative, err := env.ledger.BalanceOf(ctx, domain.NativeAsset, maker)
		require.NoError(t, err)
		require.Equal(t, "2000", makerNative.String())
	})
}

func TestCancelOffer(t *testing.T) {
	env := newTestEnv(t)
	fixture := env.newTokenOffer(t, true, "", 0)

	t.Run("unauthorized_cancel", func(t *testing.T) {
		err := env.svc.CancelOffer(ctx, fixture.hash, randomAddress())
		require.EqualError(t, err, domain.ErrUnauthorizedCancel.Error())
	})

	t.Run("cancel_by_maker", func(t *testing.T) {
		require.NoError(t, env.svc.CancelOffer(ctx, fixture.hash, fixture.maker))

		info, err := env.svc.GetOffer(ctx, fixture.hash)
		require.NoError(t, err)
		require.Equal(t, "canceled", info.Status)
	})

	t.Run("double_cancel", func(t *testing.T) {
		err := env.svc.CancelOffer(ctx, fixture.hash, fixture.maker)
		require.EqualError(t, err, domain.ErrOfferNotOpen.Error())
	})
}

// Two concurrent takes racing for amounts summing over the remaining
// capacity must end with exactly one success and one invalid-amount failure.
func TestConcurrentTakesNeverOverfill(t *testing.T) {
	env := newTestEnv(t)
	fixture := env.newTokenOffer(t, true, "", 0)

	takers := []string{randomAddress(), randomAddress()}
	for _, taker := range takers {
		env.fundTaker(taker, fixture.counterAsset, big.NewInt(60000), fixture.fee)
	}

	errs := make([]error, len(takers))
	var wg sync.WaitGroup
	for i, taker := range takers {
		wg.Add(1)
		go func(i int, taker string) {
			defer wg.Done()
			_, errs[i] = env.svc.TakeOffer(
				ctx, fixture.hash, big.NewInt(60000), taker, big.NewInt(50),
			)
		}(i, taker)
	}
	wg.Wait()

	var succeeded, failed int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		require.EqualError(t, err, domain.ErrInvalidFillAmount.Error())
		failed++
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, failed)

	info, err := env.svc.GetOffer(ctx, fixture.hash)
	require.NoError(t, err)
	require.Equal(t, "60000", info.CounterAmountFilled.String())
}

// failingLedger fails every transfer after the first n, so a multi-leg
// settlement breaks mid-flight and compensation must kick in.
type failingLedger struct {
	ports.Ledger

	locker    sync.Mutex
	transfers int
	failAfter int
}

func (l *failingLedger) Transfer(
	ctx context.Context, asset, from, to string, amount *big.Int,
) (*ports.TxReceipt, error) {
	l.locker.Lock()
	l.transfers++
	count := l.transfers
	l.locker.Unlock()

	if count == l.failAfter+1 {
		return nil, fmt.Errorf("transfer rejected")
	}
	return l.Ledger.Transfer(ctx, asset, from, to, amount)
}

func TestTakeOfferCompensatesFailedLeg(t *testing.T) {
	ledger := ledgerinmemory.NewLedger()
	manualClock := clock.NewManualClock(now)
	feeSink, engine := randomAddress(), randomAddress()
	// the source leg executes, the counter leg fails
	broken := &failingLedger{Ledger: ledger, failAfter: 1}

	svc, err := application.NewSettlementService(
		inmemory.NewRepoManager(), broken, manualClock, engine, feeSink,
	)
	require.NoError(t, err)

	maker, taker := randomAddress(), randomAddress()
	sourceAsset, counterAsset := randomAsset(), randomAsset()
	ledger.Fund(sourceAsset, maker, big.NewInt(5000))
	ledger.Approve(sourceAsset, maker, engine, big.NewInt(5000))
	ledger.Fund(counterAsset, taker, big.NewInt(2000))
	ledger.Fund(domain.NativeAsset, taker, big.NewInt(50))

	hash, err := svc.CreateOffer(ctx, application.OfferInput{
		MakerAddress:       maker,
		SourceAsset:        sourceAsset,
		SourceAmountTotal:  big.NewInt(5000),
		CounterAsset:       counterAsset,
		CounterAmountTotal: big.NewInt(2000),
		FeeAmountPerFill:   big.NewInt(50),
		PartialFillAllowed: false,
	})
	require.NoError(t, err)

	_, err = svc.TakeOffer(ctx, hash, big.NewInt(2000), taker, big.NewInt(50))
	var ledgerErr *application.LedgerError
	require.ErrorAs(t, err, &ledgerErr)
	require.Equal(t, application.LegCounter, ledgerErr.Leg)

	// the executed source leg was reversed and no fill was recorded
	makerSource, err := ledger.BalanceOf(ctx, sourceAsset, maker)
	require.NoError(t, err)
	require.Equal(t, "5000", makerSource.String())

	takerCounter, err := ledger.BalanceOf(ctx, counterAsset, taker)
	require.NoError(t, err)
	require.Equal(t, "2000", takerCounter.String())

	info, err := svc.GetOffer(ctx, hash)
	require.NoError(t, err)
	require.Empty(t, info.Fills)
	require.Equal(t, "opened", info.Status)
}

func TestListOffersAndFills(t *testing.T) {
	env := newTestEnv(t)

	designated := randomAddress()
	first := env.newTokenOffer(t, true, designated, 0)
	second := env.newTokenOffer(t, true, "", 0)

	t.Run("offers_by_maker", func(t *testing.T) {
		offers, err := env.svc.ListOffersByMaker(ctx, first.maker)
		require.NoError(t, err)
		require.Len(t, offers, 1)
		require.Equal(t, first.hash, offers[0].Hash)
	})

	t.Run("offers_restricted_to", func(t *testing.T) {
		offers, err := env.svc.ListOffersRestrictedTo(ctx, designated)
		require.NoError(t, err)
		require.Len(t, offers, 1)
		require.Equal(t, first.hash, offers[0].Hash)

		offers, err = env.svc.ListOffersRestrictedTo(ctx, randomAddress())
		require.NoError(t, err)
		require.Empty(t, offers)
	})

	t.Run("fills_by_taker", func(t *testing.T) {
		taker := randomAddress()
		env.fundTaker(taker, second.counterAsset, big.NewInt(40000), second.fee)

		_, err := env.svc.TakeOffer(
			ctx, second.hash, big.NewInt(40000), taker, big.NewInt(50),
		)
		require.NoError(t, err)

		fills, err := env.svc.ListFillsByTaker(ctx, taker)
		require.NoError(t, err)
		require.Len(t, fills, 1)
		require.Equal(t, second.hash, fills[0].OfferHash)
		require.Equal(t, "40000", fills[0].CounterAmount.String())
	})
}

func randomAddress() string {
	return randstr.Hex(20)
}

func randomAsset() string {
	return randstr.Hex(32)
}
