package domain_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/swapmarket/swapd/internal/core/domain"
	"github.com/thanhpk/randstr"
)

const now = int64(1700000000)

func TestNewSwapOffer(t *testing.T) {
	maker := randomAddress()
	sourceAsset, counterAsset := randomAsset(), randomAsset()

	offer, err := domain.NewSwapOffer(
		maker, "",
		sourceAsset, big.NewInt(93029302),
		counterAsset, big.NewInt(100000),
		big.NewInt(50), true,
		now, 0,
	)
	require.NoError(t, err)
	require.NotNil(t, offer)
	require.NotEmpty(t, offer.Hash)
	require.Equal(t, maker, offer.MakerAddress)
	require.False(t, offer.IsRestricted())
	require.Equal(t, domain.OfferStatusCodeOpened, offer.StatusCode)
	require.Empty(t, offer.Fills)
	require.Zero(t, offer.CounterAmountFilled().Sign())
	require.Equal(t, "93029302", offer.RemainingSourceAmount().String())
	require.Equal(t, "100000", offer.RemainingCounterAmount().String())
	require.Zero(t, offer.PercentFilled())

	other, err := domain.NewSwapOffer(
		maker, "",
		sourceAsset, big.NewInt(93029302),
		counterAsset, big.NewInt(100000),
		big.NewInt(50), true,
		now, 0,
	)
	require.NoError(t, err)
	require.NotEqual(t, offer.Hash, other.Hash)
}

func TestFailingNewSwapOffer(t *testing.T) {
	sourceAsset, counterAsset := randomAsset(), randomAsset()

	tests := []struct {
		name          string
		sourceAsset   string
		sourceAmount  *big.Int
		counterAsset  string
		counterAmount *big.Int
		expiresAt     int64
		expectedError error
	}{
		{
			"zero_source_amount",
			sourceAsset, new(big.Int), counterAsset, big.NewInt(1), 0,
			domain.ErrInvalidAmount,
		},
		{
			"zero_counter_amount",
			sourceAsset, big.NewInt(1), counterAsset, new(big.Int), 0,
			domain.ErrInvalidAmount,
		},
		{
			"same_assets",
			sourceAsset, big.NewInt(1), sourceAsset, big.NewInt(1), 0,
			domain.ErrInvalidAmount,
		},
		{
			"expiration_in_the_past",
			sourceAsset, big.NewInt(1), counterAsset, big.NewInt(1), now - 1,
			domain.ErrInvalidExpiration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.NewSwapOffer(
				randomAddress(), "",
				tt.sourceAsset, tt.sourceAmount,
				tt.counterAsset, tt.counterAmount,
				nil, false,
				now, tt.expiresAt,
			)
			require.EqualError(t, err, tt.expectedError.Error())
		})
	}
}

func TestDeriveReadableStatus(t *testing.T) {
	bigBalance := big.NewInt(1000000000)

	t.Run("opened", func(t *testing.T) {
		offer := newTestOffer(t, true, 0)
		require.Equal(
			t, domain.ReadableStatusOpened,
			offer.DeriveReadableStatus(now, bigBalance),
		)
	})

	t.Run("canceled_wins_over_everything", func(t *testing.T) {
		offer := newTestOffer(t, true, now+10)
		require.NoError(t, offer.Cancel())
		require.Equal(
			t, domain.ReadableStatusCanceled,
			offer.DeriveReadableStatus(now+100, new(big.Int)),
		)
	})

	t.Run("filled_wins_over_expired", func(t *testing.T) {
		offer := newTestOffer(t, true, now+10)
		require.NoError(t, offer.ApplyFill(newTestFill(offer.CounterAmountTotal)))
		require.Equal(
			t, domain.ReadableStatusFilled,
			offer.DeriveReadableStatus(now+100, new(big.Int)),
		)
	})

	t.Run("expired", func(t *testing.T) {
		offer := newTestOffer(t, true, now+10)
		require.Equal(
			t, domain.ReadableStatusExpired,
			offer.DeriveReadableStatus(now+100, bigBalance),
		)
	})

	t.Run("error_when_maker_cannot_cover", func(t *testing.T) {
		offer := newTestOffer(t, true, 0)
		require.Equal(
			t, domain.ReadableStatusError,
			offer.DeriveReadableStatus(now, big.NewInt(1)),
		)
	})

	t.Run("unknown_balance_is_not_an_error", func(t *testing.T) {
		offer := newTestOffer(t, true, 0)
		require.Equal(
			t, domain.ReadableStatusOpened,
			offer.DeriveReadableStatus(now, nil),
		)
	})
}

func TestApplyFill(t *testing.T) {
	t.Run("partial_fills_tracked", func(t *testing.T) {
		offer := newTestOffer(t, true, 0)

		require.NoError(t, offer.ApplyFill(newTestFill(big.NewInt(40000))))
		require.Equal(t, "40000", offer.CounterAmountFilled().String())
		require.Equal(t, "60000", offer.RemainingCounterAmount().String())
		require.Equal(t, 40, offer.PercentFilled())

		require.NoError(t, offer.ApplyFill(newTestFill(big.NewInt(60000))))
		require.True(t, offer.IsFullyFilled())
		require.Equal(t, 100, offer.PercentFilled())
	})

	t.Run("overfill_rejected", func(t *testing.T) {
		offer := newTestOffer(t, true, 0)
		require.NoError(t, offer.ApplyFill(newTestFill(big.NewInt(60000))))

		err := offer.ApplyFill(newTestFill(big.NewInt(60000)))
		require.EqualError(t, err, domain.ErrInvalidFillAmount.Error())
	})

	t.Run("non_partial_requires_exact_total", func(t *testing.T) {
		offer := newTestOffer(t, false, 0)

		err := offer.ApplyFill(newTestFill(big.NewInt(40000)))
		require.EqualError(t, err, domain.ErrPartialFillNotAllowed.Error())

		require.NoError(t, offer.ApplyFill(newTestFill(offer.CounterAmountTotal)))
		require.Len(t, offer.Fills, 1)
	})

	t.Run("canceled_offer_rejects_fills", func(t *testing.T) {
		offer := newTestOffer(t, true, 0)
		require.NoError(t, offer.Cancel())

		err := offer.ApplyFill(newTestFill(big.NewInt(1)))
		require.EqualError(t, err, domain.ErrOfferNotOpen.Error())
	})
}

func TestCancel(t *testing.T) {
	offer := newTestOffer(t, true, 0)
	require.NoError(t, offer.Cancel())
	require.True(t, offer.IsCanceled())

	err := offer.Cancel()
	require.EqualError(t, err, domain.ErrOfferNotOpen.Error())
}

func newTestOffer(t *testing.T, partial bool, expiresAt int64) *domain.SwapOffer {
	t.Helper()
	offer, err := domain.NewSwapOffer(
		randomAddress(), "",
		randomAsset(), big.NewInt(93029302),
		randomAsset(), big.NewInt(100000),
		big.NewInt(50), partial,
		now, expiresAt,
	)
	require.NoError(t, err)
	return offer
}

func newTestFill(counterAmount *big.Int) domain.Fill {
	return domain.Fill{
		Id:               randstr.Hex(16),
		TakerAddress:     randomAddress(),
		SourceAmount:     big.NewInt(1),
		CounterAmount:    new(big.Int).Set(counterAmount),
		FeeAmountCharged: big.NewInt(50),
		ClosedAt:         now,
	}
}

func randomAddress() string {
	return randstr.Hex(20)
}

func randomAsset() string {
	return randstr.Hex(32)
}
