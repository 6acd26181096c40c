package inmemory

import (
	"context"
	"math/big"
	"sort"

	"github.com/swapmarket/swapd/internal/core/domain"
)

type offerRepositoryImpl struct {
	store *offerInmemoryStore
}

// NewOfferRepositoryImpl returns a new inmemory OfferRepository implementation.
func NewOfferRepositoryImpl(store *offerInmemoryStore) domain.OfferRepository {
	return &offerRepositoryImpl{store}
}

func (r *offerRepositoryImpl) AddOffer(
	_ context.Context, offer *domain.SwapOffer,
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	if _, ok := r.store.offers[offer.Hash]; ok {
		return nil
	}

	r.store.offers[offer.Hash] = *copyOffer(offer)
	r.store.insertionOrder = append(r.store.insertionOrder, offer.Hash)
	r.store.offersByMaker[offer.MakerAddress] = append(
		r.store.offersByMaker[offer.MakerAddress], offer.Hash,
	)
	if offer.IsRestricted() {
		r.store.offersByTaker[offer.TakerAddress] = append(
			r.store.offersByTaker[offer.TakerAddress], offer.Hash,
		)
	}
	return nil
}

func (r *offerRepositoryImpl) GetOffer(
	_ context.Context, hash string,
) (*domain.SwapOffer, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	return r.getOffer(hash)
}

func (r *offerRepositoryImpl) UpdateOffer(
	_ context.Context,
	hash string,
	updateFn func(o *domain.SwapOffer) (*domain.SwapOffer, error),
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	currentOffer, err := r.getOffer(hash)
	if err != nil {
		return err
	}

	updatedOffer, err := updateFn(currentOffer)
	if err != nil {
		return err
	}

	r.store.offers[hash] = *copyOffer(updatedOffer)
	return nil
}

func (r *offerRepositoryImpl) GetOffersByMaker(
	_ context.Context, maker string,
) ([]*domain.SwapOffer, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	return r.offersFromHashes(r.store.offersByMaker[maker]), nil
}

func (r *offerRepositoryImpl) GetOffersRestrictedTo(
	_ context.Context, taker string,
) ([]*domain.SwapOffer, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	return r.offersFromHashes(r.store.offersByTaker[taker]), nil
}

func (r *offerRepositoryImpl) GetFillsByTaker(
	_ context.Context, taker string,
) ([]domain.TakerFill, error) {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	fills := make([]domain.TakerFill, 0)
	for _, hash := range r.store.insertionOrder {
		offer := r.store.offers[hash]
		for _, f := range offer.Fills {
			if f.TakerAddress == taker {
				fills = append(fills, domain.TakerFill{
					OfferHash: hash, Fill: copyFill(f),
				})
			}
		}
	}
	sort.SliceStable(fills, func(i, j int) bool {
		return fills[i].ClosedAt < fills[j].ClosedAt
	})
	return fills, nil
}

func (r *offerRepositoryImpl) getOffer(hash string) (*domain.SwapOffer, error) {
	offer, ok := r.store.offers[hash]
	if !ok {
		return nil, domain.ErrOfferNotFound
	}
	return copyOffer(&offer), nil
}

func (r *offerRepositoryImpl) offersFromHashes(hashes []string) []*domain.SwapOffer {
	offers := make([]*domain.SwapOffer, 0, len(hashes))
	for _, hash := range hashes {
		if offer, ok := r.store.offers[hash]; ok {
			offers = append(offers, copyOffer(&offer))
		}
	}
	return offers
}

// copyOffer deep-copies an offer so callers never share big.Int or fill
// slice storage with the store.
func copyOffer(o *domain.SwapOffer) *domain.SwapOffer {
	offer := *o
	offer.SourceAmountTotal = new(big.Int).Set(o.SourceAmountTotal)
	offer.CounterAmountTotal = new(big.Int).Set(o.CounterAmountTotal)
	offer.FeeAmountPerFill = new(big.Int).Set(o.FeeAmountPerFill)
	offer.Fills = make([]domain.Fill, 0, len(o.Fills))
	for _, f := range o.Fills {
		offer.Fills = append(offer.Fills, copyFill(f))
	}
	return &offer
}

func copyFill(f domain.Fill) domain.Fill {
	fill := f
	fill.SourceAmount = new(big.Int).Set(f.SourceAmount)
	fill.CounterAmount = new(big.Int).Set(f.CounterAmount)
	fill.FeeAmountCharged = new(big.Int).Set(f.FeeAmountCharged)
	return fill
}
