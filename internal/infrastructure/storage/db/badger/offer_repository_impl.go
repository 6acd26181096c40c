package dbbadger

import (
	"context"
	"sort"

	"github.com/swapmarket/swapd/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

type offerRepositoryImpl struct {
	db *DbManager
}

// NewOfferRepositoryImpl returns a badgerhold-backed OfferRepository.
func NewOfferRepositoryImpl(db *DbManager) domain.OfferRepository {
	return offerRepositoryImpl{db: db}
}

func (r offerRepositoryImpl) AddOffer(
	_ context.Context, offer *domain.SwapOffer,
) error {
	if err := r.db.Store.Insert(offer.Hash, offer); err != nil {
		if err != badgerhold.ErrKeyExists {
			return err
		}
	}
	return nil
}

func (r offerRepositoryImpl) GetOffer(
	_ context.Context, hash string,
) (*domain.SwapOffer, error) {
	var offer domain.SwapOffer
	if err := r.db.Store.Get(hash, &offer); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrOfferNotFound
		}
		return nil, err
	}
	return &offer, nil
}

func (r offerRepositoryImpl) UpdateOffer(
	ctx context.Context,
	hash string,
	updateFn func(o *domain.SwapOffer) (*domain.SwapOffer, error),
) error {
	currentOffer, err := r.GetOffer(ctx, hash)
	if err != nil {
		return err
	}

	updatedOffer, err := updateFn(currentOffer)
	if err != nil {
		return err
	}

	return r.db.Store.Update(hash, updatedOffer)
}

func (r offerRepositoryImpl) GetOffersByMaker(
	_ context.Context, maker string,
) ([]*domain.SwapOffer, error) {
	query := badgerhold.Where("MakerAddress").Eq(maker)
	return r.findOffers(query)
}

func (r offerRepositoryImpl) GetOffersRestrictedTo(
	_ context.Context, taker string,
) ([]*domain.SwapOffer, error) {
	query := badgerhold.Where("TakerAddress").Eq(taker)
	return r.findOffers(query)
}

func (r offerRepositoryImpl) GetFillsByTaker(
	_ context.Context, taker string,
) ([]domain.TakerFill, error) {
	var offers []domain.SwapOffer
	if err := r.db.Store.Find(&offers, nil); err != nil {
		return nil, err
	}

	fills := make([]domain.TakerFill, 0)
	for _, o := range offers {
		for _, f := range o.Fills {
			if f.TakerAddress == taker {
				fills = append(fills, domain.TakerFill{OfferHash: o.Hash, Fill: f})
			}
		}
	}
	sort.SliceStable(fills, func(i, j int) bool {
		return fills[i].ClosedAt < fills[j].ClosedAt
	})
	return fills, nil
}

func (r offerRepositoryImpl) findOffers(
	query *badgerhold.Query,
) ([]*domain.SwapOffer, error) {
	var found []domain.SwapOffer
	if err := r.db.Store.Find(&found, query); err != nil {
		return nil, err
	}

	// badgerhold returns results in key order, listings preserve creation
	// order instead.
	sort.SliceStable(found, func(i, j int) bool {
		if found[i].CreatedAt != found[j].CreatedAt {
			return found[i].CreatedAt < found[j].CreatedAt
		}
		return found[i].Hash < found[j].Hash
	})

	offers := make([]*domain.SwapOffer, 0, len(found))
	for i := range found {
		offers = append(offers, &found[i])
	}
	return offers, nil
}
