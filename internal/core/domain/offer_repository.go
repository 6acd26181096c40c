package domain

import "context"

// TakerFill pairs a fill with the hash of the offer it was executed against,
// for taker history views.
type TakerFill struct {
	OfferHash string
	Fill
}

// OfferRepository is the abstraction for any kind of database intended to
// persist SwapOffers. Offers are never deleted, listing queries preserve
// insertion order.
type OfferRepository interface {
	// AddOffer inserts a new offer and indexes it by maker and, when
	// restricted, by taker address.
	AddOffer(ctx context.Context, offer *SwapOffer) error
	// GetOffer returns the offer with the given hash, or ErrOfferNotFound.
	GetOffer(ctx context.Context, hash string) (*SwapOffer, error)
	// UpdateOffer commits multiple changes to the same offer in a
	// transactional way.
	UpdateOffer(
		ctx context.Context,
		hash string,
		updateFn func(o *SwapOffer) (*SwapOffer, error),
	) error
	// GetOffersByMaker returns all offers created by the given address.
	GetOffersByMaker(ctx context.Context, maker string) ([]*SwapOffer, error)
	// GetOffersRestrictedTo returns all offers reserved for the given taker.
	GetOffersRestrictedTo(ctx context.Context, taker string) ([]*SwapOffer, error)
	// GetFillsByTaker returns all fills executed by the given address across
	// all offers, in chronological order.
	GetFillsByTaker(ctx context.Context, taker string) ([]TakerFill, error)
}
