package domain

import "errors"

var (
	// ErrInvalidAmount is thrown when creating an offer with a zero total or
	// with the same asset on both legs.
	ErrInvalidAmount = errors.New("offer amounts must be positive and assets must differ")
	// ErrInvalidExpiration is thrown when creating an offer whose expiration
	// date is already in the past.
	ErrInvalidExpiration = errors.New("expiration date must be zero or in the future")
	// ErrOfferNotFound ...
	ErrOfferNotFound = errors.New("offer not found")
	// ErrSelfTakeForbidden is thrown when a maker attempts to take their own offer.
	ErrSelfTakeForbidden = errors.New("maker cannot take their own offer")
	// ErrUnauthorizedTaker is thrown when a restricted offer is taken by
	// anyone but the designated counterparty.
	ErrUnauthorizedTaker = errors.New("offer is restricted to another taker")
	// ErrOfferNotOpen is thrown when taking or canceling an offer that is not
	// in the Opened status.
	ErrOfferNotOpen = errors.New("offer is not open")
	// ErrPartialFillNotAllowed is thrown when partially taking an offer that
	// only accepts a single full fill.
	ErrPartialFillNotAllowed = errors.New("offer does not allow partial fills")
	// ErrInvalidFillAmount is thrown when the requested counter amount is
	// zero or exceeds the remaining capacity of the offer.
	ErrInvalidFillAmount = errors.New("fill amount must be in (0, remaining counter amount]")
	// ErrIncorrectValueAttached is thrown when the native value attached to a
	// call does not match the required value exactly.
	ErrIncorrectValueAttached = errors.New("attached value does not match required value")
	// ErrUnauthorizedCancel is thrown when anyone but the maker cancels an offer.
	ErrUnauthorizedCancel = errors.New("only the maker can cancel the offer")
)
