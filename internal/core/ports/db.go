package ports

import "github.com/swapmarket/swapd/internal/core/domain"

// RepoManager holds all the domain repositories and manages the lifecycle of
// the underlying store.
type RepoManager interface {
	// OfferRepository returns the repository persisting swap offers.
	OfferRepository() domain.OfferRepository
	// Close closes the connection with the underlying store.
	Close()
}
