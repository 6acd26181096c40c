package inmemory

import (
	"sync"

	"github.com/swapmarket/swapd/internal/core/domain"
	"github.com/swapmarket/swapd/internal/core/ports"
)

type offerInmemoryStore struct {
	locker         sync.Mutex
	offers         map[string]domain.SwapOffer
	offersByMaker  map[string][]string
	offersByTaker  map[string][]string
	insertionOrder []string
}

// DbManager holds the in-memory stores in a single data structure and
// implements ports.RepoManager.
type DbManager struct {
	offerRepository domain.OfferRepository
}

// NewRepoManager returns a RepoManager backed by volatile in-memory maps,
// used by tests and no-persistence runs.
func NewRepoManager() ports.RepoManager {
	store := &offerInmemoryStore{
		offers:         make(map[string]domain.SwapOffer),
		offersByMaker:  make(map[string][]string),
		offersByTaker:  make(map[string][]string),
		insertionOrder: make([]string, 0),
	}
	return &DbManager{
		offerRepository: NewOfferRepositoryImpl(store),
	}
}

func (d *DbManager) OfferRepository() domain.OfferRepository {
	return d.offerRepository
}

func (d *DbManager) Close() {}
