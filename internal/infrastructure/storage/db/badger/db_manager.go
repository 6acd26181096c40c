package dbbadger

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dgraph-io/badger/v3"
	log "github.com/sirupsen/logrus"
	"github.com/swapmarket/swapd/internal/core/domain"
	"github.com/swapmarket/swapd/internal/core/ports"
	"github.com/timshannon/badgerhold/v4"
)

// DbManager opens and holds the badgerhold store and implements
// ports.RepoManager.
type DbManager struct {
	Store *badgerhold.Store

	offerRepository domain.OfferRepository
}

// NewRepoManager opens (or creates if not exists) the badger store on disk
// in a dedicated directory under the given base data dir.
func NewRepoManager(baseDbDir string, logger badger.Logger) (ports.RepoManager, error) {
	offerDb, err := createDb(baseDbDir+"/offers", logger)
	if err != nil {
		return nil, fmt.Errorf("opening offers db: %w", err)
	}

	manager := &DbManager{Store: offerDb}
	manager.offerRepository = NewOfferRepositoryImpl(manager)
	return manager, nil
}

func (d *DbManager) OfferRepository() domain.OfferRepository {
	return d.offerRepository
}

func (d *DbManager) Close() {
	if err := d.Store.Close(); err != nil {
		log.WithError(err).Warn("error while closing offers db")
	}
}

// JSONEncode is a custom JSON based encoder for badger.
func JSONEncode(value interface{}) ([]byte, error) {
	var buff bytes.Buffer

	en := json.NewEncoder(&buff)

	err := en.Encode(value)
	if err != nil {
		return nil, err
	}

	return buff.Bytes(), nil
}

// JSONDecode is a custom JSON based decoder for badger.
func JSONDecode(data []byte, value interface{}) error {
	var buff bytes.Buffer
	de := json.NewDecoder(&buff)

	_, err := buff.Write(data)
	if err != nil {
		return err
	}

	return de.Decode(value)
}

func createDb(dbDir string, logger badger.Logger) (db *badgerhold.Store, err error) {
	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	db, err = badgerhold.Open(badgerhold.Options{
		Encoder:          JSONEncode,
		Decoder:          JSONDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})

	return
}
