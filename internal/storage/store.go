package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/homepilot/backend/internal/domain"
	"github.com/homepilot/backend/internal/pkg/utils"
)

var ErrNotFound = errors.New("asset not found")

const (
	metaPrefix = "asset:"
	blobPrefix = "blob:"
)

// Store keeps uploaded assets in badger: metadata under asset:<id>,
// raw bytes under blob:<id>. Bytes are returned exactly as stored.
type Store struct {
	db *badger.DB
}

func New(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).
		WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Put(name, contentType string, data []byte) (*domain.Asset, error) {
	asset := &domain.Asset{
		ID:          utils.GenerateAssetID(),
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		CreatedAt:   time.Now(),
	}

	meta, err := json.Marshal(asset)
	if err != nil {
		return nil, fmt.Errorf("marshal asset: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(metaPrefix+asset.ID), meta); err != nil {
			return err
		}
		return txn.Set([]byte(blobPrefix+asset.ID), data)
	})
	if err != nil {
		return nil, fmt.Errorf("store asset: %w", err)
	}

	return asset, nil
}

func (s *Store) Get(id string) (*domain.Asset, []byte, error) {
	var asset domain.Asset
	var data []byte

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaPrefix + id))
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &asset)
		}); err != nil {
			return err
		}

		item, err = txn.Get([]byte(blobPrefix + id))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, err
	}

	return &asset, data, nil
}

func (s *Store) List() ([]*domain.Asset, error) {
	var assets []*domain.Asset

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(metaPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var a domain.Asset
				if err := json.Unmarshal(val, &a); err != nil {
					return err
				}
				assets = append(assets, &a)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	return assets, err
}
