// Package storage persists marketplace state in Pebble. Each live entity is
// one JSON record under a prefixed key; the engine issues targeted puts and
// deletes after every successful transition, and LoadState rebuilds the full
// in-memory state on startup by scanning the prefixes.
package storage

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"github.com/zrcswap/zrcswap/pkg/engine"
	"github.com/zrcswap/zrcswap/pkg/types"
)

type Store struct {
	db *pebble.DB
}

func Open(path string) (*Store, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) put(key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := s.db.Set(key, data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *Store) delete(key []byte) error {
	if err := s.db.Delete(key, pebble.Sync); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// ---- engine.Persister ----

func (s *Store) PutFixedOrder(o *types.FixedOrder) error {
	return s.put(orderKey(o.Key), o)
}

func (s *Store) DeleteFixedOrder(k types.FixedOrderKey) error {
	return s.delete(orderKey(k))
}

func (s *Store) PutListing(l *types.Listing) error {
	return s.put(listingKey(l.Token), l)
}

func (s *Store) DeleteListing(tok types.TokenKey) error {
	return s.delete(listingKey(tok))
}

func (s *Store) PutBid(b *types.TopBid) error {
	return s.put(bidKey(b.Token), b)
}

func (s *Store) DeleteBid(tok types.TokenKey) error {
	return s.delete(bidKey(tok))
}

func (s *Store) PutEscrow(e types.EscrowEntry) error {
	return s.put(escrowKey(e.Account, e.PaymentToken), &e)
}

func (s *Store) DeleteEscrow(account, payment common.Address) error {
	return s.delete(escrowKey(account, payment))
}

func (s *Store) PutClaim(c types.AssetClaim) error {
	return s.put(claimKey(c), &c)
}

func (s *Store) DeleteClaim(c types.AssetClaim) error {
	return s.delete(claimKey(c))
}

func (s *Store) PutItem(tok types.TokenKey, collectionID uint64) error {
	return s.put(itemKey(tok), &itemRecord{Token: tok, CollectionID: collectionID})
}

func (s *Store) PutCollection(c *types.Collection) error {
	return s.put(collectionKey(c.ID), c)
}

func (s *Store) PutConfig(cfg types.MarketConfig) error {
	return s.put(configKey(), &cfg)
}

var _ engine.Persister = (*Store)(nil)

// ---- startup load ----

// scan iterates every record under a prefix, handing the raw value to fn.
func (s *Store) scan(prefix []byte, fn func(val []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return fmt.Errorf("failed to open iterator for %s: %w", prefix, err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

// LoadConfig reads the administrative record. ok is false on a fresh store.
func (s *Store) LoadConfig() (types.MarketConfig, bool, error) {
	var cfg types.MarketConfig
	data, closer, err := s.db.Get(configKey())
	if err == pebble.ErrNotFound {
		return cfg, false, nil
	}
	if err != nil {
		return cfg, false, fmt.Errorf("failed to get config: %w", err)
	}
	defer closer.Close()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, false, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, true, nil
}

// LoadState rebuilds the full engine state from disk. ok is false when the
// store holds no config record, meaning the market was never initialized.
func (s *Store) LoadState() (*engine.State, bool, error) {
	cfg, ok, err := s.LoadConfig()
	if err != nil || !ok {
		return nil, false, err
	}

	st := engine.NewState(cfg.Owner)
	st.ApplyConfig(cfg)

	if err := s.scan([]byte(prefixOrder), func(val []byte) error {
		var o types.FixedOrder
		if err := json.Unmarshal(val, &o); err != nil {
			return fmt.Errorf("failed to unmarshal order: %w", err)
		}
		st.FixedOrders[o.Key] = &o
		return nil
	}); err != nil {
		return nil, false, err
	}

	if err := s.scan([]byte(prefixListing), func(val []byte) error {
		var l types.Listing
		if err := json.Unmarshal(val, &l); err != nil {
			return fmt.Errorf("failed to unmarshal listing: %w", err)
		}
		st.Listings[l.Token] = &l
		return nil
	}); err != nil {
		return nil, false, err
	}

	if err := s.scan([]byte(prefixBid), func(val []byte) error {
		var b types.TopBid
		if err := json.Unmarshal(val, &b); err != nil {
			return fmt.Errorf("failed to unmarshal bid: %w", err)
		}
		st.Bids[b.Token] = &b
		return nil
	}); err != nil {
		return nil, false, err
	}

	if err := s.scan([]byte(prefixEscrow), func(val []byte) error {
		var e types.EscrowEntry
		if err := json.Unmarshal(val, &e); err != nil {
			return fmt.Errorf("failed to unmarshal escrow entry: %w", err)
		}
		st.RestoreEscrow(e.Account, e.PaymentToken, &e.Amount)
		return nil
	}); err != nil {
		return nil, false, err
	}

	if err := s.scan([]byte(prefixClaim), func(val []byte) error {
		var c types.AssetClaim
		if err := json.Unmarshal(val, &c); err != nil {
			return fmt.Errorf("failed to unmarshal claim: %w", err)
		}
		st.RestoreClaim(c.Account, c.Token)
		return nil
	}); err != nil {
		return nil, false, err
	}

	if err := s.scan([]byte(prefixItem), func(val []byte) error {
		var rec itemRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return fmt.Errorf("failed to unmarshal item: %w", err)
		}
		st.Items[rec.Token] = rec.CollectionID
		return nil
	}); err != nil {
		return nil, false, err
	}

	if err := s.scan([]byte(prefixCollection), func(val []byte) error {
		var c types.Collection
		if err := json.Unmarshal(val, &c); err != nil {
			return fmt.Errorf("failed to unmarshal collection: %w", err)
		}
		st.Collections[c.ID] = &c
		return nil
	}); err != nil {
		return nil, false, err
	}

	return st, true, nil
}
