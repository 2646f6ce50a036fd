// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package store lays out pools, keepers and payee balances in a kv store.
package store

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/vechain/stakepool/bank"
	"github.com/vechain/stakepool/keeper"
	"github.com/vechain/stakepool/kv"
	"github.com/vechain/stakepool/pool"
)

const schemaVersion = 1

var (
	poolBucket   = kv.Bucket("p")
	keeperBucket = kv.Bucket("k")
	metaBucket   = kv.Bucket("m")

	versionKey = []byte("version")
	bankKey    = []byte("bank")
)

func indexKey(index uint64) []byte {
	var k [8]byte
	binary.BigEndian.PutUint64(k[:], index)
	return k[:]
}

// Store reads and writes the persisted state.
type Store struct {
	db      kv.Store
	pools   kv.Store
	keepers kv.Store
	meta    kv.Store
}

func New(db kv.Store) *Store {
	return &Store{
		db:      db,
		pools:   poolBucket.NewStore(db),
		keepers: keeperBucket.NewStore(db),
		meta:    metaBucket.NewStore(db),
	}
}

// Snapshot is everything written by one Write call. Pool and keeper values are
// already encoded, so callers can encode in parallel.
type Snapshot struct {
	Pools   map[uint64][]byte
	Keepers map[uint64][]byte
	Bank    []bank.Entry
}

// Write stores snap in one atomic batch.
func (s *Store) Write(snap *Snapshot) error {
	bankData, err := encodeBank(snap.Bank)
	if err != nil {
		return err
	}
	batch := s.db.NewBatch()
	pools := poolBucket.NewPutter(batch)
	keepers := keeperBucket.NewPutter(batch)
	meta := metaBucket.NewPutter(batch)

	for index, data := range snap.Pools {
		if err := pools.Put(indexKey(index), data); err != nil {
			return err
		}
	}
	for index, data := range snap.Keepers {
		if err := keepers.Put(indexKey(index), data); err != nil {
			return err
		}
	}
	if err := meta.Put(bankKey, bankData); err != nil {
		return err
	}
	if err := meta.Put(versionKey, indexKey(schemaVersion)); err != nil {
		return err
	}
	return errors.Wrap(batch.Write(), "write snapshot")
}

// Version returns the schema version, zero for an empty store.
func (s *Store) Version() (uint64, error) {
	v, err := s.meta.Get(versionKey)
	if err != nil {
		if s.meta.IsNotFound(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "read version")
	}
	if len(v) != 8 {
		return 0, errors.New("malformed version")
	}
	return binary.BigEndian.Uint64(v), nil
}

func (s *Store) checkVersion() (bool, error) {
	v, err := s.Version()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case schemaVersion:
		return true, nil
	}
	return false, errors.Errorf("unsupported schema version %d", v)
}

func iterate(src kv.Store, fn func(value []byte) error) error {
	it := src.Iterate(kv.Range{})
	defer it.Release()
	for it.Next() {
		if err := fn(it.Value()); err != nil {
			return err
		}
	}
	return it.Error()
}

// LoadPools returns every stored pool ordered by index.
func (s *Store) LoadPools() ([]pool.State, error) {
	if ok, err := s.checkVersion(); !ok {
		return nil, err
	}
	var states []pool.State
	err := iterate(s.pools, func(v []byte) error {
		st, err := DecodePool(v)
		if err != nil {
			return err
		}
		states = append(states, st)
		return nil
	})
	return states, err
}

// LoadKeepers returns every stored keeper ordered by index.
func (s *Store) LoadKeepers() ([]keeper.State, error) {
	if ok, err := s.checkVersion(); !ok {
		return nil, err
	}
	var states []keeper.State
	err := iterate(s.keepers, func(v []byte) error {
		st, err := DecodeKeeper(v)
		if err != nil {
			return err
		}
		states = append(states, st)
		return nil
	})
	return states, err
}

// LoadBank returns the stored payee balances.
func (s *Store) LoadBank() ([]bank.Entry, error) {
	if ok, err := s.checkVersion(); !ok {
		return nil, err
	}
	data, err := s.meta.Get(bankKey)
	if err != nil {
		if s.meta.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "read bank")
	}
	return decodeBank(data)
}
