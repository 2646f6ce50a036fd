// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package lvldb implements kv.Store on goleveldb.
package lvldb

import (
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/filter"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/vechain/stakepool/kv"
	"github.com/vechain/stakepool/metrics"
)

var (
	_ kv.StoreCloser = (*LevelDB)(nil)

	writeOpt = opt.WriteOptions{Sync: true}
	readOpt  = opt.ReadOptions{}

	metricBatchWrites = metrics.LazyLoadHistogram("db_batch_ops", []int64{1, 4, 16, 64, 256, 1024, 4096})
)

const minCacheSize = 16 // MiB

// Options for opening a persistent database.
type Options struct {
	CacheSize              int // MiB
	OpenFilesCacheCapacity int
	ReadOnly               bool
}

// LevelDB is a kv.Store backed by goleveldb.
type LevelDB struct {
	db       *leveldb.DB
	stg      storage.Storage
	readOnly bool
}

// New opens the database at path, creating it unless opts.ReadOnly is set.
func New(path string, opts Options) (*LevelDB, error) {
	stg, err := storage.OpenFile(path, opts.ReadOnly)
	if err != nil {
		return nil, errors.Wrap(err, "open storage")
	}
	return open(stg, opts)
}

// NewMem creates a database held in memory.
func NewMem() (*LevelDB, error) {
	return open(storage.NewMemStorage(), Options{})
}

func open(stg storage.Storage, opts Options) (*LevelDB, error) {
	cacheSize := max(opts.CacheSize, minCacheSize)
	db, err := leveldb.Open(stg, &opt.Options{
		OpenFilesCacheCapacity: max(opts.OpenFilesCacheCapacity, 16),
		BlockCacheCapacity:     cacheSize / 2 * opt.MiB,
		WriteBuffer:            cacheSize / 4 * opt.MiB, // two of these are used internally
		Filter:                 filter.NewBloomFilter(10),
		ReadOnly:               opts.ReadOnly,
		ErrorIfMissing:         opts.ReadOnly,
	})
	if err != nil {
		stg.Close()
		return nil, errors.Wrap(err, "open level db")
	}
	return &LevelDB{db: db, stg: stg, readOnly: opts.ReadOnly}, nil
}

// ReadOnly reports whether writes are rejected.
func (ldb *LevelDB) ReadOnly() bool { return ldb.readOnly }

func (ldb *LevelDB) IsNotFound(err error) bool {
	return errors.Is(err, leveldb.ErrNotFound)
}

func (ldb *LevelDB) Get(key []byte) ([]byte, error) {
	return ldb.db.Get(key, &readOpt)
}

func (ldb *LevelDB) Has(key []byte) (bool, error) {
	return ldb.db.Has(key, &readOpt)
}

func (ldb *LevelDB) Put(key, value []byte) error {
	return ldb.db.Put(key, value, &writeOpt)
}

func (ldb *LevelDB) Delete(key []byte) error {
	return ldb.db.Delete(key, &writeOpt)
}

// Close releases the database and the file lock on its directory. Later calls fail.
func (ldb *LevelDB) Close() error {
	if err := ldb.db.Close(); err != nil {
		return err
	}
	return ldb.stg.Close()
}

func (ldb *LevelDB) NewBatch() kv.Batch {
	return &batch{ldb.db, new(leveldb.Batch)}
}

// Iterate walks r in key order.
func (ldb *LevelDB) Iterate(r kv.Range) kv.Iterator {
	rng := &util.Range{Start: r.Start}
	if len(r.Limit) > 0 {
		rng.Limit = r.Limit
	}
	return ldb.db.NewIterator(rng, &readOpt)
}

type batch struct {
	db *leveldb.DB
	b  *leveldb.Batch
}

func (b *batch) Put(key, value []byte) error {
	b.b.Put(key, value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.b.Delete(key)
	return nil
}

func (b *batch) Len() int { return b.b.Len() }

// Write applies every queued op atomically.
func (b *batch) Write() error {
	if err := b.db.Write(b.b, &writeOpt); err != nil {
		return err
	}
	metricBatchWrites().Observe(int64(b.b.Len()))
	return nil
}
