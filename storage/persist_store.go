package storage

import (
	"bytes"

	"github.com/colorfulnotion/zkapply/common"
	"github.com/colorfulnotion/zkapply/log"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	leveldbstorage "github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// PersistenceStore wraps LevelDB for raw key-value persistence of ledger
// accounts. It knows nothing about accounts or merkle roots.
type PersistenceStore struct {
	db   *leveldb.DB
	path string
}

// NewPersistenceStore opens or creates a LevelDB database at the given path.
// If path is empty, uses in-memory storage.
func NewPersistenceStore(path string) (*PersistenceStore, error) {
	var db *leveldb.DB
	var err error

	if path == "" {
		db, err = leveldb.Open(leveldbstorage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "open database at %q", path)
	}
	log.Debug(log.StorageMonitoring, "opened persistence store", "path", path)
	return &PersistenceStore{db: db, path: path}, nil
}

// NewMemoryPersistenceStore creates an in-memory PersistenceStore for testing.
func NewMemoryPersistenceStore() (*PersistenceStore, error) {
	return NewPersistenceStore("")
}

// Get retrieves a value by key. Returns (nil, false, nil) if not found.
func (ps *PersistenceStore) Get(key []byte) ([]byte, bool, error) {
	data, err := ps.db.Get(key, nil)
	if err == leveldb.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "get %x", key)
	}
	return data, true, nil
}

func (ps *PersistenceStore) Put(key []byte, value []byte) error {
	return errors.Wrapf(ps.db.Put(key, value, nil), "put %x", key)
}

func (ps *PersistenceStore) Delete(key []byte) error {
	return errors.Wrapf(ps.db.Delete(key, nil), "delete %x", key)
}

// Batch is a set of writes committed atomically by Write.
type Batch struct {
	b leveldb.Batch
}

func (b *Batch) Put(key, value []byte) { b.b.Put(key, value) }
func (b *Batch) Delete(key []byte)     { b.b.Delete(key) }
func (b *Batch) Len() int              { return b.b.Len() }

// Write commits the batch.
func (ps *PersistenceStore) Write(b *Batch) error {
	if err := ps.db.Write(&b.b, nil); err != nil {
		return errors.Wrapf(err, "write batch of %d", b.Len())
	}
	log.Trace(log.StorageMonitoring, "batch written", "ops", b.Len())
	return nil
}

// GetWithPrefix returns all key-value pairs with the given prefix, in key
// order.
func (ps *PersistenceStore) GetWithPrefix(prefix []byte) ([][2][]byte, error) {
	iter := ps.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	var results [][2][]byte
	for iter.Next() {
		// the iterator reuses its buffers
		results = append(results, [2][]byte{bytes.Clone(iter.Key()), bytes.Clone(iter.Value())})
	}
	if err := iter.Error(); err != nil {
		return nil, errors.Wrapf(err, "scan prefix %x", prefix)
	}
	return results, nil
}

// GetHash returns an error if not found (unlike Get which returns found=false).
func (ps *PersistenceStore) GetHash(key common.Hash) ([]byte, error) {
	data, err := ps.db.Get(key.Bytes(), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "get %s", key.Hex())
	}
	return data, nil
}

func (ps *PersistenceStore) PutHash(key common.Hash, value []byte) error {
	return errors.Wrapf(ps.db.Put(key.Bytes(), value, nil), "put %s", key.Hex())
}

func (ps *PersistenceStore) DeleteHash(key common.Hash) error {
	return errors.Wrapf(ps.db.Delete(key.Bytes(), nil), "delete %s", key.Hex())
}

// IsNotFound reports whether err came from a missing key.
func IsNotFound(err error) bool {
	return errors.Cause(err) == leveldb.ErrNotFound
}

func (ps *PersistenceStore) Path() string { return ps.path }

func (ps *PersistenceStore) Close() error {
	return errors.Wrap(ps.db.Close(), "close database")
}
