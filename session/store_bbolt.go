package session

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/Pery99/billpay/internal/util"
)

var (
	authBucket = []byte("auth")
	recordKey  = []byte("record")

	tokenKeyInfo = []byte("billpay:tokenstore:v1")
	tokenAAD     = []byte("auth:record")
)

// BoltStore persists the auth record in a bbolt database. The serialized
// record is sealed with a key derived from a machine-local keyfile, so the
// bearer token never touches disk in the clear.
type BoltStore struct {
	db  *bbolt.DB
	key []byte
	now func() time.Time
}

var _ Store = (*BoltStore)(nil)

// NewBoltStore wraps an open bbolt database with the given keyfile seed.
func NewBoltStore(db *bbolt.DB, seed []byte) (*BoltStore, error) {
	key, err := util.DeriveKey(seed, tokenKeyInfo)
	if err != nil {
		return nil, fmt.Errorf("deriving store key: %w", err)
	}
	return &BoltStore{db: db, key: key, now: time.Now}, nil
}

// NewBoltStoreFromFiles opens (creating if needed) the database at dbPath
// and the keyfile at keyPath.
func NewBoltStoreFromFiles(dbPath, keyPath string) (*BoltStore, error) {
	seed, err := util.LoadOrCreateKeyfile(keyPath)
	if err != nil {
		return nil, err
	}
	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}
	return NewBoltStore(db, seed)
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Put(rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	sealed, err := util.Seal(data, s.key, tokenAAD)
	if err != nil {
		return fmt.Errorf("sealing record: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(authBucket)
		if err != nil {
			return err
		}
		return b.Put(recordKey, sealed)
	})
}

func (s *BoltStore) Get() (Record, bool) {
	var sealed []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(authBucket)
		if b == nil {
			return nil
		}
		if v := b.Get(recordKey); v != nil {
			sealed = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil || sealed == nil {
		return Record{}, false
	}

	data, err := util.Open(sealed, s.key, tokenAAD)
	if err != nil {
		// Undecryptable state (rotated keyfile, corruption) is indistinguishable
		// from absence; drop it.
		_ = s.Clear()
		return Record{}, false
	}
	defer util.WipeBytes(data)

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		_ = s.Clear()
		return Record{}, false
	}
	if s.now().After(rec.ExpiresAt) {
		_ = s.Clear()
		return Record{}, false
	}
	return rec, true
}

func (s *BoltStore) Clear() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(authBucket)
		if b == nil {
			return nil
		}
		return b.Delete(recordKey)
	})
}
