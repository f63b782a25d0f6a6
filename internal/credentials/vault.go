// Package credentials persists the bearer token and its scheme in a
// local BoltDB file, the client-side durable key/value store read at
// process start to decide the initial authenticated state.
package credentials

import (
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketName = []byte("credentials")
	keyToken   = []byte("token")
	keyScheme  = []byte("token_type")
)

// Vault is the bbolt-backed credential store. It satisfies
// session.Vault.
type Vault struct {
	db *bolt.DB
}

// Open initializes the BoltDB file and ensures the bucket exists.
func Open(path string) (*Vault, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}

	return &Vault{db: db}, nil
}

// Store saves the token pair, overwriting any previous one.
func (v *Vault) Store(token, scheme string) error {
	if v == nil || v.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return v.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if err := bucket.Put(keyToken, []byte(token)); err != nil {
			return err
		}
		return bucket.Put(keyScheme, []byte(scheme))
	})
}

// Load reads the persisted token pair. An empty token means no
// credentials are stored.
func (v *Vault) Load() (token, scheme string, err error) {
	if v == nil || v.db == nil {
		return "", "", bolt.ErrDatabaseNotOpen
	}
	err = v.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		token = string(bucket.Get(keyToken))
		scheme = string(bucket.Get(keyScheme))
		return nil
	})
	return token, scheme, err
}

// Clear removes the persisted token pair.
func (v *Vault) Clear() error {
	if v == nil || v.db == nil {
		return bolt.ErrDatabaseNotOpen
	}
	return v.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if err := bucket.Delete(keyToken); err != nil {
			return err
		}
		return bucket.Delete(keyScheme)
	})
}

// Close closes the Bolt database.
func (v *Vault) Close() error {
	if v == nil || v.db == nil {
		return nil
	}
	return v.db.Close()
}
