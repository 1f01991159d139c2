package boltstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// Bucket names owned by the client state database.
const (
	BucketCart    = "cart"
	BucketSession = "session"
	BucketMerge   = "merge"
	BucketCookies = "cookies"
)

// DefaultBuckets are created on open so domain stores never race on setup.
var DefaultBuckets = []string{BucketCart, BucketSession, BucketMerge, BucketCookies}

// ErrKeyNotFound is returned by Get when the key has no stored value.
var ErrKeyNotFound = errors.New("boltstore: key not found")

// Client wraps the bbolt database holding all local storefront state.
type Client struct {
	db *bbolt.DB
}

// Open creates the state directory if needed and opens the database. The
// open timeout turns a held file lock (another running command) into an
// error instead of an indefinite block.
func Open(path string, buckets ...string) (*Client, error) {
	if path == "" {
		return nil, errors.New("boltstore: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}

	client := &Client{db: db}
	if len(buckets) == 0 {
		buckets = DefaultBuckets
	}
	if err := client.initBuckets(buckets); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing buckets: %w", err)
	}
	return client, nil
}

func (c *Client) initBuckets(buckets []string) error {
	return c.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("creating bucket %q: %w", name, err)
			}
		}
		return nil
	})
}

// Put stores value under key in the named bucket.
func (c *Client) Put(ctx context.Context, bucket string, key, value []byte) error {
	if c == nil || c.db == nil {
		return errors.New("boltstore: client not initialized")
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucket)
		}
		return b.Put(key, value)
	})
}

// Get returns the value stored under key, or ErrKeyNotFound.
func (c *Client) Get(ctx context.Context, bucket string, key []byte) ([]byte, error) {
	if c == nil || c.db == nil {
		return nil, errors.New("boltstore: client not initialized")
	}
	var value []byte
	err := c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucket)
		}
		stored := b.Get(key)
		if stored == nil {
			return ErrKeyNotFound
		}
		// bbolt memory is only valid inside the transaction.
		value = make([]byte, len(stored))
		copy(value, stored)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Delete removes key from the named bucket. Deleting an absent key is a no-op.
func (c *Client) Delete(ctx context.Context, bucket string, key []byte) error {
	if c == nil || c.db == nil {
		return errors.New("boltstore: client not initialized")
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucket))
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucket)
		}
		return b.Delete(key)
	})
}

// Close shuts down the underlying database if available.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}
