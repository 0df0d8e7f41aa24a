package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"go.etcd.io/bbolt"
)

var bucketSummaries = []byte("summaries")

// RunStore caches per-batch summaries in a bbolt database so re-running the
// summarization stage skips batches whose prompt has not changed.
type RunStore struct {
	db *bbolt.DB
}

func OpenRunStore(path string) (*RunStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open run store: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSummaries)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &RunStore{db: db}, nil
}

func (s *RunStore) Close() error {
	return s.db.Close()
}

// SummaryKey derives the cache key for a batch prompt.
func SummaryKey(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])
}

// GetSummary returns the cached summary for key, if any.
func (s *RunStore) GetSummary(key string) (string, bool, error) {
	var text string
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketSummaries).Get([]byte(key))
		if data != nil {
			text = string(data)
			found = true
		}
		return nil
	})
	return text, found, err
}

// PutSummary caches the summary for key.
func (s *RunStore) PutSummary(key, text string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSummaries).Put([]byte(key), []byte(text))
	})
}
