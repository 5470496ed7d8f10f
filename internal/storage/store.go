package storage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)

// Record is one stored value. Values are JSON documents owned by the caller;
// Timestamp is the time of the last Put.
type Record struct {
	Key       string
	Value     []byte
	Timestamp time.Time
}

// Store is a small key/value store with a per-value size quota.
type Store interface {
	Get(ctx context.Context, key string) (Record, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Key prefixes shared by the services.
const (
	ChatMessagesPrefix = "chatMessages:"
	MinistryProjectKey = "ministryProjects"
	AuthSessionPrefix  = "auth:"
)

func checkQuota(key string, value []byte, maxBytes int) error {
	if maxBytes > 0 && len(value) > maxBytes {
		return fmt.Errorf("put %s (%d bytes, limit %d): %w", key, len(value), maxBytes, ErrQuotaExceeded)
	}
	return nil
}
