// Package sessionstore persists per-showtime seating state in a small
// external key/value store.
package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a key has no value.
	ErrNotFound = errors.New("not found")
	// ErrInvalidKey is returned for keys the line protocol cannot carry.
	ErrInvalidKey = errors.New("invalid key")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("store closed")
)

// Key prefixes.
const (
	SessionPrefix = "sessions:"
	UserPrefix    = "users:"
)

// Store is a string-keyed store of JSON documents.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// SessionKey returns the key of a showtime's SessionRecord.
func SessionKey(sessionID string) string {
	return SessionPrefix + sessionID
}

// UserKey returns the key of a user profile.
func UserKey(email string) string {
	return UserPrefix + strings.ToLower(email)
}

// ValidKey reports whether key is non-empty and free of whitespace.
func ValidKey(key string) bool {
	return key != "" && !strings.ContainsAny(key, " \t\r\n")
}

// GetJSON loads key and decodes it into v.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.Set(ctx, key, data)
}
