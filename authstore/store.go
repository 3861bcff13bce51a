// Package authstore persists the single authenticated session of a client
// installation and owns the rules for reading its expiry.
//
// Expiry timestamps are normalized once, when written. Reads only parse.
package authstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/wydely-client/internal/errors"
	"github.com/jrsteele09/wydely-client/kvstore"
	"github.com/rs/zerolog"
)

// StorageKey is the key the record lives under in every backend.
const StorageKey = "wydely-auth-data"

var (
	ErrInvalidExpiry      = apperrors.ErrInvalidExpiry
	ErrStorageUnavailable = apperrors.ErrStorageUnavailable
)

// Store reads and writes the AuthRecord in a key-value backend.
type Store struct {
	kv      kvstore.Store
	key     string
	logger  zerolog.Logger
	nowTime func() time.Time
}

// Option modifies a Store.
type Option func(*Store)

// WithNowFunc sets the clock used for expiry checks (primarily for testing)
func WithNowFunc(nowFunc func() time.Time) Option {
	return func(s *Store) {
		s.nowTime = nowFunc
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithKey overrides StorageKey, e.g. to keep several profiles in one backend.
func WithKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

func New(kv kvstore.Store, options ...Option) (*Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("[authstore.New] kv store is required")
	}
	s := &Store{
		kv:      kv,
		key:     StorageKey,
		logger:  zerolog.Nop(),
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Save normalizes the expiry of record and replaces the stored record with it.
// The normalized record is returned.
func (s *Store) Save(ctx context.Context, record AuthRecord) (AuthRecord, error) {
	expiresAt, err := NormalizeExpiry(record.AccessTokenExpiresAt)
	if err != nil {
		return AuthRecord{}, fmt.Errorf("[Store.Save] %w", err)
	}
	record.AccessTokenExpiresAt = expiresAt

	payload, err := json.Marshal(record)
	if err != nil {
		return AuthRecord{}, fmt.Errorf("[Store.Save] marshal: %w", err)
	}
	if err := s.kv.Set(ctx, s.key, payload); err != nil {
		return AuthRecord{}, fmt.Errorf("[Store.Save] %w", err)
	}
	return record, nil
}

// Get returns the stored record. A missing, unreadable or undecodable record is
// reported as absent; Get never writes.
func (s *Store) Get(ctx context.Context) (AuthRecord, bool) {
	payload, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !apperrors.Is(err, kvstore.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("auth record read failed")
		}
		return AuthRecord{}, false
	}

	var record AuthRecord
	if err := json.Unmarshal(payload, &record); err != nil {
		s.logger.Warn().Err(err).Msg("auth record is not valid JSON")
		return AuthRecord{}, false
	}
	return record, true
}

// Clear removes the stored record. Clearing an absent record succeeds.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("[Store.Clear] %w", err)
	}
	return nil
}

// GetValid returns the stored record if it has not expired. An expired record is
// cleared as a side effect and reported as absent.
func (s *Store) GetValid(ctx context.Context) (AuthRecord, bool) {
	record, ok := s.Get(ctx)
	if !ok {
		return AuthRecord{}, false
	}
	if !s.IsExpired(record) {
		return record, true
	}

	s.logger.Debug().Str("email", record.Email).Msg("evicting expired auth record")
	if err := s.Clear(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("failed to evict expired auth record")
	}
	return AuthRecord{}, false
}

// IsExpired checks record against the store's clock.
func (s *Store) IsExpired(record AuthRecord) bool {
	return IsTokenExpiredAt(record.AccessTokenExpiresAt, s.nowTime())
}
