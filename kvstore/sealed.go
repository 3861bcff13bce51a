package kvstore

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	apperrors "github.com/jrsteele09/wydely-client/internal/errors"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	// KeySize is the length in bytes of a sealing key
	KeySize   = 32
	nonceSize = 24
)

var _ Store = (*SealedStore)(nil)

// SealedStore encrypts every value with NaCl secretbox before handing it to the
// wrapped store. Each value is stored as nonce || box.
type SealedStore struct {
	inner Store
	key   [KeySize]byte
}

// NewSealedStore wraps inner with the given 32 byte key.
func NewSealedStore(inner Store, key []byte) (*SealedStore, error) {
	if inner == nil {
		return nil, fmt.Errorf("[NewSealedStore] inner store is required")
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("[NewSealedStore] key must be %d bytes, got %d", KeySize, len(key))
	}
	ss := &SealedStore{inner: inner}
	copy(ss.key[:], key)
	return ss, nil
}

// ParseKey decodes a hex encoded sealing key.
func ParseKey(hexKey string) ([]byte, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("[ParseKey] decode: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("[ParseKey] key must be %d bytes, got %d", KeySize, len(key))
	}
	return key, nil
}

func (ss *SealedStore) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := ss.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, fmt.Errorf("[SealedStore.Get] %s: %w", key, apperrors.ErrCorruptValue)
	}

	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	value, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &ss.key)
	if !ok {
		return nil, fmt.Errorf("[SealedStore.Get] %s: %w", key, apperrors.ErrCorruptValue)
	}
	return value, nil
}

func (ss *SealedStore) Set(ctx context.Context, key string, value []byte) error {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("[SealedStore.Set] nonce: %w", err)
	}
	sealed := secretbox.Seal(nonce[:], value, &nonce, &ss.key)
	return ss.inner.Set(ctx, key, sealed)
}

func (ss *SealedStore) Delete(ctx context.Context, key string) error {
	return ss.inner.Delete(ctx, key)
}
