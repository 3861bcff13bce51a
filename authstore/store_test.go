package authstore_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/wydely-client/authstore"
	"github.com/jrsteele09/wydely-client/kvstore"
	"github.com/stretchr/testify/require"
)

var errDiskFull = errors.New("disk full")

// failingKV wraps a MemoryStore and fails writes on demand.
type failingKV struct {
	*kvstore.MemoryStore
	failWrites bool
}

func (f *failingKV) Set(ctx context.Context, key string, value []byte) error {
	if f.failWrites {
		return errors.Join(kvstore.ErrStorageUnavailable, errDiskFull)
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func (f *failingKV) Delete(ctx context.Context, key string) error {
	if f.failWrites {
		return errors.Join(kvstore.ErrStorageUnavailable, errDiskFull)
	}
	return f.MemoryStore.Delete(ctx, key)
}

func testRecord(expiresAt string) authstore.AuthRecord {
	return authstore.AuthRecord{
		AccessToken:          "a",
		RefreshToken:         "b",
		SessionID:            "s1",
		TenantID:             "biz1",
		AccessTokenExpiresAt: expiresAt,
		Email:                "u@x.com",
	}
}

func newStore(t *testing.T, kv kvstore.Store, options ...authstore.Option) *authstore.Store {
	t.Helper()
	store, err := authstore.New(kv, options...)
	require.NoError(t, err)
	return store
}

func TestStore_SaveGet(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		store := newStore(t, kvstore.NewMemoryStore())
		record := testRecord("2099-01-01T00:00:00.000Z")

		saved, err := store.Save(t.Context(), record)
		require.NoError(t, err)
		require.Equal(t, record, saved)

		got, ok := store.Get(t.Context())
		require.True(t, ok)
		require.Equal(t, record, got)

		require.NoError(t, store.Clear(t.Context()))

		_, ok = store.Get(t.Context())
		require.False(t, ok)
	})

	t.Run("normalizes expiry at write", func(t *testing.T) {
		for _, raw := range []string{"2099-01-01T00:00:00", "2099-01-01T00:00:00Z", "2099-01-01T02:00:00+02:00"} {
			store := newStore(t, kvstore.NewMemoryStore())
			_, err := store.Save(t.Context(), testRecord(raw))
			require.NoError(t, err)

			got, ok := store.Get(t.Context())
			require.True(t, ok)
			require.True(t, strings.HasSuffix(got.AccessTokenExpiresAt, "Z"), got.AccessTokenExpiresAt)

			want, err := authstore.ParseExpiry(raw)
			require.NoError(t, err)
			stored, err := authstore.ParseExpiry(got.AccessTokenExpiresAt)
			require.NoError(t, err)
			require.True(t, want.Equal(stored), "stored expiry must be the same instant as %s", raw)
		}
	})

	t.Run("uses the shared JSON layout", func(t *testing.T) {
		kv := kvstore.NewMemoryStore()
		store := newStore(t, kv)
		_, err := store.Save(t.Context(), testRecord("2099-01-01T00:00:00"))
		require.NoError(t, err)

		raw, err := kv.Get(t.Context(), authstore.StorageKey)
		require.NoError(t, err)
		require.JSONEq(t, `{
			"accessToken": "a",
			"refreshToken": "b",
			"sessionId": "s1",
			"wydelyBusinessId": "biz1",
			"accessTokenExpiresAt": "2099-01-01T00:00:00Z",
			"email": "u@x.com"
		}`, string(raw))
	})

	t.Run("invalid expiry is rejected and nothing is written", func(t *testing.T) {
		kv := kvstore.NewMemoryStore()
		store := newStore(t, kv)
		for _, raw := range []string{"", "tomorrow"} {
			_, err := store.Save(t.Context(), testRecord(raw))
			require.ErrorIs(t, err, authstore.ErrInvalidExpiry)
		}
		_, err := kv.Get(t.Context(), authstore.StorageKey)
		require.ErrorIs(t, err, kvstore.ErrNotFound)
	})

	t.Run("storage failure propagates", func(t *testing.T) {
		store := newStore(t, &failingKV{MemoryStore: kvstore.NewMemoryStore(), failWrites: true})

		_, err := store.Save(t.Context(), testRecord("2099-01-01T00:00:00"))
		require.ErrorIs(t, err, authstore.ErrStorageUnavailable)
		require.ErrorIs(t, err, errDiskFull)

		err = store.Clear(t.Context())
		require.ErrorIs(t, err, errDiskFull)
	})

	t.Run("undecodable value reads as absent", func(t *testing.T) {
		kv := kvstore.NewMemoryStore()
		require.NoError(t, kv.Set(t.Context(), authstore.StorageKey, []byte("{not json")))
		store := newStore(t, kv)

		_, ok := store.Get(t.Context())
		require.False(t, ok)

		_, err := kv.Get(t.Context(), authstore.StorageKey)
		require.NoError(t, err, "reads never mutate storage")
	})

	t.Run("clear is idempotent", func(t *testing.T) {
		store := newStore(t, kvstore.NewMemoryStore())
		require.NoError(t, store.Clear(t.Context()))
		require.NoError(t, store.Clear(t.Context()))
	})

	t.Run("custom key", func(t *testing.T) {
		kv := kvstore.NewMemoryStore()
		store := newStore(t, kv, authstore.WithKey("profile-2"))
		_, err := store.Save(t.Context(), testRecord("2099-01-01T00:00:00"))
		require.NoError(t, err)

		_, err = kv.Get(t.Context(), "profile-2")
		require.NoError(t, err)
		_, err = kv.Get(t.Context(), authstore.StorageKey)
		require.ErrorIs(t, err, kvstore.ErrNotFound)
	})
}

func TestStore_GetValid(t *testing.T) {
	now := time.Date(2030, 6, 1, 12, 0, 0, 0, time.UTC)
	nowFunc := func() time.Time { return now }

	t.Run("valid record returned unchanged", func(t *testing.T) {
		store := newStore(t, kvstore.NewMemoryStore(), authstore.WithNowFunc(nowFunc))
		saved, err := store.Save(t.Context(), testRecord("2030-06-01T13:00:00"))
		require.NoError(t, err)

		got, ok := store.GetValid(t.Context())
		require.True(t, ok)
		require.Equal(t, saved, got)
	})

	t.Run("expired record is evicted", func(t *testing.T) {
		store := newStore(t, kvstore.NewMemoryStore(), authstore.WithNowFunc(nowFunc))
		_, err := store.Save(t.Context(), testRecord("2030-06-01T11:59:59"))
		require.NoError(t, err)

		_, ok := store.GetValid(t.Context())
		require.False(t, ok)

		_, ok = store.Get(t.Context())
		require.False(t, ok, "expired record must be cleared from storage")
	})

	t.Run("record inside skew buffer is evicted", func(t *testing.T) {
		store := newStore(t, kvstore.NewMemoryStore(), authstore.WithNowFunc(nowFunc))
		_, err := store.Save(t.Context(), testRecord("2030-06-01T12:00:10"))
		require.NoError(t, err)

		_, ok := store.GetValid(t.Context())
		require.False(t, ok)
	})

	t.Run("absent record", func(t *testing.T) {
		store := newStore(t, kvstore.NewMemoryStore(), authstore.WithNowFunc(nowFunc))
		_, ok := store.GetValid(t.Context())
		require.False(t, ok)
	})
}

func TestNew(t *testing.T) {
	_, err := authstore.New(nil)
	require.Error(t, err)
}
