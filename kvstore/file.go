package kvstore

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/jrsteele09/wydely-client/internal/errors"
)

const (
	fileMode = 0o600
	dirMode  = 0o700
)

var _ Store = (*FileStore)(nil)

// FileStore keeps one file per key inside a folder. Writes go to a temporary file
// that is renamed over the target, so readers never observe a partial value.
type FileStore struct {
	folder string
	lock   sync.Mutex
}

// NewFileStore creates the folder if needed and returns a store rooted at it.
func NewFileStore(folder string) (*FileStore, error) {
	if folder == "" {
		return nil, fmt.Errorf("[NewFileStore] folder is required")
	}
	if err := os.MkdirAll(folder, dirMode); err != nil {
		return nil, apperrors.Mark(fmt.Errorf("[NewFileStore] mkdir %s: %w", folder, err), ErrStorageUnavailable)
	}
	return &FileStore{folder: folder}, nil
}

func (fs *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, err := os.ReadFile(fs.path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Mark(fmt.Errorf("[FileStore.Get] %s: %w", key, err), ErrStorageUnavailable)
	}
	return value, nil
}

func (fs *FileStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fs.lock.Lock()
	defer fs.lock.Unlock()

	tmp, err := os.CreateTemp(fs.folder, ".tmp-*")
	if err != nil {
		return apperrors.Mark(fmt.Errorf("[FileStore.Set] create temp: %w", err), ErrStorageUnavailable)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		return apperrors.Mark(fmt.Errorf("[FileStore.Set] write %s: %w", key, err), ErrStorageUnavailable)
	}
	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return apperrors.Mark(fmt.Errorf("[FileStore.Set] chmod %s: %w", key, err), ErrStorageUnavailable)
	}
	if err := tmp.Close(); err != nil {
		return apperrors.Mark(fmt.Errorf("[FileStore.Set] close %s: %w", key, err), ErrStorageUnavailable)
	}
	if err := os.Rename(tmpName, fs.path(key)); err != nil {
		return apperrors.Mark(fmt.Errorf("[FileStore.Set] rename %s: %w", key, err), ErrStorageUnavailable)
	}
	return nil
}

func (fs *FileStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fs.lock.Lock()
	defer fs.lock.Unlock()

	err := os.Remove(fs.path(key))
	if err == nil || os.IsNotExist(err) {
		return nil
	}
	return apperrors.Mark(fmt.Errorf("[FileStore.Delete] %s: %w", key, err), ErrStorageUnavailable)
}

// Keys are escaped so they can't climb out of the folder.
func (fs *FileStore) path(key string) string {
	return filepath.Join(fs.folder, url.PathEscape(key)+".json")
}
