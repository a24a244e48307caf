// Package filestorage persists the auth record as a file in the data folder.
// Writes go to a temporary file that is renamed over the target, so a crash
// leaves either the old record or the new one. With a passphrase the file is
// sealed with NaCl secretbox.
package filestorage

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	apperrors "github.com/jrsteele09/go-hr-admin/internal/errors"
	"github.com/jrsteele09/go-hr-admin/sessions"
	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	nonceSize = 24
	sealInfo  = "go-hr-admin session record"
)

var _ sessions.Storage = (*FileStorage)(nil)

type FileStorage struct {
	dir string
	key *[32]byte
}

type Option func(*FileStorage) error

// WithPassphrase seals stored records with a key derived from passphrase.
// An empty passphrase leaves records in plain JSON.
func WithPassphrase(passphrase string) Option {
	return func(fs *FileStorage) error {
		if passphrase == "" {
			return nil
		}
		var key [32]byte
		r := hkdf.New(sha256.New, []byte(passphrase), nil, []byte(sealInfo))
		if _, err := io.ReadFull(r, key[:]); err != nil {
			return fmt.Errorf("derive seal key: %w", err)
		}
		fs.key = &key
		return nil
	}
}

func New(dir string, opts ...Option) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("[filestorage New] create %s: %w", dir, err)
	}
	fs := &FileStorage{dir: dir}
	for _, opt := range opts {
		if err := opt(fs); err != nil {
			return nil, fmt.Errorf("[filestorage New] %w", err)
		}
	}
	return fs, nil
}

func (fs *FileStorage) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", apperrors.Wrapf(apperrors.ErrInvalidRequest, "storage key %q", key)
	}
	return filepath.Join(fs.dir, key+".json"), nil
}

func (fs *FileStorage) Get(_ context.Context, key string) ([]byte, bool, error) {
	p, err := fs.path(key)
	if err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("[filestorage Get] %w", err)
	}
	if fs.key == nil {
		return data, true, nil
	}

	plain, err := fs.open(data)
	if err != nil {
		return nil, true, err
	}
	return plain, true, nil
}

func (fs *FileStorage) Set(_ context.Context, key string, data []byte) error {
	p, err := fs.path(key)
	if err != nil {
		return err
	}
	if fs.key != nil {
		if data, err = fs.seal(data); err != nil {
			return err
		}
	}

	tmp, err := os.CreateTemp(fs.dir, key+".*.tmp")
	if err != nil {
		return fmt.Errorf("[filestorage Set] create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("[filestorage Set] write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("[filestorage Set] sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[filestorage Set] close: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("[filestorage Set] chmod: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		return fmt.Errorf("[filestorage Set] rename: %w", err)
	}
	return nil
}

func (fs *FileStorage) Delete(_ context.Context, key string) error {
	p, err := fs.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("[filestorage Delete] %w", err)
	}
	return nil
}

func (fs *FileStorage) seal(plain []byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("[filestorage seal] nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, fs.key), nil
}

func (fs *FileStorage) open(sealed []byte) ([]byte, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return nil, apperrors.Wrapf(apperrors.ErrCorruptRecord, "sealed record too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, fs.key)
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrCorruptRecord, "sealed record failed authentication")
	}
	return plain, nil
}
