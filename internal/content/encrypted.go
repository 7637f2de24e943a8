package content

import (
	"context"
	"errors"
	"fmt"
	"io"

	"pidvault/internal/docs"
)

// ErrLocked is returned by EncryptedStore.Open when no decryption context was
// supplied, i.e. the server was started without unlocking the private key.
var ErrLocked = errors.New("content store is locked")

// EncryptedStore encrypts objects on the way into an inner ContentStore and
// decrypts them on the way out. Sizes reported by Put are plaintext sizes.
type EncryptedStore struct {
	inner docs.ContentStore
	enc   docs.Encryptor
	dec   docs.DecryptionContext
}

// NewEncryptedStore wraps inner. dec may be nil for write-only use.
func NewEncryptedStore(inner docs.ContentStore, enc docs.Encryptor, dec docs.DecryptionContext) *EncryptedStore {
	return &EncryptedStore{inner: inner, enc: enc, dec: dec}
}

func (s *EncryptedStore) Put(ctx context.Context, name string, r io.Reader) (int64, error) {
	plain := &countingReader{r: r}
	pr, pw := io.Pipe()

	encErr := make(chan error, 1)
	go func() {
		err := s.enc.Encrypt(plain, pw)
		pw.CloseWithError(err)
		encErr <- err
	}()

	_, err := s.inner.Put(ctx, name, pr)
	// Unblock the encrypting goroutine if the inner store stopped reading early.
	pr.CloseWithError(errors.New("content store closed"))
	if eerr := <-encErr; eerr != nil && err == nil {
		err = fmt.Errorf("encrypting %s: %w", name, eerr)
	}
	if err != nil {
		return plain.n, err
	}
	return plain.n, nil
}

func (s *EncryptedStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if s.dec == nil {
		return nil, ErrLocked
	}
	sealed, err := s.inner.Open(ctx, name)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	go func() {
		err := s.dec.Decrypt(sealed, pw)
		sealed.Close()
		pw.CloseWithError(err)
	}()
	return pr, nil
}

func (s *EncryptedStore) Remove(ctx context.Context, name string) error {
	return s.inner.Remove(ctx, name)
}

func (s *EncryptedStore) List(ctx context.Context) ([]string, error) {
	return s.inner.List(ctx)
}

func (s *EncryptedStore) ValidateSetup() error {
	if !s.enc.IsConfigured() {
		return fmt.Errorf("encryption keys not configured (run 'pidvault keys init')")
	}
	return s.inner.ValidateSetup()
}

var _ docs.ContentStore = (*EncryptedStore)(nil)
