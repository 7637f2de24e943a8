package encryption

import (
	"bytes"
	"fmt"
	"io"

	"pidvault/internal/docs"
)

var testMagic = []byte("PVTEST\x00\x01")

// TestEncryptor marks content with a fixed header instead of encrypting it,
// so stored bytes differ from the upload while staying trivially reversible.
// It backs encryption type "test".
type TestEncryptor struct{}

var _ docs.Encryptor = (*TestEncryptor)(nil)

func NewTestEncryptor() *TestEncryptor { return &TestEncryptor{} }

func (*TestEncryptor) Setup(string) error { return nil }

func (*TestEncryptor) Encrypt(r io.Reader, w io.Writer) error {
	if _, err := w.Write(testMagic); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	_, err := io.Copy(w, r)
	return err
}

func (*TestEncryptor) Unlock(string) (docs.DecryptionContext, error) {
	return testDecrypter{}, nil
}

func (*TestEncryptor) IsConfigured() bool { return true }

type testDecrypter struct{}

func (testDecrypter) Decrypt(r io.Reader, w io.Writer) error {
	header := make([]byte, len(testMagic))
	if _, err := io.ReadFull(r, header); err != nil {
		return fmt.Errorf("reading header: %w", err)
	}
	if !bytes.Equal(header, testMagic) {
		return fmt.Errorf("content was not written by the test encryptor")
	}
	_, err := io.Copy(w, r)
	return err
}
