package docs

import "io"

// Encryptor handles encryption of content at rest.
// Encryption uses the public key only. Decryption requires unlocking the
// private key with a passphrase, producing a DecryptionContext.
type Encryptor interface {
	// Setup performs one-time key generation. Called by `pidvault keys init`.
	Setup(passphrase string) error

	// Encrypt encrypts data read from r and writes ciphertext to w.
	Encrypt(r io.Reader, w io.Writer) error

	// Unlock decrypts the private key using the passphrase.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured returns true if both key files exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory for the lifetime
// of the server process. It is never written to disk.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}
