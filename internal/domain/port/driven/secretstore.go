package driven

import (
	"context"
	"errors"
)

// ErrEncryptionUnavailable is returned by SecretStore operations when no
// encryption key is configured. Secrets are never stored in plaintext.
var ErrEncryptionUnavailable = errors.New("encryption not available: set PRNOTIFY_SECRET_KEY")

// SecretStore defines the driven port for the encrypted GitHub token.
// The adapter encrypts on write and decrypts on read; this interface
// operates on plaintext at the domain boundary.
type SecretStore interface {
	// Save encrypts and stores token, replacing any previous value.
	Save(ctx context.Context, token string) error

	// Get returns the decrypted token. ok is false when no token is stored
	// or the stored blob cannot be decrypted.
	Get(ctx context.Context) (token string, ok bool, err error)

	// Has reports whether an encrypted token is stored, without decrypting it.
	Has(ctx context.Context) (bool, error)
}
