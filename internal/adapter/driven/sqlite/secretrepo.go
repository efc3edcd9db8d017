package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ericfisherdev/prnotify/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SecretStore = (*SecretRepo)(nil)

const tokenSecret = "github_token"

// SecretRepo is the SQLite implementation of the SecretStore port interface.
// The token is encrypted with AES-256-GCM before write and decrypted after read.
type SecretRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil when encryption is unavailable.
}

// NewSecretRepo creates a new SecretRepo. key must be 32 bytes for
// AES-256-GCM, or nil, in which case Save and Get return
// driven.ErrEncryptionUnavailable.
func NewSecretRepo(db *DB, key []byte) *SecretRepo {
	return &SecretRepo{db: db, key: key}
}

// EncryptionAvailable reports whether a key is configured.
func (r *SecretRepo) EncryptionAvailable() bool {
	return r.key != nil
}

// Save encrypts and stores the token, replacing any previous value.
func (r *SecretRepo) Save(ctx context.Context, token string) error {
	encrypted, err := r.encrypt(token)
	if err != nil {
		return err
	}

	const query = `INSERT OR REPLACE INTO secrets (name, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`
	if _, err := r.db.Writer.ExecContext(ctx, query, tokenSecret, encrypted); err != nil {
		return fmt.Errorf("%w: save token: %w", driven.ErrStorage, err)
	}
	return nil
}

// Get returns the decrypted token. A blob that no longer decrypts (for
// example after a key change) is reported as absent.
func (r *SecretRepo) Get(ctx context.Context) (string, bool, error) {
	if r.key == nil {
		return "", false, driven.ErrEncryptionUnavailable
	}

	encrypted, ok, err := r.load(ctx)
	if err != nil || !ok {
		return "", false, err
	}

	token, err := r.decrypt(encrypted)
	if err != nil {
		slog.Warn("stored token could not be decrypted", "error", err)
		return "", false, nil
	}
	return token, true, nil
}

// Has reports whether an encrypted token is stored. It does not need the key.
func (r *SecretRepo) Has(ctx context.Context) (bool, error) {
	_, ok, err := r.load(ctx)
	return ok, err
}

func (r *SecretRepo) load(ctx context.Context) (string, bool, error) {
	const query = `SELECT value FROM secrets WHERE name = ?`
	var encrypted string
	err := r.db.Reader.QueryRowContext(ctx, query, tokenSecret).Scan(&encrypted)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get token: %w", driven.ErrStorage, err)
	}
	return encrypted, encrypted != "", nil
}

// encrypt encrypts plaintext using AES-256-GCM and returns a base64-encoded string
// containing the nonce prepended to the ciphertext.
func (r *SecretRepo) encrypt(plaintext string) (string, error) {
	if r.key == nil {
		return "", driven.ErrEncryptionUnavailable
	}

	gcm, err := r.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends to nonce, producing: nonce || ciphertext || tag.
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// decrypt decrypts a base64-encoded AES-256-GCM ciphertext.
func (r *SecretRepo) decrypt(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	gcm, err := r.gcm()
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}

func (r *SecretRepo) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(r.key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
