// Package secret derives an AES-256 key from the process secret and
// encrypts/decrypts sensitive database fields with AES-256-GCM. Its
// Store.Encrypt/Decrypt pair backs the EncryptedField type used by the
// GORM models in internal/storage.
package secret

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
	"crypto/sha256"
)

// ErrKeyMismatch is returned by Decrypt when the ciphertext does not
// authenticate under the current key, distinct from any other corruption,
// because the drift detector treats it specially (it signals "this table
// was encrypted under a different secret and must be recreated", not
// "this data is garbage").
var ErrKeyMismatch = errors.New("secret: ciphertext does not authenticate under the current key")

// ErrNotInitialized is returned by EncryptedField's Value and Scan methods
// when a non-empty field is encoded or decoded before Init has been called.
var ErrNotInitialized = errors.New("secret: store not initialized, call secret.Init first")

const (
	pbkdf2Iterations = 100_000
	keyLen           = 32
)

// pbkdf2Salt is fixed and not secret; the process secret itself is what
// must stay confidential. The salt and iteration count are part of the
// on-disk ciphertext format: changing either orphans every stored
// credential.
var pbkdf2Salt = []byte("nutify-secret-store-v1")

// Store holds the derived AES-256 key and performs authenticated
// encryption/decryption of arbitrary byte slices.
type Store struct {
	key []byte
}

// NewStore derives a Store's AES-256 key from processSecret via
// PBKDF2-HMAC-SHA256. processSecret must be non-empty; there is no
// fallback source, so an absent secret fails fast here rather than at the
// first decrypt.
func NewStore(processSecret string) (*Store, error) {
	if processSecret == "" {
		return nil, errors.New("secret: process secret is empty")
	}
	key := pbkdf2.Key([]byte(processSecret), pbkdf2Salt, pbkdf2Iterations, keyLen, sha256.New)
	return &Store{key: key}, nil
}

// Encrypt seals plaintext with AES-256-GCM under a fresh random nonce and
// returns base64(nonce || ciphertext).
func (s *Store) Encrypt(plaintext []byte) (string, error) {
	if len(plaintext) == 0 {
		return "", nil
	}

	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("secret: generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. A ciphertext that fails GCM authentication
// returns ErrKeyMismatch; the caller (typically the drift detector or a
// notification/report send path) decides what that means for its table or
// its send attempt.
func (s *Store) Decrypt(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("secret: decode base64: %w", err)
	}

	gcm, err := s.gcm()
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("secret: ciphertext shorter than nonce size")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrKeyMismatch
	}
	return plaintext, nil
}

func (s *Store) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("secret: new AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("secret: new GCM: %w", err)
	}
	return gcm, nil
}

// active is the package-level Store used by EncryptedField's Valuer/Scanner
// methods. GORM's database/sql/driver interfaces give those methods no
// constructor-injection seam, so one explicit Init call at startup is the
// accepted exception to constructor injection.
var active *Store

// Init wires the package-level Store used by EncryptedField. Call once
// during startup, before opening the database.
func Init(store *Store) {
	active = store
}
