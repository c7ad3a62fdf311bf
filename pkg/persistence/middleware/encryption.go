package middleware

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/jorge-rr00/newbackend/pkg/ports"
)

// envelopePrefix marks an encrypted field value.
const envelopePrefix = "enc:v1:"

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey is the key used for encrypting new data.
	// Must be 32 bytes for AES-256.
	ActiveKey []byte

	// FallbackKeys is a list of old keys to try when decryption fails.
	// This enables zero-downtime key rotation.
	FallbackKeys [][]byte
}

// NewEncryptionMiddleware encrypts turn text, replies and hidden-tag document
// text with AES-GCM. Identifiers, hashes and timestamps stay in clear so stores
// can still order, index and deduplicate.
func NewEncryptionMiddleware(config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &transformer{
			next: next,
			onWrite: func(t *domain.Turn) error {
				return eachField(t, func(s string) (string, error) {
					return seal(s, config.ActiveKey)
				})
			},
			onRead: func(t *domain.Turn) error {
				return eachField(t, func(s string) (string, error) {
					return open(s, config.ActiveKey, config.FallbackKeys)
				})
			},
		}
	}
}

func eachField(t *domain.Turn, fn func(string) (string, error)) error {
	var err error
	if t.Text, err = fn(t.Text); err != nil {
		return err
	}
	if t.Reply, err = fn(t.Reply); err != nil {
		return err
	}
	for i := range t.Documents {
		if t.Documents[i].Text, err = fn(t.Documents[i].Text); err != nil {
			return err
		}
	}
	return nil
}

func seal(plain string, key []byte) (string, error) {
	if plain == "" {
		return "", nil
	}
	ciphertext, err := encrypt([]byte(plain), key)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt turn: %w", err)
	}
	return envelopePrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

func open(value string, active []byte, fallback [][]byte) (string, error) {
	if value == "" {
		return "", nil
	}
	encoded, ok := strings.CutPrefix(value, envelopePrefix)
	if !ok {
		return "", errors.New("turn is missing encrypted data envelope")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext base64: %w", err)
	}
	plain, err := decryptWithRotation(ciphertext, active, fallback)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt turn: %w", err)
	}
	return string(plain), nil
}

func encrypt(plaintext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func decryptWithRotation(ciphertext []byte, activeKey []byte, fallbackKeys [][]byte) ([]byte, error) {
	if plain, err := decrypt(ciphertext, activeKey); err == nil {
		return plain, nil
	}
	for _, key := range fallbackKeys {
		if plain, err := decrypt(ciphertext, key); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("decryption failed with all available keys")
}

func decrypt(ciphertext []byte, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce := ciphertext[:gcm.NonceSize()]
	return gcm.Open(nil, nonce, ciphertext[gcm.NonceSize():], nil)
}
