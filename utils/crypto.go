package utils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
)

const encryptedPrefix = "enc:"

// legacyIndexKey keys the index when no index key is configured. Lookups
// always accept it so rows written before a key existed stay reachable.
var legacyIndexKey = []byte("homesell-email-index")

// EmailCipher encrypts emails at rest and derives a deterministic blind index
// for equality lookups. The index key is independent of the encryption key.
type EmailCipher struct {
	aead     cipher.AEAD
	indexKey []byte
}

// NewEmailCipher accepts a 64 character hex encryption key, or "" to store
// emails in clear, and a hex index key. The index key is required once
// encryption is on.
func NewEmailCipher(keyHex, indexKeyHex string) (*EmailCipher, error) {
	c := &EmailCipher{indexKey: legacyIndexKey}
	if indexKeyHex != "" {
		indexKey, err := hex.DecodeString(indexKeyHex)
		if err != nil {
			return nil, fmt.Errorf("failed to decode hex index key: %w", err)
		}
		if len(indexKey) < 16 {
			return nil, errors.New("invalid index key length: must be at least 16 bytes")
		}
		c.indexKey = indexKey
	}

	if keyHex == "" {
		return c, nil
	}
	if indexKeyHex == "" {
		return nil, errors.New("an index key is required when email encryption is enabled")
	}
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode hex key: %w", err)
	}
	if len(key) != 32 {
		return nil, errors.New("invalid key length: must be 32 bytes for AES-256")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher block: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	c.aead = aead
	return c, nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func indexWith(key []byte, email string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(NormalizeEmail(email)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Index is the value written for new rows.
func (c *EmailCipher) Index(email string) string {
	return indexWith(c.indexKey, email)
}

// LookupIndexes lists every index an existing row may carry, current first.
func (c *EmailCipher) LookupIndexes(email string) []string {
	current := c.Index(email)
	legacy := indexWith(legacyIndexKey, email)
	if legacy == current {
		return []string{current}
	}
	return []string{current, legacy}
}

// Encrypted reports whether new values are sealed.
func (c *EmailCipher) Encrypted() bool { return c.aead != nil }

func (c *EmailCipher) Encrypt(email string) (string, error) {
	if c.aead == nil {
		return email, nil
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(email), nil)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

func IsEncrypted(value string) bool { return strings.HasPrefix(value, encryptedPrefix) }

// Decrypt returns values without the encrypted prefix unchanged, so rows
// written before a key was configured stay readable.
func (c *EmailCipher) Decrypt(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}
	if c.aead == nil {
		return "", errors.New("encrypted email but no encryption key configured")
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, encryptedPrefix))
	if err != nil {
		return "", fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	size := c.aead.NonceSize()
	if len(raw) < size {
		return "", errors.New("ciphertext too short")
	}
	plain, err := c.aead.Open(nil, raw[:size], raw[size:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt email: %w", err)
	}
	return string(plain), nil
}

// NewVerificationToken returns a 32 byte hex token and the digest to persist.
func NewVerificationToken() (token string, hash string, err error) {
	token, err = RandomHex(32)
	if err != nil {
		return "", "", err
	}
	return token, HashToken(token), nil
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand: %w", err)
	}
	return hex.EncodeToString(b), nil
}
