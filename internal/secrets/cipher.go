// Package secrets encrypts credential and token blobs before they reach the
// state store. Stored values use the form hex(iv):base64(payload) with
// AES-256-CBC, so a value survives process restarts as long as the key does.
// The payload carries an HMAC-SHA256 tag over iv+ciphertext; any modified
// byte is rejected instead of decrypting into garbage.
package secrets

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

const (
	keySize = 32
	// DefaultKeyFile is where a generated key persists between restarts.
	DefaultKeyFile = ".encryption_key"
)

// ErrDecrypt is wrapped by every decryption failure: malformed input, a
// truncated payload, or ciphertext produced under a different key.
var ErrDecrypt = errors.New("secrets: decrypt failed")

// Cipher performs symmetric encryption with a process-wide key.
type Cipher struct {
	key []byte
}

// NewCipher resolves the encryption key once: an explicitly configured key
// wins, then a previously persisted key file of at least 32 characters, then
// a freshly generated key which is persisted for reuse. When persisting
// fails the cipher still works, but data encrypted now is lost on restart;
// that risk is logged, not hidden.
func NewCipher(explicitKey, keyFile string, logger *zap.Logger) (*Cipher, error) {
	if logger == nil {
		logger = zap.L()
	}
	if keyFile == "" {
		keyFile = DefaultKeyFile
	}

	if k := strings.TrimSpace(explicitKey); k != "" {
		return newCipherFromString(k)
	}

	if raw, err := os.ReadFile(keyFile); err == nil {
		if k := strings.TrimSpace(string(raw)); len(k) >= keySize {
			return newCipherFromString(k)
		}
		logger.Warn("ignoring key file shorter than 32 characters", zap.String("path", keyFile))
	}

	buf := make([]byte, keySize)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	generated := hex.EncodeToString(buf)
	if err := os.WriteFile(keyFile, []byte(generated), 0o600); err != nil {
		logger.Warn("failed to persist encryption key; encrypted data will not survive a restart",
			zap.String("path", keyFile), zap.Error(err))
	}
	return newCipherFromString(generated)
}

func newCipherFromString(key string) (*Cipher, error) {
	if len(key) < keySize {
		return nil, fmt.Errorf("encryption key must be at least %d characters", keySize)
	}
	return &Cipher{key: []byte(key)[:keySize]}, nil
}

// Encrypt returns hex(iv):base64(ciphertext+tag) for the given plaintext.
// The tag is an HMAC-SHA256 over iv+ciphertext (encrypt-then-MAC); without
// it, CBC would decrypt a tampered middle block into silent garbage.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	payload := append(ciphertext, c.tag(iv, ciphertext)...)
	return hex.EncodeToString(iv) + ":" + base64.StdEncoding.EncodeToString(payload), nil
}

// Decrypt reverses Encrypt. All failures wrap ErrDecrypt so callers can
// treat "unreadable" uniformly regardless of which layer rejected the data.
func (c *Cipher) Decrypt(stored string) (string, error) {
	parts := strings.Split(stored, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("%w: malformed payload", ErrDecrypt)
	}

	iv, err := hex.DecodeString(parts[0])
	if err != nil || len(iv) != aes.BlockSize {
		return "", fmt.Errorf("%w: malformed iv", ErrDecrypt)
	}

	payload, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", fmt.Errorf("%w: malformed ciphertext", ErrDecrypt)
	}
	if len(payload) < sha256.Size+aes.BlockSize {
		return "", fmt.Errorf("%w: truncated ciphertext", ErrDecrypt)
	}

	ciphertext, tag := payload[:len(payload)-sha256.Size], payload[len(payload)-sha256.Size:]
	if !hmac.Equal(tag, c.tag(iv, ciphertext)) {
		return "", fmt.Errorf("%w: authentication failed", ErrDecrypt)
	}
	if len(ciphertext)%aes.BlockSize != 0 {
		return "", fmt.Errorf("%w: truncated ciphertext", ErrDecrypt)
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}

	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	unpadded, err := pkcs7Unpad(plaintext, aes.BlockSize)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return string(unpadded), nil
}

func (c *Cipher) tag(iv, ciphertext []byte) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write(iv)
	mac.Write(ciphertext)
	return mac.Sum(nil)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errors.New("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}
