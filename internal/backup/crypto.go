package backup

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/argon2"
)

// Offsite copies are sealed with AES-256-GCM under a key derived from
// the configured passphrase via Argon2id. Local backups stay plaintext.
// Sealed layout: 16-byte salt, 12-byte nonce, then the ciphertext.
const (
	saltLen  = 16
	nonceLen = 12

	argonTime    = 3
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

var errSealedTooShort = errors.New("sealed file shorter than salt and nonce")

// GenerateSalt draws a fresh random salt. Each upload gets its own so
// identical snapshots never produce identical ciphertext.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// DeriveKey stretches the passphrase into an AES-256 key with Argon2id.
func DeriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(DeriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("gcm: %w", err)
	}
	return gcm, nil
}

func seal(plaintext []byte, passphrase string, salt []byte) ([]byte, error) {
	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	out := make([]byte, 0, saltLen+nonceLen+len(plaintext)+gcm.Overhead())
	out = append(out, salt...)
	out = append(out, nonce...)
	return gcm.Seal(out, nonce, plaintext, nil), nil
}

func open(sealed []byte, passphrase string) ([]byte, error) {
	if len(sealed) < saltLen+nonceLen {
		return nil, errSealedTooShort
	}
	salt, nonce, ciphertext := sealed[:saltLen], sealed[saltLen:saltLen+nonceLen], sealed[saltLen+nonceLen:]
	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

// EncryptFile seals srcPath into dstPath using the given salt.
func EncryptFile(srcPath, dstPath, passphrase string, salt []byte) error {
	plaintext, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read source: %w", err)
	}
	sealed, err := seal(plaintext, passphrase, salt)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dstPath, sealed, 0600); err != nil {
		return fmt.Errorf("write sealed file: %w", err)
	}
	return nil
}

// DecryptFile opens a sealed srcPath into dstPath. The salt travels in
// the file header, so only the passphrase is needed.
func DecryptFile(srcPath, dstPath, passphrase string) error {
	sealed, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("read sealed file: %w", err)
	}
	plaintext, err := open(sealed, passphrase)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dstPath, plaintext, 0600); err != nil {
		return fmt.Errorf("write plaintext: %w", err)
	}
	return nil
}
