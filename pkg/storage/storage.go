// Package storage provides at-rest storage for enrollment images.
// Images are encrypted with NaCl secretbox when encryption is enabled.
package storage

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/MrCodeEU/facemark/pkg/logging"
)

const (
	// NonceSize is the size of the nonce used for encryption
	NonceSize = 24
	// KeySize is the size of the encryption key
	KeySize = 32
)

// ErrImageNotFound is returned when a stored image does not exist.
var ErrImageNotFound = errors.New("image not found")

// ErrEncryption is returned when encryption/decryption fails.
var ErrEncryption = errors.New("encryption error")

// Vault stores enrollment image blobs under a data directory.
type Vault struct {
	dataDir           string
	encryptionEnabled bool
	encryptionKey     [KeySize]byte
}

// NewVault creates a vault rooted at dataDir.
func NewVault(dataDir string, encryptionEnabled bool) (*Vault, error) {
	v := &Vault{
		dataDir:           dataDir,
		encryptionEnabled: encryptionEnabled,
	}

	// Derive encryption key from machine-specific information
	if encryptionEnabled {
		key, err := deriveKey()
		if err != nil {
			return nil, fmt.Errorf("failed to derive encryption key: %w", err)
		}
		v.encryptionKey = key
	}

	if err := os.MkdirAll(filepath.Join(dataDir, "images"), 0700); err != nil {
		return nil, fmt.Errorf("failed to create images directory: %w", err)
	}

	return v, nil
}

// deriveKey derives an encryption key from machine-specific information.
// This ties the encrypted data to this specific machine.
func deriveKey() ([KeySize]byte, error) {
	var key [KeySize]byte

	// Combine multiple sources of machine identity
	var identity strings.Builder

	// Machine ID (Linux specific)
	if machineID, err := os.ReadFile("/etc/machine-id"); err == nil {
		identity.Write(machineID)
	}

	// Hostname
	if hostname, err := os.Hostname(); err == nil {
		identity.WriteString(hostname)
	}

	// User ID
	identity.WriteString(fmt.Sprintf("%d", os.Getuid()))

	// Add a constant salt for additional security
	identity.WriteString("facemark-v1-salt")

	// Hash to derive key
	hash := sha256.Sum256([]byte(identity.String()))
	copy(key[:], hash[:])

	return key, nil
}

// SaveImage stores an image blob under the given id and returns the filename
// it was stored as, relative to the images directory.
func (v *Vault) SaveImage(imageID string, data []byte) (string, error) {
	name := imageID + ".jpg"
	if v.encryptionEnabled {
		name = imageID + ".enc"
	}

	if v.encryptionEnabled {
		encrypted, err := v.encrypt(data)
		if err != nil {
			return "", fmt.Errorf("failed to encrypt image: %w", err)
		}
		data = encrypted
	}

	if err := os.WriteFile(v.imagePath(name), data, 0600); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}

	logging.Component("storage").WithFields(logging.Fields{"image": name}).Debug("image saved")
	return name, nil
}

// LoadImage reads a stored image back. Encrypted blobs are recognized by
// their .enc extension, so a vault can read plaintext images saved before
// encryption was turned on.
func (v *Vault) LoadImage(name string) ([]byte, error) {
	data, err := os.ReadFile(v.imagePath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrImageNotFound, name)
		}
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	if strings.HasSuffix(name, ".enc") {
		data, err = v.decrypt(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt image: %w", err)
		}
	}

	return data, nil
}

// DeleteImage removes a stored image.
func (v *Vault) DeleteImage(name string) error {
	if err := os.Remove(v.imagePath(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrImageNotFound, name)
		}
		return fmt.Errorf("failed to delete image: %w", err)
	}

	logging.Component("storage").WithFields(logging.Fields{"image": name}).Debug("image deleted")
	return nil
}

func (v *Vault) imagePath(name string) string {
	return filepath.Join(v.dataDir, "images", filepath.Base(name))
}

// encrypt encrypts data using NaCl secretbox.
func (v *Vault) encrypt(plaintext []byte) ([]byte, error) {
	// Generate random nonce
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}

	// Encrypt
	encrypted := secretbox.Seal(nonce[:], plaintext, &nonce, &v.encryptionKey)
	return encrypted, nil
}

// decrypt decrypts data using NaCl secretbox.
func (v *Vault) decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < NonceSize {
		return nil, ErrEncryption
	}

	// Extract nonce
	var nonce [NonceSize]byte
	copy(nonce[:], ciphertext[:NonceSize])

	// Decrypt
	plaintext, ok := secretbox.Open(nil, ciphertext[NonceSize:], &nonce, &v.encryptionKey)
	if !ok {
		return nil, ErrEncryption
	}

	return plaintext, nil
}
