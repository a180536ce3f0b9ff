// Package auth stores the mirror-API subscription credential: system
// keychain first, encrypted file as fallback, environment variable as the
// read-only last resort.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// CredentialName is the single credential this service manages
const CredentialName = "mirror"

// Credential is a stored API credential
type Credential struct {
	Name         string    `json:"name"`
	Key          string    `json:"key"`
	LastModified time.Time `json:"last_modified"`
}

// Store is the interface for storing and retrieving credentials
type Store interface {
	// Store saves a credential
	Store(cred *Credential) error
	// Retrieve gets a credential by name
	Retrieve(name string) (*Credential, error)
	// Delete removes a credential by name
	Delete(name string) error
	// Exists checks whether a credential is stored
	Exists(name string) bool
}

// Errors
var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrInvalidCredential  = errors.New("invalid credential")
	ErrStoreUnavailable   = errors.New("credential store unavailable")
)

// Manager chains credential stores with fallback
type Manager struct {
	stores []Store
}

// NewManager creates a credential manager with the available backends
func NewManager() (*Manager, error) {
	var stores []Store

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over an explicit store chain,
// primarily for tests
func NewManagerWithStores(stores ...Store) *Manager {
	return &Manager{stores: stores}
}

// Store saves the credential using the first store that accepts it
func (m *Manager) Store(cred *Credential) error {
	if cred == nil || cred.Name == "" || cred.Key == "" {
		return ErrInvalidCredential
	}
	cred.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(cred); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}
	if lastErr != nil {
		return fmt.Errorf("failed to store credential: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets the credential from the first store that has it
func (m *Manager) Retrieve(name string) (*Credential, error) {
	for _, store := range m.stores {
		if cred, err := store.Retrieve(name); err == nil && cred != nil {
			return cred, nil
		}
	}
	return nil, ErrCredentialNotFound
}

// Delete removes the credential from every store that has it
func (m *Manager) Delete(name string) error {
	deleted := false
	for _, store := range m.stores {
		if err := store.Delete(name); err == nil {
			deleted = true
		}
	}
	if !deleted {
		return ErrCredentialNotFound
	}
	return nil
}

// Exists checks whether any store has the credential
func (m *Manager) Exists(name string) bool {
	for _, store := range m.stores {
		if store.Exists(name) {
			return true
		}
	}
	return false
}

// Masked returns a copy safe for display
func (c *Credential) Masked() *Credential {
	return &Credential{
		Name:         c.Name,
		Key:          maskString(c.Key),
		LastModified: c.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".config", "vidgrab")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}
