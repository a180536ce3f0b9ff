package auth

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestManagerStoreRetrieveDelete(t *testing.T) {
	mock := NewMockStore()
	manager := NewManagerWithStores(mock)

	cred := &Credential{
		Name: CredentialName,
		Key:  "rapidapi-key-1234567890abcdef",
	}
	if err := manager.Store(cred); err != nil {
		t.Fatalf("Failed to store credential: %v", err)
	}
	if cred.LastModified.IsZero() {
		t.Error("Expected Store to stamp LastModified")
	}

	retrieved, err := manager.Retrieve(CredentialName)
	if err != nil {
		t.Fatalf("Failed to retrieve credential: %v", err)
	}
	if retrieved.Key != cred.Key {
		t.Errorf("Key mismatch: got %s, want %s", retrieved.Key, cred.Key)
	}

	if !manager.Exists(CredentialName) {
		t.Error("Expected credential to exist")
	}

	if err := manager.Delete(CredentialName); err != nil {
		t.Fatalf("Failed to delete credential: %v", err)
	}
	if _, err := manager.Retrieve(CredentialName); err == nil {
		t.Error("Expected error retrieving deleted credential")
	}
	if mock.Count() != 0 {
		t.Errorf("Expected empty store after deletion, got %d entries", mock.Count())
	}
}

func TestManagerRejectsInvalidCredential(t *testing.T) {
	manager := NewManagerWithStores(NewMockStore())

	if err := manager.Store(nil); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Expected ErrInvalidCredential for nil, got %v", err)
	}
	if err := manager.Store(&Credential{Name: "", Key: "x"}); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Expected ErrInvalidCredential for empty name, got %v", err)
	}
	if err := manager.Store(&Credential{Name: "mirror", Key: ""}); !errors.Is(err, ErrInvalidCredential) {
		t.Errorf("Expected ErrInvalidCredential for empty key, got %v", err)
	}
}

func TestManagerFallsThroughStores(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = ErrStoreUnavailable
	broken.RetrieveError = ErrStoreUnavailable
	working := NewMockStore()

	manager := NewManagerWithStores(broken, working)

	cred := &Credential{Name: CredentialName, Key: "secret-key-123"}
	if err := manager.Store(cred); err != nil {
		t.Fatalf("Expected the second store to accept the credential: %v", err)
	}
	if working.Count() != 1 {
		t.Error("Expected the working store to hold the credential")
	}

	retrieved, err := manager.Retrieve(CredentialName)
	if err != nil {
		t.Fatalf("Expected retrieval through the second store: %v", err)
	}
	if retrieved.Key != cred.Key {
		t.Errorf("Key mismatch: got %s", retrieved.Key)
	}
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Setenv("VIDGRAB_MIRROR_API_KEY", "env-key-456")

	cred, err := store.Retrieve(CredentialName)
	if err != nil {
		t.Fatalf("Failed to retrieve from environment: %v", err)
	}
	if cred.Key != "env-key-456" {
		t.Errorf("Key mismatch: got %s", cred.Key)
	}
	if !store.Exists(CredentialName) {
		t.Error("Expected credential to exist")
	}

	// Environment store is read-only
	if err := store.Store(cred); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable from Store, got %v", err)
	}
	if err := store.Delete(CredentialName); !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable from Delete, got %v", err)
	}

	if _, err := store.Retrieve("other"); !errors.Is(err, ErrCredentialNotFound) {
		t.Errorf("Expected ErrCredentialNotFound for unknown name, got %v", err)
	}
}

func TestEncryptedFileStoreRoundTrip(t *testing.T) {
	t.Setenv("VIDGRAB_PASSPHRASE", "test-passphrase")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	cred := &Credential{Name: CredentialName, Key: "encrypted-key-789", LastModified: time.Now()}
	if err := store.Store(cred); err != nil {
		t.Fatalf("Failed to store: %v", err)
	}

	// A fresh store over the same file must decrypt the credential
	reopened, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	retrieved, err := reopened.Retrieve(CredentialName)
	if err != nil {
		t.Fatalf("Failed to retrieve: %v", err)
	}
	if retrieved.Key != cred.Key {
		t.Errorf("Key mismatch after reopen: got %s", retrieved.Key)
	}

	if err := reopened.Delete(CredentialName); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if _, err := reopened.Retrieve(CredentialName); !errors.Is(err, ErrCredentialNotFound) {
		t.Errorf("Expected ErrCredentialNotFound after delete, got %v", err)
	}
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv("VIDGRAB_PASSPHRASE", "right")
	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if err := store.Store(&Credential{Name: CredentialName, Key: "secret"}); err != nil {
		t.Fatalf("Failed to store: %v", err)
	}

	t.Setenv("VIDGRAB_PASSPHRASE", "wrong")
	intruder, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	if _, err := intruder.Retrieve(CredentialName); err == nil {
		t.Error("Expected decryption failure with the wrong passphrase")
	}
}

func TestMaskString(t *testing.T) {
	if got := maskString("short"); got != "********" {
		t.Errorf("Expected short strings fully masked, got %q", got)
	}

	masked := maskString("abcdefghijklmnop")
	if !strings.HasPrefix(masked, "abcd") || !strings.HasSuffix(masked, "mnop") {
		t.Errorf("Expected first and last 4 characters visible, got %q", masked)
	}
	if strings.Contains(masked, "efgh") {
		t.Errorf("Expected the middle hidden, got %q", masked)
	}
}

func TestCredentialMasked(t *testing.T) {
	cred := &Credential{Name: CredentialName, Key: "abcdefghijklmnop"}
	masked := cred.Masked()
	if masked.Key == cred.Key {
		t.Error("Expected the key to be masked")
	}
	if masked.Name != cred.Name {
		t.Error("Expected the name to pass through unmasked")
	}
}
