package auth

import (
	"os"
)

// envVarForCredential maps credential names to environment variables
var envVarForCredential = map[string]string{
	CredentialName: "VIDGRAB_MIRROR_API_KEY",
}

// EnvironmentStore reads credentials from environment variables. It is
// read-only: Store and Delete always fail.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-backed credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve reads a credential from its environment variable
func (e *EnvironmentStore) Retrieve(name string) (*Credential, error) {
	if name == "" {
		return nil, ErrInvalidCredential
	}

	envVar, ok := envVarForCredential[name]
	if !ok {
		return nil, ErrCredentialNotFound
	}

	key := os.Getenv(envVar)
	if key == "" {
		return nil, ErrCredentialNotFound
	}

	return &Credential{Name: name, Key: key}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks whether the credential's environment variable is set
func (e *EnvironmentStore) Exists(name string) bool {
	envVar, ok := envVarForCredential[name]
	if !ok {
		return false
	}
	return os.Getenv(envVar) != ""
}
