package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	EnvToken     = "IGFOLLOWERS_TOKEN"
	EnvMID       = "IGFOLLOWERS_COOKIE_X_MID"
	EnvDSUserID  = "IGFOLLOWERS_COOKIE_DS_USER_ID"
	EnvRur       = "IGFOLLOWERS_COOKIE_RUR"
	EnvUserAgent = "IGFOLLOWERS_USER_AGENT"
	EnvAccount   = "IGFOLLOWERS_ACCOUNT"
)

// EnvironmentStore is a read-only CredentialStore over IGFOLLOWERS_* variables
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve builds an account from the environment. The label is the given
// username, IGFOLLOWERS_ACCOUNT, or "default".
func (e *EnvironmentStore) Retrieve(username string) (*Account, error) {
	token := os.Getenv(EnvToken)
	if token == "" {
		return nil, ErrCredentialsNotFound
	}

	if username == "" {
		username = os.Getenv(EnvAccount)
	}
	if username == "" {
		username = "default"
	}

	return &Account{
		Username:     username,
		Token:        token,
		MID:          os.Getenv(EnvMID),
		DSUserID:     os.Getenv(EnvDSUserID),
		Rur:          os.Getenv(EnvRur),
		UserAgent:    os.Getenv(EnvUserAgent),
		LastModified: time.Now(),
	}, nil
}

// List returns a single account if the token variable is set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(username string) error {
	return ErrStoreUnavailable
}

// Exists checks if environment credentials exist
func (e *EnvironmentStore) Exists(username string) bool {
	return os.Getenv(EnvToken) != ""
}
