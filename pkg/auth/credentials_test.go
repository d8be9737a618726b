package auth

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zalando/go-keyring"

	errs "igfollowers/pkg/errors"
)

func testAccount(name string) *Account {
	return &Account{
		Username:  name,
		Token:     "IGT:2:test_token_value_12345",
		MID:       "ZmlkLW1pZC12YWx1ZQ",
		DSUserID:  "123456789",
		Rur:       "CLN,123456789,1760000000:01f7",
		UserAgent: "Instagram 330.0.0.40.92 Android",
	}
}

func TestCredentialManager(t *testing.T) {
	manager, mockStore := NewMockManager()

	account := testAccount("testuser")
	if err := manager.Store(account); err != nil {
		t.Fatalf("Failed to store account: %v", err)
	}
	if account.LastModified.IsZero() {
		t.Error("Store should stamp LastModified")
	}

	retrieved, err := manager.Retrieve("testuser")
	if err != nil {
		t.Fatalf("Failed to retrieve account: %v", err)
	}
	if retrieved.Token != account.Token {
		t.Errorf("Token mismatch: got %s, want %s", retrieved.Token, account.Token)
	}
	if retrieved.Rur != account.Rur {
		t.Errorf("Rur mismatch: got %s, want %s", retrieved.Rur, account.Rur)
	}

	accounts, err := manager.List()
	if err != nil {
		t.Errorf("Failed to list accounts: %v", err)
	}
	if len(accounts) != 1 {
		t.Errorf("Expected one account in list, got %d", len(accounts))
	}

	if err := manager.Delete("testuser"); err != nil {
		t.Errorf("Failed to delete account: %v", err)
	}
	if _, err := manager.Retrieve("testuser"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}
	if mockStore.Count() != 0 {
		t.Errorf("Expected 0 accounts after deletion, got %d", mockStore.Count())
	}

	if err := manager.Delete("testuser"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound deleting twice, got %v", err)
	}
}

func TestStoreValidation(t *testing.T) {
	manager, _ := NewMockManager()

	err := manager.Store(&Account{})
	if err == nil {
		t.Fatal("Expected validation error")
	}
	for _, want := range []string{"username is required", "authorization token is required"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected %q in %v", want, err)
		}
	}

	if err := (*Account)(nil).Validate(); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials for nil account, got %v", err)
	}
}

func TestStoreFallsThroughFailingStores(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = fmt.Errorf("disk full")
	working := NewMockStore()

	manager := NewManagerWithStores(broken, working)
	if err := manager.Store(testAccount("fallback")); err != nil {
		t.Fatalf("Expected the second store to accept the account: %v", err)
	}
	if working.Count() != 1 {
		t.Errorf("Expected account in second store, got %d", working.Count())
	}

	working.StoreError = fmt.Errorf("read only")
	if err := manager.Store(testAccount("nowhere")); err == nil || !strings.Contains(err.Error(), "read only") {
		t.Errorf("Expected last store error, got %v", err)
	}
}

func TestListPrefersNewestCopy(t *testing.T) {
	older, newer := NewMockStore(), NewMockStore()

	a := testAccount("shared")
	a.Token = "old"
	a.LastModified = time.Now().Add(-time.Hour)
	_ = older.Store(a)

	b := testAccount("shared")
	b.Token = "new"
	b.LastModified = time.Now()
	_ = newer.Store(b)

	c := testAccount("other")
	c.LastModified = time.Now().Add(-2 * time.Hour)
	_ = older.Store(c)

	manager := NewManagerWithStores(older, newer)
	accounts, _ := manager.List()
	if len(accounts) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(accounts))
	}
	if accounts[0].Username != "shared" || accounts[0].Token != "new" {
		t.Errorf("Expected the newest copy of shared first, got %+v", accounts[0])
	}

	def, err := manager.RetrieveDefault()
	if err != nil || def.Token != "new" {
		t.Errorf("Expected default to be the newest account, got %+v, %v", def, err)
	}
}

func TestAccountCredential(t *testing.T) {
	cred := testAccount("u").Credential()
	if cred.Token != "Bearer IGT:2:test_token_value_12345" {
		t.Errorf("Expected Bearer prefix, got %s", cred.Token)
	}
	if cred.DSUserID != "123456789" || cred.MID == "" || cred.Rur == "" {
		t.Errorf("Cookies not carried over: %+v", cred)
	}
}

func TestSanitizeAccount(t *testing.T) {
	account := testAccount("masked")
	sanitized := SanitizeAccount(account)

	if sanitized.Token == account.Token || !strings.HasPrefix(sanitized.Token, "IGT:") {
		t.Errorf("Token should be masked, got %s", sanitized.Token)
	}
	if sanitized.Rur == account.Rur {
		t.Error("Rur should be masked")
	}
	if sanitized.Username != account.Username {
		t.Error("Username should not be masked")
	}
	if SanitizeAccount(&Account{Token: "short"}).Token != "********" {
		t.Error("Short secrets should be fully masked")
	}
	if SanitizeAccount(nil) != nil {
		t.Error("Expected nil for nil account")
	}
}

func TestEncryptedFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.enc")

	store, err := NewEncryptedFileStoreWithPassphrase(path, "test_passphrase_123")
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}

	account := testAccount("encrypted_user")
	if err := store.Store(account); err != nil {
		t.Fatalf("Failed to store in encrypted file: %v", err)
	}
	if err := store.Store(testAccount("second_user")); err != nil {
		t.Fatalf("Failed to store second account: %v", err)
	}

	retrieved, err := store.Retrieve("encrypted_user")
	if err != nil {
		t.Fatalf("Failed to retrieve from encrypted file: %v", err)
	}
	if retrieved.Token != account.Token {
		t.Error("Token mismatch after encryption/decryption")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(content, []byte(account.Token)) {
		t.Error("File contains the plaintext token")
	}
	if bytes.Contains(content, []byte(account.Rur)) {
		t.Error("File contains the plaintext rur cookie")
	}

	// a different passphrase cannot read it
	other, _ := NewEncryptedFileStoreWithPassphrase(path, "wrong")
	if _, err := other.Retrieve("encrypted_user"); err == nil {
		t.Error("Expected decryption to fail with the wrong passphrase")
	}

	if err := store.Delete("encrypted_user"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if store.Exists("encrypted_user") {
		t.Error("Account should be gone")
	}
	if err := store.Delete("second_user"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("File should be removed with the last account")
	}

	if _, err := NewEncryptedFileStoreWithPassphrase(path, ""); err == nil {
		t.Error("Expected an error for an empty passphrase")
	}
}

func TestEncryptedFileStoreFromEnvironment(t *testing.T) {
	t.Setenv(EnvPassphrase, "env_passphrase")
	path := filepath.Join(t.TempDir(), "nested", "creds.enc")

	store, err := NewEncryptedFileStore(path)
	if err != nil {
		t.Fatalf("Failed to create encrypted store: %v", err)
	}
	if store.passphrase != "env_passphrase" {
		t.Errorf("Expected passphrase from environment, got %q", store.passphrase)
	}

	accounts, err := store.List()
	if err != nil || len(accounts) != 0 {
		t.Errorf("Expected empty list before first store, got %v, %v", accounts, err)
	}
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv(EnvToken, "env_token")
	t.Setenv(EnvMID, "env_mid")
	t.Setenv(EnvRur, "env_rur")
	t.Setenv(EnvAccount, "")

	store := NewEnvironmentStore()

	account, err := store.Retrieve("")
	if err != nil {
		t.Fatalf("Failed to retrieve from environment: %v", err)
	}
	if account.Username != "default" {
		t.Errorf("Expected default label, got %s", account.Username)
	}
	if account.Token != "env_token" || account.MID != "env_mid" || account.Rur != "env_rur" {
		t.Errorf("Unexpected account %+v", account)
	}
	if !store.Exists("anything") {
		t.Error("Expected environment credentials to exist")
	}

	if err := store.Store(&Account{}); err != ErrStoreUnavailable {
		t.Error("Expected ErrStoreUnavailable for environment store")
	}

	t.Setenv(EnvToken, "")
	if _, err := store.Retrieve(""); !errors.Is(err, errs.ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound without a token, got %v", err)
	}
	if accounts, _ := store.List(); len(accounts) != 0 {
		t.Errorf("Expected no accounts, got %d", len(accounts))
	}
}

func TestManagerDefaultPrefersEnvironment(t *testing.T) {
	t.Setenv(EnvToken, "from_env")
	t.Setenv(EnvAccount, "ci")

	stored := NewMockStore()
	_ = stored.Store(testAccount("stored"))

	manager := NewManagerWithStores(stored, NewEnvironmentStore())
	account, err := manager.RetrieveDefault()
	if err != nil {
		t.Fatal(err)
	}
	if account.Username != "ci" || account.Token != "from_env" {
		t.Errorf("Expected environment account, got %+v", account)
	}
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	if err != nil {
		t.Fatalf("Mock keyring should be available: %v", err)
	}

	if err := store.Store(testAccount("alice")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := store.Store(testAccount("bob")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	// storing again does not duplicate the index entry
	if err := store.Store(testAccount("alice")); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	accounts, err := store.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(accounts) != 2 {
		t.Fatalf("Expected 2 accounts, got %d", len(accounts))
	}

	got, err := store.Retrieve("bob")
	if err != nil || got.Token != testAccount("bob").Token {
		t.Errorf("Unexpected retrieve result %+v, %v", got, err)
	}

	if err := store.Delete("alice"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if store.Exists("alice") {
		t.Error("alice should be gone")
	}
	if err := store.Delete("alice"); !errors.Is(err, ErrCredentialsNotFound) {
		t.Errorf("Expected ErrCredentialsNotFound, got %v", err)
	}

	accounts, _ = store.List()
	if len(accounts) != 1 || accounts[0].Username != "bob" {
		t.Errorf("Expected only bob, got %+v", accounts)
	}
}

func TestMockStoreErrorInjection(t *testing.T) {
	store := NewMockStore()
	store.ListError = fmt.Errorf("injected error")

	if _, err := store.List(); err == nil || err.Error() != "injected error" {
		t.Error("Expected injected error")
	}

	// a failing store is skipped when listing through the manager
	healthy := NewMockStore()
	_ = healthy.Store(testAccount("ok"))
	accounts, err := NewManagerWithStores(store, healthy).List()
	if err != nil || len(accounts) != 1 {
		t.Errorf("Expected one account from the healthy store, got %v, %v", accounts, err)
	}
}

func TestCredentialGuide(t *testing.T) {
	var buf bytes.Buffer
	ShowCredentialGuide(&buf)
	for _, want := range []string{"Authorization header", "ig-u-rur", "IGFOLLOWERS_TOKEN"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Guide is missing %q", want)
		}
	}

	buf.Reset()
	ShowQuickGuide(&buf)
	if !strings.Contains(buf.String(), "x-mid") {
		t.Error("Quick guide should mention x-mid")
	}
}
