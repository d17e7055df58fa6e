//go:build darwin

package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/keybase/go-keychain"
)

const (
	keychainService = "fedctl"
	keychainAccount = "store-key"
)

// ResolveSecret retrieves the store encryption secret from one of three
// sources (in priority order):
// 1. Explicit flag/argument (passed in)
// 2. Environment variable (FEDCTL_SECRET)
// 3. System Keychain (macOS only)
func ResolveSecret(explicitSecret string) (string, error) {
	if explicitSecret != "" {
		return explicitSecret, nil
	}

	if envSecret := os.Getenv("FEDCTL_SECRET"); envSecret != "" {
		return envSecret, nil
	}

	secret, err := getKeychainSecret()
	if err == nil && secret != "" {
		return secret, nil
	}

	return "", fmt.Errorf("no secret found (use --secret, FEDCTL_SECRET, or 'fedctl init')")
}

// SetupKeychain generates a fresh random secret and stores it in the
// macOS keychain, replacing any existing one.
func SetupKeychain() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	secret := hex.EncodeToString(key) // 64 chars hex string

	item := keychain.NewItem()
	item.SetSecClass(keychain.SecClassGenericPassword)
	item.SetService(keychainService)
	item.SetAccount(keychainAccount)
	item.SetLabel("fedctl store encryption key")
	item.SetAccessGroup(keychainService)
	item.SetData([]byte(secret))
	item.SetSynchronizable(keychain.SynchronizableNo)
	item.SetAccessible(keychain.AccessibleWhenUnlocked)

	// Remove existing if any
	keychain.DeleteItem(item)

	if err := keychain.AddItem(item); err != nil {
		return "", fmt.Errorf("failed to save to keychain: %w", err)
	}

	return secret, nil
}

func getKeychainSecret() (string, error) {
	query := keychain.NewItem()
	query.SetSecClass(keychain.SecClassGenericPassword)
	query.SetService(keychainService)
	query.SetAccount(keychainAccount)
	query.SetMatchLimit(keychain.MatchLimitOne)
	query.SetReturnData(true)

	results, err := keychain.QueryItem(query)
	if err != nil {
		return "", err
	} else if len(results) != 1 {
		return "", fmt.Errorf("secret not found in keychain")
	}

	return string(results[0].Data), nil
}
