// Package credential persists the session token in the OS keyring so a
// login survives across runs without writing secrets to disk in plain
// text.
package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const (
	serviceName = "keylcop"
	tokenKey    = "session-token"
)

func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/keylcop/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("keylcop-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Token returns the stored session token, empty when none is stored.
func Token() string {
	ring, err := openKeyring()
	if err != nil {
		return ""
	}
	item, err := ring.Get(tokenKey)
	if err != nil {
		return ""
	}
	return string(item.Data)
}

// StoreToken saves the session token after a successful login.
func StoreToken(token string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}
	if err := ring.Set(keyring.Item{Key: tokenKey, Data: []byte(token)}); err != nil {
		return fmt.Errorf("storing session token: %w", err)
	}
	return nil
}

// ClearToken removes the stored session token on logout. A token that
// was never stored is not an error.
func ClearToken() error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}
	if err := ring.Remove(tokenKey); err != nil && err != keyring.ErrKeyNotFound {
		return fmt.Errorf("clearing session token: %w", err)
	}
	return nil
}
