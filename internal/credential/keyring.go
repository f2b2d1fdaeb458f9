package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/99designs/keyring"
)

// OpenKeyring opens the system keyring, falling back to an encrypted file
// store under dir.
func OpenKeyring(service, dir string) (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: service,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  dir,
		FilePasswordFunc:         keyring.FixedStringPrompt(service + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Keyring reads the bearer token stored under key.
type Keyring struct {
	ring keyring.Keyring
	key  string
}

func NewKeyring(ring keyring.Keyring, key string) *Keyring {
	return &Keyring{ring: ring, key: key}
}

func (k *Keyring) Token(_ context.Context) (string, error) {
	item, err := k.ring.Get(k.key)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", fmt.Errorf("%w: %q not in keyring", ErrNoCredential, k.key)
		}
		return "", fmt.Errorf("getting credential %q: %w", k.key, err)
	}
	if len(item.Data) == 0 {
		return "", fmt.Errorf("%w: %q is empty", ErrNoCredential, k.key)
	}
	return string(item.Data), nil
}

// Store saves a token under the configured key.
func (k *Keyring) Store(token string) error {
	if err := k.ring.Set(keyring.Item{Key: k.key, Data: []byte(token)}); err != nil {
		return fmt.Errorf("setting credential %q: %w", k.key, err)
	}
	return nil
}
