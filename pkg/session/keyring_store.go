package session

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringService is the keychain service name entries are stored under
const KeyringService = "xhstoolbox"

// KeyringStore keeps values in the system keychain
type KeyringStore struct {
	service string
}

// NewKeyringStore checks that the keychain is usable and returns a store
// for service
func NewKeyringStore(service string) (*KeyringStore, error) {
	const probe = "availability_probe"
	if err := keyring.Set(service, probe, "ok"); err != nil {
		return nil, fmt.Errorf("%w: keyring: %v", ErrStoreUnavailable, err)
	}
	_ = keyring.Delete(service, probe)

	return &KeyringStore{service: service}, nil
}

func (k *KeyringStore) Load(_ context.Context, key string) ([]byte, error) {
	data, err := keyring.Get(k.service, key)
	if err != nil {
		if stderrors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read from keyring: %w", err)
	}
	return []byte(data), nil
}

func (k *KeyringStore) Save(_ context.Context, key string, data []byte) error {
	if err := keyring.Set(k.service, key, string(data)); err != nil {
		return fmt.Errorf("failed to write to keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Delete(_ context.Context, key string) error {
	if err := keyring.Delete(k.service, key); err != nil {
		if stderrors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}
