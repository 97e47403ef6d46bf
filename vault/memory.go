package vault

import (
	"context"
	"fmt"
	"sync"

	creatorledger "github.com/Bidon15/creatorledger"
)

// Memory is an in-process vault backed by a mutex-protected map. Secrets do
// not persist past process exit and are NOT SECURE: this backend exists for
// tests and headless CI only.
//
// Adapted from bao_store.go's sync.RWMutex + map[string]*KeyMetadata
// pattern, dropping the disk persistence (that half becomes File below).
type Memory struct {
	mu      sync.RWMutex
	secrets map[string][]byte
}

// NewMemory constructs an empty in-process vault.
func NewMemory() *Memory {
	return &Memory{secrets: make(map[string][]byte)}
}

var _ Vault = (*Memory)(nil)

// Store implements Vault.
func (m *Memory) Store(_ context.Context, creatorID string, secret *creatorledger.SecretKey) error {
	if err := validateCreatorID(creatorID); err != nil {
		return err
	}
	seed, err := secret.Seed()
	if err != nil {
		return creatorledger.WrapVaultError("store", creatorID, err)
	}
	cp := make([]byte, len(seed))
	copy(cp, seed)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[creatorID] = cp
	return nil
}

// Retrieve implements Vault.
func (m *Memory) Retrieve(_ context.Context, creatorID string) (*creatorledger.SecretKey, error) {
	if err := validateCreatorID(creatorID); err != nil {
		return nil, err
	}
	m.mu.RLock()
	seed, ok := m.secrets[creatorID]
	m.mu.RUnlock()
	if !ok {
		return nil, creatorledger.WrapVaultError("retrieve", creatorID, fmt.Errorf("%w", ErrAbsent))
	}
	return creatorledger.SecretKeyFromSeed(seed)
}

// Delete implements Vault.
func (m *Memory) Delete(_ context.Context, creatorID string) (bool, error) {
	if err := validateCreatorID(creatorID); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, existed := m.secrets[creatorID]
	delete(m.secrets, creatorID)
	return existed, nil
}

// Exists implements Vault.
func (m *Memory) Exists(_ context.Context, creatorID string) (bool, error) {
	if err := validateCreatorID(creatorID); err != nil {
		return false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.secrets[creatorID]
	return ok, nil
}
