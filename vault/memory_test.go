package vault_test

import (
	"errors"
	"testing"

	creatorledger "github.com/Bidon15/creatorledger"
	"github.com/Bidon15/creatorledger/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRetrieveDelete(t *testing.T) {
	ctx := t.Context()
	m := vault.NewMemory()

	_, sk, err := creatorledger.GenerateKeypair()
	require.NoError(t, err)
	defer sk.Release()

	exists, err := m.Exists(ctx, "creator-1")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, m.Store(ctx, "creator-1", sk))

	exists, err = m.Exists(ctx, "creator-1")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := m.Retrieve(ctx, "creator-1")
	require.NoError(t, err)
	defer got.Release()

	seedWant, err := sk.Seed()
	require.NoError(t, err)
	seedGot, err := got.Seed()
	require.NoError(t, err)
	assert.Equal(t, seedWant, seedGot)

	existed, err := m.Delete(ctx, "creator-1")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = m.Delete(ctx, "creator-1")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestMemoryRetrieveAbsent(t *testing.T) {
	m := vault.NewMemory()
	_, err := m.Retrieve(t.Context(), "nobody")
	assert.True(t, errors.Is(err, vault.ErrAbsent))
}

func TestMemoryRejectsInvalidCreatorID(t *testing.T) {
	m := vault.NewMemory()
	_, err := m.Exists(t.Context(), "../evil")
	assert.ErrorIs(t, err, creatorledger.ErrInvalidInput)
}
