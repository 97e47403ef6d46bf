package vaultmigration_test

import (
	"testing"

	creatorledger "github.com/Bidon15/creatorledger"
	"github.com/Bidon15/creatorledger/vault"
	"github.com/Bidon15/creatorledger/vaultmigration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoveRequiresConfirmation(t *testing.T) {
	ctx := t.Context()
	src, dst := vault.NewMemory(), vault.NewMemory()

	_, err := vaultmigration.Move(ctx, src, dst, "creator-1", vaultmigration.Options{Confirmed: false})
	assert.ErrorIs(t, err, vaultmigration.ErrNotConfirmed)
}

func TestMoveCopiesAndDeletesSource(t *testing.T) {
	ctx := t.Context()
	src, dst := vault.NewMemory(), vault.NewMemory()

	_, sk, err := creatorledger.GenerateKeypair()
	require.NoError(t, err)
	require.NoError(t, src.Store(ctx, "creator-1", sk))
	sk.Release()

	result, err := vaultmigration.Move(ctx, src, dst, "creator-1", vaultmigration.Options{Confirmed: true, DeleteSource: true})
	require.NoError(t, err)
	assert.True(t, result.SourceDeleted)

	existsSrc, err := src.Exists(ctx, "creator-1")
	require.NoError(t, err)
	assert.False(t, existsSrc)

	existsDst, err := dst.Exists(ctx, "creator-1")
	require.NoError(t, err)
	assert.True(t, existsDst)
}

func TestMoveWithoutDeleteLeavesSourceIntact(t *testing.T) {
	ctx := t.Context()
	src, dst := vault.NewMemory(), vault.NewMemory()

	_, sk, err := creatorledger.GenerateKeypair()
	require.NoError(t, err)
	require.NoError(t, src.Store(ctx, "creator-1", sk))
	sk.Release()

	result, err := vaultmigration.Move(ctx, src, dst, "creator-1", vaultmigration.Options{Confirmed: true, DeleteSource: false})
	require.NoError(t, err)
	assert.False(t, result.SourceDeleted)

	existsSrc, err := src.Exists(ctx, "creator-1")
	require.NoError(t, err)
	assert.True(t, existsSrc)
}

func TestMoveFailsWhenSourceAbsent(t *testing.T) {
	ctx := t.Context()
	src, dst := vault.NewMemory(), vault.NewMemory()

	_, err := vaultmigration.Move(ctx, src, dst, "creator-1", vaultmigration.Options{Confirmed: true})
	assert.Error(t, err)
}
