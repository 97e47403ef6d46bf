package vault_test

import (
	"runtime"
	"testing"

	"github.com/Bidon15/creatorledger/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemoryVariant(t *testing.T) {
	v, err := vault.Open(vault.Options{Variant: vault.VariantMemory})
	require.NoError(t, err)
	_, ok := v.(*vault.Memory)
	assert.True(t, ok)
}

func TestOpenExplicitMismatchedPlatformFails(t *testing.T) {
	mismatched := vault.VariantLinux
	if runtime.GOOS == "linux" {
		mismatched = vault.VariantMacOS
	}
	_, err := vault.Open(vault.Options{Variant: mismatched})
	assert.Error(t, err)
}

func TestOpenAutoFallsBackToMemoryOrNative(t *testing.T) {
	v, err := vault.Open(vault.Options{Variant: vault.VariantAuto, FileBase: t.TempDir()})
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestOpenUnknownVariantFails(t *testing.T) {
	_, err := vault.Open(vault.Options{Variant: "bogus"})
	assert.Error(t, err)
}
