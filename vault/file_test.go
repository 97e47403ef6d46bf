package vault_test

import (
	"path/filepath"
	"testing"

	"github.com/Bidon15/creatorledger/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveKeyPathStaysInsideBase(t *testing.T) {
	base := t.TempDir()

	path, err := vault.ResolveKeyPath(base, "creator-1")
	require.NoError(t, err)

	absBase, err := filepath.Abs(base)
	require.NoError(t, err)
	rel, err := filepath.Rel(absBase, path)
	require.NoError(t, err)
	assert.False(t, filepath.IsAbs(rel))
	assert.NotContains(t, rel, "..")
}

func TestResolveKeyPathRejectsTraversal(t *testing.T) {
	base := t.TempDir()

	malicious := []string{
		"../evil",
		"../../etc/passwd",
		"a/../../b",
	}
	for _, id := range malicious {
		_, err := vault.ResolveKeyPath(base, id)
		assert.Error(t, err, id)
	}
}

func TestFileEmptyVaultReportsAbsent(t *testing.T) {
	base := t.TempDir()
	f, err := vault.NewFile(base)
	require.NoError(t, err)

	exists, err := f.Exists(t.Context(), "creator-1")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = f.Retrieve(t.Context(), "creator-1")
	assert.Error(t, err)
}
