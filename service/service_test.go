package service_test

import (
	"testing"

	"github.com/Bidon15/creatorledger/bundle"
	"github.com/Bidon15/creatorledger/service"
	"github.com/Bidon15/creatorledger/storage"
	"github.com/Bidon15/creatorledger/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAppendExportVerify(t *testing.T) {
	ctx := t.Context()
	l := service.Open(storage.NewMemory(), vault.NewMemory())

	id, err := l.RegisterCreator(ctx, "creator-1", "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, "creator-1", id.CreatorID)

	_, err = l.Append(ctx, "creator-1", "register", []byte("asset-1"), 1000)
	require.NoError(t, err)
	_, err = l.Append(ctx, "creator-1", "transfer", []byte("asset-1->bob"), 1001)
	require.NoError(t, err)

	seq, ok, err := l.VerifyChain(ctx, "creator-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), seq)

	b, err := l.ExportBundle(ctx, "creator-1")
	require.NoError(t, err)
	require.Len(t, b.Events, 2)
	assert.NoError(t, bundle.Verify(b))
}

func TestRegisterCreatorTwiceFails(t *testing.T) {
	ctx := t.Context()
	l := service.Open(storage.NewMemory(), vault.NewMemory())

	_, err := l.RegisterCreator(ctx, "creator-1", "Jane Doe")
	require.NoError(t, err)

	_, err = l.RegisterCreator(ctx, "creator-1", "Jane Doe")
	assert.Error(t, err)
}
