package storage_test

import (
	"testing"
	"time"

	creatorledger "github.com/Bidon15/creatorledger"
	"github.com/Bidon15/creatorledger/identity"
	"github.com/Bidon15/creatorledger/ledger"
	"github.com/Bidon15/creatorledger/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIdentity(t *testing.T, creatorID string) *identity.Identity {
	t.Helper()
	pub, sk, err := creatorledger.GenerateKeypair()
	require.NoError(t, err)
	sk.Release()
	id, err := identity.New(creatorID, "Test Creator", pub, time.Unix(1000, 0))
	require.NoError(t, err)
	return id
}

func TestMemoryPutIdentityRejectsDuplicate(t *testing.T) {
	ctx := t.Context()
	s := storage.NewMemory()
	id := newTestIdentity(t, "creator-1")

	require.NoError(t, s.PutIdentity(ctx, id))
	err := s.PutIdentity(ctx, id)
	assert.ErrorIs(t, err, creatorledger.ErrStorage)
}

func TestMemoryGetTipNoEvents(t *testing.T) {
	ctx := t.Context()
	s := storage.NewMemory()
	id := newTestIdentity(t, "creator-1")
	require.NoError(t, s.PutIdentity(ctx, id))

	tip, err := s.GetTip(ctx, "creator-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.Tip{}, tip)
}

func TestMemoryGetTipUnknownCreator(t *testing.T) {
	ctx := t.Context()
	s := storage.NewMemory()
	_, err := s.GetTip(ctx, "ghost")
	assert.ErrorIs(t, err, creatorledger.ErrUnknownCreator)
}

func TestMemoryInsertAndListEvents(t *testing.T) {
	ctx := t.Context()
	s := storage.NewMemory()
	id := newTestIdentity(t, "creator-1")
	require.NoError(t, s.PutIdentity(ctx, id))

	ev1 := ledger.Event{CreatorID: "creator-1", Seq: 1, Kind: "register", Payload: []byte("a"), Timestamp: 1000, PrevHash: ledger.ZeroHash, RowVersion: 1}
	require.NoError(t, s.InsertIfTipMatches(ctx, ev1, ledger.Tip{}))

	tip, err := s.GetTip(ctx, "creator-1")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), tip.Seq)

	err = s.InsertIfTipMatches(ctx, ev1, ledger.Tip{})
	assert.ErrorIs(t, err, creatorledger.ErrConcurrencyConflict)

	got, ok, err := s.GetEvent(ctx, "creator-1", 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, ev1.Payload, got.Payload)

	events, err := s.ListEvents(ctx, "creator-1", 1, 0)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
