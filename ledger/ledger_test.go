package ledger_test

import (
	"testing"
	"time"

	creatorledger "github.com/Bidon15/creatorledger"
	"github.com/Bidon15/creatorledger/identity"
	"github.com/Bidon15/creatorledger/ledger"
	"github.com/Bidon15/creatorledger/storage"
	"github.com/Bidon15/creatorledger/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixture(t *testing.T) (*ledger.Engine, *storage.Memory, string) {
	t.Helper()
	ctx := t.Context()

	store := storage.NewMemory()
	v := vault.NewMemory()

	pub, sk, err := creatorledger.GenerateKeypair()
	require.NoError(t, err)
	require.NoError(t, v.Store(ctx, "creator-1", sk))
	sk.Release()

	id, err := identity.New("creator-1", "Jane Doe", pub, time.Unix(1000, 0))
	require.NoError(t, err)
	require.NoError(t, store.PutIdentity(ctx, id))

	return ledger.New(store, v), store, "creator-1"
}

func TestAppendFirstEventYieldsSeq1ZeroPrevHash(t *testing.T) {
	ctx := t.Context()
	engine, _, creatorID := newFixture(t)

	ev, err := engine.Append(ctx, creatorID, "register", []byte("asset-1"), 1000)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), ev.Seq)
	assert.Equal(t, ledger.ZeroHash, ev.PrevHash)
	assert.NotEqual(t, [32]byte{}, ev.ThisHash)
	assert.False(t, ev.Signature.IsZero())
}

func TestAppendSecondEventChainsToFirst(t *testing.T) {
	ctx := t.Context()
	engine, _, creatorID := newFixture(t)

	first, err := engine.Append(ctx, creatorID, "register", []byte("asset-1"), 1000)
	require.NoError(t, err)

	second, err := engine.Append(ctx, creatorID, "transfer", []byte("asset-1->bob"), 1001)
	require.NoError(t, err)

	assert.Equal(t, uint64(2), second.Seq)
	assert.Equal(t, first.ThisHash, second.PrevHash)
}

func TestVerifyChainOK(t *testing.T) {
	ctx := t.Context()
	engine, _, creatorID := newFixture(t)

	for i := 0; i < 5; i++ {
		_, err := engine.Append(ctx, creatorID, "event", []byte("payload"), int64(1000+i))
		require.NoError(t, err)
	}

	seq, ok, err := engine.VerifyChain(ctx, creatorID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, uint64(0), seq)
}

func TestVerifyChainDetectsTamperedPayload(t *testing.T) {
	ctx := t.Context()
	engine, store, creatorID := newFixture(t)

	_, err := engine.Append(ctx, creatorID, "register", []byte("asset-1"), 1000)
	require.NoError(t, err)
	_, err = engine.Append(ctx, creatorID, "transfer", []byte("asset-1->bob"), 1001)
	require.NoError(t, err)

	store.TamperPayload(creatorID, 1, []byte("asset-1-tampered"))

	seq, ok, err := engine.VerifyChain(ctx, creatorID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), seq)
}

func TestAppendConcurrencyConflict(t *testing.T) {
	ctx := t.Context()
	engine, store, creatorID := newFixture(t)

	tip, err := engine.GetTip(ctx, creatorID)
	require.NoError(t, err)

	_, err = engine.Append(ctx, creatorID, "register", []byte("x"), 1000)
	require.NoError(t, err)

	stale := ledger.Event{
		CreatorID:  creatorID,
		Seq:        1,
		Kind:       "register",
		Payload:    []byte("racer"),
		Timestamp:  999,
		PrevHash:   ledger.ZeroHash,
		RowVersion: 1,
	}
	err = store.InsertIfTipMatches(ctx, stale, tip)
	assert.ErrorIs(t, err, creatorledger.ErrConcurrencyConflict)
}

func TestAppendUnknownCreatorFails(t *testing.T) {
	ctx := t.Context()
	store := storage.NewMemory()
	v := vault.NewMemory()
	engine := ledger.New(store, v)

	_, err := engine.Append(ctx, "ghost", "register", []byte("x"), 1000)
	assert.ErrorIs(t, err, creatorledger.ErrUnknownCreator)
}

func TestListEventsOrderedAscending(t *testing.T) {
	ctx := t.Context()
	engine, _, creatorID := newFixture(t)

	for i := 0; i < 3; i++ {
		_, err := engine.Append(ctx, creatorID, "event", []byte("p"), int64(1000+i))
		require.NoError(t, err)
	}

	events, err := engine.ListEvents(ctx, creatorID, 1, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, uint64(i+1), ev.Seq)
	}
}
