// Package ledger implements the per-creator append-only hash-chained event
// log: canonical event encoding, the append/read/verify protocol, and the
// Store abstraction its engine runs against.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	creatorledger "github.com/Bidon15/creatorledger"
	"github.com/Bidon15/creatorledger/identity"
)

// ZeroHash is the 32-byte all-zero prev_hash used by the first event in a
// creator's chain.
var ZeroHash = [32]byte{}

// Event is one signed row in a creator's ledger.
type Event struct {
	CreatorID  string
	Seq        uint64
	Kind       string
	Payload    []byte
	Timestamp  int64 // UTC seconds since the Unix epoch
	PrevHash   [32]byte
	ThisHash   [32]byte
	Signature  creatorledger.Signature
	RowVersion int64
}

// CanonicalBytes builds the exact byte string that is hashed into ThisHash
// and signed: creator_id\x1F, seq (8-byte BE), kind\x1F, timestamp (8-byte
// BE signed), prev_hash (32 raw bytes), payload length (8-byte BE) then
// payload. Producer and verifier MUST compute this identically. Exported so
// package bundle can reconstruct it without depending on the ledger engine
// or its Store.
func CanonicalBytes(creatorID string, seq uint64, kind string, timestamp int64, prevHash [32]byte, payload []byte) []byte {
	buf := make([]byte, 0, len(creatorID)+1+8+len(kind)+1+8+32+8+len(payload))
	buf = append(buf, []byte(creatorID)...)
	buf = append(buf, 0x1F)

	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], seq)
	buf = append(buf, seqBuf[:]...)

	buf = append(buf, []byte(kind)...)
	buf = append(buf, 0x1F)

	var tsBuf [8]byte
	binary.BigEndian.PutUint64(tsBuf[:], uint64(timestamp))
	buf = append(buf, tsBuf[:]...)

	buf = append(buf, prevHash[:]...)

	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(payload)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, payload...)

	return buf
}

// ComputeHash is exported for the same reason as CanonicalBytes.
func ComputeHash(canon []byte) [32]byte {
	return sha256.Sum256(canon)
}

// validateKind accepts any non-empty kind of at most 128 bytes; its content
// is not otherwise checked, since `kind` is a caller-defined vocabulary.
func validateKind(kind string) error {
	if kind == "" || len(kind) > 128 {
		return fmt.Errorf("%w: kind length must be 1..128, got %d", creatorledger.ErrInvalidInput, len(kind))
	}
	return nil
}

// Tip identifies the highest-seq event of a creator's chain, or the "no
// events" sentinel (Seq == 0).
type Tip struct {
	Seq        uint64
	ThisHash   [32]byte
	RowVersion int64
}

// Store is the storage-facing contract the Engine runs against. Postgres
// and Memory (package storage) both implement it.
type Store interface {
	// GetTip returns the creator's current tip, or the zero Tip if the
	// creator has no events yet. Returns an error wrapping
	// creatorledger.ErrUnknownCreator if the creator itself is unregistered.
	GetTip(ctx context.Context, creatorID string) (Tip, error)

	// InsertIfTipMatches inserts ev conditional on the creator's current
	// tip still matching expectedTip. Returns
	// creatorledger.ErrConcurrencyConflict (wrapped) if the tip moved.
	InsertIfTipMatches(ctx context.Context, ev Event, expectedTip Tip) error

	// GetEvent returns one event by (creatorID, seq), or (Event{}, false).
	GetEvent(ctx context.Context, creatorID string, seq uint64) (Event, bool, error)

	// ListEvents returns events for creatorID with fromSeq <= seq, ordered
	// ascending. toSeq == 0 means "through the tip".
	ListEvents(ctx context.Context, creatorID string, fromSeq, toSeq uint64) ([]Event, error)

	// IdentityByID returns the registered identity (including its public
	// key), or an error wrapping creatorledger.ErrUnknownCreator if none is
	// registered.
	IdentityByID(ctx context.Context, creatorID string) (*identity.Identity, error)
}

// SecretSource retrieves the signing secret for a creator. vault.Vault
// satisfies this directly.
type SecretSource interface {
	Retrieve(ctx context.Context, creatorID string) (*creatorledger.SecretKey, error)
}

// Engine implements the append/read/verify protocol (C4) against a Store
// and a SecretSource.
type Engine struct {
	store Store
	vault SecretSource
}

// New constructs an Engine over store, signing new events with secrets
// retrieved from vault.
func New(store Store, vault SecretSource) *Engine {
	return &Engine{store: store, vault: vault}
}

// Append composes, signs, and conditionally inserts the next event for
// creatorID. On a concurrency conflict, returns an error wrapping
// creatorledger.ErrConcurrencyConflict; the caller decides whether to
// retry.
func (e *Engine) Append(ctx context.Context, creatorID, kind string, payload []byte, timestamp int64) (Event, error) {
	if err := identity.ValidateCreatorID(creatorID); err != nil {
		return Event{}, err
	}
	if err := validateKind(kind); err != nil {
		return Event{}, err
	}

	id, err := e.store.IdentityByID(ctx, creatorID)
	if err != nil {
		return Event{}, err
	}

	tip, err := e.store.GetTip(ctx, creatorID)
	if err != nil {
		return Event{}, err
	}

	seq := tip.Seq + 1
	prevHash := tip.ThisHash
	if tip.Seq == 0 {
		prevHash = ZeroHash
	}

	canon := CanonicalBytes(creatorID, seq, kind, timestamp, prevHash, payload)
	thisHash := ComputeHash(canon)

	secret, err := e.vault.Retrieve(ctx, creatorID)
	if err != nil {
		return Event{}, fmt.Errorf("%w: retrieve signing secret: %v", creatorledger.ErrStorage, err)
	}
	defer secret.Release()

	sig, err := secret.Sign(canon)
	if err != nil {
		return Event{}, fmt.Errorf("%w: sign event: %v", creatorledger.ErrStorage, err)
	}
	if derived, derr := secret.DerivePublic(); derr == nil && !id.PublicKey.Equal(derived) {
		return Event{}, fmt.Errorf("%w: vault secret does not match registered public key for %q", creatorledger.ErrStorage, creatorID)
	}

	ev := Event{
		CreatorID:  creatorID,
		Seq:        seq,
		Kind:       kind,
		Payload:    payload,
		Timestamp:  timestamp,
		PrevHash:   prevHash,
		ThisHash:   thisHash,
		Signature:  sig,
		RowVersion: tip.RowVersion + 1,
	}

	if err := e.store.InsertIfTipMatches(ctx, ev, tip); err != nil {
		return Event{}, err
	}
	return ev, nil
}

// GetEvent returns one event and true, or (Event{}, false, nil) if no event
// with that seq exists. Errors come only from the Store itself.
func (e *Engine) GetEvent(ctx context.Context, creatorID string, seq uint64) (Event, bool, error) {
	return e.store.GetEvent(ctx, creatorID, seq)
}

// ListEvents returns creatorID's events with seq in [fromSeq, toSeq]
// (toSeq == 0 means through the tip), ordered ascending.
func (e *Engine) ListEvents(ctx context.Context, creatorID string, fromSeq, toSeq uint64) ([]Event, error) {
	return e.store.ListEvents(ctx, creatorID, fromSeq, toSeq)
}

// GetTip returns creatorID's current tip.
func (e *Engine) GetTip(ctx context.Context, creatorID string) (Tip, error) {
	return e.store.GetTip(ctx, creatorID)
}

// VerifyChain re-derives canonical bytes for every event in creatorID's
// ledger and checks, per event in order, I1 (seq values run 1..N with no
// gap), I2 (prev_hash linkage), the this_hash recomputation, and I3
// (signature). Returns 0, true on success; otherwise the first offending
// seq and false.
func (e *Engine) VerifyChain(ctx context.Context, creatorID string) (uint64, bool, error) {
	id, err := e.store.IdentityByID(ctx, creatorID)
	if err != nil {
		return 0, false, err
	}
	events, err := e.store.ListEvents(ctx, creatorID, 1, 0)
	if err != nil {
		return 0, false, err
	}

	expectedPrev := ZeroHash
	for i, ev := range events {
		if ev.Seq != uint64(i)+1 {
			return ev.Seq, false, nil
		}
		if ev.PrevHash != expectedPrev {
			return ev.Seq, false, nil
		}
		canon := CanonicalBytes(ev.CreatorID, ev.Seq, ev.Kind, ev.Timestamp, ev.PrevHash, ev.Payload)
		if ComputeHash(canon) != ev.ThisHash {
			return ev.Seq, false, nil
		}
		if !creatorledger.Verify(id.PublicKey, canon, ev.Signature) {
			return ev.Seq, false, nil
		}
		expectedPrev = ev.ThisHash
	}
	return 0, true, nil
}
