// Package service wires the engine (C1–C5) into the single
// caller-facing facade the control-flow narrative describes: open, register
// a creator, append events, export and verify bundles.
//
// Adapted from control-plane/internal/service/key_service.go's shape — one
// interface-backed service type wrapping a repository and the underlying
// key-management primitive — generalized from key lifecycle management to
// ledger lifecycle management.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	creatorledger "github.com/Bidon15/creatorledger"
	"github.com/Bidon15/creatorledger/bundle"
	"github.com/Bidon15/creatorledger/identity"
	"github.com/Bidon15/creatorledger/internal/opid"
	"github.com/Bidon15/creatorledger/ledger"
	"github.com/Bidon15/creatorledger/vault"
)

// Ledger is the facade over one backing Store and one Vault: it runs the
// full control flow — register a creator (generates a keypair via C1,
// stores the secret via C2, persists the identity via C3), append signed
// events (C4), and export or verify proof bundles (C5) — without exposing
// the engine or the store to bundle verification, which stays a pure
// function of bundle bytes.
type Ledger struct {
	store  ledger.Store
	vault  vault.Vault
	engine *ledger.Engine
	logger *slog.Logger
}

// Open constructs a Ledger over store and v. Running pending schema
// migrations (C6) is the caller's responsibility before Open, since it is
// a distinct, explicitly-invoked step (see storage.Postgres.RunMigrations).
func Open(store ledger.Store, v vault.Vault) *Ledger {
	return &Ledger{store: store, vault: v, engine: ledger.New(store, v), logger: slog.Default()}
}

// WithLogger overrides the facade's logger. RegisterCreator and Append log
// an op_id (see internal/opid) so a single call can be traced across its
// log lines; VerifyChain and ExportBundle do not log.
func (l *Ledger) WithLogger(logger *slog.Logger) *Ledger {
	l.logger = logger
	return l
}

// RegisterCreator generates a new Ed25519 keypair, stores the secret in the
// vault, and persists a new Identity row. Returns the Identity (with its
// public key) and releases the in-memory secret before returning — later
// signing reads it back from the vault.
func (l *Ledger) RegisterCreator(ctx context.Context, creatorID, displayName string) (*identity.Identity, error) {
	op := opid.New()
	log := l.logger.With(slog.String("op_id", op), slog.String("creator_id", creatorID))
	log.Info("registering creator")

	pub, sk, err := creatorledger.GenerateKeypair()
	if err != nil {
		log.Warn("keypair generation failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	defer sk.Release()

	if err := l.vault.Store(ctx, creatorID, sk); err != nil {
		log.Warn("vault store failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("store secret: %w", err)
	}

	id, err := identity.New(creatorID, displayName, pub, time.Now())
	if err != nil {
		return nil, err
	}

	type identityWriter interface {
		PutIdentity(ctx context.Context, id *identity.Identity) error
	}
	writer, ok := l.store.(identityWriter)
	if !ok {
		return nil, fmt.Errorf("%w: store does not support creator registration", creatorledger.ErrStorage)
	}
	if err := writer.PutIdentity(ctx, id); err != nil {
		log.Warn("identity persist failed", slog.String("error", err.Error()))
		return nil, err
	}
	log.Info("creator registered")
	return id, nil
}

// Append signs and appends the next event for creatorID. See
// ledger.Engine.Append for concurrency-conflict semantics.
func (l *Ledger) Append(ctx context.Context, creatorID, kind string, payload []byte, timestamp int64) (ledger.Event, error) {
	op := opid.New()
	log := l.logger.With(slog.String("op_id", op), slog.String("creator_id", creatorID), slog.String("kind", kind))

	ev, err := l.engine.Append(ctx, creatorID, kind, payload, timestamp)
	if err != nil {
		log.Warn("append failed", slog.String("error", err.Error()))
		return ledger.Event{}, err
	}
	log.Info("event appended", slog.Uint64("seq", ev.Seq))
	return ev, nil
}

// VerifyChain runs the engine's online verify_chain operation (I1/I2/I3
// over the live store), as distinct from bundle.Verify's offline check of
// an exported bundle.
func (l *Ledger) VerifyChain(ctx context.Context, creatorID string) (uint64, bool, error) {
	return l.engine.VerifyChain(ctx, creatorID)
}

// ExportBundle materialises a proof bundle for creatorID covering events
// seq 1 through the current tip.
func (l *Ledger) ExportBundle(ctx context.Context, creatorID string) (*bundle.Bundle, error) {
	id, err := l.store.IdentityByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	events, err := l.engine.ListEvents(ctx, creatorID, 1, 0)
	if err != nil {
		return nil, err
	}
	return bundle.Export(id, events), nil
}
