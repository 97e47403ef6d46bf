// Package vaultmigration moves a creator's secret from one vault backend
// to another — for example, rolling a creator off V-Memory onto the host's
// native backend, or relocating a V-File store to a new directory.
//
// Adapted from migration/export.go's Confirmed-gate shape (ErrExportNotConfirmed,
// a required opt-in flag before anything destructive happens) and
// migration/import.go's export-then-import-then-verify sequencing,
// generalized from a cross-keyring-framework migration to a cross-Vault-backend
// one.
package vaultmigration

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	creatorledger "github.com/Bidon15/creatorledger"
	"github.com/Bidon15/creatorledger/vault"
)

// ErrNotConfirmed reports that Options.Confirmed was false: Move refuses to
// touch either vault without an explicit opt-in.
var ErrNotConfirmed = errors.New("vaultmigration: move requires confirmation")

// Options configures Move.
type Options struct {
	// Confirmed must be true or Move fails immediately with
	// ErrNotConfirmed, before reading from src or writing to dst.
	Confirmed bool

	// DeleteSource removes the secret from src once dst has confirmed
	// storage of an identical seed. If false, src is left untouched (a
	// copy rather than a move).
	DeleteSource bool
}

// Result reports what Move did.
type Result struct {
	CreatorID     string
	SourceDeleted bool
}

// Move copies creatorID's secret from src to dst, verifies dst holds an
// identical seed by reading it back, and — only then, and only if
// opts.DeleteSource is set — deletes the secret from src. Deleting the
// source before the destination is confirmed would risk losing the only
// copy of the secret on a failed or partial write, so confirmation always
// precedes deletion.
func Move(ctx context.Context, src, dst vault.Vault, creatorID string, opts Options) (*Result, error) {
	if !opts.Confirmed {
		return nil, ErrNotConfirmed
	}
	if src == nil || dst == nil {
		return nil, fmt.Errorf("%w: source and destination vaults are required", creatorledger.ErrInvalidInput)
	}

	secret, err := src.Retrieve(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("retrieve from source: %w", err)
	}
	defer secret.Release()

	seed, err := secret.Seed()
	if err != nil {
		return nil, fmt.Errorf("read source seed: %w", err)
	}
	seedCopy := make([]byte, len(seed))
	copy(seedCopy, seed)

	if err := dst.Store(ctx, creatorID, secret); err != nil {
		return nil, fmt.Errorf("store to destination: %w", err)
	}

	confirmSecret, err := dst.Retrieve(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("confirm destination: %w", err)
	}
	defer confirmSecret.Release()

	confirmSeed, err := confirmSecret.Seed()
	if err != nil {
		return nil, fmt.Errorf("confirm destination: %w", err)
	}
	if !bytes.Equal(seedCopy, confirmSeed) {
		return nil, fmt.Errorf("%w: destination seed does not match source after store", creatorledger.ErrVaultIO)
	}

	result := &Result{CreatorID: creatorID}
	if opts.DeleteSource {
		if _, err := src.Delete(ctx, creatorID); err != nil {
			return nil, fmt.Errorf("delete source after confirmed move: %w", err)
		}
		result.SourceDeleted = true
	}
	return result, nil
}
