// Package vault persists a creator's Ed25519 secret seed under OS-native
// protection. Four backends share one capability set: V-File (Windows-style
// OS-bound encryption), V-Linux (secret-tool / Secret Service), V-macOS
// (the security CLI / Keychain), and V-Memory (in-process, not secure, for
// tests and headless CI).
//
// Adapted from the split between bao_keyring.go/bao_store.go (the
// local-file-backed metadata store, atomic write pattern) and
// plugin/secp256k1 (a second, independent backend living in its own
// package), generalized here into one Vault interface with one backend per
// build-tagged file, the way zalando/go-keyring and similar cross-platform
// credential libraries in the ecosystem are laid out.
package vault

import (
	"context"
	"errors"

	creatorledger "github.com/Bidon15/creatorledger"
)

// ErrAbsent reports that no secret is stored for a creator. It is distinct
// from a failure: the slot is simply empty.
var ErrAbsent = errors.New("vault: no secret stored for creator")

// Vault stores a single secret seed per creator id. Store is idempotent:
// storing over an existing slot replaces it atomically from the caller's
// point of view. Retrieve returns ErrAbsent (wrapped) rather than failing
// when nothing is stored.
type Vault interface {
	// Store persists secret under creatorID, replacing any existing value.
	Store(ctx context.Context, creatorID string, secret *creatorledger.SecretKey) error

	// Retrieve returns a freshly owned SecretKey for creatorID. The caller
	// must Release it. Returns an error wrapping ErrAbsent if nothing is
	// stored.
	Retrieve(ctx context.Context, creatorID string) (*creatorledger.SecretKey, error)

	// Delete removes the secret for creatorID, reporting whether a slot
	// existed. Deleting an absent slot is not an error.
	Delete(ctx context.Context, creatorID string) (existed bool, err error)

	// Exists reports whether a secret is stored for creatorID.
	Exists(ctx context.Context, creatorID string) (bool, error)
}

// Variant names one of the four backend implementations.
type Variant string

const (
	VariantAuto   Variant = "auto"
	VariantFile   Variant = "file"
	VariantLinux  Variant = "linux"
	VariantMacOS  Variant = "macos"
	VariantMemory Variant = "memory"
)

func validateCreatorID(creatorID string) error {
	// Charset enforced defensively again here (identity.ValidateCreatorID
	// already ran at Identity construction time) so that a Vault can never
	// be handed an unsafe id directly in tests or by a misbehaving caller.
	for _, r := range creatorID {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return creatorledger.WrapVaultError("validate", creatorID, creatorledger.ErrInvalidInput)
		}
	}
	if creatorID == "" || len(creatorID) > 64 {
		return creatorledger.WrapVaultError("validate", creatorID, creatorledger.ErrInvalidInput)
	}
	return nil
}
