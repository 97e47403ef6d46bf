// Package creatorledger issues cryptographic provenance for digital assets.
//
// A creator holds an Ed25519 signing key; every observable act on an asset
// is recorded as a signed event in a per-creator append-only ledger whose
// events form a hash chain. An exported proof bundle lets a third party
// verify the attestation offline with no server. See the subpackages:
// identity (creator records), vault (secret-key storage), ledger (the
// hash-chained append-only engine), storage (backing stores for the
// engine), and bundle (offline proof verification).
package creatorledger

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per error kind in the design. Callers match with
// errors.Is, never by string comparison.
var (
	// ErrInvalidInput marks a malformed id, name, or encoding.
	ErrInvalidInput = errors.New("creatorledger: invalid input")

	// ErrPathTraversal marks a vault path that escaped its base directory.
	ErrPathTraversal = errors.New("creatorledger: path traversal")

	// ErrPlatformNotSupported marks a vault variant unavailable on this OS.
	ErrPlatformNotSupported = errors.New("creatorledger: platform not supported")

	// ErrVaultIO marks an OS credential store interaction failure.
	ErrVaultIO = errors.New("creatorledger: vault I/O failed")

	// ErrUnknownCreator marks a missing row in the creators table.
	ErrUnknownCreator = errors.New("creatorledger: unknown creator")

	// ErrStorage marks a backing-store error not otherwise classified.
	ErrStorage = errors.New("creatorledger: storage error")

	// ErrConcurrencyConflict marks an append that raced against another.
	// It is retryable: the caller should re-read the tip and retry.
	ErrConcurrencyConflict = errors.New("creatorledger: concurrency conflict, retry")

	// ErrLifecycle marks use of a secret after it has been released.
	ErrLifecycle = errors.New("creatorledger: use after release")
)

// VaultError wraps a vault operation failure with its creator and kind.
type VaultError struct {
	Op        string // "store", "retrieve", "delete", "exists", "open", "validate", "resolve-path"
	CreatorID string
	Err       error
}

// Error implements the error interface.
func (e *VaultError) Error() string {
	return fmt.Sprintf("vault %s %q: %v", e.Op, e.CreatorID, e.Err)
}

// Unwrap implements the errors.Unwrap interface for error chaining.
func (e *VaultError) Unwrap() error {
	return e.Err
}

// WrapVaultError wraps err with vault operation context. Returns nil if err
// is nil.
func WrapVaultError(op, creatorID string, err error) error {
	if err == nil {
		return nil
	}
	return &VaultError{Op: op, CreatorID: creatorID, Err: err}
}

// ChainError reports the first offending seq found by a chain or signature
// check in the bundle verifier. The ledger engine's VerifyChain returns the
// offending seq as a plain value instead.
type ChainError struct {
	Seq uint64
	Err error
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	return fmt.Sprintf("seq %d: %v", e.Seq, e.Err)
}

// Unwrap implements the errors.Unwrap interface for error chaining.
func (e *ChainError) Unwrap() error {
	return e.Err
}

var (
	// ErrBadSignature marks an event whose signature does not verify.
	// Pair with a ChainError to carry the offending seq.
	ErrBadSignature = errors.New("creatorledger: bad signature")

	// ErrBrokenChain marks an event whose prev_hash does not link to the
	// prior event's this_hash. Pair with a ChainError to carry the
	// offending seq.
	ErrBrokenChain = errors.New("creatorledger: broken chain")

	// ErrMalformedBundle marks a bundle that failed to parse or whose
	// shape is invalid.
	ErrMalformedBundle = errors.New("creatorledger: malformed bundle")
)

// NewBadSignature builds a ChainError carrying ErrBadSignature for seq.
func NewBadSignature(seq uint64) error {
	return &ChainError{Seq: seq, Err: ErrBadSignature}
}

// NewBrokenChain builds a ChainError carrying ErrBrokenChain for seq.
func NewBrokenChain(seq uint64) error {
	return &ChainError{Seq: seq, Err: ErrBrokenChain}
}
