// Package identity holds the creator record: a stable id, a display name,
// and the public key that every event in the creator's ledger must verify
// against.
//
// Adapted from control-plane/internal/models/key.go, which already
// distinguishes an Algorithm including AlgorithmEd25519; renamed to
// Identity since "Key" in this domain names a vault/crypto concept, not an
// identity record.
package identity

import (
	"fmt"
	"regexp"
	"time"

	creatorledger "github.com/Bidon15/creatorledger"
)

var (
	creatorIDPattern    = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	displayNamePattern  = regexp.MustCompile(`^[A-Za-z0-9 \-_.,!?()@]+$`)
	maxDisplayNameBytes = 128
)

// ValidateCreatorID reports whether id is URL-safe and filesystem-safe:
// matches [A-Za-z0-9_-]{1,64}.
func ValidateCreatorID(id string) error {
	if !creatorIDPattern.MatchString(id) {
		return fmt.Errorf("%w: creator id %q must match %s", creatorledger.ErrInvalidInput, id, creatorIDPattern.String())
	}
	return nil
}

// ValidateDisplayName reports whether name matches the allowed charset and
// length 1..128.
func ValidateDisplayName(name string) error {
	if len(name) < 1 || len(name) > maxDisplayNameBytes {
		return fmt.Errorf("%w: display name length must be 1..%d, got %d", creatorledger.ErrInvalidInput, maxDisplayNameBytes, len(name))
	}
	if !displayNamePattern.MatchString(name) {
		return fmt.Errorf("%w: display name %q contains disallowed characters", creatorledger.ErrInvalidInput, name)
	}
	return nil
}

// Identity is a creator record: (creator_id, display_name, public_key,
// created_at). Public keys never change after minting; rotation is out of
// scope. Validated once at construction via New; every later consumer may
// assume validity.
type Identity struct {
	CreatorID   string
	DisplayName string
	PublicKey   creatorledger.PublicKey
	CreatedAt   time.Time
	// RowVersion is persisted but never compared by any operation in this
	// scope; reserved for future mutable-identity fields per the design
	// notes.
	RowVersion int64
}

// New validates creatorID and displayName and constructs an Identity minted
// at createdAt with the given public key and an initial RowVersion of 1.
func New(creatorID, displayName string, pub creatorledger.PublicKey, createdAt time.Time) (*Identity, error) {
	if err := ValidateCreatorID(creatorID); err != nil {
		return nil, err
	}
	if err := ValidateDisplayName(displayName); err != nil {
		return nil, err
	}
	return &Identity{
		CreatorID:   creatorID,
		DisplayName: displayName,
		PublicKey:   pub,
		CreatedAt:   createdAt,
		RowVersion:  1,
	}, nil
}
