// Package bundle implements the offline proof bundle: a creator's public
// key, identity, and an ordered run of ledger events, serialised so a
// third party can verify the chain and every signature with no server and
// no dependency on this module's storage or vault packages.
//
// Serialisation is fixed-order-field JSON rather than a map, so encoding is
// deterministic without a sorted-keys post-pass; documented in the design
// notes as the bundle format's one stdlib-only choice (no third-party
// codec in the examined pack offers canonical JSON with less ceremony than
// struct field order already gives for free).
package bundle

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	creatorledger "github.com/Bidon15/creatorledger"
	"github.com/Bidon15/creatorledger/identity"
	"github.com/Bidon15/creatorledger/ledger"
)

// Version is the bundle format version Export writes. Parse rejects a
// missing (zero) version but does not compare it against Version.
const Version = 1

// Event is one event as it appears inside a bundle: binary fields are
// encoded as text (payload base64, hashes hex, signature base64) so the
// bundle round-trips through JSON without escaping issues.
type Event struct {
	Seq       uint64 `json:"seq"`
	Kind      string `json:"kind"`
	Payload   string `json:"payload"`
	Timestamp int64  `json:"timestamp"`
	PrevHash  string `json:"prev_hash"`
	ThisHash  string `json:"this_hash"`
	Signature string `json:"signature"`
}

// Bundle is the exported, self-contained proof document.
type Bundle struct {
	BundleVersion int     `json:"bundle_version"`
	CreatorID     string  `json:"creator_id"`
	DisplayName   string  `json:"display_name"`
	PublicKey     string  `json:"public_key"`
	Events        []Event `json:"events"`
}

// Export packages id and events (seq=1 through events[len-1].Seq) into a
// Bundle.
func Export(id *identity.Identity, events []ledger.Event) *Bundle {
	out := make([]Event, len(events))
	for i, ev := range events {
		out[i] = Event{
			Seq:       ev.Seq,
			Kind:      ev.Kind,
			Payload:   base64.StdEncoding.EncodeToString(ev.Payload),
			Timestamp: ev.Timestamp,
			PrevHash:  hex.EncodeToString(ev.PrevHash[:]),
			ThisHash:  hex.EncodeToString(ev.ThisHash[:]),
			Signature: ev.Signature.String(),
		}
	}
	return &Bundle{
		BundleVersion: Version,
		CreatorID:     id.CreatorID,
		DisplayName:   id.DisplayName,
		PublicKey:     id.PublicKey.String(),
		Events:        out,
	}
}

// Marshal serialises b to its stable JSON wire form.
func (b *Bundle) Marshal() ([]byte, error) {
	return json.Marshal(b)
}

// Parse decodes raw bundle bytes. Failure returns an error wrapping
// creatorledger.ErrMalformedBundle.
func Parse(raw []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", creatorledger.ErrMalformedBundle, err)
	}
	if b.BundleVersion == 0 || b.CreatorID == "" || b.PublicKey == "" {
		return nil, fmt.Errorf("%w: missing required field", creatorledger.ErrMalformedBundle)
	}
	return &b, nil
}

// ParseFile reads and parses a bundle from path. A missing file reports an
// error wrapping creatorledger.ErrInvalidInput, distinct from malformed
// bytes.
func ParseFile(path string) (*Bundle, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- path is caller-supplied and intentional: bundle files are read by filename, not attacker input.
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: bundle file %q does not exist", creatorledger.ErrInvalidInput, path)
		}
		return nil, fmt.Errorf("%w: read bundle file: %v", creatorledger.ErrInvalidInput, err)
	}
	return Parse(raw)
}

// Verify re-derives canonical bytes for every event in b and checks
// prev_hash linkage and the signature, in that order, against b's embedded
// public key. It has no dependency on the ledger engine, storage, or the
// vault: it is a pure function of b.
//
// Returns nil on success. On failure, returns an error wrapping one of
// creatorledger.ErrInvalidInput (unparsable public key),
// creatorledger.ErrMalformedBundle (an undecodable event field),
// creatorledger.ErrBrokenChain (via ChainError, carrying the offending seq),
// or creatorledger.ErrBadSignature (likewise).
func Verify(b *Bundle) error {
	pub, err := creatorledger.ParsePublicKey(b.PublicKey)
	if err != nil {
		return fmt.Errorf("%w: bundle public key: %v", creatorledger.ErrInvalidInput, err)
	}

	expectedPrev := ledger.ZeroHash
	for _, ev := range b.Events {
		payload, err := base64.StdEncoding.DecodeString(ev.Payload)
		if err != nil {
			return fmt.Errorf("%w: event %d payload: %v", creatorledger.ErrMalformedBundle, ev.Seq, err)
		}
		prevHashRaw, err := hex.DecodeString(ev.PrevHash)
		if err != nil || len(prevHashRaw) != 32 {
			return fmt.Errorf("%w: event %d prev_hash: %v", creatorledger.ErrMalformedBundle, ev.Seq, err)
		}
		if raw, err := hex.DecodeString(ev.ThisHash); err != nil || len(raw) != 32 {
			return fmt.Errorf("%w: event %d this_hash: %v", creatorledger.ErrMalformedBundle, ev.Seq, err)
		}
		sig, err := creatorledger.ParseSignature(ev.Signature)
		if err != nil {
			return fmt.Errorf("%w: event %d signature: %v", creatorledger.ErrMalformedBundle, ev.Seq, err)
		}

		var prevHash [32]byte
		copy(prevHash[:], prevHashRaw)

		if prevHash != expectedPrev {
			return creatorledger.NewBrokenChain(ev.Seq)
		}

		// Chain linkage and the signature both derive from the recomputed
		// canonical bytes, never from the bundle's stored this_hash field.
		// A tampered payload must surface as a bad signature, not get masked
		// by a this_hash mismatch that would otherwise fire first.
		canon := ledger.CanonicalBytes(b.CreatorID, ev.Seq, ev.Kind, ev.Timestamp, prevHash, payload)
		if !creatorledger.Verify(pub, canon, sig) {
			return creatorledger.NewBadSignature(ev.Seq)
		}

		expectedPrev = ledger.ComputeHash(canon)
	}
	return nil
}
