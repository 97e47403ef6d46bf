package creatorledger

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
)

const publicKeyPrefix = "ed25519:"

// PublicKey is a 32-byte Ed25519 public key. Structural equality is byte
// equality; use Equal rather than ==, since the zero value compares equal
// to itself but carries no key material.
type PublicKey struct {
	b [ed25519.PublicKeySize]byte
}

// ParsePublicKey parses the canonical "ed25519:<base64>" form produced by
// String. It fails on a wrong prefix, non-base64 payload, or wrong length.
func ParsePublicKey(s string) (PublicKey, error) {
	pk, err := TryParsePublicKey(s)
	if err != nil {
		return PublicKey{}, err
	}
	return pk, nil
}

// TryParsePublicKey reports failure without panicking; identical semantics
// to ParsePublicKey, named separately per spec to mirror the "Parse vs
// TryParse" distinction in languages with exception-based parsing.
func TryParsePublicKey(s string) (PublicKey, error) {
	rest, ok := strings.CutPrefix(s, publicKeyPrefix)
	if !ok {
		return PublicKey{}, fmt.Errorf("%w: missing %q prefix", ErrInvalidInput, publicKeyPrefix)
	}
	raw, err := base64.StdEncoding.DecodeString(rest)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: bad base64: %v", ErrInvalidInput, err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return PublicKey{}, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidInput, ed25519.PublicKeySize, len(raw))
	}
	var pk PublicKey
	copy(pk.b[:], raw)
	return pk, nil
}

// PublicKeyFromBytes wraps a raw 32-byte public key, as read back from
// storage. The input slice is copied, not retained.
func PublicKeyFromBytes(raw []byte) (PublicKey, error) {
	if len(raw) != ed25519.PublicKeySize {
		return PublicKey{}, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidInput, ed25519.PublicKeySize, len(raw))
	}
	var pk PublicKey
	copy(pk.b[:], raw)
	return pk, nil
}

// String returns the canonical "ed25519:<base64>" encoding.
func (k PublicKey) String() string {
	return publicKeyPrefix + base64.StdEncoding.EncodeToString(k.b[:])
}

// Bytes returns the raw 32-byte key.
func (k PublicKey) Bytes() []byte {
	out := make([]byte, len(k.b))
	copy(out, k.b[:])
	return out
}

// Equal reports whether two public keys are byte-identical.
func (k PublicKey) Equal(other PublicKey) bool {
	return subtle.ConstantTimeCompare(k.b[:], other.b[:]) == 1
}

// Signature is a 64-byte Ed25519 signature. The zero value is the
// distinguished "no signature" and its String/Bytes are empty.
type Signature struct {
	b     [ed25519.SignatureSize]byte
	isSet bool
}

// ParseSignature parses the canonical base64 encoding produced by String.
// The empty string parses to the zero Signature.
func ParseSignature(s string) (Signature, error) {
	if s == "" {
		return Signature{}, nil
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: bad base64: %v", ErrInvalidInput, err)
	}
	if len(raw) != ed25519.SignatureSize {
		return Signature{}, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidInput, ed25519.SignatureSize, len(raw))
	}
	var sig Signature
	copy(sig.b[:], raw)
	sig.isSet = true
	return sig, nil
}

// String returns the canonical base64 encoding, or "" for the zero
// signature.
func (s Signature) String() string {
	if !s.isSet {
		return ""
	}
	return base64.StdEncoding.EncodeToString(s.b[:])
}

// Bytes returns the raw 64-byte signature, or nil for the zero signature.
func (s Signature) Bytes() []byte {
	if !s.isSet {
		return nil
	}
	out := make([]byte, len(s.b))
	copy(out, s.b[:])
	return out
}

// IsZero reports whether this is the distinguished "no signature" value.
func (s Signature) IsZero() bool {
	return !s.isSet
}

func signatureFromRaw(raw []byte) Signature {
	var sig Signature
	copy(sig.b[:], raw)
	sig.isSet = true
	return sig
}

// SignatureFromBytes wraps a raw 64-byte signature, as read back from
// storage or a bundle. The input slice is copied, not retained. A nil or
// empty slice yields the zero (unset) Signature.
func SignatureFromBytes(raw []byte) (Signature, error) {
	if len(raw) == 0 {
		return Signature{}, nil
	}
	if len(raw) != ed25519.SignatureSize {
		return Signature{}, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidInput, ed25519.SignatureSize, len(raw))
	}
	return signatureFromRaw(raw), nil
}

// SecretKey is a 32-byte Ed25519 seed. It is secret material: the raw bytes
// are reachable only through Seed before release, the backing array is
// zeroed on Release, and any access after Release fails with ErrLifecycle.
//
// Adapted from the secureZero/secureZeroString helpers in
// migration/export.go and plugin/secp256k1/crypto.go, generalized into a
// type that enforces the zero-then-forbid discipline instead of relying on
// callers to remember a defer.
type SecretKey struct {
	seed     [ed25519.SeedSize]byte
	released atomic.Bool
}

// GenerateKeypair creates a new keypair using a cryptographically strong OS
// RNG (crypto/rand).
func GenerateKeypair() (PublicKey, *SecretKey, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return PublicKey{}, nil, fmt.Errorf("%w: generate key: %v", ErrInvalidInput, err)
	}
	sk := &SecretKey{}
	copy(sk.seed[:], priv.Seed())
	var pk PublicKey
	copy(pk.b[:], pub)
	return pk, sk, nil
}

// SecretKeyFromSeed wraps a caller-supplied 32-byte seed. The input slice is
// copied, not retained; the caller remains responsible for zeroing their own
// copy if it is no longer needed.
func SecretKeyFromSeed(seed []byte) (*SecretKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: want %d byte seed, got %d", ErrInvalidInput, ed25519.SeedSize, len(seed))
	}
	sk := &SecretKey{}
	copy(sk.seed[:], seed)
	return sk, nil
}

// Seed returns a copy of the 32-byte seed. Fails with ErrLifecycle once
// Release has been called.
func (sk *SecretKey) Seed() ([]byte, error) {
	if sk.released.Load() {
		return nil, ErrLifecycle
	}
	out := make([]byte, len(sk.seed))
	copy(out, sk.seed[:])
	return out, nil
}

// DerivePublic recovers the public key from the seed. Fails with
// ErrLifecycle once Release has been called.
func (sk *SecretKey) DerivePublic() (PublicKey, error) {
	if sk.released.Load() {
		return PublicKey{}, ErrLifecycle
	}
	priv := ed25519.NewKeyFromSeed(sk.seed[:])
	var pk PublicKey
	copy(pk.b[:], priv.Public().(ed25519.PublicKey))
	return pk, nil
}

// Sign computes a deterministic Ed25519 signature over msg (RFC 8032 is
// deterministic by construction; no hidden RNG is involved). Fails with
// ErrLifecycle once Release has been called.
func (sk *SecretKey) Sign(msg []byte) (Signature, error) {
	if sk.released.Load() {
		return Signature{}, ErrLifecycle
	}
	priv := ed25519.NewKeyFromSeed(sk.seed[:])
	raw := ed25519.Sign(priv, msg)
	return signatureFromRaw(raw), nil
}

// Release zeroes the backing seed and marks the key unusable. Safe to call
// more than once.
func (sk *SecretKey) Release() {
	if sk.released.Swap(true) {
		return
	}
	for i := range sk.seed {
		sk.seed[i] = 0
	}
	runtime.KeepAlive(sk)
}

// Verify reports whether sig is a valid Ed25519 signature by pub over msg.
// Invalid encodings and zero signatures return false; Verify never panics
// or returns an error, per spec.
func Verify(pub PublicKey, msg []byte, sig Signature) bool {
	if sig.IsZero() {
		return false
	}
	return ed25519.Verify(pub.b[:], msg, sig.b[:])
}
