package creatorledger

import (
	"bytes"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// RFC 8032 section 7.1 test vectors 1 and 2.
func TestRFC8032Vectors(t *testing.T) {
	tests := []struct {
		name    string
		seedHex string
		pubHex  string
		msgHex  string
		sigHex  string
	}{
		{
			name:    "vector 1: empty message",
			seedHex: "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60",
			pubHex:  "d75a980182b10ab7d54bfed3c964073a0ee172f3daa62325af021a68f707511a",
			msgHex:  "",
			sigHex:  "e5564300c360ac729086e2cc806e828a84877f1eb8e5d974d873e065224901555fb8821590a33bacc61e39701cf9b46bd25bf5f0595bbe24655141438e7a100b",
		},
		{
			name:    "vector 2",
			seedHex: "4ccd089b28ff96da9db6c346ec114e0f5b8a319f35aba624da8cf6ed4fb8a6fb",
			pubHex:  "3d4017c3e843895a92b70aa74d1b7ebc9c982ccf2ec4968cc0cd55f12af4660c",
			msgHex:  "72",
			sigHex:  "92a009a9f0d4cab8720e820b5f642540a2b27b5416503f8fb3762223ebdb69da085ac1e43e15996e458f3613d0f11d8c387b2eaeb4302aeeb00d291612bb0c00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seed := mustHex(t, tt.seedHex)
			require.Len(t, seed, 32)
			sk, err := SecretKeyFromSeed(seed)
			require.NoError(t, err)
			defer sk.Release()

			pub, err := sk.DerivePublic()
			require.NoError(t, err)
			assert.True(t, bytes.Equal(pub.Bytes(), mustHex(t, tt.pubHex)))

			msg := mustHex(t, tt.msgHex)
			sig, err := sk.Sign(msg)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(sig.Bytes(), mustHex(t, tt.sigHex)))

			assert.True(t, Verify(pub, msg, sig))
		})
	}
}

// P1: sign/verify round-trip.
func TestSignVerifyRoundTrip(t *testing.T) {
	msgs := [][]byte{{}, []byte("hello"), bytes.Repeat([]byte{0xAB}, 1024)}
	for _, msg := range msgs {
		pub, sk, err := GenerateKeypair()
		require.NoError(t, err)
		sig, err := sk.Sign(msg)
		require.NoError(t, err)
		assert.True(t, Verify(pub, msg, sig))
		sk.Release()
	}
}

// P2: tamper detection.
func TestTamperDetection(t *testing.T) {
	pub, sk, err := GenerateKeypair()
	require.NoError(t, err)
	defer sk.Release()

	msg := []byte("provenance event")
	sig, err := sk.Sign(msg)
	require.NoError(t, err)
	require.True(t, Verify(pub, msg, sig))

	tamperedMsg := append([]byte(nil), msg...)
	tamperedMsg[0] ^= 0x01
	assert.False(t, Verify(pub, tamperedMsg, sig))

	tamperedSigBytes := sig.Bytes()
	tamperedSigBytes[0] ^= 0x01
	tamperedSig := signatureFromRaw(tamperedSigBytes)
	assert.False(t, Verify(pub, msg, tamperedSig))

	otherPub, otherSk, err := GenerateKeypair()
	require.NoError(t, err)
	defer otherSk.Release()
	assert.False(t, Verify(otherPub, msg, sig))
	_ = pub
}

// P3: canonical encoding round-trip.
func TestCanonicalEncodingRoundTrip(t *testing.T) {
	pub, sk, err := GenerateKeypair()
	require.NoError(t, err)
	defer sk.Release()

	parsedPub, err := ParsePublicKey(pub.String())
	require.NoError(t, err)
	assert.True(t, pub.Equal(parsedPub))

	sig, err := sk.Sign([]byte("msg"))
	require.NoError(t, err)
	parsedSig, err := ParseSignature(sig.String())
	require.NoError(t, err)
	assert.Equal(t, sig.Bytes(), parsedSig.Bytes())

	zero := Signature{}
	assert.Equal(t, "", zero.String())
	roundTripZero, err := ParseSignature("")
	require.NoError(t, err)
	assert.True(t, roundTripZero.IsZero())
}

func TestParsePublicKeyRejectsBadInput(t *testing.T) {
	_, err := ParsePublicKey("notprefixed:AAAA")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParsePublicKey("ed25519:not-base64!!")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = ParsePublicKey("ed25519:" + "AAAA") // valid base64, wrong length
	require.ErrorIs(t, err, ErrInvalidInput)

	pk, err := TryParsePublicKey("garbage")
	assert.Error(t, err)
	assert.Equal(t, PublicKey{}, pk)
}

func TestSecretKeyLifecycle(t *testing.T) {
	_, sk, err := GenerateKeypair()
	require.NoError(t, err)

	_, err = sk.Seed()
	require.NoError(t, err)

	sk.Release()
	sk.Release() // idempotent

	_, err = sk.Seed()
	assert.True(t, errors.Is(err, ErrLifecycle))

	_, err = sk.DerivePublic()
	assert.True(t, errors.Is(err, ErrLifecycle))

	_, err = sk.Sign([]byte("x"))
	assert.True(t, errors.Is(err, ErrLifecycle))
}

func TestSecretKeyFromSeedRejectsWrongLength(t *testing.T) {
	_, err := SecretKeyFromSeed([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidInput)
}
