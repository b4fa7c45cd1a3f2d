package dh

import (
	"crypto/rand"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroup14_IsValidSafePrimeGroup(t *testing.T) {
	p := Group14()
	require.NoError(t, p.Validate())
	assert.Equal(t, 2048, p.P.BitLen())
	assert.Equal(t, 256, p.Size())
	require.NotNil(t, p.Q, "subgroup order must survive validation")
}

func TestKeyAgreement(t *testing.T) {
	params := Group14()

	alice, err := GenerateKey(rand.Reader, params)
	require.NoError(t, err)
	bob, err := GenerateKey(rand.Reader, params)
	require.NoError(t, err)

	s1, err := SharedSecret(alice, &bob.PublicKey)
	require.NoError(t, err)
	s2, err := SharedSecret(bob, &alice.PublicKey)
	require.NoError(t, err)

	assert.Equal(t, s1, s2)
	assert.Len(t, s1, params.Size())
}

func TestSharedSecret_RejectsBadPeerValues(t *testing.T) {
	params := Group14()
	priv, err := GenerateKey(rand.Reader, params)
	require.NoError(t, err)

	pMinus1 := new(big.Int).Sub(params.P, big.NewInt(1))
	pMinus2 := new(big.Int).Sub(params.P, big.NewInt(2))

	tests := []struct {
		name string
		y    *big.Int
	}{
		{"zero", big.NewInt(0)},
		{"one", big.NewInt(1)},
		{"p-1", pMinus1},
		{"p", new(big.Int).Set(params.P)},
		{"outside subgroup", pMinus2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SharedSecret(priv, &PublicKey{Params: params, Y: tt.y})
			assert.ErrorIs(t, err, common.ErrKeyExchange)
		})
	}
}

func TestSharedSecret_GroupMismatch(t *testing.T) {
	priv, err := GenerateKey(rand.Reader, Group14())
	require.NoError(t, err)

	other := &Parameters{P: big.NewInt(23), G: big.NewInt(5)}
	_, err = SharedSecret(priv, &PublicKey{Params: other, Y: big.NewInt(4)})
	assert.ErrorIs(t, err, common.ErrKeyExchange)
}

func TestParametersPEM_RoundTrip(t *testing.T) {
	encoded, err := EncodeParameters(Group14())
	require.NoError(t, err)
	assert.Contains(t, string(encoded), "-----BEGIN DH PARAMETERS-----")

	decoded, err := DecodeParameters(encoded)
	require.NoError(t, err)
	assert.True(t, decoded.Equal(Group14()))
	require.NotNil(t, decoded.Q, "safe-prime subgroup should be derived on load")
	assert.Equal(t, 0, decoded.Q.Cmp(Group14().Q))
}

func TestDecodeParameters_Rejects(t *testing.T) {
	t.Run("not pem", func(t *testing.T) {
		_, err := DecodeParameters([]byte("hello"))
		assert.ErrorIs(t, err, ErrInvalidParameters)
	})

	t.Run("small prime", func(t *testing.T) {
		encoded, err := EncodeParameters(&Parameters{P: big.NewInt(23), G: big.NewInt(5)})
		require.NoError(t, err)
		_, err = DecodeParameters(encoded)
		assert.ErrorIs(t, err, ErrInvalidParameters)
	})

	t.Run("composite modulus", func(t *testing.T) {
		composite := new(big.Int).Add(Group14().P, big.NewInt(1))
		encoded, err := EncodeParameters(&Parameters{P: composite, G: big.NewInt(2)})
		require.NoError(t, err)
		_, err = DecodeParameters(encoded)
		assert.ErrorIs(t, err, ErrInvalidParameters)
	})

	t.Run("generator out of range", func(t *testing.T) {
		encoded, err := EncodeParameters(&Parameters{P: Group14().P, G: big.NewInt(1)})
		require.NoError(t, err)
		_, err = DecodeParameters(encoded)
		assert.ErrorIs(t, err, ErrInvalidParameters)
	})
}

func TestPublicKeyPEM_RoundTrip(t *testing.T) {
	params := Group14()
	priv, err := GenerateKey(rand.Reader, params)
	require.NoError(t, err)

	encoded, err := MarshalPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), "-----BEGIN PUBLIC KEY-----")

	pub, err := ParsePublicKey(encoded, params)
	require.NoError(t, err)
	assert.Equal(t, 0, pub.Y.Cmp(priv.Y))
}

func TestParsePublicKey_Rejects(t *testing.T) {
	params := Group14()

	_, err := ParsePublicKey([]byte("garbage"), params)
	assert.ErrorIs(t, err, common.ErrKeyExchange)

	// Key issued for another group.
	small := &Parameters{P: big.NewInt(23), G: big.NewInt(5)}
	encoded, err := MarshalPublicKey(&PublicKey{Params: small, Y: big.NewInt(4)})
	require.NoError(t, err)
	_, err = ParsePublicKey(encoded, params)
	assert.ErrorIs(t, err, common.ErrKeyExchange)

	// Degenerate value in the right group.
	encoded, err = MarshalPublicKey(&PublicKey{Params: params, Y: big.NewInt(1)})
	require.NoError(t, err)
	_, err = ParsePublicKey(encoded, params)
	assert.ErrorIs(t, err, common.ErrKeyExchange)
}

func TestLoadOrGenerate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "dhparams.pem")

	params, created, err := LoadOrGenerate(path, rand.Reader, 0)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, params.Equal(Group14()))
	_, err = os.Stat(path)
	require.NoError(t, err)

	again, created, err := LoadOrGenerate(path, rand.Reader, 0)
	require.NoError(t, err)
	assert.False(t, created)
	assert.True(t, again.Equal(params))
}

func TestLoadOrGenerate_CorruptFileIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dhparams.pem")
	require.NoError(t, os.WriteFile(path, []byte("not parameters"), 0o600))

	_, _, err := LoadOrGenerate(path, rand.Reader, 0)
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestGenerate(t *testing.T) {
	_, err := Generate(rand.Reader, 256)
	assert.ErrorIs(t, err, ErrInvalidParameters)

	if testing.Short() {
		t.Skip("safe prime search is slow")
	}
	params, err := Generate(rand.Reader, MinPrimeBits)
	require.NoError(t, err)
	require.NoError(t, params.Validate())
	assert.Equal(t, MinPrimeBits, params.P.BitLen())
	assert.Equal(t, int64(7), new(big.Int).Mod(params.P, big.NewInt(8)).Int64())
	require.NotNil(t, params.Q)
}
