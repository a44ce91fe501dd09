package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// Throwaway secp256k1 test key, never used anywhere real.
const testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func testMarketID(b byte) domain.MarketID {
	var id domain.MarketID
	id[31] = b
	return id
}

func TestCommitmentHash_Deterministic(t *testing.T) {
	proof := []byte("evidence")

	a := CommitmentHash(domain.SideYes, proof)
	b := CommitmentHash(domain.SideYes, proof)
	assert.Equal(t, a, b)

	// The result byte is part of the digest.
	c := CommitmentHash(domain.SideNo, proof)
	assert.NotEqual(t, a, c)

	d := CommitmentHash(domain.SideYes, []byte("other"))
	assert.NotEqual(t, a, d)
}

func TestOutcomeDigest_BindsMarketAndResult(t *testing.T) {
	a := OutcomeDigest(testMarketID(1), domain.SideYes)
	assert.NotEqual(t, a, OutcomeDigest(testMarketID(2), domain.SideYes))
	assert.NotEqual(t, a, OutcomeDigest(testMarketID(1), domain.SideNo))
}

func TestHashMarketID_Deterministic(t *testing.T) {
	a := HashMarketID("nba-finals-2026-game-7")
	b := HashMarketID("nba-finals-2026-game-7")
	assert.Equal(t, a, b)
	assert.False(t, a.IsZero())
	assert.NotEqual(t, a, HashMarketID("nba-finals-2026-game-6"))
}

func TestSignRecover_RoundTrip(t *testing.T) {
	signer, err := NewOutcomeSigner(testKeyHex)
	require.NoError(t, err)
	market := testMarketID(1)

	sig, err := signer.SignOutcome(market, domain.SideYes)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.GreaterOrEqual(t, sig[64], byte(27))

	recovered, err := RecoverOutcomeSigner(market, domain.SideYes, sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), recovered)

	// The raw {0,1} recovery id convention is accepted too.
	raw := make([]byte, 65)
	copy(raw, sig)
	raw[64] -= 27
	recovered, err = RecoverOutcomeSigner(market, domain.SideYes, raw)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), recovered)
}

func TestRecoverOutcomeSigner_WrongResult(t *testing.T) {
	signer, err := NewOutcomeSigner(testKeyHex)
	require.NoError(t, err)
	market := testMarketID(1)

	sig, err := signer.SignOutcome(market, domain.SideYes)
	require.NoError(t, err)

	// Recovering against a different digest yields a different address.
	recovered, err := RecoverOutcomeSigner(market, domain.SideNo, sig)
	if err == nil {
		assert.NotEqual(t, signer.Address(), recovered)
	}
}

func TestRecoverOutcomeSigner_BadLength(t *testing.T) {
	_, err := RecoverOutcomeSigner(testMarketID(1), domain.SideYes, []byte("too short"))
	assert.Error(t, err)
}

func TestNewOutcomeSigner_AcceptsPrefix(t *testing.T) {
	plain, err := NewOutcomeSigner(testKeyHex)
	require.NoError(t, err)
	prefixed, err := NewOutcomeSigner("0x" + testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, plain.Address(), prefixed.Address())

	_, err = NewOutcomeSigner("not-a-key")
	assert.Error(t, err)
}

func TestEncryptDecryptKey_RoundTrip(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "hunter2")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)

	_, err = DecryptKey(blob, "wrong password")
	assert.Error(t, err)
}

func TestEncryptKey_Validation(t *testing.T) {
	_, err := EncryptKey(testKeyHex, "")
	assert.Error(t, err)

	_, err = EncryptKey("abcd", "hunter2")
	assert.Error(t, err)

	_, err = EncryptKey("zz", "hunter2")
	assert.Error(t, err)
}

func TestLoadKey_RawTakesPrecedence(t *testing.T) {
	got, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + testKeyHex, EncryptedKeyPath: "/nonexistent"})
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)
}

func TestLoadKey_FromEncryptedFile(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "hunter2")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "oracle.key.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	got, err := LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "hunter2"})
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)
}

func TestLoadKey_NothingConfigured(t *testing.T) {
	_, err := LoadKey(KeyConfig{})
	assert.Error(t, err)
}
