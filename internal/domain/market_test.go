package domain

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarketID(t *testing.T) {
	raw := "0x" + strings.Repeat("ab", 32)
	id, err := ParseMarketID(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, id.String())

	// The 0x prefix is optional.
	bare, err := ParseMarketID(strings.Repeat("ab", 32))
	require.NoError(t, err)
	assert.Equal(t, id, bare)

	_, err = ParseMarketID("0x1234")
	assert.Error(t, err)

	_, err = ParseMarketID("not hex at all")
	assert.Error(t, err)
}

func TestMarketID_TextRoundTrip(t *testing.T) {
	var id MarketID
	id[0] = 0xde
	id[31] = 0xad

	text, err := id.MarshalText()
	require.NoError(t, err)

	var back MarketID
	require.NoError(t, back.UnmarshalText(text))
	assert.Equal(t, id, back)
}

func TestSide(t *testing.T) {
	assert.True(t, SideYes.Valid())
	assert.True(t, SideNo.Valid())
	assert.False(t, SideNone.Valid())
	assert.False(t, Side(7).Valid())

	assert.Equal(t, SideNo, SideYes.Opposite())
	assert.Equal(t, SideYes, SideNo.Opposite())

	assert.Equal(t, "yes", SideYes.String())
	assert.Equal(t, "no", SideNo.String())
	assert.Equal(t, "none", SideNone.String())
}

func TestNormalizeCaller(t *testing.T) {
	assert.Equal(t, Caller("0xabcdef"), NormalizeCaller("  0xABCdef "))
}

func TestProofPolicy_ZeroValueIsPermissive(t *testing.T) {
	var p ProofPolicy
	assert.True(t, p.Allows(ProofTypeHash))
	assert.True(t, p.Allows(ProofTypeSignature))
	assert.True(t, p.Allows(ProofTypeZK))
	assert.False(t, p.Allows(ProofType(9)))
}

func TestProofPolicy_Restricted(t *testing.T) {
	p := NewProofPolicy(ProofTypeHash, ProofTypeZK)
	assert.True(t, p.Allows(ProofTypeHash))
	assert.False(t, p.Allows(ProofTypeSignature))
	assert.True(t, p.Allows(ProofTypeZK))
	assert.Equal(t, []ProofType{ProofTypeHash, ProofTypeZK}, p.Types())

	// An empty restricted policy rejects everything.
	empty := NewProofPolicy()
	assert.False(t, empty.Allows(ProofTypeHash))
	assert.Empty(t, empty.Types())
}

func TestMarketView_RecordFieldOrder(t *testing.T) {
	m := Market{
		YesPool:                1,
		NoPool:                 2,
		K:                      big.NewInt(2),
		TotalVolume:            3,
		TotalFees:              4,
		Active:                 true,
		Settled:                false,
		WinningSide:            SideNone,
		TotalLpShares:          5,
		WinnerPayoutPool:       6,
		LpCollateralPool:       7,
		WinningSharesRemaining: 8,
	}

	rec := m.View().Record()
	want := [ViewRecordLen]string{
		"1", "2", "2", "3", "4", "1", "0", "255", "5", "6", "7", "8",
	}
	assert.Equal(t, want, rec)
}

func TestMarket_CloneIsDeep(t *testing.T) {
	m := Market{K: big.NewInt(100)}
	c := m.Clone()
	c.K.SetInt64(999)
	assert.Equal(t, int64(100), m.K.Int64())
}
