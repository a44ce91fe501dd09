// Package domain defines the core types of the settlement engine: markets,
// outcome shares, oracle outcomes, proof commitments, and the store
// interfaces the rest of the system implements against.
package domain

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

// BpsDenominator is the basis-point scale used for prices and fees.
const BpsDenominator = 10000

// MarketID is the opaque 32-byte market identifier shared with the market
// registry and all external consumers. Rendered as 0x-prefixed hex.
type MarketID [32]byte

// ParseMarketID decodes a 0x-prefixed (or bare) 64-character hex string.
func ParseMarketID(s string) (MarketID, error) {
	var id MarketID
	h := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	b, err := hex.DecodeString(h)
	if err != nil {
		return id, fmt.Errorf("domain: parse market id %q: %w", s, err)
	}
	if len(b) != 32 {
		return id, fmt.Errorf("domain: market id must be 32 bytes, got %d", len(b))
	}
	copy(id[:], b)
	return id, nil
}

func (id MarketID) String() string {
	return "0x" + hex.EncodeToString(id[:])
}

// IsZero reports whether the identifier is the all-zero value.
func (id MarketID) IsZero() bool {
	return id == MarketID{}
}

// MarshalText implements encoding.TextMarshaler so MarketID round-trips
// through JSON object keys and payloads.
func (id MarketID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *MarketID) UnmarshalText(b []byte) error {
	parsed, err := ParseMarketID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Side identifies one of the two binary outcomes.
type Side uint8

const (
	SideNo  Side = 0
	SideYes Side = 1

	// SideNone is the sentinel for "winning side not yet determined". It only
	// appears in market views, never as a tradable side.
	SideNone Side = 255
)

// Valid reports whether s is a tradable side.
func (s Side) Valid() bool {
	return s == SideNo || s == SideYes
}

// Opposite returns the other tradable side.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

func (s Side) String() string {
	switch s {
	case SideNo:
		return "no"
	case SideYes:
		return "yes"
	case SideNone:
		return "none"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

// Caller is the identity an operation executes under: a lowercase 0x-prefixed
// address supplied by the authenticated outer layer. Authorization inside the
// core is an explicit comparison against configured role identities, never
// ambient state.
type Caller string

// NormalizeCaller lowercases a caller identity so comparisons are stable.
func NormalizeCaller(s string) Caller {
	return Caller(strings.ToLower(strings.TrimSpace(s)))
}

// Clock supplies the externally-driven ledger timestamp (Unix seconds). All
// window and deadline checks compare against this value; the core never reads
// wall-clock time directly.
type Clock interface {
	Now() int64
}

// ClockFunc adapts a plain function to the Clock interface.
type ClockFunc func() int64

// Now implements Clock.
func (f ClockFunc) Now() int64 { return f() }

// Market is the full AMM-side state of one binary market. Reserves and payout
// pools are integer collateral units; K is the constant-product invariant,
// which exceeds 64 bits for large reserves.
type Market struct {
	ID                     MarketID
	YesPool                uint64
	NoPool                 uint64
	K                      *big.Int
	TotalVolume            uint64
	TotalFees              uint64
	Active                 bool
	Settled                bool
	WinningSide            Side // SideNone until settled
	TotalLpShares          uint64
	WinnerPayoutPool       uint64
	LpCollateralPool       uint64
	WinningSharesRemaining uint64
	CreatedAt              int64
	UpdatedAt              int64
}

// Clone returns a deep copy, so callers can hand out snapshots without
// exposing the engine's mutable state.
func (m *Market) Clone() Market {
	c := *m
	if m.K != nil {
		c.K = new(big.Int).Set(m.K)
	}
	return c
}

// MarketView is the read model of a market exposed to external consumers.
type MarketView struct {
	MarketID               MarketID `json:"marketId"`
	YesPool                uint64   `json:"yesPool"`
	NoPool                 uint64   `json:"noPool"`
	K                      string   `json:"k"`
	TotalVolume            uint64   `json:"totalVolume"`
	TotalFees              uint64   `json:"totalFees"`
	Active                 bool     `json:"active"`
	Settled                bool     `json:"settled"`
	WinningSide            Side     `json:"winningSide"`
	TotalLpShares          uint64   `json:"totalLpShares"`
	WinnerPayoutPool       uint64   `json:"winnerPayoutPool"`
	LpCollateralPool       uint64   `json:"lpCollateralPool"`
	WinningSharesRemaining uint64   `json:"winningSharesRemaining"`
}

// ViewRecordLen is the number of fields in the positional view record.
const ViewRecordLen = 12

// Record returns the positional wire encoding of the market view. Consumers
// decode this array by index, so the field order is a binding contract:
//
//	0 yesPool, 1 noPool, 2 k, 3 totalVolume, 4 totalFees, 5 active,
//	6 settled, 7 winningSide, 8 totalLpShares, 9 winnerPayoutPool,
//	10 lpCollateralPool, 11 winningSharesRemaining
//
// All values are decimal strings; booleans encode as "0"/"1"; winningSide
// encodes as 255 while unset.
func (v MarketView) Record() [ViewRecordLen]string {
	return [ViewRecordLen]string{
		strconv.FormatUint(v.YesPool, 10),
		strconv.FormatUint(v.NoPool, 10),
		v.K,
		strconv.FormatUint(v.TotalVolume, 10),
		strconv.FormatUint(v.TotalFees, 10),
		boolField(v.Active),
		boolField(v.Settled),
		strconv.FormatUint(uint64(v.WinningSide), 10),
		strconv.FormatUint(v.TotalLpShares, 10),
		strconv.FormatUint(v.WinnerPayoutPool, 10),
		strconv.FormatUint(v.LpCollateralPool, 10),
		strconv.FormatUint(v.WinningSharesRemaining, 10),
	}
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// View builds the read model from the market state.
func (m *Market) View() MarketView {
	k := "0"
	if m.K != nil {
		k = m.K.String()
	}
	return MarketView{
		MarketID:               m.ID,
		YesPool:                m.YesPool,
		NoPool:                 m.NoPool,
		K:                      k,
		TotalVolume:            m.TotalVolume,
		TotalFees:              m.TotalFees,
		Active:                 m.Active,
		Settled:                m.Settled,
		WinningSide:            m.WinningSide,
		TotalLpShares:          m.TotalLpShares,
		WinnerPayoutPool:       m.WinnerPayoutPool,
		LpCollateralPool:       m.LpCollateralPool,
		WinningSharesRemaining: m.WinningSharesRemaining,
	}
}

// Position is one owner's balance of outcome shares in a market.
type Position struct {
	MarketID MarketID `json:"marketId"`
	Side     Side     `json:"side"`
	Owner    Caller   `json:"owner"`
	Balance  uint64   `json:"balance"`
}

// LpShare is one provider's liquidity stake in a market.
type LpShare struct {
	MarketID MarketID `json:"marketId"`
	Owner    Caller   `json:"owner"`
	Shares   uint64   `json:"shares"`
}

// Trade is one executed buy or sell, journalled for consumers and archival.
// AmountIn is collateral for buys and shares for sells; AmountOut is the
// inverse. Fee is always denominated in collateral units.
type Trade struct {
	ID        string   `json:"id"`
	MarketID  MarketID `json:"marketId"`
	Trader    Caller   `json:"trader"`
	Side      Side     `json:"side"`
	IsBuy     bool     `json:"isBuy"`
	AmountIn  uint64   `json:"amountIn"`
	AmountOut uint64   `json:"amountOut"`
	Fee       uint64   `json:"fee"`
	Timestamp int64    `json:"timestamp"`
}
