package domain

// Signal bus channels. The websocket hub re-broadcasts these to subscribed
// clients; the indexer tails the durable stream.
const (
	ChannelTrades  = "ch:trades"
	ChannelMarkets = "ch:markets"
	ChannelOracle  = "ch:oracle"

	StreamEvents = "stream:settlement"
)

// Event types carried in EventEnvelope.Type.
const (
	EventTrade             = "trade"
	EventMarketCreated     = "market_created"
	EventMarketSettled     = "market_settled"
	EventLiquidityAdded    = "liquidity_added"
	EventLiquidityRemoved  = "liquidity_removed"
	EventRedeem            = "redeem"
	EventOutcomeProposed   = "outcome_proposed"
	EventOutcomeChallenged = "outcome_challenged"
	EventDisputeResolved   = "dispute_resolved"
	EventOutcomeFinalized  = "outcome_finalized"
	EventCommitment        = "commitment"
)

// EventEnvelope is the JSON wrapper for every bus message.
type EventEnvelope struct {
	Type      string   `json:"type"`
	MarketID  MarketID `json:"marketId"`
	Timestamp int64    `json:"timestamp"`
	Payload   any      `json:"payload,omitempty"`
}

// SettlementEvent is the payload for market_settled events.
type SettlementEvent struct {
	WinningSide            Side   `json:"winningSide"`
	WinnerPayoutPool       uint64 `json:"winnerPayoutPool"`
	LpCollateralPool       uint64 `json:"lpCollateralPool"`
	WinningSharesRemaining uint64 `json:"winningSharesRemaining"`
}

// LiquidityEvent is the payload for liquidity_added / liquidity_removed.
type LiquidityEvent struct {
	Provider Caller `json:"provider"`
	Amount   uint64 `json:"amount"`
	LpShares uint64 `json:"lpShares"`
}

// RedeemEvent is the payload for redeem events.
type RedeemEvent struct {
	Redeemer Caller `json:"redeemer"`
	Side     Side   `json:"side"`
	Shares   uint64 `json:"shares"`
	Payout   uint64 `json:"payout"`
}

// OutcomeEvent is the payload for oracle lifecycle events.
type OutcomeEvent struct {
	Result Side          `json:"result"`
	Oracle Caller        `json:"oracle,omitempty"`
	Status OutcomeStatus `json:"status"`
}

// DisputeEvent is the payload for outcome_challenged / dispute_resolved.
type DisputeEvent struct {
	Disputer       Caller `json:"disputer"`
	ProposedResult Side   `json:"proposedResult"`
	Stake          uint64 `json:"stake"`
	Resolved       bool   `json:"resolved"`
	Valid          bool   `json:"valid"`
}
