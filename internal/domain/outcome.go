package domain

// OutcomeStatus tracks the oracle state machine for one market:
// None -> Proposed -> {Finalized | Challenged -> Finalized}.
type OutcomeStatus uint8

const (
	OutcomeNone       OutcomeStatus = 0
	OutcomeProposed   OutcomeStatus = 1
	OutcomeChallenged OutcomeStatus = 2
	OutcomeFinalized  OutcomeStatus = 3
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeNone:
		return "none"
	case OutcomeProposed:
		return "proposed"
	case OutcomeChallenged:
		return "challenged"
	case OutcomeFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Outcome is the oracle-side resolution state of a market.
type Outcome struct {
	MarketID  MarketID      `json:"marketId"`
	Result    Side          `json:"result"`
	Oracle    Caller        `json:"oracle"`
	Timestamp int64         `json:"timestamp"`
	Status    OutcomeStatus `json:"status"`
}

// Dispute is a staked challenge against a proposed outcome. Created once per
// market, resolved once, never re-opened.
type Dispute struct {
	MarketID       MarketID `json:"marketId"`
	Disputer       Caller   `json:"disputer"`
	ProposedResult Side     `json:"proposedResult"`
	Stake          uint64   `json:"stake"`
	Timestamp      int64    `json:"timestamp"`
	Resolved       bool     `json:"resolved"`
	Valid          bool     `json:"valid"`
}
