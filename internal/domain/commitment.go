package domain

import "fmt"

// ProofType identifies the scheme an outcome commitment was made under.
type ProofType uint8

const (
	ProofTypeHash      ProofType = 1
	ProofTypeSignature ProofType = 2
	ProofTypeZK        ProofType = 3
)

// Valid reports whether t is a known proof scheme.
func (t ProofType) Valid() bool {
	switch t {
	case ProofTypeHash, ProofTypeSignature, ProofTypeZK:
		return true
	default:
		return false
	}
}

func (t ProofType) String() string {
	switch t {
	case ProofTypeHash:
		return "hash"
	case ProofTypeSignature:
		return "signature"
	case ProofTypeZK:
		return "zkproof"
	default:
		return fmt.Sprintf("prooftype(%d)", uint8(t))
	}
}

// ProofPolicy is the closed set of proof types a market accepts for outcome
// proposals. The zero value allows every known type.
type ProofPolicy struct {
	restricted bool
	allowed    [4]bool // indexed by ProofType
}

// NewProofPolicy builds a policy allowing exactly the given types. Unknown
// types are ignored; an empty list yields a policy that rejects everything.
func NewProofPolicy(types ...ProofType) ProofPolicy {
	p := ProofPolicy{restricted: true}
	for _, t := range types {
		if t.Valid() {
			p.allowed[t] = true
		}
	}
	return p
}

// Allows reports whether the policy permits the given proof type.
func (p ProofPolicy) Allows(t ProofType) bool {
	if !t.Valid() {
		return false
	}
	if !p.restricted {
		return true
	}
	return p.allowed[t]
}

// Types returns the allowed proof types in ascending order.
func (p ProofPolicy) Types() []ProofType {
	all := []ProofType{ProofTypeHash, ProofTypeSignature, ProofTypeZK}
	var out []ProofType
	for _, t := range all {
		if p.Allows(t) {
			out = append(out, t)
		}
	}
	return out
}

// Commitment records an AI-generated outcome commitment ahead of resolution.
// Read-only after creation; a re-commit replaces the active commitment.
type Commitment struct {
	MarketID       MarketID
	CommitmentHash [32]byte
	ProofType      ProofType
	Submitter      Caller
	Timestamp      int64
	IpfsCid        string

	// Verified is an advisory flag set at commit time when the payload passed
	// basic shape checks. Verification proper happens in VerifyOutcome.
	Verified bool
}
