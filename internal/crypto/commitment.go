// Package crypto provides key management, commitment hashing, and secp256k1
// outcome attestation for the settlement core.
package crypto

import (
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// CommitmentHash computes the hash-scheme commitment over a claimed result
// and its proof bytes:
//
//	keccak256(uint8(result) || proof)
//
// This packed encoding is the interchange format shared with the off-chain
// proof generator; both sides must produce identical digests.
func CommitmentHash(result domain.Side, proof []byte) [32]byte {
	buf := make([]byte, 0, 1+len(proof))
	buf = append(buf, byte(result))
	buf = append(buf, proof...)

	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(buf))
	return out
}

// OutcomeDigest is the digest an authorized signer attests to under the
// signature scheme: keccak256(marketID || uint8(result)).
func OutcomeDigest(market domain.MarketID, result domain.Side) [32]byte {
	buf := make([]byte, 0, len(market)+1)
	buf = append(buf, market[:]...)
	buf = append(buf, byte(result))

	var out [32]byte
	copy(out[:], ethcrypto.Keccak256(buf))
	return out
}

// HashMarketID derives a deterministic market identifier from an external
// event key, mirroring how the registry mints identifiers.
func HashMarketID(eventKey string) domain.MarketID {
	var id domain.MarketID
	copy(id[:], ethcrypto.Keccak256([]byte(eventKey)))
	return id
}
