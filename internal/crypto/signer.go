package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/ayushsaklani-min/Prediction-market/internal/domain"
)

// OutcomeSigner produces secp256k1 attestations over market outcomes. It is
// used by the oracle operator tooling; the verifier only ever recovers.
type OutcomeSigner struct {
	privateKey *ecdsa.PrivateKey
	address    domain.Caller
}

// NewOutcomeSigner creates a signer from a hex-encoded secp256k1 private key.
func NewOutcomeSigner(privateKeyHex string) (*OutcomeSigner, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: invalid private key: %w", err)
	}

	addr := ethcrypto.PubkeyToAddress(pk.PublicKey)
	return &OutcomeSigner{
		privateKey: pk,
		address:    domain.NormalizeCaller(addr.Hex()),
	}, nil
}

// Address returns the signer identity derived from the private key.
func (s *OutcomeSigner) Address() domain.Caller {
	return s.address
}

// SignOutcome signs the outcome digest for (market, result) and returns the
// 65-byte r||s||v signature with v in {27,28}.
func (s *OutcomeSigner) SignOutcome(market domain.MarketID, result domain.Side) ([]byte, error) {
	digest := OutcomeDigest(market, result)
	sig, err := ethcrypto.Sign(digest[:], s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("crypto/signer: signing: %w", err)
	}

	// go-ethereum returns v in {0,1}; the attestation format uses {27,28}.
	if sig[64] < 27 {
		sig[64] += 27
	}
	return sig, nil
}

// RecoverOutcomeSigner recovers the address that attested to (market, result)
// from a 65-byte signature. Both v conventions ({0,1} and {27,28}) are
// accepted.
func RecoverOutcomeSigner(market domain.MarketID, result domain.Side, sig []byte) (domain.Caller, error) {
	if len(sig) != 65 {
		return "", fmt.Errorf("crypto/signer: signature must be 65 bytes, got %d", len(sig))
	}

	normalized := make([]byte, 65)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}

	digest := OutcomeDigest(market, result)
	pub, err := ethcrypto.SigToPub(digest[:], normalized)
	if err != nil {
		return "", fmt.Errorf("crypto/signer: recover: %w", err)
	}

	addr := ethcrypto.PubkeyToAddress(*pub)
	return domain.NormalizeCaller(addr.Hex()), nil
}
