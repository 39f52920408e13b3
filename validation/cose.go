package validation

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/veraison/go-cose"
)

// VerifyCOSESignature verifies a COSE_Sign1 message against an ECDSA public key.
// The algorithm is taken from the protected header and must be ES256.
func VerifyCOSESignature(msg *cose.Sign1Message, publicKey *ecdsa.PublicKey) error {
	alg, err := msg.Headers.Protected.Algorithm()
	if err != nil {
		return fmt.Errorf("read algorithm header: %w", err)
	}
	if alg != cose.AlgorithmES256 {
		return fmt.Errorf("unexpected signing algorithm %s, want ES256", alg)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, publicKey)
	if err != nil {
		return fmt.Errorf("create verifier: %w", err)
	}

	// Receipts are signed without external additional authenticated data
	if err := msg.Verify(nil, verifier); err != nil {
		return fmt.Errorf("COSE signature verification failed: %w", err)
	}
	return nil
}
