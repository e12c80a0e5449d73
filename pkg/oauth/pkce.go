package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

const (
	// pkceVerifierBytes is the number of random bytes for the PKCE code verifier.
	// 32 bytes provides 256 bits of entropy, which is recommended for security.
	pkceVerifierBytes = 32

	// stateBytes is the number of random bytes for the OAuth state parameter.
	// 32 bytes encodes to 43 base64url characters.
	stateBytes = 32

	// MinStateBytes is the minimum decoded size of an acceptable state value.
	MinStateBytes = 16

	// ChallengeMethodS256 is the only PKCE method we ever send.
	ChallengeMethodS256 = "S256"
)

// entropy is the randomness source. Tests replace it to exercise failures.
var entropy io.Reader = rand.Reader

// PKCEChallenge represents a PKCE (Proof Key for Code Exchange) pair for one
// login attempt.
type PKCEChallenge struct {
	// CodeVerifier is the secret kept by the client, base64url without padding.
	CodeVerifier string

	// CodeChallenge is base64url(SHA-256(CodeVerifier)), sent in the authorization request.
	CodeChallenge string

	// CodeChallengeMethod is always "S256".
	CodeChallengeMethod string
}

// GeneratePKCE generates a new PKCE code verifier and challenge.
func GeneratePKCE() (*PKCEChallenge, error) {
	verifier, err := randomToken(pkceVerifierBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to generate random bytes for PKCE: %w", err)
	}

	return &PKCEChallenge{
		CodeVerifier:        verifier,
		CodeChallenge:       ChallengeFromVerifier(verifier),
		CodeChallengeMethod: ChallengeMethodS256,
	}, nil
}

// ChallengeFromVerifier derives the S256 challenge for a verifier. The verifier
// is hashed as its ASCII bytes, not its decoded form.
func ChallengeFromVerifier(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// GenerateState generates a random state parameter for OAuth.
// The state is used to prevent CSRF attacks and link the authorization
// response back to the original request.
func GenerateState() (string, error) {
	state, err := randomToken(stateBytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return state, nil
}

func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(entropy, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
