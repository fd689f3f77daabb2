package biometric

import "context"

// Relying party defaults used when registering a credential.
const (
	DefaultRPName      = "NopeWallet"
	DefaultUserName    = "wallet@nopewallet.com"
	DefaultDisplayName = "Wallet User"
)

// RegistrationOptions is what the platform needs to create a credential.
type RegistrationOptions struct {
	RPName      string
	UserName    string
	DisplayName string
	UserHandle  []byte
	Challenge   []byte
}

// Credential is a newly created platform credential.
type Credential struct {
	// RawID is the credential id; its hash is the password wrapping key.
	RawID []byte
	// PublicKey is the PKIX DER P-256 key, if the platform exposes it.
	PublicKey []byte
}

// AssertionRequest asks the platform to prove presence for one credential.
type AssertionRequest struct {
	CredentialID []byte
	Challenge    []byte
}

// Assertion is the platform's answer to an AssertionRequest.
type Assertion struct {
	RawID      []byte
	Signature  []byte // ASN.1 ECDSA signature over SHA-256(challenge)
	UserHandle []byte
}

// Authenticator is the platform biometric capability: a yes/no user
// presence gate with a bound asymmetric credential.
type Authenticator interface {
	Available(ctx context.Context) bool
	Register(ctx context.Context, opts RegistrationOptions) (*Credential, error)
	Assert(ctx context.Context, req AssertionRequest) (*Assertion, error)
}
