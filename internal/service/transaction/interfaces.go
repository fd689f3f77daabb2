package transaction

import (
	"context"

	"github.com/mrz1836/nopewallet/internal/chain"
	"github.com/mrz1836/nopewallet/internal/vaultcrypto"
)

// SecretLoader unlocks an account's mnemonic. A nil secret with a nil error
// means the password was wrong or the account is missing.
type SecretLoader interface {
	Load(ctx context.Context, accountID, password string) (*vaultcrypto.ScopedSecret, error)
}

// SignerResolver returns the signer registered for a chain.
type SignerResolver interface {
	Signer(id chain.ID) (chain.Signer, error)
}

// LogWriter provides logging operations.
type LogWriter interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// Observer is told about every state change of a send.
type Observer func(Pending)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}
