package tron

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/mrz1836/nopewallet/internal/chain"
	"github.com/mrz1836/nopewallet/internal/wallet"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// ErrTransactionMismatch means the node built something other than what was asked,
// or its txID does not hash its own raw data. Nothing is signed in that case.
var ErrTransactionMismatch = &walleterr.WalletError{
	Code:     "TRON_TX_MISMATCH",
	Message:  "node returned a transaction that does not match the request",
	ExitCode: walleterr.ExitGeneral,
}

const (
	transferContractType = "TransferContract"
	privateKeySize       = 32
)

// Signer sends TRX with a locally signed transaction.
type Signer struct {
	client *Client
	retry  chain.RetryConfig
	log    chain.LogWriter
}

// Option configures a Signer.
type Option func(*Signer)

// WithRetry sets the retry policy for read calls.
func WithRetry(cfg chain.RetryConfig) Option {
	return func(s *Signer) { s.retry = cfg }
}

// WithLogger sets the logger.
func WithLogger(l chain.LogWriter) Option {
	return func(s *Signer) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSigner creates a signer against baseURL.
func NewSigner(baseURL, apiKey string, httpClient *http.Client, opts ...Option) *Signer {
	s := &Signer{
		client: NewClient(baseURL, apiKey, httpClient),
		retry:  chain.DefaultRetryConfig(),
		log:    chain.NopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ValidateAddress implements chain.AddressValidator.
func (s *Signer) ValidateAddress(address string) error {
	return ValidateAddress(address)
}

// GetBalance implements chain.BalanceReader. The balance is in SUN.
func (s *Signer) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}
	sun, err := chain.RetryWithConfig(ctx, s.retry, func(ctx context.Context) (int64, error) {
		return s.client.GetBalance(ctx, address)
	})
	if err != nil {
		return nil, err
	}
	return big.NewInt(sun), nil
}

// SignTransfer implements chain.Signer. The node builds the transfer, the
// txID is checked against sha256(raw_data_hex), and the signature is a
// recoverable secp256k1 signature R||S||V with V = recovery id + 27.
// SendMax is not special for Tron: the requested amount is sent.
func (s *Signer) SignTransfer(ctx context.Context, key *chain.KeyMaterial, req chain.TransferRequest) (*chain.TransferResult, error) {
	if err := ValidateAddress(req.To); err != nil {
		return nil, err
	}
	if key == nil || key.Chain != chain.TRX || len(key.PrivateKey) != privateKeySize {
		return nil, walleterr.WithSuggestion(walleterr.ErrInvalidInput, "a Tron key is required")
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 || !req.Amount.IsInt64() {
		return nil, walleterr.ErrInvalidAmount
	}

	priv := secp256k1.PrivKeyFromBytes(key.PrivateKey)
	defer priv.Zero()
	from := wallet.TronAddressFromEVM(wallet.EVMAddress(priv.PubKey().SerializeUncompressed()))
	amount := req.Amount.Int64()

	// Building is a read: nothing is committed until broadcast.
	tx, err := chain.RetryWithConfig(ctx, s.retry, func(ctx context.Context) (*Transaction, error) {
		return s.client.CreateTransfer(ctx, from, req.To, amount)
	})
	if err != nil {
		return nil, fmt.Errorf("creating transaction: %w", err)
	}

	digest, err := VerifyTransaction(tx, from, req.To, amount)
	if err != nil {
		return nil, err
	}
	req.Report(chain.StageBuilt)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tx.Signature = []string{hex.EncodeToString(SignDigest(priv, digest))}
	req.Report(chain.StageSigned)
	req.Report(chain.StageBroadcast)

	result, err := s.client.Broadcast(ctx, tx)
	if err != nil {
		s.log.Error("tron broadcast failed: %v", err)
		return nil, walleterr.WithCause(walleterr.ErrBroadcastRejected, err)
	}
	if result.TxID == "" {
		msg := decodeMessage(result.Message)
		if msg == "" {
			msg = result.Code
		}
		if msg == "" {
			msg = "TRX send failed"
		}
		s.log.Error("tron broadcast rejected: %s", msg)
		return nil, walleterr.WithCause(walleterr.ErrBroadcastRejected, &chain.RemoteError{Message: msg})
	}

	s.log.Debug("broadcast %s on trx", result.TxID)
	return &chain.TransferResult{
		Hash:   result.TxID,
		From:   from,
		To:     req.To,
		Amount: req.Amount.String(),
	}, nil
}

// VerifyTransaction checks that txID == sha256(raw_data_hex) and that the
// contract is a single transfer of amount SUN between from and to. It returns
// the digest to sign.
func VerifyTransaction(tx *Transaction, from, to string, amount int64) ([]byte, error) {
	raw, err := hex.DecodeString(tx.RawDataHex)
	if err != nil {
		return nil, walleterr.WithCause(ErrTransactionMismatch, err)
	}
	digest := sha256.Sum256(raw)

	txID, err := hex.DecodeString(tx.TxID)
	if err != nil || !bytes.Equal(txID, digest[:]) {
		return nil, walleterr.WithDetails(ErrTransactionMismatch, map[string]string{
			"txid":     tx.TxID,
			"expected": hex.EncodeToString(digest[:]),
		})
	}

	var contract transferContract
	if err := json.Unmarshal(tx.RawData, &contract); err != nil {
		return nil, walleterr.WithCause(ErrTransactionMismatch, err)
	}
	if len(contract.Contract) != 1 {
		return nil, ErrTransactionMismatch
	}
	c := contract.Contract[0]
	v := c.Parameter.Value
	if c.Type != transferContractType || v.Amount != amount || v.OwnerAddress != from || v.ToAddress != to {
		return nil, walleterr.WithDetails(ErrTransactionMismatch, map[string]string{
			"type":   c.Type,
			"amount": fmt.Sprintf("%d", v.Amount),
			"to":     v.ToAddress,
		})
	}

	return digest[:], nil
}

// SignDigest returns the 65-byte R||S||V signature with V = recovery id + 27.
func SignDigest(priv *secp256k1.PrivateKey, digest []byte) []byte {
	// SignCompact returns V||R||S with V already offset by 27.
	compact := ecdsa.SignCompact(priv, digest, false)

	sig := make([]byte, 65)
	copy(sig[0:64], compact[1:65])
	sig[64] = compact[0]
	return sig
}

// decodeMessage undoes TronGrid's hex encoding of error messages.
func decodeMessage(msg string) string {
	if b, err := hex.DecodeString(msg); err == nil && len(b) > 0 {
		return strings.TrimSpace(string(b))
	}
	return msg
}
