// Package sol sends native SOL transfers, either signed locally against a
// Solana JSON-RPC node or delegated to a relay.
package sol

import (
	"context"
	"crypto/ed25519"
	"errors"
	"math/big"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"github.com/mrz1836/nopewallet/internal/chain"
	"github.com/mrz1836/nopewallet/internal/metrics"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// DefaultRPCURL is the public mainnet endpoint.
const DefaultRPCURL = "https://api.mainnet-beta.solana.com"

// FeeLamports is the base fee of a single-signature transaction.
const FeeLamports uint64 = 5000

// Signer sends SOL with a locally signed system transfer.
type Signer struct {
	rpcURL     string
	httpClient *http.Client
	client     *rpc.Client
	retry      chain.RetryConfig
	log        chain.LogWriter
}

// Option configures a Signer.
type Option func(*Signer)

// WithRetry sets the retry policy for read calls.
func WithRetry(cfg chain.RetryConfig) Option {
	return func(s *Signer) { s.retry = cfg }
}

// WithHTTPClient sends RPC calls through c, usually to share its timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Signer) { s.httpClient = c }
}

// WithLogger sets the logger.
func WithLogger(l chain.LogWriter) Option {
	return func(s *Signer) {
		if l != nil {
			s.log = l
		}
	}
}

// NewSigner creates a signer against rpcURL. An empty URL uses mainnet.
func NewSigner(rpcURL string, opts ...Option) *Signer {
	if rpcURL == "" {
		rpcURL = DefaultRPCURL
	}
	s := &Signer{
		rpcURL: rpcURL,
		retry:  chain.DefaultRetryConfig(),
		log:    chain.NopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.httpClient != nil {
		s.client = rpc.NewWithCustomRPCClient(jsonrpc.NewClientWithOpts(rpcURL, &jsonrpc.RPCClientOpts{HTTPClient: s.httpClient}))
	} else {
		s.client = rpc.New(rpcURL)
	}
	return s
}

// URL returns the RPC endpoint.
func (s *Signer) URL() string { return s.rpcURL }

// ValidateAddress implements chain.AddressValidator.
func (s *Signer) ValidateAddress(address string) error {
	return ValidateAddress(address)
}

// ValidateAddress checks a base58 ed25519 public key.
func ValidateAddress(address string) error {
	if _, err := solana.PublicKeyFromBase58(address); err != nil {
		return walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{
			"address": address,
			"reason":  err.Error(),
		})
	}
	return nil
}

// GetBalance implements chain.BalanceReader. The balance is in lamports.
func (s *Signer) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	pk, err := solana.PublicKeyFromBase58(address)
	if err != nil {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{"address": address})
	}
	lamports, err := s.balance(ctx, pk)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetUint64(lamports), nil
}

// SignTransfer implements chain.Signer. A zero balance is refused before
// anything is built. With SendMax the whole balance minus FeeLamports is sent.
func (s *Signer) SignTransfer(ctx context.Context, key *chain.KeyMaterial, req chain.TransferRequest) (*chain.TransferResult, error) {
	to, err := solana.PublicKeyFromBase58(req.To)
	if err != nil {
		return nil, walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{"address": req.To})
	}
	if key == nil || key.Chain != chain.SOL || len(key.PrivateKey) != ed25519.PrivateKeySize {
		return nil, walleterr.WithSuggestion(walleterr.ErrInvalidInput, "a Solana key is required")
	}
	if !req.SendMax && (req.Amount == nil || req.Amount.Sign() <= 0 || !req.Amount.IsUint64()) {
		return nil, walleterr.ErrInvalidAmount
	}

	priv := make(solana.PrivateKey, ed25519.PrivateKeySize)
	copy(priv, key.PrivateKey)
	defer clear(priv)
	from := priv.PublicKey()

	balance, err := s.balance(ctx, from)
	if err != nil {
		return nil, err
	}
	if balance == 0 {
		return nil, walleterr.WithDetails(walleterr.ErrZeroBalance, map[string]string{"address": from.String()})
	}

	var lamports uint64
	if req.SendMax {
		if balance <= FeeLamports {
			return nil, walleterr.WithDetails(walleterr.ErrInsufficientBalanceForFee, map[string]string{
				"balance": new(big.Int).SetUint64(balance).String(),
				"fee":     new(big.Int).SetUint64(FeeLamports).String(),
			})
		}
		lamports = balance - FeeLamports
	} else {
		lamports = req.Amount.Uint64()
	}

	blockhash, err := chain.RetryWithConfig(ctx, s.retry, func(ctx context.Context) (solana.Hash, error) {
		var out *rpc.GetLatestBlockhashResult
		err := s.observe("getLatestBlockhash", func() (err error) {
			out, err = s.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
			return err
		})
		if err != nil {
			return solana.Hash{}, err
		}
		if out == nil || out.Value == nil {
			return solana.Hash{}, walleterr.WithCause(walleterr.ErrNetworkError, &chain.RemoteError{Message: "node returned no blockhash"})
		}
		return out.Value.Blockhash, nil
	})
	if err != nil {
		return nil, err
	}

	tx, err := solana.NewTransaction(
		[]solana.Instruction{system.NewTransferInstruction(lamports, from, to).Build()},
		blockhash,
		solana.TransactionPayer(from),
	)
	if err != nil {
		return nil, walleterr.Wrap(err, "building transaction")
	}
	req.Report(chain.StageBuilt)
	if _, err := tx.Sign(func(pk solana.PublicKey) *solana.PrivateKey {
		if pk.Equals(from) {
			return &priv
		}
		return nil
	}); err != nil {
		return nil, walleterr.Wrap(err, "signing transaction")
	}
	req.Report(chain.StageSigned)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req.Report(chain.StageBroadcast)
	var sig solana.Signature
	err = s.observe("sendTransaction", func() (err error) {
		sig, err = s.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
			SkipPreflight:       false,
			PreflightCommitment: rpc.CommitmentFinalized,
		})
		return err
	})
	if err != nil {
		s.log.Error("solana broadcast failed: %v", err)
		return nil, walleterr.WithCause(walleterr.ErrBroadcastRejected, unwrapRetryable(err))
	}

	s.log.Debug("broadcast %s on sol", sig.String())
	return &chain.TransferResult{
		Hash:    sig.String(),
		From:    from.String(),
		To:      to.String(),
		Amount:  new(big.Int).SetUint64(lamports).String(),
		Fee:     new(big.Int).SetUint64(FeeLamports).String(),
		Balance: new(big.Int).SetUint64(balance).String(),
	}, nil
}

func (s *Signer) balance(ctx context.Context, pk solana.PublicKey) (uint64, error) {
	return chain.RetryWithConfig(ctx, s.retry, func(ctx context.Context) (uint64, error) {
		var out *rpc.GetBalanceResult
		err := s.observe("getBalance", func() (err error) {
			out, err = s.client.GetBalance(ctx, pk, rpc.CommitmentConfirmed)
			return err
		})
		if err != nil {
			return 0, err
		}
		if out == nil {
			return 0, nil
		}
		return out.Value, nil
	})
}

// observe runs one RPC call, records it, and classifies its error: node
// refusals are final, transport failures are retryable.
func (s *Signer) observe(method string, call func() error) error {
	start := time.Now()
	err := call()
	metrics.Global.RecordRPCCall(chain.SOL.String(), time.Since(start), err)
	if err == nil {
		return nil
	}
	s.log.Debug("sol %s: %v", method, err)

	var rpcErr *jsonrpc.RPCError
	if errors.As(err, &rpcErr) {
		return walleterr.WithCause(walleterr.ErrNetworkError, &chain.RemoteError{Message: rpcErr.Message})
	}
	return chain.TransportError(err)
}

// unwrapRetryable drops the retry marker from a broadcast error so a
// rejected send is never mistaken for a retryable read.
func unwrapRetryable(err error) error {
	var we *walleterr.WalletError
	if errors.As(err, &we) && we.Cause != nil && walleterr.Is(we, walleterr.ErrNetworkError) {
		return we.Cause
	}
	return err
}
