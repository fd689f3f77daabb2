package evm

import (
	"context"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/mrz1836/nopewallet/internal/chain"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// Signer builds, signs and broadcasts EIP-155 legacy transfers on one network.
type Signer struct {
	network Network
	client  *Client
	nonces  *NonceManager
	speed   GasSpeed
	retry   chain.RetryConfig
	log     chain.LogWriter
}

// Option configures a Signer.
type Option func(*Signer)

// WithHTTPClient sets the HTTP client used for RPC calls.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Signer) { s.client = NewClient(s.network.RPCURL, s.network.Chain.String(), c) }
}

// WithNonceManager shares a nonce manager between signers of the same key.
func WithNonceManager(nm *NonceManager) Option {
	return func(s *Signer) { s.nonces = nm }
}

// WithGasSpeed selects the gas price adjustment.
func WithGasSpeed(speed GasSpeed) Option {
	return func(s *Signer) { s.speed = speed }
}

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

// NewSigner creates a signer for network.
func NewSigner(network Network, opts ...Option) *Signer {
	s := &Signer{
		network: network,
		client:  NewClient(network.RPCURL, network.Chain.String(), nil),
		nonces:  NewNonceManager(),
		speed:   GasSpeedMedium,
		retry:   chain.DefaultRetryConfig(),
		log:     chain.NopLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Network returns the network the signer sends on.
func (s *Signer) Network() Network {
	return s.network
}

// ValidateAddress implements chain.AddressValidator.
func (s *Signer) ValidateAddress(address string) error {
	return ValidateAddress(address)
}

// GetBalance implements chain.BalanceReader.
func (s *Signer) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	if err := ValidateAddress(address); err != nil {
		return nil, err
	}
	return chain.RetryWithConfig(ctx, s.retry, func(ctx context.Context) (*big.Int, error) {
		return s.client.GetBalance(ctx, address, "latest")
	})
}

// SignTransfer implements chain.Signer. With req.SendMax the value is the
// on-chain balance minus gasPrice*gasLimit. Read calls are retried; the
// broadcast is not.
func (s *Signer) SignTransfer(ctx context.Context, key *chain.KeyMaterial, req chain.TransferRequest) (*chain.TransferResult, error) {
	if err := ValidateAddress(req.To); err != nil {
		return nil, err
	}
	if key == nil || !key.Chain.IsEVM() || len(key.PrivateKey) == 0 {
		return nil, walleterr.WithSuggestion(walleterr.ErrInvalidInput, "an EVM key is required")
	}
	if !req.SendMax && (req.Amount == nil || req.Amount.Sign() <= 0) {
		return nil, walleterr.ErrInvalidAmount
	}

	priv, err := crypto.ToECDSA(key.PrivateKey)
	if err != nil {
		return nil, walleterr.WithCause(walleterr.ErrInvalidInput, err)
	}
	defer priv.D.SetInt64(0)

	from := crypto.PubkeyToAddress(priv.PublicKey)
	to := common.HexToAddress(req.To)

	chainID := s.network.BigChainID()
	if chainID == nil {
		if chainID, err = chain.RetryWithConfig(ctx, s.retry, s.client.ChainID); err != nil {
			return nil, fmt.Errorf("getting chain ID: %w", err)
		}
	}

	value := req.Amount
	if req.SendMax && value == nil {
		value = new(big.Int)
	}
	gas, err := s.estimateGas(ctx, CallMsg{From: from.Hex(), To: to.Hex(), Value: value})
	if err != nil {
		return nil, err
	}
	fee := gas.Fee()

	var balance *big.Int
	if req.SendMax {
		if balance, err = s.GetBalance(ctx, from.Hex()); err != nil {
			return nil, fmt.Errorf("getting balance: %w", err)
		}
		if balance.Cmp(fee) <= 0 {
			return nil, walleterr.WithDetails(walleterr.ErrInsufficientBalanceForFee, map[string]string{
				"balance": balance.String(),
				"fee":     fee.String(),
			})
		}
		value = new(big.Int).Sub(balance, fee)
	}

	pending, err := chain.RetryWithConfig(ctx, s.retry, func(ctx context.Context) (uint64, error) {
		return s.client.GetTransactionCount(ctx, from.Hex(), "pending")
	})
	if err != nil {
		return nil, fmt.Errorf("getting nonce: %w", err)
	}

	// Abandon before signing if the caller has given up.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	nonce := s.nonces.Next(from.Hex(), pending)
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gas.GasLimit,
		GasPrice: gas.GasPrice,
	})
	req.Report(chain.StageBuilt)

	signed, err := types.SignTx(tx, types.NewEIP155Signer(chainID), priv)
	if err != nil {
		s.nonces.Reset(from.Hex())
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		s.nonces.Reset(from.Hex())
		return nil, fmt.Errorf("encoding transaction: %w", err)
	}
	req.Report(chain.StageSigned)

	req.Report(chain.StageBroadcast)
	hash, err := s.client.SendRawTransaction(ctx, raw)
	if err != nil {
		s.nonces.Reset(from.Hex())
		s.log.Error("broadcast rejected on %s: %v", s.network.Chain, err)
		return nil, walleterr.WithCause(walleterr.ErrBroadcastRejected, err)
	}
	if hash == "" {
		hash = signed.Hash().Hex()
	}

	s.log.Debug("broadcast %s on %s nonce=%d gas=%d price=%s", hash, s.network.Chain, nonce, gas.GasLimit, FormatGasPrice(gas.GasPrice))

	result := &chain.TransferResult{
		Hash:   hash,
		From:   from.Hex(),
		To:     to.Hex(),
		Amount: value.String(),
		Fee:    fee.String(),
	}
	if balance != nil {
		result.Balance = balance.String()
	}
	return result, nil
}
