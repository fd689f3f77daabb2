// Package transaction orchestrates a send: validate, unlock, derive, sign and
// broadcast, with every step recorded on a Pending record.
package transaction

import (
	"context"
	"strings"
	"time"

	"github.com/mrz1836/nopewallet/internal/chain"
	"github.com/mrz1836/nopewallet/internal/metrics"
	"github.com/mrz1836/nopewallet/internal/vaultcrypto"
	"github.com/mrz1836/nopewallet/internal/wallet"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// Service sends native transfers.
type Service struct {
	secrets  SecretLoader
	signers  SignerResolver
	logger   LogWriter
	observer Observer
}

// Config holds dependencies for the transaction service.
type Config struct {
	Secrets  SecretLoader
	Signers  SignerResolver
	Logger   LogWriter
	Observer Observer
}

// NewService creates a new transaction service.
func NewService(cfg *Config) *Service {
	s := &Service{
		secrets:  cfg.Secrets,
		signers:  cfg.Signers,
		logger:   cfg.Logger,
		observer: cfg.Observer,
	}
	if s.logger == nil {
		s.logger = nopLogger{}
	}
	return s
}

// Send runs one transfer end to end. Nothing is retried once signing has
// started; a failed send can be re-run from scratch by calling Send again.
// A context cancelled before broadcast abandons the send.
func (s *Service) Send(ctx context.Context, req *SendRequest) (result *SendResult, err error) {
	p := &Pending{
		Chain:     req.ChainID,
		To:        strings.TrimSpace(req.To),
		State:     StateIdle,
		UpdatedAt: time.Now(),
	}
	s.notify(p)

	defer func() {
		metrics.Global.RecordWalletOp(err)
		if err != nil {
			at := p.State
			p.fail(err)
			s.notify(p)
			s.logger.Error("send on %s failed after %s: %v", req.ChainID, at, err)
		}
	}()

	return s.send(ctx, req, p)
}

func (s *Service) send(ctx context.Context, req *SendRequest, p *Pending) (*SendResult, error) {
	id := req.ChainID
	if !id.IsValid() {
		return nil, walleterr.WithDetails(walleterr.ErrUnsupportedChain, map[string]string{"chain": id.String()})
	}
	if id == chain.BTC {
		return nil, walleterr.WithSuggestion(walleterr.ErrUnsupportedChain, "BTC supports receiving and balances only")
	}
	if p.To == "" {
		return nil, walleterr.WithSuggestion(walleterr.ErrInvalidInput, "a recipient is required")
	}

	amount, err := parseAmount(id, req.AmountStr, req.Balance)
	if err != nil {
		return nil, err
	}

	signer, err := s.signers.Signer(id)
	if err != nil {
		return nil, err
	}
	if err := signer.ValidateAddress(p.To); err != nil {
		return nil, err
	}
	if amount.units != nil {
		p.Amount = chain.FormatDecimalAmount(amount.units, id.Decimals())
	}
	s.step(p, StateAddressValidated)

	secret, err := s.secrets.Load(ctx, req.AccountID, req.Password)
	if err != nil {
		return nil, err
	}
	if secret == nil {
		return nil, walleterr.WithSuggestion(walleterr.ErrWrongPassword, "check the password for account "+req.AccountID)
	}
	defer secret.Destroy()

	treq := chain.TransferRequest{
		To:      p.To,
		Amount:  amount.units,
		SendMax: amount.sendMax,
		Progress: func(stage chain.Stage) {
			s.step(p, stateFor(stage))
		},
	}

	s.logger.Debug("send on %s: to=%s amount=%s sendMax=%v", id, p.To, p.Amount, amount.sendMax)

	var transfer *chain.TransferResult
	useErr := secret.Use(func(mnemonic []byte) error {
		var err error
		if ms, ok := signer.(chain.MnemonicSigner); ok {
			transfer, err = ms.SignWithMnemonic(ctx, mnemonic, treq)
			return err
		}

		key, err := deriveKey(mnemonic, id)
		if err != nil {
			return err
		}
		defer key.Zero()

		p.From = key.Address
		s.step(p, StateKeysDerived)

		if err := ctx.Err(); err != nil {
			return err
		}
		transfer, err = signer.SignTransfer(ctx, key, treq)
		return err
	})
	if useErr != nil {
		return nil, useErr
	}

	if p.From == "" {
		p.From = transfer.From
	}
	p.Amount = formatUnits(transfer.Amount, id.Decimals())
	p.Fee = formatUnits(transfer.Fee, id.Decimals())
	s.step(p, StateConfirmed)

	return &SendResult{
		ChainID: id,
		Hash:    transfer.Hash,
		From:    p.From,
		To:      transfer.To,
		Amount:  p.Amount,
		Fee:     p.Fee,
		Balance: formatUnits(transfer.Balance, id.Decimals()),
		Status:  p.State,
	}, nil
}

// deriveKey turns the mnemonic into key material for id. The seed is
// zeroed before returning; the caller zeroes the key.
func deriveKey(mnemonic []byte, id chain.ID) (*chain.KeyMaterial, error) {
	seed, err := wallet.MnemonicToSeed(string(mnemonic), "")
	if err != nil {
		return nil, err
	}
	defer vaultcrypto.Zero(seed)
	return wallet.Derive(seed, id)
}

func (s *Service) step(p *Pending, next State) {
	if err := p.advance(next); err != nil {
		s.logger.Debug("send on %s: %v", p.Chain, err)
		return
	}
	s.notify(p)
}

func (s *Service) notify(p *Pending) {
	if s.observer != nil {
		s.observer(*p)
	}
}

func stateFor(stage chain.Stage) State {
	switch stage {
	case chain.StageBuilt:
		return StateBuilt
	case chain.StageSigned:
		return StateSigned
	case chain.StageBroadcast:
		return StateBroadcast
	default:
		return StateIdle
	}
}

