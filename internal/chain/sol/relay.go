package sol

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/mrz1836/nopewallet/internal/chain"
	"github.com/mrz1836/nopewallet/internal/metrics"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// RelayPath is the relay's send endpoint.
const RelayPath = "/solana"

// DefaultAccountIndex is what the relay assumes when no index is sent.
// The index is accepted for compatibility and does not change the path.
const DefaultAccountIndex = 2

// RelayRequest is the body of POST /solana.
type RelayRequest struct {
	Mnemonic     string      `json:"mnemonic"`
	To           string      `json:"to"`
	Amount       json.Number `json:"amount"`
	AccountIndex *int        `json:"accountIndex,omitempty"`
}

// RelayResponse is the relay's success body.
type RelayResponse struct {
	TxID    string      `json:"txid"`
	From    string      `json:"from"`
	To      string      `json:"to"`
	Amount  json.Number `json:"amount"`
	Balance uint64      `json:"balance"`
}

// RelayError is the relay's failure body. Code is the wallet error code when
// the relay knows it.
type RelayError struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// relayCodes maps relay error codes back to sentinels.
//
//nolint:gochecknoglobals // Immutable lookup table
var relayCodes = map[string]error{
	walleterr.ErrZeroBalance.Code:               walleterr.ErrZeroBalance,
	walleterr.ErrInvalidMnemonic.Code:           walleterr.ErrInvalidMnemonic,
	walleterr.ErrInvalidAddress.Code:            walleterr.ErrInvalidAddress,
	walleterr.ErrInvalidAmount.Code:             walleterr.ErrInvalidAmount,
	walleterr.ErrInvalidInput.Code:              walleterr.ErrInvalidInput,
	walleterr.ErrInsufficientBalanceForFee.Code: walleterr.ErrInsufficientBalanceForFee,
	walleterr.ErrBroadcastRejected.Code:         walleterr.ErrBroadcastRejected,
}

// RelaySigner hands the mnemonic to a relay that signs and broadcasts.
// It exists for compatibility with deployments that still run one; the
// local Signer never lets the mnemonic leave the process.
type RelaySigner struct {
	baseURL    string
	httpClient *http.Client
	log        chain.LogWriter
}

// NewRelaySigner creates a relay client for baseURL.
func NewRelaySigner(baseURL string, httpClient *http.Client, log chain.LogWriter) *RelaySigner {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	if log == nil {
		log = chain.NopLogger{}
	}
	return &RelaySigner{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		log:        log,
	}
}

// ValidateAddress implements chain.AddressValidator.
func (r *RelaySigner) ValidateAddress(address string) error {
	return ValidateAddress(address)
}

// SignTransfer implements chain.Signer. The relay derives its own key, so
// callers must use SignWithMnemonic.
func (r *RelaySigner) SignTransfer(context.Context, *chain.KeyMaterial, chain.TransferRequest) (*chain.TransferResult, error) {
	return nil, walleterr.WithSuggestion(walleterr.ErrInvalidInput, "the Solana relay signs from the mnemonic")
}

// SignWithMnemonic implements chain.MnemonicSigner. The amount is sent as a
// decimal SOL value. Nothing is retried.
func (r *RelaySigner) SignWithMnemonic(ctx context.Context, mnemonic []byte, req chain.TransferRequest) (result *chain.TransferResult, err error) {
	if err := ValidateAddress(req.To); err != nil {
		return nil, err
	}
	if len(mnemonic) == 0 {
		return nil, walleterr.ErrInvalidMnemonic
	}
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		return nil, walleterr.ErrInvalidAmount
	}

	index := DefaultAccountIndex
	body, err := json.Marshal(RelayRequest{
		Mnemonic:     string(mnemonic),
		To:           req.To,
		Amount:       json.Number(chain.FormatDecimalAmount(req.Amount, chain.SOL.Decimals())),
		AccountIndex: &index,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling relay request: %w", err)
	}
	defer clear(body)

	// The relay builds and signs remotely; from here on the send is out of our hands.
	req.Report(chain.StageBroadcast)

	start := time.Now()
	defer func() { metrics.Global.RecordRPCCall(chain.SOL.String(), time.Since(start), err) }()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+RelayPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, walleterr.WithCause(walleterr.ErrNetworkError, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, walleterr.WithCause(walleterr.ErrNetworkError, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, relayFailure(resp.StatusCode, respBody)
	}

	var ok RelayResponse
	if err := json.Unmarshal(respBody, &ok); err != nil {
		return nil, walleterr.WithCause(walleterr.ErrNetworkError, fmt.Errorf("decoding relay response: %w", err))
	}
	if ok.TxID == "" {
		return nil, walleterr.WithCause(walleterr.ErrBroadcastRejected, &chain.RemoteError{Message: "relay returned no txid"})
	}

	r.log.Debug("relay broadcast %s on sol", ok.TxID)
	return &chain.TransferResult{
		Hash:    ok.TxID,
		From:    ok.From,
		To:      ok.To,
		Amount:  req.Amount.String(),
		Balance: new(big.Int).SetUint64(ok.Balance).String(),
	}, nil
}

// relayFailure maps a relay error body back to a sentinel. Unknown 4xx
// answers are input errors, everything else is a rejected send.
func relayFailure(status int, body []byte) error {
	var rerr RelayError
	_ = json.Unmarshal(body, &rerr)
	msg := rerr.Error
	if msg == "" {
		msg = chain.RemoteMessage(body)
	}
	remote := &chain.RemoteError{Status: status, Message: msg}

	if sentinel, ok := relayCodes[rerr.Code]; ok {
		return walleterr.WithCause(sentinel, remote)
	}
	if status >= 400 && status < 500 {
		return walleterr.WithCause(walleterr.ErrInvalidInput, remote)
	}
	return walleterr.WithCause(walleterr.ErrBroadcastRejected, remote)
}
