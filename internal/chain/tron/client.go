// Package tron sends native TRX transfers through the TronGrid HTTP API.
package tron

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mrz1836/nopewallet/internal/chain"
	"github.com/mrz1836/nopewallet/internal/metrics"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// DefaultBaseURL is the public TronGrid endpoint.
const DefaultBaseURL = "https://api.trongrid.io"

const (
	apiKeyHeader     = "TRON-PRO-API-KEY" //nolint:gosec // header name, not a credential
	maxResponseBytes = 2 << 20
)

// Client is a minimal TronGrid HTTP client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a client for baseURL. An empty apiKey sends no key header.
func NewClient(baseURL, apiKey string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// Transaction is an unsigned or signed transaction as TronGrid returns it.
// RawData is kept raw so it is sent back exactly as built.
type Transaction struct {
	TxID       string          `json:"txID"`
	RawData    json.RawMessage `json:"raw_data"`
	RawDataHex string          `json:"raw_data_hex"`
	Visible    bool            `json:"visible"`
	Signature  []string        `json:"signature,omitempty"`
}

// transferContract is the part of raw_data checked before signing.
type transferContract struct {
	Contract []struct {
		Type      string `json:"type"`
		Parameter struct {
			Value struct {
				Amount       int64  `json:"amount"`
				OwnerAddress string `json:"owner_address"`
				ToAddress    string `json:"to_address"`
			} `json:"value"`
		} `json:"parameter"`
	} `json:"contract"`
}

// BroadcastResult is the broadcast endpoint's answer.
type BroadcastResult struct {
	Result  bool   `json:"result"`
	TxID    string `json:"txid"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// CreateTransfer asks the node to build a TransferContract for amount SUN.
func (c *Client) CreateTransfer(ctx context.Context, from, to string, amount int64) (*Transaction, error) {
	var tx struct {
		Transaction
		Error string `json:"Error"`
	}
	err := c.post(ctx, "/wallet/createtransaction", map[string]any{
		"owner_address": from,
		"to_address":    to,
		"amount":        amount,
		"visible":       true,
	}, &tx)
	if err != nil {
		return nil, err
	}
	if tx.Error != "" {
		return nil, walleterr.WithCause(walleterr.ErrNetworkError, &chain.RemoteError{Message: tx.Error})
	}
	if tx.TxID == "" || tx.RawDataHex == "" {
		return nil, walleterr.WithCause(walleterr.ErrNetworkError, &chain.RemoteError{Message: "node returned no transaction"})
	}
	return &tx.Transaction, nil
}

// Broadcast submits a signed transaction. It is never retried.
func (c *Client) Broadcast(ctx context.Context, tx *Transaction) (*BroadcastResult, error) {
	var result BroadcastResult
	if err := c.post(ctx, "/wallet/broadcasttransaction", tx, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetBalance returns an account's TRX balance in SUN. Accounts that were
// never activated have no balance field and read as zero.
func (c *Client) GetBalance(ctx context.Context, address string) (int64, error) {
	var account struct {
		Balance int64 `json:"balance"`
	}
	if err := c.post(ctx, "/wallet/getaccount", map[string]any{
		"address": address,
		"visible": true,
	}, &account); err != nil {
		return 0, err
	}
	return account.Balance, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) (err error) {
	start := time.Now()
	defer func() { metrics.Global.RecordRPCCall(chain.TRX.String(), time.Since(start), err) }()

	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return chain.TransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return chain.TransportError(err)
	}
	if err := chain.StatusError(resp.StatusCode, respBody); err != nil {
		return err
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return walleterr.WithCause(walleterr.ErrNetworkError, fmt.Errorf("decoding %s: %w", path, err))
	}
	return nil
}
