package sol

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/nopewallet/internal/chain"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

func newRelay(t *testing.T, h http.HandlerFunc) *RelaySigner {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewRelaySigner(srv.URL+"/", srv.Client(), nil)
}

func TestRelaySigner(t *testing.T) {
	t.Parallel()
	to := derive(t, recipientMnemonic).Address

	var (
		mu  sync.Mutex
		got RelayRequest
	)
	r := newRelay(t, func(w http.ResponseWriter, req *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, RelayPath, req.URL.Path)
		assert.NoError(t, json.NewDecoder(req.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(RelayResponse{TxID: testSignature, From: "sender", To: got.To, Amount: got.Amount, Balance: 7})
	})

	result, err := r.SignWithMnemonic(context.Background(), []byte(senderMnemonic), chain.TransferRequest{To: to, Amount: big.NewInt(1_500_000_000)})
	require.NoError(t, err)
	assert.Equal(t, testSignature, result.Hash)
	assert.Equal(t, "1500000000", result.Amount)
	assert.Equal(t, "7", result.Balance)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, senderMnemonic, got.Mnemonic)
	assert.Equal(t, json.Number("1.5"), got.Amount)
	require.NotNil(t, got.AccountIndex)
	assert.Equal(t, DefaultAccountIndex, *got.AccountIndex)
}

func TestRelaySigner_Failures(t *testing.T) {
	t.Parallel()
	to := derive(t, recipientMnemonic).Address

	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"zero balance", http.StatusBadRequest, `{"error":"Sender account has 0 SOL. Cannot send transaction.","code":"ZERO_BALANCE"}`, walleterr.ErrZeroBalance},
		{"invalid mnemonic", http.StatusBadRequest, `{"error":"Invalid mnemonic","code":"INVALID_MNEMONIC"}`, walleterr.ErrInvalidMnemonic},
		{"missing fields without code", http.StatusBadRequest, `{"error":"mnemonic, recipient, and amount are required"}`, walleterr.ErrInvalidInput},
		{"server failure", http.StatusInternalServerError, `{"error":"blockhash not found"}`, walleterr.ErrBroadcastRejected},
		{"plain text", http.StatusBadGateway, `upstream down`, walleterr.ErrBroadcastRejected},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var calls atomic.Int32
			r := newRelay(t, func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			_, err := r.SignWithMnemonic(context.Background(), []byte(senderMnemonic), chain.TransferRequest{To: to, Amount: big.NewInt(1)})
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, int32(1), calls.Load(), "relay sends are never retried")
		})
	}
}

func TestRelaySigner_KeepsRemoteMessage(t *testing.T) {
	t.Parallel()
	r := newRelay(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Transaction simulation failed"}`))
	})
	_, err := r.SignWithMnemonic(context.Background(), []byte(senderMnemonic), chain.TransferRequest{
		To: derive(t, recipientMnemonic).Address, Amount: big.NewInt(1),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Transaction simulation failed")
}

func TestRelaySigner_Validation(t *testing.T) {
	t.Parallel()
	var called atomic.Bool
	r := newRelay(t, func(http.ResponseWriter, *http.Request) { called.Store(true) })
	to := derive(t, recipientMnemonic).Address

	_, err := r.SignWithMnemonic(context.Background(), []byte(senderMnemonic), chain.TransferRequest{To: "bad", Amount: big.NewInt(1)})
	require.ErrorIs(t, err, walleterr.ErrInvalidAddress)
	_, err = r.SignWithMnemonic(context.Background(), nil, chain.TransferRequest{To: to, Amount: big.NewInt(1)})
	require.ErrorIs(t, err, walleterr.ErrInvalidMnemonic)
	_, err = r.SignWithMnemonic(context.Background(), []byte(senderMnemonic), chain.TransferRequest{To: to})
	require.ErrorIs(t, err, walleterr.ErrInvalidAmount)
	_, err = r.SignTransfer(context.Background(), nil, chain.TransferRequest{To: to, Amount: big.NewInt(1)})
	require.ErrorIs(t, err, walleterr.ErrInvalidInput)

	assert.False(t, called.Load())
}
