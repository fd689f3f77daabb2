package sol

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/nopewallet/internal/chain"
	"github.com/mrz1836/nopewallet/internal/wallet"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

const (
	senderMnemonic    = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	recipientMnemonic = "legal winner thank year wave sausage worth useful legal winner thank yellow"
	testSignature     = "5VERv8NMvzbJMEkV8xnrLkEaWRtSz9CosKDYjCJjBRnbJLgp8uirBgmQpjKhoR4tjF3ZpRzrFmBV6UjKdiSZkQUW"
)

// fakeNode is a scripted Solana JSON-RPC node.
type fakeNode struct {
	mu sync.Mutex

	balance     uint64
	sendError   string
	failBalance int

	calls map[string]int
	sent  []*solana.Transaction
}

func (n *fakeNode) handler(t *testing.T) http.Handler {
	blockhash := solana.PublicKeyFromBytes(make([]byte, 32)).String()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.mu.Lock()
		defer n.mu.Unlock()

		var req struct {
			ID     json.RawMessage   `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		if n.calls == nil {
			n.calls = map[string]int{}
		}
		n.calls[req.Method]++

		reply := func(result any) {
			_ = json.NewEncoder(w).Encode(map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": result})
		}
		fail := func(msg string) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0", "id": req.ID,
				"error": map[string]any{"code": -32002, "message": msg},
			})
		}
		ctx := map[string]any{"slot": 1}

		switch req.Method {
		case "getBalance":
			if n.failBalance > 0 {
				n.failBalance--
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			reply(map[string]any{"context": ctx, "value": n.balance})
		case "getLatestBlockhash":
			reply(map[string]any{"context": ctx, "value": map[string]any{"blockhash": blockhash, "lastValidBlockHeight": 100}})
		case "sendTransaction":
			var encoded string
			assert.NoError(t, json.Unmarshal(req.Params[0], &encoded))
			raw, err := base64.StdEncoding.DecodeString(encoded)
			assert.NoError(t, err)
			tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
			assert.NoError(t, err)
			n.sent = append(n.sent, tx)
			if n.sendError != "" {
				fail(n.sendError)
				return
			}
			reply(testSignature)
		default:
			fail("method not found")
		}
	})
}

func (n *fakeNode) count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func newTestSigner(t *testing.T, n *fakeNode) *Signer {
	t.Helper()
	srv := httptest.NewServer(n.handler(t))
	t.Cleanup(srv.Close)
	return NewSigner(srv.URL, WithRetry(chain.RetryConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}))
}

func derive(t *testing.T, mnemonic string) *chain.KeyMaterial {
	t.Helper()
	km, err := wallet.DeriveFromMnemonic(mnemonic, chain.SOL)
	require.NoError(t, err)
	t.Cleanup(km.Zero)
	return km
}

// transferLamports decodes a system transfer: u32 LE 2 then u64 LE lamports.
func transferLamports(t *testing.T, tx *solana.Transaction) uint64 {
	t.Helper()
	require.Len(t, tx.Message.Instructions, 1)
	data := tx.Message.Instructions[0].Data
	require.Len(t, data, 12)
	require.Equal(t, uint32(2), binary.LittleEndian.Uint32(data[:4]))
	return binary.LittleEndian.Uint64(data[4:])
}

func TestSignTransfer(t *testing.T) {
	t.Parallel()
	n := &fakeNode{balance: 2_000_000_000}
	s := newTestSigner(t, n)
	key := derive(t, senderMnemonic)
	to := derive(t, recipientMnemonic).Address

	result, err := s.SignTransfer(context.Background(), key, chain.TransferRequest{To: to, Amount: big.NewInt(500_000_000)})
	require.NoError(t, err)
	assert.Equal(t, testSignature, result.Hash)
	assert.Equal(t, key.Address, result.From)
	assert.Equal(t, to, result.To)
	assert.Equal(t, "500000000", result.Amount)
	assert.Equal(t, "5000", result.Fee)
	assert.Equal(t, "2000000000", result.Balance)

	require.Len(t, n.sent, 1)
	tx := n.sent[0]
	assert.Equal(t, uint64(500_000_000), transferLamports(t, tx))
	assert.Equal(t, key.Address, tx.Message.AccountKeys[0].String(), "sender pays the fee")

	msg, err := tx.Message.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, tx.Signatures, 1)
	assert.True(t, ed25519.Verify(key.PublicKey, msg, tx.Signatures[0][:]))
}

func TestSignTransfer_SendMax(t *testing.T) {
	t.Parallel()
	n := &fakeNode{balance: 1_000_000}
	s := newTestSigner(t, n)

	result, err := s.SignTransfer(context.Background(), derive(t, senderMnemonic), chain.TransferRequest{
		To: derive(t, recipientMnemonic).Address, SendMax: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "995000", result.Amount)
	require.Len(t, n.sent, 1)
	assert.Equal(t, uint64(995_000), transferLamports(t, n.sent[0]))
}

func TestSignTransfer_SendMaxBelowFee(t *testing.T) {
	t.Parallel()
	n := &fakeNode{balance: FeeLamports}
	s := newTestSigner(t, n)

	_, err := s.SignTransfer(context.Background(), derive(t, senderMnemonic), chain.TransferRequest{
		To: derive(t, recipientMnemonic).Address, SendMax: true,
	})
	require.ErrorIs(t, err, walleterr.ErrInsufficientBalanceForFee)
	assert.Empty(t, n.sent)
}

func TestSignTransfer_ZeroBalance(t *testing.T) {
	t.Parallel()
	n := &fakeNode{}
	s := newTestSigner(t, n)

	_, err := s.SignTransfer(context.Background(), derive(t, senderMnemonic), chain.TransferRequest{
		To: derive(t, recipientMnemonic).Address, Amount: big.NewInt(1),
	})
	require.ErrorIs(t, err, walleterr.ErrZeroBalance)
	assert.Zero(t, n.count("getLatestBlockhash"))
	assert.Empty(t, n.sent)
}

func TestSignTransfer_BroadcastRejectedIsNotRetried(t *testing.T) {
	t.Parallel()
	n := &fakeNode{balance: 10_000, sendError: "Transaction simulation failed: insufficient lamports"}
	s := newTestSigner(t, n)

	_, err := s.SignTransfer(context.Background(), derive(t, senderMnemonic), chain.TransferRequest{
		To: derive(t, recipientMnemonic).Address, Amount: big.NewInt(9_000),
	})
	require.ErrorIs(t, err, walleterr.ErrBroadcastRejected)
	assert.False(t, chain.IsRetryable(err))
	assert.Contains(t, err.Error(), "insufficient lamports")
	assert.Equal(t, 1, n.count("sendTransaction"))
}

func TestSignTransfer_CancelledBeforeBroadcast(t *testing.T) {
	t.Parallel()
	n := &fakeNode{balance: 10_000}
	s := newTestSigner(t, n)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.SignTransfer(ctx, derive(t, senderMnemonic), chain.TransferRequest{
		To: derive(t, recipientMnemonic).Address, Amount: big.NewInt(1),
	})
	require.Error(t, err)
	assert.Zero(t, n.count("sendTransaction"))
}

func TestSignTransfer_Validation(t *testing.T) {
	t.Parallel()
	n := &fakeNode{balance: 10_000}
	s := newTestSigner(t, n)
	key := derive(t, senderMnemonic)
	to := derive(t, recipientMnemonic).Address

	trxKey, err := wallet.DeriveFromMnemonic(senderMnemonic, chain.TRX)
	require.NoError(t, err)
	t.Cleanup(trxKey.Zero)

	tests := []struct {
		name string
		key  *chain.KeyMaterial
		req  chain.TransferRequest
		want error
	}{
		{"evm address", key, chain.TransferRequest{To: "0x742d35Cc6634C0532925a3b844Bc454e4438f44e", Amount: big.NewInt(1)}, walleterr.ErrInvalidAddress},
		{"empty address", key, chain.TransferRequest{Amount: big.NewInt(1)}, walleterr.ErrInvalidAddress},
		{"nil amount", key, chain.TransferRequest{To: to}, walleterr.ErrInvalidAmount},
		{"zero amount", key, chain.TransferRequest{To: to, Amount: big.NewInt(0)}, walleterr.ErrInvalidAmount},
		{"wrong chain key", trxKey, chain.TransferRequest{To: to, Amount: big.NewInt(1)}, walleterr.ErrInvalidInput},
		{"nil key", nil, chain.TransferRequest{To: to, Amount: big.NewInt(1)}, walleterr.ErrInvalidInput},
	}
	for _, tc := range tests {
		_, err := s.SignTransfer(context.Background(), tc.key, tc.req)
		require.ErrorIs(t, err, tc.want, tc.name)
	}
	assert.Zero(t, n.count("getBalance"))
}

func TestGetBalance(t *testing.T) {
	t.Parallel()
	n := &fakeNode{balance: 42, failBalance: 1}
	s := newTestSigner(t, n)

	bal, err := s.GetBalance(context.Background(), derive(t, senderMnemonic).Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), bal.Uint64())
	assert.Equal(t, 2, n.count("getBalance"), "a 503 is retried")

	_, err = s.GetBalance(context.Background(), "not-a-key")
	require.ErrorIs(t, err, walleterr.ErrInvalidAddress)
}

func TestValidateAddress(t *testing.T) {
	t.Parallel()
	require.NoError(t, ValidateAddress(derive(t, senderMnemonic).Address))
	require.NoError(t, ValidateAddress("11111111111111111111111111111111"))

	for _, bad := range []string{"", "0OIl", "TJCnKsPa7y5okkXvQAidZBzqx3QyQ6sxMW", "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"} {
		require.ErrorIs(t, ValidateAddress(bad), walleterr.ErrInvalidAddress, bad)
	}
}

func TestSignerInterfaces(t *testing.T) {
	t.Parallel()
	var _ chain.Signer = (*Signer)(nil)
	var _ chain.BalanceReader = (*Signer)(nil)
	var _ chain.MnemonicSigner = (*RelaySigner)(nil)
}

func TestSignTransfer_ReportsStages(t *testing.T) {
	t.Parallel()
	n := &fakeNode{balance: 10_000}
	s := newTestSigner(t, n)

	var stages []chain.Stage
	_, err := s.SignTransfer(context.Background(), derive(t, senderMnemonic), chain.TransferRequest{
		To:       derive(t, recipientMnemonic).Address,
		Amount:   big.NewInt(1),
		Progress: func(st chain.Stage) { stages = append(stages, st) },
	})
	require.NoError(t, err)
	assert.Equal(t, []chain.Stage{chain.StageBuilt, chain.StageSigned, chain.StageBroadcast}, stages)
}

// countingTransport counts requests passing through it.
type countingTransport struct {
	mu sync.Mutex
	n  int
}

func (c *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
	return http.DefaultTransport.RoundTrip(req)
}

func TestWithHTTPClient(t *testing.T) {
	t.Parallel()
	n := &fakeNode{balance: 7}
	srv := httptest.NewServer(n.handler(t))
	t.Cleanup(srv.Close)

	transport := &countingTransport{}
	s := NewSigner(srv.URL, WithHTTPClient(&http.Client{Transport: transport, Timeout: 5 * time.Second}))

	bal, err := s.GetBalance(context.Background(), derive(t, senderMnemonic).Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), bal.Uint64())

	transport.mu.Lock()
	defer transport.mu.Unlock()
	assert.Equal(t, 1, transport.n)
}
