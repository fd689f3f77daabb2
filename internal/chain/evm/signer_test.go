package evm

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/nopewallet/internal/chain"
	"github.com/mrz1836/nopewallet/internal/wallet"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

const (
	testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"
	testFrom     = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"
	testTo       = "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"
)

// fakeNode is a scripted JSON-RPC node.
type fakeNode struct {
	mu          sync.Mutex
	balance     *big.Int
	gasPrice    *big.Int
	estimate    uint64
	estimateErr string
	nonce       uint64
	sendErr     string
	chainID     int64
	calls       []string
	raw         []string
}

func (n *fakeNode) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}

		n.mu.Lock()
		defer n.mu.Unlock()
		n.calls = append(n.calls, req.Method)

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		switch req.Method {
		case "eth_chainId":
			resp["result"] = hexBig(big.NewInt(n.chainID))
		case "eth_gasPrice":
			resp["result"] = hexBig(n.gasPrice)
		case "eth_getBalance":
			resp["result"] = hexBig(n.balance)
		case "eth_estimateGas":
			if n.estimateErr != "" {
				resp["error"] = map[string]any{"code": -32000, "message": n.estimateErr}
			} else {
				resp["result"] = hexBig(new(big.Int).SetUint64(n.estimate))
			}
		case "eth_getTransactionCount":
			resp["result"] = hexBig(new(big.Int).SetUint64(n.nonce))
		case "eth_sendRawTransaction":
			var raw string
			assert.NoError(t, json.Unmarshal(req.Params[0], &raw))
			n.raw = append(n.raw, raw)
			if n.sendErr != "" {
				resp["error"] = map[string]any{"code": -32000, "message": n.sendErr}
			} else {
				resp["result"] = "0xabc123"
			}
		default:
			resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
		}
		assert.NoError(t, json.NewEncoder(w).Encode(resp))
	})
}

func (n *fakeNode) sent(t *testing.T) []*types.Transaction {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*types.Transaction, 0, len(n.raw))
	for _, raw := range n.raw {
		b, err := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
		require.NoError(t, err)
		tx := new(types.Transaction)
		require.NoError(t, tx.UnmarshalBinary(b))
		out = append(out, tx)
	}
	return out
}

func (n *fakeNode) count(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, m := range n.calls {
		if m == method {
			c++
		}
	}
	return c
}

func hexBig(n *big.Int) string {
	return "0x" + n.Text(16)
}

func gwei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000))
}

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

func fastRetry() chain.RetryConfig {
	return chain.RetryConfig{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func newTestSigner(t *testing.T, node *fakeNode, id chain.ID, chainID int64) *Signer {
	t.Helper()
	srv := httptest.NewServer(node.handler(t))
	t.Cleanup(srv.Close)
	return NewSigner(Network{Chain: id, RPCURL: srv.URL, ChainID: chainID}, WithRetry(fastRetry()))
}

func testKey(t *testing.T, id chain.ID) *chain.KeyMaterial {
	t.Helper()
	km, err := wallet.DeriveFromMnemonic(testMnemonic, id)
	require.NoError(t, err)
	t.Cleanup(km.Zero)
	return km
}

func TestSignTransfer_Basic(t *testing.T) {
	t.Parallel()
	node := &fakeNode{balance: ether(1), gasPrice: gwei(10), estimate: 21000, nonce: 7}
	s := newTestSigner(t, node, chain.BNB, 56)

	amount := big.NewInt(1_000_000_000_000_000) // 0.001
	result, err := s.SignTransfer(context.Background(), testKey(t, chain.BNB), chain.TransferRequest{To: testTo, Amount: amount})
	require.NoError(t, err)

	assert.Equal(t, "0xabc123", result.Hash)
	assert.Equal(t, testFrom, result.From)
	assert.Equal(t, testTo, result.To)
	assert.Equal(t, amount.String(), result.Amount)
	assert.Equal(t, new(big.Int).Mul(gwei(10), big.NewInt(21000)).String(), result.Fee)
	assert.Empty(t, result.Balance)

	txs := node.sent(t)
	require.Len(t, txs, 1)
	tx := txs[0]
	assert.Equal(t, uint8(types.LegacyTxType), tx.Type())
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(21000), tx.Gas())
	assert.Equal(t, 0, gwei(10).Cmp(tx.GasPrice()))
	assert.Equal(t, 0, amount.Cmp(tx.Value()))
	assert.Equal(t, common.HexToAddress(testTo), *tx.To())
	assert.Equal(t, int64(56), tx.ChainId().Int64())

	sender, err := types.Sender(types.NewEIP155Signer(big.NewInt(56)), tx)
	require.NoError(t, err)
	assert.Equal(t, testFrom, sender.Hex())

	// A configured chain id needs no eth_chainId round trip.
	assert.Zero(t, node.count("eth_chainId"))
	assert.Zero(t, node.count("eth_getBalance"))
}

func TestSignTransfer_SameKeyAcrossEVMChains(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		id      chain.ID
		chainID int64
	}{
		{chain.ETH, 1}, {chain.AVAX, 43114}, {chain.BASE, 8453}, {chain.POL, 137},
	} {
		t.Run(tc.id.String(), func(t *testing.T) {
			t.Parallel()
			node := &fakeNode{gasPrice: gwei(1), estimate: 21000}
			s := newTestSigner(t, node, tc.id, tc.chainID)

			result, err := s.SignTransfer(context.Background(), testKey(t, tc.id), chain.TransferRequest{To: testTo, Amount: big.NewInt(1)})
			require.NoError(t, err)
			assert.Equal(t, testFrom, result.From)

			txs := node.sent(t)
			require.Len(t, txs, 1)
			assert.Equal(t, tc.chainID, txs[0].ChainId().Int64())
		})
	}
}

func TestSignTransfer_SendMax(t *testing.T) {
	t.Parallel()
	node := &fakeNode{balance: ether(1), gasPrice: gwei(20), estimate: 21000}
	s := newTestSigner(t, node, chain.ETH, 1)

	result, err := s.SignTransfer(context.Background(), testKey(t, chain.ETH), chain.TransferRequest{
		To: testTo, Amount: ether(1), SendMax: true,
	})
	require.NoError(t, err)

	fee := new(big.Int).Mul(gwei(20), big.NewInt(21000))
	want := new(big.Int).Sub(ether(1), fee)
	assert.Equal(t, want.String(), result.Amount)
	assert.Equal(t, ether(1).String(), result.Balance)

	txs := node.sent(t)
	require.Len(t, txs, 1)
	assert.Equal(t, 0, want.Cmp(txs[0].Value()))
}

func TestSignTransfer_SendMaxFallsBackToDefaultLimit(t *testing.T) {
	t.Parallel()
	node := &fakeNode{balance: ether(1), gasPrice: gwei(1), estimateErr: "insufficient funds for gas * price + value"}
	s := newTestSigner(t, node, chain.ETH, 1)

	_, err := s.SignTransfer(context.Background(), testKey(t, chain.ETH), chain.TransferRequest{
		To: testTo, Amount: ether(1), SendMax: true,
	})
	require.NoError(t, err)

	txs := node.sent(t)
	require.Len(t, txs, 1)
	assert.Equal(t, GasLimitTransfer, txs[0].Gas())
	// A node error is not retryable.
	assert.Equal(t, 1, node.count("eth_estimateGas"))
}

func TestSignTransfer_SendMaxFeeExceedsBalance(t *testing.T) {
	t.Parallel()

	for _, balance := range []*big.Int{big.NewInt(0), gwei(21000), big.NewInt(1000)} {
		node := &fakeNode{balance: balance, gasPrice: gwei(1), estimate: 21000}
		s := newTestSigner(t, node, chain.ETH, 1)

		_, err := s.SignTransfer(context.Background(), testKey(t, chain.ETH), chain.TransferRequest{
			To: testTo, Amount: big.NewInt(1), SendMax: true,
		})
		require.ErrorIs(t, err, walleterr.ErrInsufficientBalanceForFee, balance.String())
		assert.Equal(t, walleterr.ExitFunds, walleterr.ExitCode(err))
		assert.Empty(t, node.sent(t), "nothing is broadcast")
	}
}

func TestSignTransfer_BroadcastRejectedIsNotRetried(t *testing.T) {
	t.Parallel()
	node := &fakeNode{gasPrice: gwei(1), estimate: 21000, nonce: 3, sendErr: "nonce too low"}
	s := newTestSigner(t, node, chain.ETH, 1)

	_, err := s.SignTransfer(context.Background(), testKey(t, chain.ETH), chain.TransferRequest{To: testTo, Amount: big.NewInt(5)})
	require.ErrorIs(t, err, walleterr.ErrBroadcastRejected)
	assert.Contains(t, err.Error(), "nonce too low")
	assert.Equal(t, 1, node.count("eth_sendRawTransaction"))

	// The local nonce is forgotten so the next attempt reuses the node's.
	assert.Equal(t, uint64(3), s.nonces.Next(testFrom, 3))
}

func TestSignTransfer_ConsecutiveSendsAdvanceNonce(t *testing.T) {
	t.Parallel()
	node := &fakeNode{gasPrice: gwei(1), estimate: 21000, nonce: 9}
	s := newTestSigner(t, node, chain.ETH, 1)
	key := testKey(t, chain.ETH)

	for range 2 {
		_, err := s.SignTransfer(context.Background(), key, chain.TransferRequest{To: testTo, Amount: big.NewInt(1)})
		require.NoError(t, err)
	}

	txs := node.sent(t)
	require.Len(t, txs, 2)
	assert.Equal(t, uint64(9), txs[0].Nonce())
	assert.Equal(t, uint64(10), txs[1].Nonce())
}

func TestSignTransfer_ChainIDFromNode(t *testing.T) {
	t.Parallel()
	node := &fakeNode{gasPrice: gwei(1), estimate: 21000, chainID: 31337}
	s := newTestSigner(t, node, chain.ETH, 0)

	_, err := s.SignTransfer(context.Background(), testKey(t, chain.ETH), chain.TransferRequest{To: testTo, Amount: big.NewInt(1)})
	require.NoError(t, err)

	txs := node.sent(t)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(31337), txs[0].ChainId().Int64())
}

func TestSignTransfer_ValidationBeforeNetwork(t *testing.T) {
	t.Parallel()
	node := &fakeNode{gasPrice: gwei(1), estimate: 21000}
	s := newTestSigner(t, node, chain.ETH, 1)
	key := testKey(t, chain.ETH)

	tests := []struct {
		name string
		key  *chain.KeyMaterial
		req  chain.TransferRequest
		want error
	}{
		{"bad address", key, chain.TransferRequest{To: "0x123", Amount: big.NewInt(1)}, walleterr.ErrInvalidAddress},
		{"bad checksum", key, chain.TransferRequest{To: "0x742D35Cc6634C0532925a3b844Bc454e4438f44e", Amount: big.NewInt(1)}, walleterr.ErrInvalidAddress},
		{"nil amount", key, chain.TransferRequest{To: testTo}, walleterr.ErrInvalidAmount},
		{"zero amount", key, chain.TransferRequest{To: testTo, Amount: big.NewInt(0)}, walleterr.ErrInvalidAmount},
		{"nil key", nil, chain.TransferRequest{To: testTo, Amount: big.NewInt(1)}, walleterr.ErrInvalidInput},
		{"solana key", testKey(t, chain.SOL), chain.TransferRequest{To: testTo, Amount: big.NewInt(1)}, walleterr.ErrInvalidInput},
	}
	for _, tc := range tests {
		_, err := s.SignTransfer(context.Background(), tc.key, tc.req)
		require.ErrorIs(t, err, tc.want, tc.name)
	}
	assert.Empty(t, node.calls)
}

func TestSignTransfer_CanceledBeforeSigning(t *testing.T) {
	t.Parallel()
	node := &fakeNode{gasPrice: gwei(1), estimate: 21000}
	s := newTestSigner(t, node, chain.ETH, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.SignTransfer(ctx, testKey(t, chain.ETH), chain.TransferRequest{To: testTo, Amount: big.NewInt(1)})
	require.Error(t, err)
	assert.Empty(t, node.sent(t))
}

func TestGetBalance(t *testing.T) {
	t.Parallel()
	node := &fakeNode{balance: ether(2)}
	s := newTestSigner(t, node, chain.ETH, 1)

	bal, err := s.GetBalance(context.Background(), testFrom)
	require.NoError(t, err)
	assert.Equal(t, 0, ether(2).Cmp(bal))

	_, err = s.GetBalance(context.Background(), "nope")
	require.ErrorIs(t, err, walleterr.ErrInvalidAddress)
}

func TestGetBalance_RetriesServerErrors(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x10"}`))
	}))
	t.Cleanup(srv.Close)

	s := NewSigner(Network{Chain: chain.ETH, RPCURL: srv.URL, ChainID: 1}, WithRetry(fastRetry()), WithHTTPClient(srv.Client()))
	bal, err := s.GetBalance(context.Background(), testFrom)
	require.NoError(t, err)
	assert.Equal(t, int64(16), bal.Int64())
	assert.Equal(t, 2, attempts)
}

func TestSignerImplementsChainInterfaces(t *testing.T) {
	t.Parallel()
	var s any = NewSigner(DefaultNetworks()[chain.ETH])
	_, ok := s.(chain.Signer)
	assert.True(t, ok)
	_, ok = s.(chain.BalanceReader)
	assert.True(t, ok)
}
