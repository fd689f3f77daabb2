package evm

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/nopewallet/internal/chain"
	"github.com/mrz1836/nopewallet/internal/metrics"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// rpcServer answers every call with result, asserting the method.
func rpcServer(t *testing.T, method string, result any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, method, req["method"])
		assert.Equal(t, "2.0", req["jsonrpc"])

		assert.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req["id"],
			"result":  result,
		}))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClient_ChainID(t *testing.T) {
	t.Parallel()
	srv := rpcServer(t, "eth_chainId", "0x38")

	id, err := NewClient(srv.URL, "bnb", nil).ChainID(testCtx(t))
	require.NoError(t, err)
	assert.Equal(t, int64(56), id.Int64())
}

func TestClient_GetBalance(t *testing.T) {
	t.Parallel()
	srv := rpcServer(t, "eth_getBalance", "0xde0b6b3a7640000")

	bal, err := NewClient(srv.URL, "eth", nil).GetBalance(testCtx(t), testTo, "")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", bal.String())
}

func TestClient_GetTransactionCount(t *testing.T) {
	t.Parallel()
	srv := rpcServer(t, "eth_getTransactionCount", "0x5")

	n, err := NewClient(srv.URL, "eth", nil).GetTransactionCount(testCtx(t), testTo, "")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)
}

func TestClient_GasPrice(t *testing.T) {
	t.Parallel()
	srv := rpcServer(t, "eth_gasPrice", "0x3b9aca00")

	price, err := NewClient(srv.URL, "eth", nil).GasPrice(testCtx(t))
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000_000), price.Int64())
}

func TestClient_EstimateGas(t *testing.T) {
	t.Parallel()
	srv := rpcServer(t, "eth_estimateGas", "0x5208")

	gas, err := NewClient(srv.URL, "eth", nil).EstimateGas(testCtx(t), CallMsg{To: testTo, Value: big.NewInt(1)})
	require.NoError(t, err)
	assert.Equal(t, uint64(21000), gas)
}

func TestClient_SendRawTransaction(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Params []string `json:"params"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"0xdeadbeef"}, req.Params)
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0xfeed"}`))
	}))
	t.Cleanup(srv.Close)

	hash, err := NewClient(srv.URL, "eth", nil).SendRawTransaction(testCtx(t), []byte{0xde, 0xad, 0xbe, 0xef})
	require.NoError(t, err)
	assert.Equal(t, "0xfeed", hash)
}

func TestClient_RPCErrorKeepsRemoteMessage(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"execution reverted"}}`))
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL, "eth", nil).GasPrice(testCtx(t))
	require.ErrorIs(t, err, walleterr.ErrNetworkError)
	assert.False(t, chain.IsRetryable(err))

	var rpcErr *RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, -32000, rpcErr.Code)
	assert.Equal(t, "execution reverted", rpcErr.Message)
}

func TestClient_HTTPStatus(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		status    int
		retryable bool
	}{
		{http.StatusTooManyRequests, true},
		{http.StatusInternalServerError, true},
		{http.StatusForbidden, false},
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"error":"nope"}`))
		}))

		_, err := NewClient(srv.URL, "eth", nil).GasPrice(testCtx(t))
		srv.Close()

		require.ErrorIs(t, err, walleterr.ErrNetworkError, tc.status)
		assert.Equal(t, tc.retryable, chain.IsRetryable(err), tc.status)
	}
}

func TestClient_InvalidHex(t *testing.T) {
	t.Parallel()
	srv := rpcServer(t, "eth_gasPrice", "0xzz")

	_, err := NewClient(srv.URL, "eth", nil).GasPrice(testCtx(t))
	require.ErrorIs(t, err, ErrInvalidHexNumber)
}

func TestClient_RecordsMetrics(t *testing.T) {
	t.Parallel()
	srv := rpcServer(t, "eth_gasPrice", "0x1")

	before := metrics.Global.ChainCalls("metrics-test")
	_, err := NewClient(srv.URL, "metrics-test", nil).GasPrice(testCtx(t))
	require.NoError(t, err)
	assert.Equal(t, before+1, metrics.Global.ChainCalls("metrics-test"))
}

func TestCallMsgMarshalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		msg  CallMsg
		want string
	}{
		{"minimal", CallMsg{To: testTo}, `{"to":"` + testTo + `"}`},
		{"full", CallMsg{From: testFrom, To: testTo, Gas: 21000, Value: big.NewInt(255), Data: []byte{0x01}},
			`{"from":"` + testFrom + `","to":"` + testTo + `","gas":"0x5208","value":"0xff","data":"0x01"}`},
		{"zero value omitted", CallMsg{To: testTo, Value: big.NewInt(0)}, `{"to":"` + testTo + `"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := json.Marshal(tc.msg)
			require.NoError(t, err)
			assert.JSONEq(t, tc.want, string(got))
		})
	}
}

func TestParseHexBigInt(t *testing.T) {
	t.Parallel()

	n, err := parseHexBigInt("0x")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n.Int64())

	n, err = parseHexBigInt("ff")
	require.NoError(t, err)
	assert.Equal(t, int64(255), n.Int64())

	_, err = parseHexBigInt("0xg")
	require.ErrorIs(t, err, ErrInvalidHexNumber)
}
