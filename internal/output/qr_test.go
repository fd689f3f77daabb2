package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/nopewallet/internal/chain"
)

func TestPaymentURI(t *testing.T) {
	t.Parallel()
	const evmAddr = "0x9858EfFD232B4033E47d90003D41EC34EcaEda94"

	tests := []struct {
		id      chain.ID
		address string
		chainID int64
		want    string
	}{
		{chain.BTC, "bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu", 0, "bitcoin:bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu"},
		{chain.ETH, evmAddr, 1, "ethereum:" + evmAddr},
		{chain.ETH, evmAddr, 0, "ethereum:" + evmAddr},
		{chain.BNB, evmAddr, 56, "ethereum:" + evmAddr + "@56"},
		{chain.POL, evmAddr, 137, "ethereum:" + evmAddr + "@137"},
		{chain.TRX, "TUEZSdKsoDHQMeZwihtdoBiN46zxhGWYdH", 0, "tron:TUEZSdKsoDHQMeZwihtdoBiN46zxhGWYdH"},
		{chain.SOL, "HAgk14JpMQLgt6rVgv7cBQFJWFto5Dqxi472uT3DKpqk", 0, "solana:HAgk14JpMQLgt6rVgv7cBQFJWFto5Dqxi472uT3DKpqk"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PaymentURI(tt.id, tt.address, tt.chainID), string(tt.id))
	}
}

func TestQRModules(t *testing.T) {
	t.Parallel()
	small, err := QRModules("tron:TUEZSdKsoDHQMeZwihtdoBiN46zxhGWYdH")
	require.NoError(t, err)
	assert.Zero(t, (small-17)%4, "QR sides are 17+4n modules")

	large, err := QRModules("ethereum:0x9858EfFD232B4033E47d90003D41EC34EcaEda94@43114")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, large, small)
}

func TestWriteReceiveQR_NotTerminal(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	drawn, err := WriteReceiveQR(&buf, "bitcoin:bc1qcr8te4kr609gcawutmrza0j4xv80jy8z306fyu")
	require.NoError(t, err)
	assert.False(t, drawn)
	assert.Empty(t, buf.String())

	assert.False(t, IsTerminal(nil))
}
