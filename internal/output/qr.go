package output

import (
	"fmt"
	"io"

	"github.com/mdp/qrterminal/v3"
	"rsc.io/qr"

	"github.com/mrz1836/nopewallet/internal/chain"
)

// mainnetChainID is the EVM chain id EIP-681 URIs may omit.
const mainnetChainID = 1

// PaymentURI returns the payload receive QR codes carry: BIP-21 for BTC,
// EIP-681 for EVM chains (with @chainID except on Ethereum mainnet), and
// the tron: and solana: schemes.
func PaymentURI(id chain.ID, address string, evmChainID int64) string {
	switch {
	case id == chain.BTC:
		return "bitcoin:" + address
	case id.IsEVM():
		if evmChainID > 0 && evmChainID != mainnetChainID {
			return fmt.Sprintf("ethereum:%s@%d", address, evmChainID)
		}
		return "ethereum:" + address
	case id == chain.TRX:
		return "tron:" + address
	case id == chain.SOL:
		return "solana:" + address
	}
	return address
}

// QRModules returns the side length in modules of the code for payload at
// the low error correction level receive codes use.
func QRModules(payload string) (int, error) {
	code, err := qr.Encode(payload, qr.L)
	if err != nil {
		return 0, fmt.Errorf("encoding QR payload: %w", err)
	}
	return code.Size, nil
}

// WriteReceiveQR draws payload with half-height blocks when w is a terminal.
// It reports whether anything was drawn.
func WriteReceiveQR(w io.Writer, payload string) (bool, error) {
	if !IsTerminal(w) {
		return false, nil
	}
	if _, err := QRModules(payload); err != nil {
		return false, err
	}

	qrterminal.GenerateWithConfig(payload, qrterminal.Config{
		Level:          qr.L,
		Writer:         w,
		QuietZone:      1,
		HalfBlocks:     true,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
	})
	return true, nil
}
