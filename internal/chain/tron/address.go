package tron

import (
	"github.com/btcsuite/btcd/btcutil/base58"

	"github.com/mrz1836/nopewallet/internal/wallet"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

const addressPayloadSize = 20

// ValidateAddress checks a base58check mainnet address: version 0x41 and a
// 20-byte account hash.
func ValidateAddress(address string) error {
	payload, version, err := base58.CheckDecode(address)
	if err != nil || version != wallet.TronAddressPrefix || len(payload) != addressPayloadSize {
		details := map[string]string{"address": address}
		if err != nil {
			details["reason"] = err.Error()
		}
		return walleterr.WithDetails(walleterr.ErrInvalidAddress, details)
	}
	return nil
}
