package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

// ValidateAddress checks a 0x-prefixed 20-byte hex address.
// All lowercase and all uppercase addresses are accepted as non-checksummed;
// mixed-case addresses must carry a correct EIP-55 checksum.
func ValidateAddress(address string) error {
	if len(address) != 42 || !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
		return walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{
			"address": address,
		})
	}

	addrPart := address[2:]
	if addrPart == strings.ToLower(addrPart) || addrPart == strings.ToUpper(addrPart) {
		return nil
	}

	expected := common.HexToAddress(address).Hex()
	if address != expected {
		return walleterr.WithDetails(walleterr.ErrInvalidAddress, map[string]string{
			"address":  address,
			"expected": expected,
			"reason":   "checksum mismatch",
		})
	}
	return nil
}

// NormalizeAddress validates and converts an address to EIP-55 checksum format.
func NormalizeAddress(address string) (string, error) {
	if err := ValidateAddress(address); err != nil {
		return "", err
	}
	return common.HexToAddress(address).Hex(), nil
}
