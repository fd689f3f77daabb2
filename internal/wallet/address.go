package wallet

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
)

// TronAddressPrefix is the version byte of mainnet Tron addresses.
const TronAddressPrefix byte = 0x41

// encodeBTC encodes a native segwit v0 P2WPKH address.
func encodeBTC(compressedPub []byte) (string, []byte, error) {
	addr, err := btcutil.NewAddressWitnessPubKeyHash(btcutil.Hash160(compressedPub), &chaincfg.MainNetParams)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encode segwit address: %w", err)
	}
	return addr.EncodeAddress(), compressedPub, nil
}

// encodeEVM encodes an EIP-55 checksummed address and returns the uncompressed key.
func encodeEVM(compressedPub []byte) (string, []byte, error) {
	uncompressed, err := decompress(compressedPub)
	if err != nil {
		return "", nil, err
	}
	return EVMAddress(uncompressed).Hex(), uncompressed, nil
}

// encodeTron encodes base58check(0x41 || keccak256(pub)[12:]).
func encodeTron(compressedPub []byte) (string, []byte, error) {
	uncompressed, err := decompress(compressedPub)
	if err != nil {
		return "", nil, err
	}
	return TronAddressFromEVM(EVMAddress(uncompressed)), uncompressed, nil
}

// EVMAddress computes the 20-byte account address of an uncompressed secp256k1 key.
func EVMAddress(uncompressedPub []byte) common.Address {
	return common.BytesToAddress(crypto.Keccak256(uncompressedPub[1:])[12:])
}

// TronAddressFromEVM re-encodes a 20-byte account hash in Tron's base58check form.
func TronAddressFromEVM(addr common.Address) string {
	return base58.CheckEncode(addr.Bytes(), TronAddressPrefix)
}

// SolanaAddress encodes an ed25519 public key as a Solana base58 address.
func SolanaAddress(pub []byte) string {
	return solana.PublicKeyFromBytes(pub).String()
}

func decompress(compressedPub []byte) ([]byte, error) {
	pub, err := secp256k1.ParsePubKey(compressedPub)
	if err != nil {
		return nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	return pub.SerializeUncompressed(), nil
}
