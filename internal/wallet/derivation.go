package wallet

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/decred/dcrd/hdkeychain/v3"

	"github.com/mrz1836/nopewallet/internal/chain"
	walleterr "github.com/mrz1836/nopewallet/pkg/errors"
)

const hardenedKeyStart = hdkeychain.HardenedKeyStart

// ErrInvalidPath indicates a derivation path could not be parsed.
var ErrInvalidPath = errors.New("invalid derivation path")

// hdNetParams satisfies hdkeychain.NetworkParams for BIP32 key derivation.
// Uses standard Bitcoin mainnet HD version bytes; they never reach an address.
type hdNetParams struct{}

func (hdNetParams) HDPrivKeyVersion() [4]byte { return [4]byte{0x04, 0x88, 0xAD, 0xE4} }
func (hdNetParams) HDPubKeyVersion() [4]byte  { return [4]byte{0x04, 0x88, 0xB2, 0x1E} }

// Address is a derived address with the path that produced it.
type Address struct {
	Chain   chain.ID `json:"chain"`
	Path    string   `json:"path"`
	Address string   `json:"address"`
}

// secp256k1Deriver derives a BIP32 key and encodes it with the chain's address format.
type secp256k1Deriver struct {
	id     chain.ID
	encode func(compressedPub []byte) (address string, pub []byte, err error)
}

func (d secp256k1Deriver) DeriveKey(seed []byte) (*chain.KeyMaterial, error) {
	path := d.id.DerivationPath()
	priv, compressed, err := deriveSecp256k1(seed, path)
	if err != nil {
		return nil, err
	}

	address, pub, err := d.encode(compressed)
	if err != nil {
		zeroBytes(priv)
		return nil, err
	}

	return &chain.KeyMaterial{
		Chain:      d.id,
		Path:       path,
		Address:    address,
		PublicKey:  pub,
		PrivateKey: priv,
	}, nil
}

// ed25519Deriver derives a Solana key with SLIP-10.
type ed25519Deriver struct {
	id chain.ID
}

func (d ed25519Deriver) DeriveKey(seed []byte) (*chain.KeyMaterial, error) {
	path := d.id.DerivationPath()
	indices, err := ParsePath(path)
	if err != nil {
		return nil, err
	}

	edSeed, err := deriveEd25519(seed, indices)
	if err != nil {
		return nil, err
	}
	defer zeroBytes(edSeed)

	priv := ed25519.NewKeyFromSeed(edSeed)
	pub := make([]byte, ed25519.PublicKeySize)
	copy(pub, priv[32:])

	return &chain.KeyMaterial{
		Chain:      d.id,
		Path:       path,
		Address:    SolanaAddress(pub),
		PublicKey:  pub,
		PrivateKey: priv,
	}, nil
}

// derivers is the closed table of chain variants. Every EVM chain uses the
// same Ethereum path, so ETH, BNB, AVAX, BASE and POL share one key and one
// address: compromising that key exposes all five chains at once.
//
//nolint:gochecknoglobals // Immutable dispatch table
var derivers = map[chain.ID]chain.Deriver{
	chain.BTC:  secp256k1Deriver{id: chain.BTC, encode: encodeBTC},
	chain.ETH:  secp256k1Deriver{id: chain.ETH, encode: encodeEVM},
	chain.BNB:  secp256k1Deriver{id: chain.BNB, encode: encodeEVM},
	chain.AVAX: secp256k1Deriver{id: chain.AVAX, encode: encodeEVM},
	chain.BASE: secp256k1Deriver{id: chain.BASE, encode: encodeEVM},
	chain.POL:  secp256k1Deriver{id: chain.POL, encode: encodeEVM},
	chain.SOL:  ed25519Deriver{id: chain.SOL},
	chain.TRX:  secp256k1Deriver{id: chain.TRX, encode: encodeTron},
}

// DeriverFor returns the deriver for a chain variant.
func DeriverFor(id chain.ID) (chain.Deriver, error) {
	d, ok := derivers[id]
	if !ok {
		return nil, walleterr.WithDetails(walleterr.ErrUnsupportedChain, map[string]string{"chain": id.String()})
	}
	return d, nil
}

// Derive derives the key material for one chain from a BIP39 seed.
// It is a pure function of (seed, chain). The caller must call Zero on the result.
func Derive(seed []byte, id chain.ID) (*chain.KeyMaterial, error) {
	d, err := DeriverFor(id)
	if err != nil {
		return nil, err
	}
	return d.DeriveKey(seed)
}

// DeriveAddress derives only the public address for a chain.
func DeriveAddress(seed []byte, id chain.ID) (*Address, error) {
	km, err := Derive(seed, id)
	if err != nil {
		return nil, err
	}
	defer km.Zero()

	return &Address{Chain: id, Path: km.Path, Address: km.Address}, nil
}

// DeriveAll derives addresses for each requested chain, or every chain if none are given.
func DeriveAll(seed []byte, ids ...chain.ID) (map[chain.ID]*Address, error) {
	if len(ids) == 0 {
		ids = chain.All()
	}

	out := make(map[chain.ID]*Address, len(ids))
	for _, id := range ids {
		addr, err := DeriveAddress(seed, id)
		if err != nil {
			return nil, fmt.Errorf("deriving %s: %w", id, err)
		}
		out[id] = addr
	}
	return out, nil
}

// DeriveFromMnemonic validates the phrase, computes its seed and derives one chain.
// The seed is zeroed before returning.
func DeriveFromMnemonic(mnemonic string, id chain.ID) (*chain.KeyMaterial, error) {
	if _, err := DeriverFor(id); err != nil {
		return nil, err
	}

	seed, err := MnemonicToSeed(mnemonic, "")
	if err != nil {
		return nil, err
	}
	defer zeroBytes(seed)

	return Derive(seed, id)
}

// deriveSecp256k1 walks a BIP32 path and returns the 32-byte private key and
// the 33-byte compressed public key.
func deriveSecp256k1(seed []byte, path string) (priv, compressedPub []byte, err error) {
	indices, err := ParsePath(path)
	if err != nil {
		return nil, nil, err
	}

	key, err := hdkeychain.NewMaster(seed, hdNetParams{})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create master key: %w", err)
	}

	for depth, index := range indices {
		key, err = key.ChildBIP32Std(index)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to derive level %d of %s: %w", depth+1, path, err)
		}
	}

	compressedPub = append([]byte(nil), key.SerializedPubKey()...)

	serialized, err := key.SerializedPrivKey()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to serialize private key: %w", err)
	}
	priv = make([]byte, 32)
	copy(priv[32-len(serialized):], serialized)
	zeroBytes(serialized)

	return priv, compressedPub, nil
}

// ParsePath turns "m/44'/60'/0'/0/0" into BIP32 indices with the hardened bit set where marked.
func ParsePath(path string) ([]uint32, error) {
	parts := strings.Split(strings.TrimSpace(path), "/")
	if len(parts) == 0 || parts[0] != "m" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	indices := make([]uint32, 0, len(parts)-1)
	for _, part := range parts[1:] {
		hardened := strings.HasSuffix(part, "'") || strings.HasSuffix(part, "h")
		part = strings.TrimRight(part, "'h")

		n, err := strconv.ParseUint(part, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}

		index := uint32(n)
		if hardened {
			index += hardenedKeyStart
		}
		indices = append(indices, index)
	}
	return indices, nil
}
