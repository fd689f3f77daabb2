// Package chain provides the closed set of supported chains, their
// capability interfaces, and common amount and retry utilities.
package chain

import (
	"context"
	"math/big"
	"sort"
	"strings"
)

// ID represents a supported blockchain.
type ID string

// Supported blockchain identifiers.
const (
	BTC  ID = "btc"
	ETH  ID = "eth"
	BNB  ID = "bnb"
	AVAX ID = "avax"
	BASE ID = "base"
	POL  ID = "pol"
	SOL  ID = "sol"
	TRX  ID = "trx"
)

// Family groups chains that share derivation and signing rules.
type Family int

// Chain families.
const (
	FamilyUnknown Family = iota
	FamilyBitcoin
	FamilyEVM
	FamilySolana
	FamilyTron
)

// BIP44 coin types for derivation paths.
const (
	CoinTypeBTC uint32 = 0
	CoinTypeETH uint32 = 60
	CoinTypeTRX uint32 = 195
	CoinTypeSOL uint32 = 501
)

// All returns every supported chain in display order.
func All() []ID {
	return []ID{BTC, ETH, BNB, AVAX, BASE, POL, SOL, TRX}
}

// EVM returns the chains that share the single EVM key.
func EVM() []ID {
	return []ID{ETH, BNB, AVAX, BASE, POL}
}

// Family returns the family a chain belongs to.
func (id ID) Family() Family {
	switch id {
	case BTC:
		return FamilyBitcoin
	case ETH, BNB, AVAX, BASE, POL:
		return FamilyEVM
	case SOL:
		return FamilySolana
	case TRX:
		return FamilyTron
	default:
		return FamilyUnknown
	}
}

// DerivationPath returns the full derivation path for a chain.
// All EVM chains share the Ethereum path and therefore the same key.
func (id ID) DerivationPath() string {
	switch id.Family() {
	case FamilyBitcoin:
		return "m/84'/0'/0'/0/0"
	case FamilyEVM:
		return "m/44'/60'/0'/0/0"
	case FamilySolana:
		return "m/44'/501'/0'"
	case FamilyTron:
		return "m/44'/195'/0'/0/0"
	case FamilyUnknown:
		return ""
	default:
		return ""
	}
}

// CoinType returns the BIP44 coin type for a chain.
func (id ID) CoinType() uint32 {
	switch id.Family() {
	case FamilyEVM:
		return CoinTypeETH
	case FamilySolana:
		return CoinTypeSOL
	case FamilyTron:
		return CoinTypeTRX
	case FamilyBitcoin, FamilyUnknown:
		return CoinTypeBTC
	default:
		return CoinTypeBTC
	}
}

// Decimals returns the number of decimal places of the native unit.
func (id ID) Decimals() int {
	switch id.Family() {
	case FamilyBitcoin:
		return 8
	case FamilyEVM:
		return 18
	case FamilySolana:
		return 9
	case FamilyTron:
		return 6
	case FamilyUnknown:
		return 0
	default:
		return 0
	}
}

// Symbol returns the ticker used by the balance and price services.
func (id ID) Symbol() string {
	return strings.ToUpper(string(id))
}

// String returns the chain identifier string.
func (id ID) String() string {
	return string(id)
}

// IsValid returns true if the chain ID is a known chain.
func (id ID) IsValid() bool {
	return id.Family() != FamilyUnknown
}

// IsEVM reports whether the chain uses the shared EVM key.
func (id ID) IsEVM() bool {
	return id.Family() == FamilyEVM
}

// ParseChainID parses a string into a chain ID, ignoring case and whitespace.
func ParseChainID(s string) (ID, bool) {
	id := ID(strings.ToLower(strings.TrimSpace(s)))
	return id, id.IsValid()
}

// SortIDs orders chain IDs by their display position.
func SortIDs(ids []ID) {
	pos := make(map[ID]int, len(All()))
	for i, id := range All() {
		pos[id] = i
	}
	sort.SliceStable(ids, func(i, j int) bool {
		pi, iok := pos[ids[i]]
		pj, jok := pos[ids[j]]
		if iok != jok {
			return iok
		}
		if !iok {
			return ids[i] < ids[j]
		}
		return pi < pj
	})
}

// KeyMaterial is the key pair derived for one chain.
// It is never persisted and must be zeroed once signing is done.
type KeyMaterial struct {
	Chain      ID
	Path       string
	Address    string
	PublicKey  []byte
	PrivateKey []byte
}

// Zero overwrites the private key bytes.
func (k *KeyMaterial) Zero() {
	if k == nil {
		return
	}
	for i := range k.PrivateKey {
		k.PrivateKey[i] = 0
	}
	k.PrivateKey = nil
}

// Deriver derives a chain's key material from a BIP39 seed.
// Implementations must be pure: same seed, same result.
type Deriver interface {
	DeriveKey(seed []byte) (*KeyMaterial, error)
}

// BalanceReader provides balance querying capabilities.
type BalanceReader interface {
	// GetBalance retrieves the native balance for an address in the smallest unit.
	GetBalance(ctx context.Context, address string) (*big.Int, error)
}

// AddressValidator provides address validation.
type AddressValidator interface {
	// ValidateAddress checks if an address is valid for this chain.
	ValidateAddress(address string) error
}

// Signer builds, signs and broadcasts a native transfer.
type Signer interface {
	AddressValidator

	// SignTransfer signs req with key and submits it. It never retries once a
	// transaction has been signed.
	SignTransfer(ctx context.Context, key *KeyMaterial, req TransferRequest) (*TransferResult, error)
}

// MnemonicSigner is a signer that needs the mnemonic itself rather than
// derived key material, such as a remote relay. Callers prefer it over
// SignTransfer when a registered signer implements it.
type MnemonicSigner interface {
	Signer

	SignWithMnemonic(ctx context.Context, mnemonic []byte, req TransferRequest) (*TransferResult, error)
}

// TransferRequest contains the parameters for sending a native transfer.
type TransferRequest struct {
	// To is the recipient address.
	To string

	// Amount is the amount in the smallest unit.
	Amount *big.Int

	// SendMax asks the signer to send the full balance minus the fee.
	SendMax bool

	// Progress, when set, is told each stage the signer passes.
	Progress func(Stage)
}

// Report tells Progress that stage was reached.
func (r TransferRequest) Report(stage Stage) {
	if r.Progress != nil {
		r.Progress(stage)
	}
}

// Stage is a step inside SignTransfer.
type Stage int

// Signer stages, in order.
const (
	StageBuilt Stage = iota + 1
	StageSigned
	StageBroadcast
)

// TransferResult contains the result of a broadcast transfer.
type TransferResult struct {
	// Hash is the transaction hash or signature returned by the network.
	Hash string `json:"hash"`

	// From is the sender address.
	From string `json:"from"`

	// To is the recipient address.
	To string `json:"to"`

	// Amount is the amount sent in the smallest unit.
	Amount string `json:"amount"`

	// Fee is the fee paid in the smallest unit, when known.
	Fee string `json:"fee,omitempty"`

	// Balance is the sender balance observed before sending, when known.
	Balance string `json:"balance,omitempty"`
}
