package wallet

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrNonHardenedEd25519 indicates an ed25519 path contained a non-hardened index.
var ErrNonHardenedEd25519 = errors.New("ed25519 derivation supports hardened indices only")

const slip10Ed25519Curve = "ed25519 seed"

// slip10Node is one ed25519 node: a 32-byte private seed and its chain code.
type slip10Node struct {
	key       []byte
	chainCode []byte
}

func (n *slip10Node) zero() {
	zeroBytes(n.key)
	zeroBytes(n.chainCode)
}

// slip10Master computes the SLIP-10 ed25519 master node for seed.
func slip10Master(seed []byte) *slip10Node {
	mac := hmac.New(sha512.New, []byte(slip10Ed25519Curve))
	_, _ = mac.Write(seed)
	sum := mac.Sum(nil)
	return &slip10Node{key: sum[:32], chainCode: sum[32:]}
}

// child derives the hardened child at index (which must include the hardened bit).
func (n *slip10Node) child(index uint32) (*slip10Node, error) {
	if index < hardenedKeyStart {
		return nil, fmt.Errorf("%w: index %d", ErrNonHardenedEd25519, index)
	}

	data := make([]byte, 0, 37)
	data = append(data, 0x00)
	data = append(data, n.key...)
	data = binary.BigEndian.AppendUint32(data, index)
	defer zeroBytes(data)

	mac := hmac.New(sha512.New, n.chainCode)
	_, _ = mac.Write(data)
	sum := mac.Sum(nil)
	return &slip10Node{key: sum[:32], chainCode: sum[32:]}, nil
}

// deriveEd25519 walks path from seed and returns the 32-byte ed25519 private seed.
// The caller must zero the result.
func deriveEd25519(seed []byte, path []uint32) ([]byte, error) {
	node := slip10Master(seed)
	for _, index := range path {
		next, err := node.child(index)
		node.zero()
		if err != nil {
			return nil, err
		}
		node = next
	}

	key := make([]byte, 32)
	copy(key, node.key)
	node.zero()
	return key, nil
}
