package domain

import (
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Separator splits a name into labels.
const Separator = "."

// Keccak256 is the digest used by the ENS contracts (pre-standard Keccak,
// not FIPS-202 SHA3-256).
func Keccak256() hash.Hash { return sha3.NewLegacyKeccak256() }

// Encoder computes ENS namehashes with an injected 256-bit digest.
// It holds no mutable state and is safe for concurrent use.
type Encoder struct {
	newHash func() hash.Hash
}

// NewEncoder returns an Encoder using newHash for every digest.
// The digest must produce NodeHashSize bytes.
func NewEncoder(newHash func() hash.Hash) (*Encoder, error) {
	if newHash == nil {
		return nil, fmt.Errorf("encoder: nil hash constructor")
	}
	if size := newHash().Size(); size != NodeHashSize {
		return nil, fmt.Errorf("encoder: digest size %d, want %d", size, NodeHashSize)
	}
	return &Encoder{newHash: newHash}, nil
}

// NewKeccakEncoder returns the production Encoder.
func NewKeccakEncoder() *Encoder {
	return &Encoder{newHash: Keccak256}
}

// Namehash maps name to its node. The empty name is the root node. Any
// string is accepted, including names with empty labels; policy checks
// belong to the Validator.
func (e *Encoder) Namehash(name string) NodeHash {
	if name == "" {
		return Root
	}

	var (
		h      = e.newHash()
		labels = strings.Split(name, Separator)
		buf    [2 * NodeHashSize]byte
	)

	// buf[:32] is the accumulator, buf[32:] the current label digest.
	for i := len(labels) - 1; i >= 0; i-- {
		h.Reset()
		h.Write([]byte(labels[i]))
		h.Sum(buf[NodeHashSize:NodeHashSize])

		h.Reset()
		h.Write(buf[:])
		h.Sum(buf[:0])
	}

	var node NodeHash
	copy(node[:], buf[:NodeHashSize])
	return node
}

// LabelHash returns the digest of a single label's UTF-8 bytes.
func (e *Encoder) LabelHash(label string) NodeHash {
	h := e.newHash()
	h.Write([]byte(label))

	var out NodeHash
	h.Sum(out[:0])
	return out
}

// Child returns the node of label under parent.
func (e *Encoder) Child(parent NodeHash, label string) NodeHash {
	lh := e.LabelHash(label)

	h := e.newHash()
	h.Write(parent[:])
	h.Write(lh[:])

	var out NodeHash
	h.Sum(out[:0])
	return out
}
