package domain

import (
	"encoding/hex"
	"fmt"
)

// NodeHashSize is the size of a NodeHash in bytes.
const NodeHashSize = 32

// NodeHash identifies a name inside the ENS registry namespace.
// The zero value is the root node.
type NodeHash [NodeHashSize]byte

// Root is the node of the empty name.
var Root NodeHash

// Hex returns the canonical form: "0x" followed by 64 lowercase hex digits.
func (h NodeHash) Hex() string {
	buf := make([]byte, 2+2*NodeHashSize)
	buf[0], buf[1] = '0', 'x'
	hex.Encode(buf[2:], h[:])
	return string(buf)
}

func (h NodeHash) String() string { return h.Hex() }

// IsRoot reports whether h is the all-zero root node.
func (h NodeHash) IsRoot() bool { return h == Root }

// Bytes returns a copy of the hash as a slice.
func (h NodeHash) Bytes() []byte {
	b := make([]byte, NodeHashSize)
	copy(b, h[:])
	return b
}

func (h NodeHash) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

func (h *NodeHash) UnmarshalText(text []byte) error {
	v, err := ParseNodeHash(string(text))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// ParseNodeHash parses a 64 digit hex string, with or without the 0x prefix.
func ParseNodeHash(s string) (NodeHash, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s) != 2*NodeHashSize {
		return NodeHash{}, fmt.Errorf("node hash: want %d hex digits, got %d", 2*NodeHashSize, len(s))
	}

	var h NodeHash
	if _, err := hex.Decode(h[:], []byte(s)); err != nil {
		return NodeHash{}, fmt.Errorf("node hash: %w", err)
	}
	return h, nil
}

// ValidationResult is the outcome of validating a single label.
// Errors is empty if and only if Valid is true.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}
