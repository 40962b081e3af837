package registry

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"ensname/internal/domain"
)

// TxBuilder encodes record updates as unsigned calls. It needs no node
// connection.
type TxBuilder struct {
	registry common.Address
}

// NewTxBuilder targets the given registry; the zero address means mainnet.
func NewTxBuilder(registry common.Address) *TxBuilder {
	if registry == (common.Address{}) {
		registry = MainnetRegistry
	}
	return &TxBuilder{registry: registry}
}

// SetResolverTx builds the registry call that points node at resolver.
func (b *TxBuilder) SetResolverTx(node domain.NodeHash, resolver common.Address) (TxRequest, error) {
	data, err := registryABI.Pack("setResolver", [32]byte(node), resolver)
	if err != nil {
		return TxRequest{}, fmt.Errorf("pack setResolver: %w", err)
	}
	return TxRequest{To: b.registry, Data: data}, nil
}

// SetAddrTx builds the resolver call that sets the ETH address of node.
func (b *TxBuilder) SetAddrTx(resolver common.Address, node domain.NodeHash, addr common.Address) (TxRequest, error) {
	data, err := resolverABI.Pack("setAddr", [32]byte(node), addr)
	if err != nil {
		return TxRequest{}, fmt.Errorf("pack setAddr: %w", err)
	}
	return TxRequest{To: resolver, Data: data}, nil
}

// SetTextTx builds the resolver call that sets a text record of node.
func (b *TxBuilder) SetTextTx(resolver common.Address, node domain.NodeHash, key, value string) (TxRequest, error) {
	data, err := resolverABI.Pack("setText", [32]byte(node), key, value)
	if err != nil {
		return TxRequest{}, fmt.Errorf("pack setText: %w", err)
	}
	return TxRequest{To: resolver, Data: data}, nil
}
