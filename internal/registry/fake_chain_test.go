package registry

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"ensname/internal/domain"
)

var (
	testResolver = common.HexToAddress("0x4976fb03C32e5B8cfe2b6cCB31c09Ba78EBaBa41")
	testOwner    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testAccount  = common.HexToAddress("0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045")
)

// fakeChain answers eth_call requests by decoding the selector against the
// same ABIs the client packs with.
type fakeChain struct {
	mu sync.Mutex

	owners    map[domain.NodeHash]common.Address
	resolvers map[domain.NodeHash]common.Address
	ttls      map[domain.NodeHash]uint64
	addrs     map[domain.NodeHash]common.Address
	texts     map[domain.NodeHash]map[string]string
	names     map[domain.NodeHash]string
	available map[domain.NodeHash]bool
	expires   map[domain.NodeHash]int64

	failMethods map[string]error
	calls       map[string]int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		owners:      make(map[domain.NodeHash]common.Address),
		resolvers:   make(map[domain.NodeHash]common.Address),
		ttls:        make(map[domain.NodeHash]uint64),
		addrs:       make(map[domain.NodeHash]common.Address),
		texts:       make(map[domain.NodeHash]map[string]string),
		names:       make(map[domain.NodeHash]string),
		available:   make(map[domain.NodeHash]bool),
		expires:     make(map[domain.NodeHash]int64),
		failMethods: make(map[string]error),
		calls:       make(map[string]int),
	}
}

func (f *fakeChain) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var contract abi.ABI
	switch *msg.To {
	case MainnetRegistry:
		contract = registryABI
	case MainnetBaseRegistrar:
		contract = baseRegistrarABI
	case testResolver:
		contract = resolverABI
	default:
		return nil, nil // no code at address
	}

	method, err := contract.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	f.calls[method.Name]++
	if err := f.failMethods[method.Name]; err != nil {
		return nil, err
	}

	args, err := method.Inputs.Unpack(msg.Data[4:])
	if err != nil {
		return nil, err
	}

	var key domain.NodeHash
	switch v := args[0].(type) {
	case [32]byte:
		key = domain.NodeHash(v)
	case *big.Int:
		v.FillBytes(key[:])
	default:
		return nil, fmt.Errorf("unexpected first argument %T", args[0])
	}

	switch method.Name {
	case "owner":
		return method.Outputs.Pack(f.owners[key])
	case "resolver":
		return method.Outputs.Pack(f.resolvers[key])
	case "ttl":
		return method.Outputs.Pack(f.ttls[key])
	case "addr":
		return method.Outputs.Pack(f.addrs[key])
	case "text":
		return method.Outputs.Pack(f.texts[key][args[1].(string)])
	case "name":
		return method.Outputs.Pack(f.names[key])
	case "available":
		return method.Outputs.Pack(f.available[key])
	case "nameExpires":
		return method.Outputs.Pack(big.NewInt(f.expires[key]))
	}
	return nil, fmt.Errorf("unhandled method %s", method.Name)
}

func (f *fakeChain) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// register sets up a name with owner, resolver and address records.
func (f *fakeChain) register(enc *domain.Encoder, name string, addr common.Address, texts map[string]string) domain.NodeHash {
	node := enc.Namehash(name)
	f.owners[node] = testOwner
	f.resolvers[node] = testResolver
	f.ttls[node] = 300
	f.addrs[node] = addr
	if texts != nil {
		f.texts[node] = texts
	}
	return node
}
