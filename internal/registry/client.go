package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ensname/internal/domain"
)

// Mainnet deployments.
var (
	MainnetRegistry      = common.HexToAddress("0x00000000000C2E074eC69A0dFb2997BA6C7d2e1e")
	MainnetBaseRegistrar = common.HexToAddress("0x57f1887a8BF19b14fC0dF6Fd9B2acc9Af147eA85")
)

const reverseSuffix = "addr.reverse"

var (
	ErrNoResolver      = errors.New("registry: name has no resolver")
	ErrNoContract      = errors.New("registry: empty call result, no contract at address")
	ErrReverseMismatch = errors.New("registry: reverse record does not resolve back to address")
)

// ContractCaller executes read-only contract calls. *ethclient.Client
// implements it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// CallObserver is notified after every contract call.
type CallObserver interface {
	ObserveCall(method string, d time.Duration, err error)
}

type Options struct {
	Registry      common.Address
	BaseRegistrar common.Address
	// TextKeys are the resolver text records fetched by Lookup.
	TextKeys []string
	Limiter  *rate.Limiter
	Observer CallObserver
	Logger   *zap.Logger
}

// Client talks to the ENS registry, resolver and base registrar contracts
// through a JSON-RPC node.
type Client struct {
	*TxBuilder

	caller        ContractCaller
	enc           *domain.Encoder
	registry      common.Address
	baseRegistrar common.Address
	textKeys      []string
	limiter       *rate.Limiter
	observer      CallObserver
	log           *zap.Logger
}

// Dial connects to a JSON-RPC endpoint.
func Dial(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return c, nil
}

// NewLimiter returns a limiter for rps calls per second; rps <= 0 disables it.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

func NewClient(caller ContractCaller, enc *domain.Encoder, opts Options) *Client {
	if opts.Registry == (common.Address{}) {
		opts.Registry = MainnetRegistry
	}
	if opts.BaseRegistrar == (common.Address{}) {
		opts.BaseRegistrar = MainnetBaseRegistrar
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		TxBuilder:     NewTxBuilder(opts.Registry),
		caller:        caller,
		enc:           enc,
		registry:      opts.Registry,
		baseRegistrar: opts.BaseRegistrar,
		textKeys:      opts.TextKeys,
		limiter:       opts.Limiter,
		observer:      opts.Observer,
		log:           opts.Logger,
	}
}

func (c *Client) call(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...any) ([]any, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: rate limit: %w", method, err)
		}
	}

	start := time.Now()
	out, err := c.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if c.observer != nil {
		c.observer.ObserveCall(method, time.Since(start), err)
	}
	if err != nil {
		return nil, fmt.Errorf("call %s on %s: %w", method, to.Hex(), err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("call %s on %s: %w", method, to.Hex(), ErrNoContract)
	}

	vals, err := contract.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(vals) == 0 {
		return nil, fmt.Errorf("unpack %s: no outputs", method)
	}
	return vals, nil
}

func (c *Client) callAddress(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...any) (common.Address, error) {
	vals, err := c.call(ctx, to, contract, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	a, ok := vals[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("%s: unexpected output %T", method, vals[0])
	}
	return a, nil
}

func (c *Client) callString(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...any) (string, error) {
	vals, err := c.call(ctx, to, contract, method, args...)
	if err != nil {
		return "", err
	}
	s, ok := vals[0].(string)
	if !ok {
		return "", fmt.Errorf("%s: unexpected output %T", method, vals[0])
	}
	return s, nil
}

// Owner returns the registry owner of node; the zero address means unowned.
func (c *Client) Owner(ctx context.Context, node domain.NodeHash) (common.Address, error) {
	return c.callAddress(ctx, c.registry, registryABI, "owner", [32]byte(node))
}

// Resolver returns the resolver contract set for node.
func (c *Client) Resolver(ctx context.Context, node domain.NodeHash) (common.Address, error) {
	return c.callAddress(ctx, c.registry, registryABI, "resolver", [32]byte(node))
}

// TTL returns the caching hint stored for node, in seconds.
func (c *Client) TTL(ctx context.Context, node domain.NodeHash) (uint64, error) {
	vals, err := c.call(ctx, c.registry, registryABI, "ttl", [32]byte(node))
	if err != nil {
		return 0, err
	}
	ttl, ok := vals[0].(uint64)
	if !ok {
		return 0, fmt.Errorf("ttl: unexpected output %T", vals[0])
	}
	return ttl, nil
}

// Addr returns the ETH address record for node on resolver.
func (c *Client) Addr(ctx context.Context, resolver common.Address, node domain.NodeHash) (common.Address, error) {
	return c.callAddress(ctx, resolver, resolverABI, "addr", [32]byte(node))
}

// Text returns the text record key for node on resolver.
func (c *Client) Text(ctx context.Context, resolver common.Address, node domain.NodeHash, key string) (string, error) {
	return c.callString(ctx, resolver, resolverABI, "text", [32]byte(node), key)
}

// Name returns the name record for node on resolver (reverse records).
func (c *Client) Name(ctx context.Context, resolver common.Address, node domain.NodeHash) (string, error) {
	return c.callString(ctx, resolver, resolverABI, "name", [32]byte(node))
}

// Available asks the base registrar whether the second-level label with
// labelHash can be registered.
func (c *Client) Available(ctx context.Context, labelHash domain.NodeHash) (bool, error) {
	vals, err := c.call(ctx, c.baseRegistrar, baseRegistrarABI, "available", new(big.Int).SetBytes(labelHash[:]))
	if err != nil {
		return false, err
	}
	ok, isBool := vals[0].(bool)
	if !isBool {
		return false, fmt.Errorf("available: unexpected output %T", vals[0])
	}
	return ok, nil
}

// NameExpires returns the registration expiry; zero time if never registered.
func (c *Client) NameExpires(ctx context.Context, labelHash domain.NodeHash) (time.Time, error) {
	vals, err := c.call(ctx, c.baseRegistrar, baseRegistrarABI, "nameExpires", new(big.Int).SetBytes(labelHash[:]))
	if err != nil {
		return time.Time{}, err
	}
	ts, ok := vals[0].(*big.Int)
	if !ok {
		return time.Time{}, fmt.Errorf("nameExpires: unexpected output %T", vals[0])
	}
	if ts.Sign() == 0 {
		return time.Time{}, nil
	}
	return time.Unix(ts.Int64(), 0).UTC(), nil
}

// Lookup gathers the registry and resolver records of a normalized name.
// A name without a resolver is returned with only registry fields set.
func (c *Client) Lookup(ctx context.Context, name string) (Record, error) {
	node := c.enc.Namehash(name)
	rec := Record{Name: name, Node: node}

	var err error
	if rec.Owner, err = c.Owner(ctx, node); err != nil {
		return Record{}, err
	}
	if rec.Resolver, err = c.Resolver(ctx, node); err != nil {
		return Record{}, err
	}
	if rec.TTL, err = c.TTL(ctx, node); err != nil {
		return Record{}, err
	}
	if rec.Resolver == (common.Address{}) {
		return rec, nil
	}

	if rec.Address, err = c.Addr(ctx, rec.Resolver, node); err != nil {
		return Record{}, err
	}

	for _, key := range c.textKeys {
		v, err := c.Text(ctx, rec.Resolver, node, key)
		if err != nil {
			// Older resolvers do not implement text records.
			c.log.Debug("text record lookup failed",
				zap.String("name", name), zap.String("key", key), zap.Error(err))
			continue
		}
		if v == "" {
			continue
		}
		if rec.Texts == nil {
			rec.Texts = make(map[string]string)
		}
		rec.Texts[key] = v
	}
	return rec, nil
}

// ReverseNode returns the node of the reverse record for addr.
func (c *Client) ReverseNode(addr common.Address) domain.NodeHash {
	label := strings.ToLower(strings.TrimPrefix(addr.Hex(), "0x"))
	return c.enc.Namehash(domain.Join(label, reverseSuffix))
}

// ReverseName returns the primary name of addr. The name is only returned
// when it resolves forward to the same address.
func (c *Client) ReverseName(ctx context.Context, addr common.Address) (string, error) {
	node := c.ReverseNode(addr)

	resolver, err := c.Resolver(ctx, node)
	if err != nil {
		return "", err
	}
	if resolver == (common.Address{}) {
		return "", ErrNoResolver
	}

	name, err := c.Name(ctx, resolver, node)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", nil
	}

	normalized, err := domain.NormalizeName(name)
	if err != nil {
		return "", fmt.Errorf("reverse name %q: %w", name, err)
	}

	forward := c.enc.Namehash(normalized)
	fwdResolver, err := c.Resolver(ctx, forward)
	if err != nil {
		return "", err
	}
	if fwdResolver == (common.Address{}) {
		return "", ErrReverseMismatch
	}
	got, err := c.Addr(ctx, fwdResolver, forward)
	if err != nil {
		return "", err
	}
	if got != addr {
		return "", ErrReverseMismatch
	}
	return normalized, nil
}
