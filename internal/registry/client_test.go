package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ensname/internal/domain"
)

type recordingObserver struct {
	methods []string
	errs    int
}

func (o *recordingObserver) ObserveCall(method string, _ time.Duration, err error) {
	o.methods = append(o.methods, method)
	if err != nil {
		o.errs++
	}
}

func newTestClient(chain *fakeChain, opts Options) (*Client, *domain.Encoder) {
	enc := domain.NewKeccakEncoder()
	return NewClient(chain, enc, opts), enc
}

func TestClient_Lookup(t *testing.T) {
	chain := newFakeChain()
	obs := &recordingObserver{}
	c, enc := newTestClient(chain, Options{
		TextKeys: []string{"url", "avatar"},
		Observer: obs,
	})
	node := chain.register(enc, "kenya-dev-series.eth", testAccount, map[string]string{"url": "https://example.org"})

	rec, err := c.Lookup(context.Background(), "kenya-dev-series.eth")
	require.NoError(t, err)

	assert.Equal(t, node, rec.Node)
	assert.Equal(t, testOwner, rec.Owner)
	assert.Equal(t, testResolver, rec.Resolver)
	assert.Equal(t, uint64(300), rec.TTL)
	assert.Equal(t, testAccount, rec.Address)
	assert.Equal(t, map[string]string{"url": "https://example.org"}, rec.Texts)
	assert.True(t, rec.Registered())
	assert.Equal(t, []string{"owner", "resolver", "ttl", "addr", "text", "text"}, obs.methods)
}

func TestClient_Lookup_Unregistered(t *testing.T) {
	chain := newFakeChain()
	c, _ := newTestClient(chain, Options{TextKeys: []string{"url"}})

	rec, err := c.Lookup(context.Background(), "nobody-here.eth")
	require.NoError(t, err)

	assert.False(t, rec.Registered())
	assert.Equal(t, common.Address{}, rec.Resolver)
	assert.Zero(t, chain.callCount("addr"), "no resolver calls without a resolver")
}

func TestClient_Lookup_TextFailuresAreSkipped(t *testing.T) {
	chain := newFakeChain()
	c, enc := newTestClient(chain, Options{TextKeys: []string{"url"}})
	chain.register(enc, "old.eth", testAccount, nil)
	chain.failMethods["text"] = errors.New("execution reverted")

	rec, err := c.Lookup(context.Background(), "old.eth")
	require.NoError(t, err)
	assert.Nil(t, rec.Texts)
	assert.Equal(t, testAccount, rec.Address)
}

func TestClient_Lookup_RPCError(t *testing.T) {
	chain := newFakeChain()
	chain.failMethods["owner"] = errors.New("connection refused")
	c, _ := newTestClient(chain, Options{})

	_, err := c.Lookup(context.Background(), "foo.eth")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestClient_NoContract(t *testing.T) {
	chain := newFakeChain()
	c, _ := newTestClient(chain, Options{Registry: common.HexToAddress("0x2222222222222222222222222222222222222222")})

	_, err := c.Owner(context.Background(), domain.Root)
	assert.ErrorIs(t, err, ErrNoContract)
}

func TestClient_AvailableAndExpiry(t *testing.T) {
	chain := newFakeChain()
	c, enc := newTestClient(chain, Options{})

	free := enc.LabelHash("kenya-dev-series")
	taken := enc.LabelHash("vitalik")
	chain.available[free] = true
	chain.expires[taken] = 2000000000

	ok, err := c.Available(context.Background(), free)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Available(context.Background(), taken)
	require.NoError(t, err)
	assert.False(t, ok)

	exp, err := c.NameExpires(context.Background(), taken)
	require.NoError(t, err)
	assert.Equal(t, time.Unix(2000000000, 0).UTC(), exp)

	exp, err = c.NameExpires(context.Background(), free)
	require.NoError(t, err)
	assert.True(t, exp.IsZero())
}

func TestClient_ReverseName(t *testing.T) {
	chain := newFakeChain()
	c, enc := newTestClient(chain, Options{})

	rnode := c.ReverseNode(testAccount)
	chain.resolvers[rnode] = testResolver
	chain.names[rnode] = "Kenya-Dev-Series.eth"
	chain.register(enc, "kenya-dev-series.eth", testAccount, nil)

	name, err := c.ReverseName(context.Background(), testAccount)
	require.NoError(t, err)
	assert.Equal(t, "kenya-dev-series.eth", name)
}

func TestClient_ReverseName_Mismatch(t *testing.T) {
	chain := newFakeChain()
	c, enc := newTestClient(chain, Options{})

	rnode := c.ReverseNode(testAccount)
	chain.resolvers[rnode] = testResolver
	chain.names[rnode] = "someone-else.eth"
	chain.register(enc, "someone-else.eth", testOwner, nil)

	_, err := c.ReverseName(context.Background(), testAccount)
	assert.ErrorIs(t, err, ErrReverseMismatch)
}

func TestClient_ReverseName_NoResolver(t *testing.T) {
	c, _ := newTestClient(newFakeChain(), Options{})

	_, err := c.ReverseName(context.Background(), testAccount)
	assert.ErrorIs(t, err, ErrNoResolver)
}

func TestClient_ReverseNode(t *testing.T) {
	c, enc := newTestClient(newFakeChain(), Options{})

	want := enc.Namehash("d8da6bf26964af9d7eed9e03e53415d37aa96045.addr.reverse")
	assert.Equal(t, want, c.ReverseNode(testAccount))
}

func TestClient_TxBuilders(t *testing.T) {
	c, enc := newTestClient(newFakeChain(), Options{})
	node := enc.Namehash("foo.eth")

	tx, err := c.SetResolverTx(node, testResolver)
	require.NoError(t, err)
	assert.Equal(t, MainnetRegistry, tx.To)
	method, err := registryABI.MethodById(tx.Data[:4])
	require.NoError(t, err)
	assert.Equal(t, "setResolver", method.Name)

	tx, err = c.SetTextTx(testResolver, node, "url", "https://example.org")
	require.NoError(t, err)
	assert.Equal(t, testResolver, tx.To)
	args, err := resolverABI.Methods["setText"].Inputs.Unpack(tx.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, [32]byte(node), args[0])
	assert.Equal(t, "url", args[1])
	assert.Equal(t, "https://example.org", args[2])

	tx, err = c.SetAddrTx(testResolver, node, testAccount)
	require.NoError(t, err)
	args, err = resolverABI.Methods["setAddr"].Inputs.Unpack(tx.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, testAccount, args[1])
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	chain := newFakeChain()
	c, _ := newTestClient(chain, Options{Limiter: NewLimiter(0.001, 1)})

	// First call consumes the only token.
	_, err := c.Owner(context.Background(), domain.Root)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Owner(ctx, domain.Root)
	require.Error(t, err)
	assert.Equal(t, 1, chain.callCount("owner"))
}
