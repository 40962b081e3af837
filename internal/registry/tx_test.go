package registry

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ensname/internal/domain"
)

func TestTxBuilder_Registry(t *testing.T) {
	node := domain.NewKeccakEncoder().Namehash("foo.eth")

	tx, err := NewTxBuilder(common.Address{}).SetResolverTx(node, testResolver)
	require.NoError(t, err)
	assert.Equal(t, MainnetRegistry, tx.To)

	custom := common.HexToAddress("0x2222222222222222222222222222222222222222")
	tx, err = NewTxBuilder(custom).SetResolverTx(node, testResolver)
	require.NoError(t, err)
	assert.Equal(t, custom, tx.To)

	args, err := registryABI.Methods["setResolver"].Inputs.Unpack(tx.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, [32]byte(node), args[0])
	assert.Equal(t, testResolver, args[1])
}

func TestClient_UsesConfiguredRegistryForTx(t *testing.T) {
	custom := common.HexToAddress("0x2222222222222222222222222222222222222222")
	c, enc := newTestClient(newFakeChain(), Options{Registry: custom})

	tx, err := c.SetResolverTx(enc.Namehash("foo.eth"), testResolver)
	require.NoError(t, err)
	assert.Equal(t, custom, tx.To)
}
