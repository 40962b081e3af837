package registry

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"ensname/internal/domain"
)

// Record is what the registry and the name's resolver know about a name.
type Record struct {
	Name     string            `json:"name"`
	Node     domain.NodeHash   `json:"node"`
	Owner    common.Address    `json:"owner"`
	Resolver common.Address    `json:"resolver"`
	TTL      uint64            `json:"ttl"`
	Address  common.Address    `json:"address"`
	Texts    map[string]string `json:"texts,omitempty"`
}

// Registered reports whether the name has an owner in the registry.
func (r Record) Registered() bool {
	return r.Owner != (common.Address{})
}

// Snapshot is an immutable view of the watched names.
type Snapshot struct {
	Records     map[string]Record
	Failed      map[string]string // name → last error
	LastUpdated time.Time
}

// TxRequest is an unsigned contract call. Signing and broadcasting are left
// to the wallet.
type TxRequest struct {
	To   common.Address `json:"to"`
	Data hexutil.Bytes  `json:"data"`
}
