// Package names ties label validation, namehashing, caching and registry
// lookups together for the transports.
package names

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ensname/internal/cache"
	"ensname/internal/domain"
	"ensname/internal/registry"
)

var (
	ErrInvalidName         = errors.New("invalid name")
	ErrInvalidAddress      = errors.New("invalid address")
	ErrRegistryUnavailable = errors.New("registry lookups are not configured")
	ErrInvalidTx           = errors.New("invalid transaction request")
)

// Registry is the subset of the ENS client the service needs.
type Registry interface {
	Lookup(ctx context.Context, name string) (registry.Record, error)
	Available(ctx context.Context, labelHash domain.NodeHash) (bool, error)
	NameExpires(ctx context.Context, labelHash domain.NodeHash) (time.Time, error)
	ReverseName(ctx context.Context, addr common.Address) (string, error)
	Resolver(ctx context.Context, node domain.NodeHash) (common.Address, error)
}

// TxBuilder encodes record updates; *registry.TxBuilder implements it.
type TxBuilder interface {
	SetResolverTx(node domain.NodeHash, resolver common.Address) (registry.TxRequest, error)
	SetAddrTx(resolver common.Address, node domain.NodeHash, addr common.Address) (registry.TxRequest, error)
	SetTextTx(resolver common.Address, node domain.NodeHash, key, value string) (registry.TxRequest, error)
}

// Observer receives service level events; *metrics.Metrics implements it.
type Observer interface {
	ObserveNamehash()
	ObserveValidation(valid bool)
	ObserveCache(kind string, hit bool)
}

type nopObserver struct{}

func (nopObserver) ObserveNamehash()          {}
func (nopObserver) ObserveValidation(bool)    {}
func (nopObserver) ObserveCache(string, bool) {}

// RegistrarTLD is the only TLD the base registrar answers for.
const RegistrarTLD = "eth"

// Deps are the collaborators of a Service. Only Encoder and Validator are
// required.
type Deps struct {
	Encoder   *domain.Encoder
	Validator *domain.Validator
	Cache     cache.Store
	Registry  Registry
	Watched   *registry.Holder
	Observer  Observer
	Logger    *zap.Logger

	// Tx defaults to a builder for the mainnet registry.
	Tx TxBuilder

	// TLD is appended to labels in Preflight.
	TLD string
	// LookupTTL bounds how long namehashes and registry records are served
	// from cache.
	LookupTTL time.Duration
}

type Service struct {
	enc     *domain.Encoder
	val     *domain.Validator
	store   cache.Store
	reg     Registry
	watched *registry.Holder
	tx      TxBuilder
	obs     Observer
	log     *zap.Logger
	tld     string
	ttl     time.Duration
}

func NewService(d Deps) (*Service, error) {
	if d.Encoder == nil || d.Validator == nil {
		return nil, errors.New("names: encoder and validator are required")
	}
	if d.Observer == nil {
		d.Observer = nopObserver{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Tx == nil {
		d.Tx = registry.NewTxBuilder(common.Address{})
	}
	if d.TLD == "" {
		d.TLD = RegistrarTLD
	}
	return &Service{
		enc:     d.Encoder,
		val:     d.Validator,
		store:   d.Cache,
		reg:     d.Registry,
		watched: d.Watched,
		tx:      d.Tx,
		obs:     d.Observer,
		log:     d.Logger,
		tld:     d.TLD,
		ttl:     d.LookupTTL,
	}, nil
}

// HashResult is the namehash of a normalized name.
type HashResult struct {
	Input  string          `json:"input"`
	Name   string          `json:"name"`
	Labels []string        `json:"labels"`
	Node   domain.NodeHash `json:"node"`
}

// Namehash normalizes raw and returns its node.
func (s *Service) Namehash(ctx context.Context, raw string) (HashResult, error) {
	name, err := domain.NormalizeName(raw)
	if err != nil {
		return HashResult{}, fmt.Errorf("%w: %w", ErrInvalidName, err)
	}

	res := HashResult{Input: raw, Name: name, Labels: domain.Labels(name)}
	if res.Labels == nil {
		res.Labels = []string{}
	}
	res.Node = s.node(ctx, name)
	return res, nil
}

// node returns the namehash of a normalized name, memoized in the cache for
// LookupTTL. Without a TTL nothing is memoized.
func (s *Service) node(ctx context.Context, name string) domain.NodeHash {
	s.obs.ObserveNamehash()
	if s.store == nil || s.ttl <= 0 {
		return s.enc.Namehash(name)
	}

	key := "namehash:" + name
	if b, ok, err := s.store.Get(ctx, key); err != nil {
		s.log.Warn("namehash cache get failed", zap.String("name", name), zap.Error(err))
	} else if ok {
		if node, err := domain.ParseNodeHash(string(b)); err == nil {
			s.obs.ObserveCache("namehash", true)
			return node
		}
	}
	s.obs.ObserveCache("namehash", false)

	node := s.enc.Namehash(name)
	if err := s.store.Set(ctx, key, []byte(node.Hex()), s.ttl); err != nil {
		s.log.Warn("namehash cache set failed", zap.String("name", name), zap.Error(err))
	}
	return node
}

// LabelHash hashes a single label as given.
func (s *Service) LabelHash(label string) domain.NodeHash {
	return s.enc.LabelHash(label)
}

// Validate checks a label for registration.
func (s *Service) Validate(label string) domain.ValidationResult {
	res := s.val.Validate(label)
	s.obs.ObserveValidation(res.Valid)
	return res
}

// ValidateValue checks a label that arrived as an untyped value.
func (s *Service) ValidateValue(v any) domain.ValidationResult {
	res := s.val.ValidateValue(v)
	s.obs.ObserveValidation(res.Valid)
	return res
}

// Preflight is everything a client needs before starting a registration.
type Preflight struct {
	Label      string                  `json:"label"`
	Validation domain.ValidationResult `json:"validation"`
	Name       string                  `json:"name,omitempty"`
	Node       *domain.NodeHash        `json:"node,omitempty"`
	LabelHash  *domain.NodeHash        `json:"labelHash,omitempty"`
	Available  *bool                   `json:"available,omitempty"`
	Expires    *time.Time              `json:"expires,omitempty"`
}

// Preflight validates label, builds label.<tld> and hashes it. When a
// registry is configured and the TLD is .eth, the base registrar is asked
// for availability and expiry; it only knows .eth names. An invalid label
// is not an error: the result carries the violations and nothing else.
func (s *Service) Preflight(ctx context.Context, label string) (Preflight, error) {
	p := Preflight{Label: label, Validation: s.Validate(label)}
	if !p.Validation.Valid {
		return p, nil
	}

	p.Name = domain.Join(label, s.tld)
	node := s.node(ctx, p.Name)
	lh := s.enc.LabelHash(label)
	p.Node, p.LabelHash = &node, &lh

	if s.reg == nil || s.tld != RegistrarTLD {
		return p, nil
	}

	available, err := s.reg.Available(ctx, lh)
	if err != nil {
		return Preflight{}, fmt.Errorf("availability of %s: %w", p.Name, err)
	}
	p.Available = &available

	if !available {
		exp, err := s.reg.NameExpires(ctx, lh)
		if err != nil {
			return Preflight{}, fmt.Errorf("expiry of %s: %w", p.Name, err)
		}
		if !exp.IsZero() {
			p.Expires = &exp
		}
	}
	return p, nil
}

// Lookup resolves a name through the registry. Watched names are served
// from the refresher snapshot, others from cache for up to LookupTTL.
func (s *Service) Lookup(ctx context.Context, raw string) (registry.Record, error) {
	name, err := domain.NormalizeName(raw)
	if err != nil {
		return registry.Record{}, fmt.Errorf("%w: %w", ErrInvalidName, err)
	}

	if s.watched != nil {
		if rec, ok := s.watched.Lookup(name); ok {
			s.obs.ObserveCache("watch", true)
			return rec, nil
		}
	}
	if s.reg == nil {
		return registry.Record{}, ErrRegistryUnavailable
	}

	key := "record:" + name
	if s.store != nil && s.ttl > 0 {
		if rec, ok := s.cachedRecord(ctx, key); ok {
			s.obs.ObserveCache("record", true)
			return rec, nil
		}
		s.obs.ObserveCache("record", false)
	}

	rec, err := s.reg.Lookup(ctx, name)
	if err != nil {
		return registry.Record{}, fmt.Errorf("lookup %s: %w", name, err)
	}

	if s.store != nil && s.ttl > 0 {
		if b, err := json.Marshal(rec); err == nil {
			if err := s.store.Set(ctx, key, b, s.ttl); err != nil {
				s.log.Warn("record cache set failed", zap.String("name", name), zap.Error(err))
			}
		}
	}
	return rec, nil
}

func (s *Service) cachedRecord(ctx context.Context, key string) (registry.Record, bool) {
	b, ok, err := s.store.Get(ctx, key)
	if err != nil {
		s.log.Warn("record cache get failed", zap.String("key", key), zap.Error(err))
		return registry.Record{}, false
	}
	if !ok {
		return registry.Record{}, false
	}

	var rec registry.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		s.log.Warn("record cache entry corrupt", zap.String("key", key), zap.Error(err))
		return registry.Record{}, false
	}
	return rec, true
}

// Reverse returns the verified primary name of a hex address.
func (s *Service) Reverse(ctx context.Context, address string) (string, error) {
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	if s.reg == nil {
		return "", ErrRegistryUnavailable
	}

	name, err := s.reg.ReverseName(ctx, common.HexToAddress(address))
	if err != nil {
		return "", fmt.Errorf("reverse %s: %w", address, err)
	}
	return name, nil
}

// Record updates BuildTx can encode.
const (
	TxSetResolver = "set-resolver"
	TxSetAddr     = "set-addr"
	TxSetText     = "set-text"
)

// TxParams describes one record update. Resolver is the new resolver for
// set-resolver; for the other kinds it is the resolver contract to call and
// is looked up in the registry when empty.
type TxParams struct {
	Kind     string
	Name     string
	Resolver string
	Address  string
	Key      string
	Value    string
}

// TxResult is an unsigned transaction for the wallet to sign.
type TxResult struct {
	Kind string             `json:"kind"`
	Name string             `json:"name"`
	Node domain.NodeHash    `json:"node"`
	Tx   registry.TxRequest `json:"tx"`
}

// BuildTx encodes a record update for a name. Nothing is signed or sent.
func (s *Service) BuildTx(ctx context.Context, p TxParams) (TxResult, error) {
	name, err := domain.NormalizeName(p.Name)
	if err != nil {
		return TxResult{}, fmt.Errorf("%w: %w", ErrInvalidName, err)
	}
	if name == "" {
		return TxResult{}, fmt.Errorf("%w: the root node has no records", ErrInvalidName)
	}

	res := TxResult{Kind: p.Kind, Name: name, Node: s.node(ctx, name)}

	switch p.Kind {
	case TxSetResolver:
		resolver, err := parseAddress("resolver", p.Resolver)
		if err != nil {
			return TxResult{}, err
		}
		res.Tx, err = s.tx.SetResolverTx(res.Node, resolver)
		return res, err

	case TxSetAddr:
		addr, err := parseAddress("address", p.Address)
		if err != nil {
			return TxResult{}, err
		}
		resolver, err := s.resolverFor(ctx, res.Node, p.Resolver)
		if err != nil {
			return TxResult{}, err
		}
		res.Tx, err = s.tx.SetAddrTx(resolver, res.Node, addr)
		return res, err

	case TxSetText:
		if p.Key == "" {
			return TxResult{}, fmt.Errorf("%w: text key is required", ErrInvalidTx)
		}
		resolver, err := s.resolverFor(ctx, res.Node, p.Resolver)
		if err != nil {
			return TxResult{}, err
		}
		res.Tx, err = s.tx.SetTextTx(resolver, res.Node, p.Key, p.Value)
		return res, err

	default:
		return TxResult{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidTx, p.Kind)
	}
}

func (s *Service) resolverFor(ctx context.Context, node domain.NodeHash, given string) (common.Address, error) {
	if given != "" {
		return parseAddress("resolver", given)
	}
	if s.reg == nil {
		return common.Address{}, ErrRegistryUnavailable
	}

	resolver, err := s.reg.Resolver(ctx, node)
	if err != nil {
		return common.Address{}, fmt.Errorf("resolver of %s: %w", node, err)
	}
	if resolver == (common.Address{}) {
		return common.Address{}, registry.ErrNoResolver
	}
	return resolver, nil
}

func parseAddress(field, v string) (common.Address, error) {
	if !common.IsHexAddress(v) {
		return common.Address{}, fmt.Errorf("%w: %s %q", ErrInvalidAddress, field, v)
	}
	return common.HexToAddress(v), nil
}
