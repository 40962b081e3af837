package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ensname/internal/cache"
	"ensname/internal/domain"
	"ensname/internal/names"
	"ensname/internal/registry"
)

// Version is set at build time
var Version = "0.1.0"

// errInvalid makes the process exit non-zero after the result was printed.
var errInvalid = errors.New("invalid label")

type rootOptions struct {
	rpcURL   string
	registry string
	tld      string
	reserved []string
	policy   string
	verbose  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "ensname",
		Short: "ENS namehash and label validation tool",
		Long: `ensname hashes ENS names, validates labels before registration and,
given a JSON-RPC endpoint, reads the ENS registry.

Example:
  ensname hash vitalik.eth
  ensname validate my-label
  ensname lookup nick.eth --rpc-url https://eth.llamarpc.com
  ensname tx set-text nick.eth url https://ens.domains --rpc-url https://eth.llamarpc.com`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.rpcURL, "rpc-url", os.Getenv("ENSNAME_RPC_URL"), "Ethereum JSON-RPC endpoint (or set ENSNAME_RPC_URL)")
	cmd.PersistentFlags().StringVar(&opts.registry, "registry", registry.MainnetRegistry.Hex(), "ENS registry address")
	cmd.PersistentFlags().StringVar(&opts.tld, "tld", "eth", "TLD appended by preflight")
	cmd.PersistentFlags().StringSliceVar(&opts.reserved, "reserved", domain.DefaultReservedWords(), "Reserved words")
	cmd.PersistentFlags().StringVar(&opts.policy, "policy", "", "YAML policy file with reserved words")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log registry calls to stderr")

	cmd.AddCommand(
		newHashCmd(opts),
		newLabelHashCmd(),
		newValidateCmd(opts),
		newPreflightCmd(opts),
		newLookupCmd(opts),
		newReverseCmd(opts),
		newTxCmd(opts),
	)
	return cmd
}

// service builds a names.Service; registry access is only wired when
// requireRegistry is set or an RPC URL was given.
func (o *rootOptions) service(ctx context.Context, requireRegistry bool) (*names.Service, func(), error) {
	val, err := o.validator()
	if err != nil {
		return nil, nil, err
	}

	store, err := cache.NewMemory(256)
	if err != nil {
		return nil, nil, err
	}

	log := zap.NewNop()
	if o.verbose {
		if log, err = zap.NewDevelopment(); err != nil {
			return nil, nil, err
		}
	}

	if !common.IsHexAddress(o.registry) {
		return nil, nil, fmt.Errorf("--registry %q is not an address", o.registry)
	}
	registryAddr := common.HexToAddress(o.registry)

	enc := domain.NewKeccakEncoder()
	deps := names.Deps{
		Encoder:   enc,
		Validator: val,
		Cache:     store,
		Logger:    log,
		TLD:       o.tld,
		Tx:        registry.NewTxBuilder(registryAddr),
	}

	closeFn := func() {}
	if o.rpcURL == "" {
		if requireRegistry {
			return nil, nil, errors.New("--rpc-url or ENSNAME_RPC_URL is required")
		}
	} else {
		eth, err := registry.Dial(ctx, o.rpcURL)
		if err != nil {
			return nil, nil, err
		}
		closeFn = eth.Close
		deps.Registry = registry.NewClient(eth, enc, registry.Options{Registry: registryAddr, Logger: log})
	}

	svc, err := names.NewService(deps)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return svc, closeFn, nil
}

func (o *rootOptions) validator() (*domain.Validator, error) {
	if o.policy == "" {
		return domain.NewValidator(o.reserved), nil
	}

	f, err := os.Open(o.policy)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := domain.LoadPolicy(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", o.policy, err)
	}
	return p.Validator(), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
