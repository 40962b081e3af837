package main

import (
	"github.com/spf13/cobra"

	"ensname/internal/names"
)

func newTxCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tx",
		Short: "Build unsigned record update transactions",
		Long: `Build the unsigned contract call for a record update and print it as
JSON. Nothing is signed or sent; pass "to" and "data" to a wallet.

set-addr and set-text call the name's resolver. Without --resolver it is
read from the registry, which needs --rpc-url.`,
	}

	var resolver string
	cmd.PersistentFlags().StringVar(&resolver, "resolver", "", "Resolver contract to call (default: the name's current resolver)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set-resolver <name> <resolver>",
			Short: "Point a name at a resolver",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runTx(cmd, opts, names.TxParams{Kind: names.TxSetResolver, Name: args[0], Resolver: args[1]})
			},
		},
		&cobra.Command{
			Use:   "set-addr <name> <address>",
			Short: "Set the ETH address record of a name",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runTx(cmd, opts, names.TxParams{Kind: names.TxSetAddr, Name: args[0], Address: args[1], Resolver: resolver})
			},
		},
		&cobra.Command{
			Use:   "set-text <name> <key> <value>",
			Short: "Set a text record of a name",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runTx(cmd, opts, names.TxParams{Kind: names.TxSetText, Name: args[0], Key: args[1], Value: args[2], Resolver: resolver})
			},
		},
	)
	return cmd
}

func runTx(cmd *cobra.Command, opts *rootOptions, p names.TxParams) error {
	svc, closeFn, err := opts.service(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer closeFn()

	res, err := svc.BuildTx(cmd.Context(), p)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), res)
}
