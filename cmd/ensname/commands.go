package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ensname/internal/domain"
)

func newHashCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "hash [name]",
		Short: "Print the namehash of a name",
		Long: `Print the namehash of a dot separated name. The name is trimmed and
lowercased first; without an argument the root node is printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := opts.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeFn()

			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			res, err := svc.Namehash(cmd.Context(), name)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), res.Node.Hex())
			return err
		},
	}
}

func newLabelHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "labelhash <label>",
		Short: "Print the Keccak-256 hash of a single label",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h := domain.NewKeccakEncoder().LabelHash(args[0])
			_, err := fmt.Fprintln(cmd.OutOrStdout(), h.Hex())
			return err
		},
	}
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <label>",
		Short: "Check a label against the registration rules",
		Long: `Check a label against the registration rules and print every
violation. Exits non-zero when the label is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			val, err := opts.validator()
			if err != nil {
				return err
			}

			res := val.Validate(args[0])
			if err := printJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Valid {
				return errInvalid
			}
			return nil
		},
	}
}

func newPreflightCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight <label>",
		Short: "Validate a label and hash label.<tld>",
		Long: `Validate a label, then print the name, node and labelhash it would
register under. With --rpc-url the base registrar is asked whether the
name is available.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := opts.service(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer closeFn()

			p, err := svc.Preflight(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), p); err != nil {
				return err
			}
			if !p.Validation.Valid {
				return errInvalid
			}
			return nil
		},
	}
}

func newLookupCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <name>",
		Short: "Read owner, resolver and records of a name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := opts.service(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeFn()

			rec, err := svc.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	}
}

func newReverseCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reverse <address>",
		Short: "Print the verified primary name of an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, closeFn, err := opts.service(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer closeFn()

			name, err := svc.Reverse(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), name)
			return err
		},
	}
}
