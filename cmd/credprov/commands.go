package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/credprov/internal/awscontext"
	"github.com/pankaj-dahiya-devops/credprov/internal/version"
)

func newRootCmd() *cobra.Command {
	return buildRootCmd(&rootOptions{})
}

func buildRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "credprov",
		Short:         "Provision AWS credentials, secrets and access rules from an explicit credential source",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	opts.bindFlags(root)

	root.AddCommand(newWhoamiCmd(opts))
	root.AddCommand(newSecretCmd(opts))
	root.AddCommand(newKMSCmd(opts))
	root.AddCommand(newSGCmd(opts))
	root.AddCommand(newIAMCmd(opts))
	root.AddCommand(newCORSCmd(opts))
	root.AddCommand(newDoctorCmd(opts))
	root.AddCommand(newVersionCmd())
	return root
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the AWS identity the chosen credentials resolve to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.inScope(cmd, true, func(context.Context, *app, *awscontext.Scope) error {
				return nil
			})
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), version.Info())
		},
	}
}
