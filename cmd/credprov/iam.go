package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/credprov/internal/awscontext"
	"github.com/pankaj-dahiya-devops/credprov/internal/identity"
	"github.com/pankaj-dahiya-devops/credprov/internal/output"
)

func newIAMCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "iam",
		Short: "Issue IAM access keys and look up IAM users",
	}
	cmd.AddCommand(newIAMCreateAccessKeyCmd(opts))
	cmd.AddCommand(newIAMFindUserCmd(opts))
	return cmd
}

func newIAMCreateAccessKeyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "create-access-key USER",
		Short: "Create an access key pair for an IAM user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.inScope(cmd, false, func(ctx context.Context, a *app, s *awscontext.Scope) error {
				iss := identity.NewIssuer(s,
					identity.WithConfirmer(a.confirm),
					identity.WithOutput(cmd.OutOrStdout()),
					identity.WithLogger(a.log),
				)
				_, err := iss.IssueAccessKey(ctx, args[0], a.show)
				return err
			})
		},
	}
}

func newIAMFindUserCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "find-user PATTERN",
		Short: "Print the first IAM user whose name starts with a pattern, and its access keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.inScope(cmd, false, func(ctx context.Context, a *app, s *awscontext.Scope) error {
				iss := identity.NewIssuer(s, identity.WithLogger(a.log))
				name, err := iss.FindUserName(ctx, args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if name == "" {
					fmt.Fprintf(out, "No AWS IAM user matches: %s\n", args[0])
					return nil
				}
				fmt.Fprintf(out, "AWS IAM user: %s\n", name)
				keys, err := iss.ExistingKeys(ctx, name)
				if err != nil {
					return err
				}
				output.RenderAccessKeys(out, keys, time.Local)
				return nil
			})
		},
	}
}
