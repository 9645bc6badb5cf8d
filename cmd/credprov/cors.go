package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/credprov/internal/awscontext"
	"github.com/pankaj-dahiya-devops/credprov/internal/bucketcors"
	"github.com/pankaj-dahiya-devops/credprov/internal/output"
)

func newCORSCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cors",
		Short: "Inspect and extend S3 bucket CORS rules",
	}
	cmd.AddCommand(newCORSGetCmd(opts))
	cmd.AddCommand(newCORSAddCmd(opts))
	return cmd
}

func newCORSGetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get BUCKET",
		Short: "List the CORS rules of a bucket",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.inScope(cmd, false, func(ctx context.Context, a *app, s *awscontext.Scope) error {
				rules, err := bucketcors.NewReconciler(s, bucketcors.WithLogger(a.log)).GetRules(ctx, args[0])
				if err != nil {
					return err
				}
				if rules == nil {
					return fmt.Errorf("%w: %s", bucketcors.ErrBucketNotFound, args[0])
				}
				output.RenderCORSRules(cmd.OutOrStdout(), rules)
				return nil
			})
		},
	}
}

func newCORSAddCmd(opts *rootOptions) *cobra.Command {
	var rule bucketcors.Rule
	cmd := &cobra.Command{
		Use:   "add BUCKET",
		Short: "Add a CORS rule to a bucket unless an equivalent one exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(rule.AllowedMethods) == 0 || len(rule.AllowedOrigins) == 0 {
				return errors.New("--method and --origin are required")
			}
			return opts.inScope(cmd, false, func(ctx context.Context, a *app, s *awscontext.Scope) error {
				r := bucketcors.NewReconciler(s,
					bucketcors.WithConfirmer(a.confirm),
					bucketcors.WithOutput(cmd.OutOrStdout()),
					bucketcors.WithLogger(a.log),
				)
				_, err := r.EnsureRule(ctx, args[0], rule)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&rule.ID, "id", "", "Rule id")
	cmd.Flags().StringSliceVar(&rule.AllowedMethods, "method", nil, "Allowed HTTP method(s)")
	cmd.Flags().StringSliceVar(&rule.AllowedOrigins, "origin", nil, "Allowed origin(s)")
	cmd.Flags().StringSliceVar(&rule.AllowedHeaders, "header", nil, "Allowed request header(s)")
	cmd.Flags().StringSliceVar(&rule.ExposeHeaders, "expose-header", nil, "Response header(s) exposed to the browser")
	cmd.Flags().Int32Var(&rule.MaxAgeSeconds, "max-age", 0, "Preflight cache time in seconds")
	return cmd
}
