package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/credprov/internal/awscontext"
	"github.com/pankaj-dahiya-devops/credprov/internal/identity"
	"github.com/pankaj-dahiya-devops/credprov/internal/kmspolicy"
	"github.com/pankaj-dahiya-devops/credprov/internal/output"
)

func newKMSCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kms",
		Short: "Inspect and reconcile KMS key policies",
	}
	cmd.AddCommand(newKMSKeysCmd(opts))
	cmd.AddCommand(newKMSPrincipalsCmd(opts))
	cmd.AddCommand(newKMSUpdatePolicyCmd(opts))
	return cmd
}

// kmsFlags are the key selection flags shared by the kms subcommands.
type kmsFlags struct {
	keyID string
	sid   string
}

func (f *kmsFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.keyID, "key-id", "", "KMS key id or ARN (default: kms.key_id from the config file)")
	cmd.Flags().StringVar(&f.sid, "sid", "", "Policy statement Sid pattern (default: kms.sid_pattern from the config file)")
}

func (f *kmsFlags) resolve(a *app) (keyID, sid string, err error) {
	keyID = firstNonEmpty(f.keyID, a.cfg.KMS.KeyID)
	sid = firstNonEmpty(f.sid, a.cfg.KMS.SidPattern)
	return keyID, sid, requireValue("KMS key id", keyID, "--key-id")
}

func newKMSKeysCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List customer managed KMS keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.inScope(cmd, false, func(ctx context.Context, a *app, s *awscontext.Scope) error {
				keys, err := kmspolicy.NewReconciler(s, kmspolicy.WithLogger(a.log)).CustomerManagedKeys(ctx)
				if err != nil {
					return err
				}
				output.RenderList(cmd.OutOrStdout(), "Customer managed KMS keys", keys)
				return nil
			})
		},
	}
}

func newKMSPrincipalsCmd(opts *rootOptions) *cobra.Command {
	var f kmsFlags
	cmd := &cobra.Command{
		Use:   "principals",
		Short: "List the AWS principals of a key policy statement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.inScope(cmd, false, func(ctx context.Context, a *app, s *awscontext.Scope) error {
				keyID, sid, err := f.resolve(a)
				if err != nil {
					return err
				}
				doc, err := kmspolicy.NewReconciler(s, kmspolicy.WithLogger(a.log)).GetPolicy(ctx, keyID)
				if err != nil {
					return err
				}
				principals, err := kmspolicy.Principals(doc, sid)
				if err != nil {
					return fmt.Errorf("key %s: %w", keyID, err)
				}
				output.RenderList(cmd.OutOrStdout(), "KMS key principals for "+keyID, principals)
				return nil
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func newKMSUpdatePolicyCmd(opts *rootOptions) *cobra.Command {
	var (
		f           kmsFlags
		rolePattern string
	)
	cmd := &cobra.Command{
		Use:   "update-policy",
		Short: "Add every IAM role matching a pattern to a key policy statement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.inScope(cmd, false, func(ctx context.Context, a *app, s *awscontext.Scope) error {
				keyID, sid, err := f.resolve(a)
				if err != nil {
					return err
				}
				pattern := firstNonEmpty(rolePattern, a.cfg.KMS.RolePattern)
				if err := requireValue("role pattern", pattern, "--role-pattern"); err != nil {
					return err
				}

				roles, err := identity.NewIssuer(s, identity.WithLogger(a.log)).FindRoleARNs(ctx, pattern)
				if err != nil {
					return err
				}
				if len(roles) == 0 {
					fmt.Fprintf(cmd.OutOrStdout(), "No AWS IAM roles match: %s\n", pattern)
					return nil
				}

				r := kmspolicy.NewReconciler(s,
					kmspolicy.WithConfirmer(a.confirm),
					kmspolicy.WithOutput(cmd.OutOrStdout()),
					kmspolicy.WithLogger(a.log),
				)
				_, err = r.ReconcilePrincipals(ctx, keyID, sid, roles)
				return err
			})
		},
	}
	f.bind(cmd)
	cmd.Flags().StringVar(&rolePattern, "role-pattern", "", "IAM role ARN pattern (default: kms.role_pattern from the config file)")
	return cmd
}
