package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/credprov/internal/awscontext"
	"github.com/pankaj-dahiya-devops/credprov/internal/discovery"
	"github.com/pankaj-dahiya-devops/credprov/internal/obfuscate"
	"github.com/pankaj-dahiya-devops/credprov/internal/secrets"
)

func newSecretCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Read and reconcile Secrets Manager key/value secrets",
	}
	cmd.AddCommand(newSecretGetCmd(opts))
	cmd.AddCommand(newSecretFindCmd(opts))
	cmd.AddCommand(newSecretUpdateCmd(opts))
	return cmd
}

func newSecretGetCmd(opts *rootOptions) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "get [KEY]",
		Short: "Print one key of a secret, or every key when KEY is omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.inScope(cmd, false, func(ctx context.Context, a *app, s *awscontext.Scope) error {
				secretName := firstNonEmpty(name, a.cfg.Secrets.Name)
				if err := requireValue("secret name", secretName, "--name"); err != nil {
					return err
				}
				r := secrets.NewReconciler(s, secrets.WithLogger(a.log))
				out := cmd.OutOrStdout()

				if len(args) == 0 {
					rec, err := r.GetSecret(ctx, secretName)
					if err != nil {
						return err
					}
					printRecord(out, secretName, rec, a.show)
					return nil
				}

				key := args[0]
				value, ok, err := r.GetSecretValue(ctx, secretName, key)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintf(out, "AWS secret %s.%s does not exist.\n", secretName, key)
					return nil
				}
				fmt.Fprintf(out, "%s.%s: %s\n", secretName, key, obfuscate.KeyValue(key, value, a.show))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Secret name (default: secrets.name from the config file)")
	return cmd
}

// printRecord writes every key of rec in stored order, masking sensitive
// values unless show is set.
func printRecord(w io.Writer, secretName string, rec *secrets.Record, show bool) {
	values := make(map[string]any, rec.Len())
	for _, k := range rec.Keys() {
		v, _ := rec.Get(k)
		values[k] = v
	}
	if masked := obfuscate.Map(values, show); masked != nil {
		values = masked
	}
	fmt.Fprintf(w, "AWS secret %s:\n", secretName)
	for _, k := range rec.Keys() {
		fmt.Fprintf(w, "- %s: %v\n", k, values[k])
	}
}

func newSecretFindCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "find PATTERN",
		Short: "Print the first secret name matching a regular expression",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.inScope(cmd, false, func(ctx context.Context, a *app, s *awscontext.Scope) error {
				name, err := secrets.NewReconciler(s, secrets.WithLogger(a.log)).FindSecretName(ctx, args[0])
				if err != nil {
					return err
				}
				if name == "" {
					fmt.Fprintf(cmd.OutOrStdout(), "No AWS secret name matches: %s\n", args[0])
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), name)
				return nil
			})
		},
	}
}

func newSecretUpdateCmd(opts *rootOptions) *cobra.Command {
	var (
		name       string
		deactivate bool
		literal    bool
	)
	cmd := &cobra.Command{
		Use:   "update KEY [VALUE]",
		Short: "Create, update or deactivate one key of a secret",
		Long: `Create, update or deactivate one key of a secret.

VALUE may be a literal or an endpoint reference resolved at run time:
  rds-host:<db-instance>   RDS instance endpoint address
  rds-port:<db-instance>   RDS instance endpoint port
  alb-dns:<load-balancer>  load balancer DNS name

Use --literal to store such a value as written.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if deactivate == (len(args) == 2) {
				return errors.New("give either VALUE or --deactivate")
			}
			key := args[0]
			return opts.inScope(cmd, false, func(ctx context.Context, a *app, s *awscontext.Scope) error {
				secretName := firstNonEmpty(name, a.cfg.Secrets.Name)
				if err := requireValue("secret name", secretName, "--name"); err != nil {
					return err
				}

				var target *string
				if !deactivate {
					value := args[1]
					if !literal {
						var err error
						if value, err = discovery.NewResolver(s, a.log).Resolve(ctx, value); err != nil {
							return err
						}
					}
					target = &value
				}

				r := secrets.NewReconciler(s,
					secrets.WithConfirmer(a.confirm),
					secrets.WithRevealer(a.reveal),
					secrets.WithOutput(cmd.OutOrStdout()),
					secrets.WithLogger(a.log),
				)
				_, err := r.UpdateSecretKey(ctx, secretName, key, target, a.show)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Secret name (default: secrets.name from the config file)")
	cmd.Flags().BoolVar(&deactivate, "deactivate", false, "Deactivate the key instead of setting a value")
	cmd.Flags().BoolVar(&literal, "literal", false, "Store VALUE as given, without resolving endpoint references")
	return cmd
}
