package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/credprov/internal/awscontext"
	"github.com/pankaj-dahiya-devops/credprov/internal/output"
	"github.com/pankaj-dahiya-devops/credprov/internal/secgroups"
)

func newSGCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sg",
		Short: "List and reconcile security group rules",
	}
	cmd.AddCommand(newSGListCmd(opts))
	cmd.AddCommand(newSGAddCmd(opts))
	cmd.AddCommand(newSGRemoveCmd(opts))
	return cmd
}

// resolveGroupID accepts a group id or the value of a group's Name tag.
func resolveGroupID(ctx context.Context, r *secgroups.Reconciler, group string) (string, error) {
	if strings.HasPrefix(group, "sg-") {
		return group, nil
	}
	id, err := r.FindGroupID(ctx, group)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("%w: no single group named %q", secgroups.ErrGroupNotFound, group)
	}
	return id, nil
}

func direction(egress bool) secgroups.Direction {
	if egress {
		return secgroups.Outbound
	}
	return secgroups.Inbound
}

func newSGListCmd(opts *rootOptions) *cobra.Command {
	var egress bool
	cmd := &cobra.Command{
		Use:   "list GROUP",
		Short: "List the inbound or outbound rules of a security group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.inScope(cmd, false, func(ctx context.Context, a *app, s *awscontext.Scope) error {
				r := secgroups.NewReconciler(s, secgroups.WithLogger(a.log))
				groupID, err := resolveGroupID(ctx, r, args[0])
				if err != nil {
					return err
				}
				rules, err := r.ListRules(ctx, groupID, direction(egress))
				if err != nil {
					return err
				}
				if rules == nil {
					return fmt.Errorf("%w: %s", secgroups.ErrGroupNotFound, groupID)
				}
				output.RenderRules(cmd.OutOrStdout(), rules)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&egress, "egress", false, "List outbound rules instead of inbound")
	return cmd
}

// ruleFlags describe one desired rule on the command line.
type ruleFlags struct {
	egress      bool
	protocol    string
	port        int32
	fromPort    int32
	toPort      int32
	cidr        string
	description string
}

func (f *ruleFlags) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.egress, "egress", false, "Outbound rule instead of inbound")
	cmd.Flags().StringVar(&f.protocol, "protocol", "tcp", `IP protocol: tcp, udp, icmp or "-1" for all`)
	cmd.Flags().Int32Var(&f.port, "port", -1, "Single port (sets --from-port and --to-port)")
	cmd.Flags().Int32Var(&f.fromPort, "from-port", -1, "First port of the range, or ICMP type")
	cmd.Flags().Int32Var(&f.toPort, "to-port", -1, "Last port of the range, or ICMP code")
	cmd.Flags().StringVar(&f.cidr, "cidr", "", "Source (inbound) or destination (outbound) CIDR")
	cmd.Flags().StringVar(&f.description, "description", "", "Rule description")
}

func (f *ruleFlags) rule() (secgroups.DesiredRule, error) {
	if f.cidr == "" {
		return secgroups.DesiredRule{}, errors.New("--cidr is required")
	}
	from, to := f.fromPort, f.toPort
	if f.port >= 0 {
		from, to = f.port, f.port
	}
	rule := secgroups.DesiredRule{
		Protocol: f.protocol,
		IPRanges: []secgroups.IPRange{{CIDR: f.cidr, Description: f.description}},
	}
	if f.protocol != "-1" {
		if from < 0 && f.protocol != "icmp" {
			return secgroups.DesiredRule{}, errors.New("--port or --from-port is required")
		}
		if to < 0 && f.protocol != "icmp" {
			to = from
		}
		rule.FromPort = secgroups.Port(from)
		rule.ToPort = secgroups.Port(to)
	}
	return rule, nil
}

func newSGAddCmd(opts *rootOptions) *cobra.Command {
	var f ruleFlags
	cmd := &cobra.Command{
		Use:   "add GROUP",
		Short: "Create a security group rule unless an equal one exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := f.rule()
			if err != nil {
				return err
			}
			return opts.inScope(cmd, false, func(ctx context.Context, a *app, s *awscontext.Scope) error {
				r := secgroups.NewReconciler(s,
					secgroups.WithConfirmer(a.confirm),
					secgroups.WithOutput(cmd.OutOrStdout()),
					secgroups.WithLogger(a.log),
				)
				groupID, err := resolveGroupID(ctx, r, args[0])
				if err != nil {
					return err
				}
				_, _, err = r.EnsureRule(ctx, groupID, rule, direction(f.egress))
				return err
			})
		},
	}
	f.bind(cmd)
	return cmd
}

func newSGRemoveCmd(opts *rootOptions) *cobra.Command {
	var f ruleFlags
	cmd := &cobra.Command{
		Use:   "remove GROUP",
		Short: "Delete the security group rule equal to the one described",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, err := f.rule()
			if err != nil {
				return err
			}
			return opts.inScope(cmd, false, func(ctx context.Context, a *app, s *awscontext.Scope) error {
				r := secgroups.NewReconciler(s,
					secgroups.WithConfirmer(a.confirm),
					secgroups.WithOutput(cmd.OutOrStdout()),
					secgroups.WithLogger(a.log),
				)
				groupID, err := resolveGroupID(ctx, r, args[0])
				if err != nil {
					return err
				}
				_, err = r.RemoveRule(ctx, groupID, rule, direction(f.egress))
				return err
			})
		},
	}
	f.bind(cmd)
	return cmd
}
