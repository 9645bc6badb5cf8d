// Package secgroups finds, creates and deletes individual security group
// rules, matching the rule shape EC2 reports against the shape submitted
// for creation.
package secgroups

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/pankaj-dahiya-devops/credprov/internal/confirm"
	"github.com/pankaj-dahiya-devops/credprov/internal/logging"
	"github.com/pankaj-dahiya-devops/credprov/internal/providers/aws/common"
)

// ErrGroupNotFound is returned by EnsureRule and RemoveRule when the
// security group does not exist.
var ErrGroupNotFound = errors.New("security group not found")

// Reconciler manages security group rules through a credential scope.
type Reconciler struct {
	session common.Session
	confirm confirm.Confirmer
	out     io.Writer
	log     *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithConfirmer sets who answers confirmation questions.
func WithConfirmer(c confirm.Confirmer) Option { return func(r *Reconciler) { r.confirm = c } }

// WithOutput sets where progress is reported.
func WithOutput(w io.Writer) Option { return func(r *Reconciler) { r.out = w } }

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option { return func(r *Reconciler) { r.log = l } }

// NewReconciler returns a Reconciler using s for all remote calls.
func NewReconciler(s common.Session, opts ...Option) *Reconciler {
	r := &Reconciler{
		session: s,
		confirm: confirm.Always(false),
		out:     os.Stdout,
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) client() (common.EC2Client, error) {
	clients, err := r.session.Clients()
	if err != nil {
		return nil, err
	}
	return clients.EC2, nil
}

// ListRules returns the rules of groupID in direction dir, in the order EC2
// reports them. It returns nil when the group does not exist and an empty,
// non-nil slice when the group exists without such rules.
func (r *Reconciler) ListRules(ctx context.Context, groupID string, dir Direction) ([]ExistingRule, error) {
	c, err := r.client()
	if err != nil {
		return nil, err
	}

	groups, err := c.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		GroupIds: []string{groupID},
	})
	if err != nil {
		if common.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("describe security group %s: %w", groupID, err)
	}
	if len(groups.SecurityGroups) == 0 {
		return nil, nil
	}

	rules := []ExistingRule{}
	paginator := ec2.NewDescribeSecurityGroupRulesPaginator(c, &ec2.DescribeSecurityGroupRulesInput{
		Filters: []ec2types.Filter{{Name: aws.String("group-id"), Values: []string{groupID}}},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("describe security group rules for %s: %w", groupID, err)
		}
		for _, sr := range page.SecurityGroupRules {
			if aws.ToBool(sr.IsEgress) == dir.IsEgress() {
				rules = append(rules, existingFromSDK(sr))
			}
		}
	}
	return rules, nil
}

// CreateRule adds rule to groupID and returns the new rule id.
func (r *Reconciler) CreateRule(ctx context.Context, groupID string, rule DesiredRule, dir Direction) (string, error) {
	c, err := r.client()
	if err != nil {
		return "", err
	}

	perms := []ec2types.IpPermission{rule.ipPermission()}
	var created []ec2types.SecurityGroupRule
	if dir.IsEgress() {
		out, err := c.AuthorizeSecurityGroupEgress(ctx, &ec2.AuthorizeSecurityGroupEgressInput{
			GroupId:       aws.String(groupID),
			IpPermissions: perms,
		})
		if err != nil {
			return "", fmt.Errorf("authorize %s rule on %s: %w", dir, groupID, err)
		}
		created = out.SecurityGroupRules
	} else {
		out, err := c.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
			GroupId:       aws.String(groupID),
			IpPermissions: perms,
		})
		if err != nil {
			return "", fmt.Errorf("authorize %s rule on %s: %w", dir, groupID, err)
		}
		created = out.SecurityGroupRules
	}

	if len(created) == 0 || created[0].SecurityGroupRuleId == nil {
		return "", fmt.Errorf("authorize %s rule on %s: no rule id returned", dir, groupID)
	}
	return aws.ToString(created[0].SecurityGroupRuleId), nil
}

// DeleteRule removes rule ruleID from groupID.
func (r *Reconciler) DeleteRule(ctx context.Context, groupID, ruleID string, dir Direction) error {
	c, err := r.client()
	if err != nil {
		return err
	}

	var ok *bool
	if dir.IsEgress() {
		out, err := c.RevokeSecurityGroupEgress(ctx, &ec2.RevokeSecurityGroupEgressInput{
			GroupId:              aws.String(groupID),
			SecurityGroupRuleIds: []string{ruleID},
		})
		if err != nil {
			return fmt.Errorf("revoke %s rule %s on %s: %w", dir, ruleID, groupID, err)
		}
		ok = out.Return
	} else {
		out, err := c.RevokeSecurityGroupIngress(ctx, &ec2.RevokeSecurityGroupIngressInput{
			GroupId:              aws.String(groupID),
			SecurityGroupRuleIds: []string{ruleID},
		})
		if err != nil {
			return fmt.Errorf("revoke %s rule %s on %s: %w", dir, ruleID, groupID, err)
		}
		ok = out.Return
	}
	if ok != nil && !*ok {
		return fmt.Errorf("revoke %s rule %s on %s: not revoked", dir, ruleID, groupID)
	}
	return nil
}

// FindGroupID returns the id of the one security group whose Name tag is
// name. It returns "" when none or several match.
func (r *Reconciler) FindGroupID(ctx context.Context, name string) (string, error) {
	c, err := r.client()
	if err != nil {
		return "", err
	}
	out, err := c.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{{Name: aws.String("tag:Name"), Values: []string{name}}},
	})
	if err != nil {
		return "", fmt.Errorf("find security group %q: %w", name, err)
	}
	if len(out.SecurityGroups) != 1 {
		r.log.Debug("security group name lookup", "name", name, "matches", len(out.SecurityGroups))
		return "", nil
	}
	return aws.ToString(out.SecurityGroups[0].GroupId), nil
}

// EnsureRule creates rule on groupID unless an equal rule already exists.
// It returns the id of the existing or created rule and whether a rule was
// created. An empty id with a nil error means the operator declined.
func (r *Reconciler) EnsureRule(ctx context.Context, groupID string, rule DesiredRule, dir Direction) (string, bool, error) {
	existing, err := r.ListRules(ctx, groupID, dir)
	if err != nil {
		return "", false, err
	}
	if existing == nil {
		return "", false, fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}

	if found, ok := FindRule(existing, rule, dir); ok {
		fmt.Fprintf(r.out, "- %s security group %s rule already exists: %s\n", dir.Title(), groupID, found.Describe())
		return found.ID, false, nil
	}

	fmt.Fprintf(r.out, "- %s security group %s rule does not exist: %s\n", dir.Title(), groupID, rule.Describe())
	if !r.confirm.Confirm(fmt.Sprintf("Create %s security group %s rule: %s ?", dir, groupID, rule.Describe())) {
		r.log.Info("security group rule creation declined", "group_id", groupID, "direction", dir.String())
		return "", false, nil
	}

	id, err := r.CreateRule(ctx, groupID, rule, dir)
	if err != nil {
		return "", false, err
	}
	fmt.Fprintf(r.out, "- Created %s security group %s rule %s: %s\n", dir, groupID, id, rule.Describe())
	r.log.Info("security group rule created", "group_id", groupID, "rule_id", id, "direction", dir.String())
	return id, true, nil
}

// RemoveRule deletes the rule on groupID equal to rule, if there is one.
// It reports whether a rule was deleted.
func (r *Reconciler) RemoveRule(ctx context.Context, groupID string, rule DesiredRule, dir Direction) (bool, error) {
	existing, err := r.ListRules(ctx, groupID, dir)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, fmt.Errorf("%w: %s", ErrGroupNotFound, groupID)
	}

	found, ok := FindRule(existing, rule, dir)
	if !ok {
		fmt.Fprintf(r.out, "- %s security group %s rule does not exist: %s\n", dir.Title(), groupID, rule.Describe())
		return false, nil
	}

	if !r.confirm.Confirm(fmt.Sprintf("Delete %s security group %s rule %s: %s ?", dir, groupID, found.ID, found.Describe())) {
		return false, nil
	}
	if err := r.DeleteRule(ctx, groupID, found.ID, dir); err != nil {
		return false, err
	}
	fmt.Fprintf(r.out, "- Deleted %s security group %s rule %s: %s\n", dir, groupID, found.ID, found.Describe())
	r.log.Info("security group rule deleted", "group_id", groupID, "rule_id", found.ID, "direction", dir.String())
	return true, nil
}
