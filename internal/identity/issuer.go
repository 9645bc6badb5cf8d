// Package identity issues IAM access keys and looks up IAM users and roles.
package identity

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"

	"github.com/pankaj-dahiya-devops/credprov/internal/confirm"
	"github.com/pankaj-dahiya-devops/credprov/internal/logging"
	"github.com/pankaj-dahiya-devops/credprov/internal/obfuscate"
	"github.com/pankaj-dahiya-devops/credprov/internal/providers/aws/common"
)

// createdLayout is how existing key creation times are shown.
const createdLayout = "2006-01-02 15:04:05"

// AccessKeyPair is a newly created access key. The secret is only ever
// available from the call that created it.
type AccessKeyPair struct {
	AccessKeyID     string
	SecretAccessKey string
}

// ExistingKey is an access key a user already has.
type ExistingKey struct {
	ID      string
	Created time.Time
}

// Issuer creates access keys and resolves IAM names through a credential
// scope.
type Issuer struct {
	session common.Session
	confirm confirm.Confirmer
	out     io.Writer
	log     *slog.Logger
	loc     *time.Location
}

// Option configures an Issuer.
type Option func(*Issuer)

// WithConfirmer sets who answers confirmation questions.
func WithConfirmer(c confirm.Confirmer) Option { return func(i *Issuer) { i.confirm = c } }

// WithOutput sets where progress is reported.
func WithOutput(w io.Writer) Option { return func(i *Issuer) { i.out = w } }

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option { return func(i *Issuer) { i.log = l } }

// WithLocation sets the time zone key creation times are shown in.
// Defaults to the local zone.
func WithLocation(loc *time.Location) Option { return func(i *Issuer) { i.loc = loc } }

// NewIssuer returns an Issuer using s for all remote calls.
func NewIssuer(s common.Session, opts ...Option) *Issuer {
	i := &Issuer{
		session: s,
		confirm: confirm.Always(false),
		out:     os.Stdout,
		log:     logging.Discard(),
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Issuer) client() (common.IAMClient, error) {
	clients, err := i.session.Clients()
	if err != nil {
		return nil, err
	}
	return clients.IAM, nil
}

// IssueAccessKey creates an access key for the user named exactly userName.
// Existing keys are listed and must be acknowledged, and creation itself is
// confirmed separately. It returns nil with a nil error when the user cannot
// be resolved to exactly one IAM user or the operator declines.
func (i *Issuer) IssueAccessKey(ctx context.Context, userName string, show bool) (*AccessKeyPair, error) {
	c, err := i.client()
	if err != nil {
		return nil, err
	}

	matches, err := userNames(ctx, c, func(name string) bool { return name == userName })
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		fmt.Fprintf(i.out, "AWS user not found for security access key pair creation: %s\n", userName)
		i.log.Warn("IAM user not found", "user", userName)
		return nil, nil
	case 1:
	default:
		fmt.Fprintf(i.out, "Multiple AWS users found for security access key pair creation: %s\n", userName)
		i.log.Warn("IAM user ambiguous", "user", userName, "matches", len(matches))
		return nil, nil
	}
	user := matches[0]

	existing, err := existingKeys(ctx, c, user)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		if len(existing) == 1 {
			fmt.Fprintf(i.out, "AWS IAM user (%s) already has an access key defined:\n", user)
		} else {
			fmt.Fprintf(i.out, "AWS IAM user (%s) already has %d access keys defined:\n", user, len(existing))
		}
		for _, k := range existing {
			fmt.Fprintf(i.out, "- %s (created: %s)\n", k.ID, k.Created.In(i.loc).Format(createdLayout))
		}
		if !i.confirm.Confirm("Do you still want to create a new access key?") {
			return nil, nil
		}
	}

	if !i.confirm.Confirm(fmt.Sprintf("Create AWS security access key pair for AWS IAM user: %s ?", user)) {
		return nil, nil
	}

	out, err := c.CreateAccessKey(ctx, &iam.CreateAccessKeyInput{UserName: aws.String(user)})
	if err != nil {
		return nil, fmt.Errorf("create access key for %s: %w", user, err)
	}
	if out.AccessKey == nil {
		return nil, fmt.Errorf("create access key for %s: empty response", user)
	}
	pair := &AccessKeyPair{
		AccessKeyID:     aws.ToString(out.AccessKey.AccessKeyId),
		SecretAccessKey: aws.ToString(out.AccessKey.SecretAccessKey),
	}

	fmt.Fprintf(i.out, "- Created AWS Access Key ID (%s): %s\n", user, pair.AccessKeyID)
	fmt.Fprintf(i.out, "- Created AWS Secret Access Key (%s): %s\n", user, obfuscate.Value(pair.SecretAccessKey, show))
	i.log.Info("access key created", "user", user, "access_key_id", pair.AccessKeyID)
	return pair, nil
}

// ExistingKeys lists the access keys userName already has.
func (i *Issuer) ExistingKeys(ctx context.Context, userName string) ([]ExistingKey, error) {
	c, err := i.client()
	if err != nil {
		return nil, err
	}
	return existingKeys(ctx, c, userName)
}

// FindUserName returns the first IAM user name, in name order, that
// pattern matches at its start. It returns "" when none does.
func (i *Issuer) FindUserName(ctx context.Context, pattern string) (string, error) {
	re, err := anchored(pattern)
	if err != nil {
		return "", err
	}
	c, err := i.client()
	if err != nil {
		return "", err
	}
	names, err := userNames(ctx, c, re.MatchString)
	if err != nil {
		return "", err
	}
	if len(names) == 0 {
		return "", nil
	}
	sort.Strings(names)
	return names[0], nil
}

// FindRoleARNs returns the sorted ARNs of every IAM role that pattern
// matches at the start of the ARN.
func (i *Issuer) FindRoleARNs(ctx context.Context, pattern string) ([]string, error) {
	re, err := anchored(pattern)
	if err != nil {
		return nil, err
	}
	c, err := i.client()
	if err != nil {
		return nil, err
	}

	var arns []string
	paginator := iam.NewListRolesPaginator(c, &iam.ListRolesInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list IAM roles: %w", err)
		}
		for _, role := range page.Roles {
			if arn := aws.ToString(role.Arn); re.MatchString(arn) {
				arns = append(arns, arn)
			}
		}
	}
	sort.Strings(arns)
	return arns, nil
}

func anchored(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile("^(?:" + pattern + ")")
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", pattern, err)
	}
	return re, nil
}

// userNames returns the names of all IAM users accepted by keep. The
// ListUsers paginator handles accounts with many users.
func userNames(ctx context.Context, c common.IAMClient, keep func(string) bool) ([]string, error) {
	var names []string
	paginator := iam.NewListUsersPaginator(c, &iam.ListUsersInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list IAM users: %w", err)
		}
		for _, u := range page.Users {
			if name := aws.ToString(u.UserName); keep(name) {
				names = append(names, name)
			}
		}
	}
	return names, nil
}

func existingKeys(ctx context.Context, c common.IAMClient, userName string) ([]ExistingKey, error) {
	out, err := c.ListAccessKeys(ctx, &iam.ListAccessKeysInput{UserName: aws.String(userName)})
	if err != nil {
		return nil, fmt.Errorf("list access keys for %s: %w", userName, err)
	}
	keys := make([]ExistingKey, 0, len(out.AccessKeyMetadata))
	for _, k := range out.AccessKeyMetadata {
		keys = append(keys, ExistingKey{
			ID:      aws.ToString(k.AccessKeyId),
			Created: aws.ToTime(k.CreateDate),
		})
	}
	return keys, nil
}
