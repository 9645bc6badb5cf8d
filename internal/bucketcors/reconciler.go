package bucketcors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/pankaj-dahiya-devops/credprov/internal/confirm"
	"github.com/pankaj-dahiya-devops/credprov/internal/logging"
	"github.com/pankaj-dahiya-devops/credprov/internal/providers/aws/common"
)

// noCORSCode is what S3 answers for a bucket without a CORS configuration.
const noCORSCode = "NoSuchCORSConfiguration"

// ErrBucketNotFound is returned by EnsureRule when the bucket does not exist.
var ErrBucketNotFound = errors.New("bucket not found")

// Reconciler manages bucket CORS rules through a credential scope.
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

func (r *Reconciler) client() (common.S3Client, error) {
	clients, err := r.session.Clients()
	if err != nil {
		return nil, err
	}
	return clients.S3, nil
}

// GetRules returns the CORS rules of bucket. It returns nil when the bucket
// does not exist and an empty, non-nil slice when the bucket has no CORS
// configuration.
func (r *Reconciler) GetRules(ctx context.Context, bucket string) ([]Rule, error) {
	c, err := r.client()
	if err != nil {
		return nil, err
	}
	out, err := c.GetBucketCors(ctx, &s3.GetBucketCorsInput{Bucket: aws.String(bucket)})
	if err != nil {
		switch {
		case common.HasCode(err, noCORSCode):
			return []Rule{}, nil
		case common.IsNotFound(err):
			return nil, nil
		}
		return nil, fmt.Errorf("get CORS rules of %s: %w", bucket, err)
	}
	rules := make([]Rule, 0, len(out.CORSRules))
	for _, cr := range out.CORSRules {
		rules = append(rules, ruleFromSDK(cr))
	}
	return rules, nil
}

// PutRules replaces the whole CORS configuration of bucket with rules.
func (r *Reconciler) PutRules(ctx context.Context, bucket string, rules []Rule) error {
	c, err := r.client()
	if err != nil {
		return err
	}
	sdk := make([]s3types.CORSRule, 0, len(rules))
	for _, rule := range rules {
		sdk = append(sdk, rule.sdk())
	}
	_, err = c.PutBucketCors(ctx, &s3.PutBucketCorsInput{
		Bucket:            aws.String(bucket),
		CORSConfiguration: &s3types.CORSConfiguration{CORSRules: sdk},
	})
	if err != nil {
		return fmt.Errorf("put CORS rules of %s: %w", bucket, err)
	}
	return nil
}

// EnsureRule appends rule to the CORS configuration of bucket unless an
// equivalent rule is already present. It reports whether the configuration
// was changed.
func (r *Reconciler) EnsureRule(ctx context.Context, bucket string, rule Rule) (bool, error) {
	rules, err := r.GetRules(ctx, bucket)
	if err != nil {
		return false, err
	}
	if rules == nil {
		fmt.Fprintf(r.out, "AWS S3 bucket does not exist: %s\n", bucket)
		return false, ErrBucketNotFound
	}

	for _, existing := range rules {
		if existing.Equivalent(rule) {
			fmt.Fprintf(r.out, "- S3 bucket %s CORS rule already exists: %s\n", bucket, existing)
			return false, nil
		}
	}
	fmt.Fprintf(r.out, "- S3 bucket %s CORS rule does not exist: %s\n", bucket, rule)
	if len(rules) > 0 {
		fmt.Fprintf(r.out, "- S3 bucket %s has %d other CORS rule(s) which will be kept.\n", bucket, len(rules))
	}
	if !r.confirm.Confirm(fmt.Sprintf("Add S3 bucket %s CORS rule: %s ?", bucket, rule)) {
		return false, nil
	}

	if err := r.PutRules(ctx, bucket, append(rules, rule)); err != nil {
		return false, err
	}
	fmt.Fprintf(r.out, "- Added S3 bucket %s CORS rule: %s\n", bucket, rule)
	r.log.Info("CORS rule added", "bucket", bucket, "rules", len(rules)+1)
	return true, nil
}
