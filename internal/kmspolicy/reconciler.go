// Package kmspolicy reconciles the AWS principal list of one statement in
// a KMS key policy against a desired set. Reconciliation only ever adds
// principals.
package kmspolicy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"

	"github.com/pankaj-dahiya-devops/credprov/internal/confirm"
	"github.com/pankaj-dahiya-devops/credprov/internal/logging"
	"github.com/pankaj-dahiya-devops/credprov/internal/providers/aws/common"
)

// PolicyName is the only key policy name KMS supports.
const PolicyName = "default"

// Reconciler reads and writes key policies through a credential scope.
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

func (r *Reconciler) client() (common.KMSClient, error) {
	clients, err := r.session.Clients()
	if err != nil {
		return nil, err
	}
	return clients.KMS, nil
}

// GetPolicy fetches and parses the key policy of keyID.
func (r *Reconciler) GetPolicy(ctx context.Context, keyID string) (*Document, error) {
	k, err := r.client()
	if err != nil {
		return nil, err
	}
	out, err := k.GetKeyPolicy(ctx, &kms.GetKeyPolicyInput{
		KeyId:      aws.String(keyID),
		PolicyName: aws.String(PolicyName),
	})
	if err != nil {
		return nil, fmt.Errorf("get key policy for %s: %w", keyID, err)
	}
	return ParseDocument([]byte(aws.ToString(out.Policy)))
}

// ApplyPolicy replaces the key policy of keyID with doc.
func (r *Reconciler) ApplyPolicy(ctx context.Context, keyID string, doc *Document) error {
	k, err := r.client()
	if err != nil {
		return err
	}
	body, err := doc.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode key policy for %s: %w", keyID, err)
	}
	if _, err := k.PutKeyPolicy(ctx, &kms.PutKeyPolicyInput{
		KeyId:      aws.String(keyID),
		PolicyName: aws.String(PolicyName),
		Policy:     aws.String(string(body)),
	}); err != nil {
		return fmt.Errorf("put key policy for %s: %w", keyID, err)
	}
	return nil
}

// ReconcilePrincipals makes sure every principal in desired appears in the
// statement of keyID's policy selected by sidPattern. Missing principals are
// listed and, once confirmed, added. It returns how many were added; zero
// with a nil error means nothing was missing or the operator declined.
func (r *Reconciler) ReconcilePrincipals(ctx context.Context, keyID, sidPattern string, desired []string) (int, error) {
	doc, err := r.GetPolicy(ctx, keyID)
	if err != nil {
		return 0, err
	}
	stmt, err := doc.Statement(sidPattern)
	if err != nil {
		return 0, fmt.Errorf("key %s: %w", keyID, err)
	}
	current := stmt.Principals()
	r.log.Debug("key policy principals", "key_id", keyID, "count", len(current))

	missing := Missing(current, desired)
	if len(missing) == 0 {
		fmt.Fprintf(r.out, "All roles already currently present in KMS key principals: %s\n", keyID)
		return 0, nil
	}

	if err := stmt.checkAmendable(); err != nil {
		return 0, fmt.Errorf("key %s: %w", keyID, err)
	}

	fmt.Fprintf(r.out, "Roles not currently present in KMS key principals: %s\n", keyID)
	for _, p := range missing {
		fmt.Fprintf(r.out, "- %s\n", p)
	}
	if !r.confirm.Confirm(fmt.Sprintf("Update KMS policy with these roles for: %s?", keyID)) {
		r.log.Info("key policy update declined", "key_id", keyID)
		return 0, nil
	}

	added, err := AmendPolicy(doc, sidPattern, missing)
	if err != nil {
		return 0, err
	}
	if err := r.ApplyPolicy(ctx, keyID, doc); err != nil {
		return 0, err
	}
	r.log.Info("key policy updated", "key_id", keyID, "added", added)
	return added, nil
}

// CustomerManagedKeys returns the ids of every customer managed key in
// the account and region.
func (r *Reconciler) CustomerManagedKeys(ctx context.Context) ([]string, error) {
	k, err := r.client()
	if err != nil {
		return nil, err
	}

	var keys []string
	paginator := kms.NewListKeysPaginator(k, &kms.ListKeysInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list KMS keys: %w", err)
		}
		for _, entry := range page.Keys {
			id := aws.ToString(entry.KeyId)
			desc, err := k.DescribeKey(ctx, &kms.DescribeKeyInput{KeyId: aws.String(id)})
			if err != nil {
				return nil, fmt.Errorf("describe KMS key %s: %w", id, err)
			}
			if desc.KeyMetadata != nil && desc.KeyMetadata.KeyManager == kmstypes.KeyManagerTypeCustomer {
				keys = append(keys, id)
			}
		}
	}
	return keys, nil
}
