// Package secrets reconciles individual keys inside Secrets Manager secrets
// whose value is a flat JSON object.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/pankaj-dahiya-devops/credprov/internal/confirm"
	"github.com/pankaj-dahiya-devops/credprov/internal/logging"
	"github.com/pankaj-dahiya-devops/credprov/internal/obfuscate"
	"github.com/pankaj-dahiya-devops/credprov/internal/providers/aws/common"
)

// ErrSecretNotFound is returned by GetSecretValue for an unknown secret.
var ErrSecretNotFound = errors.New("AWS secret name does not exist")

// Reconciler reads and rewrites secret keys through a credential scope.
type Reconciler struct {
	session common.Session
	confirm confirm.Confirmer
	reveal  confirm.Confirmer
	out     io.Writer
	log     *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithConfirmer sets who answers confirmation questions.
func WithConfirmer(c confirm.Confirmer) Option {
	return func(r *Reconciler) { r.confirm = c }
}

// WithRevealer sets who is asked whether a sensitive value may be shown in
// plaintext. Without it sensitive values stay masked.
func WithRevealer(c confirm.Confirmer) Option {
	return func(r *Reconciler) { r.reveal = c }
}

// WithOutput sets where progress is reported.
func WithOutput(w io.Writer) Option {
	return func(r *Reconciler) { r.out = w }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) { r.log = l }
}

// NewReconciler returns a Reconciler using s for all remote calls. Without
// WithConfirmer every confirmation is declined.
func NewReconciler(s common.Session, opts ...Option) *Reconciler {
	r := &Reconciler{
		session: s,
		confirm: confirm.Always(false),
		reveal:  confirm.Always(false),
		out:     os.Stdout,
		log:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Reconciler) client() (common.SecretsManagerClient, error) {
	clients, err := r.session.Clients()
	if err != nil {
		return nil, err
	}
	return clients.SecretsManager, nil
}

// fetch reads and parses a secret. A missing secret is reported as
// ErrSecretNotFound.
func (r *Reconciler) fetch(ctx context.Context, sm common.SecretsManagerClient, secretName string) (*Record, error) {
	out, err := sm.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretName),
	})
	if err != nil {
		if common.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrSecretNotFound, secretName)
		}
		return nil, fmt.Errorf("get secret %s: %w", secretName, err)
	}
	if out.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", secretName)
	}
	rec, err := ParseRecord(aws.ToString(out.SecretString))
	if err != nil {
		return nil, fmt.Errorf("secret %s: %w", secretName, err)
	}
	return rec, nil
}

// GetSecret returns the whole key/value record of secretName.
func (r *Reconciler) GetSecret(ctx context.Context, secretName string) (*Record, error) {
	sm, err := r.client()
	if err != nil {
		return nil, err
	}
	return r.fetch(ctx, sm, secretName)
}

// GetSecretValue returns the value of keyName inside secretName. The bool
// is false when the secret exists but has no such key.
func (r *Reconciler) GetSecretValue(ctx context.Context, secretName, keyName string) (string, bool, error) {
	sm, err := r.client()
	if err != nil {
		return "", false, err
	}
	rec, err := r.fetch(ctx, sm, secretName)
	if err != nil {
		return "", false, err
	}
	value, ok := rec.Get(keyName)
	return value, ok, nil
}

// UpdateSecretKey moves keyName inside secretName to target, creating the
// key when absent. A nil target deactivates the key by prefixing its current
// value with DeactivatedPrefix. The whole secret is rewritten with only this
// key changed.
//
// It returns true when the secret was written, false with a nil error when
// nothing needed doing or the operator declined, and a non-nil error when a
// remote call failed.
func (r *Reconciler) UpdateSecretKey(ctx context.Context, secretName, keyName string, target *string, show bool) (bool, error) {
	sm, err := r.client()
	if err != nil {
		return false, err
	}

	fmt.Fprintln(r.out)
	rec, err := r.fetch(ctx, sm, secretName)
	if errors.Is(err, ErrSecretNotFound) {
		fmt.Fprintf(r.out, "AWS secret name does not exist: %s\n", secretName)
		r.log.Warn("secret not found", "secret", secretName)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	current, exists := rec.Get(keyName)
	change := Plan(current, exists, target)
	ref := secretName + "." + keyName

	if exists {
		r.printSecret("Current", ref, keyName, current, show)
	}
	switch change.Reason {
	case ReasonNothingToDeactivate:
		fmt.Fprintf(r.out, "AWS secret %s does not exist. Nothing to deactivate.\n", ref)
		return false, nil
	case ReasonAlreadyDeactivated:
		fmt.Fprintf(r.out, "AWS secret %s is already deactivated. Nothing to do.\n", ref)
		return false, nil
	case ReasonUnchanged:
		fmt.Fprintf(r.out, "New value of AWS secret (%s) same as current one. Nothing to update.\n", ref)
		return false, nil
	}

	switch change.Action {
	case ActionCreate:
		fmt.Fprintf(r.out, "AWS secret %s does not yet exist.\n", ref)
		r.printSecret("New", ref, keyName, change.Value, show)
	case ActionUpdate:
		r.printSecret("New", ref, keyName, change.Value, show)
	}

	if !r.confirm.Confirm(fmt.Sprintf("Are you sure you want to %s AWS secret %s?", change.Action, ref)) {
		r.log.Info("secret change declined", "secret", secretName, "key_name", keyName, "action", change.Action.String())
		return false, nil
	}

	rec.Set(keyName, change.Value)
	if _, err := sm.UpdateSecret(ctx, &secretsmanager.UpdateSecretInput{
		SecretId:     aws.String(secretName),
		SecretString: aws.String(rec.String()),
	}); err != nil {
		return false, fmt.Errorf("update secret %s: %w", secretName, err)
	}

	r.log.Info("secret key updated", "secret", secretName, "key_name", keyName, "action", change.Action.String())
	return true, nil
}

// printSecret reports one value of a secret key. Values of sensitive keys
// are masked unless show is set or the revealer agrees to show them.
func (r *Reconciler) printSecret(prefix, ref, keyName, value string, show bool) {
	if value == "" {
		fmt.Fprintf(r.out, "%s value of AWS secret %s has no value.\n", prefix, ref)
		return
	}
	suffix := ""
	if IsDeactivated(value) {
		suffix = " is deactivated"
	}
	if obfuscate.ShouldObfuscate(keyName) && !show {
		fmt.Fprintf(r.out, "%s value of AWS secret looks like it is sensitive: %s\n", prefix, ref)
		value = obfuscate.Value(value, r.reveal.Confirm("Show in plaintext?"))
	}
	fmt.Fprintf(r.out, "%s value of AWS secret %s%s: %s\n", prefix, ref, suffix, value)
}

// FindSecretName returns the first secret name in which pattern matches
// anywhere. It returns "" when nothing matches.
func (r *Reconciler) FindSecretName(ctx context.Context, pattern string) (string, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("secret name pattern %q: %w", pattern, err)
	}
	sm, err := r.client()
	if err != nil {
		return "", err
	}

	paginator := secretsmanager.NewListSecretsPaginator(sm, &secretsmanager.ListSecretsInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return "", fmt.Errorf("list secrets: %w", err)
		}
		for _, s := range page.SecretList {
			name := aws.ToString(s.Name)
			if re.MatchString(name) {
				return name, nil
			}
		}
	}
	return "", nil
}
