// Package awscontext establishes AWS credential scopes that depend only on
// an explicitly chosen credential source. While a scope is open the ambient
// AWS_* environment is cleared and replaced by the source's values; it is
// restored when the scope closes, whatever the outcome.
package awscontext

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/pankaj-dahiya-devops/credprov/internal/logging"
	"github.com/pankaj-dahiya-devops/credprov/internal/obfuscate"
	"github.com/pankaj-dahiya-devops/credprov/internal/providers/aws/common"
)

// active guards the process environment: only one scope may own it.
var active atomic.Bool

// Source is an explicitly chosen credential set. A key pair wins over
// CredentialsDir when both are given.
type Source struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string

	// CredentialsDir holds a "credentials" file and optionally a "config"
	// file in the standard AWS shared-file format.
	CredentialsDir string
}

// Credentials describes the credentials in effect for an open scope.
type Credentials struct {
	CredentialsDir              string
	CredentialsDirSymlinkTarget string
	AccessKeyID                 string
	SecretAccessKey             string
	Region                      string
	AccountNumber               string
	UserARN                     string
}

// EstablishOptions controls what Establish prints.
type EstablishOptions struct {
	// Display prints a summary of the established credentials.
	Display bool

	// Show prints the secret access key in plaintext.
	Show bool
}

// Option configures a Context.
type Option func(*Context)

// WithClientFactory replaces the SDK client constructor. Pass a mock
// factory in tests.
func WithClientFactory(f common.ClientFactory) Option {
	return func(c *Context) { c.factory = f }
}

// WithOutput sets where the credential summary is printed.
func WithOutput(w io.Writer) Option {
	return func(c *Context) { c.out = w }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) { c.log = l }
}

// Context establishes scopes for one Source. It is reusable: each
// Establish call opens a fresh scope.
type Context struct {
	src     Source
	factory common.ClientFactory
	out     io.Writer
	log     *slog.Logger

	mu sync.Mutex
	// resetPending is true until this Context has invalidated the
	// process-wide default config once.
	resetPending bool
}

// New returns a Context for src.
func New(src Source, opts ...Option) *Context {
	c := &Context{
		src:          src,
		factory:      common.NewClientSet,
		out:          os.Stdout,
		log:          logging.Discard(),
		resetPending: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source returns the credential source this Context was created with.
func (c *Context) Source() Source { return c.src }

// Do establishes a scope, runs fn inside it and closes the scope afterwards,
// including when fn panics.
func (c *Context) Do(ctx context.Context, opts EstablishOptions, fn func(*Scope) error) error {
	scope, err := c.Establish(ctx, opts)
	if err != nil {
		return err
	}
	defer scope.Close()
	return fn(scope)
}

// Establish opens a credential scope. The caller must Close the returned
// scope. On error the environment has already been restored.
func (c *Context) Establish(ctx context.Context, opts EstablishOptions) (scope *Scope, err error) {
	if !active.CompareAndSwap(false, true) {
		return nil, ErrScopeActive
	}

	in, dir, err := c.resolveSource()
	if err != nil {
		active.Store(false)
		return nil, err
	}

	saved, err := clearEnv()
	if err != nil {
		active.Store(false)
		return nil, fmt.Errorf("clear AWS environment: %w", err)
	}

	ok := false
	defer func() {
		if !ok {
			saved.restore()
			active.Store(false)
		}
	}()

	if err := setEnv(sourceEnv(in)); err != nil {
		return nil, fmt.Errorf("set AWS environment: %w", err)
	}

	c.mu.Lock()
	if c.resetPending {
		common.ResetDefaultConfig()
		c.resetPending = false
	}
	c.mu.Unlock()

	cfg, err := common.LoadConfig(ctx, in)
	if err != nil {
		return nil, &CredentialError{Err: err}
	}

	keys, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return nil, &CredentialError{Err: fmt.Errorf("AWS session credentials cannot be determined: %w", err)}
	}

	clients := c.factory(cfg)
	identity, err := common.ResolveIdentity(ctx, clients.STS)
	if err != nil {
		return nil, &IdentityResolutionError{Err: err}
	}

	creds := &Credentials{
		CredentialsDir:  dir,
		AccessKeyID:     keys.AccessKeyID,
		SecretAccessKey: keys.SecretAccessKey,
		Region:          cfg.Region,
		AccountNumber:   identity.AccountID,
		UserARN:         identity.ARN,
	}
	if dir != "" {
		creds.CredentialsDirSymlinkTarget = symlinkTarget(dir)
	}

	c.log.Debug("AWS credential scope established",
		"account", creds.AccountNumber,
		"region", creds.Region,
		"access_key_id", creds.AccessKeyID)

	if opts.Display {
		printCredentials(c.out, creds, opts.Show)
	}

	ok = true
	return &Scope{
		creds:   creds,
		cfg:     cfg,
		clients: clients,
		saved:   saved,
		log:     c.log,
	}, nil
}

// resolveSource validates the source without touching the environment and
// returns the config loader input plus the credentials directory in use.
func (c *Context) resolveSource() (common.LoadInput, string, error) {
	src := c.src
	in := common.LoadInput{
		AccessKeyID:     src.AccessKeyID,
		SecretAccessKey: src.SecretAccessKey,
		SessionToken:    src.SessionToken,
		Region:          src.Region,
	}
	if in.HasKeys() {
		return in, "", nil
	}
	if src.CredentialsDir == "" {
		return in, "", &CredentialError{Err: ErrNoCredentials}
	}

	dir := src.CredentialsDir
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return in, "", &CredentialError{Path: dir, Err: ErrCredentialsDirNotFound}
	}
	credFile := filepath.Join(dir, "credentials")
	if info, err := os.Stat(credFile); err != nil || info.IsDir() {
		return in, "", &CredentialError{Path: credFile, Err: ErrCredentialsFileNotFound}
	}
	in.CredentialsFile = credFile

	if in.Region == "" {
		cfgFile := filepath.Join(dir, "config")
		if info, err := os.Stat(cfgFile); err == nil && !info.IsDir() {
			in.ConfigFile = cfgFile
		}
	}
	return in, dir, nil
}

// sourceEnv is the environment a scope publishes for in, so that anything
// else in the process reading AWS_* sees the chosen source.
func sourceEnv(in common.LoadInput) map[string]string {
	env := map[string]string{}
	if in.HasKeys() {
		env["AWS_ACCESS_KEY_ID"] = in.AccessKeyID
		env["AWS_SECRET_ACCESS_KEY"] = in.SecretAccessKey
		env["AWS_SESSION_TOKEN"] = in.SessionToken
	} else {
		env["AWS_SHARED_CREDENTIALS_FILE"] = in.CredentialsFile
		env["AWS_CONFIG_FILE"] = in.ConfigFile
	}
	if in.Region != "" {
		env["AWS_DEFAULT_REGION"] = in.Region
		env["AWS_REGION"] = in.Region
	}
	return env
}

func symlinkTarget(dir string) string {
	info, err := os.Lstat(dir)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return ""
	}
	target, err := os.Readlink(dir)
	if err != nil {
		return ""
	}
	return target
}

func printCredentials(w io.Writer, c *Credentials, show bool) {
	switch {
	case c.CredentialsDirSymlinkTarget != "":
		fmt.Fprintf(w, "Your AWS credentials directory (link): %s@ ->\n", c.CredentialsDir)
		fmt.Fprintf(w, "Your AWS credentials directory (real): %s\n", c.CredentialsDirSymlinkTarget)
	case c.CredentialsDir != "":
		fmt.Fprintf(w, "Your AWS credentials directory: %s\n", c.CredentialsDir)
	}
	fmt.Fprintf(w, "Your AWS access key: %s\n", c.AccessKeyID)
	fmt.Fprintf(w, "Your AWS access secret: %s\n", obfuscate.Value(c.SecretAccessKey, show))
	fmt.Fprintf(w, "Your AWS region: %s\n", c.Region)
	fmt.Fprintf(w, "Your AWS account number: %s\n", c.AccountNumber)
	fmt.Fprintf(w, "Your AWS account user ARN: %s\n", c.UserARN)
}

// ---------------------------------------------------------------------------
// Scope
// ---------------------------------------------------------------------------

// Scope is an open credential scope. It implements common.Session.
type Scope struct {
	mu      sync.Mutex
	creds   *Credentials
	cfg     aws.Config
	clients *common.ClientSet
	saved   savedEnv
	log     *slog.Logger
	closed  bool
}

// Clients returns the service clients bound to this scope's credentials.
func (s *Scope) Clients() (*common.ClientSet, error) {
	if s == nil {
		return nil, ErrNoActiveScope
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrNoActiveScope
	}
	return s.clients, nil
}

// Credentials returns a copy of the credentials in effect.
func (s *Scope) Credentials() (Credentials, error) {
	if s == nil {
		return Credentials{}, ErrNoActiveScope
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Credentials{}, ErrNoActiveScope
	}
	return *s.creds, nil
}

// Config returns the aws.Config the scope was built from.
func (s *Scope) Config() (aws.Config, error) {
	if s == nil {
		return aws.Config{}, ErrNoActiveScope
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return aws.Config{}, ErrNoActiveScope
	}
	return s.cfg, nil
}

// Close restores the environment captured when the scope was opened and
// releases the process-wide scope slot. It is safe to call more than once.
func (s *Scope) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.saved.restore()
	s.closed = true
	s.creds = nil
	s.clients = nil
	s.cfg = aws.Config{}
	active.Store(false)
	s.log.Debug("AWS credential scope closed")
	return nil
}
