package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/credprov/internal/awscontext"
	"github.com/pankaj-dahiya-devops/credprov/internal/config"
	"github.com/pankaj-dahiya-devops/credprov/internal/confirm"
	"github.com/pankaj-dahiya-devops/credprov/internal/logging"
	"github.com/pankaj-dahiya-devops/credprov/internal/providers/aws/common"
)

// rootOptions holds the global flags shared by every subcommand.
type rootOptions struct {
	accessKeyID     string
	secretAccessKey string
	sessionToken    string
	region          string
	credentialsDir  string

	show       bool
	yes        bool
	configPath string
	logLevel   string

	// factory builds service clients for each scope. Tests swap it.
	factory common.ClientFactory
}

// app is everything a subcommand needs once flags and config are merged.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	confirm confirm.Confirmer
	// reveal answers "Show in plaintext?". It is never answered by --yes.
	reveal  confirm.Confirmer
	aws     *awscontext.Context
	show    bool
}

func (o *rootOptions) bindFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()
	f.StringVar(&o.accessKeyID, "access-key-id", "", "AWS access key id (requires --secret-access-key)")
	f.StringVar(&o.secretAccessKey, "secret-access-key", "", "AWS secret access key")
	f.StringVar(&o.sessionToken, "session-token", "", "AWS session token for temporary credentials")
	f.StringVar(&o.region, "region", "", "AWS region (default: config file, then us-east-1)")
	f.StringVar(&o.credentialsDir, "credentials-dir", "", `Directory holding the AWS "credentials" and optional "config" files`)
	f.BoolVar(&o.show, "show", false, "Show sensitive values in plaintext")
	f.BoolVar(&o.yes, "yes", false, "Answer yes to every confirmation")
	f.StringVar(&o.configPath, "config", "", "Config file (default: ~/.config/credprov/config.yaml)")
	f.StringVar(&o.logLevel, "log-level", "", "Log level: debug, info, warn or error")
}

// newApp loads the config file and merges it with the flags. Flags win.
func (o *rootOptions) newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	log := logging.New(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)

	src := awscontext.Source{
		AccessKeyID:     o.accessKeyID,
		SecretAccessKey: o.secretAccessKey,
		SessionToken:    o.sessionToken,
		Region:          firstNonEmpty(o.region, cfg.AWS.Region),
		CredentialsDir:  firstNonEmpty(config.ExpandHome(o.credentialsDir), cfg.AWS.CredentialsDir),
	}

	prompter := confirm.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
	var c, reveal confirm.Confirmer = prompter, prompter
	if o.yes {
		c = confirm.Always(true)
		reveal = confirm.Always(false)
	}

	factory := o.factory
	if factory == nil {
		factory = common.NewClientSet
	}

	return &app{
		cfg:     cfg,
		log:     log,
		confirm: c,
		reveal:  reveal,
		show:    o.show,
		aws: awscontext.New(src,
			awscontext.WithClientFactory(factory),
			awscontext.WithOutput(cmd.OutOrStdout()),
			awscontext.WithLogger(log),
		),
	}, nil
}

// inScope runs fn inside a credential scope built from the merged options.
func (o *rootOptions) inScope(cmd *cobra.Command, display bool, fn func(ctx context.Context, a *app, s *awscontext.Scope) error) error {
	a, err := o.newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	opts := awscontext.EstablishOptions{Display: display, Show: o.show}
	return a.aws.Do(ctx, opts, func(s *awscontext.Scope) error {
		return fn(ctx, a, s)
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func requireValue(name, value, flag string) error {
	if value == "" {
		return fmt.Errorf("no %s given: use %s or set it in the config file", name, flag)
	}
	return nil
}
