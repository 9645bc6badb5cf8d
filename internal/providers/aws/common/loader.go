package common

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// DefaultRegion is used when neither the source nor its config file names
// a region, so that all SDK clients can be constructed successfully.
const DefaultRegion = "us-east-1"

// LoadInput is one explicit credential source. Either the key pair or the
// CredentialsFile must be set; the key pair wins when both are.
type LoadInput struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string

	// Region overrides any region found in ConfigFile.
	Region string

	// CredentialsFile and ConfigFile are shared-file paths. ConfigFile may
	// be empty.
	CredentialsFile string
	ConfigFile      string
}

// HasKeys reports whether the input carries explicit key material.
func (in LoadInput) HasKeys() bool {
	return in.AccessKeyID != "" && in.SecretAccessKey != ""
}

// LoadConfig builds an aws.Config from exactly the given source. Shared
// files other than the ones named in the input are never consulted.
func LoadConfig(ctx context.Context, in LoadInput) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error

	switch {
	case in.HasKeys():
		opts = append(opts,
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				in.AccessKeyID, in.SecretAccessKey, in.SessionToken)),
			awsconfig.WithSharedCredentialsFiles([]string{}),
			awsconfig.WithSharedConfigFiles([]string{}),
		)
	case in.CredentialsFile != "":
		configFiles := []string{}
		if in.ConfigFile != "" {
			configFiles = append(configFiles, in.ConfigFile)
		}
		opts = append(opts,
			awsconfig.WithSharedCredentialsFiles([]string{in.CredentialsFile}),
			awsconfig.WithSharedConfigFiles(configFiles),
		)
	default:
		return aws.Config{}, fmt.Errorf("load AWS config: no key pair or credentials file given")
	}

	if in.Region != "" {
		opts = append(opts, awsconfig.WithRegion(in.Region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}

	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	return cfg, nil
}

// ResolveIdentity calls STS GetCallerIdentity to retrieve the account and
// caller ARN for the credentials currently loaded in stsClient.
func ResolveIdentity(ctx context.Context, stsClient STSClient) (*Identity, error) {
	out, err := stsClient.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("STS GetCallerIdentity: %w", err)
	}
	if out.Account == nil {
		return nil, fmt.Errorf("STS GetCallerIdentity returned nil account")
	}
	return &Identity{
		AccountID: aws.ToString(out.Account),
		ARN:       aws.ToString(out.Arn),
		UserID:    aws.ToString(out.UserId),
	}, nil
}

// ---------------------------------------------------------------------------
// Process-wide default configuration
// ---------------------------------------------------------------------------

var defaultConfig struct {
	mu         sync.Mutex
	cfg        *aws.Config
	generation uint64
}

// DefaultConfig returns the ambient aws.Config, loading it on first use and
// caching it for the life of the process. The cache is dropped by
// ResetDefaultConfig so the next call observes the current environment.
func DefaultConfig(ctx context.Context) (aws.Config, error) {
	defaultConfig.mu.Lock()
	defer defaultConfig.mu.Unlock()

	if defaultConfig.cfg != nil {
		return *defaultConfig.cfg, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load default AWS config: %w", err)
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	defaultConfig.cfg = &cfg
	return cfg, nil
}

// ResetDefaultConfig discards the cached ambient config.
func ResetDefaultConfig() {
	defaultConfig.mu.Lock()
	defer defaultConfig.mu.Unlock()
	defaultConfig.cfg = nil
	defaultConfig.generation++
}

// DefaultConfigGeneration counts how many times the ambient config cache
// has been reset.
func DefaultConfigGeneration() uint64 {
	defaultConfig.mu.Lock()
	defer defaultConfig.mu.Unlock()
	return defaultConfig.generation
}

// ---------------------------------------------------------------------------
// Shared file inspection
// ---------------------------------------------------------------------------

// ProfileNames reads a credentials file and an optional config file and
// returns the deduplicated profile names found, credentials file first.
// Missing files contribute nothing.
func ProfileNames(credentialsFile, configFile string) ([]string, error) {
	credProfiles, err := parseProfilesFromFile(credentialsFile, false)
	if err != nil {
		return nil, err
	}

	var cfgProfiles []string
	if configFile != "" {
		cfgProfiles, err = parseProfilesFromFile(configFile, true)
		if err != nil {
			return nil, err
		}
	}

	seen := make(map[string]bool)
	var all []string
	for _, name := range append(credProfiles, cfgProfiles...) {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		all = append(all, name)
	}
	return all, nil
}

// parseProfilesFromFile scans path for INI section headers ([...]) and
// returns the profile name from each header.
//
// When stripProfilePrefix is true, the "profile " prefix used in config
// files is removed ("[profile staging]" becomes "staging").
//
// If the file does not exist, nil is returned without an error.
func parseProfilesFromFile(path string, stripProfilePrefix bool) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var profiles []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "[") || !strings.HasSuffix(line, "]") {
			continue
		}

		name := line[1 : len(line)-1]
		if stripProfilePrefix && name != "default" {
			name = strings.TrimPrefix(name, "profile ")
		}
		profiles = append(profiles, strings.TrimSpace(name))
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	return profiles, nil
}
