package config

// Config is the top-level application configuration.
// It is loaded from ~/.config/credprov/config.yaml and must never hold
// access keys; credentials come from a credentials directory or flags.
type Config struct {
	Version int           `yaml:"version"  json:"version"`
	AWS     AWSConfig     `yaml:"aws"      json:"aws"`
	Secrets SecretsConfig `yaml:"secrets"  json:"secrets"`
	KMS     KMSConfig     `yaml:"kms"      json:"kms"`
	Log     LogConfig     `yaml:"log"      json:"log"`
}

// AWSConfig holds AWS-specific defaults used when flags are not provided.
type AWSConfig struct {
	// CredentialsDir holds the "credentials" and optional "config" files
	// a credential scope is established from.
	CredentialsDir string `yaml:"credentials_dir" json:"credentials_dir"`

	// Region is used when the credentials directory has no config file.
	Region string `yaml:"region" json:"region"`
}

// SecretsConfig names the secret most commands operate on.
type SecretsConfig struct {
	Name string `yaml:"name" json:"name"`
}

// KMSConfig selects the key policy statement the principal reconciler
// maintains and the roles it should grant.
type KMSConfig struct {
	KeyID string `yaml:"key_id" json:"key_id"`

	// SidPattern selects the statement by Sid, matched at the start.
	SidPattern string `yaml:"sid_pattern" json:"sid_pattern"`

	// RolePattern selects the IAM role ARNs that must be principals.
	RolePattern string `yaml:"role_pattern" json:"role_pattern"`
}

// LogConfig configures diagnostic logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level" json:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format" json:"format"`
}

// Defaults.
const (
	DefaultVersion     = 1
	DefaultSidPattern  = "Allow use of the key"
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	defaultPathElement = ".config/credprov/config.yaml"
)
