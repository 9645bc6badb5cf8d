package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

var validLevels = map[string]struct{}{
	"debug":   {},
	"info":    {},
	"warn":    {},
	"warning": {},
	"error":   {},
}

var validFormats = map[string]struct{}{
	"text": {},
	"json": {},
}

// Validate checks cfg for semantic correctness and returns all validation
// errors found. An empty slice means the config is valid.
//
// All errors are collected before returning; Validate never stops at the
// first error.
func Validate(cfg *Config) []error {
	if cfg == nil {
		return []error{fmt.Errorf("config is nil")}
	}

	var errs []error

	if cfg.Version != DefaultVersion {
		errs = append(errs, fmt.Errorf("version: unsupported value %d; must be 1", cfg.Version))
	}

	if dir := cfg.AWS.CredentialsDir; dir != "" {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			errs = append(errs, fmt.Errorf("aws.credentials_dir: %s is not a directory", dir))
		}
	}

	for field, pattern := range map[string]string{
		"kms.sid_pattern":  cfg.KMS.SidPattern,
		"kms.role_pattern": cfg.KMS.RolePattern,
	} {
		if _, err := regexp.Compile(pattern); err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid pattern %q: %v", field, pattern, err))
		}
	}

	if _, ok := validLevels[strings.ToLower(cfg.Log.Level)]; !ok {
		errs = append(errs, fmt.Errorf("log.level: invalid value %q; valid values: debug, info, warn, error", cfg.Log.Level))
	}
	if _, ok := validFormats[strings.ToLower(cfg.Log.Format)]; !ok {
		errs = append(errs, fmt.Errorf("log.format: invalid value %q; valid values: text, json", cfg.Log.Format))
	}

	return errs
}
