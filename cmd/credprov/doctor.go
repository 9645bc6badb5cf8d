package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pankaj-dahiya-devops/credprov/internal/awscontext"
	"github.com/pankaj-dahiya-devops/credprov/internal/config"
	"github.com/pankaj-dahiya-devops/credprov/internal/providers/aws/common"
)

// DoctorResult is the structured output of credprov doctor. It can be
// serialised to JSON via --format=json or rendered as a human-readable
// table (default).
type DoctorResult struct {
	Config struct {
		Path   string   `json:"path,omitempty"`
		Valid  bool     `json:"valid"`
		Errors []string `json:"errors,omitempty"`
	} `json:"config"`

	Credentials struct {
		Source          string   `json:"source"`
		Dir             string   `json:"dir,omitempty"`
		CredentialsFile bool     `json:"credentials_file"`
		ConfigFile      bool     `json:"config_file"`
		Profiles        []string `json:"profiles,omitempty"`
		Error           string   `json:"error,omitempty"`
	} `json:"credentials"`

	// Ambient is the configuration the SDK would pick up outside a scope.
	Ambient struct {
		Region string `json:"region,omitempty"`
		Error  string `json:"error,omitempty"`
	} `json:"ambient"`

	AWS struct {
		Identity  bool   `json:"identity_ok"`
		AccountID string `json:"account_id,omitempty"`
		UserARN   string `json:"user_arn,omitempty"`
		Region    string `json:"region,omitempty"`
		Error     string `json:"error,omitempty"`
	} `json:"aws"`

	OverallHealthy bool `json:"overall_healthy"`
}

func newDoctorCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run environment diagnostics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			result, err := runDoctor(ctx, cmd, opts, cmd.OutOrStdout(), format)
			if err != nil {
				return err
			}
			if !result.OverallHealthy {
				return errUnhealthy
			}
			return nil
		},
	}
	cmd.Flags().String("format", "table", `Output format: "table" or "json"`)
	return cmd
}

// errUnhealthy is returned when diagnostics fail; the details have already
// been rendered.
var errUnhealthy = errors.New("environment is not healthy")

// runDoctor collects all diagnostic results, renders them to w in the
// requested format, and returns the result. The returned error covers only
// rendering failures; callers inspect result.OverallHealthy.
func runDoctor(ctx context.Context, cmd *cobra.Command, opts *rootOptions, w io.Writer, format string) (DoctorResult, error) {
	result := collectDoctorResult(ctx, cmd, opts)

	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return result, fmt.Errorf("encode doctor result: %w", err)
		}
	default:
		renderDoctorTable(result, w)
	}
	return result, nil
}

// collectDoctorResult runs all environment checks and populates a
// DoctorResult. It performs no rendering.
func collectDoctorResult(ctx context.Context, cmd *cobra.Command, opts *rootOptions) DoctorResult {
	var result DoctorResult

	// Config: load → validate. A missing default file is fine.
	result.Config.Path = firstNonEmpty(opts.configPath, config.DefaultPath())
	a, err := opts.newApp(cmd)
	if err != nil {
		result.Config.Errors = []string{err.Error()}
		return result
	}
	if errs := config.Validate(a.cfg); len(errs) > 0 {
		for _, e := range errs {
			result.Config.Errors = append(result.Config.Errors, e.Error())
		}
	} else {
		result.Config.Valid = true
	}

	// Credentials: key pair, or directory layout.
	src := a.aws.Source()
	switch {
	case src.AccessKeyID != "":
		result.Credentials.Source = "access key"
		result.Credentials.CredentialsFile = true
	case src.CredentialsDir != "":
		result.Credentials.Source = "directory"
		result.Credentials.Dir = src.CredentialsDir
		result.Credentials.CredentialsFile = isFile(filepath.Join(src.CredentialsDir, "credentials"))
		result.Credentials.ConfigFile = isFile(filepath.Join(src.CredentialsDir, "config"))
		if result.Credentials.CredentialsFile {
			configFile := ""
			if result.Credentials.ConfigFile {
				configFile = filepath.Join(src.CredentialsDir, "config")
			}
			profiles, err := common.ProfileNames(filepath.Join(src.CredentialsDir, "credentials"), configFile)
			if err != nil {
				result.Credentials.Error = err.Error()
			}
			result.Credentials.Profiles = profiles
		}
	default:
		result.Credentials.Source = "none"
		result.Credentials.Error = awscontext.ErrNoCredentials.Error()
	}

	// Ambient: what a scope hides. Loaded before the scope so it reflects
	// the caller's own environment.
	if ambient, err := common.DefaultConfig(ctx); err != nil {
		result.Ambient.Error = err.Error()
	} else {
		result.Ambient.Region = ambient.Region
	}

	// AWS: establish a scope → STS identity.
	if result.Credentials.Error == "" {
		err := a.aws.Do(ctx, awscontext.EstablishOptions{}, func(s *awscontext.Scope) error {
			creds, err := s.Credentials()
			if err != nil {
				return err
			}
			result.AWS.Identity = true
			result.AWS.AccountID = creds.AccountNumber
			result.AWS.UserARN = creds.UserARN
			result.AWS.Region = creds.Region
			return nil
		})
		if err != nil {
			result.AWS.Error = err.Error()
		}
	}

	result.OverallHealthy = result.Config.Valid &&
		result.Credentials.CredentialsFile &&
		result.AWS.Identity
	return result
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// renderDoctorTable writes the human-readable diagnostic output from result to w.
func renderDoctorTable(result DoctorResult, w io.Writer) {
	fmt.Fprintln(w, "Environment Diagnostics")

	fmt.Fprintln(w, "\nConfig:")
	doctorPrint(w, "File", result.Config.Path, "")
	if result.Config.Valid {
		doctorPrint(w, "Config valid", "OK", "")
	} else {
		for _, e := range result.Config.Errors {
			doctorPrint(w, "Config valid", "FAIL", e)
		}
	}

	fmt.Fprintf(w, "\nCredentials (source: %s):\n", result.Credentials.Source)
	switch {
	case result.Credentials.Error != "":
		doctorPrint(w, "Credentials", "FAIL", result.Credentials.Error)
	case result.Credentials.Dir != "":
		doctorPrint(w, "Directory", "OK", result.Credentials.Dir)
		if result.Credentials.CredentialsFile {
			doctorPrint(w, "credentials file", "OK", "")
		} else {
			doctorPrint(w, "credentials file", "FAIL", "missing")
		}
		if result.Credentials.ConfigFile {
			doctorPrint(w, "config file", "OK", "")
		} else {
			doctorPrint(w, "config file", "Not found (optional)", "")
		}
	default:
		doctorPrint(w, "Credentials", "OK", "")
	}
	if len(result.Credentials.Profiles) > 0 {
		doctorPrint(w, "Profiles", strings.Join(result.Credentials.Profiles, ", "), "")
	}

	fmt.Fprintln(w, "\nAmbient (ignored inside scopes):")
	switch {
	case result.Ambient.Error != "":
		doctorPrint(w, "Default config", "FAIL", result.Ambient.Error)
	case result.Ambient.Region != "":
		doctorPrint(w, "Region", result.Ambient.Region, "")
	default:
		doctorPrint(w, "Region", "none", "")
	}

	fmt.Fprintln(w, "\nAWS:")
	switch {
	case result.AWS.Identity:
		doctorPrint(w, "STS Identity", "OK", "Account: "+result.AWS.AccountID)
		doctorPrint(w, "User ARN", result.AWS.UserARN, "")
		doctorPrint(w, "Region", result.AWS.Region, "")
	case result.AWS.Error != "":
		doctorPrint(w, "STS Identity", "FAIL", result.AWS.Error)
	default:
		doctorPrint(w, "STS Identity", "FAIL", "skipped")
	}
}

// doctorPrint writes a single diagnostic check line to w.
// When detail is non-empty it is appended in parentheses.
func doctorPrint(w io.Writer, label, status, detail string) {
	if detail != "" {
		fmt.Fprintf(w, "  %s: %s (%s)\n", label, status, detail)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", label, status)
	}
}
