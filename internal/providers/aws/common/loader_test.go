package common

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── mocks ──────────────────────────────────────────────────────────────────

type mockSTS struct {
	out *sts.GetCallerIdentityOutput
	err error
}

func (m *mockSTS) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	return m.out, m.err
}

func clearAmbientAWS(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"AWS_ACCESS_KEY_ID", "AWS_SECRET_ACCESS_KEY", "AWS_SESSION_TOKEN",
		"AWS_REGION", "AWS_DEFAULT_REGION", "AWS_PROFILE",
	} {
		t.Setenv(name, "")
	}
	t.Setenv("AWS_SHARED_CREDENTIALS_FILE", os.DevNull)
	t.Setenv("AWS_CONFIG_FILE", os.DevNull)
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

// ── LoadConfig ─────────────────────────────────────────────────────────────

func TestLoadConfig_StaticKeys(t *testing.T) {
	clearAmbientAWS(t)

	cfg, err := LoadConfig(context.Background(), LoadInput{
		AccessKeyID:     "AKIAEXAMPLE",
		SecretAccessKey: "s3cr3t",
		Region:          "eu-west-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIAEXAMPLE", creds.AccessKeyID)
	assert.Equal(t, "s3cr3t", creds.SecretAccessKey)
}

func TestLoadConfig_RegionFallback(t *testing.T) {
	clearAmbientAWS(t)

	cfg, err := LoadConfig(context.Background(), LoadInput{
		AccessKeyID:     "AKIAEXAMPLE",
		SecretAccessKey: "s3cr3t",
	})
	require.NoError(t, err)
	assert.Equal(t, DefaultRegion, cfg.Region)
}

func TestLoadConfig_SharedFiles(t *testing.T) {
	clearAmbientAWS(t)
	dir := t.TempDir()
	credFile := filepath.Join(dir, "credentials")
	cfgFile := filepath.Join(dir, "config")
	writeFile(t, credFile, "[default]\naws_access_key_id = AKIAFILE\naws_secret_access_key = filesecret\n")
	writeFile(t, cfgFile, "[default]\nregion = ap-southeast-2\n")

	cfg, err := LoadConfig(context.Background(), LoadInput{
		CredentialsFile: credFile,
		ConfigFile:      cfgFile,
	})
	require.NoError(t, err)
	assert.Equal(t, "ap-southeast-2", cfg.Region)

	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIAFILE", creds.AccessKeyID)
}

func TestLoadConfig_ExplicitRegionBeatsConfigFile(t *testing.T) {
	clearAmbientAWS(t)
	dir := t.TempDir()
	credFile := filepath.Join(dir, "credentials")
	cfgFile := filepath.Join(dir, "config")
	writeFile(t, credFile, "[default]\naws_access_key_id = AKIAFILE\naws_secret_access_key = filesecret\n")
	writeFile(t, cfgFile, "[default]\nregion = ap-southeast-2\n")

	cfg, err := LoadConfig(context.Background(), LoadInput{
		CredentialsFile: credFile,
		ConfigFile:      cfgFile,
		Region:          "us-west-2",
	})
	require.NoError(t, err)
	assert.Equal(t, "us-west-2", cfg.Region)
}

func TestLoadConfig_NoSource(t *testing.T) {
	_, err := LoadConfig(context.Background(), LoadInput{Region: "us-east-1"})
	assert.Error(t, err)
}

// ── ResolveIdentity ────────────────────────────────────────────────────────

func TestResolveIdentity(t *testing.T) {
	id, err := ResolveIdentity(context.Background(), &mockSTS{out: &sts.GetCallerIdentityOutput{
		Account: aws.String("123456789012"),
		Arn:     aws.String("arn:aws:iam::123456789012:user/deploy"),
		UserId:  aws.String("AIDAEXAMPLE"),
	}})
	require.NoError(t, err)
	assert.Equal(t, "123456789012", id.AccountID)
	assert.Equal(t, "arn:aws:iam::123456789012:user/deploy", id.ARN)
	assert.Equal(t, "AIDAEXAMPLE", id.UserID)
}

func TestResolveIdentity_Errors(t *testing.T) {
	_, err := ResolveIdentity(context.Background(), &mockSTS{err: errors.New("expired token")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expired token")

	_, err = ResolveIdentity(context.Background(), &mockSTS{out: &sts.GetCallerIdentityOutput{}})
	assert.Error(t, err)
}

// ── default config cache ───────────────────────────────────────────────────

func TestResetDefaultConfig_BumpsGeneration(t *testing.T) {
	before := DefaultConfigGeneration()
	ResetDefaultConfig()
	ResetDefaultConfig()
	assert.Equal(t, before+2, DefaultConfigGeneration())
}

func TestDefaultConfig_CachedUntilReset(t *testing.T) {
	clearAmbientAWS(t)
	t.Setenv("AWS_REGION", "eu-central-1")
	ResetDefaultConfig()

	cfg, err := DefaultConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "eu-central-1", cfg.Region)

	t.Setenv("AWS_REGION", "sa-east-1")
	cfg, err = DefaultConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "eu-central-1", cfg.Region, "cached config must not observe env changes")

	ResetDefaultConfig()
	cfg, err = DefaultConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sa-east-1", cfg.Region)
	ResetDefaultConfig()
}

// ── ProfileNames ───────────────────────────────────────────────────────────

func TestProfileNames(t *testing.T) {
	dir := t.TempDir()
	credFile := filepath.Join(dir, "credentials")
	cfgFile := filepath.Join(dir, "config")
	writeFile(t, credFile, "[default]\naws_access_key_id = x\n\n[staging]\naws_access_key_id = y\n")
	writeFile(t, cfgFile, "[default]\nregion = us-east-1\n[profile staging]\n[profile prod]\n")

	names, err := ProfileNames(credFile, cfgFile)
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "staging", "prod"}, names)
}

func TestProfileNames_MissingFiles(t *testing.T) {
	dir := t.TempDir()
	names, err := ProfileNames(filepath.Join(dir, "credentials"), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}
