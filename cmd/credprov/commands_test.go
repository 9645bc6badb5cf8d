package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/pankaj-dahiya-devops/credprov/internal/providers/aws/common"
)

// ── mocks ────────────────────────────────────────────────────────────────────

type mockSTS struct {
	err error
}

func (m *mockSTS) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &sts.GetCallerIdentityOutput{
		Account: aws.String("466564410312"),
		Arn:     aws.String("arn:aws:iam::466564410312:user/deploy"),
		UserId:  aws.String("AIDAEXAMPLE"),
	}, nil
}

// mockSecretsManager holds secrets by name. ListSecrets returns one page.
type mockSecretsManager struct {
	secrets map[string]string
	updates int
}

func (m *mockSecretsManager) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	v, ok := m.secrets[aws.ToString(in.SecretId)]
	if !ok {
		return nil, &smithy.GenericAPIError{Code: "ResourceNotFoundException", Message: "not found"}
	}
	return &secretsmanager.GetSecretValueOutput{Name: in.SecretId, SecretString: aws.String(v)}, nil
}

func (m *mockSecretsManager) UpdateSecret(_ context.Context, in *secretsmanager.UpdateSecretInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.UpdateSecretOutput, error) {
	m.updates++
	m.secrets[aws.ToString(in.SecretId)] = aws.ToString(in.SecretString)
	return &secretsmanager.UpdateSecretOutput{Name: in.SecretId}, nil
}

func (m *mockSecretsManager) ListSecrets(_ context.Context, _ *secretsmanager.ListSecretsInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.ListSecretsOutput, error) {
	return &secretsmanager.ListSecretsOutput{}, nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func factoryFor(set *common.ClientSet) common.ClientFactory {
	return func(aws.Config) *common.ClientSet { return set }
}

// keyPairFlags select a static key pair so no ambient credentials are used.
var keyPairFlags = []string{
	"--access-key-id", "AKIATEST",
	"--secret-access-key", "testsecret",
	"--region", "us-east-1",
}

// runCLI executes the root command with a fresh HOME (so no config file
// is found) and returns stdout.
func runCLI(t *testing.T, set *common.ClientSet, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	var out, errOut bytes.Buffer
	root := buildRootCmd(&rootOptions{factory: factoryFor(set)})
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func withKeyPair(args ...string) []string {
	return append(append([]string{}, keyPairFlags...), args...)
}

// ── whoami ───────────────────────────────────────────────────────────────────

func TestWhoami_PrintsIdentity(t *testing.T) {
	out, err := runCLI(t, &common.ClientSet{STS: &mockSTS{}}, "", withKeyPair("whoami")...)
	if err != nil {
		t.Fatalf("whoami returned error: %v", err)
	}
	for _, want := range []string{
		"Your AWS access key: AKIATEST",
		"Your AWS access secret: **********",
		"Your AWS account number: 466564410312",
		"Your AWS account user ARN: arn:aws:iam::466564410312:user/deploy",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("whoami output missing %q; got:\n%s", want, out)
		}
	}
	if strings.Contains(out, "testsecret") {
		t.Errorf("secret printed without --show; got:\n%s", out)
	}
}

func TestWhoami_NoCredentials(t *testing.T) {
	_, err := runCLI(t, &common.ClientSet{STS: &mockSTS{}}, "", "whoami")
	if err == nil || !strings.Contains(err.Error(), "no credentials specified") {
		t.Fatalf("expected no-credentials error, got %v", err)
	}
}

func TestWhoami_IdentityFailure(t *testing.T) {
	_, err := runCLI(t, &common.ClientSet{STS: &mockSTS{err: errors.New("InvalidClientTokenId")}}, "", withKeyPair("whoami")...)
	if err == nil || !strings.Contains(err.Error(), "InvalidClientTokenId") {
		t.Fatalf("expected identity error, got %v", err)
	}
}

// ── secret ───────────────────────────────────────────────────────────────────

func TestSecretGet_MasksSensitiveKeys(t *testing.T) {
	sm := &mockSecretsManager{secrets: map[string]string{
		"App": `{"DB_HOST": "db.internal", "DB_PASSWORD": "hunter2"}`,
	}}
	set := &common.ClientSet{STS: &mockSTS{}, SecretsManager: sm}

	out, err := runCLI(t, set, "", withKeyPair("secret", "get", "--name", "App", "DB_PASSWORD")...)
	if err != nil {
		t.Fatalf("secret get returned error: %v", err)
	}
	if !strings.Contains(out, "App.DB_PASSWORD: *******") {
		t.Errorf("expected masked value; got:\n%s", out)
	}

	out, err = runCLI(t, set, "", withKeyPair("--show", "secret", "get", "--name", "App", "DB_PASSWORD")...)
	if err != nil {
		t.Fatalf("secret get --show returned error: %v", err)
	}
	if !strings.Contains(out, "App.DB_PASSWORD: hunter2") {
		t.Errorf("expected plaintext value with --show; got:\n%s", out)
	}
}

func TestSecretGet_AllKeys(t *testing.T) {
	sm := &mockSecretsManager{secrets: map[string]string{
		"App": `{"DB_HOST": "db.internal", "DB_PASSWORD": "hunter2"}`,
	}}
	set := &common.ClientSet{STS: &mockSTS{}, SecretsManager: sm}

	out, err := runCLI(t, set, "", withKeyPair("secret", "get", "--name", "App")...)
	if err != nil {
		t.Fatalf("secret get returned error: %v", err)
	}
	want := "AWS secret App:\n- DB_HOST: db.internal\n- DB_PASSWORD: *******\n"
	if !strings.HasSuffix(out, want) {
		t.Errorf("unexpected output; want suffix %q, got:\n%s", want, out)
	}
}

func TestSecretGet_RequiresName(t *testing.T) {
	_, err := runCLI(t, &common.ClientSet{STS: &mockSTS{}}, "", withKeyPair("secret", "get", "DB_HOST")...)
	if err == nil || !strings.Contains(err.Error(), "no secret name given") {
		t.Fatalf("expected missing name error, got %v", err)
	}
}

func TestSecretUpdate_WithYes(t *testing.T) {
	sm := &mockSecretsManager{secrets: map[string]string{
		"App": `{"DB_HOST": "old", "OTHER": "x"}`,
	}}
	set := &common.ClientSet{STS: &mockSTS{}, SecretsManager: sm}

	_, err := runCLI(t, set, "", withKeyPair("--yes", "secret", "update", "--name", "App", "DB_HOST", "new")...)
	if err != nil {
		t.Fatalf("secret update returned error: %v", err)
	}
	if sm.updates != 1 {
		t.Fatalf("expected one update, got %d", sm.updates)
	}
	if got := sm.secrets["App"]; got != `{"DB_HOST": "new", "OTHER": "x"}` {
		t.Errorf("unexpected secret after update: %s", got)
	}
}

func TestSecretUpdate_WithYesKeepsSensitiveMasked(t *testing.T) {
	sm := &mockSecretsManager{secrets: map[string]string{"App": `{"RDS_PASSWORD": "hunter2old"}`}}
	set := &common.ClientSet{STS: &mockSTS{}, SecretsManager: sm}

	out, err := runCLI(t, set, "", withKeyPair("--yes", "secret", "update", "--name", "App", "RDS_PASSWORD", "hunter2new")...)
	if err != nil {
		t.Fatalf("secret update returned error: %v", err)
	}
	if sm.updates != 1 {
		t.Fatalf("expected one update, got %d", sm.updates)
	}
	if strings.Contains(out, "hunter2old") || strings.Contains(out, "hunter2new") {
		t.Errorf("--yes must not unmask sensitive values; got:\n%s", out)
	}
	if strings.Contains(out, "Show in plaintext?") {
		t.Errorf("--yes must not ask to reveal values; got:\n%s", out)
	}
}

func TestSecretUpdate_LiteralSkipsReferences(t *testing.T) {
	sm := &mockSecretsManager{secrets: map[string]string{"App": `{"NOTE": "x"}`}}
	// No RDS client: a resolved reference would fail.
	set := &common.ClientSet{STS: &mockSTS{}, SecretsManager: sm}

	_, err := runCLI(t, set, "", withKeyPair("--yes", "secret", "update", "--name", "App", "--literal", "NOTE", "rds-host:main")...)
	if err != nil {
		t.Fatalf("secret update --literal returned error: %v", err)
	}
	if got := sm.secrets["App"]; got != `{"NOTE": "rds-host:main"}` {
		t.Errorf("unexpected secret after update: %s", got)
	}
}

func TestSecretUpdate_PromptDeclined(t *testing.T) {
	sm := &mockSecretsManager{secrets: map[string]string{"App": `{"DB_HOST": "old"}`}}
	set := &common.ClientSet{STS: &mockSTS{}, SecretsManager: sm}

	out, err := runCLI(t, set, "no\n", withKeyPair("secret", "update", "--name", "App", "--deactivate", "DB_HOST")...)
	if err != nil {
		t.Fatalf("secret update returned error: %v", err)
	}
	if sm.updates != 0 {
		t.Errorf("declined update must not write; got %d updates", sm.updates)
	}
	if !strings.Contains(out, "Are you sure you want to deactivate AWS secret App.DB_HOST? [yes/no] ") {
		t.Errorf("expected confirmation prompt; got:\n%s", out)
	}
}

func TestSecretUpdate_ValueOrDeactivate(t *testing.T) {
	set := &common.ClientSet{STS: &mockSTS{}}
	for _, args := range [][]string{
		{"secret", "update", "--name", "App", "KEY"},
		{"secret", "update", "--name", "App", "--deactivate", "KEY", "value"},
	} {
		if _, err := runCLI(t, set, "", withKeyPair(args...)...); err == nil {
			t.Errorf("expected usage error for %v", args)
		}
	}
}

// ── sg flags ─────────────────────────────────────────────────────────────────

func TestRuleFlags(t *testing.T) {
	f := ruleFlags{protocol: "tcp", port: 443, fromPort: -1, toPort: -1, cidr: "0.0.0.0/0"}
	rule, err := f.rule()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *rule.FromPort != 443 || *rule.ToPort != 443 || rule.IPRanges[0].CIDR != "0.0.0.0/0" {
		t.Errorf("unexpected rule %+v", rule)
	}

	f = ruleFlags{protocol: "-1", port: -1, fromPort: -1, toPort: -1, cidr: "10.0.0.0/8"}
	rule, err = f.rule()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rule.FromPort != nil || rule.ToPort != nil {
		t.Errorf("all-traffic rule must have no ports, got %+v", rule)
	}

	f = ruleFlags{protocol: "tcp", port: -1, fromPort: -1, toPort: -1, cidr: "10.0.0.0/8"}
	if _, err := f.rule(); err == nil {
		t.Error("expected error for tcp rule without ports")
	}

	f = ruleFlags{protocol: "tcp", port: 22, fromPort: -1, toPort: -1}
	if _, err := f.rule(); err == nil {
		t.Error("expected error for rule without CIDR")
	}
}
