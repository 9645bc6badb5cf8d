package output_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/pankaj-dahiya-devops/credprov/internal/bucketcors"
	"github.com/pankaj-dahiya-devops/credprov/internal/identity"
	"github.com/pankaj-dahiya-devops/credprov/internal/output"
	"github.com/pankaj-dahiya-devops/credprov/internal/secgroups"
)

// ── RenderTable ───────────────────────────────────────────────────────────────

func TestRenderTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	output.RenderTable(&buf, []output.Column{{Header: "A", Width: 4}}, nil, "Nothing.")
	if buf.String() != "Nothing.\n" {
		t.Errorf("expected empty message, got %q", buf.String())
	}
}

func TestRenderTable_SeparatorMatchesHeader(t *testing.T) {
	var buf bytes.Buffer
	cols := []output.Column{{Header: "NAME", Width: 8}, {Header: "VALUE", Width: 0}}
	output.RenderTable(&buf, cols, [][]string{{"a", "1"}, {"b"}}, "")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, separator and 2 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if len(lines[1]) != len(lines[0]) || strings.Trim(lines[1], "-") != "" {
		t.Errorf("separator %q does not match header %q", lines[1], lines[0])
	}
	if lines[2] != "a         1" {
		t.Errorf("unexpected row %q", lines[2])
	}
	if lines[3] != "b" {
		t.Errorf("missing cells must render empty, got %q", lines[3])
	}
}

func TestRenderTable_TruncatesFixedColumns(t *testing.T) {
	var buf bytes.Buffer
	cols := []output.Column{{Header: "ID", Width: 5}, {Header: "X", Width: 0}}
	output.RenderTable(&buf, cols, [][]string{{"abcdefgh", "x"}}, "")
	if !strings.Contains(buf.String(), "abcd…  x") {
		t.Errorf("expected truncated id, got:\n%s", buf.String())
	}
}

// ── domain tables ─────────────────────────────────────────────────────────────

func TestRenderRules(t *testing.T) {
	var buf bytes.Buffer
	output.RenderRules(&buf, []secgroups.ExistingRule{{
		ID:       "sgr-0123",
		Protocol: "tcp",
		FromPort: secgroups.Port(443),
		ToPort:   secgroups.Port(443),
		CidrIPv4: "0.0.0.0/0",
	}, {
		ID:       "sgr-0456",
		IsEgress: true,
		Protocol: "-1",
		CidrIPv4: "0.0.0.0/0",
	}})
	out := buf.String()
	for _, want := range []string{"RULE ID", "sgr-0123", "inbound", "sgr-0456", "outbound", "HTTPS"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output\ngot:\n%s", want, out)
		}
	}
}

func TestRenderAccessKeys(t *testing.T) {
	var buf bytes.Buffer
	created := time.Date(2023, 4, 5, 6, 7, 8, 0, time.UTC)
	output.RenderAccessKeys(&buf, []identity.ExistingKey{{ID: "AKIAEXAMPLE", Created: created}}, time.UTC)
	if !strings.Contains(buf.String(), "2023-04-05 06:07:08") {
		t.Errorf("expected creation time in output\ngot:\n%s", buf.String())
	}
}

func TestRenderCORSRules(t *testing.T) {
	var buf bytes.Buffer
	output.RenderCORSRules(&buf, []bucketcors.Rule{{
		AllowedMethods: []string{"GET", "HEAD"},
		AllowedOrigins: []string{"*"},
		MaxAgeSeconds:  300,
	}})
	out := buf.String()
	if !strings.Contains(out, "GET,HEAD") || !strings.Contains(out, "300s") {
		t.Errorf("unexpected CORS table:\n%s", out)
	}
}

func TestRenderList(t *testing.T) {
	var buf bytes.Buffer
	output.RenderList(&buf, "Keys", nil)
	if buf.String() != "Keys:\n- (none)\n" {
		t.Errorf("unexpected empty list rendering %q", buf.String())
	}

	buf.Reset()
	output.RenderList(&buf, "Keys", []string{"k1", "k2"})
	if buf.String() != "Keys:\n- k1\n- k2\n" {
		t.Errorf("unexpected list rendering %q", buf.String())
	}
}

func TestShortenMessage(t *testing.T) {
	if got := output.ShortenMessage("abcdefghij", 6); got != "abc..." {
		t.Errorf("ShortenMessage = %q", got)
	}
	if got := output.ShortenMessage("short", 10); got != "short" {
		t.Errorf("ShortenMessage = %q", got)
	}
}
