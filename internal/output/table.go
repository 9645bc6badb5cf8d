package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pankaj-dahiya-devops/credprov/internal/bucketcors"
	"github.com/pankaj-dahiya-devops/credprov/internal/identity"
	"github.com/pankaj-dahiya-devops/credprov/internal/secgroups"
)

// Column is one fixed-width table column. A zero Width leaves the column
// unpadded and untruncated; use it for the last column.
type Column struct {
	Header string
	Width  int
}

// ShortenMessage truncates msg to at most max runes, appending "..." when truncated.
// max is treated as at least 4 to guarantee space for the ellipsis.
func ShortenMessage(msg string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max-3]) + "..."
}

// truncateField shortens s to at most max runes for ID/label columns.
// A single-char ellipsis replaces the last rune when truncation occurs.
func truncateField(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func cell(s string, col Column, first bool) string {
	sep := "  "
	if first {
		sep = ""
	}
	if col.Width == 0 {
		return sep + s
	}
	return sep + fmt.Sprintf("%-*s", col.Width, truncateField(s, col.Width))
}

// RenderTable writes rows under a header of cols to w. The separator line
// width is derived from the header row so all rows align. empty is printed
// instead when there are no rows.
func RenderTable(w io.Writer, cols []Column, rows [][]string, empty string) {
	if len(rows) == 0 {
		fmt.Fprintln(w, empty)
		return
	}

	var hb strings.Builder
	for i, col := range cols {
		hb.WriteString(cell(col.Header, col, i == 0))
	}
	header := strings.TrimRight(hb.String(), " ")

	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for _, row := range rows {
		var rb strings.Builder
		for i, col := range cols {
			var v string
			if i < len(row) {
				v = row[i]
			}
			rb.WriteString(cell(v, col, i == 0))
		}
		fmt.Fprintln(w, strings.TrimRight(rb.String(), " "))
	}
}

// RenderRules writes security group rules in the order given.
//
// Column order:
//
//	RULE ID  DIRECTION  RULE
func RenderRules(w io.Writer, rules []secgroups.ExistingRule) {
	cols := []Column{{"RULE ID", 24}, {"DIRECTION", 9}, {"RULE", 0}}
	rows := make([][]string, 0, len(rules))
	for _, r := range rules {
		dir := secgroups.Inbound
		if r.IsEgress {
			dir = secgroups.Outbound
		}
		rows = append(rows, []string{r.ID, dir.String(), r.Describe()})
	}
	RenderTable(w, cols, rows, "No rules.")
}

// RenderAccessKeys writes existing access keys with creation times shown
// in loc.
func RenderAccessKeys(w io.Writer, keys []identity.ExistingKey, loc *time.Location) {
	cols := []Column{{"ACCESS KEY ID", 22}, {"CREATED", 0}}
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k.ID, k.Created.In(loc).Format("2006-01-02 15:04:05")})
	}
	RenderTable(w, cols, rows, "No access keys.")
}

// RenderCORSRules writes bucket CORS rules.
func RenderCORSRules(w io.Writer, rules []bucketcors.Rule) {
	cols := []Column{{"ID", 16}, {"METHODS", 20}, {"ORIGINS", 40}, {"MAX AGE", 0}}
	rows := make([][]string, 0, len(rules))
	for _, r := range rules {
		maxAge := "-"
		if r.MaxAgeSeconds > 0 {
			maxAge = strconv.Itoa(int(r.MaxAgeSeconds)) + "s"
		}
		rows = append(rows, []string{
			r.ID,
			strings.Join(r.AllowedMethods, ","),
			ShortenMessage(strings.Join(r.AllowedOrigins, ","), 40),
			maxAge,
		})
	}
	RenderTable(w, cols, rows, "No CORS rules.")
}

// RenderList writes one "- item" line per item under title.
func RenderList(w io.Writer, title string, items []string) {
	fmt.Fprintf(w, "%s:\n", title)
	if len(items) == 0 {
		fmt.Fprintln(w, "- (none)")
		return
	}
	for _, item := range items {
		fmt.Fprintf(w, "- %s\n", item)
	}
}
