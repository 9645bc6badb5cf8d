// Package bucketcors reads and extends the CORS configuration of S3
// buckets.
package bucketcors

import (
	"slices"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Rule is one CORS rule of a bucket.
type Rule struct {
	ID             string
	AllowedMethods []string
	AllowedOrigins []string
	AllowedHeaders []string
	ExposeHeaders  []string
	MaxAgeSeconds  int32
}

// Equivalent reports whether r and o grant the same access. IDs and the
// order of list entries are ignored. Methods compare case-insensitively.
func (r Rule) Equivalent(o Rule) bool {
	return sameSet(upper(r.AllowedMethods), upper(o.AllowedMethods)) &&
		sameSet(r.AllowedOrigins, o.AllowedOrigins) &&
		sameSet(r.AllowedHeaders, o.AllowedHeaders) &&
		sameSet(r.ExposeHeaders, o.ExposeHeaders) &&
		r.MaxAgeSeconds == o.MaxAgeSeconds
}

// String renders the rule on one line for display.
func (r Rule) String() string {
	var b strings.Builder
	b.WriteString(strings.Join(upper(r.AllowedMethods), ","))
	b.WriteString(" from ")
	b.WriteString(strings.Join(r.AllowedOrigins, ","))
	if len(r.AllowedHeaders) > 0 {
		b.WriteString(" headers ")
		b.WriteString(strings.Join(r.AllowedHeaders, ","))
	}
	if r.ID != "" {
		b.WriteString(" (")
		b.WriteString(r.ID)
		b.WriteString(")")
	}
	return b.String()
}

func upper(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToUpper(s)
	}
	return out
}

func sameSet(a, b []string) bool {
	return slices.Equal(normalize(a), normalize(b))
}

func normalize(in []string) []string {
	out := slices.Clone(in)
	sort.Strings(out)
	return slices.Compact(out)
}

func ruleFromSDK(r s3types.CORSRule) Rule {
	return Rule{
		ID:             aws.ToString(r.ID),
		AllowedMethods: r.AllowedMethods,
		AllowedOrigins: r.AllowedOrigins,
		AllowedHeaders: r.AllowedHeaders,
		ExposeHeaders:  r.ExposeHeaders,
		MaxAgeSeconds:  aws.ToInt32(r.MaxAgeSeconds),
	}
}

func (r Rule) sdk() s3types.CORSRule {
	out := s3types.CORSRule{
		AllowedMethods: r.AllowedMethods,
		AllowedOrigins: r.AllowedOrigins,
		AllowedHeaders: r.AllowedHeaders,
		ExposeHeaders:  r.ExposeHeaders,
	}
	if r.ID != "" {
		out.ID = aws.String(r.ID)
	}
	if r.MaxAgeSeconds > 0 {
		out.MaxAgeSeconds = aws.Int32(r.MaxAgeSeconds)
	}
	return out
}
