package kmspolicy

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
)

var (
	// ErrStatementNotFound is returned when no statement Sid matches.
	ErrStatementNotFound = errors.New("no KMS key policy statement matches")

	// ErrAmbiguousStatement is returned when more than one Sid matches.
	ErrAmbiguousStatement = errors.New("multiple KMS key policy statements match")

	// ErrUnsupportedPrincipal is returned when principals would be added to
	// a statement whose Principal is not an object, such as "*".
	ErrUnsupportedPrincipal = errors.New("KMS key policy statement principal is not an object")
)

// Document is a KMS key policy. Only statement Sids and their AWS principals
// are interpreted; every other field is carried through unchanged.
type Document struct {
	fields     map[string]json.RawMessage
	Statements []*Statement
	// singleStatement records a Statement given as an object, not a list.
	singleStatement bool
}

// Statement is one entry of a key policy's Statement list.
type Statement struct {
	Sid string

	fields    map[string]json.RawMessage
	principal map[string]json.RawMessage
	// principals is Principal.AWS; awsString records that it was a bare
	// string rather than a list.
	principals []string
	awsString  bool
	// opaque is set when Principal is present but not an object.
	opaque bool
}

// ParseDocument decodes a key policy.
func ParseDocument(data []byte) (*Document, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("parse key policy: %w", err)
	}
	doc := &Document{fields: fields}

	raw, ok := fields["Statement"]
	if !ok {
		return doc, nil
	}
	delete(fields, "Statement")

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		list = []json.RawMessage{raw}
		doc.singleStatement = true
	}
	for i, s := range list {
		stmt, err := parseStatement(s)
		if err != nil {
			return nil, fmt.Errorf("parse key policy statement %d: %w", i, err)
		}
		doc.Statements = append(doc.Statements, stmt)
	}
	return doc, nil
}

func parseStatement(data json.RawMessage) (*Statement, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	stmt := &Statement{fields: fields}

	if raw, ok := fields["Sid"]; ok {
		if err := json.Unmarshal(raw, &stmt.Sid); err != nil {
			return nil, fmt.Errorf("Sid: %w", err)
		}
	}

	raw, ok := fields["Principal"]
	if !ok {
		return stmt, nil
	}
	var principal map[string]json.RawMessage
	if err := json.Unmarshal(raw, &principal); err != nil {
		// A non-object principal such as "*" is kept verbatim.
		stmt.opaque = true
		return stmt, nil
	}
	delete(fields, "Principal")
	stmt.principal = principal

	if aws, ok := principal["AWS"]; ok {
		var one string
		if err := json.Unmarshal(aws, &one); err == nil {
			stmt.principals = []string{one}
			stmt.awsString = true
		} else if err := json.Unmarshal(aws, &stmt.principals); err != nil {
			return nil, fmt.Errorf("Principal.AWS: %w", err)
		}
	}
	return stmt, nil
}

// Principals returns a copy of the statement's AWS principals.
func (s *Statement) Principals() []string {
	return append([]string(nil), s.principals...)
}

// checkAmendable reports whether principals can be added to s without
// replacing what its Principal already grants.
func (s *Statement) checkAmendable() error {
	if s.opaque {
		return fmt.Errorf("%w: Sid %q", ErrUnsupportedPrincipal, s.Sid)
	}
	return nil
}

func (s *Statement) setPrincipals(p []string) {
	if s.principal == nil {
		s.principal = map[string]json.RawMessage{}
		delete(s.fields, "Principal")
	}
	s.principals = p
	s.awsString = false
}

// MarshalJSON encodes the statement with its current principals.
func (s *Statement) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(s.fields)+1)
	for k, v := range s.fields {
		out[k] = v
	}
	if s.principal != nil {
		principal := make(map[string]json.RawMessage, len(s.principal))
		for k, v := range s.principal {
			principal[k] = v
		}
		if _, had := s.principal["AWS"]; had || len(s.principals) > 0 {
			var aws any = s.principals
			if s.awsString && len(s.principals) == 1 {
				aws = s.principals[0]
			}
			b, err := json.Marshal(aws)
			if err != nil {
				return nil, err
			}
			principal["AWS"] = b
		}
		b, err := json.Marshal(principal)
		if err != nil {
			return nil, err
		}
		out["Principal"] = b
	}
	return json.Marshal(out)
}

// MarshalJSON encodes the document with its current statements.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(d.fields)+1)
	for k, v := range d.fields {
		out[k] = v
	}
	if len(d.Statements) > 0 || d.singleStatement {
		var stmts any = d.Statements
		if d.singleStatement && len(d.Statements) == 1 {
			stmts = d.Statements[0]
		}
		b, err := json.Marshal(stmts)
		if err != nil {
			return nil, err
		}
		out["Statement"] = b
	}
	return json.Marshal(out)
}

// Statement returns the single statement whose Sid matches sidPattern at
// its start.
func (d *Document) Statement(sidPattern string) (*Statement, error) {
	re, err := regexp.Compile("^(?:" + sidPattern + ")")
	if err != nil {
		return nil, fmt.Errorf("statement Sid pattern %q: %w", sidPattern, err)
	}
	var found []*Statement
	for _, s := range d.Statements {
		if re.MatchString(s.Sid) {
			found = append(found, s)
		}
	}
	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrStatementNotFound, sidPattern)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %q matches %d statements", ErrAmbiguousStatement, sidPattern, len(found))
	}
}

// Principals returns the AWS principals of the statement selected by
// sidPattern.
func Principals(doc *Document, sidPattern string) ([]string, error) {
	stmt, err := doc.Statement(sidPattern)
	if err != nil {
		return nil, err
	}
	return stmt.Principals(), nil
}

// AmendPolicy adds every principal in additional that the selected
// statement lacks, then sorts the statement's principal list. The document
// is modified in place. It returns how many principals were added; repeats
// within additional count once. A statement whose Principal is not an object
// is left alone and ErrUnsupportedPrincipal returned.
func AmendPolicy(doc *Document, sidPattern string, additional []string) (int, error) {
	stmt, err := doc.Statement(sidPattern)
	if err != nil {
		return 0, err
	}
	if err := stmt.checkAmendable(); err != nil {
		return 0, err
	}

	principals := stmt.Principals()
	present := make(map[string]bool, len(principals))
	for _, p := range principals {
		present[p] = true
	}
	added := 0
	for _, p := range additional {
		if present[p] {
			continue
		}
		present[p] = true
		principals = append(principals, p)
		added++
	}
	sort.Strings(principals)
	stmt.setPrincipals(principals)
	return added, nil
}

// Missing returns the members of desired absent from current, sorted and
// without repeats.
func Missing(current, desired []string) []string {
	have := make(map[string]bool, len(current))
	for _, p := range current {
		have[p] = true
	}
	var missing []string
	for _, p := range desired {
		if !have[p] {
			have[p] = true
			missing = append(missing, p)
		}
	}
	sort.Strings(missing)
	return missing
}
