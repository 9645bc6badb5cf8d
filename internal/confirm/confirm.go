// Package confirm provides the yes/no confirmation capability used before
// every mutating reconciliation step.
package confirm

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Confirmer asks the operator a yes/no question. Only an explicit
// affirmative answer returns true.
type Confirmer interface {
	Confirm(message string) bool
}

// Func adapts an ordinary function to the Confirmer interface.
type Func func(message string) bool

// Confirm calls f(message).
func (f Func) Confirm(message string) bool { return f(message) }

// Always returns a Confirmer that answers every question with answer.
// Always(true) backs the --yes flag.
func Always(answer bool) Confirmer {
	return Func(func(string) bool { return answer })
}

// IsYes reports whether a raw response line is affirmative: the trimmed
// line must equal "yes", case-insensitively.
func IsYes(line string) bool {
	return strings.EqualFold(strings.TrimSpace(line), "yes")
}

// Prompter writes each question to Out followed by " [yes/no] " and reads a
// single line from In. EOF or a read error counts as "no".
type Prompter struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter returns a Prompter reading from in and writing to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Confirm implements Confirmer.
func (p *Prompter) Confirm(message string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "%s [yes/no] ", message)
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.out)
		return false
	}
	return IsYes(line)
}

// Canned answers questions from a fixed list of responses, in order, using
// the same matching rule as Prompter. Once the list is exhausted every
// further question is answered "no". The questions asked are recorded.
type Canned struct {
	mu        sync.Mutex
	responses []string
	asked     []string
}

// NewCanned returns a Canned confirmer replaying responses.
func NewCanned(responses ...string) *Canned {
	return &Canned{responses: responses}
}

// Confirm implements Confirmer.
func (c *Canned) Confirm(message string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.asked = append(c.asked, message)
	if len(c.responses) == 0 {
		return false
	}
	resp := c.responses[0]
	c.responses = c.responses[1:]
	return IsYes(resp)
}

// Asked returns the questions asked so far.
func (c *Canned) Asked() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.asked...)
}
