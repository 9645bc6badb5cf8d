package confirm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsYes(t *testing.T) {
	for _, in := range []string{"yes", "YES", " Yes \n", "yEs\r\n"} {
		assert.True(t, IsYes(in), in)
	}
	for _, in := range []string{"y", "no", "", "yes please", "ye s"} {
		assert.False(t, IsYes(in), in)
	}
}

func TestPrompter_ReadsOneLinePerQuestion(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("yes\nno\nYES\n"), &out)

	assert.True(t, p.Confirm("first?"))
	assert.False(t, p.Confirm("second?"))
	assert.True(t, p.Confirm("third?"))
	assert.Contains(t, out.String(), "first? [yes/no] ")
	assert.Contains(t, out.String(), "third? [yes/no] ")
}

func TestPrompter_EOFIsNo(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader(""), &out)
	assert.False(t, p.Confirm("anything?"))
}

func TestPrompter_LastLineWithoutNewline(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("yes"), &out)
	assert.True(t, p.Confirm("go?"))
}

func TestAlways(t *testing.T) {
	assert.True(t, Always(true).Confirm("x"))
	assert.False(t, Always(false).Confirm("x"))
}

func TestCanned(t *testing.T) {
	c := NewCanned("yes", "nope")
	assert.True(t, c.Confirm("a"))
	assert.False(t, c.Confirm("b"))
	assert.False(t, c.Confirm("c"), "exhausted responses answer no")
	assert.Equal(t, []string{"a", "b", "c"}, c.Asked())
}
