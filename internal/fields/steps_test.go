package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"common indent stripped", "    a\n    b\n      c", "a\nb\n  c"},
		{"blank lines ignored for minimum", "   a\n\n   b", "a\n\nb"},
		{"no indent unchanged", "a\n  b", "a\n  b"},
		{"tabs count as one", "\t\ta\n\tb", "\ta\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dedent(tt.in))
		})
	}
}

func TestTrim(t *testing.T) {
	assert.Equal(t, "12345", trim("  12345 \t"))
	assert.Equal(t, "  a\n    b", trim("\n  a  \n    b\n\n"))
	assert.Equal(t, "", trim(" \n \n"))
}

func TestCollapse_KeepsIndent(t *testing.T) {
	assert.Equal(t, "    Acme Corp Ltd", collapse("    Acme   Corp \t Ltd"))
	assert.Equal(t, "a b\n  c d", collapse("a    b\n  c    d"))
}

func TestStripComment(t *testing.T) {
	assert.Equal(t, "Acme\nRoad", stripComment("Acme // customer\nRoad", "//"))
	assert.Equal(t, "Acme ; x", stripComment("Acme ; x", "//"))
	assert.Equal(t, "Acme", stripComment("Acme ; x", ";"))
	assert.Equal(t, "Acme // x", stripComment("Acme // x", ""))
}

func TestDropBlank(t *testing.T) {
	assert.Equal(t, "a\n b", dropBlank("a\n \n\n b\n"))
}
