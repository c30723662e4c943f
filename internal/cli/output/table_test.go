package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Render(t *testing.T) {
	table := &Table{Headers: []string{"NAME", "VALUE"}}
	table.AddRow("key1", "value1")
	table.AddRow("longer-key", "v")

	var buf bytes.Buffer
	require.NoError(t, table.Render(&buf))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "NAME"))
	// Columns are aligned on the widest cell.
	assert.Equal(t, strings.Index(lines[0], "VALUE"), strings.Index(lines[2], "v"))
}

func TestTable_NoHeaders(t *testing.T) {
	table := &Table{Headers: []string{"NAME"}, Rows: [][]string{{"row"}}}

	var buf bytes.Buffer
	require.NoError(t, (&TableFormatter{NoHeaders: true}).Format(&buf, table))
	assert.Equal(t, "row\n", buf.String())
}

type tabularValue struct{ wideSeen *bool }

func (v tabularValue) Table(wide bool) *Table {
	*v.wideSeen = wide
	return &Table{Headers: []string{"X"}, Rows: [][]string{{"1"}}}
}

func TestTableFormatter_Tabular(t *testing.T) {
	var wide bool
	var buf bytes.Buffer
	require.NoError(t, (&TableFormatter{Wide: true}).Format(&buf, tabularValue{wideSeen: &wide}))
	assert.True(t, wide)
	assert.Equal(t, "X\n1\n", buf.String())
}

func TestTableFormatter_Struct(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TableFormatter{}).Format(&buf, &sample{Zone: "z.a", Units: []string{"a", "b"}}))

	out := buf.String()
	assert.Contains(t, out, "FIELD")
	assert.Contains(t, out, "zone")
	assert.Contains(t, out, "z.a")
	assert.Contains(t, out, "a,b")
}

func TestTableFormatter_MapSorted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TableFormatter{}).Format(&buf, map[string]string{"b": "2", "a": "1"}))

	out := buf.String()
	assert.Less(t, strings.Index(out, "a "), strings.Index(out, "b "))
	assert.Contains(t, out, "KEY")
}

func TestTableFormatter_Scalar(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TableFormatter{}).Format(&buf, 42))
	assert.Equal(t, "42\n", buf.String())
}

func TestTableFormatter_Nil(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TableFormatter{}).Format(&buf, nil))
	assert.Empty(t, buf.String())
}

func TestCell(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "-"},
		{"empty string", "", "-"},
		{"string", "x", "x"},
		{"strings", []string{"a", "b"}, "a,b"},
		{"empty strings", []string{}, "-"},
		{"true", true, "yes"},
		{"false", false, "no"},
		{"int", 7, "7"},
		{"map", map[string]int{"a": 1}, "[1 items]"},
		{"nil pointer", (*int)(nil), "-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Cell(tt.in))
		})
	}
}
