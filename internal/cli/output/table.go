package output

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"
)

// Tabular is implemented by values that render themselves as a table.
type Tabular interface {
	Table(wide bool) *Table
}

// TableFormatter formats data as an aligned text table.
type TableFormatter struct {
	Wide      bool
	NoHeaders bool
}

// Format renders data. Supported inputs are *Table, Tabular, structs and
// maps; anything else is printed with %v.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	switch v := data.(type) {
	case nil:
		return nil
	case *Table:
		return v.RenderWithOptions(w, f.NoHeaders)
	case Tabular:
		return v.Table(f.Wide).RenderWithOptions(w, f.NoHeaders)
	}

	t, ok := reflectTable(reflect.ValueOf(data))
	if !ok {
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	}
	return t.RenderWithOptions(w, f.NoHeaders)
}

// reflectTable renders a struct as FIELD/VALUE rows and a map as sorted
// KEY/VALUE rows.
func reflectTable(v reflect.Value) (*Table, bool) {
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Struct:
		t := &Table{Headers: []string{"FIELD", "VALUE"}}
		typ := v.Type()
		for i := 0; i < typ.NumField(); i++ {
			field := typ.Field(i)
			if !field.IsExported() {
				continue
			}
			t.AddRow(fieldName(field), Cell(v.Field(i).Interface()))
		}
		return t, true
	case reflect.Map:
		t := &Table{Headers: []string{"KEY", "VALUE"}}
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		for _, k := range keys {
			t.AddRow(fmt.Sprint(k.Interface()), Cell(v.MapIndex(k).Interface()))
		}
		return t, true
	default:
		return nil, false
	}
}

func fieldName(field reflect.StructField) string {
	if tag := field.Tag.Get("json"); tag != "" {
		if name, _, _ := strings.Cut(tag, ","); name != "" && name != "-" {
			return name
		}
	}
	return field.Name
}

// Cell formats a single value for a table cell. Empty values print as "-".
func Cell(value any) string {
	switch v := value.(type) {
	case nil:
		return "-"
	case string:
		if v == "" {
			return "-"
		}
		return v
	case []string:
		if len(v) == 0 {
			return "-"
		}
		return strings.Join(v, ",")
	case bool:
		if v {
			return "yes"
		}
		return "no"
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		if rv.Len() == 0 {
			return "-"
		}
		return fmt.Sprintf("[%d items]", rv.Len())
	case reflect.Ptr:
		if rv.IsNil() {
			return "-"
		}
		return Cell(rv.Elem().Interface())
	}
	return fmt.Sprint(value)
}

// Table represents tabular data.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render renders the table to the writer.
func (t *Table) Render(w io.Writer) error {
	return t.RenderWithOptions(w, false)
}

// RenderWithOptions renders the table, optionally without its header row.
func (t *Table) RenderWithOptions(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if !noHeaders && len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}
