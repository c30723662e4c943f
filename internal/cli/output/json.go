package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONFormatter writes data as indented JSON, one document per call.
type JSONFormatter struct{}

// Format implements Formatter.
func (f *JSONFormatter) Format(w io.Writer, data any) error {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	_, err = w.Write(append(out, '\n'))
	return err
}
