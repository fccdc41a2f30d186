package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON writes v as an indented JSON document followed by a newline.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode json report: %w", err)
	}
	return nil
}
