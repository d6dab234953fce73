package report

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
)

// Print writes md to w, styled for the terminal unless plain is set.
func Print(w io.Writer, md string, plain bool) error {
	if plain {
		_, err := io.WriteString(w, md)
		return err
	}
	out, err := glamour.Render(md, "auto")
	if err != nil {
		return fmt.Errorf("render markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
