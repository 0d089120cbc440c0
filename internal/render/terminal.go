package render

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/term"

	"github.com/ashureev/cognichat/internal/analytics"
)

const defaultWidth = 100

// TerminalOptions controls Terminal output.
type TerminalOptions struct {
	// Styled renders markdown with glamour; otherwise content is printed as is.
	Styled   bool
	Width    int
	ShowCode bool
}

// DetectTerminal reports whether f is a terminal and its width.
func DetectTerminal(f *os.File) (bool, int) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return false, defaultWidth
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width <= 0 {
		width = defaultWidth
	}
	return true, width
}

// Terminal prints responses to a text stream.
type Terminal struct {
	out      io.Writer
	opts     TerminalOptions
	renderer *glamour.TermRenderer
}

// NewTerminal returns a Terminal writing to out.
func NewTerminal(out io.Writer, opts TerminalOptions) (*Terminal, error) {
	if opts.Width <= 0 {
		opts.Width = defaultWidth
	}
	t := &Terminal{out: out, opts: opts}
	if opts.Styled {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(max(opts.Width-10, 40)),
		)
		if err != nil {
			return nil, fmt.Errorf("create markdown renderer: %w", err)
		}
		t.renderer = r
	}
	return t, nil
}

// Print writes the response content, its chart summary, table and optional trace.
func (t *Terminal) Print(resp analytics.Response) error {
	content := resp.Content
	if t.renderer != nil {
		styled, err := t.renderer.Render(content)
		if err != nil {
			return fmt.Errorf("render content: %w", err)
		}
		content = styled
	}
	if _, err := fmt.Fprintln(t.out, strings.TrimRight(content, "\n")); err != nil {
		return err
	}

	if c := resp.Chart; c != nil {
		if _, err := fmt.Fprintf(t.out, "\n[%s chart] %s\n", c.Kind, c.Title); err != nil {
			return err
		}
	}
	if resp.Table != nil {
		if _, err := fmt.Fprintln(t.out); err != nil {
			return err
		}
		WriteTable(t.out, resp.Table)
	}
	if t.opts.ShowCode && resp.Code != "" {
		if _, err := fmt.Fprintf(t.out, "\n$ %s\n", resp.Code); err != nil {
			return err
		}
	}
	return nil
}

// WriteTable renders tbl as an ASCII table.
func WriteTable(out io.Writer, tbl *analytics.Table) {
	w := tablewriter.NewWriter(out)
	w.SetAutoFormatHeaders(false)
	w.SetAutoWrapText(false)

	header := make([]string, len(tbl.Columns))
	alignments := make([]int, len(tbl.Columns))
	for i, c := range tbl.Columns {
		header[i] = c.Name
		alignments[i] = tablewriter.ALIGN_LEFT
		if c.Kind == analytics.CellNumber || c.Kind == analytics.CellInteger {
			alignments[i] = tablewriter.ALIGN_RIGHT
		}
	}
	w.SetHeader(header)
	w.SetColumnAlignment(alignments)

	for _, row := range tbl.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			kind := analytics.CellText
			if i < len(tbl.Columns) {
				kind = tbl.Columns[i].Kind
			}
			cells[i] = FormatCell(kind, v)
		}
		w.Append(cells)
	}
	w.Render()
}

// FormatCell renders one table value for display.
func FormatCell(kind analytics.CellKind, v any) string {
	switch x := v.(type) {
	case float64:
		if kind == analytics.CellInteger {
			return analytics.FormatCount(int(x))
		}
		return analytics.FormatDecimal(x)
	case int:
		return analytics.FormatCount(x)
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}
