package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/cognichat/internal/analytics"
	"github.com/ashureev/cognichat/internal/dataset"
)

func TestMarkdownHTML(t *testing.T) {
	t.Parallel()

	md := NewMarkdown()
	out, err := md.HTML("💰 **Revenue by Category:**\n\nTop performer: **Books** ($1.00)")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>Revenue by Category:</strong>")
	assert.Contains(t, out, "<strong>Books</strong>")
	assert.Equal(t, 2, strings.Count(out, "<p>"))

	out, err = md.HTML("line one\nline two")
	require.NoError(t, err)
	assert.Contains(t, out, "<br")
}

func TestMarkdownDropsRawHTML(t *testing.T) {
	t.Parallel()

	out, err := NewMarkdown().HTML(`🤔 I'd love to help analyze: "<script>alert(1)</script>"`)
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>")
}

func TestTerminalPrintPlain(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	term, err := NewTerminal(&buf, TerminalOptions{ShowCode: true})
	require.NoError(t, err)

	resp := analytics.Dispatch("revenue by category", dataset.Sample(dataset.DefaultSeed, 200), 10)
	require.NoError(t, term.Print(resp))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "💰 **Revenue by Category:**"))
	assert.Contains(t, out, "[bar chart] Revenue by Product Category")
	assert.Contains(t, out, "Category")
	for _, c := range dataset.Categories {
		assert.Contains(t, out, c)
	}
	assert.Contains(t, out, "$ "+resp.Code)
}

func TestTerminalPrintHidesCode(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	term, err := NewTerminal(&buf, TerminalOptions{})
	require.NoError(t, err)

	resp := analytics.Dispatch("summary", dataset.Sample(dataset.DefaultSeed, 20), 5)
	require.NoError(t, term.Print(resp))
	assert.NotContains(t, buf.String(), resp.Code)
}

func TestTerminalPrintStyled(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	term, err := NewTerminal(&buf, TerminalOptions{Styled: true, Width: 80})
	require.NoError(t, err)

	require.NoError(t, term.Print(analytics.Response{Content: "**bold** text"}))
	assert.Contains(t, buf.String(), "bold")
	assert.NotContains(t, buf.String(), "**bold**")
}

func TestFormatCell(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "1,234.50", FormatCell(analytics.CellNumber, 1234.5))
	assert.Equal(t, "1,000", FormatCell(analytics.CellInteger, 1000))
	assert.Equal(t, "7", FormatCell(analytics.CellInteger, float64(7)))
	assert.Equal(t, "Books", FormatCell(analytics.CellText, "Books"))
	assert.Equal(t, "", FormatCell(analytics.CellText, nil))
}
