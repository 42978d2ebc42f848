package clifmt

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/term"
)

const (
	defaultTableWidth = 100
	minDetailWidth    = 36
)

// NameDetailRow is one table entry: a command name and its summary.
type NameDetailRow struct {
	Name   string
	Detail string
}

// NameDetailTableOptions configure PrintNameDetailTable.
type NameDetailTableOptions struct {
	Title      string
	Rows       []NameDetailRow
	NameHeader string
	EmptyText  string
}

// PrintNameDetailTable renders a two-column table, wrapping details to the
// terminal width when out is a tty.
func PrintNameDetailTable(out io.Writer, opts NameDetailTableOptions) {
	if out == nil {
		out = os.Stdout
	}
	if title := strings.TrimSpace(opts.Title); title != "" {
		fmt.Fprintln(out, Headerf("%s (%d)", title, len(opts.Rows)))
	}
	if len(opts.Rows) == 0 {
		empty := strings.TrimSpace(opts.EmptyText)
		if empty == "" {
			empty = "No entries."
		}
		fmt.Fprintln(out, Warn(empty))
		return
	}

	nameHeader := strings.TrimSpace(opts.NameHeader)
	if nameHeader == "" {
		nameHeader = "NAME"
	}
	nameWidth := utf8.RuneCountInString(nameHeader)
	for _, row := range opts.Rows {
		if w := utf8.RuneCountInString(row.Name); w > nameWidth {
			nameWidth = w
		}
	}
	detailWidth := detailColumnWidth(out, nameWidth)

	fmt.Fprintf(out, "%s  %s\n", Key(padRight(nameHeader, nameWidth)), Key("DETAILS"))
	fmt.Fprintf(out, "%s  %s\n", Dim(strings.Repeat("-", nameWidth)), Dim(strings.Repeat("-", detailWidth)))

	for _, row := range opts.Rows {
		lines := wrapWords(row.Detail, detailWidth)
		fmt.Fprintf(out, "%s  %s\n", Success(padRight(row.Name, nameWidth)), lines[0])
		for _, line := range lines[1:] {
			fmt.Fprintf(out, "%s  %s\n", strings.Repeat(" ", nameWidth), line)
		}
	}
}

func detailColumnWidth(out io.Writer, nameWidth int) int {
	width := defaultTableWidth
	if file, ok := out.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		if tw, _, err := term.GetSize(int(file.Fd())); err == nil && tw > 0 {
			width = tw
		}
	}
	if w := width - nameWidth - 2; w > minDetailWidth {
		return w
	}
	return minDetailWidth
}

func padRight(s string, width int) string {
	if missing := width - utf8.RuneCountInString(s); missing > 0 {
		return s + strings.Repeat(" ", missing)
	}
	return s
}

// wrapWords wraps text at word boundaries, rune-splitting words longer than
// a full line. It always returns at least one line.
func wrapWords(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 || width <= 0 {
		return []string{strings.TrimSpace(text)}
	}
	var lines []string
	current := ""
	flush := func() {
		if current != "" {
			lines = append(lines, current)
			current = ""
		}
	}
	for _, word := range words {
		for utf8.RuneCountInString(word) > width {
			flush()
			runes := []rune(word)
			lines = append(lines, string(runes[:width]))
			word = string(runes[width:])
		}
		switch {
		case current == "":
			current = word
		case utf8.RuneCountInString(current)+1+utf8.RuneCountInString(word) <= width:
			current += " " + word
		default:
			flush()
			current = word
		}
	}
	flush()
	if len(lines) == 0 {
		return []string{""}
	}
	return lines
}
