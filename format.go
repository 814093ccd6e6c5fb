package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// printJSON renders v as indented JSON on stdout, for --json output.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// printTable writes aligned columns to the given writer.
// headers and each row must have the same length.
func printTable(w io.Writer, headers []string, rows [][]string) {
	// Compute column widths.
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	// Print header.
	printRow(w, headers, widths)

	// Print rows.
	for _, row := range rows {
		printRow(w, row, widths)
	}
}

// printRow writes a single padded row.
func printRow(w io.Writer, cells []string, widths []int) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}

	fmt.Fprintln(w, strings.Join(parts, "  "))
}

// formatID renders a nullable foreign key; "-" when unset.
func formatID(id *int64) string {
	if id == nil {
		return "-"
	}

	return strconv.FormatInt(*id, 10)
}

// formatBool renders a boolean the way the operators read it.
func formatBool(b bool) string {
	if b {
		return "oui"
	}

	return "non"
}

// formatTime returns a compact timestamp for display.
func formatTime(t time.Time) string {
	now := time.Now()

	// Same calendar year: show "Jan  2 15:04"
	if t.Year() == now.Year() {
		return t.Format("Jan _2 15:04")
	}

	// Different year: show "Jan  2  2006"
	return t.Format("Jan _2  2006")
}

// selectColumns reorders and filters a row map into the preferred column
// order. Unknown preferred columns render empty rather than failing, so a
// stale preference never breaks listing.
func selectColumns(preferred []string, defaults []string, row map[string]string) []string {
	cols := defaults
	if len(preferred) > 0 {
		cols = preferred
	}

	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = row[c]
	}

	return out
}

// columnsOrDefault returns the preferred column list when set.
func columnsOrDefault(preferred, defaults []string) []string {
	if len(preferred) > 0 {
		return preferred
	}

	return defaults
}
