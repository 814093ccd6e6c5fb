// Package csvio parses bulk-import CSV files and produces blank templates.
// The server does the authoritative conflict checking; this side only
// guarantees a well-formed row set (header present, blank rows dropped,
// headers normalized).
package csvio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrNoHeader is returned for an empty file or one without a header row.
var ErrNoHeader = errors.New("csvio: ligne d'en-tête manquante")

// headers lists the template columns per importable collection.
var headers = map[string][]string{
	"lines":    {"number", "profile", "status", "comments", "agentEmail", "deviceImei"},
	"devices":  {"imei", "status", "isNew", "preparationDate", "attributionDate", "comments", "model", "agentEmail"},
	"agents":   {"email", "firstName", "lastName", "vip", "service"},
	"services": {"title"},
	"models":   {"brand", "reference", "storage"},
	"users":    {"email", "firstName", "lastName", "isAdmin"},
}

// Collections returns the importable collection names, sorted.
func Collections() []string {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Known reports whether a collection can be imported.
func Known(collection string) bool {
	_, ok := headers[collection]

	return ok
}

// Parse reads a CSV file into row maps keyed by header. The header row is
// required; fully blank rows are skipped; headers and values are
// NFC-normalized so accented column names compare reliably.
func Parse(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}

	if err != nil {
		return nil, fmt.Errorf("csvio: lecture de l'en-tête: %w", err)
	}

	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = norm.NFC.String(strings.TrimSpace(h))
	}

	var rows []map[string]string

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("csvio: lecture d'une ligne: %w", err)
		}

		if blank(record) {
			continue
		}

		row := make(map[string]string, len(cols))
		for i, col := range cols {
			if i < len(record) {
				row[col] = norm.NFC.String(strings.TrimSpace(record[i]))
			} else {
				row[col] = ""
			}
		}

		rows = append(rows, row)
	}

	return rows, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}

	return true
}

// Template returns a header-only CSV for a collection.
func Template(collection string) ([]byte, error) {
	cols, ok := headers[collection]
	if !ok {
		return nil, fmt.Errorf("csvio: collection inconnue %q", collection)
	}

	var buf bytes.Buffer

	w := csv.NewWriter(&buf)
	if err := w.Write(cols); err != nil {
		return nil, fmt.Errorf("csvio: écriture du modèle: %w", err)
	}

	w.Flush()

	return buf.Bytes(), w.Error()
}

// Write renders rows as CSV in the given column order, for exports.
// delim 0 means the default comma.
func Write(w io.Writer, delim rune, cols []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if delim != 0 {
		cw.Comma = delim
	}

	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("csvio: écriture de l'en-tête: %w", err)
	}

	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("csvio: écriture d'une ligne: %w", err)
		}
	}

	cw.Flush()

	return cw.Error()
}
