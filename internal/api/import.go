package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

const pathImport = "/api/import"

// ImportReport is the server's structured rejection for a CSV bulk import.
// A single failed import usually maps to several itemized conflicts, so the
// caller renders this report instead of a generic failure message.
type ImportReport struct {
	DuplicateEmails   []string `json:"duplicateEmails"`
	DuplicateIMEIs    []string `json:"duplicateImeis"`
	DuplicateNumbers  []string `json:"duplicateNumbers"`
	UnknownReferences []string `json:"unknownReferences"`
}

// Empty reports whether the server rejected nothing.
func (r ImportReport) Empty() bool {
	return len(r.DuplicateEmails) == 0 &&
		len(r.DuplicateIMEIs) == 0 &&
		len(r.DuplicateNumbers) == 0 &&
		len(r.UnknownReferences) == 0
}

// importRequest is the bulk import body: the target collection and the
// parsed CSV rows.
type importRequest struct {
	Collection string              `json:"collection"`
	Rows       []map[string]string `json:"rows"`
}

// importResponse covers both outcomes: a count on success, a report on
// structured rejection.
type importResponse struct {
	Imported int          `json:"imported"`
	Report   ImportReport `json:"report"`
}

// ImportCSV posts parsed CSV rows to the bulk-import endpoint. On a
// structured rejection it returns the report together with
// ErrImportRejected so callers can suppress the generic failure path.
func (c *Client) ImportCSV(ctx context.Context, collection string, rows []map[string]string) (int, *ImportReport, error) {
	var out importResponse

	err := c.do(ctx, http.MethodPost, pathImport, importRequest{Collection: collection, Rows: rows}, &out)
	if err != nil {
		return 0, nil, err
	}

	if !out.Report.Empty() {
		report := out.Report

		return 0, &report, ErrImportRejected
	}

	return out.Imported, nil, nil
}

// TemplateCSV fetches the blank CSV template for a collection.
func (c *Client) TemplateCSV(ctx context.Context, collection string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathImport+"/template/"+collection, nil)
	if err != nil {
		return nil, err
	}

	tok, err := c.token.Token()
	if err != nil {
		return nil, err
	}

	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Message: MsgUnreachable, Err: ErrUnreachable}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFrom(http.MethodGet, pathImport+"/template", resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("api: reading template: %w", err)
	}

	return data, nil
}
