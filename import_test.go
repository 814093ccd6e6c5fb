package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gestion-smac/smacctl/internal/api"
)

func TestReportSummary(t *testing.T) {
	assert.Equal(t, "", reportSummary(nil))
	assert.Equal(t, "", reportSummary(&api.ImportReport{}))

	r := &api.ImportReport{
		DuplicateIMEIs:    []string{"111111111111111", "222222222222222"},
		UnknownReferences: []string{"Galaxy S99"},
	}
	assert.Equal(t, "2 IMEI en double, 1 référence(s) inconnue(s)", reportSummary(r))
}

func TestCheckCollection(t *testing.T) {
	assert.NoError(t, checkCollection("lines"))
	assert.NoError(t, checkCollection("users"))

	err := checkCollection("invoices")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "collection inconnue")
}
