package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintTable_AlignsColumns(t *testing.T) {
	var buf bytes.Buffer

	printTable(&buf, []string{"id", "number"}, [][]string{
		{"1", "0612345678"},
		{"12", "07"},
	})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	assert.Len(t, lines, 3)
	assert.Equal(t, "id  number", string(lines[0]))
	assert.Equal(t, "1   0612345678", string(lines[1]))
	assert.Equal(t, "12  07", string(lines[2]))
}

func TestFormatID(t *testing.T) {
	assert.Equal(t, "-", formatID(nil))

	id := int64(42)
	assert.Equal(t, "42", formatID(&id))
}

func TestFormatBool(t *testing.T) {
	assert.Equal(t, "oui", formatBool(true))
	assert.Equal(t, "non", formatBool(false))
}

func TestSelectColumns(t *testing.T) {
	row := map[string]string{"id": "1", "number": "0612345678", "status": "Active"}

	// Preferred order wins.
	assert.Equal(t, []string{"Active", "1"}, selectColumns([]string{"status", "id"}, defaultLineColumns, row))

	// Unknown preferred column renders empty instead of failing.
	assert.Equal(t, []string{"1", ""}, selectColumns([]string{"id", "bogus"}, defaultLineColumns, row))
}

func TestColumnsOrDefault(t *testing.T) {
	defaults := []string{"id", "number"}

	assert.Equal(t, defaults, columnsOrDefault(nil, defaults))
	assert.Equal(t, []string{"status"}, columnsOrDefault([]string{"status"}, defaults))
}

func TestParseID(t *testing.T) {
	id, err := parseID("42")
	assert.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = parseID("abc")
	assert.Error(t, err)

	_, err = parseID("-3")
	assert.Error(t, err)

	_, err = parseID("0")
	assert.Error(t, err)
}
