package csvio

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_HeaderRequired(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrNoHeader)
}

func TestParse_RowsKeyedByHeader(t *testing.T) {
	input := "email,firstName,lastName\n" +
		"jdoe@example.org,John,Doe\n" +
		"\n" +
		",,\n" +
		"asmith@example.org,Alice,Smith\n"

	rows, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2, "blank rows are skipped")

	assert.Equal(t, "jdoe@example.org", rows[0]["email"])
	assert.Equal(t, "Alice", rows[1]["firstName"])
}

func TestParse_ShortRowPadsEmpty(t *testing.T) {
	rows, err := Parse(strings.NewReader("imei,status,comments\n123456789012345,Attribué\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "", rows[0]["comments"])
	assert.Equal(t, "Attribué", rows[0]["status"])
}

func TestParse_NormalizesHeaders(t *testing.T) {
	// Header written with a combining accent (NFD) still maps to the NFC key.
	rows, err := Parse(strings.NewReader("re\u0301f\u00e9rence\nGalaxy S24\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "Galaxy S24", rows[0]["r\u00e9f\u00e9rence"])
}

func TestTemplate(t *testing.T) {
	out, err := Template("services")
	require.NoError(t, err)
	assert.Equal(t, "title\n", string(out))

	_, err = Template("invoices")
	assert.Error(t, err)
}

func TestCollections(t *testing.T) {
	names := Collections()
	assert.Contains(t, names, "lines")
	assert.Contains(t, names, "agents")
	assert.True(t, Known("devices"))
	assert.False(t, Known("devicess"))
}

func TestWrite(t *testing.T) {
	var sb strings.Builder

	err := Write(&sb, 0, []string{"title"}, [][]string{{"DSI"}, {"RH"}})
	require.NoError(t, err)
	assert.Equal(t, "title\nDSI\nRH\n", sb.String())
}

func TestWrite_Delimiter(t *testing.T) {
	var sb strings.Builder

	err := Write(&sb, ';', []string{"brand", "reference"}, [][]string{{"Samsung", "Galaxy S24"}})
	require.NoError(t, err)
	assert.Equal(t, "brand;reference\nSamsung;Galaxy S24\n", sb.String())
}
