package tabular

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseCSV(t *testing.T) {
	data := []byte("First Name,Last Name,Email\nJohn,Smith,john@example.com\nJane,Doe,jane@example.com\n")

	rows, err := Parse(data, FormatCSV)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, 1, rows[0].Index)
	assert.Equal(t, "John", rows[0].Get("first_name"))
	assert.Equal(t, "john@example.com", rows[0].Get("email"))
	assert.Equal(t, 2, rows[1].Index)
	assert.Equal(t, "Doe", rows[1].Get("last_name"))
}

func TestParseCSVEmptyFile(t *testing.T) {
	rows, err := Parse([]byte(""), FormatCSV)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseCSVSkipsBlankLines(t *testing.T) {
	data := []byte("first_name,email\n\nJohn,john@example.com\n,,\n")

	rows, err := Parse(data, FormatCSV)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].Index)
}

func TestParseCSVRaggedRow(t *testing.T) {
	data := []byte("first_name,last_name,email\nJohn,Smith\n")

	rows, err := Parse(data, FormatCSV)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Smith", rows[0].Get("last_name"))
	assert.Equal(t, "", rows[0].Get("email"))
}

func TestParseXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]string{"First Name", "Email"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]string{"John", "john@example.com"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	rows, err := Parse(buf.Bytes(), FormatXLSX)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "John", rows[0].Get("first_name"))
	assert.Equal(t, "john@example.com", rows[0].Get("email"))
}

func TestParseUnsupportedFormat(t *testing.T) {
	_, err := Parse([]byte("a,b"), Format("pdf"))
	require.Error(t, err)
}
