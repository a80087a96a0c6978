package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rosterDataset() Dataset {
	return Dataset{
		Title:   "Student roster",
		Headers: []string{"Name", "Email", "Course", "Status", "Grade"},
		Rows: [][]string{
			{"Ana Diaz", "ana@example.com", "Intro to SQL", "enrolled", "91"},
			{"Li Wei", "li@example.com", "Intro to SQL, advanced", "completed"},
		},
	}
}

func TestCSVExporterPadsShortRowsAndQuotes(t *testing.T) {
	out, err := NewCSVExporter().Render(rosterDataset())
	require.NoError(t, err)
	assert.Equal(t, "Name,Email,Course,Status,Grade\n"+
		"Ana Diaz,ana@example.com,Intro to SQL,enrolled,91\n"+
		"Li Wei,li@example.com,\"Intro to SQL, advanced\",completed,\n", string(out))
}

func TestExportersRequireHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
	_, err = NewPDFExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterProducesDocument(t *testing.T) {
	out, err := NewPDFExporter().Render(rosterDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestColumnWidthsFillPage(t *testing.T) {
	widths := columnWidths(Dataset{Headers: []string{"A", "Email address of every enrolled student"}, Rows: [][]string{{"x"}}})
	require.Len(t, widths, 2)
	assert.Equal(t, minColWidth, widths[0])
	assert.Greater(t, widths[1], widths[0])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(" PDF ")
	require.NoError(t, err)
	assert.Equal(t, FormatPDF, f)
	assert.Equal(t, ".pdf", f.Extension())
	_, err = ParseFormat("xlsx")
	assert.Error(t, err)
}
