package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankingDataset() Dataset {
	d := Dataset{Title: "Class Ranking", Headers: []string{"rank", "class", "net_score"}}
	d.AddRow("1", "10A2", "2")
	d.AddRow("2", "10A1", "-7")
	return d
}

func TestParseFormat(t *testing.T) {
	for raw, want := range map[string]Format{"": FormatJSON, "CSV": FormatCSV, " pdf ": FormatPDF, "json": FormatJSON} {
		got, err := ParseFormat(raw)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xlsx")
	assert.Error(t, err)
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(rankingDataset())
	require.NoError(t, err)
	assert.Equal(t, "rank,class,net_score\n1,10A2,2\n2,10A1,-7\n", string(out))

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(rankingDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))

	wide := Dataset{Headers: []string{"a", "b", "c", "d", "e", "f", "g"}}
	for i := 0; i < 80; i++ {
		wide.AddRow("x", "y")
	}
	out, err = NewPDFExporter().Render(wide)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestRendererFor(t *testing.T) {
	r, err := RendererFor(FormatCSV)
	require.NoError(t, err)
	assert.IsType(t, &CSVExporter{}, r)

	_, err = RendererFor(FormatJSON)
	assert.Error(t, err)
}
