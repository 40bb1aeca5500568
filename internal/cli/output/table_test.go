package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableData(t *testing.T) {
	table := NewTableData("Phase", "Headers", "Bodies")

	assert.Equal(t, []string{"Phase", "Headers", "Bodies"}, table.Headers())
	assert.Empty(t, table.Rows())

	table.AddRow("warmup", "10", "10")
	table.AddRow("grow", "30", "30")

	rows := table.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"warmup", "10", "10"}, rows[0])
	assert.Equal(t, []string{"grow", "30", "30"}, rows[1])
}

func TestPrintTable(t *testing.T) {
	table := NewTableData("Queue", "Buffers")
	table.AddRow("headers", "25")
	table.AddRow("bodies", "35")

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, table))

	output := buf.String()
	assert.Contains(t, output, "QUEUE")
	assert.Contains(t, output, "BUFFERS")
	assert.Contains(t, output, "headers")
	assert.Contains(t, output, "35")
}

func TestPrintKeyValues(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintKeyValues(&buf, [][2]string{
		{"Body kind", "direct"},
		{"Direct bytes", "35840"},
	}))

	output := buf.String()
	assert.Contains(t, output, "Body kind")
	assert.Contains(t, output, "direct")
	assert.Contains(t, output, "35840")
}
