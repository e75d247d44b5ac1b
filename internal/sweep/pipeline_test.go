package sweep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProcessAllIsolatesFailures(t *testing.T) {
	xlsx := FormatXLSX
	files := []UploadedFile{
		csvFile("first.csv", "a,b\n1,2\n1,2\n3,\n"),
		csvFile("data.txt", "a,b\n1,2\n"),
		csvFile("broken.csv", "a\n1,2\n"),
		csvFile("last.csv", "k\nx\n"),
	}

	results := ProcessAll(files, Request{
		Actions:   []Action{ActionRemoveDuplicates, ActionFillMissing},
		Visualize: true,
		Target:    &xlsx,
	})
	require.Len(t, results, 4)

	first := results[0]
	require.NoError(t, first.Err)
	assert.Equal(t, 3, first.Inspection.Metrics.Rows)
	assert.Equal(t, 2, first.Table.NumRows())
	assert.Equal(t, []Value{Number(2), Number(2)}, first.Table.Columns[1].Values)
	require.Len(t, first.Cleaning, 2)
	assert.Equal(t, 1, first.Cleaning[0].Removed)
	assert.NotNil(t, first.Chart.Chart)
	assert.Equal(t, "first.xlsx", first.Export.FileName)

	bad := results[1]
	assert.True(t, bad.Failed())
	assert.ErrorIs(t, bad.Err, ErrUnsupportedFormat)
	assert.Nil(t, bad.Table)
	assert.Nil(t, bad.Export)

	assert.ErrorIs(t, results[2].Err, ErrParse)

	last := results[3]
	require.NoError(t, last.Err)
	assert.Equal(t, NoNumericNotice, last.Chart.Notice)
	assert.Equal(t, "last.xlsx", last.Export.FileName)
}

func TestProcessSelection(t *testing.T) {
	res := Process(csvFile("p.csv", "a,b,c\n1,2,3\n"), Request{Columns: []string{"c", "a"}})
	require.NoError(t, res.Err)
	assert.Equal(t, []string{"c", "a"}, res.Table.ColumnNames())
	assert.Nil(t, res.Chart)
	assert.Nil(t, res.Export)

	res = Process(csvFile("p.csv", "a\n1\n"), Request{Columns: []string{"nope"}})
	assert.ErrorIs(t, res.Err, ErrInvalidColumn)
}
