package sweep

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportNamesAndMIMETypes(t *testing.T) {
	tbl := mustIngest(t, "x.csv", "a\n1\n")

	tests := []struct {
		original string
		target   Format
		wantName string
		wantMIME string
	}{
		{"sales.xlsx", FormatCSV, "sales.csv", "text/csv"},
		{"report.csv", FormatXLSX, "report.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"},
		{"Q1.Data.CSV", FormatCSV, "Q1.Data.csv", "text/csv"},
		{"dump.csv.gz", FormatXLSX, "dump.xlsx", MIMETypeXLSX},
	}

	for _, tt := range tests {
		t.Run(tt.original, func(t *testing.T) {
			exp, err := ExportTable(tbl, tt.target, tt.original)
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, exp.FileName)
			assert.Equal(t, tt.wantMIME, exp.MIMEType)
			assert.Equal(t, tt.target, exp.Format)
			assert.NotZero(t, exp.Size())
		})
	}
}

func TestExportCSVHasNoIndex(t *testing.T) {
	tbl := mustIngest(t, "x.csv", "a,b\n1,\n2.5,hi\n")

	exp, err := ExportTable(tbl, FormatCSV, "x.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,\n2.5,hi\n", string(exp.Data))
}

func TestCSVRoundTrip(t *testing.T) {
	sources := []string{
		"a,b,c\n1,x,\n2,\"y, z\",3.25\n",
		"id,name\n10,\"quoted \"\"name\"\"\"\n11,plain\n",
		"n\n-0.5\n1e-07\n123456789\n",
	}

	for _, src := range sources {
		tbl := mustIngest(t, "r.csv", src)
		exp, err := ExportTable(tbl, FormatCSV, "r.csv")
		require.NoError(t, err)

		back, _, err := Ingest(UploadedFile{Name: exp.FileName, Data: exp.Data})
		require.NoError(t, err)
		assert.True(t, tbl.Equal(back), "round trip of %q", src)
	}
}

func TestXLSXRoundTrip(t *testing.T) {
	tbl := mustIngest(t, "r.csv", "name,qty,price\npen,3,1.25\nink,,7.5\npad,2,\n")

	exp, err := ExportTable(tbl, FormatXLSX, "r.csv")
	require.NoError(t, err)
	assert.Equal(t, "r.xlsx", exp.FileName)

	f, err := excelize.OpenReader(exp.Reader())
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SheetName}, f.GetSheetList())

	header, err := f.GetRows(SheetName)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "qty", "price"}, header[0])

	back, _, err := Ingest(UploadedFile{Name: exp.FileName, Data: exp.Data})
	require.NoError(t, err)
	assert.True(t, tbl.Equal(back))
}

func TestExportSerializationError(t *testing.T) {
	cols := make([]Column, excelize.MaxColumns+1)
	for i := range cols {
		cols[i] = Column{Name: fmt.Sprintf("c%d", i)}
	}
	tbl := &Table{Columns: cols}

	exp, err := ExportTable(tbl, FormatXLSX, "wide.csv")
	require.Error(t, err)
	assert.Nil(t, exp)
	assert.ErrorIs(t, err, ErrSerialization)
	assert.Equal(t, "EXP001", MapError(err).Code)
}

func TestExportReaderIsRewound(t *testing.T) {
	tbl := mustIngest(t, "x.csv", "a\n1\n")
	exp, err := ExportTable(tbl, FormatCSV, "x.csv")
	require.NoError(t, err)

	r := exp.Reader()
	assert.Equal(t, int64(len(exp.Data)), r.Size())
	assert.Equal(t, len(exp.Data), r.Len())
}
