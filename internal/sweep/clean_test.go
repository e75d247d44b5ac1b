package sweep

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustIngest(t *testing.T, name, content string) *Table {
	t.Helper()
	tbl, _, err := Ingest(csvFile(name, content))
	require.NoError(t, err)
	return tbl
}

func TestCleanWorkedExample(t *testing.T) {
	tbl := mustIngest(t, "ab.csv", "a,b\n1,2\n1,2\n3,\n")

	removed := RemoveDuplicates(tbl)
	assert.Equal(t, 1, removed)
	require.Equal(t, 2, tbl.NumRows())
	assert.Equal(t, []Value{Number(1), Number(2)}, tbl.Row(0))
	assert.Equal(t, []Value{Number(3), Missing()}, tbl.Row(1))

	filled := FillMissingNumeric(tbl)
	assert.Equal(t, 1, filled)
	assert.Equal(t, []Value{Number(2), Number(2)}, tbl.Columns[1].Values)
}

func TestRemoveDuplicatesCount(t *testing.T) {
	// 6 rows, 3 distinct
	tbl := mustIngest(t, "d.csv", "k,v\nx,1\ny,\nx,1\nx,2\ny,\nx,1\n")
	n := tbl.NumRows()

	removed := RemoveDuplicates(tbl)
	assert.Equal(t, 3, removed)
	assert.Equal(t, n-removed, tbl.NumRows())
	assert.Equal(t, []Value{Text("x"), Number(1)}, tbl.Row(0))
	assert.Equal(t, []Value{Text("y"), Missing()}, tbl.Row(1))
	assert.Equal(t, []Value{Text("x"), Number(2)}, tbl.Row(2))
}

func TestRemoveDuplicatesDistinguishesTextFromNumber(t *testing.T) {
	tbl := &Table{Columns: []Column{
		{Name: "a", Values: []Value{Text("1"), Number(1), Missing(), Text("")}},
	}}
	assert.Equal(t, 0, RemoveDuplicates(tbl))
	assert.Equal(t, 4, tbl.NumRows())
}

func TestRemoveDuplicatesKeyBoundaries(t *testing.T) {
	// "ab"+"c" must not collide with "a"+"bc"
	tbl := &Table{Columns: []Column{
		{Name: "x", Values: []Value{Text("ab"), Text("a")}},
		{Name: "y", Values: []Value{Text("c"), Text("bc")}},
	}}
	assert.Equal(t, 0, RemoveDuplicates(tbl))
}

func TestRemoveDuplicatesNegativeZero(t *testing.T) {
	tbl := mustIngest(t, "zero.csv", "v\n0\n-0\n0.0\n")
	require.True(t, tbl.Columns[0].Values[0].Equal(tbl.Columns[0].Values[1]))

	assert.Equal(t, 2, RemoveDuplicates(tbl))
	assert.Equal(t, 1, tbl.NumRows())
}

func TestCleaningIsIdempotent(t *testing.T) {
	src := "id,score,label\n1,10,a\n2,,b\n1,10,a\n3,4,\n2,,b\n"

	for _, action := range []Action{ActionRemoveDuplicates, ActionFillMissing} {
		t.Run(action.String(), func(t *testing.T) {
			tbl := mustIngest(t, "s.csv", src)

			_, err := Apply(tbl, action)
			require.NoError(t, err)
			once := tbl.Clone()

			res, err := Apply(tbl, action)
			require.NoError(t, err)
			assert.True(t, once.Equal(tbl))
			assert.Zero(t, res.Removed)
			assert.Zero(t, res.Filled)
		})
	}
}

func TestFillMissingSkipsTextColumns(t *testing.T) {
	tbl := mustIngest(t, "t.csv", "name,n\nann,1\n,3\n")
	FillMissingNumeric(tbl)

	assert.Equal(t, Missing(), tbl.Columns[0].Values[1])
	assert.Equal(t, []Value{Number(1), Number(3)}, tbl.Columns[1].Values)
}

func TestFillMissingAllMissingColumnStaysMissing(t *testing.T) {
	tbl := mustIngest(t, "m.csv", "a,empty\n1,\n2,NA\n")
	require.True(t, tbl.Columns[1].IsNumeric())

	filled := FillMissingNumeric(tbl)
	assert.Equal(t, 0, filled)
	assert.Equal(t, []Value{Missing(), Missing()}, tbl.Columns[1].Values)
}

func TestFillMissingUsesMean(t *testing.T) {
	tbl := mustIngest(t, "mean.csv", "v\n1\nNA\n2\n6\n")
	assert.Equal(t, 1, FillMissingNumeric(tbl))
	assert.Equal(t, Number(3), tbl.Columns[0].Values[1])
}

func TestFillMissingUndefinedMean(t *testing.T) {
	tbl := &Table{Columns: []Column{
		{Name: "v", Values: []Value{Number(math.Inf(1)), Number(math.Inf(-1)), Missing()}},
	}}
	assert.Equal(t, 0, FillMissingNumeric(tbl))
	assert.True(t, tbl.Columns[0].Values[2].IsMissing())
}

func TestApplyNoneIsNoop(t *testing.T) {
	tbl := mustIngest(t, "n.csv", "a\n1\n1\n")
	before := tbl.Clone()

	res, err := Apply(tbl, ActionNone)
	require.NoError(t, err)
	assert.Empty(t, res.Message())
	assert.True(t, before.Equal(tbl))
}

func TestApplyUnknownAction(t *testing.T) {
	_, err := Apply(&Table{}, Action(42))
	assert.Error(t, err)
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		in      string
		want    Action
		wantErr bool
	}{
		{"", ActionNone, false},
		{"remove_duplicates", ActionRemoveDuplicates, false},
		{" Fill_Missing ", ActionFillMissing, false},
		{"dedupe", ActionRemoveDuplicates, false},
		{"sort", ActionNone, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAction(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCleanResultMessage(t *testing.T) {
	assert.Equal(t, "Removed 4 duplicate rows!", CleanResult{Action: ActionRemoveDuplicates, Removed: 4}.Message())
	assert.Equal(t, "Missing values have been filled!", CleanResult{Action: ActionFillMissing}.Message())
}
