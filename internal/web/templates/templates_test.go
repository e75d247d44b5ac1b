package templates

import (
	"bytes"
	"context"
	"math"
	"strings"
	"testing"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/datasweeper/internal/session"
	"github.com/JonMunkholm/datasweeper/internal/sweep"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

func TestErrorAlertEscapes(t *testing.T) {
	out := render(t, ErrorAlert("<b>bad</b>", "retry & wait", "ERR000"))

	if strings.Contains(out, "<b>") {
		t.Errorf("message not escaped: %s", out)
	}
	for _, want := range []string{"&lt;b&gt;bad&lt;/b&gt;", "retry &amp; wait", "(ERR000)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestChartCapsBars(t *testing.T) {
	c := &sweep.Chart{
		Index: []int{0, 1, 2, 3},
		Series: []sweep.Series{
			{Name: "qty", Values: []float64{1, -2, math.NaN(), 4}},
		},
	}

	out := render(t, Chart(c, 2))

	if got := strings.Count(out, "<rect"); got != 2 {
		t.Errorf("drew %d bars, want 2", got)
	}
	if !strings.Contains(out, "Showing the first 2 of 4 rows.") {
		t.Errorf("missing truncation note: %s", out)
	}

	out = render(t, Chart(c, 0))
	// the NaN row is a gap
	if got := strings.Count(out, "<rect"); got != 3 {
		t.Errorf("drew %d bars, want 3", got)
	}
}

func TestPreviewTableShowsMissing(t *testing.T) {
	tbl := &sweep.Table{Columns: []sweep.Column{
		{Name: "a", Values: []sweep.Value{sweep.Number(1.5), sweep.Missing()}},
		{Name: "b", Values: []sweep.Value{sweep.Text("x<y"), sweep.Text("z")}},
	}}

	out := render(t, PreviewTable(tbl))

	for _, want := range []string{"<th>a</th>", "<td>1.5</td>", `<td class="na">None</td>`, "x&lt;y"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestSummary(t *testing.T) {
	ok := session.FileView{Name: "a.csv"}
	bad := session.FileView{Name: "b.txt", Err: sweep.ErrUnsupportedFormat}

	if out := render(t, Summary([]session.FileView{ok})); !strings.Contains(out, "All files processed successfully!") {
		t.Errorf("unexpected summary: %s", out)
	}
	if out := render(t, Summary([]session.FileView{ok, bad})); !strings.Contains(out, "Processed 2 files, 1 could not be read.") {
		t.Errorf("unexpected summary: %s", out)
	}
}

func TestLayoutChartScalesToDrawnRows(t *testing.T) {
	c := &sweep.Chart{
		Index:  []int{0, 1, 2},
		Series: []sweep.Series{{Name: "qty", Values: []float64{10, 20, 1000}}},
	}

	v := layoutChart(c, 2)

	if v.Hi != "20" || v.Lo != "0" {
		t.Errorf("axis = [%s, %s], want [0, 20]", v.Lo, v.Hi)
	}
	if len(v.Bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(v.Bars))
	}
	// the tallest drawn bar reaches the top of the plot
	if v.Bars[1].Y != num(chartTop) {
		t.Errorf("tallest bar starts at y=%s, want %s", v.Bars[1].Y, num(chartTop))
	}
}

func TestChartUsesNoInlineStyles(t *testing.T) {
	c := &sweep.Chart{
		Index: []int{0, 1},
		Series: []sweep.Series{
			{Name: "a", Values: []float64{1, 2}},
			{Name: "b", Values: []float64{3, 4}},
		},
	}

	out := render(t, Chart(c, 0))

	if strings.Contains(out, "style=") {
		t.Errorf("chart has inline styles: %s", out)
	}
	for _, want := range []string{`data-series="0"`, `data-series="1"`, "<title>b [1]: 4</title>"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestFilePanelEscapesName(t *testing.T) {
	f := session.FileView{ID: "abc", Name: "<x>.txt", Err: sweep.ErrUnsupportedFormat}

	out := render(t, FilePanel(f, 0))

	if strings.Contains(out, "<x>") {
		t.Errorf("file name not escaped: %s", out)
	}
	for _, want := range []string{"Process &lt;x&gt;.txt", `action="/files/abc/remove"`, "alert-error"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}
