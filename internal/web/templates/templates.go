// Package templates holds the templ components of the UI. The *_templ.go
// files are generated from the .templ sources with `templ generate`.
package templates

import (
	"fmt"
	"math"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/datasweeper/internal/session"
	"github.com/JonMunkholm/datasweeper/internal/sweep"
)

// AppTitle is shown in the page header and the browser tab.
const AppTitle = "Data Sweeper"

// Intro is the banner under the page title.
const Intro = "Transform your files between CSV and Excel formats with built-in data cleaning and visualization."

// WelcomeMessage is shown while the session holds no files.
const WelcomeMessage = "Upload your files above to get started!"

// HomeParams is everything the main page needs.
type HomeParams struct {
	Files []session.FileView
	// Extensions lists accepted upload extensions, e.g. ".csv".
	Extensions []string
	MaxFiles   int
	MaxBars    int
}

func pageTitle(title string) string {
	if title == "" || title == AppTitle {
		return AppTitle
	}
	return title + " · " + AppTitle
}

func failedCount(files []session.FileView) int {
	n := 0
	for _, f := range files {
		if f.Failed() {
			n++
		}
	}
	return n
}

func summaryText(files []session.FileView) string {
	return fmt.Sprintf("Processed %d files, %d could not be read.", len(files), failedCount(files))
}

// failedAlert explains why a file could not be loaded.
func failedAlert(f session.FileView) templ.Component {
	msg := sweep.MapError(f.Err)
	text := "Error processing " + f.Name + ": " + msg.Message
	if d := sweep.Detail(f.Err); d != "" {
		text += " (" + d + ")"
	}
	return ErrorAlert(text, msg.Action, msg.Code)
}

func fileURL(f session.FileView, action string) string {
	return "/files/" + f.ID + "/" + action
}

// cell is a rendered preview cell.
type cell struct {
	Text    string
	Missing bool
}

func previewRow(t *sweep.Table, i int) []cell {
	row := t.Row(i)
	out := make([]cell, len(row))
	for j, v := range row {
		out[j] = cell{Text: v.String(), Missing: v.IsMissing()}
	}
	return out
}

func rowIndexes(t *sweep.Table) []int {
	idx := make([]int, t.NumRows())
	for i := range idx {
		idx[i] = i
	}
	return idx
}

var downloadTargets = []sweep.Format{sweep.FormatCSV, sweep.FormatXLSX}

const (
	chartWidth  = 800.0
	chartHeight = 320.0
	chartLeft   = 56.0
	chartRight  = 16.0
	chartTop    = 16.0
	chartBottom = 28.0
)

// chartView is a chart reduced to SVG coordinates.
type chartView struct {
	ViewBox string
	Left    string
	Right   string
	Top     string
	Bottom  string
	Zero    string
	TickX   string
	TickHiY string
	Hi      string
	Lo      string
	Bars    []chartBar
	Legend  []chartLegend
	Note    string
}

type chartBar struct {
	X, Y, Width, Height string
	Series              string
	Title               string
}

type chartLegend struct {
	Series string
	Name   string
}

// layoutChart places one group of bars per row, drawing at most maxBars
// rows (0 draws all). Missing and infinite values leave gaps. The y-scale
// covers only the drawn rows.
func layoutChart(c *sweep.Chart, maxBars int) chartView {
	n := len(c.Index)
	if maxBars > 0 && n > maxBars {
		n = maxBars
	}

	lo, hi := c.Bounds(n)
	if hi == lo {
		hi = lo + 1
	}
	plotW := chartWidth - chartLeft - chartRight
	plotH := chartHeight - chartTop - chartBottom
	y := func(v float64) float64 {
		return chartTop + (hi-v)/(hi-lo)*plotH
	}
	zero := y(0)

	v := chartView{
		ViewBox: "0 0 " + num(chartWidth) + " " + num(chartHeight),
		Left:    num(chartLeft),
		Right:   num(chartWidth - chartRight),
		Top:     num(chartTop),
		Bottom:  num(chartTop + plotH),
		Zero:    num(zero),
		TickX:   num(chartLeft - 6),
		TickHiY: num(chartTop + 4),
		Hi:      tick(hi),
		Lo:      tick(lo),
	}

	if n > 0 {
		groupW := plotW / float64(n)
		barW := groupW / float64(len(c.Series)+1)
		for s, series := range c.Series {
			for i := 0; i < n && i < len(series.Values); i++ {
				val := series.Values[i]
				if math.IsNaN(val) || math.IsInf(val, 0) {
					continue
				}
				top, bottom := y(val), zero
				if top > bottom {
					top, bottom = bottom, top
				}
				v.Bars = append(v.Bars, chartBar{
					X:      num(chartLeft + float64(i)*groupW + barW/2 + float64(s)*barW),
					Y:      num(top),
					Width:  num(barW),
					Height: num(bottom - top),
					Series: strconv.Itoa(s % 2),
					Title:  series.Name + " [" + strconv.Itoa(c.Index[i]) + "]: " + tick(val),
				})
			}
		}
	}

	for s, series := range c.Series {
		v.Legend = append(v.Legend, chartLegend{Series: strconv.Itoa(s % 2), Name: series.Name})
	}
	if n < len(c.Index) {
		v.Note = fmt.Sprintf("Showing the first %d of %d rows.", n, len(c.Index))
	}
	return v
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

func tick(f float64) string {
	return strconv.FormatFloat(f, 'g', 6, 64)
}
