package service

import (
	"fmt"
	"strings"
)

// ScorePoint is one sample of an exam-score trend.
type ScorePoint struct {
	Index int
	Score float64
}

// Fixed chart canvas. Inline SVG keeps the PDF renderer free of external
// image fetches.
const (
	chartWidth   = 480.0
	chartHeight  = 180.0
	chartPadding = 24.0
)

// RenderTrendChart draws an inline SVG polyline for an ordered score series.
// The vertical axis scales linearly between the observed min and max with
// padding so the extremes never sit on the canvas edge. A threshold draws as
// a dashed horizontal line when it falls inside the scaled range. An empty
// series renders to an empty string, not a stub.
func RenderTrendChart(series []ScorePoint, threshold *float64) string {
	if len(series) == 0 {
		return ""
	}

	minScore, maxScore := series[0].Score, series[0].Score
	for _, p := range series[1:] {
		if p.Score < minScore {
			minScore = p.Score
		}
		if p.Score > maxScore {
			maxScore = p.Score
		}
	}
	span := maxScore - minScore
	if span == 0 {
		span = 1
	}
	// pad the scale by 10% of the span on each side
	scaleMin := minScore - span*0.1
	scaleMax := maxScore + span*0.1
	scaleSpan := scaleMax - scaleMin

	plotWidth := chartWidth - 2*chartPadding
	plotHeight := chartHeight - 2*chartPadding

	xAt := func(i int) float64 {
		if len(series) == 1 {
			return chartPadding + plotWidth/2
		}
		return chartPadding + plotWidth*float64(i)/float64(len(series)-1)
	}
	yAt := func(score float64) float64 {
		return chartPadding + plotHeight*(1-(score-scaleMin)/scaleSpan)
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%g" height="%g" viewBox="0 0 %g %g" class="score-trend">`,
		chartWidth, chartHeight, chartWidth, chartHeight)
	fmt.Fprintf(&b, `<rect x="0" y="0" width="%g" height="%g" fill="#ffffff" stroke="#d0d4da"/>`, chartWidth, chartHeight)

	if threshold != nil && *threshold >= scaleMin && *threshold <= scaleMax {
		y := yAt(*threshold)
		fmt.Fprintf(&b, `<line x1="%g" y1="%.2f" x2="%g" y2="%.2f" stroke="#c0392b" stroke-dasharray="6 4"/>`,
			chartPadding, y, chartWidth-chartPadding, y)
		fmt.Fprintf(&b, `<text x="%g" y="%.2f" font-size="10" fill="#c0392b">%g</text>`,
			chartWidth-chartPadding+2, y+3, *threshold)
	}

	points := make([]string, 0, len(series))
	for i, p := range series {
		points = append(points, fmt.Sprintf("%.2f,%.2f", xAt(i), yAt(p.Score)))
	}
	fmt.Fprintf(&b, `<polyline points="%s" fill="none" stroke="#2c6fbb" stroke-width="2"/>`, strings.Join(points, " "))

	for i, p := range series {
		x, y := xAt(i), yAt(p.Score)
		fmt.Fprintf(&b, `<circle cx="%.2f" cy="%.2f" r="3" fill="#2c6fbb"/>`, x, y)
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" font-size="10" text-anchor="middle" fill="#30353b">%g</text>`,
			x, y-7, p.Score)
	}

	b.WriteString("</svg>")
	return b.String()
}
