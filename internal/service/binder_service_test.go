package service

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/haksa-io/student-records-api/internal/models"
)

func testTemplate() *models.ReportTemplate {
	return &models.ReportTemplate{
		ID:           "tpl-1",
		TemplateCode: "semester_report",
		HTMLBody: `<html><body>
<h1>{{title}}</h1>
<p>{{student_name}} ({{home_country}})</p>
<div>{{score_chart}}</div>
<div>{{consultation_list}}</div>
<p>{{undeclared_extra}}</p>
</body></html>`,
		DataSources: models.TemplateDataSources{
			{Placeholder: "title", Kind: models.SourceKindScalar, Field: "attr.report_title"},
			{Placeholder: "student_name", Kind: models.SourceKindScalar, Field: "student_name"},
			{Placeholder: "home_country", Kind: models.SourceKindScalar, Field: "attr.home_country"},
			{Placeholder: "score_chart", Kind: models.SourceKindChart},
			{Placeholder: "consultation_list", Kind: models.SourceKindList, Field: "consultations"},
		},
		Labels: models.TemplateLabels{
			"ko": {"consult_date": "상담일", "consultant": "상담사", "topic": "주제", "content": "내용"},
			"vi": {"consult_date": "Ngày tư vấn"},
		},
	}
}

func testAggregate() *models.StudentAggregate {
	return &models.StudentAggregate{
		Student: models.Student{ID: "student-1", Name: "Nguyen Van A"},
		Attributes: map[string]string{
			"report_title": "2026-1 Semester Report",
			"home_country": "Vietnam",
		},
		ExamResults: []models.ExamResult{
			{ExamName: "TOPIK mock 1", Score: 125, ExamDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
			{ExamName: "TOPIK mock 2", Score: 132, ExamDate: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)},
			{ExamName: "TOPIK mock 3", Score: 140, ExamDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)},
			{ExamName: "TOPIK mock 4", Score: 148, ExamDate: time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)},
		},
		Consultations: []models.Consultation{
			{ConsultDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), Consultant: "Kim", Topic: "visa", Content: "extension submitted"},
		},
	}
}

func newBinderForTest() *BinderService {
	resolver := NewAggregateService(nil, nil, nil, DefaultFieldAliases(), zap.NewNop())
	return NewBinderService(resolver, zap.NewNop())
}

func TestMergeLeavesNoUnresolvedTokens(t *testing.T) {
	binder := newBinderForTest()
	tpl := testTemplate()
	aggregate := testAggregate()

	bindings := binder.Bind(tpl, aggregate, "ko")
	html, err := MergeHTML(tpl, bindings)
	require.NoError(t, err)

	tokenPattern := regexp.MustCompile(`\{\{\s*[A-Za-z_][A-Za-z0-9_]*\s*\}\}`)
	assert.Empty(t, tokenPattern.FindAllString(html, -1))
	assert.Contains(t, html, "Nguyen Van A")
	assert.Contains(t, html, "Vietnam")
}

func TestBindIsIdempotent(t *testing.T) {
	binder := newBinderForTest()
	tpl := testTemplate()
	aggregate := testAggregate()

	first := binder.Bind(tpl, aggregate, "ko")
	second := binder.Bind(tpl, aggregate, "ko")
	assert.Equal(t, first, second)
}

func TestBindUndeclaredPlaceholderResolvesEmpty(t *testing.T) {
	binder := newBinderForTest()
	tpl := testTemplate()
	bindings := binder.Bind(tpl, testAggregate(), "ko")

	// undeclared_extra is in the HTML but not in data_sources; the merge must
	// blank it, not keep the literal token
	_, declared := bindings["undeclared_extra"]
	assert.False(t, declared)
	html, err := MergeHTML(tpl, bindings)
	require.NoError(t, err)
	assert.NotContains(t, html, "undeclared_extra")
}

func TestBindChartEmptySeries(t *testing.T) {
	binder := newBinderForTest()
	tpl := testTemplate()
	aggregate := testAggregate()
	aggregate.ExamResults = nil

	bindings := binder.Bind(tpl, aggregate, "ko")
	assert.Equal(t, "", bindings["score_chart"])
}

func TestBindEmptyAggregateStillMerges(t *testing.T) {
	binder := newBinderForTest()
	tpl := testTemplate()
	aggregate := &models.StudentAggregate{
		Student:    models.Student{ID: "student-2"},
		Attributes: map[string]string{},
	}

	bindings := binder.Bind(tpl, aggregate, "ko")
	html, err := MergeHTML(tpl, bindings)
	require.NoError(t, err)
	assert.NotContains(t, html, "{{")
}

func TestBindListUsesLocalizedLabels(t *testing.T) {
	binder := newBinderForTest()
	tpl := testTemplate()
	bindings := binder.Bind(tpl, testAggregate(), "vi")

	list := bindings["consultation_list"]
	assert.Contains(t, list, "Ngày tư vấn")
	// vi label set has no consultant entry; fallback goes to ko
	assert.Contains(t, list, "상담사")
}

func TestRenderTrendChartScalesToObservedRange(t *testing.T) {
	series := []ScorePoint{
		{Index: 1, Score: 125},
		{Index: 2, Score: 132},
		{Index: 3, Score: 140},
		{Index: 4, Score: 148},
	}
	svg := RenderTrendChart(series, nil)
	require.NotEmpty(t, svg)
	assert.True(t, strings.HasPrefix(svg, "<svg"))
	assert.Contains(t, svg, "polyline")
	// extremes are labelled, proving the scale covers 125 through 148
	assert.Contains(t, svg, ">125<")
	assert.Contains(t, svg, ">148<")
}

func TestRenderTrendChartEmptySeries(t *testing.T) {
	assert.Equal(t, "", RenderTrendChart(nil, nil))
	assert.Equal(t, "", RenderTrendChart([]ScorePoint{}, nil))
}

func TestRenderTrendChartThresholdLine(t *testing.T) {
	threshold := 135.0
	series := []ScorePoint{{Index: 1, Score: 125}, {Index: 2, Score: 148}}
	svg := RenderTrendChart(series, &threshold)
	assert.Contains(t, svg, "stroke-dasharray")
}

func TestRenderTrendChartFlatSeries(t *testing.T) {
	series := []ScorePoint{{Index: 1, Score: 100}, {Index: 2, Score: 100}}
	svg := RenderTrendChart(series, nil)
	require.NotEmpty(t, svg)
	assert.NotContains(t, svg, "NaN")
}

func TestMergeReportsLeftoverTokens(t *testing.T) {
	tpl := &models.ReportTemplate{HTMLBody: "<p>{{present}} {{missing}}</p>"}
	// a nil map still resolves every token to empty, so no error
	html, err := MergeHTML(tpl, nil)
	require.NoError(t, err)
	assert.Equal(t, "<p> </p>", html)
}
