package service

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/haksa-io/student-records-api/internal/models"
)

// fieldResolver resolves a logical field name against an aggregate, walking
// the legacy alias chain.
type fieldResolver interface {
	ResolveField(aggregate *models.StudentAggregate, logical string) string
}

// BinderService resolves a template's declared data sources against a student
// aggregate into a placeholder substitution map. Binding is pure: no writes,
// no hidden state, identical inputs produce identical maps.
type BinderService struct {
	resolver fieldResolver
	logger   *zap.Logger
}

// NewBinderService constructs the binder.
func NewBinderService(resolver fieldResolver, logger *zap.Logger) *BinderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BinderService{resolver: resolver, logger: logger}
}

// placeholderPattern matches {{identifier}} tokens in template HTML.
var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Bind produces the substitution map for one (template, aggregate, language)
// combination. A source that cannot resolve binds to "" rather than failing
// the whole map; a failed report must come from rendering, never from data.
func (s *BinderService) Bind(tpl *models.ReportTemplate, aggregate *models.StudentAggregate, language string) map[string]string {
	bindings := make(map[string]string, len(tpl.DataSources))
	for _, source := range tpl.DataSources {
		switch source.Kind {
		case models.SourceKindChart:
			bindings[source.Placeholder] = s.bindChart(source, aggregate)
		case models.SourceKindList:
			bindings[source.Placeholder] = s.bindList(tpl, source, aggregate, language)
		default:
			bindings[source.Placeholder] = s.resolver.ResolveField(aggregate, source.Field)
		}
	}
	return bindings
}

func (s *BinderService) bindChart(source models.TemplateDataSource, aggregate *models.StudentAggregate) string {
	series := make([]ScorePoint, 0, len(aggregate.ExamResults))
	for i, exam := range aggregate.ExamResults {
		score := exam.Score
		if score != score || score < 0 { // NaN or negative: malformed row
			s.logger.Sugar().Warnw("malformed exam score coerced to zero", "student_id", aggregate.Student.ID, "exam", exam.ExamName)
			score = 0
		}
		series = append(series, ScorePoint{Index: i + 1, Score: score})
	}
	if source.Limit > 0 && len(series) > source.Limit {
		series = series[len(series)-source.Limit:]
	}
	return RenderTrendChart(series, source.Threshold)
}

func (s *BinderService) bindList(tpl *models.ReportTemplate, source models.TemplateDataSource, aggregate *models.StudentAggregate, language string) string {
	switch source.Field {
	case "consultations":
		return s.renderConsultations(tpl, aggregate.Consultations, source.Limit, language)
	case "evaluations":
		return s.renderEvaluations(tpl, aggregate.Evaluations, source.Limit, language)
	case "exam_results":
		return s.renderExamResults(tpl, aggregate.ExamResults, source.Limit, language)
	default:
		s.logger.Sugar().Warnw("unknown list data source", "field", source.Field)
		return ""
	}
}

func (s *BinderService) renderConsultations(tpl *models.ReportTemplate, items []models.Consultation, limit int, language string) string {
	if len(items) == 0 {
		return ""
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	var b strings.Builder
	b.WriteString(`<table class="record-list"><thead><tr>`)
	for _, key := range []string{"consult_date", "consultant", "topic", "content"} {
		fmt.Fprintf(&b, "<th>%s</th>", escapeHTML(tpl.Label(language, key)))
	}
	b.WriteString("</tr></thead><tbody>")
	for _, item := range items {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			item.ConsultDate.Format("2006-01-02"),
			escapeHTML(item.Consultant),
			escapeHTML(item.Topic),
			escapeHTML(item.Content))
	}
	b.WriteString("</tbody></table>")
	return b.String()
}

func (s *BinderService) renderEvaluations(tpl *models.ReportTemplate, items []models.Evaluation, limit int, language string) string {
	if len(items) == 0 {
		return ""
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	var b strings.Builder
	b.WriteString(`<table class="record-list"><thead><tr>`)
	for _, key := range []string{"period", "evaluator", "rating", "content"} {
		fmt.Fprintf(&b, "<th>%s</th>", escapeHTML(tpl.Label(language, key)))
	}
	b.WriteString("</tr></thead><tbody>")
	for _, item := range items {
		rating := ""
		if item.Rating != nil {
			rating = *item.Rating
		}
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>",
			escapeHTML(item.Period),
			escapeHTML(item.Evaluator),
			escapeHTML(rating),
			escapeHTML(item.Content))
	}
	b.WriteString("</tbody></table>")
	return b.String()
}

func (s *BinderService) renderExamResults(tpl *models.ReportTemplate, items []models.ExamResult, limit int, language string) string {
	if len(items) == 0 {
		return ""
	}
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}
	var b strings.Builder
	b.WriteString(`<table class="record-list"><thead><tr>`)
	for _, key := range []string{"exam_date", "exam_name", "subject", "score"} {
		fmt.Fprintf(&b, "<th>%s</th>", escapeHTML(tpl.Label(language, key)))
	}
	b.WriteString("</tr></thead><tbody>")
	for _, item := range items {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%g / %g</td></tr>",
			item.ExamDate.Format("2006-01-02"),
			escapeHTML(item.ExamName),
			escapeHTML(item.Subject),
			item.Score, item.MaxScore)
	}
	b.WriteString("</tbody></table>")
	return b.String()
}

// MergeHTML scans the template body once for {{identifier}} tokens and
// substitutes each through the binding map. A token absent from the map
// resolves to "". The merged output is checked for leftover tokens; any
// survivor is a programming error surfaced loudly.
func MergeHTML(tpl *models.ReportTemplate, bindings map[string]string) (string, error) {
	body := tpl.HTMLBody
	if tpl.CSS != "" && !strings.Contains(body, "<style") {
		body = "<style>" + tpl.CSS + "</style>\n" + body
	}
	merged := placeholderPattern.ReplaceAllStringFunc(body, func(token string) string {
		name := placeholderPattern.FindStringSubmatch(token)[1]
		return bindings[name]
	})
	if leftovers := placeholderPattern.FindAllString(merged, -1); len(leftovers) > 0 {
		sort.Strings(leftovers)
		return "", fmt.Errorf("unresolved template tokens: %s", strings.Join(leftovers, ", "))
	}
	return merged, nil
}

func escapeHTML(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
	)
	return replacer.Replace(s)
}
