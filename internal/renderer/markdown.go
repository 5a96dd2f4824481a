package renderer

import (
	"embed"
	"fmt"
	"html"
	"net/url"
	"strings"
	"text/template"
	"time"

	"cardash/internal/services"
	"cardash/pkg/contracts/domain"
)

//go:embed templates/*.md templates/*.html
var templates embed.FS

// Target selects how signed values are decorated
type Target int

const (
	// TargetHTML wraps signed values in spans coloured by sign
	TargetHTML Target = iota
	// TargetTerminal leaves signed values as plain text
	TargetTerminal
)

const (
	barWidth       = 30
	scatterPreview = 25
)

// Renderer renders view models to markdown and HTML
type Renderer struct {
	currency string
	views    *template.Template
	page     *pageTemplate
}

// New parses the embedded templates. currency is the ISO code used for
// reference prices.
func New(currency string) (*Renderer, error) {
	r := &Renderer{currency: currency}

	views, err := template.New("views").Funcs(r.funcs(TargetTerminal)).ParseFS(templates, "templates/*.md")
	if err != nil {
		return nil, fmt.Errorf("parse view templates: %w", err)
	}
	r.views = views

	if r.page, err = newPageTemplate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Markdown renders view for target
func (r *Renderer) Markdown(view services.RenderedView, target Target) (string, error) {
	if view == nil {
		return "", fmt.Errorf("%w: nil view", services.ErrUnsupportedView)
	}

	tmpl, err := r.views.Clone()
	if err != nil {
		return "", err
	}
	tmpl.Funcs(r.funcs(target))

	var b strings.Builder
	name := string(view.ViewKind()) + ".md"
	if err := tmpl.ExecuteTemplate(&b, name, view); err != nil {
		return "", fmt.Errorf("render %s: %w", view.ViewKind(), err)
	}
	return b.String(), nil
}

func (r *Renderer) funcs(target Target) template.FuncMap {
	signed := func(ratio domain.Ratio, text string) string {
		class := SignClass(ratio.Sign())
		if target != TargetHTML || class == "" {
			return text
		}
		return `<span class="` + class + `">` + text + `</span>`
	}

	return template.FuncMap{
		"text": func(s string) string {
			s = strings.ReplaceAll(s, "|", `\|`)
			if target == TargetHTML {
				s = html.EscapeString(s)
			}
			return s
		},
		"card": func(c domain.MetricCard, v float64) string {
			return FormatCardValue(c.Format, v, c.HasValue)
		},
		"change": func(ratio domain.Ratio) string {
			return signed(ratio, FormatChange(ratio))
		},
		"deviation": func(c domain.DeviationCell) string {
			return signed(c.Deviation, FormatDeviation(c.Deviation))
		},
		"priceCard": func(cards []domain.MetricCard) *domain.MetricCard {
			for i := range cards {
				if cards[i].Format == domain.FormatCurrency && cards[i].HasValue {
					return &cards[i]
				}
			}
			return nil
		},
		"money": func(v any) string {
			return FormatMoney(toFloat(v), r.currency)
		},
		"number": FormatNumber,
		"corr":   FormatCorrelation,
		"share": func(f float64) string {
			return FormatRatio(domain.DefinedRatio(f), 1)
		},
		"date": func(t time.Time) string {
			if t.IsZero() {
				return NotAvailable
			}
			return t.Format("2006-01-02")
		},
		"month": func(t time.Time) string { return t.Format("2006-01") },
		"months": func(n int) string {
			if n == 1 {
				return "1 Month"
			}
			return fmt.Sprintf("%d Months", n)
		},
		"bar": func(count, max int) string { return Bar(count, max, barWidth) },
		"inc": func(i int) int { return i + 1 },
		"maxMonth": func(rows []domain.MonthCount) int {
			m := 0
			for _, row := range rows {
				m = max(m, row.Count)
			}
			return m
		},
		"maxBrand": func(rows []domain.BrandCount) int {
			m := 0
			for _, row := range rows {
				m = max(m, row.Count)
			}
			return m
		},
		"maxBucket": func(rows []domain.BucketCount) int {
			m := 0
			for _, row := range rows {
				m = max(m, row.Count)
			}
			return m
		},
		"preview": func(points []domain.ScatterPoint) []domain.ScatterPoint {
			return points[:min(len(points), scatterPreview)]
		},
		"brandURL": func(brand string) string {
			return ViewPath(domain.ViewIndividualBrand) + "?brand=" + url.QueryEscape(brand)
		},
	}
}

// ViewPath returns the HTML page path of a view
func ViewPath(kind domain.ViewKind) string {
	return "/views/" + string(kind)
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}
