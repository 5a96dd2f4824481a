package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ViewKind names one menu entry of the dashboard
type ViewKind string

const (
	ViewAggregateMetrics ViewKind = "aggregate-metrics"
	ViewAggregateGraphic ViewKind = "aggregate-graphic"
	ViewIndividualBrand  ViewKind = "individual-brand"
)

// ViewKinds is the menu order
var ViewKinds = []ViewKind{ViewAggregateMetrics, ViewAggregateGraphic, ViewIndividualBrand}

// Title returns the menu caption of the view
func (k ViewKind) Title() string {
	switch k {
	case ViewAggregateMetrics:
		return "Aggregate Metrics"
	case ViewAggregateGraphic:
		return "Aggregate Graphic"
	case ViewIndividualBrand:
		return "Individual Car Brand Analysis"
	default:
		return string(k)
	}
}

var (
	ErrUnknownView  = errors.New("unknown view")
	ErrBrandMissing = errors.New("brand is required for the individual brand view")
)

// View is the selected menu entry. Exactly one of the concrete
// types below implements it.
type View interface {
	Kind() ViewKind
	isView()
}

// AggregateMetrics selects the metric cards and deviation table
type AggregateMetrics struct{}

// AggregateGraphic selects the chart data view
type AggregateGraphic struct{}

// IndividualBrand selects the breakdown of a single brand
type IndividualBrand struct {
	Brand string
}

func (AggregateMetrics) Kind() ViewKind { return ViewAggregateMetrics }
func (AggregateGraphic) Kind() ViewKind { return ViewAggregateGraphic }
func (IndividualBrand) Kind() ViewKind  { return ViewIndividualBrand }

func (AggregateMetrics) isView() {}
func (AggregateGraphic) isView() {}
func (IndividualBrand) isView()  {}

// ParseView builds a View from its menu name. Menu titles such as
// "Individual Car Brand Analysis" are accepted as well as the kebab-case
// names, case-insensitively.
func ParseView(name, brand string) (View, error) {
	kind, ok := lookupViewKind(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, name)
	}
	switch kind {
	case ViewAggregateGraphic:
		return AggregateGraphic{}, nil
	case ViewIndividualBrand:
		brand = strings.TrimSpace(brand)
		if brand == "" {
			return nil, ErrBrandMissing
		}
		return IndividualBrand{Brand: brand}, nil
	default:
		return AggregateMetrics{}, nil
	}
}

// lookupViewKind matches name against the kebab-case names and menu titles.
// An empty name selects the first menu entry.
func lookupViewKind(name string) (ViewKind, bool) {
	normalized := normalizeViewName(name)
	if normalized == "" {
		return ViewAggregateMetrics, true
	}
	for _, kind := range ViewKinds {
		if normalized == string(kind) || normalized == normalizeViewName(kind.Title()) {
			return kind, true
		}
	}
	return "", false
}

func normalizeViewName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "-"))
}
