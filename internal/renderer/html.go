package renderer

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"cardash/internal/config"
	"cardash/internal/services"
	"cardash/pkg/contracts/domain"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	// view templates escape dataset strings themselves and emit sign spans
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// MenuItem is one entry of the page navigation
type MenuItem struct {
	Title  string
	Href   string
	Active bool
}

type pageData struct {
	AppName string
	Title   string
	Menu    []MenuItem
	Body    htmltemplate.HTML
}

type pageTemplate struct {
	tmpl *htmltemplate.Template
}

func newPageTemplate() (*pageTemplate, error) {
	tmpl, err := htmltemplate.ParseFS(templates, "templates/page.html")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return &pageTemplate{tmpl: tmpl}, nil
}

// Menu returns the navigation entries with active marked
func Menu(active domain.ViewKind) []MenuItem {
	items := make([]MenuItem, 0, len(domain.ViewKinds))
	for _, kind := range domain.ViewKinds {
		items = append(items, MenuItem{
			Title:  kind.Title(),
			Href:   ViewPath(kind),
			Active: kind == active,
		})
	}
	return items
}

// MarkdownToHTML converts markdown to an HTML fragment
func MarkdownToHTML(md string) ([]byte, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return nil, fmt.Errorf("convert markdown: %w", err)
	}
	return buf.Bytes(), nil
}

// Fragment renders view as an HTML fragment without the page chrome
func (r *Renderer) Fragment(view services.RenderedView) ([]byte, error) {
	md, err := r.Markdown(view, TargetHTML)
	if err != nil {
		return nil, err
	}
	return MarkdownToHTML(md)
}

// Page renders view as a complete HTML document with the view menu
func (r *Renderer) Page(view services.RenderedView) ([]byte, error) {
	body, err := r.Fragment(view)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	err = r.page.tmpl.Execute(&buf, pageData{
		AppName: config.AppName,
		Title:   view.ViewKind().Title(),
		Menu:    Menu(view.ViewKind()),
		Body:    htmltemplate.HTML(body),
	})
	if err != nil {
		return nil, fmt.Errorf("render page: %w", err)
	}
	return buf.Bytes(), nil
}
