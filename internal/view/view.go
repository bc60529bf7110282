// Package view renders the server-side HTML pages.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/isokoinfo/marketplace/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// Page names.
const (
	PageIndex          = "index"
	PageLogin          = "login"
	PageRegister       = "register"
	PageDashboard      = "dashboard"
	PageProducts       = "products"
	PageProductDetail  = "product_detail"
	PageAddProduct     = "add_product"
	PageUpdateProduct  = "update_product"
	PageReview         = "review"
	PageUserFeedback   = "user_feedback"
	PageSettings       = "settings"
	PageUpdateSettings = "update_settings"
	PageAdmin          = "admin"
	PageNotFound       = "not_found"
	PageError          = "error"
)

// Flash categories.
const (
	FlashSuccess = "success"
	FlashError   = "error"
	FlashInfo    = "info"
)

// Flash is a one-time message shown on the next rendered page.
type Flash struct {
	Category string `json:"c"`
	Message  string `json:"m"`
}

// Viewer is the logged-in user a page is rendered for.
type Viewer struct {
	ID   int64
	Name string
}

// Page is the data every template receives.
type Page struct {
	Title  string
	Flash  *Flash
	Viewer *Viewer
	Data   any
}

// ProductForm feeds the add and update product pages.
type ProductForm struct {
	Product *domain.Product
	Markets []domain.Market
}

// SettingsForm feeds the update settings page.
type SettingsForm struct {
	Account *domain.Account
	Markets []domain.Market
}

// Renderer writes a named page.
type Renderer interface {
	Render(w http.ResponseWriter, status int, name string, page Page) error
}

// Templates renders pages from the embedded templates. Each page is parsed
// together with the shared layout.
type Templates struct {
	pages map[string]*template.Template
}

// New parses every embedded page.
func New() (*Templates, error) {
	return parse(templateFS)
}

func parse(fsys fs.FS) (*Templates, error) {
	files, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	t := &Templates{pages: make(map[string]*template.Template, len(files))}
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		name := strings.TrimSuffix(strings.TrimPrefix(file, "templates/"), ".html")
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(fsys, layoutFile, file)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		t.pages[name] = tmpl
	}
	return t, nil
}

// Render executes the page into a buffer first so a template error never
// leaves a half-written response.
func (t *Templates) Render(w http.ResponseWriter, status int, name string, page Page) error {
	tmpl, ok := t.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

var funcs = template.FuncMap{
	"price": func(p float64) string { return fmt.Sprintf("%.2f", p) },
	"date":  func(t time.Time) string { return t.Format("02 Jan 2006") },
	"stars": func(rating int) string {
		if rating < 0 {
			rating = 0
		}
		if rating > domain.MaxRating {
			rating = domain.MaxRating
		}
		return strings.Repeat("★", rating) + strings.Repeat("☆", domain.MaxRating-rating)
	},
	"average":  func(avg float64) string { return fmt.Sprintf("%.1f", avg) },
	"selected": func(a, b int64) bool { return a == b },
}
