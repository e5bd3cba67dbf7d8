// Package views renders the server-side pages. Every page is its own template
// set made of base.html plus the page file, so pages can all define "content".
package views

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sanjiv-madhavan/go-natours/constants"
	"github.com/sanjiv-madhavan/go-natours/models"
)

//go:embed templates/*.html
var files embed.FS

var pages = []string{"overview", "tour", "login", "account", "error"}

// Page is the data every template receives.
type Page struct {
	Title      string
	User       *models.User
	Tours      []models.Tour
	Tour       *models.Tour
	StatusCode int
	Message    string
}

type Renderer struct {
	logger    *slog.Logger
	templates map[string]*template.Template
}

var funcs = template.FuncMap{
	"firstName": func(name string) string {
		if fields := strings.Fields(name); len(fields) > 0 {
			return fields[0]
		}
		return name
	},
	"monthYear": func(t time.Time) string { return t.Format("January 2006") },
	"upper":     strings.ToUpper,
	"stars": func(rating float64) []bool {
		stars := make([]bool, 5)
		for i := range stars {
			stars[i] = float64(i+1) <= rating
		}
		return stars
	},
}

func NewRenderer(logger *slog.Logger) (*Renderer, error) {
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New(page).Funcs(funcs).ParseFS(files, "templates/base.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", page, err)
		}
		templates[page] = t
	}
	return &Renderer{logger: logger, templates: templates}, nil
}

// Render buffers the page first so a template failure never leaves a
// half-written response behind.
func (v *Renderer) Render(w http.ResponseWriter, statusCode int, name string, page Page) error {
	t, ok := v.templates[name]
	if !ok {
		return fmt.Errorf("unknown template %q", name)
	}
	buf := &bytes.Buffer{}
	if err := t.ExecuteTemplate(buf, "base", page); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	_, err := w.Write(buf.Bytes())
	return err
}

func (v *Renderer) RenderError(w http.ResponseWriter, r *http.Request, statusCode int, message string) {
	page := Page{Title: "Something went wrong!", StatusCode: statusCode, Message: message}
	if user, ok := r.Context().Value(constants.CurrentUser).(*models.User); ok {
		page.User = user
	}
	if err := v.Render(w, statusCode, "error", page); err != nil {
		v.logger.Error("Failed to render error page", slog.Any("error", err))
		http.Error(w, message, statusCode)
	}
}
