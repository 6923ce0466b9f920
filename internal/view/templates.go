package view

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/myfruitshop/myfruitshop/internal/shared"
	"github.com/myfruitshop/myfruitshop/web"
)

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CSRFToken   string
	Flash       *shared.FlashMessage
	CurrentPath string
	User        *shared.CurrentUser
	Errors      shared.FieldErrors
	Data        any
}

// Options tune presentation helpers.
type Options struct {
	Location *time.Location
	Language language.Tag
}

// NewEngine parses the embedded templates.
func NewEngine(opts ...Options) (*Engine, error) {
	o := Options{Location: time.UTC, Language: language.English}
	if len(opts) > 0 {
		if opts[0].Location != nil {
			o.Location = opts[0].Location
		}
		if opts[0].Language != language.Und {
			o.Language = opts[0].Language
		}
	}
	tpl, err := template.New("root").Funcs(funcMap(o)).ParseFS(web.Templates, "templates/layouts/*.html", "templates/partials/*.html", "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

func funcMap(o Options) template.FuncMap {
	printer := message.NewPrinter(o.Language)
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(o.Location).Format("02 Jan 2006 15:04")
		},
		"inputDateTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(o.Location).Format("2006-01-02T15:04")
		},
		"money": formatMoney,
		"count": func(n int) string {
			return printer.Sprint(number.Decimal(n))
		},
	}
}

// Render executes a named template with TemplateData and a 200 status.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	return e.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus buffers the template output so a failed render never leaves a
// half-written page behind.
func (e *Engine) RenderStatus(w http.ResponseWriter, status int, name string, data TemplateData) error {
	if e == nil {
		return fmt.Errorf("template engine not initialised")
	}
	var buf bytes.Buffer
	if err := e.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// formatMoney renders d with two decimals and comma grouping, working on the
// decimal digits so large NUMERIC(12,2) values keep their cents.
func formatMoney(d decimal.Decimal) string {
	d = d.Round(2)
	whole, frac, _ := strings.Cut(d.Abs().StringFixed(2), ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(frac)
	return b.String()
}
