package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"text/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Rendered is a message ready for a transport.
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

// Renderer executes the embedded templates. Each file defines "subject", "text"
// and "html" blocks; the html block is parsed with html/template for escaping.
type Renderer struct {
	text map[Template]*template.Template
	html map[Template]*htmltemplate.Template
}

var allTemplates = []Template{
	TemplateClaimVerification,
	TemplateMatchFound,
	TemplateRemovalConfirmation,
	TemplateContactAccess,
	TemplatePremiumActivated,
}

func NewRenderer() (*Renderer, error) {
	r := &Renderer{
		text: make(map[Template]*template.Template, len(allTemplates)),
		html: make(map[Template]*htmltemplate.Template, len(allTemplates)),
	}
	for _, name := range allTemplates {
		file := "templates/" + string(name) + ".tmpl"
		t, err := template.New(string(name)).Option("missingkey=zero").ParseFS(templateFS, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		h, err := htmltemplate.New(string(name)).Option("missingkey=zero").ParseFS(templateFS, file)
		if err != nil {
			return nil, fmt.Errorf("parse %s as html: %w", file, err)
		}
		r.text[name] = t
		r.html[name] = h
	}
	return r, nil
}

// MustRenderer panics if the embedded templates do not parse.
func MustRenderer() *Renderer {
	r, err := NewRenderer()
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Renderer) Render(msg Message) (Rendered, error) {
	t, ok := r.text[msg.Template]
	if !ok {
		return Rendered{}, fmt.Errorf("unknown template %q", msg.Template)
	}
	var subject, text, html bytes.Buffer
	if err := t.ExecuteTemplate(&subject, "subject", msg.Data); err != nil {
		return Rendered{}, fmt.Errorf("render %s subject: %w", msg.Template, err)
	}
	if err := t.ExecuteTemplate(&text, "text", msg.Data); err != nil {
		return Rendered{}, fmt.Errorf("render %s text: %w", msg.Template, err)
	}
	if err := r.html[msg.Template].ExecuteTemplate(&html, "html", msg.Data); err != nil {
		return Rendered{}, fmt.Errorf("render %s html: %w", msg.Template, err)
	}
	return Rendered{
		Subject: string(bytes.TrimSpace(subject.Bytes())),
		Text:    text.String(),
		HTML:    html.String(),
	}, nil
}
