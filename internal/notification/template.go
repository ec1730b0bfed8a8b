package notification

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io/fs"
	"strings"
	texttemplate "text/template"

	"github.com/Masterminds/sprig/v3"
)

// layoutTmpl is the HTML wrapper applied to every rendered body.
// {{.Subject}} is auto-escaped; {{.Body}} is already rendered HTML.
var layoutTmpl = htmltemplate.Must(htmltemplate.New("layout").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width,initial-scale=1.0">
  <title>{{.Subject}}</title>
</head>
<body style="margin:0;padding:0;background-color:#f4f4f5;
     font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',Roboto,Arial,sans-serif;">
  <table width="100%" cellpadding="0" cellspacing="0" role="presentation"
         style="background-color:#f4f4f5;padding:40px 16px;">
    <tr>
      <td align="center">
        <table width="600" cellpadding="0" cellspacing="0" role="presentation"
               style="max-width:600px;width:100%;background-color:#ffffff;border-radius:12px;">
          <tr>
            <td style="padding:36px 40px;font-size:14px;line-height:1.7;color:#374151;">{{.Body}}</td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`))

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithTemplateFS makes the renderer look up subject and body templates by
// name in fsys before treating them as inline template text.
func WithTemplateFS(fsys fs.FS) RendererOption {
	return func(r *Renderer) { r.fsys = fsys }
}

// WithoutLayout disables the HTML layout around rendered bodies.
func WithoutLayout() RendererOption {
	return func(r *Renderer) { r.layout = nil }
}

// Renderer is a TemplateRenderer backed by Go templates and the sprig
// function library. Subjects use text/template, bodies use html/template.
type Renderer struct {
	fsys   fs.FS
	layout *htmltemplate.Template
}

var _ TemplateRenderer = (*Renderer)(nil)

// NewRenderer creates a Renderer.
func NewRenderer(opts ...RendererOption) *Renderer {
	r := &Renderer{layout: layoutTmpl}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render renders the subject and body templates of n with data.
func (r *Renderer) Render(_ context.Context, n *Notification, data Context) (RenderedTemplate, error) {
	if n == nil {
		return RenderedTemplate{}, errors.New("render: notification is nil")
	}
	vars := templateData(n, data)

	subjectSrc, err := r.load(n.SubjectTemplate)
	if err != nil {
		return RenderedTemplate{}, err
	}
	subject, err := renderText("subject", subjectSrc, vars)
	if err != nil {
		return RenderedTemplate{}, err
	}
	subject = strings.TrimSpace(subject)

	bodySrc, err := r.load(n.BodyTemplate)
	if err != nil {
		return RenderedTemplate{}, err
	}
	body, err := renderHTML("body", bodySrc, vars)
	if err != nil {
		return RenderedTemplate{}, err
	}

	if r.layout != nil {
		var buf bytes.Buffer
		//nolint:gosec // body was produced by html/template
		err := r.layout.Execute(&buf, struct {
			Subject string
			Body    htmltemplate.HTML
		}{subject, htmltemplate.HTML(body)})
		if err != nil {
			return RenderedTemplate{}, fmt.Errorf("executing layout: %w", err)
		}
		body = buf.String()
	}

	return RenderedTemplate{Subject: subject, Body: body}, nil
}

// load returns the template source for name: the file content when the
// renderer has a filesystem containing name, otherwise name itself.
func (r *Renderer) load(name string) (string, error) {
	if r.fsys == nil || name == "" {
		return name, nil
	}
	p := strings.TrimPrefix(name, "/")
	if !fs.ValidPath(p) {
		return name, nil
	}
	b, err := fs.ReadFile(r.fsys, p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			return name, nil
		}
		return "", fmt.Errorf("reading template %q: %w", name, err)
	}
	return string(b), nil
}

// templateData merges the rendering context with notification fields.
// Context keys win over the derived ones.
func templateData(n *Notification, data Context) map[string]any {
	vars := make(map[string]any, len(data)+3)
	vars["Notification"] = map[string]any{
		"ID":          n.ID,
		"Title":       n.Title,
		"ContextName": n.ContextName,
		"ExtraParams": n.ExtraParams,
	}
	if r, ok := n.OneOff(); ok {
		vars["FirstName"] = r.FirstName
		vars["LastName"] = r.LastName
	}
	for k, v := range data {
		vars[k] = v
	}
	return vars
}

func renderText(name, src string, vars map[string]any) (string, error) {
	t, err := texttemplate.New(name).Funcs(sprig.TxtFuncMap()).Parse(src)
	if err != nil {
		return "", fmt.Errorf("parsing %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("executing %s template: %w", name, err)
	}
	return buf.String(), nil
}

func renderHTML(name, src string, vars map[string]any) (string, error) {
	t, err := htmltemplate.New(name).Funcs(sprig.FuncMap()).Parse(src)
	if err != nil {
		return "", fmt.Errorf("parsing %s template: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("executing %s template: %w", name, err)
	}
	return buf.String(), nil
}
