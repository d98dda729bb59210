package handler

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"github.com/voice-console/internal/application/guard"
	"github.com/voice-console/internal/application/session"
	"github.com/voice-console/internal/domain"
	"github.com/voice-console/internal/transport/http/middleware"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// shared templates parsed into every page
var partials = []string{"templates/layout.html", "templates/overlay.html", "templates/recorder.html"}

// Static serves the embedded assets under /static/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// Pages holds one parsed template set per page.
type Pages struct {
	pages  map[string]*template.Template
	logger *zap.Logger
}

var funcs = template.FuncMap{
	"pct": func(f float64) string { return fmt.Sprintf("%.1f%%", f*100) },
	"conf": func(f *float64) string {
		if f == nil {
			return ""
		}
		return fmt.Sprintf("%.3f", *f)
	},
	"json": func(v any) string {
		b, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return ""
		}
		return string(b)
	},
	"deref": func(v any) any {
		switch p := v.(type) {
		case *int64:
			if p == nil {
				return "-"
			}
			return *p
		case *string:
			if p == nil {
				return "-"
			}
			return *p
		}
		return v
	},
	"add":   func(a, b int) int { return a + b },
	"roles": func() []domain.Role { return domain.AllowedRoles },
	"audioSrc": func(b64 string) template.URL {
		return template.URL("data:audio/webm;base64," + b64)
	},
}

func NewPages(logger *zap.Logger) (*Pages, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	base, err := template.New("console").Funcs(funcs).ParseFS(templateFS, partials...)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	p := &Pages{pages: make(map[string]*template.Template), logger: logger}
	for _, f := range files {
		if isPartial(f) {
			continue
		}
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, f); err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		p.pages[strings.TrimSuffix(path.Base(f), ".html")] = t
	}
	return p, nil
}

func isPartial(f string) bool {
	for _, p := range partials {
		if p == f {
			return true
		}
	}
	return false
}

// Render executes page name into w with status. Output is buffered so a
// template failure still yields a clean 500.
func (p *Pages) Render(w http.ResponseWriter, status int, name string, v *View) {
	t, ok := p.pages[name]
	if !ok {
		p.logger.Error("unknown page", zap.String("page", name))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", v); err != nil {
		p.logger.Error("render page", zap.String("page", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// View is the data every page template receives.
type View struct {
	Title      string
	Active     string
	User       *Viewer
	Suppressed bool
	Overlay    *Overlay
	Flash      string
	Error      string
	Data       any
}

// Viewer is the signed-in user as read from the credential's claims.
type Viewer struct {
	ID        string
	Username  string
	Role      domain.Role
	Verified  bool
	IsAdmin   bool
	CanEnroll bool
}

// Overlay drives the verification overlay on suppressed pages.
type Overlay struct {
	Next        string
	Attempts    int
	MaxAttempts int
	Fallback    bool
	Error       string
}

// newView builds the common page data from the request's session and guard
// decision. Pages outside the guard get a View without User.
func newView(r *http.Request, title, active string) *View {
	v := &View{
		Title:  title,
		Active: active,
		Flash:  r.URL.Query().Get("ok"),
		Error:  r.URL.Query().Get("err"),
	}
	d, ok := middleware.DecisionFromContext(r.Context())
	if !ok || !d.State.Allowed() {
		return v
	}
	v.User = &Viewer{
		ID:        d.Claims.Subject(),
		Username:  d.Claims.Username(),
		Role:      d.Claims.Role(),
		Verified:  d.State == guard.Verified,
		IsAdmin:   d.Claims.Role() == domain.RoleAdmin,
		CanEnroll: d.Claims.Role().In(domain.EnrollRoles...),
	}
	if d.State == guard.Unverified {
		v.Suppressed = true
		v.Overlay = &Overlay{Next: r.URL.RequestURI(), MaxAttempts: session.MaxVoiceAttempts}
		if sess, ok := middleware.SessionFromContext(r.Context()); ok {
			v.Overlay.Attempts = sess.IdentifyAttempts
			v.Overlay.Fallback = sess.IdentifyAttempts >= session.MaxVoiceAttempts
		}
	}
	return v
}
