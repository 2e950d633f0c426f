package clientapp

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/cmjl/deliverydesk/internal/backend"
	"github.com/cmjl/deliverydesk/internal/envutil"
	"github.com/cmjl/deliverydesk/internal/middleware"
	"github.com/cmjl/deliverydesk/internal/proof"
	"github.com/cmjl/deliverydesk/internal/report"
	"github.com/cmjl/deliverydesk/internal/security"
	"github.com/cmjl/deliverydesk/internal/session"
)

const (
	csrfFieldName     = "csrf_token"
	reportIdleTimeout = 30 * time.Minute
)

type Config struct {
	Addr          string
	APIBaseURL    string
	SessionSecret string
	MapsAPIKey    string
	APITimeout    time.Duration
	SessionTTL    time.Duration
	SecureCookies bool
	ReadTimeout   time.Duration
	WriteTimeout  time.Duration
}

//go:embed templates/layout.html templates/login.html templates/register.html templates/forgot.html templates/upload.html templates/dashboard.html templates/drivers.html assets/app.css
var templatesFS embed.FS

type server struct {
	api     *backend.Client
	codec   *session.Codec
	reports *session.Store[*report.Controller]
	drivers *session.Store[*driverCache]
	thumbs  *proof.Thumbnailer
	mapsKey string
	now     func() time.Time

	loginTmpl     *template.Template
	registerTmpl  *template.Template
	forgotTmpl    *template.Template
	uploadTmpl    *template.Template
	dashboardTmpl *template.Template
	driversTmpl   *template.Template
}

func DefaultConfigFromEnv() Config {
	return Config{
		Addr:          envutil.OrDefault("CLIENT_ADDR", ":3000"),
		APIBaseURL:    envutil.OrDefault("API_BASE_URL", "http://localhost:8080"),
		SessionSecret: strings.TrimSpace(os.Getenv("SESSION_SECRET")),
		MapsAPIKey:    strings.TrimSpace(os.Getenv("MAPS_API_KEY")),
		APITimeout:    envutil.Duration("API_TIMEOUT", 8*time.Second),
		SessionTTL:    12 * time.Hour,
		SecureCookies: os.Getenv("ENV") == "production",
		ReadTimeout:   5 * time.Second,
		WriteTimeout:  60 * time.Second,
	}
}

func parsePage(name string) *template.Template {
	return template.Must(template.New("layout.html").Funcs(templateFuncs).ParseFS(templatesFS, "templates/layout.html", "templates/"+name))
}

func newServer(cfg Config) (*server, error) {
	if strings.TrimSpace(cfg.SessionSecret) == "" {
		return nil, errors.New("SESSION_SECRET is required")
	}
	codec, err := session.NewCodec(cfg.SessionSecret, cfg.SessionTTL, cfg.SecureCookies)
	if err != nil {
		return nil, err
	}
	return &server{
		api:           backend.New(cfg.APIBaseURL, cfg.APITimeout),
		codec:         codec,
		reports:       session.NewStore[*report.Controller](reportIdleTimeout),
		drivers:       session.NewStore[*driverCache](reportIdleTimeout),
		thumbs:        proof.NewThumbnailer(cfg.APITimeout),
		mapsKey:       cfg.MapsAPIKey,
		now:           time.Now,
		loginTmpl:     parsePage("login.html"),
		registerTmpl:  parsePage("register.html"),
		forgotTmpl:    parsePage("forgot.html"),
		uploadTmpl:    parsePage("upload.html"),
		dashboardTmpl: parsePage("dashboard.html"),
		driversTmpl:   parsePage("drivers.html"),
	}, nil
}

func (s *server) routes() http.Handler {
	admin := s.requireRole(session.RoleAdmin)
	anyone := s.requireRole(session.RoleAdmin, session.RoleDriver)

	mux := http.NewServeMux()
	mux.Handle("/", http.HandlerFunc(s.rootRoute))
	mux.Handle("/login", http.HandlerFunc(s.loginRoute))
	mux.Handle("/register", http.HandlerFunc(s.registerRoute))
	mux.Handle("/forgot", http.HandlerFunc(s.forgotRoute))
	mux.Handle("/logout", middleware.Chain(http.HandlerFunc(s.logout), anyone))
	mux.Handle("/upload", middleware.Chain(http.HandlerFunc(s.uploadRoute), anyone))
	mux.Handle("/dashboard", middleware.Chain(http.HandlerFunc(s.dashboardPage), admin))
	mux.Handle("/dashboard/export", middleware.Chain(http.HandlerFunc(s.exportCSV), admin))
	mux.Handle("/dashboard/export.xlsx", middleware.Chain(http.HandlerFunc(s.exportXLSX), admin))
	mux.Handle("/dashboard/overlay", middleware.Chain(http.HandlerFunc(s.overlay), admin))
	mux.Handle("/dashboard/proof", middleware.Chain(http.HandlerFunc(s.proofImage), admin))
	mux.Handle("/drivers", middleware.Chain(http.HandlerFunc(s.driversRoute), admin))
	mux.Handle("/drivers/", middleware.Chain(http.HandlerFunc(s.driverActionRoute), admin))
	mux.Handle("/assets/app.css", http.HandlerFunc(s.appCSSFile))

	csp := strings.Join([]string{
		"default-src 'self'",
		"style-src 'self' https://fonts.googleapis.com 'unsafe-inline'",
		"font-src 'self' https://fonts.gstatic.com",
		"img-src 'self' data:",
		"script-src 'self' 'unsafe-inline'",
		"connect-src 'self'",
		"frame-src https://www.google.com https://maps.google.com",
		"frame-ancestors 'none'",
	}, "; ")

	return middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.AccessLog,
		middleware.SecurityHeaders(middleware.SecurityHeadersConfig{ContentSecurityPolicy: csp}),
	)
}

func Run(ctx context.Context, cfg Config) error {
	s, err := newServer(cfg)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}

	go s.sweepReports(ctx)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("api", s.api.BaseURL()).Msg("client listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *server) sweepReports(ctx context.Context) {
	ticker := time.NewTicker(reportIdleTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.reports.Sweep() + s.drivers.Sweep(); n > 0 {
				log.Debug().Int("removed", n).Msg("expired report sessions")
			}
		}
	}
}

func (s *server) rootRoute(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if sess, err := s.codec.Read(r); err == nil {
		http.Redirect(w, r, sess.Role.Home(), http.StatusFound)
		return
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *server) appCSSFile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	css, err := templatesFS.ReadFile("assets/app.css")
	if err != nil {
		http.Error(w, "asset missing", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(css)
}

type sessionKey struct{}

// requireRole admits requests whose session has one of roles. Missing or
// broken sessions go to /login; the wrong role goes to its own home page.
func (s *server) requireRole(roles ...session.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := s.codec.Read(r)
			if err != nil {
				if !errors.Is(err, session.ErrNoSession) {
					s.codec.Clear(w)
				}
				http.Redirect(w, r, "/login", http.StatusFound)
				return
			}
			allowed := false
			for _, role := range roles {
				if sess.Role == role {
					allowed = true
					break
				}
			}
			if !allowed {
				http.Redirect(w, r, sess.Role.Home(), http.StatusFound)
				return
			}
			logger := zerolog.Ctx(r.Context()).With().Str("session", sess.ID).Str("role", sess.Role.String()).Logger()
			ctx := context.WithValue(r.Context(), sessionKey{}, sess)
			next.ServeHTTP(w, r.WithContext(logger.WithContext(ctx)))
		})
	}
}

func sessionFrom(r *http.Request) session.Session {
	sess, _ := r.Context().Value(sessionKey{}).(session.Session)
	return sess
}

// checkCSRF compares the submitted form token with the one in the session
// cookie. Callers must have parsed the form.
func checkCSRF(r *http.Request, sess session.Session) bool {
	return security.SameToken(r.FormValue(csrfFieldName), sess.CSRF)
}

func (s *server) controllerFor(sess session.Session) *report.Controller {
	return s.reports.Get(sess.ID, func() *report.Controller {
		return report.NewController(report.NewEngine(s.api.ReportFetcher(sess.Token)))
	})
}

func renderHTMLTemplate(w http.ResponseWriter, tmpl *template.Template, data pageData) error {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := w.Write(buf.Bytes())
	return err
}

func (s *server) render(w http.ResponseWriter, r *http.Request, tmpl *template.Template, data pageData) {
	if err := renderHTMLTemplate(w, tmpl, data); err != nil {
		http.Error(w, "template render failed", http.StatusInternalServerError)
		zerolog.Ctx(r.Context()).Error().Err(err).Str("template", tmpl.Name()).Msg("template render failed")
	}
}

// redirectWith sends the browser to path with an error or message query.
func redirectWith(w http.ResponseWriter, r *http.Request, path, key, text string) {
	target := path
	if text != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		target += sep + key + "=" + url.QueryEscape(text)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func parsePositiveInt(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func parseID(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func parseFloat(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
