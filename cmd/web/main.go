package main

import (
	"context"
	"flag"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"storeframe.app/storeframe-web/internal/catalog"
	"storeframe.app/storeframe-web/internal/config"
	"storeframe.app/storeframe-web/internal/content"
	mw "storeframe.app/storeframe-web/internal/middleware"
	"storeframe.app/storeframe-web/internal/observability"
	"storeframe.app/storeframe-web/internal/request"
	"storeframe.app/storeframe-web/internal/webhook"
)

var (
	templatesDir = "templates"
	publicDir    = "public"
	// devMode reparses templates on every request
	devMode   bool
	tmplCache *template.Template
)

// templateFetcher is the catalog surface the gallery needs.
type templateFetcher interface {
	FetchTemplates(ctx context.Context, q catalog.Query) ([]catalog.Template, error)
}

// application bundles the collaborators the handlers depend on.
type application struct {
	cfg     config.Config
	logger  *zap.Logger
	catalog templateFetcher
	webhook request.Submitter
	forms   *request.Store
	content *content.Loader
}

func main() {
	var (
		addr     string
		tmplPath string
		pubPath  string
		cfgPath  string
	)
	flag.StringVar(&addr, "addr", "", "HTTP listen address (defaults to :$PORT)")
	flag.StringVar(&tmplPath, "templates", "", "templates directory")
	flag.StringVar(&pubPath, "public", "", "public assets directory")
	flag.StringVar(&cfgPath, "config", "", "config file path")
	flag.Parse()

	var cfgOpts []config.Option
	if cfgPath != "" {
		cfgOpts = append(cfgOpts, config.WithConfigFile(cfgPath))
	}
	cfg, err := config.Load(cfgOpts...)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := observability.NewLogger()
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	templatesDir = cfg.Server.TemplatesDir
	if tmplPath != "" {
		templatesDir = tmplPath
	}
	publicDir = cfg.Server.PublicDir
	if pubPath != "" {
		publicDir = pubPath
	}
	devMode = cfg.Server.DevMode
	if addr == "" {
		addr = ":" + cfg.Server.Port
	}

	if !devMode {
		// Parse templates once in production
		tc, err := parseTemplates()
		if err != nil {
			logger.Fatal("parse templates", zap.Error(err))
		}
		tmplCache = tc
	}

	mw.ConfigureSessions(cfg.Session.SigningKey, cfg.Session.SecureCookies)

	app := &application{
		cfg:    cfg,
		logger: logger,
		catalog: catalog.NewClient(cfg.TemplateAPI.URL, catalog.Credentials{
			APIKey:      cfg.TemplateAPI.APIKey,
			BearerToken: cfg.TemplateAPI.BearerToken,
		}),
		webhook: webhook.NewClient(cfg.Webhook.URL),
		forms:   request.NewStore(request.DefaultTTL),
		content: content.NewLoader(cfg.Content.Dir),
	}

	r := newRouter(app)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	logger.Info("web listening", zap.String("addr", addr), zap.Bool("dev_mode", devMode))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("listen", zap.Error(err))
	}
}

func newRouter(app *application) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// If deployed behind a trusted reverse proxy/load balancer, RealIP will use
	// X-Forwarded-For to determine the client IP. Ensure only trusted proxies
	// can set these headers in production environments.
	r.Use(chimw.RealIP)
	r.Use(mw.HTMX)
	r.Use(mw.Session)
	r.Use(mw.CSRF)
	r.Use(mw.Logger(app.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	assets := http.StripPrefix("/assets", mw.AssetsWithCache(filepath.Join(publicDir, "assets")))
	r.Handle("/assets/*", assets)

	r.Get("/", app.GalleryHandler)
	r.Get("/gallery/grid", app.GalleryGridFrag)

	r.Route("/requests", func(r chi.Router) {
		r.Get("/new", app.RequestDialogFrag)
		r.Post("/urls/add", app.RequestURLAdd)
		r.Post("/urls/{index}/remove", app.RequestURLRemove)
		r.Post("/files", app.RequestFilesAdd)
		r.Post("/files/{index}/remove", app.RequestFileRemove)
		r.Post("/submit", app.RequestSubmit)
		r.Post("/dismiss", app.RequestDismiss)
	})

	return r
}

func parseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"now": time.Now,
	}
	// Recursively discover and parse all .tmpl files. Note: ParseGlob doesn't support **.
	var files []string
	if err := filepath.WalkDir(templatesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), ".tmpl") {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found under %s", templatesDir)
	}
	return template.New("_root").Funcs(funcMap).ParseFiles(files...)
}

func lookupTemplates(w http.ResponseWriter) *template.Template {
	if devMode {
		tc, err := parseTemplates()
		if err != nil {
			http.Error(w, fmt.Sprintf("template parse error: %v", err), http.StatusInternalServerError)
			return nil
		}
		return tc
	}
	if tmplCache == nil {
		http.Error(w, "template not initialized", http.StatusInternalServerError)
		return nil
	}
	return tmplCache
}

// renderPage executes the base layout with the page's view model.
func renderPage(w http.ResponseWriter, r *http.Request, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	t := lookupTemplates(w)
	if t == nil {
		return
	}
	if err := t.ExecuteTemplate(w, "base", data); err != nil {
		http.Error(w, fmt.Sprintf("template exec error: %v", err), http.StatusInternalServerError)
	}
}

// renderTemplate executes a named fragment template. The status must already
// be written by the caller if it is not 200.
func renderTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	t := lookupTemplates(w)
	if t == nil {
		return
	}
	if err := t.ExecuteTemplate(w, name, data); err != nil {
		observability.FromContext(r.Context()).Error("render fragment", zap.String("template", name), zap.Error(err))
	}
}
