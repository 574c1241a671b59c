// Package web serves the catalog: the search page with its facets, the work
// detail page, and health and metrics endpoints.
package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"time"

	"github.com/franz/bachpedia/internal/search"
	"github.com/franz/bachpedia/internal/store"
	"github.com/franz/bachpedia/internal/util"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server renders catalog pages
type Server struct {
	store   *store.Store
	search  *search.Service
	pages   map[string]*template.Template
	metrics http.Handler
}

// Config holds server dependencies
type Config struct {
	Store *store.Store
	// Search defaults to a service with the SQL ranker over Store
	Search *search.Service
	// Gatherer backs /metrics; nil serves the default registry
	Gatherer prometheus.Gatherer
}

// New creates a Server and parses its templates
func New(cfg *Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: web server needs a store", util.ErrInvalidConfig)
	}
	pages, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		store:  cfg.Store,
		search: cfg.Search,
		pages:  pages,
	}
	if s.search == nil {
		s.search = search.New(cfg.Store.DB())
	}
	if cfg.Gatherer != nil {
		s.metrics = promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})
	} else {
		s.metrics = promhttp.Handler()
	}
	return s, nil
}

// Handler returns the routed, instrumented handler
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.Use(requestID, accessLog, securityHeaders)

	router.HandleFunc("/", s.handleHome).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/search", s.handleSearch).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/work", s.handleWork).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/work/{id}", s.handleWork).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	router.Handle("/metrics", s.metrics).Methods(http.MethodGet)

	// Unrouted requests bypass router middleware
	router.NotFoundHandler = securityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, r, withStatus(errors.New("no route"), http.StatusNotFound, "This page does not exist."))
	}))

	return otelhttp.NewHandler(router, "http.server")
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		util.InfoLog("Listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		util.InfoLog("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down: %w", err)
		}
		return nil
	case err, ok := <-serverErr:
		if !ok {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	}
}

// view is what the layout sees; Data is the page's own model
type view struct {
	Title     string
	Query     string
	RequestID string
	Data      any
}

// render executes a page into a buffer first so that a template error
// never leaves a half-written response
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, v view) {
	tpl, ok := s.pages[page]
	if !ok {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	v.RequestID = RequestIDFrom(r.Context())

	var b bytes.Buffer
	if err := tpl.ExecuteTemplate(&b, "base", v); err != nil {
		util.ErrorLog("Failed to render %s [%s]: %v", page, v.RequestID, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		io.Copy(w, &b)
	}
}

type errorPage struct {
	Status    int
	Headline  string
	Message   string
	RequestID string
}

// fail renders the error page. Server-side failures are logged with the
// request id; the response only carries the generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusOf(err)
	id := RequestIDFrom(r.Context())
	if status >= http.StatusInternalServerError {
		util.ErrorLog("%s %s failed [%s]: %v", r.Method, r.URL.RequestURI(), id, err)
	} else {
		util.DebugLog("%s %s: %v", r.Method, r.URL.RequestURI(), err)
	}

	s.render(w, r, status, "error", view{
		Title: http.StatusText(status),
		Data: errorPage{
			Status:    status,
			Headline:  http.StatusText(status),
			Message:   message,
			RequestID: id,
		},
	})
}
