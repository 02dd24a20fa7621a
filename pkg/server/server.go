// Package server exposes the family record store over HTTP: the raw
// document, the built tree, search, structural checks, and an SVG snapshot.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/vanderheijden86/familytree/pkg/analysis"
	"github.com/vanderheijden86/familytree/pkg/export"
	"github.com/vanderheijden86/familytree/pkg/familytree"
	"github.com/vanderheijden86/familytree/pkg/loader"
	"github.com/vanderheijden86/familytree/pkg/model"
	"github.com/vanderheijden86/familytree/pkg/search"
	"github.com/vanderheijden86/familytree/pkg/session"
	"github.com/vanderheijden86/familytree/pkg/version"
)

// LoadErrorMessage is the body error for an unreadable data file.
const LoadErrorMessage = "Failed to load family data"

// SourceFunc returns the current family data. It is called on every request
// so edits to the file are served without a restart.
type SourceFunc func(ctx context.Context) (model.FamilyData, error)

// Options configures a Server.
type Options struct {
	Addr        string
	CORSOrigins []string
	Title       string
	// MaxResults caps matches in a search response. 0 means no cap.
	MaxResults int
	Source     SourceFunc
	// Session enables /api/login and Bearer auth on the data routes. Nil
	// leaves them open.
	Session *session.Session
	Logger  *zap.Logger
}

// Server is the HTTP front end.
type Server struct {
	opts    Options
	logger  *zap.Logger
	handler http.Handler
}

// New builds the router.
func New(opts Options) (*Server, error) {
	if opts.Source == nil {
		return nil, errors.New("server: Source is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	s := &Server{opts: opts, logger: opts.Logger}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(Logger(s.logger))

	origins := s.opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		if s.opts.Session != nil {
			r.Post("/login", s.login)
		}
		r.Group(func(r chi.Router) {
			if s.opts.Session != nil {
				r.Use(Authenticate(s.opts.Session, s.logger))
			}
			r.Get("/family-data", s.familyData)
			r.Get("/tree", s.tree)
			r.Get("/search", s.search)
			r.Get("/check", s.check)
			r.Get("/tree.svg", s.treeSVG)
		})
	})
	return r
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", s.opts.Addr), zap.String("version", version.Version))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy", "version": version.Version})
}

type loginRequest struct {
	Name       string `json:"name"`
	Passphrase string `json:"passphrase"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	Name      string    `json:"name"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := s.opts.Session.CheckPassphrase(req.Passphrase); err != nil {
		s.logger.Warn("login failed",
			zap.String("requestID", GetRequestID(r.Context())),
			zap.String("name", req.Name))
		respondError(w, http.StatusUnauthorized, "密码错误")
		return
	}
	name := strings.TrimSpace(req.Name)
	token, err := s.opts.Session.Issue(name)
	if err != nil {
		s.logger.Error("issuing token", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	claims, err := s.opts.Session.Verify(token)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	respondJSON(w, http.StatusOK, loginResponse{Token: token, Name: name, ExpiresAt: claims.ExpiresAt.Time})
}

// load fetches the data. A missing document is served as empty; any other
// failure is answered with 500 and reported as false.
func (s *Server) load(w http.ResponseWriter, r *http.Request) (model.FamilyData, bool) {
	data, err := s.opts.Source(r.Context())
	switch {
	case err == nil:
		return data, true
	case errors.Is(err, loader.ErrNotFound):
		s.logger.Warn("family data not found, returning empty data",
			zap.String("requestID", GetRequestID(r.Context())), zap.Error(err))
		return model.Empty(), true
	default:
		s.logger.Error("loading family data",
			zap.String("requestID", GetRequestID(r.Context())), zap.Error(err))
		respondError(w, http.StatusInternalServerError, LoadErrorMessage)
		return model.FamilyData{}, false
	}
}

func (s *Server) familyData(w http.ResponseWriter, r *http.Request) {
	if data, ok := s.load(w, r); ok {
		respondJSON(w, http.StatusOK, data)
	}
}

func (s *Server) tree(w http.ResponseWriter, r *http.Request) {
	if data, ok := s.load(w, r); ok {
		respondJSON(w, http.StatusOK, familytree.ToEncodable(familytree.Build(data)))
	}
}

// SearchResponse is the body of GET /api/search.
type SearchResponse struct {
	Active  bool             `json:"active"`
	Total   int              `json:"total"`
	Shown   int              `json:"shown"`
	Matches []search.Match   `json:"matches"`
	View    string           `json:"view"`
	Data    model.FamilyData `json:"data"`
}

// ParseQuery reads search parameters: q, info (default on), gen (repeatable),
// start, end.
func ParseQuery(r *http.Request) (string, search.Filters, error) {
	q := r.URL.Query()
	filters := search.DefaultFilters()
	if v := q.Get("info"); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return "", filters, fmt.Errorf("invalid info flag %q", v)
		}
		filters.SearchInInfo = on
	}
	for _, g := range q["gen"] {
		if g = strings.TrimSpace(g); g != "" && !filters.IsSelected(g) {
			filters = filters.ToggleGeneration(g)
		}
	}
	yr, err := search.ParseYearRange(q.Get("start"), q.Get("end"))
	if err != nil {
		return "", filters, err
	}
	filters.YearRange = yr
	return q.Get("q"), filters, nil
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	term, filters, err := ParseQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	view := r.URL.Query().Get("view")
	switch view {
	case "":
		view = "list"
	case "list", "tree":
	default:
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid view %q (want list or tree)", view))
		return
	}

	data, ok := s.load(w, r)
	if !ok {
		return
	}
	res := search.Run(data, familytree.Build(data), term, filters)

	resp := SearchResponse{Active: res.Active, Total: len(res.Matches), View: view, Matches: res.Matches}
	if resp.Matches == nil {
		resp.Matches = []search.Match{}
	}
	if limit := s.opts.MaxResults; limit > 0 && len(resp.Matches) > limit {
		resp.Matches = resp.Matches[:limit]
	}
	resp.Shown = len(resp.Matches)
	if view == "tree" {
		resp.Data = res.Tree
	} else {
		resp.Data = res.Flat
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) check(w http.ResponseWriter, r *http.Request) {
	if data, ok := s.load(w, r); ok {
		respondJSON(w, http.StatusOK, analysis.Check(data, analysis.DefaultConfig()))
	}
}

func (s *Server) treeSVG(w http.ResponseWriter, r *http.Request) {
	term, filters, err := ParseQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	data, ok := s.load(w, r)
	if !ok {
		return
	}
	prune, _ := strconv.ParseBool(r.URL.Query().Get("prune"))

	var buf strings.Builder
	err = export.RenderTreeSVG(&buf, export.TreeSnapshotOptions{
		Title:   s.opts.Title,
		Data:    data,
		Term:    term,
		Filters: filters,
		Prune:   prune,
	})
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(buf.String()))
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"encoding response"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
