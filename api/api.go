// Package api is the HTTP surface: extraction endpoints plus recipe
// CRUD for external collaborators. Bodies and responses are JSON;
// selectors travel as their raw CSS strings.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/presse"
	"github.com/hazyhaar/presse/extract"
	"github.com/hazyhaar/presse/recipe"
)

// Extractor is the service surface the API forwards to.
type Extractor interface {
	Extract(ctx context.Context, rawURL string, opts *presse.Options) (*extract.Result, error)
	ExtractListing(ctx context.Context, rawURL string, listingSel recipe.ListingSelectors, articleSel recipe.Selectors) (*presse.ListingResult, error)
}

// Config wires a Server.
type Config struct {
	Extractor Extractor
	Store     *recipe.Store

	// RPS and Burst bound each client IP. Zero values get defaults.
	RPS   float64
	Burst int

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.RPS == 0 {
		c.RPS = 5
	}
	if c.Burst == 0 {
		c.Burst = 10
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Server holds the router and its dependencies.
type Server struct {
	svc    Extractor
	store  *recipe.Store
	logger *slog.Logger
	router *chi.Mux
}

// NewServer builds the router with all routes mounted.
func NewServer(cfg Config) *Server {
	cfg.defaults()
	s := &Server{
		svc:    cfg.Extractor,
		store:  cfg.Store,
		logger: cfg.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(perIPLimit(cfg.RPS, cfg.Burst))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/extract", s.handleExtract)
		r.Post("/extract/listing", s.handleExtractListing)

		r.Route("/recipes", func(r chi.Router) {
			r.Get("/", s.handleListRecipes)
			r.Post("/", s.handleCreateRecipe)
			r.Get("/{id}", s.handleGetRecipe)
			r.Delete("/{id}", s.handleDisableRecipe)
			r.Post("/{id}/confirm", s.handleConfirmRecipe)
		})
	})

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type extractRequest struct {
	URL           string                `json:"url"`
	RecipeID      string                `json:"recipe_id,omitempty"`
	Selectors     *recipe.Selectors     `json:"selectors,omitempty"`
	CleaningRules []recipe.CleaningRule `json:"cleaning_rules,omitempty"`
}

// handleExtract runs the full chain for one URL. A failed extraction is
// still a completed request: the structured result comes back with 200
// and success=false so the caller sees needs_help and the attempted
// strategies.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}

	opts := &presse.Options{
		ForceRecipeID:   req.RecipeID,
		CustomSelectors: req.Selectors,
		CleaningRules:   req.CleaningRules,
	}

	start := time.Now()
	res, err := s.svc.Extract(r.Context(), req.URL, opts)
	if err != nil && !errors.Is(err, presse.ErrNoContent) {
		writeError(w, statusFor(err), err)
		return
	}
	s.logger.Info("api extract",
		"url", req.URL,
		"success", res.Success,
		"duration_ms", time.Since(start).Milliseconds())
	writeJSON(w, http.StatusOK, res)
}

type extractListingRequest struct {
	URL              string                  `json:"url"`
	ListingSelectors recipe.ListingSelectors `json:"listing_selectors"`
	ArticleSelectors recipe.Selectors        `json:"article_selectors"`
}

func (s *Server) handleExtractListing(w http.ResponseWriter, r *http.Request) {
	var req extractListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, errors.New("url is required"))
		return
	}

	out, err := s.svc.ExtractListing(r.Context(), req.URL, req.ListingSelectors, req.ArticleSelectors)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListRecipes(w http.ResponseWriter, r *http.Request) {
	f := recipe.Filters{
		Domain:       r.URL.Query().Get("domain"),
		OnlyVerified: r.URL.Query().Get("verified") == "true",
		OnlyActive:   r.URL.Query().Get("active") != "false",
	}
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 50)

	list, err := s.store.List(r.Context(), f, page, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []*recipe.Recipe{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCreateRecipe(w http.ResponseWriter, r *http.Request) {
	var rec recipe.Recipe
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	if err := s.store.Insert(r.Context(), &rec); err != nil {
		switch {
		case errors.Is(err, recipe.ErrDuplicate):
			writeError(w, http.StatusConflict, err)
		case errors.Is(err, recipe.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err)
		default:
			writeError(w, http.StatusInternalServerError, err)
		}
		return
	}
	s.logger.Info("recipe created", "id", rec.ID, "domain", rec.Domain)
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handleGetRecipe(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, errors.New("recipe not found"))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDisableRecipe(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Disable(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
}

type confirmRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleConfirmRecipe(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}

	verified, err := s.store.Confirm(r.Context(), chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		if errors.Is(err, recipe.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"verified": verified})
}

// statusFor maps service sentinels to HTTP codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, presse.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, presse.ErrRecipeNotFound):
		return http.StatusNotFound
	case errors.Is(err, presse.ErrOCRUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, key string, def int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 1 {
		return def
	}
	return v
}
