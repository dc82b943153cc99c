package presse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/hazyhaar/presse/browser"
	"github.com/hazyhaar/presse/extract"
	"github.com/hazyhaar/presse/fetch"
	"github.com/hazyhaar/presse/ocr"
	"github.com/hazyhaar/presse/recipe"
)

// Stage interfaces. Concrete wiring lives in New; tests substitute
// fakes.
type (
	recipeResolver interface {
		Resolve(ctx context.Context, rawURL string) (*recipe.Resolution, error)
	}
	feedbackStore interface {
		GetByID(ctx context.Context, id string) (*recipe.Recipe, error)
		UpdateStats(ctx context.Context, id string, success bool, errMsg string) error
		LogExtraction(ctx context.Context, e *recipe.LogEntry) error
	}
	pageFetcher interface {
		Fetch(ctx context.Context, url string) (*fetch.Result, error)
	}
	pageRenderer interface {
		RenderHTML(ctx context.Context, url string) (string, error)
		RunOCR(ctx context.Context, url string) (*ocr.Output, error)
	}
)

// Config wires a Service.
type Config struct {
	Store   *recipe.Store   // required
	Catalog *recipe.Catalog // optional static fallback

	Fetcher *fetch.Fetcher   // nil gets defaults
	Browser *browser.Manager // nil disables the browser substrate
	OCR     *ocr.Client      // nil disables OCR

	Logger *slog.Logger
}

// Service is the engine's public face. One instance serves all requests;
// the recipe store is the only cross-request shared state.
type Service struct {
	resolver recipeResolver
	store    feedbackStore
	fetcher  pageFetcher
	renderer pageRenderer // nil when no browser is configured
	engine   *extract.Engine
	logger   *slog.Logger
	validate func(string) error
}

// New creates a Service from concrete components.
func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Fetcher == nil {
		cfg.Fetcher = fetch.New(fetch.Config{})
	}

	var renderer pageRenderer
	if cfg.Browser != nil {
		renderer = &browserAdapter{
			mgr: cfg.Browser,
			ocr: ocr.NewPipeline(cfg.OCR, cfg.Logger),
		}
	}

	return &Service{
		resolver: recipe.NewResolver(cfg.Store, cfg.Catalog),
		store:    cfg.Store,
		fetcher:  cfg.Fetcher,
		renderer: renderer,
		engine:   extract.NewEngine(cfg.Logger),
		logger:   cfg.Logger,
		validate: fetch.ValidateURL,
	}
}

// Extract runs the full chain for one article URL: recipe, smart
// scraper, then OCR for recipes flagged OCRCapable. The returned result
// is structured even on failure; NeedsHelp marks domains that defeated
// every strategy.
func (s *Service) Extract(ctx context.Context, rawURL string, opts *Options) (*extract.Result, error) {
	start := time.Now()

	if err := s.validate(rawURL); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}

	rec, source, err := s.pickRecipe(ctx, rawURL, opts)
	if err != nil {
		return nil, err
	}

	log := s.logger.With("url", rawURL)

	if rec != nil {
		res, recErr := s.runRecipe(ctx, rawURL, rec, source)
		s.recordOutcome(ctx, rawURL, rec, source, res, recErr, start)
		if res != nil && res.Success {
			log.Info("extracted with recipe",
				"domain", rec.Domain,
				"source", string(source),
				"duration_ms", time.Since(start).Milliseconds())
			return res, nil
		}
		log.Warn("recipe extraction failed", "domain", rec.Domain, "error", recErr)
	}

	res, smartErr := s.runSmart(ctx, rawURL)
	if smartErr == nil && res.Success {
		s.logEntry(ctx, rawURL, "", res.Strategy, "success", "", start)
		log.Info("extracted with smart scraper",
			"strategy", string(res.Strategy),
			"duration_ms", time.Since(start).Milliseconds())
		return res, nil
	}

	if rec != nil && rec.OCRCapable {
		ocrRes, ocrErr := s.runOCR(ctx, rawURL)
		if ocrErr == nil && ocrRes.Success {
			s.logEntry(ctx, rawURL, rec.ID, ocrRes.Strategy, "success", "", start)
			return ocrRes, nil
		}
		if errors.Is(ocrErr, ErrOCRUnavailable) {
			return nil, ocrErr
		}
		log.Warn("ocr fallback failed", "error", ocrErr)
	}

	if res == nil {
		res = &extract.Result{NeedsHelp: true}
	}
	failMsg := "no strategy produced valid content"
	if smartErr != nil {
		failMsg = smartErr.Error()
	}
	s.logEntry(ctx, rawURL, "", "", "failed", failMsg, start)
	return res, ErrNoContent
}

// ExtractListing discovers article links on a listing page and runs the
// article extractor on each, tolerating individual failures.
func (s *Service) ExtractListing(ctx context.Context, rawURL string, listingSel recipe.ListingSelectors, articleSel recipe.Selectors) (*ListingResult, error) {
	if err := s.validate(rawURL); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidURL, rawURL)
	}

	// Listing pages are JS-rendered more often than not; prefer the
	// browser when one is configured.
	html, err := s.pageHTML(ctx, rawURL, s.renderer != nil)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("presse: parse listing: %w", err)
	}

	items, err := s.engine.Listing(doc, listingSel, rawURL)
	if err != nil {
		return nil, err
	}

	out := &ListingResult{TotalFound: len(items)}
	for _, item := range items {
		res, err := s.Extract(ctx, item.URL, &Options{CustomSelectors: &articleSel})
		if err != nil {
			out.Errors = append(out.Errors, ListingError{URL: item.URL, Error: err.Error()})
			continue
		}
		if res.Title == "" {
			res.Title = item.Title
		}
		out.Articles = append(out.Articles, res)
		out.TotalScraped++
	}
	return out, nil
}

// pickRecipe applies option priority: custom selectors beat a forced
// recipe id, which beats normal resolution.
func (s *Service) pickRecipe(ctx context.Context, rawURL string, opts *Options) (*recipe.Recipe, recipe.Source, error) {
	if opts != nil && opts.CustomSelectors != nil {
		rec := &recipe.Recipe{
			Selectors:     *opts.CustomSelectors,
			CleaningRules: opts.CleaningRules,
			Confidence:    0.5,
			IsActive:      true,
		}
		if err := rec.CompileCleaningRules(); err != nil {
			return nil, recipe.SourceNone, fmt.Errorf("%w: %v", recipe.ErrInvalidInput, err)
		}
		return rec, recipe.SourceNone, nil
	}

	if opts != nil && opts.ForceRecipeID != "" {
		rec, err := s.store.GetByID(ctx, opts.ForceRecipeID)
		if err != nil {
			return nil, recipe.SourceNone, err
		}
		if rec == nil {
			return nil, recipe.SourceNone, fmt.Errorf("%w: %s", ErrRecipeNotFound, opts.ForceRecipeID)
		}
		return rec, recipe.SourceDatabase, nil
	}

	res, err := s.resolver.Resolve(ctx, rawURL)
	if err != nil {
		return nil, recipe.SourceNone, err
	}
	return res.Recipe, res.Source, nil
}

// runRecipe executes a recipe on its substrate: the browser when the
// recipe needs one (or came from the database, whose recipes target
// JS-rendered DOMs), the static fetcher otherwise. A browser failure
// falls back once to the static path.
func (s *Service) runRecipe(ctx context.Context, rawURL string, rec *recipe.Recipe, source recipe.Source) (*extract.Result, error) {
	useBrowser := s.renderer != nil &&
		(rec.NeedsBrowser || !rec.ListingSelectors.IsZero() || source == recipe.SourceDatabase)

	html, err := s.pageHTML(ctx, rawURL, useBrowser)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("presse: parse page: %w", err)
	}
	return s.engine.Article(doc, rec, rawURL)
}

// runSmart fetches statically and runs the strategy chain; an SPA shell
// is re-rendered in the browser first when one is available.
func (s *Service) runSmart(ctx context.Context, rawURL string) (*extract.Result, error) {
	html, err := s.pageHTML(ctx, rawURL, false)
	if err != nil {
		return nil, err
	}
	if !fetch.IsSufficient([]byte(html)) && s.renderer != nil {
		if rendered, rerr := s.renderer.RenderHTML(ctx, rawURL); rerr == nil {
			html = rendered
		} else {
			s.logger.Warn("browser render failed, using static html", "url", rawURL, "error", rerr)
		}
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("presse: parse page: %w", err)
	}
	return s.engine.Smart(ctx, doc, rawURL)
}

// runOCR drives the screenshot pipeline and shapes its output as an
// extraction result.
func (s *Service) runOCR(ctx context.Context, rawURL string) (*extract.Result, error) {
	if s.renderer == nil {
		return nil, ErrOCRUnavailable
	}
	out, err := s.renderer.RunOCR(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	res := &extract.Result{
		Content:    out.Text,
		Strategy:   extract.StrategyOCR,
		Confidence: out.Confidence,
	}
	if len(out.Titles) > 0 {
		res.Title = out.Titles[0]
	}
	res.Success = extract.IsValidTitle(res.Title) && extract.IsValidContent(res.Content)
	return res, nil
}

// pageHTML gets a page via the requested substrate, falling back from
// the browser to the static fetcher once.
func (s *Service) pageHTML(ctx context.Context, rawURL string, useBrowser bool) (string, error) {
	if useBrowser && s.renderer != nil {
		html, err := s.renderer.RenderHTML(ctx, rawURL)
		if err == nil {
			return html, nil
		}
		s.logger.Warn("browser substrate failed, falling back to static",
			"url", rawURL, "error", err)
	}
	res, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(res.Body), nil
}

// recordOutcome feeds the outcome loop. Stats only exist for stored
// recipes; catalog and ephemeral recipes just get a log line.
func (s *Service) recordOutcome(ctx context.Context, rawURL string, rec *recipe.Recipe, source recipe.Source, res *extract.Result, resErr error, start time.Time) {
	success := res != nil && res.Success
	errMsg := ""
	if resErr != nil {
		errMsg = resErr.Error()
	}

	if source == recipe.SourceDatabase && rec.ID != "" {
		if err := s.store.UpdateStats(ctx, rec.ID, success, errMsg); err != nil {
			s.logger.Warn("stats update failed", "recipe_id", rec.ID, "error", err)
		}
	}

	status := "failed"
	if success {
		status = "success"
	}
	s.logEntry(ctx, rawURL, rec.ID, extract.StrategyRecipe, status, errMsg, start)
}

func (s *Service) logEntry(ctx context.Context, rawURL, recipeID string, strategy extract.Strategy, status, errMsg string, start time.Time) {
	err := s.store.LogExtraction(ctx, &recipe.LogEntry{
		RecipeID:     recipeID,
		URL:          rawURL,
		Strategy:     string(strategy),
		Status:       status,
		ErrorMessage: errMsg,
		DurationMs:   time.Since(start).Milliseconds(),
	})
	if err != nil {
		s.logger.Warn("extraction log write failed", "error", err)
	}
}

// browserAdapter binds the session pool and the OCR pipeline to the
// renderer interface.
type browserAdapter struct {
	mgr *browser.Manager
	ocr *ocr.Pipeline
}

func (a *browserAdapter) RenderHTML(ctx context.Context, url string) (string, error) {
	sess, err := a.mgr.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer sess.Close()

	if err := sess.Navigate(ctx, url); err != nil {
		return "", err
	}
	return sess.HTML(ctx)
}

func (a *browserAdapter) RunOCR(ctx context.Context, url string) (*ocr.Output, error) {
	// Pool slots are scarce; fail before acquiring one when no backend
	// is configured.
	if !a.ocr.Available() {
		return nil, ocr.ErrUnavailable
	}
	sess, err := a.mgr.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Close()

	if err := sess.Navigate(ctx, url); err != nil {
		return nil, err
	}
	return a.ocr.Run(ctx, sess)
}
