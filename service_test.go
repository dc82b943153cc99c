package presse

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/hazyhaar/presse/browser"
	"github.com/hazyhaar/presse/extract"
	"github.com/hazyhaar/presse/fetch"
	"github.com/hazyhaar/presse/ocr"
	"github.com/hazyhaar/presse/recipe"
	"github.com/hazyhaar/presse/selector"
)

const articleBody = "The committee approved the revised spending plan after a long session " +
	"of debate among members of every major party and several independents who demanded " +
	"further amendments before the final vote was called late in the evening."

const articlePage = `<html><head><title>site</title></head><body>
<h1 class="headline">Budget Talks Resume In Parliament</h1>
<div class="article-body"><p>` + articleBody + `</p></div>
</body></html>`

const jsonLDPage = `<html><head><script type="application/ld+json">
{"@context":"https://schema.org","@type":"NewsArticle",
"headline":"Port Workers Reach Wage Agreement",
"articleBody":"` + articleBody + `"}
</script></head><body><p>teaser</p></body></html>`

const emptyPage = `<html><body><p>hi</p></body></html>`

type fakeResolver struct {
	res   *recipe.Resolution
	err   error
	calls int
}

func (f *fakeResolver) Resolve(ctx context.Context, rawURL string) (*recipe.Resolution, error) {
	f.calls++
	return f.res, f.err
}

type statCall struct {
	id      string
	success bool
}

type fakeStore struct {
	recipes map[string]*recipe.Recipe
	stats   []statCall
	logs    []*recipe.LogEntry
}

func (f *fakeStore) GetByID(ctx context.Context, id string) (*recipe.Recipe, error) {
	return f.recipes[id], nil
}

func (f *fakeStore) UpdateStats(ctx context.Context, id string, success bool, errMsg string) error {
	f.stats = append(f.stats, statCall{id: id, success: success})
	return nil
}

func (f *fakeStore) LogExtraction(ctx context.Context, e *recipe.LogEntry) error {
	f.logs = append(f.logs, e)
	return nil
}

type fakeFetcher struct {
	pages map[string]string
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (*fetch.Result, error) {
	f.calls++
	body, ok := f.pages[url]
	if !ok {
		return nil, errors.New("fetch: no such page")
	}
	return &fetch.Result{Body: []byte(body), StatusCode: 200, FinalURL: url}, nil
}

type fakeRenderer struct {
	html        map[string]string
	renderErr   error
	renderCalls int
	ocrOut      *ocr.Output
	ocrErr      error
}

func (f *fakeRenderer) RenderHTML(ctx context.Context, url string) (string, error) {
	f.renderCalls++
	if f.renderErr != nil {
		return "", f.renderErr
	}
	return f.html[url], nil
}

func (f *fakeRenderer) RunOCR(ctx context.Context, url string) (*ocr.Output, error) {
	return f.ocrOut, f.ocrErr
}

func testService(resolver recipeResolver, store feedbackStore, fetcher pageFetcher, renderer pageRenderer) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Service{
		resolver: resolver,
		store:    store,
		fetcher:  fetcher,
		renderer: renderer,
		engine:   extract.NewEngine(logger),
		logger:   logger,
		validate: func(string) error { return nil },
	}
}

func dbRecipe() *recipe.Recipe {
	return &recipe.Recipe{
		ID:       "r1",
		Domain:   "example.com",
		IsActive: true,
		Selectors: recipe.Selectors{
			Title:   selector.MustParse("h1.headline"),
			Content: selector.MustParse(".article-body"),
		},
		Confidence: 0.8,
	}
}

// WHAT: a database recipe renders through the browser, extracts the
// article, inherits the stored confidence, and records a success stat.
func TestExtractDatabaseRecipe(t *testing.T) {
	store := &fakeStore{}
	renderer := &fakeRenderer{html: map[string]string{"https://example.com/a": articlePage}}
	fetcher := &fakeFetcher{}
	svc := testService(
		&fakeResolver{res: &recipe.Resolution{Source: recipe.SourceDatabase, Recipe: dbRecipe()}},
		store, fetcher, renderer,
	)

	res, err := svc.Extract(context.Background(), "https://example.com/a", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !res.Success || res.Strategy != extract.StrategyRecipe {
		t.Fatalf("Success = %v, Strategy = %q, want recipe success", res.Success, res.Strategy)
	}
	if res.Title != "Budget Talks Resume In Parliament" {
		t.Errorf("Title = %q", res.Title)
	}
	if res.Confidence != 0.8 {
		t.Errorf("Confidence = %v, want stored 0.8", res.Confidence)
	}
	if renderer.renderCalls != 1 {
		t.Errorf("renderCalls = %d, want 1 (database recipes use the browser)", renderer.renderCalls)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher calls = %d, want 0", fetcher.calls)
	}
	if len(store.stats) != 1 || !store.stats[0].success || store.stats[0].id != "r1" {
		t.Errorf("stats = %+v, want one success for r1", store.stats)
	}
	if len(store.logs) != 1 || store.logs[0].Status != "success" {
		t.Fatalf("logs = %+v, want one success entry", store.logs)
	}
}

// WHAT: when the recipe's selectors miss, the smart chain runs on the
// same URL and a failure stat is recorded against the recipe.
// WHY: stale recipes must degrade to smart extraction, not hard-fail.
func TestExtractRecipeFailureFallsBackToSmart(t *testing.T) {
	rec := dbRecipe()
	rec.Selectors.Title = selector.MustParse("h1.gone")
	rec.Selectors.Content = selector.MustParse(".also-gone")

	store := &fakeStore{}
	fetcher := &fakeFetcher{pages: map[string]string{"https://example.com/a": jsonLDPage}}
	svc := testService(
		&fakeResolver{res: &recipe.Resolution{Source: recipe.SourceDatabase, Recipe: rec}},
		store, fetcher, nil,
	)

	res, err := svc.Extract(context.Background(), "https://example.com/a", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Strategy != extract.StrategyStructured {
		t.Fatalf("Strategy = %q, want structured-data fallback", res.Strategy)
	}
	if res.Title != "Port Workers Reach Wage Agreement" {
		t.Errorf("Title = %q", res.Title)
	}
	if len(store.stats) != 1 || store.stats[0].success {
		t.Errorf("stats = %+v, want one failure for the recipe", store.stats)
	}
}

// WHAT: custom selectors bypass resolution entirely and never touch
// recipe stats.
func TestExtractCustomSelectors(t *testing.T) {
	resolver := &fakeResolver{}
	store := &fakeStore{}
	fetcher := &fakeFetcher{pages: map[string]string{"https://example.com/a": articlePage}}
	svc := testService(resolver, store, fetcher, nil)

	res, err := svc.Extract(context.Background(), "https://example.com/a", &Options{
		CustomSelectors: &recipe.Selectors{
			Title:   selector.MustParse("h1.headline"),
			Content: selector.MustParse(".article-body"),
		},
	})
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !res.Success {
		t.Fatal("Success = false")
	}
	if resolver.calls != 0 {
		t.Errorf("resolver calls = %d, want 0", resolver.calls)
	}
	if len(store.stats) != 0 {
		t.Errorf("stats = %+v, want none for ephemeral recipes", store.stats)
	}
}

// WHAT: forcing an unknown recipe id fails fast with ErrRecipeNotFound.
func TestExtractForceRecipeIDNotFound(t *testing.T) {
	svc := testService(&fakeResolver{}, &fakeStore{}, &fakeFetcher{}, nil)

	_, err := svc.Extract(context.Background(), "https://example.com/a", &Options{ForceRecipeID: "nope"})
	if !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("error = %v, want ErrRecipeNotFound", err)
	}
}

// WHAT: URL validation runs before any network activity.
func TestExtractInvalidURL(t *testing.T) {
	fetcher := &fakeFetcher{}
	svc := testService(&fakeResolver{}, &fakeStore{}, fetcher, nil)
	svc.validate = fetch.ValidateURL

	_, err := svc.Extract(context.Background(), "ftp://example.com/a", nil)
	if !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("error = %v, want ErrInvalidURL", err)
	}
	if fetcher.calls != 0 {
		t.Errorf("fetcher calls = %d, want 0", fetcher.calls)
	}
}

// WHAT: an OCRCapable recipe that defeats both the recipe and the smart
// chain falls through to the screenshot pipeline.
func TestExtractOCRFallback(t *testing.T) {
	rec := dbRecipe()
	rec.OCRCapable = true

	renderer := &fakeRenderer{
		html: map[string]string{"https://example.com/a": emptyPage},
		ocrOut: &ocr.Output{
			Text:       articleBody,
			Titles:     []string{"Government Announces New Policy"},
			Confidence: 0.85,
		},
	}
	fetcher := &fakeFetcher{pages: map[string]string{"https://example.com/a": emptyPage}}
	svc := testService(
		&fakeResolver{res: &recipe.Resolution{Source: recipe.SourceDatabase, Recipe: rec}},
		&fakeStore{}, fetcher, renderer,
	)

	res, err := svc.Extract(context.Background(), "https://example.com/a", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if res.Strategy != extract.StrategyOCR {
		t.Fatalf("Strategy = %q, want ocr", res.Strategy)
	}
	if res.Title != "Government Announces New Policy" {
		t.Errorf("Title = %q", res.Title)
	}
	if res.Confidence != 0.85 {
		t.Errorf("Confidence = %v, want backend 0.85", res.Confidence)
	}
}

// WHAT: without a configured backend the adapter reports unavailability
// before touching the session pool.
// WHY: pool slots are scarce; an unconfigured backend must not consume
// one (nor navigate) just to fail.
func TestBrowserAdapterOCRUnavailable(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := &browserAdapter{
		mgr: browser.NewManager(browser.Config{Logger: logger}),
		ocr: ocr.NewPipeline(nil, logger),
	}

	// The manager was never started: acquiring would error differently,
	// so getting ErrOCRUnavailable proves the check ran first.
	_, err := a.RunOCR(context.Background(), "https://example.com/a")
	if !errors.Is(err, ErrOCRUnavailable) {
		t.Fatalf("error = %v, want ErrOCRUnavailable", err)
	}
}

// WHAT: when every path fails the result still comes back structured,
// flagged NeedsHelp, with ErrNoContent.
func TestExtractAllFail(t *testing.T) {
	store := &fakeStore{}
	fetcher := &fakeFetcher{pages: map[string]string{"https://example.com/a": emptyPage}}
	svc := testService(
		&fakeResolver{res: &recipe.Resolution{Source: recipe.SourceNone}},
		store, fetcher, nil,
	)

	res, err := svc.Extract(context.Background(), "https://example.com/a", nil)
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("error = %v, want ErrNoContent", err)
	}
	if res == nil || !res.NeedsHelp {
		t.Fatalf("result = %+v, want NeedsHelp", res)
	}
	if len(store.logs) == 0 || store.logs[len(store.logs)-1].Status != "failed" {
		t.Errorf("logs = %+v, want a failed entry", store.logs)
	}
}

// WHAT: a browser failure on the recipe substrate falls back once to the
// static fetcher and still succeeds.
func TestExtractBrowserFallsBackToStatic(t *testing.T) {
	renderer := &fakeRenderer{renderErr: errors.New("browser crashed")}
	fetcher := &fakeFetcher{pages: map[string]string{"https://example.com/a": articlePage}}
	svc := testService(
		&fakeResolver{res: &recipe.Resolution{Source: recipe.SourceDatabase, Recipe: dbRecipe()}},
		&fakeStore{}, fetcher, renderer,
	)

	res, err := svc.Extract(context.Background(), "https://example.com/a", nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !res.Success {
		t.Fatal("Success = false after static fallback")
	}
	if fetcher.calls != 1 {
		t.Errorf("fetcher calls = %d, want 1", fetcher.calls)
	}
}

// WHAT: listing extraction visits each discovered link and tolerates
// per-article failures.
func TestExtractListing(t *testing.T) {
	listingPage := `<html><body>
<div class="story"><a href="/good">Budget Talks Resume In Parliament</a></div>
<div class="story"><a href="/bad">Second Story About Something Else</a></div>
</body></html>`

	fetcher := &fakeFetcher{pages: map[string]string{
		"https://example.com/news": listingPage,
		"https://example.com/good": articlePage,
		"https://example.com/bad":  emptyPage,
	}}
	svc := testService(&fakeResolver{}, &fakeStore{}, fetcher, nil)

	out, err := svc.ExtractListing(context.Background(), "https://example.com/news",
		recipe.ListingSelectors{
			Container: selector.MustParse(".story"),
			Link:      selector.MustParse("a"),
		},
		recipe.Selectors{
			Title:   selector.MustParse("h1.headline"),
			Content: selector.MustParse(".article-body"),
		},
	)
	if err != nil {
		t.Fatalf("ExtractListing() error = %v", err)
	}
	if out.TotalFound != 2 {
		t.Errorf("TotalFound = %d, want 2", out.TotalFound)
	}
	if out.TotalScraped != 1 || len(out.Articles) != 1 {
		t.Fatalf("TotalScraped = %d, Articles = %d, want 1 and 1", out.TotalScraped, len(out.Articles))
	}
	if !strings.Contains(out.Articles[0].Content, "committee approved") {
		t.Errorf("Content = %q", out.Articles[0].Content)
	}
	if len(out.Errors) != 1 || out.Errors[0].URL != "https://example.com/bad" {
		t.Errorf("Errors = %+v, want one for /bad", out.Errors)
	}
}
