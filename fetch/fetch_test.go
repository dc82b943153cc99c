package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// allowAll bypasses SSRF checks so tests can hit httptest loopback servers.
func allowAll(string) error { return nil }

func testFetcher(t *testing.T) *Fetcher {
	t.Helper()
	cfg := Config{URLValidator: allowAll}
	cfg.Retry.Backoff = func(int) time.Duration { return 0 }
	return New(cfg)
}

func TestFetch_ReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "presse/") {
			t.Errorf("user agent = %q", ua)
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	res, err := testFetcher(t).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(res.Body) != "<html><body>hello</body></html>" {
		t.Errorf("body = %q", res.Body)
	}
	if res.ContentType != "text/html; charset=utf-8" {
		t.Errorf("content type = %q", res.ContentType)
	}
}

func TestFetch_BodyCapped(t *testing.T) {
	// WHAT: responses larger than MaxBytes are truncated, not rejected.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(strings.Repeat("x", 4096)))
	}))
	defer srv.Close()

	f := New(Config{URLValidator: allowAll, MaxBytes: 100})
	res, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.Body) != 100 {
		t.Errorf("len(body) = %d, want 100", len(res.Body))
	}
}

func TestFetch_404IsTerminal(t *testing.T) {
	// WHY: retrying a hard client error only hammers the site.
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := testFetcher(t).Fetch(context.Background(), srv.URL)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != 404 {
		t.Fatalf("err = %v, want StatusError 404", err)
	}
	if calls != 1 {
		t.Errorf("server hit %d times, want 1", calls)
	}
}

func TestFetch_5xxRetries(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("recovered content"))
	}))
	defer srv.Close()

	res, err := testFetcher(t).Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch after retries: %v", err)
	}
	if string(res.Body) != "recovered content" {
		t.Errorf("body = %q", res.Body)
	}
	if calls != 3 {
		t.Errorf("server hit %d times, want 3", calls)
	}
}

func TestFetch_429Retries(t *testing.T) {
	se := &StatusError{Code: 429}
	if !se.Retryable() {
		t.Error("429 should be retryable")
	}
	if (&StatusError{Code: 403}).Retryable() {
		t.Error("403 should not be retryable")
	}
}

func TestFetch_RedirectFollowedAndRecorded(t *testing.T) {
	var target *httptest.Server
	target = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("final"))
	}))
	defer target.Close()
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL+"/article", http.StatusFound)
	}))
	defer src.Close()

	res, err := testFetcher(t).Fetch(context.Background(), src.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.FinalURL != target.URL+"/article" {
		t.Errorf("FinalURL = %q, want %q", res.FinalURL, target.URL+"/article")
	}
}

func TestFetch_BlockedURLNeverRequested(t *testing.T) {
	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	defer srv.Close()

	blocked := errors.New("nope")
	f := New(Config{URLValidator: func(string) error { return blocked }})
	if _, err := f.Fetch(context.Background(), srv.URL); !errors.Is(err, blocked) {
		t.Fatalf("err = %v", err)
	}
	if hit {
		t.Error("blocked URL reached the server")
	}
}

func TestValidateURL(t *testing.T) {
	cases := []struct {
		url     string
		wantErr error
	}{
		{"https://example.com/a", nil},
		{"http://example.com", nil},
		{"ftp://example.com", ErrUnsafeScheme},
		{"file:///etc/passwd", ErrUnsafeScheme},
		{"http://127.0.0.1/admin", ErrSSRF},
		{"http://10.0.0.8/", ErrSSRF},
		{"http://192.168.1.1/", ErrSSRF},
		{"http://169.254.169.254/latest/meta-data", ErrSSRF},
		{"http://[::1]/", ErrSSRF},
	}
	for _, c := range cases {
		err := ValidateURL(c.url)
		if c.wantErr == nil && err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", c.url, err)
		}
		if c.wantErr != nil && !errors.Is(err, c.wantErr) {
			t.Errorf("ValidateURL(%q) = %v, want %v", c.url, err, c.wantErr)
		}
	}
}

func TestIsSufficient(t *testing.T) {
	longText := strings.Repeat("Real article prose with substance. ", 20)

	cases := []struct {
		name string
		html string
		want bool
	}{
		{"static article", "<html><body><article><p>" + longText + "</p></article></body></html>", true},
		{"tiny document", "<html></html>", false},
		{"react shell", `<html><head><script src="/bundle.js"></script>` + strings.Repeat("<meta x>", 50) + `</head><body><div id="root"></div></body></html>`, false},
		{"noscript warning", `<html><body>` + strings.Repeat("<div> </div>", 40) + `<noscript>You need to enable JavaScript to run this app.</noscript></body></html>`, false},
		{"markup heavy", "<html><body>" + strings.Repeat("<div class='someverylongclassname anotherclass'></div>", 100) + "ok</body></html>", false},
	}
	for _, c := range cases {
		if got := IsSufficient([]byte(c.html)); got != c.want {
			t.Errorf("%s: IsSufficient = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestVisibleText_ScriptBodyIsMarkup(t *testing.T) {
	html := []byte(`<p>abc</p><script>var x = "lots and lots of javascript";</script>`)
	text, _ := visibleText(html)
	if text != 3 {
		t.Errorf("text = %d, want 3 (script body must not count)", text)
	}
}
