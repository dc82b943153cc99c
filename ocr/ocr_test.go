package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTitles_FiltersAndDeduplicates(t *testing.T) {
	text := strings.Join([]string{
		"El gobierno anuncia un plan de vivienda para jóvenes",
		"#@$%^&*()_+{}[]|\\<>~`!!??",
		"Menu",
		"Suscríbete a nuestra newsletter semanal",
		"Mayor unveils the downtown transit overhaul plan",
		"el gobierno anuncia un plan de vivienda para jóvenes",
		"ok",
	}, "\n")

	got := Titles(text)
	want := []string{
		"El gobierno anuncia un plan de vivienda para jóvenes",
		"Mayor unveils the downtown transit overhaul plan",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d titles %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("titles[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestGarbled(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"A perfectly ordinary headline", false},
		{"||##!! garbage ~~==++ //\\ $$%%", true},
		{"", true},
	}
	for _, c := range cases {
		if got := garbled(c.line); got != c.want {
			t.Errorf("garbled(%q) = %v, want %v", c.line, got, c.want)
		}
	}
}

func TestTitleTraits(t *testing.T) {
	// WHAT: a candidate needs a stopword, a domain keyword, or a 5-15
	// token shape; length alone is not enough.
	cases := []struct {
		line string
		want bool
	}{
		{"council approves the annual budget", true}, // stopword "the"
		{"one two three four five six seven", true},  // 7 tokens
		{"police raid uncovers smuggling ring", true}, // domain keyword
		{"hqx zprt wlkm qqv", false},                 // 4 tokens, no marker
		{"SingleVeryLongTokenWithoutAnySpaces", false},
	}
	for _, c := range cases {
		if got := titleTraits(c.line); got != c.want {
			t.Errorf("titleTraits(%q) = %v, want %v", c.line, got, c.want)
		}
	}
}

func TestCaptureOffsets(t *testing.T) {
	got := captureOffsets(6000, 6)
	want := []int{0, 1000, 2000, 3000, 4000, 5000}
	if len(got) != len(want) {
		t.Fatalf("offsets = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("offsets[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

// fakePager scripts the scroll geometry without a browser.
type fakePager struct {
	height    int
	scrolls   []int
	shots     int
	shotErr   error
	scrollErr error
}

func (f *fakePager) ScrollToLoad(ctx context.Context, maxCycles, stableCycles int, settle time.Duration) (int, error) {
	return f.height, f.scrollErr
}

func (f *fakePager) ScrollTo(ctx context.Context, y int) error {
	f.scrolls = append(f.scrolls, y)
	return nil
}

func (f *fakePager) Screenshot(ctx context.Context) ([]byte, error) {
	if f.shotErr != nil {
		return nil, f.shotErr
	}
	f.shots++
	return testPNG(40), nil
}

// testPNG renders a small two-tone image.
func testPNG(size int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x/8+y/8)%2 == 0 {
				img.Set(x, y, color.White)
			} else {
				img.Set(x, y, color.RGBA{40, 40, 40, 255})
			}
		}
	}
	var buf bytes.Buffer
	png.Encode(&buf, img)
	return buf.Bytes()
}

func TestCapture_SixEvenOffsets(t *testing.T) {
	p := &fakePager{height: 12000}
	shots, err := Capture(context.Background(), p)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if len(shots) != 6 || p.shots != 6 {
		t.Errorf("shots = %d", len(shots))
	}
	if p.scrolls[0] != 0 || p.scrolls[5] != 10000 {
		t.Errorf("scroll offsets = %v", p.scrolls)
	}
}

func TestCapture_EmptyPageFails(t *testing.T) {
	if _, err := Capture(context.Background(), &fakePager{height: 0}); err == nil {
		t.Fatal("expected error for zero-height page")
	}
}

func TestPreprocess_ProducesBinaryImage(t *testing.T) {
	out, err := Preprocess(testPNG(64))
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	// Upscaled by 2.
	if img.Bounds().Dx() != 128 {
		t.Errorf("width = %d, want 128", img.Bounds().Dx())
	}
	// Every pixel is pure black or pure white after binarization.
	gray, ok := img.(*image.Gray)
	if !ok {
		t.Fatalf("output is %T, want *image.Gray", img)
	}
	for _, p := range gray.Pix {
		if p != 0 && p != 255 {
			t.Fatalf("pixel value %d is not binary", p)
		}
	}
}

func TestPreprocess_RejectsGarbage(t *testing.T) {
	if _, err := Preprocess([]byte("not a png")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestClient_Unconfigured(t *testing.T) {
	// WHY: a missing backend must surface as an explicit error, never a
	// silent skip of the OCR path.
	c := NewClient(ClientConfig{})
	if _, err := c.Recognize(context.Background(), testPNG(8)); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
	if c.Available() {
		t.Error("Available() = true without BaseURL")
	}
}

func TestClient_Recognize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/ocr" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req recognizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Format != "png" || req.Image == "" {
			t.Errorf("request = %+v", req)
		}
		w.Write([]byte(`{"text":"Recognized headline text","confidence":0.92}`))
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{BaseURL: srv.URL})
	rec, err := c.Recognize(context.Background(), testPNG(8))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if rec.Text != "Recognized headline text" || rec.Confidence != 0.92 {
		t.Errorf("rec = %+v", rec)
	}
}

func TestPipeline_UnavailableBackend(t *testing.T) {
	p := NewPipeline(NewClient(ClientConfig{}), nil)
	if _, err := p.Run(context.Background(), &fakePager{height: 5000}); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", err)
	}
}

func TestPipeline_Run(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"El presidente firma la nueva ley de transparencia\nMenu","confidence":0.88}`))
	}))
	defer srv.Close()

	p := NewPipeline(NewClient(ClientConfig{BaseURL: srv.URL, RPS: 1000, Burst: 1000}), nil)
	out, err := p.Run(context.Background(), &fakePager{height: 6000})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out.Titles) != 1 || out.Titles[0] != "El presidente firma la nueva ley de transparencia" {
		t.Errorf("titles = %v", out.Titles)
	}
	if out.Confidence != 0.88 {
		t.Errorf("confidence = %v", out.Confidence)
	}
}
