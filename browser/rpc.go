package browser

// In-page evaluation is a cross-process RPC boundary. The scripts below
// and PageMetrics are the whole contract: nothing else crosses into or
// out of the page's JS context.

// PageMetrics is the value returned by the measurement script.
type PageMetrics struct {
	ScrollHeight   int // full document height, px
	ViewportHeight int // visible height, px
	ScrollY        int // current vertical offset, px
}

const metricsScript = `() => ({
	scrollHeight: document.body ? document.body.scrollHeight : 0,
	viewportHeight: window.innerHeight,
	scrollY: window.scrollY
})`

// scrollScript takes one argument: the target vertical offset in px.
const scrollScript = `(y) => { window.scrollTo(0, y); }`
