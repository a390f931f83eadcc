package inline

import (
	"bytes"
	"fmt"
	"html/template"
	"sync"

	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
)

// bannerRenderer converts banner Markdown to HTML. Raw HTML in the input is
// escaped because WithUnsafe is not set.
var bannerRenderer = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// Banner is the page-level dismissible notice for actions that do not belong
// to a single cell.
type Banner struct {
	mu      sync.Mutex
	kind    Kind
	message string
	shown   bool
}

// Show replaces the current banner.
func (b *Banner) Show(kind Kind, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kind, b.message, b.shown = kind, message, true
}

// Dismiss hides the banner.
func (b *Banner) Dismiss() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.kind, b.message, b.shown = "", "", false
}

// Current returns the banner content, if any.
func (b *Banner) Current() (Kind, string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.kind, b.message, b.shown
}

// Render returns the banner markup, or nothing when dismissed.
func (b *Banner) Render() template.HTML {
	kind, msg, ok := b.Current()
	if !ok {
		return ""
	}
	var buf bytes.Buffer
	body := template.HTMLEscapeString(msg)
	if err := bannerRenderer.Convert([]byte(msg), &buf); err == nil {
		body = buf.String()
	}
	return template.HTML(fmt.Sprintf(
		`<div class="notice notice-%s is-dismissible" role="alert">%s<button type="button" class="notice-dismiss" data-action="dismiss-banner">&times;</button></div>`,
		kind, body,
	))
}
