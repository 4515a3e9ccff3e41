package command

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrNotFound is returned by element lookups that match nothing.
var ErrNotFound = errors.New("element not found")

// Session is the browser capability commands drive. Every call blocks
// until the driver answers; a cancelled context or a closed browser makes
// it fail.
//
// Scripts passed to Eval are JS function expressions ("() => ...",
// "(id) => ...") evaluated in the page; the return value comes back as JSON.
type Session interface {
	// URL returns the URL the session is currently positioned at.
	URL(ctx context.Context) (string, error)
	// Navigate loads url and returns once the load event fired.
	Navigate(ctx context.Context, url string) error
	Eval(ctx context.Context, js string, args ...any) (json.RawMessage, error)
	// Elements returns all elements matching a CSS selector, possibly none.
	Elements(ctx context.Context, selector string) ([]Element, error)
	// ElementByID returns the element with the given id attribute, or ErrNotFound.
	ElementByID(ctx context.Context, id string) (Element, error)
	// HTML returns the serialised document.
	HTML(ctx context.Context) (string, error)
	// Screenshot captures the viewport (or the full page) as PNG.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	// ClickAt dispatches a left mouse click at viewport coordinates.
	ClickAt(ctx context.Context, x, y float64) error
}

// Element is a handle on a live DOM node.
type Element interface {
	// Text returns the rendered (visible) text of the element.
	Text(ctx context.Context) (string, error)
	// Attribute returns the resolved value of an attribute (href comes back
	// absolute). ok is false when the raw attribute is absent or blank.
	Attribute(ctx context.Context, name string) (value string, ok bool, err error)
	// Element returns the first descendant matching selector, or ErrNotFound.
	Element(ctx context.Context, selector string) (Element, error)
	ScrollIntoView(ctx context.Context) error
	Click(ctx context.Context) error
	// Eval runs js with `this` bound to the element.
	Eval(ctx context.Context, js string, args ...any) (json.RawMessage, error)
	// Frame enters the document of an <iframe> element.
	Frame(ctx context.Context) (Frame, error)
}

// Frame is the document of a nested browsing context entered via
// Element.Frame. Leave returns focus to the parent document.
type Frame interface {
	Element(ctx context.Context, selector string) (Element, error)
	Leave() error
}
