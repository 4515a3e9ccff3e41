package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/hazyhaar/adprobe/probe/internal/command"
)

// Session is one browser tab driven by the commands of a visit. It
// implements command.Session on top of a Rod page.
type Session struct {
	page       *rod.Page
	router     *rod.HijackRouter
	navTimeout time.Duration
	logger     *slog.Logger
}

var _ command.Session = (*Session)(nil)

func (s *Session) URL(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", fmt.Errorf("browser: page info: %w", err)
	}
	return info.URL, nil
}

// Navigate loads url. A load event that does not fire within the
// navigation timeout is logged, not returned: the document is usable.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.navTimeout)
	defer cancel()

	p := s.page.Context(navCtx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("browser: wait load %s: %w", url, ctx.Err())
		}
		s.logger.Warn("browser: wait load timeout", "url", url, "error", err)
	}
	return nil
}

func (s *Session) Eval(ctx context.Context, js string, args ...any) (json.RawMessage, error) {
	res, err := s.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return nil, fmt.Errorf("browser: eval: %w", err)
	}
	return json.RawMessage(res.Value.JSON("", "")), nil
}

func (s *Session) Elements(ctx context.Context, selector string) ([]command.Element, error) {
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("browser: elements %q: %w", selector, err)
	}
	out := make([]command.Element, len(els))
	for i, el := range els {
		out[i] = &element{el: el}
	}
	return out, nil
}

const scriptByID = `(id) => document.getElementById(id)`

// ElementByID looks the id up with getElementById so ids that are not
// valid CSS identifiers (ad unit paths, leading digits) still resolve.
func (s *Session) ElementByID(ctx context.Context, id string) (command.Element, error) {
	el, err := s.page.Context(ctx).Sleeper(rod.NotFoundSleeper).ElementByJS(rod.Eval(scriptByID, id))
	if err != nil {
		return nil, notFound("#"+id, err)
	}
	return &element{el: el}, nil
}

func (s *Session) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", fmt.Errorf("browser: html: %w", err)
	}
	return html, nil
}

func (s *Session) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	png, err := s.page.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("browser: screenshot: %w", err)
	}
	return png, nil
}

// ClickAt dispatches move, press and release events at (x, y) through CDP,
// so the click lands on whatever is topmost there, frames included.
func (s *Session) ClickAt(ctx context.Context, x, y float64) error {
	p := s.page.Context(ctx)
	steps := []struct {
		typ   proto.InputDispatchMouseEventType
		count int
	}{
		{proto.InputDispatchMouseEventTypeMouseMoved, 0},
		{proto.InputDispatchMouseEventTypeMousePressed, 1},
		{proto.InputDispatchMouseEventTypeMouseReleased, 1},
	}
	for _, st := range steps {
		err := proto.InputDispatchMouseEvent{
			Type:       st.typ,
			X:          x,
			Y:          y,
			Button:     proto.InputMouseButtonLeft,
			ClickCount: st.count,
		}.Call(p)
		if err != nil {
			return fmt.Errorf("browser: mouse %s at (%.0f,%.0f): %w", st.typ, x, y, err)
		}
	}
	return nil
}

// Close stops request interception and closes the tab.
func (s *Session) Close() error {
	if s.router != nil {
		if err := s.router.Stop(); err != nil {
			s.logger.Debug("browser: stop hijack router", "error", err)
		}
	}
	return s.page.Close()
}

type element struct {
	el *rod.Element
}

func (e *element) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

// Attribute reads the raw attribute first: a missing or blank attribute is
// absent even though its DOM property may resolve (href="" resolves to the
// document URL). A present attribute is returned in its resolved property
// form, so href comes back absolute.
func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	el := e.el.Context(ctx)
	attr, err := el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	return resolveAttribute(attr, func() (string, error) {
		prop, err := el.Property(name)
		if err != nil {
			return "", err
		}
		if prop.Nil() {
			return "", nil
		}
		return prop.Str(), nil
	})
}

// resolveAttribute decides the value of an attribute whose raw content is
// raw; property is only consulted when raw is present and not blank.
func resolveAttribute(raw *string, property func() (string, error)) (string, bool, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return "", false, nil
	}
	v, err := property()
	if err != nil {
		return "", false, err
	}
	if v == "" {
		return *raw, true, nil
	}
	return v, true, nil
}

func (e *element) Element(ctx context.Context, selector string) (command.Element, error) {
	child, err := e.el.Context(ctx).Sleeper(rod.NotFoundSleeper).Element(selector)
	if err != nil {
		return nil, notFound(selector, err)
	}
	return &element{el: child}, nil
}

func (e *element) ScrollIntoView(ctx context.Context) error {
	return e.el.Context(ctx).ScrollIntoView()
}

func (e *element) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *element) Eval(ctx context.Context, js string, args ...any) (json.RawMessage, error) {
	res, err := e.el.Context(ctx).Eval(js, args...)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(res.Value.JSON("", "")), nil
}

func (e *element) Frame(ctx context.Context) (command.Frame, error) {
	p, err := e.el.Context(ctx).Frame()
	if err != nil {
		return nil, err
	}
	return &frame{page: p}, nil
}

// frame is an iframe document. Rod addresses it as its own page, so
// leaving it needs no driver call.
type frame struct {
	page *rod.Page
}

func (f *frame) Element(ctx context.Context, selector string) (command.Element, error) {
	el, err := f.page.Context(ctx).Sleeper(rod.NotFoundSleeper).Element(selector)
	if err != nil {
		return nil, notFound(selector, err)
	}
	return &element{el: el}, nil
}

func (f *frame) Leave() error { return nil }

func notFound(what string, err error) error {
	var nf *rod.ElementNotFoundError
	if errors.As(err, &nf) {
		return fmt.Errorf("%s: %w", what, command.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}
