package command

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hazyhaar/adprobe/probe/internal/urlcheck"
)

// Visit navigates to URL and sleeps so the page can start its own scripts.
// It is the first command of every sequence.
type Visit struct {
	URL   string
	Sleep time.Duration
}

func (Visit) Name() string { return "visit" }

func (c Visit) Execute(ctx context.Context, env *Env) error {
	if err := urlcheck.Navigable(c.URL); err != nil {
		return fmt.Errorf("command: visit: %w", err)
	}
	if err := env.Session.Navigate(ctx, c.URL); err != nil {
		return fmt.Errorf("command: visit %s: %w", c.URL, err)
	}
	env.log().Info("command: visited", "url", c.URL)
	return sleep(ctx, c.Sleep)
}

// SaveScreenshot writes a viewport screenshot of the current page to
// <data_dir>/screenshots/<visit_id>[-<suffix>].png.
type SaveScreenshot struct {
	Suffix   string
	FullPage bool
}

func (SaveScreenshot) Name() string { return "save_screenshot" }

func (c SaveScreenshot) Execute(ctx context.Context, env *Env) error {
	png, err := env.Session.Screenshot(ctx, c.FullPage)
	if err != nil {
		return fmt.Errorf("command: %s: %w", c.Name(), err)
	}

	name := safeName(env.VisitID)
	if c.Suffix != "" {
		name += "-" + safeName(c.Suffix)
	}
	dir := filepath.Join(env.Params.DataDir, ScreenshotsDir)
	path := filepath.Join(dir, name+".png")
	if err := writeArtifact(dir, path, png); err != nil {
		return fmt.Errorf("command: %s: %w", c.Name(), err)
	}
	env.log().Info("command: saved page screenshot", "path", path)
	return nil
}
