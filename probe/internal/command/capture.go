package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/adprobe/probe/internal/docconv"
)

// ErrArtifactIO marks filesystem failures while writing an artifact.
var ErrArtifactIO = errors.New("artifact i/o")

// Artifact directories under Params.DataDir.
const (
	AdsDir         = "ads"
	PagesDir       = "pages"
	ScreenshotsDir = "screenshots"
)

// capture writes the artifact for a target from the current page state:
// a viewport screenshot for slots, a Markdown conversion for links.
func capture(ctx context.Context, env *Env, t Target) (Artifact, error) {
	switch t := t.(type) {
	case SlotTarget:
		return captureScreenshot(ctx, env, t)
	case LinkTarget:
		return captureDocument(ctx, env, t)
	default:
		return Artifact{}, fmt.Errorf("command: unsupported target %T", t)
	}
}

func captureScreenshot(ctx context.Context, env *Env, t SlotTarget) (Artifact, error) {
	png, err := env.Session.Screenshot(ctx, false)
	if err != nil {
		return Artifact{}, fmt.Errorf("screenshot slot %q: %w", t.SlotID, err)
	}

	dir := filepath.Join(env.Params.DataDir, AdsDir)
	path := filepath.Join(dir, ScreenshotName(t.SlotID))
	if err := writeArtifact(dir, path, png); err != nil {
		return Artifact{}, err
	}
	env.log().Info("command: saved screenshot", "slot", t.SlotID, "path", path)
	return Artifact{Kind: ArtifactScreenshot, Path: path}, nil
}

// captureDocument converts the current page to Markdown. The file is named
// after the target's host, so links on the same host share one file and the
// last one captured wins.
func captureDocument(ctx context.Context, env *Env, t LinkTarget) (Artifact, error) {
	name, err := docconv.FileName(t.Href)
	if err != nil {
		return Artifact{}, err
	}

	pageURL, err := env.Session.URL(ctx)
	if err != nil {
		return Artifact{}, fmt.Errorf("current url: %w", err)
	}
	html, err := env.Session.HTML(ctx)
	if err != nil {
		return Artifact{}, fmt.Errorf("page html %s: %w", pageURL, err)
	}
	md, err := env.converter().Convert(html, pageURL)
	if err != nil {
		return Artifact{}, err
	}

	dir := filepath.Join(env.Params.DataDir, PagesDir)
	path := filepath.Join(dir, name)
	if err := writeArtifact(dir, path, []byte(md)); err != nil {
		return Artifact{}, err
	}
	env.log().Info("command: saved document", "href", t.Href, "path", path, "size", len(md))
	return Artifact{Kind: ArtifactDocument, Path: path}, nil
}

// ScreenshotName returns "screenshot_<slotID>.png" with every rune that is
// unsafe in a file name replaced by '_'.
func ScreenshotName(slotID string) string {
	return "screenshot_" + safeName(slotID) + ".png"
}

func safeName(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, s)
}

// writeArtifact creates dir on demand and writes data, truncating any
// previous artifact at path.
func writeArtifact(dir, path string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: mkdir %s: %w", ErrArtifactIO, dir, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrArtifactIO, path, err)
	}
	return nil
}
