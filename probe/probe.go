// CLAUDE:SUMMARY Runs each configured site's command sequence in one browser, sequentially, and reports per-visit results to the sinks.
// Package probe drives automated site visits that locate ad slots and
// privacy disclosure links, interact with them, capture artifacts and
// record Prebid.js bids.
//
// A Runner owns one browser and visits sites one after the other. Each
// visit gets a fresh tab and runs its command sequence until the end or
// the first fatal error; the outcome is logged and emitted as a
// visit_result message.
package probe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/adprobe/idgen"
	"github.com/hazyhaar/adprobe/probe/internal/browser"
	"github.com/hazyhaar/adprobe/probe/internal/command"
	"github.com/hazyhaar/adprobe/probe/internal/sink"
	"github.com/hazyhaar/adprobe/probe/message"
)

// session is a browser tab owned by one visit.
type session interface {
	command.Session
	Close() error
}

// sessionOpener is the browser side of the Runner.
type sessionOpener interface {
	Start(ctx context.Context) error
	OpenSession(ctx context.Context) (session, error)
	Close() error
}

// managerOpener adapts *browser.Manager to sessionOpener.
type managerOpener struct{ *browser.Manager }

func (m managerOpener) OpenSession(ctx context.Context) (session, error) {
	s, err := m.Manager.OpenSession(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Runner visits the configured sites.
type Runner struct {
	cfg      *Config
	browser  sessionOpener
	sinkR    *sink.Router
	settle   command.Settle
	strategy command.Strategy
	logger   *slog.Logger
}

// New creates a Runner from configuration. Messages are fanned out to all
// sinks.
func New(cfg *Config, logger *slog.Logger, sinks ...Sink) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	mode, err := browser.ParseMode(cfg.Browser.Stealth)
	if err != nil {
		return nil, err
	}
	mgr := browser.NewManager(browser.Config{
		RemoteURL:         cfg.Browser.Remote,
		ResourceBlocking:  cfg.Browser.ResourceBlocking,
		Mode:              mode,
		XvfbDisplay:       cfg.Browser.XvfbDisplay,
		WindowWidth:       cfg.Browser.WindowWidth,
		WindowHeight:      cfg.Browser.WindowHeight,
		NavigationTimeout: cfg.Browser.NavigationTimeout,
		Logger:            logger,
	})
	return newRunner(cfg, managerOpener{mgr}, logger, sinks...)
}

func newRunner(cfg *Config, b sessionOpener, logger *slog.Logger, sinks ...Sink) (*Runner, error) {
	strategy, err := command.ParseStrategy(cfg.Interaction.Strategy)
	if err != nil {
		return nil, err
	}
	in := cfg.Interaction
	return &Runner{
		cfg:     cfg,
		browser: b,
		sinkR:   sink.NewRouter(logger, sinks...),
		settle: command.Settle{
			AuctionTimeout: in.AuctionTimeout,
			PollInterval:   in.PollInterval,
			ClickSettle:    in.ClickSettle,
			LinkSettle:     in.LinkSettle,
			BetweenTargets: in.BetweenTargets,
		},
		strategy: strategy,
		logger:   logger,
	}, nil
}

// Run starts the browser and visits every configured site in order. A
// failed visit does not stop the crawl; Run returns early only when the
// browser cannot start or ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.browser.Start(ctx); err != nil {
		return fmt.Errorf("probe: start browser: %w", err)
	}

	var ok, failed int
	for _, site := range r.cfg.Sites {
		if err := ctx.Err(); err != nil {
			return err
		}
		if r.RunSite(ctx, site) == nil {
			ok++
		} else {
			failed++
		}
	}
	r.logger.Info("probe: crawl finished", "sites", len(r.cfg.Sites), "succeeded", ok, "failed", failed)
	return ctx.Err()
}

// RunSite visits one site in a fresh tab and runs its command sequence.
// The returned error is the first fatal command error, already logged and
// reported as a visit_result message.
func (r *Runner) RunSite(ctx context.Context, site SiteConfig) error {
	visitID := idgen.Visit()
	log := r.logger.With("visit_id", visitID, "site", site.URL)

	cmds, err := BuildCommands(site, r.cfg.Interaction)
	if err != nil {
		r.finish(ctx, log, visitID, site.URL, err)
		return err
	}

	sess, err := r.browser.OpenSession(ctx)
	if err != nil {
		err = fmt.Errorf("probe: open session: %w", err)
		r.finish(ctx, log, visitID, site.URL, err)
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Debug("probe: close session", "error", err)
		}
	}()

	env := &command.Env{
		Session:  sess,
		Params:   command.Params{DataDir: r.cfg.DataDir},
		Sink:     r.sinkR,
		Logger:   log,
		Settle:   r.settle,
		Strategy: r.strategy,
		VisitID:  visitID,
		SiteURL:  site.URL,
	}
	err = runSequence(ctx, env, cmds)
	r.finish(ctx, log, visitID, site.URL, err)
	return err
}

// runSequence executes cmds in order and stops at the first fatal error.
func runSequence(ctx context.Context, env *command.Env, cmds []command.Command) error {
	for _, c := range cmds {
		start := time.Now()
		if err := c.Execute(ctx, env); err != nil {
			return fmt.Errorf("%s: %w", c.Name(), err)
		}
		env.Logger.Debug("probe: command done", "command", c.Name(), "elapsed", time.Since(start))
	}
	return nil
}

// finish logs the sequence result and emits the visit_result message.
func (r *Runner) finish(ctx context.Context, log *slog.Logger, visitID, siteURL string, err error) {
	res := message.VisitResult{Success: err == nil}
	if err != nil {
		res.Error = err.Error()
		log.Warn("probe: command sequence ran unsuccessfully", "error", err)
	} else {
		log.Info("probe: command sequence ran successfully")
	}

	msg := message.Message{
		ID:        idgen.Message(),
		Kind:      message.KindVisit,
		VisitID:   visitID,
		PageURL:   siteURL,
		Value:     res,
		Timestamp: time.Now().UnixMilli(),
	}
	// Report even when the visit was cancelled.
	if err := r.sinkR.Send(context.WithoutCancel(ctx), msg); err != nil {
		log.Warn("probe: emit visit result failed", "error", err)
	}
}

// Close shuts the browser down and closes every sink.
func (r *Runner) Close() error {
	berr := r.browser.Close()
	serr := r.sinkR.Close()
	if berr != nil {
		return berr
	}
	return serr
}
