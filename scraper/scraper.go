package scraper

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/trendscraper/config"
	"github.com/use-agent/trendscraper/models"
	"golang.org/x/sync/semaphore"
)

// Scraper runs the single-shot pipeline: launch a browser, log in, read the
// trends, tear the browser down. It is safe for concurrent use; every call
// owns its own Session.
type Scraper struct {
	launcher Launcher
	locators Locators
	cfg      config.LoginConfig
	reporter *Reporter

	sessions    *semaphore.Weighted
	maxSessions int
	active      atomic.Int32
	launched    atomic.Int64
	released    atomic.Int64

	now func() time.Time
}

// New creates a Scraper. maxSessions caps concurrently live browsers.
func New(l Launcher, locs Locators, cfg config.LoginConfig, maxSessions int) *Scraper {
	if maxSessions <= 0 {
		maxSessions = 1
	}
	return &Scraper{
		launcher:    l,
		locators:    locs,
		cfg:         cfg,
		reporter:    NewReporter(nil),
		sessions:    semaphore.NewWeighted(int64(maxSessions)),
		maxSessions: maxSessions,
		now:         time.Now,
	}
}

// SetReporter replaces the failure reporter.
func (s *Scraper) SetReporter(r *Reporter) {
	s.reporter = r
}

// Stats returns a snapshot of session usage.
func (s *Scraper) Stats() models.SessionStats {
	return models.SessionStats{
		MaxSessions:    s.maxSessions,
		ActiveSessions: int(s.active.Load()),
		Launched:       s.launched.Load(),
		Released:       s.released.Load(),
	}
}

// Scrape performs one full run with the given credentials.
//
// Lifecycle:
//
//  1. Session slot   – wait for a free slot (bounded by ctx)
//  2. Launch         – spawn the browser; failure is a SessionError
//  3. DEFER: Close   – the browser is killed on every exit path
//  4. Navigate       – open the login page
//  5. Login          – four-stage credential flow
//  6. Extract        – read up to MaxTrends entries
//
// Steps 4-6 run under the Reporter, which logs the page markup on failure.
func (s *Scraper) Scrape(ctx context.Context, creds models.Credentials) (*Result, error) {
	runID := uuid.NewString()
	log := slog.With("run_id", runID)

	// ── 1. Session slot ─────────────────────────────────────────────
	if err := s.sessions.Acquire(ctx, 1); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeSession, "no browser session slot available", err)
	}
	defer s.sessions.Release(1)

	// ── 2. Launch ───────────────────────────────────────────────────
	sess, err := s.launcher.Launch(ctx)
	if err != nil {
		var se *models.ScrapeError
		if !errors.As(err, &se) {
			err = models.NewScrapeError(models.ErrCodeSession, "failed to start browser session", err)
		}
		log.Error("browser session failed to start", "error", err)
		return nil, err
	}
	s.launched.Add(1)
	s.active.Add(1)

	// ── 3. Guaranteed teardown ──────────────────────────────────────
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("browser close reported an error", "error", err)
		}
		s.active.Add(-1)
		s.released.Add(1)
	}()

	var trends []string
	err = s.reporter.Guard(ctx, sess, func(ctx context.Context) error {
		// ── 4. Navigate ─────────────────────────────────────────────
		navCtx := ctx
		if s.cfg.NavigationTimeout > 0 {
			var cancel context.CancelFunc
			navCtx, cancel = context.WithTimeout(ctx, s.cfg.NavigationTimeout)
			defer cancel()
		}
		if err := sess.Navigate(navCtx, s.cfg.LoginURL); err != nil {
			return models.NewScrapeError(models.ErrCodeNavigation, "failed to open login page", err)
		}

		// ── 5. Login ────────────────────────────────────────────────
		if err := Login(ctx, sess, s.locators, creds, LoginOptions{
			StepTimeout:           s.cfg.StepTimeout,
			SkipOptionalSecondary: s.cfg.SkipOptionalSecondary,
		}); err != nil {
			return err
		}
		log.Info("logged in")

		// ── 6. Extract ──────────────────────────────────────────────
		var err error
		trends, err = Extract(ctx, sess, s.locators.Trend, s.cfg.MaxTrends, s.cfg.StepTimeout)
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info("trends fetched", "count", len(trends))
	return &Result{RunID: runID, Trends: trends, CapturedAt: s.now()}, nil
}
