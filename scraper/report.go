package scraper

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/use-agent/trendscraper/models"
)

// captureTimeout bounds the page markup capture after a failure.
const captureTimeout = 5 * time.Second

// Reporter captures the page markup when a guarded sequence fails. The
// markup goes to the log only; the original error is returned untouched.
type Reporter struct {
	logger  *slog.Logger
	timeout time.Duration
}

// NewReporter creates a Reporter logging to logger (slog.Default when nil).
func NewReporter(logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{logger: logger, timeout: captureTimeout}
}

// Guard runs fn and, if it fails, logs a diagnostic capture of sess before
// returning fn's error.
func (r *Reporter) Guard(ctx context.Context, sess Session, fn func(context.Context) error) error {
	err := fn(ctx)
	if err == nil {
		return nil
	}
	r.capture(ctx, sess, err)
	return err
}

// capture runs on a detached context because the failure is often the
// caller's deadline expiring.
func (r *Reporter) capture(ctx context.Context, sess Session, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	attrs := []any{"code", models.CodeOf(cause), "error", cause}
	var se *models.ScrapeError
	if errors.As(cause, &se) && se.Step != "" {
		attrs = append(attrs, "step", string(se.Step))
	}

	markup, err := sess.HTML(ctx)
	if err != nil {
		r.logger.Error("scrape failed, page capture unavailable",
			append(attrs, "capture_error", err)...)
		return
	}

	d := summarize(markup)
	r.logger.Error("scrape failed",
		append(attrs,
			"page_title", d.Title,
			"page_alerts", d.Alerts,
			"page_bytes", len(markup),
			"page_source", markup,
		)...)
}

// pageSummary is the part of a captured page worth reading first.
type pageSummary struct {
	Title  string
	Alerts []string
}

func summarize(markup string) pageSummary {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return pageSummary{}
	}

	s := pageSummary{Title: strings.TrimSpace(doc.Find("title").First().Text())}
	doc.Find(`[role="alert"]`).Each(func(_ int, sel *goquery.Selection) {
		if txt := strings.TrimSpace(sel.Text()); txt != "" {
			s.Alerts = append(s.Alerts, txt)
		}
	})
	return s
}
