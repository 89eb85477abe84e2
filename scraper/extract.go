package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/use-agent/trendscraper/models"
)

// Extract waits up to timeout for at least one element matching loc, then
// returns the visible text of the first limit matches in DOM order. limit is
// capped at models.MaxExtractedTrends. A short page yields a short slice; a
// page with no matches is an error.
func Extract(ctx context.Context, sess Session, loc Locator, limit int, timeout time.Duration) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := sess.Find(ctx, loc); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, models.NewScrapeError(
				models.ErrCodeExtractTimeout,
				fmt.Sprintf("%s did not appear within %s", loc, timeout),
				err,
			)
		}
		return nil, models.NewScrapeError(models.ErrCodeExtractFailed, "waiting for trends failed", err)
	}

	els, err := sess.FindAll(ctx, loc)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeExtractFailed, "listing trends failed", err)
	}
	if len(els) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeExtractEmpty, "no trends on page", nil)
	}

	if limit <= 0 || limit > models.MaxExtractedTrends {
		limit = models.MaxExtractedTrends
	}
	n := min(limit, len(els))
	trends := make([]string, 0, n)
	for i, el := range els[:n] {
		txt, err := el.Text()
		if err != nil {
			return nil, models.NewScrapeError(
				models.ErrCodeExtractFailed,
				fmt.Sprintf("reading trend %d failed", i),
				err,
			)
		}
		trends = append(trends, strings.TrimSpace(txt))
	}
	return trends, nil
}
