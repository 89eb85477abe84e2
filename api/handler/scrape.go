package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/use-agent/trendscraper/config"
	"github.com/use-agent/trendscraper/models"
	"github.com/use-agent/trendscraper/scraper"
	"github.com/use-agent/trendscraper/webhook"
)

// TrendScraper runs one browser scrape cycle. *scraper.Scraper implements it.
type TrendScraper interface {
	Scrape(ctx context.Context, creds models.Credentials) (*scraper.Result, error)
	Stats() models.SessionStats
}

// Scrape returns a handler for POST /api/v1/scrape.
//
// Orchestration flow:
//  1. Scraper.Scrape → extracted trends       (records scrape_ms)
//  2. Build the five-slot record, stamp the requester IP.
//  3. Repository.Save                         (records persist_ms)
//  4. Fire the webhook if configured, return 200.
//
// The request carries no payload. Every call runs a fresh cycle.
func Scrape(sc TrendScraper, repo Saver, creds models.Credentials, hook config.WebhookConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Scrape ───────────────────────────────────────────────
		scrapeStart := time.Now()
		result, err := sc.Scrape(c.Request.Context(), creds)
		scrapeMs := time.Since(scrapeStart).Milliseconds()

		if err != nil {
			respondError(c, err, models.TimingInfo{
				TotalMs:  time.Since(totalStart).Milliseconds(),
				ScrapeMs: scrapeMs,
			})
			return
		}

		// ── 2. Build record ─────────────────────────────────────────
		record := models.NewTrendRecord(uuid.NewString(), result.Trends, result.CapturedAt)
		if ip := c.ClientIP(); ip != "" {
			record.IPAddress = &ip
		}

		// ── 3. Persist ──────────────────────────────────────────────
		persistStart := time.Now()
		err = repo.Save(c.Request.Context(), record)
		persistMs := time.Since(persistStart).Milliseconds()

		timing := models.TimingInfo{
			TotalMs:   time.Since(totalStart).Milliseconds(),
			ScrapeMs:  scrapeMs,
			PersistMs: persistMs,
		}
		if err != nil {
			slog.Error("trend record not persisted", "run_id", result.RunID, "error", err)
			respondError(c, models.NewScrapeError(models.ErrCodePersistence, "failed to persist trend record", err), timing)
			return
		}

		slog.Info("trend record persisted", "run_id", result.RunID, "record_id", record.ID, "trends", len(record.Trends()))

		// ── 4. Webhook + respond ────────────────────────────────────
		if hook.URL != "" {
			webhook.DeliverAsync(hook.URL, hook.Secret, &webhook.Event{
				Type:      webhook.EventTrendsScraped,
				RecordID:  record.ID,
				Timestamp: time.Now().Unix(),
				Data:      record,
			})
		}

		c.JSON(http.StatusOK, models.ScrapeResponse{
			Success: true,
			Record:  record,
			Timing:  timing,
		})
	}
}

// respondError maps a ScrapeError to the correct HTTP status code and writes
// a structured JSON error response.
func respondError(c *gin.Context, err error, timing models.TimingInfo) {
	var scrapeErr *models.ScrapeError
	if !errors.As(err, &scrapeErr) {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}

	c.JSON(mapErrorToStatus(scrapeErr), models.ScrapeResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
		Timing:  timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeLoginTimeout, models.ErrCodeExtractTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeSession:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeNavigation, models.ErrCodeLoginFailed, models.ErrCodeExtractEmpty, models.ErrCodeExtractFailed:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
