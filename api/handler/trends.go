package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/trendscraper/models"
	"github.com/use-agent/trendscraper/store"
)

// Saver is the write half of store.Repository.
type Saver interface {
	Save(ctx context.Context, r *models.TrendRecord) error
}

// Reader is the read half of store.Repository.
type Reader interface {
	Get(ctx context.Context, id string) (*models.TrendRecord, error)
	Latest(ctx context.Context, limit int) ([]*models.TrendRecord, error)
}

// ListTrends returns a handler for GET /api/v1/trends?limit=N.
func ListTrends(repo Reader) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 10
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 || n > store.MaxListLimit {
				c.JSON(http.StatusBadRequest, models.TrendListResponse{
					Success: false,
					Error: &models.ErrorDetail{
						Code:    models.ErrCodeInvalidInput,
						Message: "limit must be an integer between 1 and " + strconv.Itoa(store.MaxListLimit),
					},
				})
				return
			}
			limit = n
		}

		records, err := repo.Latest(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.TrendListResponse{
				Success: false,
				Error:   models.NewScrapeError(models.ErrCodePersistence, "failed to list trend records", err).ToDetail(),
			})
			return
		}

		c.JSON(http.StatusOK, models.TrendListResponse{
			Success: true,
			Records: records,
		})
	}
}

// GetTrend returns a handler for GET /api/v1/trends/:id.
func GetTrend(repo Reader) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		record, err := repo.Get(c.Request.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, models.TrendResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeNotFound,
					Message: "trend record not found: " + id,
				},
			})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.TrendResponse{
				Success: false,
				Error:   models.NewScrapeError(models.ErrCodePersistence, "failed to read trend record", err).ToDetail(),
			})
			return
		}

		c.JSON(http.StatusOK, models.TrendResponse{
			Success: true,
			Record:  record,
		})
	}
}
