package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// trendRecord mirrors the trendscraper API record model.
type trendRecord struct {
	ID        string    `json:"id"`
	Trend1    *string   `json:"trend_1"`
	Trend2    *string   `json:"trend_2"`
	Trend3    *string   `json:"trend_3"`
	Trend4    *string   `json:"trend_4"`
	Trend5    *string   `json:"trend_5"`
	Timestamp time.Time `json:"timestamp"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Step    string `json:"step"`
}

func (e *apiError) String() string {
	if e.Step != "" {
		return fmt.Sprintf("[%s at %s] %s", e.Code, e.Step, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// scrapeResponse mirrors the trendscraper scrape response.
type scrapeResponse struct {
	Success bool         `json:"success"`
	Record  *trendRecord `json:"record"`
	Error   *apiError    `json:"error"`
}

// listResponse mirrors the trendscraper list response.
type listResponse struct {
	Success bool           `json:"success"`
	Records []*trendRecord `json:"records"`
	Error   *apiError      `json:"error"`
}

func main() {
	apiURL := os.Getenv("TRENDS_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:5000"
	}
	apiKey := os.Getenv("TRENDS_API_KEY")

	s := server.NewMCPServer(
		"trendscraper",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	scrapeTool := mcp.NewTool("scrape_trends",
		mcp.WithDescription("Log in with a real browser, read the current trending topics and store them. Takes up to a few minutes."),
	)
	s.AddTool(scrapeTool, handleScrapeTrends(apiURL, apiKey))

	latestTool := mcp.NewTool("latest_trends",
		mcp.WithDescription("List the most recently stored trending-topic snapshots, newest first."),
		mcp.WithNumber("limit",
			mcp.Description("Number of snapshots to return (default: 5, max: 100)"),
		),
	)
	s.AddTool(latestTool, handleLatestTrends(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiDo sends a request to the trendscraper API and returns the response body.
func apiDo(ctx context.Context, client *http.Client, method, apiURL, apiKey, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, apiURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleScrapeTrends(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		body, err := apiDo(ctx, client, http.MethodPost, apiURL, apiKey, "/api/v1/scrape")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp scrapeResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			errMsg := "scrape failed"
			if resp.Error != nil {
				errMsg = resp.Error.String()
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var sb strings.Builder
		if resp.Record != nil {
			writeRecord(&sb, resp.Record)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleLatestTrends(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := request.GetInt("limit", 5)
		if limit <= 0 || limit > 100 {
			return mcp.NewToolResultError("limit must be between 1 and 100"), nil
		}

		body, err := apiDo(ctx, client, http.MethodGet, apiURL, apiKey, fmt.Sprintf("/api/v1/trends?limit=%d", limit))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp listResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			errMsg := "listing trends failed"
			if resp.Error != nil {
				errMsg = resp.Error.String()
			}
			return mcp.NewToolResultError(errMsg), nil
		}
		if len(resp.Records) == 0 {
			return mcp.NewToolResultText("No trend snapshots stored yet."), nil
		}

		var sb strings.Builder
		for i, rec := range resp.Records {
			if i > 0 {
				sb.WriteString("\n")
			}
			writeRecord(&sb, rec)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func writeRecord(sb *strings.Builder, rec *trendRecord) {
	sb.WriteString(fmt.Sprintf("Snapshot %s (%s)\n", rec.ID, rec.Timestamp.Format(time.RFC3339)))
	for i, t := range []*string{rec.Trend1, rec.Trend2, rec.Trend3, rec.Trend4, rec.Trend5} {
		if t != nil {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, *t))
		}
	}
}
