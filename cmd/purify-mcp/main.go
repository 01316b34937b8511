package main

import (
	"bytes"
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

// agentRequest mirrors the /api/v1/agent/scrape request model.
type agentRequest struct {
	URL     string            `json:"url"`
	Intent  string            `json:"intent"`
	Fields  []string          `json:"fields,omitempty"`
	Filters map[string]string `json:"filters,omitempty"`
	Formats []string          `json:"formats,omitempty"`
	Profile string            `json:"profile,omitempty"`
}

// agentResponse mirrors the /api/v1/agent/scrape response model.
type agentResponse struct {
	Success  bool `json:"success"`
	Strategy struct {
		Selectors  []string `json:"selectors"`
		Pagination string   `json:"pagination"`
		Confidence float64  `json:"confidence"`
		Backend    string   `json:"backend"`
	} `json:"strategy"`
	RowsExtracted  int `json:"rows_extracted"`
	PagesProcessed int `json:"pages_processed"`
	Exports        []struct {
		Format          string `json:"format"`
		Success         bool   `json:"success"`
		Destination     string `json:"destination,omitempty"`
		RecordsExported int    `json:"records_exported"`
		Error           string `json:"error,omitempty"`
	} `json:"exports"`
	Errors []string `json:"errors,omitempty"`
	Error  *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("IWSA_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("IWSA_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "IWSA_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"iwsa",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	agentScrapeTool := mcp.NewTool("agent_scrape",
		mcp.WithDescription("Run the autonomous agent: generate a scraping strategy from a plain-language intent, execute it across pagination, and export the resulting rows. This is the full orchestrator→executor→pipeline flow in one call."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The target page to scrape"),
		),
		mcp.WithString("intent",
			mcp.Required(),
			mcp.Description("Plain-language description of what to extract, e.g. 'product name, price, and rating for every listing'"),
		),
		mcp.WithArray("fields",
			mcp.Description("Optional list of output field names to populate"),
		),
		mcp.WithArray("formats",
			mcp.Description("Export destinations: any of 'csv', 'json', 'excel', 'spreadsheet' (default: ['json'])"),
		),
		mcp.WithString("profile",
			mcp.Description("Anti-detection posture: 'conservative', 'balanced' (default), 'aggressive', or 'stealth'"),
			mcp.Enum("conservative", "balanced", "aggressive", "stealth"),
		),
	)
	s.AddTool(agentScrapeTool, handleAgentScrape(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the iwsa API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func handleAgentScrape(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 300 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		intent, err := request.RequireString("intent")
		if err != nil {
			return mcp.NewToolResultError("intent is required"), nil
		}

		reqBody := agentRequest{
			URL:     url,
			Intent:  intent,
			Profile: request.GetString("profile", ""),
		}
		if fields, err := request.RequireStringSlice("fields"); err == nil {
			reqBody.Fields = fields
		}
		if formats, err := request.RequireStringSlice("formats"); err == nil {
			reqBody.Formats = formats
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/agent/scrape", reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("agent request failed: %v", err)), nil
		}

		var agentResp agentResponse
		if err := json.Unmarshal(respBody, &agentResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse agent response: %v", err)), nil
		}

		if !agentResp.Success {
			errMsg := "agent run failed"
			if agentResp.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", agentResp.Error.Code, agentResp.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("Strategy: %d selector(s), pagination=%s, confidence=%.2f, backend=%s\n",
			len(agentResp.Strategy.Selectors), agentResp.Strategy.Pagination, agentResp.Strategy.Confidence, agentResp.Strategy.Backend))
		sb.WriteString(fmt.Sprintf("Extracted %d rows across %d page(s)\n\n", agentResp.RowsExtracted, agentResp.PagesProcessed))
		for _, exp := range agentResp.Exports {
			if exp.Success {
				sb.WriteString(fmt.Sprintf("- %s: %d records -> %s\n", exp.Format, exp.RecordsExported, exp.Destination))
			} else {
				sb.WriteString(fmt.Sprintf("- %s: FAILED (%s)\n", exp.Format, exp.Error))
			}
		}
		if len(agentResp.Errors) > 0 {
			sb.WriteString(fmt.Sprintf("\nNon-fatal errors:\n%s\n", strings.Join(agentResp.Errors, "\n")))
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}
