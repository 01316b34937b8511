package handler

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/iwsa/antidetect"
	"github.com/use-agent/iwsa/executor"
	"github.com/use-agent/iwsa/models"
	"github.com/use-agent/iwsa/orchestrator"
	"github.com/use-agent/iwsa/pipeline"
	"github.com/use-agent/iwsa/webhook"
)

// Agent returns a handler for POST /api/v1/agent/scrape: the full C1→C2→C3
// flow. It fetches the target page once for strategy generation, asks the
// orchestrator for a ScrapingStrategy, hands that strategy to the executor
// to walk pagination and collect rows, then runs the rows through the
// pipeline's clean/validate/enrich/export chain.
func Agent(orch *orchestrator.Orchestrator, exec *executor.Executor, pipe *pipeline.Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AgentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.AgentResponse{
				Success: false,
				Error:   &models.ErrorDetail{Code: models.ErrCodeInvalidInput, Message: err.Error()},
			})
			return
		}
		req.Defaults()

		ctx := c.Request.Context()

		// ── 1. Initial fetch for strategy generation ───────────────────────────
		rawHTML, err := exec.FetchSeedHTML(ctx, req.URL)
		if err != nil {
			respondAgentError(c, err)
			return
		}

		// ── 2. Generate strategy (C1) ───────────────────────────────────
		strategy, err := orch.GenerateStrategy(ctx, rawHTML, req.URL, req.Intent, req.Fields)
		if err != nil {
			respondAgentError(c, err)
			return
		}
		if !strategy.Success || !strategy.Valid() {
			c.JSON(http.StatusUnprocessableEntity, models.AgentResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeStrategyParse,
					Message: strategy.FailureReason,
				},
			})
			return
		}

		// ── 3. Execute strategy (C2) ────────────────────────────────────
		profile := antidetect.Profile(req.Profile)
		site := executor.Site{URL: req.URL}
		requirements := executor.Requirements{Fields: req.Fields, Filters: req.Filters}

		extraction, err := exec.Scrape(ctx, site, strategy, requirements, profile)
		if err != nil {
			respondAgentError(c, err)
			return
		}
		if !extraction.Success {
			c.JSON(http.StatusOK, models.AgentResponse{
				Success: false,
				Strategy: agentStrategySummary(strategy),
				Errors:   extraction.Errors,
				Error:    &models.ErrorDetail{Code: models.ErrCodeDetectionPositive, Message: extraction.FailureReason},
			})
			return
		}

		// ── 4. Pipeline: clean, validate, enrich, export (C3) ───────────
		rows := make([]pipeline.Row, len(extraction.Rows))
		for i, r := range extraction.Rows {
			rows[i] = pipeline.Row(r)
		}

		meta := pipeline.Meta{SourceURL: req.URL, SourceDomain: siteDomain(req.URL)}
		result := pipe.ProcessAndExport(ctx, rows, req.Formats, meta)

		resp := models.AgentResponse{
			Success:        result.Success,
			Strategy:       agentStrategySummary(strategy),
			RowsExtracted:  result.TotalOutputRecords,
			PagesProcessed: extraction.PagesProcessed,
			Exports:        agentExportSummaries(result.ExportResults),
			Errors:         extraction.Errors,
		}

		if req.WebhookURL != "" {
			eventType := "agent.completed"
			if !result.Success {
				eventType = "agent.failed"
			}
			webhook.DeliverAsync(req.WebhookURL, req.WebhookSecret, &webhook.Event{
				Type:      eventType,
				JobID:     meta.SourceDomain,
				Timestamp: time.Now().Unix(),
				Data:      resp,
			})
		}

		c.JSON(http.StatusOK, resp)
	}
}

func agentStrategySummary(s orchestrator.ScrapingStrategy) models.AgentStrategySummary {
	return models.AgentStrategySummary{
		Selectors:  s.Selectors,
		Pagination: string(s.Pagination.Kind),
		Confidence: s.Confidence,
		Backend:    s.Provenance.BackendName,
	}
}

func agentExportSummaries(results []pipeline.ExportResult) []models.AgentExportSummary {
	summaries := make([]models.AgentExportSummary, len(results))
	for i, r := range results {
		summaries[i] = models.AgentExportSummary{
			Format:          r.Format,
			Success:         r.Success,
			Destination:     r.Destination,
			RecordsExported: r.RecordsExported,
			Error:           r.Error,
		}
	}
	return summaries
}

func siteDomain(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return u.Host
	}
	return ""
}

func respondAgentError(c *gin.Context, err error) {
	scrapeErr, ok := err.(*models.ScrapeError)
	if !ok {
		scrapeErr = models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
	}
	c.JSON(mapAgentErrorToStatus(scrapeErr), models.AgentResponse{
		Success: false,
		Error:   scrapeErr.ToDetail(),
	})
}

func mapAgentErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout, models.ErrCodeNavigationTimeout:
		return http.StatusGatewayTimeout
	case models.ErrCodeNavigation:
		return http.StatusBadGateway
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case models.ErrCodeRateLimited, models.ErrCodeLLMRateLimited:
		return http.StatusTooManyRequests
	case models.ErrCodeUnauthorized, models.ErrCodeLLMAuthFailure:
		return http.StatusUnauthorized
	case models.ErrCodeCircuitOpen, models.ErrCodeBackendUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
