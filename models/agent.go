package models

// AgentRequest is the payload for POST /api/v1/agent/scrape: generate a
// scraping strategy via the LLM orchestrator, execute it, and run the
// resulting rows through the cleaning/validation/enrichment/export pipeline.
type AgentRequest struct {
	// URL is the target page to scrape. Required.
	URL string `json:"url" binding:"required,url"`

	// Intent describes what the agent should extract in plain language.
	// Required — it drives strategy generation.
	Intent string `json:"intent" binding:"required"`

	// Fields optionally names the output fields the caller wants populated.
	Fields []string `json:"fields,omitempty"`

	// Filters maps a named filter (from the generated strategy) to the
	// value the executor should apply before extraction.
	Filters map[string]string `json:"filters,omitempty"`

	// Formats lists the export destinations to run after the pipeline
	// (any of "csv", "json", "excel", "spreadsheet"). Default: ["json"].
	Formats []string `json:"formats,omitempty"`

	// Profile selects the anti-detection posture: "conservative", "balanced",
	// "aggressive", or "stealth" (spec §4.6). Default: "balanced".
	Profile string `json:"profile,omitempty"`

	// WebhookURL, if set, receives an "agent.completed"/"agent.failed" event
	// once the run finishes. Delivery is fire-and-forget with retries.
	WebhookURL string `json:"webhook_url,omitempty" binding:"omitempty,url"`

	// WebhookSecret, if set, HMAC-SHA256-signs the webhook body.
	WebhookSecret string `json:"webhook_secret,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *AgentRequest) Defaults() {
	if len(r.Formats) == 0 {
		r.Formats = []string{"json"}
	}
	if r.Profile == "" {
		r.Profile = "balanced"
	}
}

// AgentResponse is the response for POST /api/v1/agent/scrape.
type AgentResponse struct {
	Success bool `json:"success"`

	// Strategy summarizes what the orchestrator decided to do.
	Strategy AgentStrategySummary `json:"strategy"`

	// RowsExtracted is the number of rows the executor produced.
	RowsExtracted int `json:"rows_extracted"`

	// PagesProcessed is how many pages the executor walked.
	PagesProcessed int `json:"pages_processed"`

	// Exports reports the outcome of each requested export format.
	Exports []AgentExportSummary `json:"exports"`

	// Errors is a bounded list of non-fatal issues encountered along the way.
	Errors []string `json:"errors,omitempty"`

	Error *ErrorDetail `json:"error,omitempty"`
}

// AgentStrategySummary is the client-facing view of an orchestrator strategy.
type AgentStrategySummary struct {
	Selectors  []string `json:"selectors"`
	Pagination string   `json:"pagination"`
	Confidence float64  `json:"confidence"`
	Backend    string   `json:"backend"`
}

// AgentExportSummary is the client-facing view of one ExportResult.
type AgentExportSummary struct {
	Format          string `json:"format"`
	Success         bool   `json:"success"`
	Destination     string `json:"destination,omitempty"`
	RecordsExported int    `json:"records_exported"`
	Error           string `json:"error,omitempty"`
}
