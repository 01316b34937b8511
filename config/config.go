package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server       ServerConfig
	Browser      BrowserConfig
	Auth         AuthConfig
	RateLimit    RateLimitConfig
	Log          LogConfig
	AdaptivePool AdaptivePoolConfig
	BrowserPool  BrowserPoolConfig
	LLM          LLMConfig
	Storage      StorageConfig
}

// LLMConfig names the preferred C1 backend, its shared call bounds, and the
// concrete construction parameters for each backend orchestrator.New can wire.
type LLMConfig struct {
	// PrimaryBackend names the backend (by its Name()) that the orchestrator
	// tries first among backends of equal priority.
	PrimaryBackend string

	// BackendTimeout is read from configuration; no backend call applies it
	// as a deadline.
	BackendTimeout time.Duration // default: 45s

	// RetryAttempts is the per-backend transient-error retry budget.
	RetryAttempts int // default: 3

	// MaxTokens and Temperature are read from configuration; the
	// orchestrator's requests carry their own fixed bounds (3000 or 2048
	// tokens, temperature 0.1) and do not consult these fields.
	MaxTokens   int     // default: 3000
	Temperature float64 // default: 0.1

	// Anthropic backend.
	AnthropicAPIKey   string
	AnthropicModel    string // default: "claude-3-5-sonnet-20241022"
	AnthropicPriority int    // default: 2 (last resort)

	// Local backend: an in-process or sidecar model served from disk.
	LocalModelPath    string
	LocalThreads      int // default: 4
	LocalQuantization string
	LocalPriority     int // default: 0 (tried first)

	// Hosted backend: any OpenAI-compatible HTTP endpoint (self-hosted or
	// a third-party BYOK-style provider).
	HostedBaseURL  string
	HostedAPIKey   string
	HostedModel    string
	HostedPriority int // default: 1
}

// StorageConfig configures the pipeline's export destinations.
type StorageConfig struct {
	// SpreadsheetCredentialsB64 is a base64-encoded Google service-account
	// JSON key used to authenticate the spreadsheet exporter.
	SpreadsheetCredentialsB64 string

	// SpreadsheetShareEmail, if set, is granted writer access on any
	// spreadsheet the exporter creates.
	SpreadsheetShareEmail string

	// ExportDir is the filesystem directory CSV/JSON/Excel exports are
	// written to.
	ExportDir string // default: "./exports"
}

// AdaptivePoolConfig holds page-count settings. Only HardMax is consumed: it
// is the executor's cap on pages walked per scrape. MinPages, MemThreshold
// and ScaleStep are read from configuration but not used.
type AdaptivePoolConfig struct {
	// MinPages is the minimum number of pages kept in the pool.
	MinPages int // default: 3

	// HardMax is the absolute maximum number of pages.
	HardMax int // default: 20

	// MemThreshold is the heap memory fraction (0.0-1.0) above which the pool shrinks.
	MemThreshold float64 // default: 0.9

	// ScaleStep is the fraction of pool size to grow or shrink per interval.
	ScaleStep float64 // default: 0.05
}

// BrowserPoolConfig controls the full-browser-instance pool (each instance
// owns its own browser process, context, and page).
type BrowserPoolConfig struct {
	// MaxInstances is the hard cap on live browser instances.
	MaxInstances int // default: 5

	// MinInstances is the floor the adaptive scaler won't shrink below.
	MinInstances int // default: 1

	// MaxPerInstance retires an instance once it has served this many requests.
	MaxPerInstance int // default: 50

	// MaxAge retires an instance once it has lived this long.
	MaxAge time.Duration // default: 50m

	// AcquireWait is how long Acquire blocks before evicting an idle LRU instance.
	AcquireWait time.Duration // default: 30s

	// AcquireTimeout is the hard ceiling on Acquire before it fails outright.
	AcquireTimeout time.Duration // default: 60s

	// MemThreshold and ScaleStep drive the same adaptive-scaling idiom as AdaptivePoolConfig.
	MemThreshold float64 // default: 0.9
	ScaleStep    float64 // default: 0.05

	// UserAgents is the pool new instances randomize their UA string from.
	UserAgents []string
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 10

	// DefaultProxy is the default proxy URL for all requests.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys (for MVP; replace with DB later).
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults,
// then applies an optional YAML overlay named by CONFIG_FILE.
func Load() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host: envOr("PURIFY_HOST", "0.0.0.0"),
			Port: envIntOr("PURIFY_PORT", 8080),
			Mode: envOr("PURIFY_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("PURIFY_HEADLESS", true),
			MaxPages:     envIntOr("PURIFY_MAX_PAGES", 10),
			DefaultProxy: os.Getenv("PURIFY_PROXY"),
			NoSandbox:    envBoolOr("PURIFY_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("PURIFY_BROWSER_BIN"),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PURIFY_AUTH_ENABLED", true),
			APIKeys: envSliceOr("PURIFY_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PURIFY_RATE_RPS", 5.0),
			Burst:             envIntOr("PURIFY_RATE_BURST", 10),
		},
		Log: LogConfig{
			Level:  envOr("PURIFY_LOG_LEVEL", "info"),
			Format: envOr("PURIFY_LOG_FORMAT", "json"),
		},
		AdaptivePool: AdaptivePoolConfig{
			MinPages:     envIntOr("PURIFY_MIN_PAGES", 3),
			HardMax:      envIntOr("PURIFY_HARD_MAX_PAGES", 20),
			MemThreshold: envFloatOr("PURIFY_MEM_THRESHOLD", 0.9),
			ScaleStep:    envFloatOr("PURIFY_SCALE_STEP", 0.05),
		},
		BrowserPool: BrowserPoolConfig{
			MaxInstances:   envIntOr("IWSA_POOL_MAX_INSTANCES", 5),
			MinInstances:   envIntOr("IWSA_POOL_MIN_INSTANCES", 1),
			MaxPerInstance: envIntOr("IWSA_POOL_MAX_PER_INSTANCE", 50),
			MaxAge:         envDurationOr("IWSA_POOL_MAX_AGE", 50*time.Minute),
			AcquireWait:    envDurationOr("IWSA_POOL_ACQUIRE_WAIT", 30*time.Second),
			AcquireTimeout: envDurationOr("IWSA_POOL_ACQUIRE_TIMEOUT", 60*time.Second),
			MemThreshold:   envFloatOr("IWSA_POOL_MEM_THRESHOLD", 0.9),
			ScaleStep:      envFloatOr("IWSA_POOL_SCALE_STEP", 0.05),
			UserAgents: envSliceOr("IWSA_POOL_USER_AGENTS", []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
				"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
			}),
		},
		LLM: LLMConfig{
			PrimaryBackend: os.Getenv("IWSA_LLM_PRIMARY_BACKEND"),
			BackendTimeout: envDurationOr("IWSA_LLM_BACKEND_TIMEOUT", 45*time.Second),
			RetryAttempts:  envIntOr("IWSA_LLM_RETRY_ATTEMPTS", 3),
			MaxTokens:      envIntOr("IWSA_LLM_MAX_TOKENS", 3000),
			Temperature:    envFloatOr("IWSA_LLM_TEMPERATURE", 0.1),

			AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
			AnthropicModel:    envOr("IWSA_ANTHROPIC_MODEL", "claude-3-5-sonnet-20241022"),
			AnthropicPriority: envIntOr("IWSA_ANTHROPIC_PRIORITY", 2),

			LocalModelPath:    os.Getenv("IWSA_LOCAL_MODEL_PATH"),
			LocalThreads:      envIntOr("IWSA_LOCAL_THREADS", 4),
			LocalQuantization: envOr("IWSA_LOCAL_QUANTIZATION", "q4_0"),
			LocalPriority:     envIntOr("IWSA_LOCAL_PRIORITY", 0),

			HostedBaseURL:  os.Getenv("IWSA_HOSTED_BASE_URL"),
			HostedAPIKey:   os.Getenv("IWSA_HOSTED_API_KEY"),
			HostedModel:    envOr("IWSA_HOSTED_MODEL", "gpt-4o-mini"),
			HostedPriority: envIntOr("IWSA_HOSTED_PRIORITY", 1),
		},
		Storage: StorageConfig{
			SpreadsheetCredentialsB64: os.Getenv("IWSA_SPREADSHEET_CREDENTIALS_B64"),
			SpreadsheetShareEmail:     os.Getenv("IWSA_SPREADSHEET_SHARE_EMAIL"),
			ExportDir:                 envOr("IWSA_EXPORT_DIR", "./exports"),
		},
	}

	applyYAMLOverlay(cfg)
	return cfg
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
