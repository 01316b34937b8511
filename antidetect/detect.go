package antidetect

import (
	"regexp"
	"strings"
)

// maxBodyLenForRegex bounds how much page text is regex-scanned, preventing
// ReDoS on pathologically large pages.
const maxBodyLenForRegex = 100 * 1024

// Category is the broad class of a detected challenge.
type Category string

const (
	CategoryRateLimit    Category = "rate_limit"
	CategoryAccessDenied Category = "access_denied"
	CategoryCaptcha      Category = "captcha"
	CategoryGeoBlocked   Category = "geo_blocked"
)

// pattern pairs a detection regex with its classification.
type pattern struct {
	Pattern     *regexp.Regexp
	ErrorCode   string
	Category    Category
	BaseDelayMs int
	Description string
}

// Detection is the outcome of scanning a page for challenge markers.
type Detection struct {
	Detected       bool
	ErrorCode      string
	Category       Category
	SuggestedDelay int
	Description    string
}

// patterns is ordered most-specific-first: vendor-specific Cloudflare codes
// before generic rate-limit/blocked/captcha phrasing, so a specific match
// always wins over a coincidental generic one (spec §4.6).
var patterns = []pattern{
	{regexp.MustCompile(`(?i)error[^<]{0,10}code[^<]{0,5}:?\s{0,5}1015`), "CF_1015", CategoryRateLimit, 60000, "Cloudflare rate limit exceeded"},
	{regexp.MustCompile(`(?i)error[^<]{0,10}code[^<]{0,5}:?\s{0,5}1020`), "CF_1020", CategoryAccessDenied, 30000, "Cloudflare access denied: suspicious request"},
	{regexp.MustCompile(`(?i)error[^<]{0,10}code[^<]{0,5}:?\s{0,5}1006`), "CF_1006", CategoryAccessDenied, 30000, "Cloudflare access denied"},
	{regexp.MustCompile(`(?i)error[^<]{0,10}code[^<]{0,5}:?\s{0,5}1007`), "CF_1007", CategoryAccessDenied, 30000, "Cloudflare access denied"},
	{regexp.MustCompile(`(?i)error[^<]{0,10}code[^<]{0,5}:?\s{0,5}1008`), "CF_1008", CategoryAccessDenied, 30000, "Cloudflare access denied"},
	{regexp.MustCompile(`(?i)error[^<]{0,10}code[^<]{0,5}:?\s{0,5}1009`), "CF_1009", CategoryGeoBlocked, 0, "Cloudflare geo-restriction"},
	{regexp.MustCompile(`(?i)error[^<]{0,10}code[^<]{0,5}:?\s{0,5}1010`), "CF_1010", CategoryAccessDenied, 30000, "Cloudflare browser signature rejected"},
	{regexp.MustCompile(`(?i)error[^<]{0,10}code[^<]{0,5}:?\s{0,5}1012`), "CF_1012", CategoryAccessDenied, 30000, "Cloudflare access denied"},
	{regexp.MustCompile(`(?i)access\s{1,5}denied`), "ACCESS_DENIED", CategoryAccessDenied, 5000, "Generic access denied"},
	{regexp.MustCompile(`(?i)rate\s{0,3}limit`), "RATE_LIMITED", CategoryRateLimit, 10000, "Generic rate limit"},
	{regexp.MustCompile(`(?i)too\s{1,5}many\s{1,5}requests`), "TOO_MANY_REQUESTS", CategoryRateLimit, 10000, "Too many requests"},
	{regexp.MustCompile(`(?i)you\s{1,5}(have\s{1,5}been\s{1,5})?blocked`), "BLOCKED", CategoryAccessDenied, 15000, "Request blocked"},
	{regexp.MustCompile(`(?i)(captcha|hcaptcha|recaptcha|challenge)`), "CAPTCHA_REQUIRED", CategoryCaptcha, 0, "CAPTCHA or challenge required"},
}

// Detect scans an HTTP status code and page text for CAPTCHA/challenge/
// rate-limit markers, status-code checks first, then ordered body patterns,
// then a Cloudflare-specific 403 fallback (spec §4.6).
func Detect(statusCode int, body string) Detection {
	var d Detection

	if len(body) > maxBodyLenForRegex {
		body = body[:maxBodyLenForRegex]
	}

	switch statusCode {
	case 429:
		d = Detection{Detected: true, ErrorCode: "HTTP_429", Category: CategoryRateLimit, SuggestedDelay: 60000, Description: "HTTP 429 Too Many Requests"}
	case 503:
		d = Detection{Detected: true, ErrorCode: "HTTP_503", Category: CategoryRateLimit, SuggestedDelay: 30000, Description: "HTTP 503 Service Unavailable"}
	}

	for _, p := range patterns {
		if p.Pattern.MatchString(body) {
			d = Detection{Detected: true, ErrorCode: p.ErrorCode, Category: p.Category, SuggestedDelay: p.BaseDelayMs, Description: p.Description}
			break
		}
	}

	if statusCode == 403 && !d.Detected && strings.Contains(strings.ToLower(body), "cloudflare") {
		d = Detection{Detected: true, ErrorCode: "CF_403", Category: CategoryAccessDenied, SuggestedDelay: 30000, Description: "Cloudflare 403 Forbidden"}
	}

	return d
}
