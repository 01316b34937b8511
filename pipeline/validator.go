package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	strictEmailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	strictURLRe   = regexp.MustCompile(`^https?://[^\s<>"{}|\\^` + "`" + `\[\]]+$`)
	digitsOnlyRe  = regexp.MustCompile(`\D`)
	datePatterns  = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
		regexp.MustCompile(`\d{2}/\d{2}/\d{4}`),
		regexp.MustCompile(`\d{2}-\d{2}-\d{4}`),
	}
)

// Validate annotates each row with `_validation_score`, `_is_valid`,
// `_validation_errors`, `_validation_warnings` (spec §4.9). It never drops a
// row; a row that fails validation is still returned, marked invalid.
func Validate(rows []Row) ([]Row, Stats) {
	start := time.Now()
	stats := Stats{Total: len(rows)}
	out := make([]Row, 0, len(rows))

	for _, row := range rows {
		validated, isValid := validateRow(row)
		out = append(out, validated)
		stats.Processed++
		if !isValid {
			stats.Failed++
		}
	}

	stats.Time = time.Since(start)
	return out, stats
}

func validateRow(row Row) (Row, bool) {
	validated := make(Row, len(row)+4)
	for k, v := range row {
		validated[k] = v
	}

	var errs, warnings []string

	nonMetaCount := 0
	nonEmptyCount := 0
	for key, value := range row {
		if strings.HasPrefix(key, "_") {
			continue
		}
		nonMetaCount++
		str, _ := value.(string)
		if str == "" {
			continue
		}
		nonEmptyCount++

		switch detectFieldType(key, str) {
		case "email":
			if !strictEmailRe.MatchString(strings.TrimSpace(str)) {
				warnings = append(warnings, fmt.Sprintf("%s: invalid email format", key))
			}
		case "url":
			if !strictURLRe.MatchString(strings.TrimSpace(str)) {
				warnings = append(warnings, fmt.Sprintf("%s: invalid URL format", key))
			}
		case "phone":
			if len(digitsOnlyRe.ReplaceAllString(str, "")) < 10 {
				warnings = append(warnings, fmt.Sprintf("%s: phone number too short", key))
			}
		case "price":
			if !validPrice(str) {
				warnings = append(warnings, fmt.Sprintf("%s: invalid price format", key))
			}
		case "date":
			if !matchesAnyDate(str) {
				warnings = append(warnings, fmt.Sprintf("%s: unrecognized date format", key))
			}
		}
	}

	if nonEmptyCount == 0 {
		errs = append(errs, "no valid data fields found")
	}

	completeness := 0.0
	if nonMetaCount > 0 {
		completeness = float64(nonEmptyCount) / float64(nonMetaCount)
	}
	warningPenalty := min(float64(len(warnings))*0.1, 0.5)
	errorPenalty := min(float64(len(errs))*0.2, 0.8)
	score := clamp01(completeness - warningPenalty - errorPenalty)

	isValid := len(errs) == 0 && score >= 0.5

	validated["_validation_score"] = score
	validated["_validation_errors"] = errs
	validated["_validation_warnings"] = warnings
	validated["_is_valid"] = isValid

	return validated, isValid
}

// detectFieldType infers a field's semantic type from its name, falling back
// to sniffing the value's shape (spec §4.9 / processors.py parity).
func detectFieldType(key, value string) string {
	lowerKey := strings.ToLower(key)
	lowerVal := strings.ToLower(value)

	switch {
	case strings.Contains(lowerKey, "email"):
		return "email"
	case strings.Contains(lowerKey, "url"), strings.Contains(lowerKey, "link"), strings.Contains(lowerKey, "href"):
		return "url"
	case strings.Contains(lowerKey, "phone"), strings.Contains(lowerKey, "tel"), strings.Contains(lowerKey, "mobile"):
		return "phone"
	case strings.Contains(lowerKey, "price"), strings.Contains(lowerKey, "cost"), strings.Contains(lowerKey, "amount"):
		return "price"
	case strings.Contains(lowerKey, "date"), strings.Contains(lowerKey, "time"), strings.Contains(lowerKey, "posted"), strings.Contains(lowerKey, "created"):
		return "date"
	case strings.Contains(lowerVal, "@"):
		return "email"
	case strings.HasPrefix(lowerVal, "http://"), strings.HasPrefix(lowerVal, "https://"), strings.HasPrefix(lowerVal, "www."):
		return "url"
	default:
		return "text"
	}
}

func validPrice(s string) bool {
	cleaned := priceStripRe.ReplaceAllString(s, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	return err == nil && v >= 0
}

func matchesAnyDate(s string) bool {
	for _, re := range datePatterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
