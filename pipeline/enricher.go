package pipeline

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/use-agent/iwsa/simhash"
)

const nearDuplicateThreshold = 3

// Enrich adds derived fields and provenance metadata to each row (spec
// §4.9's "Enricher"): domain extraction from URL-shaped fields, numeric
// price projections, text-volume statistics, a content hash for exact-
// duplicate detection, and a simhash-based near-duplicate pointer.
func Enrich(rows []Row, meta Meta) ([]Row, Stats) {
	start := time.Now()
	stats := Stats{Total: len(rows)}
	out := make([]Row, 0, len(rows))

	seen := make(map[string]int, len(rows))      // exact content hash -> row index
	fingerprints := make([]uint64, 0, len(rows))

	for _, row := range rows {
		enriched, modified := enrichRow(row, meta)
		stats.Processed++
		if modified {
			stats.Modifications++
		}

		hash, _ := enriched["_content_hash"].(string)
		if idx, dup := seen[hash]; dup {
			enriched["_duplicate_of"] = idx
		} else if hash != "" {
			seen[hash] = len(out)
		}

		fp := contentFingerprint(row)
		for i, other := range fingerprints {
			if simhash.Similar(fp, other, nearDuplicateThreshold) {
				enriched["_near_duplicate_of"] = i
				break
			}
		}
		fingerprints = append(fingerprints, fp)

		out = append(out, enriched)
	}

	stats.Time = time.Since(start)
	return out, stats
}

func enrichRow(row Row, meta Meta) (Row, bool) {
	enriched := make(Row, len(row)+8)
	for k, v := range row {
		enriched[k] = v
	}

	if _, ok := enriched["_enriched_at"]; !ok {
		enriched["_enriched_at"] = time.Now().Unix()
	}

	nonMeta := 0
	for k := range row {
		if !strings.HasPrefix(k, "_") {
			nonMeta++
		}
	}
	enriched["_field_count"] = nonMeta

	var textChars, textWords int
	for key, value := range row {
		str, ok := value.(string)
		if !ok {
			continue
		}
		lowerKey := strings.ToLower(key)

		if !strings.HasPrefix(key, "_") && (strings.Contains(lowerKey, "url") || strings.Contains(lowerKey, "link") || strings.HasPrefix(str, "http")) {
			if domain := extractDomain(str); domain != "" {
				enriched[key+"_domain"] = domain
			}
		}

		if strings.Contains(lowerKey, "price") {
			if numeric, ok := normalizePrice(str); ok {
				enriched[key+"_numeric"] = numeric
			}
		}

		if !strings.HasPrefix(key, "_") && len(str) > 20 {
			textChars += len(str)
			textWords += len(strings.Fields(str))
		}
	}
	if textChars > 0 {
		enriched["_total_text_length"] = textChars
		enriched["_total_word_count"] = textWords
	}

	extractedAt := time.Now()
	if ts, ok := row["_extracted_at"].(int64); ok {
		extractedAt = time.Unix(ts, 0)
	}
	ageHours := time.Since(extractedAt).Hours()
	enriched["_data_age_hours"] = roundTo(ageHours, 2)

	if meta.SourceDomain != "" {
		enriched["_source_domain"] = meta.SourceDomain
	}

	enriched["_content_hash"] = contentHash(row)

	modified := len(enriched) != len(row)
	return enriched, modified
}

func extractDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Host)
}

func normalizePrice(s string) (float64, bool) {
	cleaned := priceStripRe.ReplaceAllString(s, "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// contentHash mirrors processors.py's _generate_content_hash: an MD5 of the
// non-metadata fields serialized as sorted-key JSON.
func contentHash(row Row) string {
	content := make(map[string]any, len(row))
	for k, v := range row {
		if !strings.HasPrefix(k, "_") {
			content[k] = v
		}
	}
	// encoding/json writes map keys in sorted order, so the rendering is stable.
	encoded, _ := json.Marshal(content)
	sum := md5.Sum(encoded)
	return hex.EncodeToString(sum[:])
}

// contentFingerprint concatenates the row's non-metadata string fields into
// one document for simhash so near-duplicates across minor field-level
// edits (whitespace, punctuation) are still caught.
func contentFingerprint(row Row) uint64 {
	var sb strings.Builder
	keys := make([]string, 0, len(row))
	for k := range row {
		if !strings.HasPrefix(k, "_") {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if str, ok := row[k].(string); ok {
			sb.WriteString(str)
			sb.WriteByte(' ')
		}
	}
	return simhash.Fingerprint(sb.String())
}

func roundTo(v float64, places int) float64 {
	mult := 1.0
	for i := 0; i < places; i++ {
		mult *= 10
	}
	return float64(int64(v*mult+0.5)) / mult
}
