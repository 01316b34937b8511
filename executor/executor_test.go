package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/use-agent/iwsa/orchestrator"
)

func TestNormalizeSiteDerivesIDAndBaseURLFromURL(t *testing.T) {
	site := normalizeSite(Site{URL: "https://example.com/listings?page=2"})
	assert.Equal(t, "example.com", site.SiteID)
	assert.Equal(t, "https://example.com", site.BaseURL)
}

func TestNormalizeSitePreservesExplicitOverrides(t *testing.T) {
	site := normalizeSite(Site{URL: "https://example.com/a", SiteID: "custom", BaseURL: "https://cdn.example.com"})
	assert.Equal(t, "custom", site.SiteID)
	assert.Equal(t, "https://cdn.example.com", site.BaseURL)
}

func TestFieldNameStripsNameAnnotation(t *testing.T) {
	assert.Equal(t, "price", fieldName("price:.product-price"))
	assert.Equal(t, ".product-price", fieldName(".product-price"))
	assert.Equal(t, "a.link", fieldName("a.link"))
}

func TestResolveURLHandlesRelativeAndAbsolute(t *testing.T) {
	assert.Equal(t, "https://example.com/p/1", resolveURL("https://example.com/listings", "/p/1"))
	assert.Equal(t, "https://other.com/x", resolveURL("https://example.com/listings", "https://other.com/x"))
}

func TestAppendBoundedCapsAtMaxErrors(t *testing.T) {
	var errs []string
	for i := 0; i < maxErrors+5; i++ {
		errs = appendBounded(errs, "err")
	}
	assert.Len(t, errs, maxErrors)
}

func TestPaginateNoneNeverAdvances(t *testing.T) {
	e := &Executor{}
	advanced, _, err := e.paginate(nil, nil, orchestrator.Pagination{Kind: orchestrator.PaginationNone}, 0, 3)
	assert.NoError(t, err)
	assert.False(t, advanced)
}
