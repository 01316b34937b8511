package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFieldStripsNULBytes(t *testing.T) {
	nul := string([]byte{0})
	got := normalizeField("a" + nul + "b" + nul)
	assert.Equal(t, "ab", got)
}

func TestNormalizeFieldTrimsAndBoundsLength(t *testing.T) {
	assert.Equal(t, "hello", normalizeField("  hello  "))

	long := strings.Repeat("x", maxFieldLen+500)
	assert.Len(t, normalizeField(long), maxFieldLen)
}

func TestParseStrategyBoundsFieldLength(t *testing.T) {
	long := strings.Repeat("x", maxFieldLen+500)
	content := `{"selectors":["a"],"extraction_logic":"` + long + `","confidence_score":0.5,"reasoning":"` + long + `"}`

	strat, ok := parseStrategy(content)
	assert.True(t, ok)
	assert.Len(t, strat.ExtractionLogic, maxFieldLen)
	assert.Len(t, strat.Reasoning, maxFieldLen)
}

func TestParseStrategyTrimsFilterAndPaginationStrings(t *testing.T) {
	content := `{"selectors":["a"],"extraction_logic":"x","confidence_score":0.5,` +
		`"pagination_strategy":{"type":"numbered","selectors":[" b "],"logic":" next page "},` +
		`"filters":[{"name":" cat ","selector":" #s ","type":"dropdown","default_value":" all "}]}`

	strat, ok := parseStrategy(content)
	assert.True(t, ok)
	assert.Equal(t, "b", strat.Pagination.Selectors[0])
	assert.Equal(t, "next page", strat.Pagination.Notes)
	assert.Equal(t, "cat", strat.Filters[0].Name)
	assert.Equal(t, "#s", strat.Filters[0].Selector)
	assert.Equal(t, "all", strat.Filters[0].Default)
}
