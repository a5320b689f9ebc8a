package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydata/quarry/pkg/errors"
)

const bankDoc = `<!DOCTYPE html>
<html><body>
<h2><span class="mw-headline" id="Overview">Overview</span></h2>
<table class="wikitable">
<caption>Banks by total assets</caption>
<tbody>
<tr><th>Rank</th><th>Bank name</th><th>Assets</th></tr>
<tr><td>1</td><td>ICBC</td><td>5,742</td></tr>
</tbody></table>
<h2><span class="mw-headline" id="By_market_capitalization">By market capitalization</span></h2>
<table class="sortable"><tbody><tr><td>navigation box</td></tr></tbody></table>
<table class="wikitable sortable">
<caption>Banks by market capitalization</caption>
<tbody>
<tr><th>Rank</th><th>Bank name</th><th>Market cap (US$ billion)</th></tr>
<tr><td>1</td><td>JPMorgan Chase</td><td>432.92</td></tr>
<tr><td>2</td><td>Bank of America</td><td>231.52</td></tr>
</tbody></table>
</body></html>`

const gdpDoc = `<!DOCTYPE html>
<html><body>
<table class="wikitable"><tbody>
<tr><th>Region</th></tr>
<tr><td>no caption here</td></tr>
</tbody></table>
<table class="wikitable sortable">
<caption>GDP (USD million) by country</caption>
<tbody>
<tr><th rowspan="2">Country/Territory</th><th rowspan="2">UN region</th><th colspan="2">IMF</th></tr>
<tr><th>Estimate</th><th>Year</th></tr>
<tr><td>World</td><td>—</td><td>105,568,776</td><td>2023</td></tr>
<tr><td>United States</td><td>Americas</td><td>26,854,599</td><td>2023</td></tr>
<tr><td>Monaco</td><td>Europe</td><td>—</td><td>—</td></tr>
</tbody></table>
</body></html>`

func docFromString(t *testing.T, s string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	require.NoError(t, err)
	return doc
}

func TestHeadingRuleLocatesFollowingMarkedTable(t *testing.T) {
	doc := docFromString(t, bankDoc)

	sel, err := HeadingRule{AnchorID: "By_market_capitalization"}.Locate(doc)
	require.NoError(t, err)

	caption := sel.Find("caption").First().Text()
	assert.Equal(t, "Banks by market capitalization", strings.TrimSpace(caption))
}

func TestHeadingRuleSkipsUnmarkedTables(t *testing.T) {
	doc := docFromString(t, bankDoc)

	// the table right after the anchor lacks the marker class
	sel, err := HeadingRule{AnchorID: "By_market_capitalization"}.Locate(doc)
	require.NoError(t, err)
	assert.True(t, sel.HasClass("wikitable"))
}

func TestHeadingRuleAnchorMissing(t *testing.T) {
	doc := docFromString(t, bankDoc)

	_, err := HeadingRule{AnchorID: "By_number_of_branches"}.Locate(doc)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestHeadingRuleNoFollowingTable(t *testing.T) {
	doc := docFromString(t, `<html><body>
<table class="wikitable"><tbody><tr><th>A</th></tr><tr><td>1</td></tr></tbody></table>
<h2><span id="Trailing_heading">Trailing</span></h2>
</body></html>`)

	_, err := HeadingRule{AnchorID: "Trailing_heading"}.Locate(doc)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestCaptionRuleMatchesSubstring(t *testing.T) {
	doc := docFromString(t, gdpDoc)

	sel, err := CaptionRule{Substring: "GDP (USD million) by country"}.Locate(doc)
	require.NoError(t, err)

	raw, err := ParseTable(sel)
	require.NoError(t, err)
	assert.Equal(t, "World", raw.Rows[0][0].Text)
}

func TestCaptionRuleIsCaseSensitive(t *testing.T) {
	doc := docFromString(t, gdpDoc)

	_, err := CaptionRule{Substring: "gdp (usd million) by country"}.Locate(doc)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestCaptionRuleNoMatch(t *testing.T) {
	doc := docFromString(t, bankDoc)

	_, err := CaptionRule{Substring: "GDP (USD million) by country"}.Locate(doc)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}
