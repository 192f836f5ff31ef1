package changelog

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `# MyPlugin

Some front matter that belongs to no section.

## 1.1.0

### de_DE

* Fehler behoben
* Neue Funktion

### en_GB

* Bug fixed
* New feature

## 1.0.0

### de_DE

Erste Version
`

func TestParse(t *testing.T) {
	log, err := Parse(sampleDoc)
	require.NoError(t, err)

	require.Len(t, log, 2)
	assert.Equal(t, "* Fehler behoben\n* Neue Funktion", log["1.1.0"]["de_DE"])
	assert.Equal(t, "* Bug fixed\n* New feature", log["1.1.0"]["en_GB"])
	assert.Equal(t, "Erste Version", log["1.0.0"]["de_DE"])
}

func TestParsePreservesBlankLinesInsideSections(t *testing.T) {
	doc := "## 1.0.0\n### en_GB\nfirst paragraph\n\nsecond paragraph\n"
	log, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "first paragraph\n\nsecond paragraph", log["1.0.0"]["en_GB"])
}

func TestParseLocaleBeforeVersion(t *testing.T) {
	_, err := Parse("### de_DE\nsome text\n")

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 1, parseErr.Line)
	assert.Contains(t, parseErr.Message, "de_DE")
}

func TestParseDuplicateLocale(t *testing.T) {
	doc := "## 1.0.0\n### de_DE\neins\n### de_DE\nzwei\n"
	_, err := Parse(doc)

	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, 4, parseErr.Line)
}

func TestParseDropsEmptySections(t *testing.T) {
	doc := "## 1.0.0\n### de_DE\n\n   \n### en_GB\nreal text\n"
	log, err := Parse(doc)
	require.NoError(t, err)

	_, ok := log["1.0.0"]["de_DE"]
	assert.False(t, ok, "whitespace-only section must be dropped")
	assert.Equal(t, "real text", log["1.0.0"]["en_GB"])
}

func TestParseVersionWithoutContent(t *testing.T) {
	log, err := Parse("## 2.0.0\n## 1.0.0\n### de_DE\ntext\n")
	require.NoError(t, err)

	_, ok := log["2.0.0"]
	assert.False(t, ok, "version without any locale text must not appear")
	assert.Equal(t, "text", log["1.0.0"]["de_DE"])
}

func TestParseHeadingEdgeCases(t *testing.T) {
	// A deeper heading and a bare marker are content, not section starts.
	doc := "## 1.0.0\n### de_DE\n#### subsection\n###\ntext\n"
	log, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "#### subsection\n###\ntext", log["1.0.0"]["de_DE"])
}

func TestParseIndentedHeadings(t *testing.T) {
	// Headings are recognized after trimming surrounding whitespace.
	doc := "  ## 1.0.0\n\t### de_DE\ntext\n"
	log, err := Parse(doc)
	require.NoError(t, err)
	assert.Equal(t, "text", log["1.0.0"]["de_DE"])
}

func TestByLocale(t *testing.T) {
	log, err := Parse(sampleDoc)
	require.NoError(t, err)

	byLocale := log.ByLocale()
	require.Len(t, byLocale, 2)
	assert.Equal(t, "Erste Version", byLocale["de_DE"]["1.0.0"])
	assert.Equal(t, "* Bug fixed\n* New feature", byLocale["en_GB"]["1.1.0"])
	_, ok := byLocale["en_GB"]["1.0.0"]
	assert.False(t, ok)
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML("* one\n* two\n")
	require.NoError(t, err)
	assert.True(t, strings.Contains(html, "<ul>"), "expected a list, got %q", html)
	assert.True(t, strings.Contains(html, "<li>one</li>"), "expected list items, got %q", html)
}
