// Package changelog parses the two-level heading convention used in plugin
// CHANGELOG.md files: a "## <version>" heading opens a version section and a
// "### <locale>" heading opens a release-note sub-section for that version.
package changelog

import (
	"fmt"
	"strings"
)

// Changelog maps version → locale → release note text.
type Changelog map[string]map[string]string

// ParseError reports a malformed changelog document.
type ParseError struct {
	Line    int // 1-based line number
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("changelog line %d: %s", e.Line, e.Message)
}

// Parse scans the document line by line, collecting the text of every
// (version, locale) section. Lines before the first locale heading of a
// version, and any front matter before the first version heading, are
// discarded. Sections whose text is empty after trimming are dropped.
func Parse(doc string) (Changelog, error) {
	sections := make(map[string]map[string]*strings.Builder)
	var currentVersion, currentLocale string

	for i, line := range strings.Split(doc, "\n") {
		trimmed := strings.TrimSpace(line)
		if version, ok := headingText(trimmed, 2); ok {
			currentVersion = version
			currentLocale = ""
			if _, ok := sections[currentVersion]; !ok {
				sections[currentVersion] = make(map[string]*strings.Builder)
			}
			continue
		}
		if locale, ok := headingText(trimmed, 3); ok {
			if currentVersion == "" {
				return nil, &ParseError{
					Line:    i + 1,
					Message: fmt.Sprintf("locale section %q without an enclosing version heading", locale),
				}
			}
			if _, dup := sections[currentVersion][locale]; dup {
				return nil, &ParseError{
					Line:    i + 1,
					Message: fmt.Sprintf("locale %q declared twice for version %q", locale, currentVersion),
				}
			}
			currentLocale = locale
			sections[currentVersion][locale] = &strings.Builder{}
			continue
		}
		if currentLocale != "" {
			acc := sections[currentVersion][currentLocale]
			acc.WriteString("\n")
			acc.WriteString(line)
		}
	}

	result := make(Changelog, len(sections))
	for version, locales := range sections {
		for locale, acc := range locales {
			text := strings.TrimSpace(acc.String())
			if text == "" {
				continue
			}
			if _, ok := result[version]; !ok {
				result[version] = make(map[string]string, len(locales))
			}
			result[version][locale] = text
		}
	}

	return result, nil
}

// headingText returns the trimmed text of a heading with exactly level
// leading '#' characters. A heading with more markers, or with no text after
// the marker, does not match.
func headingText(line string, level int) (string, bool) {
	marker := strings.Repeat("#", level)
	if !strings.HasPrefix(line, marker) {
		return "", false
	}
	rest := line[len(marker):]
	if strings.HasPrefix(rest, "#") {
		return "", false
	}
	text := strings.TrimSpace(rest)
	if text == "" {
		return "", false
	}
	return text, true
}

// ByLocale inverts the changelog into locale → version → text, the shape the
// plugin metadata expects.
func (c Changelog) ByLocale() map[string]map[string]string {
	result := make(map[string]map[string]string)
	for version, locales := range c {
		for locale, text := range locales {
			if _, ok := result[locale]; !ok {
				result[locale] = make(map[string]string)
			}
			result[locale][version] = text
		}
	}
	return result
}
