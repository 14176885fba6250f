// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package content

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"limoseo/internal/ai"
	"limoseo/internal/models"
)

// Section markers requested by the prompt.
const (
	SectionTitle    = "TITLE"
	SectionMeta     = "META_DESCRIPTION"
	SectionContent  = "CONTENT"
	SectionKeywords = "KEYWORDS"
)

// MaxKeywords caps the keyword list of a content item.
const MaxKeywords = 20

// metaExcerptLen is how much of the location description the fallback meta
// description quotes.
const metaExcerptLen = 80

// sectionEnd matches the start of the next upper-case marker line.
var sectionEnd = regexp.MustCompile(`\n[ \t#*]*[A-Z][A-Z_]+[ \t*]*:`)

// markerCache holds one compiled start pattern per section name.
var markerCache = map[string]*regexp.Regexp{
	SectionTitle:    sectionStart(SectionTitle),
	SectionMeta:     sectionStart(SectionMeta),
	SectionContent:  sectionStart(SectionContent),
	SectionKeywords: sectionStart(SectionKeywords),
}

// sectionStart matches a marker at the start of a line, case-insensitive,
// with optional markdown emphasis and an optional colon.
func sectionStart(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?im)^[ \t#*]*` + regexp.QuoteMeta(name) + `\b[ \t*]*:?[ \t*]*`)
}

// extractSection returns the text after the named marker up to the next
// marker line or the end of the response. It returns "" when the marker is
// absent or its body is blank.
func extractSection(text, name string) string {
	re, ok := markerCache[name]
	if !ok {
		re = sectionStart(name)
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := text[loc[1]:]
	if end := sectionEnd.FindStringIndex(rest); end != nil {
		rest = rest[:end[0]]
	}
	return cleanSection(rest)
}

func cleanSection(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `*"`)
	return strings.TrimSpace(s)
}

// parseKeywords splits a comma-separated list, dropping empties and
// surrounding quotes or bullets, and keeps at most MaxKeywords.
func parseKeywords(text string) []string {
	keywords := []string{}
	for _, kw := range strings.Split(text, ",") {
		kw = strings.TrimSpace(kw)
		kw = strings.Trim(kw, `"'-*`)
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		keywords = append(keywords, kw)
		if len(keywords) == MaxKeywords {
			break
		}
	}
	return keywords
}

// sections is the parsed copy of one AI response.
type sections struct {
	Title           string
	MetaDescription string
	Content         string
	Keywords        []string
}

// jsonSections is the shape accepted when a model answers in JSON instead
// of section markers.
type jsonSections struct {
	Title           string   `json:"title"`
	MetaDescription string   `json:"metaDescription"`
	Content         string   `json:"content"`
	Keywords        []string `json:"keywords"`
}

// parseResponse extracts the sections of an AI response. Missing sections
// fall back to deterministic defaults built from the service and location,
// so a partial response still yields a usable page.
func parseResponse(text string, svc *models.Service, loc *models.Location, market string) sections {
	var s sections

	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "```") {
		var js jsonSections
		if err := ai.ParseJSON(trimmed, &js); err == nil && strings.TrimSpace(js.Content) != "" {
			s.Title = strings.TrimSpace(js.Title)
			s.MetaDescription = strings.TrimSpace(js.MetaDescription)
			s.Content = strings.TrimSpace(js.Content)
			s.Keywords = parseKeywords(strings.Join(js.Keywords, ","))
		}
	}

	if s.Content == "" {
		s.Title = extractSection(text, SectionTitle)
		s.MetaDescription = extractSection(text, SectionMeta)
		s.Content = extractSection(text, SectionContent)
		s.Keywords = parseKeywords(extractSection(text, SectionKeywords))
	}

	if s.Title == "" {
		s.Title = fallbackTitle(svc, loc)
	}
	if s.MetaDescription == "" {
		s.MetaDescription = fallbackMeta(svc, loc, market)
	}
	if s.Content == "" {
		s.Content = trimmed
	}
	return s
}

func fallbackTitle(svc *models.Service, loc *models.Location) string {
	return fmt.Sprintf("%s in %s", svc.Name, loc.Name)
}

func fallbackMeta(svc *models.Service, loc *models.Location, market string) string {
	return fmt.Sprintf("Professional %s service in %s, %s. %s...",
		strings.ToLower(svc.Name), loc.Name, market, truncateRunes(loc.Description, metaExcerptLen))
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
