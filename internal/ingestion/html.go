package ingestion

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/linkedin-optimizer/internal/types"
)

// CSS selectors of a LinkedIn profile page, matching the browser-console snippet.
const (
	headlineSelector   = ".text-body-medium"
	aboutSelector      = ".pv-about__summary-text"
	experienceSelector = ".pvs-list__item--line-separated"
	skillSelector      = ".pvs-skill-category-entity__name"

	experienceItems = 2
)

// ParseHTML reads a saved LinkedIn profile page and extracts the same fields the
// console snippet does: headline, about, the first two experience entries and all skills.
func ParseHTML(r io.Reader) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &ImportError{Source: SourceHTML, Message: "failed to parse HTML", Cause: err}
	}

	headline := CleanText(doc.Find(headlineSelector).First().Text())
	about := CleanText(doc.Find(aboutSelector).First().Text())

	var experience []string
	doc.Find(experienceSelector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if text := CleanText(s.Text()); text != "" {
			experience = append(experience, text)
		}
		return len(experience) < experienceItems
	})

	var skills []string
	doc.Find(skillSelector).Each(func(_ int, s *goquery.Selection) {
		if text := CleanText(s.Text()); text != "" {
			skills = append(skills, text)
		}
	})

	fields := map[string]string{
		types.FieldHeadline:   headline,
		types.FieldAbout:      about,
		types.FieldExperience: strings.Join(experience, "\n\n"),
		types.FieldSkills:     strings.Join(skills, ", "),
	}

	characters := 0
	for _, v := range fields {
		characters += len([]rune(v))
	}
	if characters == 0 {
		return nil, &ImportError{Source: SourceHTML, Message: "no profile sections found; save the page while logged in"}
	}

	return &Result{
		Source:     SourceHTML,
		Fields:     fields,
		Characters: characters,
		Preview:    types.Truncate(about, previewLength),
	}, nil
}

// ParseHTMLString is ParseHTML over a string.
func ParseHTMLString(html string) (*Result, error) {
	return ParseHTML(strings.NewReader(html))
}
