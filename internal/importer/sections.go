package importer

import (
	"regexp"
	"strings"

	"github.com/garnizeh/trailblazers/pkg/models"
)

// sectionHeading matches the German criterion headings used in nomination texts.
var sectionHeading = regexp.MustCompile(`(?im)^[\s*#•\-]*(?:` +
	`(?P<courage>Mut\s*(?:&|und)\s*Pioniergeist)|` +
	`(?P<innovation>Innovationsgrad)|` +
	`(?P<implementation>Umsetzungskraft\s*(?:&|und)\s*Wirkung)|` +
	`(?P<relevance>Relevanz\s+f(?:ü|ue)r\s+die\s+Mobilit(?:ä|ae)tswende)|` +
	`(?P<visibility>Vorbildfunktion\s*(?:&|und)\s*Sichtbarkeit)` +
	`)[ \t*]*:?[ \t*]*`)

// ParseSections splits a nomination text into the five criterion sections.
// Text before the first heading becomes the overview. A text without any
// heading is returned whole as the overview.
func ParseSections(text string) models.Sections {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var s models.Sections

	matches := sectionHeading.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		s.Overview = strings.TrimSpace(text)
		return s
	}
	s.Overview = strings.TrimSpace(text[:matches[0][0]])

	names := sectionHeading.SubexpNames()
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		body := strings.TrimSpace(text[m[1]:end])

		for g := 1; g < len(names); g++ {
			if m[2*g] < 0 {
				continue
			}
			setSection(&s, names[g], body)
			break
		}
	}
	return s
}

func setSection(s *models.Sections, name, body string) {
	var dst *string
	switch name {
	case FieldCourage:
		dst = &s.Courage
	case FieldInnovation:
		dst = &s.Innovation
	case FieldImplementation:
		dst = &s.Implementation
	case FieldRelevance:
		dst = &s.Relevance
	case FieldVisibility:
		dst = &s.Visibility
	default:
		return
	}
	if *dst == "" {
		*dst = body
	} else if body != "" {
		*dst += "\n\n" + body
	}
}
