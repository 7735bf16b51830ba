package importer

import "sort"

// Candidate fields a spreadsheet column can map to.
const (
	FieldName           = "name"
	FieldOrganization   = "organization"
	FieldPosition       = "position"
	FieldCountry        = "country"
	FieldWebsite        = "website_url"
	FieldLinkedIn       = "linkedin_url"
	FieldDescription    = "description"
	FieldCategory       = "category"
	FieldStatus         = "status"
	FieldAwardYear      = "award_year"
	FieldOverview       = "overview"
	FieldCourage        = "courage"
	FieldInnovation     = "innovation"
	FieldImplementation = "implementation"
	FieldRelevance      = "relevance"
	FieldVisibility     = "visibility"
	FieldPhoto          = "photo"
)

// MinSimilarity is the lowest fuzzy score accepted for a header match.
const MinSimilarity = 0.8

// aliases holds known header spellings per field, in compact form.
var aliases = map[string][]string{
	FieldName:           {"name", "vollername", "kandidat", "kandidatin", "candidate", "fullname", "vornamenachname"},
	FieldOrganization:   {"organisation", "organization", "unternehmen", "firma", "company", "institution"},
	FieldPosition:       {"position", "funktion", "rolle", "titel", "title", "jobtitle"},
	FieldCountry:        {"land", "country", "staat"},
	FieldWebsite:        {"website", "webseite", "url", "homepage", "websiteurl"},
	FieldLinkedIn:       {"linkedin", "linkedinurl", "linkedinprofil", "linkedinprofile"},
	FieldDescription:    {"beschreibung", "description", "begruendung", "text", "bewerbungstext"},
	FieldCategory:       {"kategorie", "category"},
	FieldStatus:         {"status"},
	FieldAwardYear:      {"jahr", "year", "awardyear", "preisjahr"},
	FieldOverview:       {"ueberblick", "overview", "zusammenfassung", "summary"},
	FieldCourage:        {"mutpioniergeist", "courage", "mut"},
	FieldInnovation:     {"innovationsgrad", "innovation"},
	FieldImplementation: {"umsetzungskraftwirkung", "implementation", "umsetzung"},
	FieldRelevance:      {"relevanzfuerdiemobilitaetswende", "relevance", "relevanz"},
	FieldVisibility:     {"vorbildfunktionsichtbarkeit", "visibility", "sichtbarkeit"},
	FieldPhoto:          {"foto", "photo", "bild", "image"},
}

// Mapping assigns spreadsheet column indexes to candidate fields.
type Mapping struct {
	Columns  map[string]int    `json:"-"`
	Matched  map[string]string `json:"matched"`
	Fuzzy    map[string]string `json:"fuzzy,omitempty"`
	Unmapped []string          `json:"unmapped,omitempty"`
}

// MapColumns maps headers to fields by alias first, then by fuzzy match with
// a similarity of at least MinSimilarity. Each field is mapped at most once;
// the leftmost header wins.
func MapColumns(headers []string) *Mapping {
	m := &Mapping{Columns: map[string]int{}, Matched: map[string]string{}, Fuzzy: map[string]string{}}

	lookup := make(map[string]string)
	for field, names := range aliases {
		for _, n := range names {
			lookup[n] = field
		}
	}

	pending := make([]int, 0, len(headers))
	for i, h := range headers {
		key := compact(h)
		if key == "" {
			continue
		}
		if field, ok := lookup[key]; ok {
			if _, taken := m.Columns[field]; !taken {
				m.Columns[field] = i
				m.Matched[h] = field
				continue
			}
		}
		pending = append(pending, i)
	}

	fields := make([]string, 0, len(aliases))
	for f := range aliases {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, i := range pending {
		h := headers[i]
		key := compact(h)
		best, bestScore := "", 0.0
		for _, field := range fields {
			if _, taken := m.Columns[field]; taken {
				continue
			}
			for _, alias := range aliases[field] {
				if s := Similarity(key, alias); s > bestScore {
					best, bestScore = field, s
				}
			}
		}
		if bestScore >= MinSimilarity {
			m.Columns[best] = i
			m.Matched[h] = best
			m.Fuzzy[h] = best
			continue
		}
		m.Unmapped = append(m.Unmapped, h)
	}
	return m
}

// Value returns the trimmed cell for field in row, or "" when unmapped or short.
func (m *Mapping) Value(row []string, field string) string {
	i, ok := m.Columns[field]
	if !ok || i >= len(row) {
		return ""
	}
	return trimCell(row[i])
}
