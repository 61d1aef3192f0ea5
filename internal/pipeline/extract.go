package pipeline

import (
	_ "embed"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sells-group/firm-research/internal/model"
)

//go:embed vocab.yaml
var vocabYAML []byte

// Vocabulary holds the fixed extraction keyword sets.
type Vocabulary struct {
	PracticeAreas []PracticeAreaEntry `yaml:"practice_areas"`
	Titles        []string            `yaml:"titles"`
	EducationMkrs []string            `yaml:"education_markers"`
	CredPhrases   []string            `yaml:"credential_phrases"`
	MajorCities   []MajorCity         `yaml:"major_cities"`
}

type PracticeAreaEntry struct {
	Name      string   `yaml:"name"`
	Keywords  []string `yaml:"keywords"`
	NameTerms []string `yaml:"name_terms"`
}

type MajorCity struct {
	City   string `yaml:"city"`
	Region string `yaml:"region"`
}

func mustLoadVocab() Vocabulary {
	var v Vocabulary
	if err := yaml.Unmarshal(vocabYAML, &v); err != nil {
		panic("pipeline: embedded vocab.yaml is invalid: " + err.Error())
	}
	return v
}

var vocab = struct {
	Vocabulary
	titleRe       *regexp.Regexp
	titlePrefixRe *regexp.Regexp
	eduMarkers    []string
	cityRes       []*regexp.Regexp
}{}

func init() {
	vocab.Vocabulary = mustLoadVocab()
	// Titles are alternated longest-first so "Managing Partner" is not
	// eaten by "Partner".
	titles := append([]string(nil), vocab.Titles...)
	sort.Slice(titles, func(i, j int) bool { return len(titles[i]) > len(titles[j]) })
	for i, t := range titles {
		titles[i] = regexp.QuoteMeta(t)
	}
	alt := strings.Join(titles, "|")
	vocab.titleRe = regexp.MustCompile(`(?i)\b(` + alt + `)\b`)
	vocab.titlePrefixRe = regexp.MustCompile(`(?i)^(` + alt + `)\b`)
	vocab.eduMarkers = vocab.EducationMkrs
	// Bare city mentions must keep their proper-noun casing, so
	// "our Phoenix office" counts and "a phoenix rising" does not.
	vocab.cityRes = make([]*regexp.Regexp, len(vocab.MajorCities))
	for i, mc := range vocab.MajorCities {
		vocab.cityRes[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(mc.City) + `\b`)
	}
}

// nameToken matches one capitalized name token, including initials like
// "A." and particles like "O'Brien".
const nameToken = `[A-Z][a-zA-Z'-]*\.?`

var (
	nameRe        = regexp.MustCompile(`\b(` + nameToken + `(?:\s` + nameToken + `){1,3})\b`)
	nameSepRe     = regexp.MustCompile(`\b(` + nameToken + `(?:\s` + nameToken + `){1,3})\s*[,\x{2013}\x{2014}|-]\s*`)
	foundedRe     = regexp.MustCompile(`(?i)\b(?:founded|established|est\.?|serving\s+(?:\w+\s+)?since|since)\s+(?:in\s+)?(\d{4})\b`)
	firmSizeRe    = regexp.MustCompile(`(?i)\b(\d{1,3})\+?\s+(?:attorneys|lawyers|legal professionals|professionals|abogados)\b`)
	cityStateRe   = regexp.MustCompile(`\b([A-Z][a-zA-Z]+(?: [A-Z][a-zA-Z]+)?),\s*([A-Z]{2})\b`)
	sentenceEndRe = regexp.MustCompile(`[.!?\n]`)
)

// headingWindow is how far past a heading-style name line the title
// lookup extends.
const headingWindow = 200

// scoredArea is one practice-area candidate emitted into the collector.
// ForcedFirst pins name-matched areas ahead of every counted one; the
// ordering rule lives in rankAreas, not in an inflated score.
type scoredArea struct {
	Name        string
	Score       int
	ForcedFirst bool
	order       int
}

// ExtractPracticeAreas ranks vocabulary areas by keyword occurrence in
// the page text, most relevant first. An area whose term appears in the
// subject's own name is forced to the front regardless of count.
func ExtractPracticeAreas(text, subjectName string) []string {
	lower := strings.ToLower(text)
	lowerName := strings.ToLower(subjectName)

	var candidates []scoredArea
	for i, area := range vocab.PracticeAreas {
		score := 0
		for _, kw := range area.Keywords {
			score += strings.Count(lower, strings.ToLower(kw))
		}
		forced := false
		for _, term := range area.NameTerms {
			if lowerName != "" && strings.Contains(lowerName, strings.ToLower(term)) {
				forced = true
				break
			}
		}
		if score > 0 || forced {
			candidates = append(candidates, scoredArea{
				Name:        area.Name,
				Score:       score,
				ForcedFirst: forced,
				order:       i,
			})
		}
	}
	return rankAreas(candidates)
}

// rankAreas sorts candidates: forced-first entries lead, then score
// descending, ties broken by first-seen order for determinism.
func rankAreas(candidates []scoredArea) []string {
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.ForcedFirst != b.ForcedFirst {
			return a.ForcedFirst
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.order < b.order
	})
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Name
	}
	return out
}

// attorneyCandidate is one roster hit before merging.
type attorneyCandidate struct {
	Name  string
	Title string
}

// ExtractAttorneys applies three independent pattern strategies against
// the page text and merges their hits into a deduplicated roster slice.
// Pure function of text; never fails on malformed or short input.
func ExtractAttorneys(text string) []model.Attorney {
	var candidates []attorneyCandidate
	candidates = append(candidates, namesByTitleAdjacency(text)...)
	candidates = append(candidates, namesByHeadingLines(text)...)
	candidates = append(candidates, namesByEducationMarkers(text)...)

	seen := make(map[string]int)
	var roster []model.Attorney
	for _, c := range candidates {
		name := strings.TrimSpace(c.Name)
		if !plausibleName(name) {
			continue
		}
		key := strings.ToLower(name)
		if idx, ok := seen[key]; ok {
			// A later strategy may supply the title an earlier one missed.
			if roster[idx].Title == "" && c.Title != "" {
				roster[idx].Title = c.Title
			}
			continue
		}
		seen[key] = len(roster)
		roster = append(roster, model.Attorney{Name: name, Title: c.Title})
	}
	return roster
}

// namesByTitleAdjacency finds "Name, Title" shapes: a candidate name, a
// separator, and a known title noun starting immediately after it.
func namesByTitleAdjacency(text string) []attorneyCandidate {
	var out []attorneyCandidate
	for _, m := range nameSepRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		title := vocab.titlePrefixRe.FindString(text[m[1]:])
		if title == "" {
			continue
		}
		out = append(out, attorneyCandidate{Name: name, Title: canonicalTitle(title)})
	}
	return out
}

// namesByHeadingLines finds lines that consist of nothing but a
// candidate name, then looks for a title in a short trailing window.
func namesByHeadingLines(text string) []attorneyCandidate {
	var out []attorneyCandidate
	offset := 0
	for _, line := range strings.Split(text, "\n") {
		lineStart := offset
		offset += len(line) + 1

		trimmed := strings.TrimSpace(strings.TrimLeft(line, "# "))
		if trimmed == "" || !plausibleName(trimmed) {
			continue
		}
		end := lineStart + len(line) + headingWindow
		if end > len(text) {
			end = len(text)
		}
		title := vocab.titleRe.FindString(text[lineStart+len(line) : end])
		out = append(out, attorneyCandidate{Name: trimmed, Title: canonicalTitle(title)})
	}
	return out
}

// titleNear finds a recognized title in the trailing window after the
// first occurrence of name in text. Used to fill in the title for a
// name known from elsewhere, such as a supplied contact.
func titleNear(text, name string) string {
	pos := indexFold(text, name)
	if pos < 0 {
		return ""
	}
	end := pos + len(name) + headingWindow
	if end > len(text) {
		end = len(text)
	}
	return canonicalTitle(vocab.titleRe.FindString(text[pos+len(name) : end]))
}

// namesByEducationMarkers finds names within a short window before an
// education marker ("Jane Doe, J.D.", "Jane Doe earned her J.D. at...").
func namesByEducationMarkers(text string) []attorneyCandidate {
	var out []attorneyCandidate
	for _, marker := range vocab.eduMarkers {
		idx := 0
		for {
			pos := indexFrom(text, marker, idx)
			if pos < 0 {
				break
			}
			start := pos - 80
			if start < 0 {
				start = 0
			}
			matches := nameRe.FindAllString(text[start:pos], -1)
			if len(matches) > 0 {
				out = append(out, attorneyCandidate{Name: matches[len(matches)-1]})
			}
			idx = pos + len(marker)
		}
	}
	return out
}

func indexFrom(s, substr string, from int) int {
	if from >= len(s) {
		return -1
	}
	i := strings.Index(s[from:], substr)
	if i < 0 {
		return -1
	}
	return from + i
}

// plausibleName filters candidates to 2-4 space-separated capitalized
// tokens, rejecting title nouns and all-caps shouting.
func plausibleName(s string) bool {
	if strings.ContainsAny(s, ",|–—") {
		return false
	}
	tokens := strings.Fields(s)
	if len(tokens) < 2 || len(tokens) > 4 {
		return false
	}
	for _, tok := range tokens {
		r := rune(tok[0])
		if r < 'A' || r > 'Z' {
			return false
		}
		if len(tok) > 3 && tok == strings.ToUpper(tok) {
			return false
		}
	}
	// A name never contains a title noun.
	return vocab.titleRe.FindString(s) == ""
}

// canonicalTitle normalizes a matched title to its vocabulary casing.
func canonicalTitle(matched string) string {
	if matched == "" {
		return ""
	}
	for _, t := range vocab.Titles {
		if strings.EqualFold(t, matched) {
			return t
		}
	}
	return matched
}

// RosterConfidence maps the distinct-name count to a 0-10 score.
func RosterConfidence(n int) int {
	switch {
	case n >= 5:
		return 9
	case n >= 2:
		return 7
	case n >= 1:
		return 5
	default:
		return 2
	}
}

// maxCredentialLen bounds one extracted credential line.
const maxCredentialLen = 200

// ExtractCredentials scans for recognizable award phrases and returns
// the containing sentence of each hit, deduplicated by phrase.
func ExtractCredentials(text string) []string {
	var out []string
	for _, phrase := range vocab.CredPhrases {
		pos := indexFold(text, phrase)
		if pos < 0 {
			continue
		}
		out = append(out, sentenceAround(text, pos, pos+len(phrase)))
	}
	return out
}

func indexFold(s, substr string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(substr))
}

// sentenceAround extracts the sentence containing [start,end), trimmed
// and bounded to maxCredentialLen.
func sentenceAround(text string, start, end int) string {
	from := start
	for from > 0 && start-from < maxCredentialLen/2 {
		if sentenceEndRe.MatchString(string(text[from-1])) {
			break
		}
		from--
	}
	to := end
	for to < len(text) && to-end < maxCredentialLen/2 {
		if sentenceEndRe.MatchString(string(text[to])) {
			to++
			break
		}
		to++
	}
	sentence := strings.TrimSpace(text[from:to])
	if len(sentence) > maxCredentialLen {
		sentence = sentence[:maxCredentialLen]
	}
	return sentence
}

// ExtractFoundingYear returns the first founded/established/since year
// in the text, or zero.
func ExtractFoundingYear(text string) int {
	m := foundedRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	year, err := strconv.Atoi(m[1])
	if err != nil || year < 1800 || year > 2100 {
		return 0
	}
	return year
}

// ExtractFirmSize returns the first "<N>+ attorneys" style headcount in
// the text, or zero.
func ExtractFirmSize(text string) int {
	m := firmSizeRe.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// ExtractLocationCandidates collects scraped location signals. Named
// major cities are checked before the generic "City, ST" pattern since
// the named list has fewer false positives; result order reflects that
// precedence.
func ExtractLocationCandidates(text string) []model.Location {
	var out []model.Location
	seen := make(map[string]bool)

	add := func(city, region string) {
		key := strings.ToLower(city + "|" + region)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, model.Location{
			City:    city,
			Region:  region,
			Country: "US",
		}.WithSource(model.SourceScraped))
	}

	lower := strings.ToLower(text)
	for i, mc := range vocab.MajorCities {
		needle := strings.ToLower(mc.City + ", " + mc.Region)
		if strings.Contains(lower, needle) || vocab.cityRes[i].MatchString(text) {
			add(mc.City, mc.Region)
		}
	}
	for _, m := range cityStateRe.FindAllStringSubmatch(text, -1) {
		add(m[1], m[2])
	}
	return out
}
