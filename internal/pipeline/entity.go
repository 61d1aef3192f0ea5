package pipeline

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/firm-research/internal/model"
	"github.com/sells-group/firm-research/pkg/places"
)

// NameMatcher decides whether two listing names refer to the same
// entity. The containment heuristic is deliberately replaceable: it
// over-matches common surnames and under-matches stylized entity
// suffixes, so callers depend on the interface, not the rule.
type NameMatcher interface {
	// Score returns a similarity in [0,1]; 1 is an exact match.
	Score(a, b string) float64
	// Match reports whether the score clears the matcher's threshold.
	Match(a, b string) bool
}

// ContainmentMatcher scores by substring containment weighted by the
// relative length difference of the two names.
type ContainmentMatcher struct {
	Threshold float64
}

// NewContainmentMatcher builds the default matcher. threshold <= 0
// falls back to 0.5.
func NewContainmentMatcher(threshold float64) *ContainmentMatcher {
	if threshold <= 0 {
		threshold = 0.5
	}
	return &ContainmentMatcher{Threshold: threshold}
}

func (m *ContainmentMatcher) Score(a, b string) float64 {
	a = normalizeName(a)
	b = normalizeName(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if !strings.Contains(longer, shorter) {
		return 0
	}
	// The closer the lengths, the stronger the containment signal.
	return float64(len(shorter)) / float64(len(longer))
}

func (m *ContainmentMatcher) Match(a, b string) bool {
	return m.Score(a, b) >= m.Threshold
}

// entitySuffixes are stripped before comparison so "Smith Law LLP"
// matches "Smith Law".
var entitySuffixes = []string{
	"llp", "llc", "pllc", "pc", "p.c.", "pa", "p.a.", "ltd", "inc",
	"law firm", "law office", "law offices", "attorneys at law",
}

// deaccent strips combining marks so "Muñoz" and "Munoz" compare equal.
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func normalizeName(s string) string {
	if folded, _, err := transform.String(deaccent, s); err == nil {
		s = folded
	}
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.Trim(s, ".,")
	for _, suffix := range entitySuffixes {
		s = strings.TrimSuffix(s, " "+suffix)
	}
	return strings.TrimSpace(strings.Trim(s, ".,"))
}

// genericTerms are bare listing names that identify nothing.
var genericTerms = map[string]bool{
	"law firm": true, "lawyer": true, "attorney": true, "law office": true,
	"legal services": true, "abogado": true,
}

// usStateNames expands region codes to human-readable names for search
// queries.
var usStateNames = map[string]string{
	"AL": "Alabama", "AK": "Alaska", "AZ": "Arizona", "AR": "Arkansas",
	"CA": "California", "CO": "Colorado", "CT": "Connecticut", "DE": "Delaware",
	"DC": "District of Columbia", "FL": "Florida", "GA": "Georgia", "HI": "Hawaii",
	"ID": "Idaho", "IL": "Illinois", "IN": "Indiana", "IA": "Iowa",
	"KS": "Kansas", "KY": "Kentucky", "LA": "Louisiana", "ME": "Maine",
	"MD": "Maryland", "MA": "Massachusetts", "MI": "Michigan", "MN": "Minnesota",
	"MS": "Mississippi", "MO": "Missouri", "MT": "Montana", "NE": "Nebraska",
	"NV": "Nevada", "NH": "New Hampshire", "NJ": "New Jersey", "NM": "New Mexico",
	"NY": "New York", "NC": "North Carolina", "ND": "North Dakota", "OH": "Ohio",
	"OK": "Oklahoma", "OR": "Oregon", "PA": "Pennsylvania", "RI": "Rhode Island",
	"SC": "South Carolina", "SD": "South Dakota", "TN": "Tennessee", "TX": "Texas",
	"UT": "Utah", "VT": "Vermont", "VA": "Virginia", "WA": "Washington",
	"WV": "West Virginia", "WI": "Wisconsin", "WY": "Wyoming",
}

// countryMarkers maps a country code to address substrings accepted as
// evidence the listing really is in that country.
var countryMarkers = map[string][]string{
	"US": {"USA", "United States"},
	"CA": {"Canada"},
	"GB": {"UK", "United Kingdom"},
	"MX": {"Mexico", "México"},
}

// EntityResolver finds the subject's own listing and nearby competitor
// listings through the place-search adapter.
type EntityResolver struct {
	places        places.Client
	matcher       NameMatcher
	maxCandidates int
}

// NewEntityResolver builds a resolver. placesClient may be nil, in which
// case resolution degrades to warnings.
func NewEntityResolver(placesClient places.Client, matcher NameMatcher, maxCandidates int) *EntityResolver {
	if matcher == nil {
		matcher = NewContainmentMatcher(0)
	}
	if maxCandidates <= 0 {
		maxCandidates = 5
	}
	return &EntityResolver{places: placesClient, matcher: matcher, maxCandidates: maxCandidates}
}

// Resolve populates the record's SelfListing and Competitors. Any
// adapter error degrades to an empty result plus a warning; it never
// aborts the run.
func (r *EntityResolver) Resolve(ctx context.Context, rec *model.ResearchRecord) {
	if r.places == nil {
		rec.DataQuality.AddWarning("listings: place-search not configured, skipped")
		return
	}
	if rec.Location.Source == model.SourceUnresolved {
		rec.DataQuality.AddWarning("listings: skipped, location unresolved")
		return
	}
	r.resolveSelf(ctx, rec)
	r.resolveCompetitors(ctx, rec)
}

// resolveSelf issues one search for the subject name near its location
// and keeps the best fuzzy match among the top candidates. A listing is
// never fabricated: no acceptable match means no self-listing.
func (r *EntityResolver) resolveSelf(ctx context.Context, rec *model.ResearchRecord) {
	if rec.SubjectName == "" {
		rec.DataQuality.AddWarning("listings: no subject name, self-listing skipped")
		return
	}
	query := rec.SubjectName + " " + locationQuery(rec.Location)
	resp, err := r.places.TextSearch(ctx, query)
	if err != nil {
		rec.DataQuality.AddWarning("listings: self-listing search failed: " + err.Error())
		return
	}

	candidates := resp.Places
	if len(candidates) > r.maxCandidates {
		candidates = candidates[:r.maxCandidates]
	}

	var best *places.Place
	bestScore := 0.0
	for i := range candidates {
		name := candidates[i].DisplayName.Text
		if normalizeName(name) == normalizeName(rec.SubjectName) {
			best = &candidates[i]
			bestScore = 1
			break
		}
		if score := r.matcher.Score(name, rec.SubjectName); score > bestScore {
			best = &candidates[i]
			bestScore = score
		}
	}

	if best == nil || !r.matcher.Match(best.DisplayName.Text, rec.SubjectName) {
		rec.DataQuality.AddWarning("listings: no acceptable self-listing match found")
		return
	}
	rec.SelfListing = &model.SelfListing{
		Name:        best.DisplayName.Text,
		ReviewCount: best.UserRatingCount,
		Rating:      best.Rating,
		Address:     best.FormattedAddress,
	}
	zap.L().Info("listings: self-listing matched",
		zap.String("name", best.DisplayName.Text),
		zap.Float64("score", bestScore),
	)
}

// resolveCompetitors searches for peers by primary practice area and
// keeps listings that are not the subject, not generic, and not
// geographically mismatched.
func (r *EntityResolver) resolveCompetitors(ctx context.Context, rec *model.ResearchRecord) {
	role := "law firm"
	query := role + " " + locationQuery(rec.Location)
	if len(rec.PracticeAreas) > 0 {
		query = rec.PracticeAreas[0] + " " + query
	}

	resp, err := r.places.TextSearch(ctx, query)
	if err != nil {
		rec.DataQuality.AddWarning("listings: competitor search failed: " + err.Error())
		return
	}

	markers := countryMarkers[strings.ToUpper(rec.Location.Country)]
	seen := make(map[string]bool)
	for _, p := range resp.Places {
		if len(rec.Competitors) >= model.MaxCompetitors {
			break
		}
		name := strings.TrimSpace(p.DisplayName.Text)
		if name == "" || genericTerms[strings.ToLower(name)] {
			continue
		}
		if rec.SubjectName != "" && r.matcher.Match(name, rec.SubjectName) {
			continue
		}
		if len(markers) > 0 && !addressMatchesCountry(p.FormattedAddress, markers) {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		rec.Competitors = append(rec.Competitors, model.CompetitorListing{
			Name:        name,
			ReviewCount: p.UserRatingCount,
			Rating:      p.Rating,
			Address:     p.FormattedAddress,
		})
	}

	if len(rec.Competitors) == 0 {
		rec.DataQuality.AddWarning("listings: no competitors found")
	}
	zap.L().Info("listings: competitors resolved", zap.Int("count", len(rec.Competitors)))
}

func addressMatchesCountry(address string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(address, m) {
			return true
		}
	}
	return false
}

// locationQuery renders a location as a human-readable search suffix,
// expanding US region codes to full state names.
func locationQuery(loc model.Location) string {
	region := loc.Region
	if strings.EqualFold(loc.Country, "US") || loc.Country == "" {
		if full, ok := usStateNames[strings.ToUpper(region)]; ok {
			region = full
		}
	}
	switch {
	case loc.City != "" && region != "":
		return fmt.Sprintf("%s, %s", loc.City, region)
	case loc.City != "":
		return loc.City
	default:
		return region
	}
}
