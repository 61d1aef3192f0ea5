// Package model defines the research record produced by the pipeline.
package model

import "strings"

// Subject identifies the firm being researched. URL is required; the
// remaining fields are optional hints that, when present, are trusted as
// higher-confidence than anything scraped.
type Subject struct {
	URL     string `json:"url"`
	Name    string `json:"name,omitempty"`
	Contact string `json:"contact,omitempty"`
	City    string `json:"city,omitempty"`
	Region  string `json:"region,omitempty"`
	Country string `json:"country,omitempty"`
}

// LocationSource tags which source produced a location and whether it
// was independently validated.
type LocationSource string

const (
	SourceExternalValidated LocationSource = "externally-supplied-validated"
	SourceExternal          LocationSource = "externally-supplied"
	SourceScrapedValidated  LocationSource = "scraped-validated"
	SourceScraped           LocationSource = "scraped"
	SourceUnresolved        LocationSource = "unresolved"
)

// sourceConfidence is the fixed ranking table tying a location's
// confidence to its provenance.
var sourceConfidence = map[LocationSource]int{
	SourceExternalValidated: 10,
	SourceExternal:          6,
	SourceScrapedValidated:  8,
	SourceScraped:           5,
	SourceUnresolved:        0,
}

// ConfidenceFor returns the confidence score mandated for a source.
func ConfidenceFor(src LocationSource) int {
	return sourceConfidence[src]
}

// Location is a resolved or candidate firm location.
type Location struct {
	City       string         `json:"city,omitempty"`
	Region     string         `json:"region,omitempty"`
	Country    string         `json:"country,omitempty"`
	Source     LocationSource `json:"source"`
	Confidence int            `json:"confidence"`
}

// WithSource returns a copy of the location tagged with the given source
// and the confidence the ranking table mandates for it.
func (l Location) WithSource(src LocationSource) Location {
	l.Source = src
	l.Confidence = ConfidenceFor(src)
	return l
}

// Attorney is one roster entry. Identity is the lowercased name.
type Attorney struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
}

// SelfListing is the subject's own business listing, when found.
type SelfListing struct {
	Name        string  `json:"name"`
	ReviewCount int     `json:"review_count"`
	Rating      float64 `json:"rating"`
	Address     string  `json:"address,omitempty"`
}

// CompetitorListing is one nearby competitor listing.
type CompetitorListing struct {
	Name        string  `json:"name"`
	ReviewCount int     `json:"review_count"`
	Rating      float64 `json:"rating"`
	Address     string  `json:"address,omitempty"`
}

// DataQuality accumulates warnings, missing fields, and per-field
// confidence scores across all pipeline stages.
type DataQuality struct {
	MissingFields []string       `json:"missing_fields"`
	Warnings      []string       `json:"warnings"`
	Confidence    map[string]int `json:"confidence"`
}

// Confidence map keys. Overall is computed by ComputeOverall, never set
// directly.
const (
	ConfFirmName      = "firmName"
	ConfLocation      = "location"
	ConfAttorneys     = "attorneys"
	ConfPracticeAreas = "practiceAreas"
	ConfOverall       = "overall"
)

// AddWarning appends a warning, skipping exact duplicates.
func (q *DataQuality) AddWarning(msg string) {
	for _, w := range q.Warnings {
		if w == msg {
			return
		}
	}
	q.Warnings = append(q.Warnings, msg)
}

// AddMissing records a field with no signal at all.
func (q *DataQuality) AddMissing(field string) {
	for _, f := range q.MissingFields {
		if f == field {
			return
		}
	}
	q.MissingFields = append(q.MissingFields, field)
}

// SetConfidence records a per-field confidence score (0-10).
func (q *DataQuality) SetConfidence(key string, score int) {
	if q.Confidence == nil {
		q.Confidence = make(map[string]int)
	}
	q.Confidence[key] = score
}

// ComputeOverall sets the overall score to the rounded arithmetic mean
// of the four per-field scores.
func (q *DataQuality) ComputeOverall() {
	if q.Confidence == nil {
		q.Confidence = make(map[string]int)
	}
	sum := q.Confidence[ConfFirmName] +
		q.Confidence[ConfLocation] +
		q.Confidence[ConfAttorneys] +
		q.Confidence[ConfPracticeAreas]
	// Round half up: (sum + n/2) / n with n=4.
	q.Confidence[ConfOverall] = (sum + 2) / 4
}

// MaxAttorneys caps the roster size.
const MaxAttorneys = 20

// MaxCompetitors caps the competitor listing set.
const MaxCompetitors = 12

// ResearchRecord is the pipeline's sole artifact: one confidence-scored
// structured record per run. Stages only add information or append
// warnings; previously found facts are never dropped.
type ResearchRecord struct {
	SubjectName   string              `json:"subject_name"`
	Website       string              `json:"website"`
	Location      Location            `json:"location"`
	AllCandidates []Location          `json:"all_candidates,omitempty"`
	Attorneys     []Attorney          `json:"attorneys"`
	PracticeAreas []string            `json:"practice_areas"`
	Credentials   []string            `json:"credentials"`
	FoundedYear   int                 `json:"founded_year,omitempty"`
	FirmSize      int                 `json:"firm_size,omitempty"`
	SelfListing   *SelfListing        `json:"self_listing,omitempty"`
	Competitors   []CompetitorListing `json:"competitors"`
	DataQuality   DataQuality         `json:"data_quality"`
}

// NewResearchRecord creates the record with all-empty defaults.
func NewResearchRecord(subject Subject) *ResearchRecord {
	return &ResearchRecord{
		SubjectName: subject.Name,
		Website:     subject.URL,
		Location:    Location{Source: SourceUnresolved},
		DataQuality: DataQuality{Confidence: make(map[string]int)},
	}
}

// AddAttorney appends an attorney unless the roster already holds the
// same lowercased name or has hit its cap. Reports whether it was added.
func (r *ResearchRecord) AddAttorney(a Attorney) bool {
	if len(r.Attorneys) >= MaxAttorneys {
		return false
	}
	key := strings.ToLower(strings.TrimSpace(a.Name))
	if key == "" {
		return false
	}
	for _, existing := range r.Attorneys {
		if strings.ToLower(existing.Name) == key {
			return false
		}
	}
	r.Attorneys = append(r.Attorneys, a)
	return true
}

// AddPracticeAreas appends areas in the given order, deduplicated
// case-insensitively against what is already present.
func (r *ResearchRecord) AddPracticeAreas(areas []string) {
	seen := make(map[string]bool, len(r.PracticeAreas))
	for _, a := range r.PracticeAreas {
		seen[strings.ToLower(a)] = true
	}
	for _, a := range areas {
		if key := strings.ToLower(a); !seen[key] {
			seen[key] = true
			r.PracticeAreas = append(r.PracticeAreas, a)
		}
	}
}
