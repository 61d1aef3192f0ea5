package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfidenceFor(t *testing.T) {
	tests := []struct {
		source   LocationSource
		expected int
	}{
		{SourceExternalValidated, 10},
		{SourceExternal, 6},
		{SourceScrapedValidated, 8},
		{SourceScraped, 5},
		{SourceUnresolved, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ConfidenceFor(tt.source), "source=%s", tt.source)
	}
}

func TestLocationWithSource(t *testing.T) {
	loc := Location{City: "Phoenix", Region: "AZ", Country: "US"}

	tagged := loc.WithSource(SourceScrapedValidated)
	assert.Equal(t, SourceScrapedValidated, tagged.Source)
	assert.Equal(t, 8, tagged.Confidence)
	assert.Equal(t, "Phoenix", tagged.City)

	// Original is unchanged.
	assert.Empty(t, loc.Source)
}

func TestAddAttorney_DedupByLowercaseName(t *testing.T) {
	r := NewResearchRecord(Subject{URL: "https://example.com"})

	assert.True(t, r.AddAttorney(Attorney{Name: "Jane A. Smith", Title: "Partner"}))
	assert.False(t, r.AddAttorney(Attorney{Name: "jane a. smith", Title: "Associate"}))
	assert.False(t, r.AddAttorney(Attorney{Name: "  "}))

	assert.Len(t, r.Attorneys, 1)
	// First occurrence wins; later duplicates are dropped, not merged.
	assert.Equal(t, "Partner", r.Attorneys[0].Title)
}

func TestAddAttorney_Cap(t *testing.T) {
	r := NewResearchRecord(Subject{URL: "https://example.com"})
	names := []string{
		"Aaron Able", "Beth Baker", "Carl Cole", "Dana Drew", "Evan Ellis",
		"Faye Ford", "Gary Gray", "Hana Hill", "Ivan Irwin", "Jill James",
		"Kara King", "Liam Lowe", "Mona Marsh", "Nina North", "Omar Ortiz",
		"Pia Price", "Quinn Quill", "Rosa Reed", "Seth Stone", "Tara Tate",
	}
	for _, n := range names {
		assert.True(t, r.AddAttorney(Attorney{Name: n}))
	}
	assert.False(t, r.AddAttorney(Attorney{Name: "Uma Usher"}))
	assert.Len(t, r.Attorneys, MaxAttorneys)
}

func TestAddPracticeAreas_DedupPreservesOrder(t *testing.T) {
	r := NewResearchRecord(Subject{URL: "https://example.com"})
	r.AddPracticeAreas([]string{"Personal Injury", "Family Law"})
	r.AddPracticeAreas([]string{"family law", "Immigration"})

	assert.Equal(t, []string{"Personal Injury", "Family Law", "Immigration"}, r.PracticeAreas)
}

func TestDataQuality_ComputeOverall(t *testing.T) {
	tests := []struct {
		name     string
		scores   [4]int // firmName, location, attorneys, practiceAreas
		expected int
	}{
		{"all high", [4]int{9, 10, 9, 8}, 9},
		{"all zero", [4]int{0, 0, 0, 0}, 0},
		{"rounds half up", [4]int{9, 10, 7, 8}, 9}, // mean 8.5
		{"low half up", [4]int{2, 0, 2, 2}, 2},     // mean 1.5 -> 2
		{"mixed", [4]int{6, 10, 2, 6}, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &DataQuality{}
			q.SetConfidence(ConfFirmName, tt.scores[0])
			q.SetConfidence(ConfLocation, tt.scores[1])
			q.SetConfidence(ConfAttorneys, tt.scores[2])
			q.SetConfidence(ConfPracticeAreas, tt.scores[3])
			q.ComputeOverall()
			assert.Equal(t, tt.expected, q.Confidence[ConfOverall])
		})
	}
}

func TestDataQuality_AddWarningDedup(t *testing.T) {
	q := &DataQuality{}
	q.AddWarning("missing key page: team")
	q.AddWarning("missing key page: team")
	q.AddWarning("missing key page: about")
	assert.Equal(t, []string{"missing key page: team", "missing key page: about"}, q.Warnings)

	q.AddMissing("location")
	q.AddMissing("location")
	assert.Equal(t, []string{"location"}, q.MissingFields)
}
