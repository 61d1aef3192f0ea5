package pipeline

import (
	"go.uber.org/zap"

	"github.com/sells-group/firm-research/internal/model"
)

// FirmNameConfidence scores the firm name by provenance: a supplied
// hint outranks a scraped page title, which outranks nothing.
func FirmNameConfidence(hinted, scraped bool) int {
	switch {
	case hinted:
		return 9
	case scraped:
		return 6
	default:
		return 2
	}
}

// PracticeAreaConfidence scores the practice-area list by how many
// distinct areas were detected.
func PracticeAreaConfidence(n int) int {
	switch {
	case n >= 3:
		return 8
	case n >= 1:
		return 6
	default:
		return 2
	}
}

// Aggregate is the quality gate, run last. It fills in any per-field
// confidence a stage failed to set, records missing fields, and computes
// the overall score as the rounded mean of the four field scores.
func Aggregate(rec *model.ResearchRecord) {
	q := &rec.DataQuality

	ensureConfidence(q, model.ConfFirmName, FirmNameConfidence(false, rec.SubjectName != ""))
	ensureConfidence(q, model.ConfLocation, model.ConfidenceFor(rec.Location.Source))
	ensureConfidence(q, model.ConfAttorneys, RosterConfidence(len(rec.Attorneys)))
	ensureConfidence(q, model.ConfPracticeAreas, PracticeAreaConfidence(len(rec.PracticeAreas)))

	if rec.SubjectName == "" {
		q.AddMissing("firmName")
	}
	if len(rec.Attorneys) == 0 {
		q.AddMissing("attorneys")
	}
	if len(rec.PracticeAreas) == 0 {
		q.AddMissing("practiceAreas")
	}
	if rec.Location.Source == model.SourceUnresolved {
		q.AddMissing("location")
	}

	q.ComputeOverall()
	zap.L().Info("aggregate: quality gate complete",
		zap.Int("overall", q.Confidence[model.ConfOverall]),
		zap.Int("warnings", len(q.Warnings)),
		zap.Int("missing", len(q.MissingFields)),
	)
}

func ensureConfidence(q *model.DataQuality, key string, fallback int) {
	if _, ok := q.Confidence[key]; !ok {
		q.SetConfidence(key, fallback)
	}
}
