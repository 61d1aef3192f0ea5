package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/firm-research/internal/model"
)

func TestAggregateOverallIsRoundedMean(t *testing.T) {
	rec := model.NewResearchRecord(model.Subject{Name: "Smith Law"})
	rec.DataQuality.SetConfidence(model.ConfFirmName, 9)
	rec.DataQuality.SetConfidence(model.ConfLocation, 10)
	rec.DataQuality.SetConfidence(model.ConfAttorneys, 7)
	rec.DataQuality.SetConfidence(model.ConfPracticeAreas, 6)

	Aggregate(rec)

	// recomputed independently: mean(9,10,7,6) = 8
	sum := 9 + 10 + 7 + 6
	want := (sum + 2) / 4
	assert.Equal(t, want, rec.DataQuality.Confidence[model.ConfOverall])
	assert.Equal(t, 8, rec.DataQuality.Confidence[model.ConfOverall])
}

func TestAggregateFillsUnsetScores(t *testing.T) {
	rec := model.NewResearchRecord(model.Subject{})
	rec.Location = model.Location{}.WithSource(model.SourceUnresolved)

	Aggregate(rec)

	conf := rec.DataQuality.Confidence
	assert.Equal(t, 2, conf[model.ConfFirmName])
	assert.Equal(t, 0, conf[model.ConfLocation])
	assert.Equal(t, 2, conf[model.ConfAttorneys])
	assert.Equal(t, 2, conf[model.ConfPracticeAreas])
	assert.Equal(t, 2, conf[model.ConfOverall]) // mean(2,0,2,2) rounded

	assert.Contains(t, rec.DataQuality.MissingFields, "firmName")
	assert.Contains(t, rec.DataQuality.MissingFields, "attorneys")
	assert.Contains(t, rec.DataQuality.MissingFields, "practiceAreas")
	assert.Contains(t, rec.DataQuality.MissingFields, "location")
}

func TestAggregateKeepsStageSetScores(t *testing.T) {
	rec := model.NewResearchRecord(model.Subject{Name: "Smith Law"})
	rec.DataQuality.SetConfidence(model.ConfAttorneys, 9)
	rec.Attorneys = nil // stage scored before roster was emptied elsewhere

	Aggregate(rec)

	assert.Equal(t, 9, rec.DataQuality.Confidence[model.ConfAttorneys])
}

func TestFirmNameConfidence(t *testing.T) {
	assert.Equal(t, 9, FirmNameConfidence(true, true))
	assert.Equal(t, 6, FirmNameConfidence(false, true))
	assert.Equal(t, 2, FirmNameConfidence(false, false))
}

func TestPracticeAreaConfidence(t *testing.T) {
	assert.Equal(t, 2, PracticeAreaConfidence(0))
	assert.Equal(t, 6, PracticeAreaConfidence(1))
	assert.Equal(t, 6, PracticeAreaConfidence(2))
	assert.Equal(t, 8, PracticeAreaConfidence(3))
	assert.Equal(t, 8, PracticeAreaConfidence(10))
}
