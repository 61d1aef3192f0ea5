package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/firm-research/internal/model"
	"github.com/sells-group/firm-research/pkg/geocode"
)

type fakeGeocoder struct {
	result *geocode.Result
	err    error
	calls  int
}

func (f *fakeGeocoder) Validate(_ context.Context, _ geocode.LocationInput) (*geocode.Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func TestResolveValidatedHintUnchanged(t *testing.T) {
	gc := &fakeGeocoder{result: &geocode.Result{
		City: "McLean", Region: "VA", Country: "US", Confidence: 0.9, Matched: true,
	}}
	r := NewLocationResolver(gc, 0.7)
	rec := model.NewResearchRecord(model.Subject{})

	r.Resolve(context.Background(), rec, model.Subject{City: "McLean", Region: "VA", Country: "US"}, nil)

	assert.Equal(t, model.SourceExternalValidated, rec.Location.Source)
	assert.Equal(t, 10, rec.Location.Confidence)
	assert.Equal(t, "McLean", rec.Location.City)
	assert.Empty(t, rec.DataQuality.Warnings)
	assert.Equal(t, 10, rec.DataQuality.Confidence[model.ConfLocation])
}

func TestResolveValidatedHintCorrected(t *testing.T) {
	gc := &fakeGeocoder{result: &geocode.Result{
		City: "Phoenix", Region: "AZ", Country: "US", Confidence: 0.9, Matched: true,
	}}
	r := NewLocationResolver(gc, 0.7)
	rec := model.NewResearchRecord(model.Subject{})

	r.Resolve(context.Background(), rec, model.Subject{City: "Pheonix", Region: "AZ"}, nil)

	assert.Equal(t, "Phoenix", rec.Location.City)
	assert.Equal(t, model.SourceExternalValidated, rec.Location.Source)
	require.Len(t, rec.DataQuality.Warnings, 1)
	assert.Contains(t, rec.DataQuality.Warnings[0], "Pheonix")
	assert.Contains(t, rec.DataQuality.Warnings[0], "Phoenix")
}

func TestResolveHintKeptVerbatimOnTransportError(t *testing.T) {
	gc := &fakeGeocoder{err: fmt.Errorf("dial timeout")}
	r := NewLocationResolver(gc, 0.7)
	rec := model.NewResearchRecord(model.Subject{})

	r.Resolve(context.Background(), rec, model.Subject{City: "Tulsa", Region: "OK"}, nil)

	assert.Equal(t, model.SourceExternal, rec.Location.Source)
	assert.Equal(t, 6, rec.Location.Confidence)
	assert.Equal(t, "Tulsa", rec.Location.City)
}

func TestResolveHintKeptVerbatimOnLowConfidence(t *testing.T) {
	gc := &fakeGeocoder{result: &geocode.Result{
		City: "Somewhere", Confidence: 0.3, Matched: true,
	}}
	r := NewLocationResolver(gc, 0.7)
	rec := model.NewResearchRecord(model.Subject{})

	r.Resolve(context.Background(), rec, model.Subject{City: "Tulsa"}, nil)

	assert.Equal(t, model.SourceExternal, rec.Location.Source)
	assert.Equal(t, "Tulsa", rec.Location.City)
}

func TestResolveScrapedCandidateValidated(t *testing.T) {
	gc := &fakeGeocoder{result: &geocode.Result{
		City: "Denver", Region: "CO", Country: "US", Confidence: 0.9, Matched: true,
	}}
	r := NewLocationResolver(gc, 0.7)
	rec := model.NewResearchRecord(model.Subject{})

	candidates := []model.Location{
		{City: "Denver", Region: "CO", Country: "US"},
		{City: "Boulder", Region: "CO", Country: "US"},
	}
	r.Resolve(context.Background(), rec, model.Subject{}, candidates)

	assert.Equal(t, model.SourceScrapedValidated, rec.Location.Source)
	assert.Equal(t, 8, rec.Location.Confidence)
	assert.Equal(t, "Denver", rec.Location.City)
	// both candidates retained for audit
	assert.Len(t, rec.AllCandidates, 2)
}

func TestResolveScrapedCandidateUnvalidated(t *testing.T) {
	gc := &fakeGeocoder{result: &geocode.Result{Matched: false}}
	r := NewLocationResolver(gc, 0.7)
	rec := model.NewResearchRecord(model.Subject{})

	r.Resolve(context.Background(), rec, model.Subject{}, []model.Location{{City: "Denver", Region: "CO"}})

	assert.Equal(t, model.SourceScraped, rec.Location.Source)
	assert.Equal(t, 5, rec.Location.Confidence)
}

func TestResolveUnresolved(t *testing.T) {
	gc := &fakeGeocoder{}
	r := NewLocationResolver(gc, 0.7)
	rec := model.NewResearchRecord(model.Subject{})

	r.Resolve(context.Background(), rec, model.Subject{}, nil)

	assert.Equal(t, model.SourceUnresolved, rec.Location.Source)
	assert.Equal(t, 0, rec.Location.Confidence)
	assert.Contains(t, rec.DataQuality.MissingFields, "location")
	assert.Zero(t, gc.calls)
}

func TestResolveNilGeocoderDegrades(t *testing.T) {
	r := NewLocationResolver(nil, 0.7)
	rec := model.NewResearchRecord(model.Subject{})

	r.Resolve(context.Background(), rec, model.Subject{City: "Austin", Region: "TX"}, nil)

	assert.Equal(t, model.SourceExternal, rec.Location.Source)
	assert.Equal(t, "Austin", rec.Location.City)
}
