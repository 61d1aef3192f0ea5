package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/firm-research/internal/model"
	"github.com/sells-group/firm-research/pkg/geocode"
)

// Geocoder validates a candidate location against an external service.
type Geocoder interface {
	Validate(ctx context.Context, in geocode.LocationInput) (*geocode.Result, error)
}

// LocationResolver decides the canonical location for a record,
// reconciling an optional externally supplied hint against scraped
// candidates with a geocode validation pass.
type LocationResolver struct {
	geocoder      Geocoder
	minConfidence float64
}

// NewLocationResolver builds a resolver. geocoder may be nil, in which
// case every validation attempt degrades to the unvalidated outcome.
func NewLocationResolver(geocoder Geocoder, minConfidence float64) *LocationResolver {
	if minConfidence <= 0 {
		minConfidence = 0.7
	}
	return &LocationResolver{geocoder: geocoder, minConfidence: minConfidence}
}

// Resolve mutates the record's Location, confidence entry, and quality
// block. Outcomes are mutually exclusive, in precedence order: validated
// hint, unvalidated hint, validated scrape, unvalidated scrape,
// unresolved. Candidates must already be ordered by extraction
// precedence. Never returns an error: transport failures during
// validation are treated the same as low confidence.
func (r *LocationResolver) Resolve(ctx context.Context, rec *model.ResearchRecord, subject model.Subject, candidates []model.Location) {
	rec.AllCandidates = candidates

	if subject.City != "" {
		hint := model.Location{City: subject.City, Region: subject.Region, Country: subject.Country}
		validated := r.validate(ctx, hint)
		if validated != nil {
			if !strings.EqualFold(validated.City, hint.City) {
				rec.DataQuality.AddWarning(fmt.Sprintf(
					"location: supplied city %q corrected to %q by geocoding", hint.City, validated.City))
			}
			rec.Location = (*validated).WithSource(model.SourceExternalValidated)
		} else {
			// Keep the raw hint verbatim.
			rec.Location = hint.WithSource(model.SourceExternal)
		}
	} else if len(candidates) > 0 {
		best := candidates[0]
		validated := r.validate(ctx, best)
		if validated != nil {
			if !strings.EqualFold(validated.City, best.City) {
				rec.DataQuality.AddWarning(fmt.Sprintf(
					"location: scraped city %q corrected to %q by geocoding", best.City, validated.City))
			}
			rec.Location = (*validated).WithSource(model.SourceScrapedValidated)
		} else {
			rec.Location = best.WithSource(model.SourceScraped)
		}
	} else {
		rec.Location = model.Location{}.WithSource(model.SourceUnresolved)
		rec.DataQuality.AddMissing("location")
		rec.DataQuality.AddWarning("location: no hint supplied and no address signal scraped")
	}

	rec.DataQuality.SetConfidence(model.ConfLocation, rec.Location.Confidence)
	zap.L().Info("location: resolved",
		zap.String("city", rec.Location.City),
		zap.String("source", string(rec.Location.Source)),
		zap.Int("confidence", rec.Location.Confidence),
	)
}

// validate runs one bounded geocode call. Returns the normalized
// location on a confident match, or nil on any miss, low-confidence
// result, or transport error.
func (r *LocationResolver) validate(ctx context.Context, loc model.Location) *model.Location {
	if r.geocoder == nil {
		return nil
	}
	res, err := r.geocoder.Validate(ctx, geocode.LocationInput{
		City:    loc.City,
		Region:  loc.Region,
		Country: loc.Country,
	})
	if err != nil {
		zap.L().Warn("location: geocode validation failed", zap.Error(err))
		return nil
	}
	if !res.Matched || res.Confidence < r.minConfidence {
		zap.L().Debug("location: geocode result below threshold",
			zap.Bool("matched", res.Matched),
			zap.Float64("confidence", res.Confidence),
		)
		return nil
	}
	out := model.Location{City: res.City, Region: res.Region, Country: res.Country}
	if out.City == "" {
		out.City = loc.City
	}
	if out.Region == "" {
		out.Region = loc.Region
	}
	if out.Country == "" {
		out.Country = loc.Country
	}
	return &out
}
