package pipeline

import (
	"context"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/firm-research/internal/config"
	"github.com/sells-group/firm-research/internal/model"
	"github.com/sells-group/firm-research/internal/scrape"
)

// Pipeline runs the full research workflow for one subject: discovery,
// categorization, extraction, location resolution, entity resolution,
// and the final quality gate. Stages run sequentially; each tolerates
// the previous stage's partial failure. Only an unreachable target site
// is fatal.
type Pipeline struct {
	chain      *scrape.Chain
	httpClient *http.Client
	location   *LocationResolver
	entity     *EntityResolver
	assist     *RosterAssist
	discovery  config.DiscoveryConfig
}

// New assembles a pipeline from its stage dependencies. httpClient is
// used for sitemap feed fetches; the chain renders pages.
func New(chain *scrape.Chain, httpClient *http.Client, location *LocationResolver, entity *EntityResolver, assist *RosterAssist, discovery config.DiscoveryConfig) *Pipeline {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Pipeline{
		chain:      chain,
		httpClient: httpClient,
		location:   location,
		entity:     entity,
		assist:     assist,
		discovery:  discovery,
	}
}

// Run executes the pipeline for one subject and returns the finished
// record. On fatal failure (target site unreachable) it returns an
// error and no record; every other failure is absorbed into the
// record's quality block. The scrape chain is released on every exit
// path.
func (p *Pipeline) Run(ctx context.Context, subject model.Subject) (*model.ResearchRecord, error) {
	defer p.chain.Close()

	log := zap.L().With(zap.String("url", subject.URL))
	log.Info("pipeline: run started")

	discovered, err := DiscoverPages(ctx, subject.URL, p.chain, p.httpClient, p.discovery)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: discovery")
	}

	rec := model.NewResearchRecord(subject)
	pages := CategorizePages(subject.URL, discovered.URLs)
	for _, role := range model.KeyRoles() {
		if pages.Best(role) == "" {
			rec.DataQuality.AddWarning("pages: missing key page: " + string(role))
		}
	}

	rendered := p.renderKeyPages(ctx, rec, pages, discovered.Homepage)

	p.extractFacts(ctx, rec, subject, rendered)

	candidates := scrapedLocationCandidates(rendered)
	p.location.Resolve(ctx, rec, subject, candidates)

	p.entity.Resolve(ctx, rec)

	Aggregate(rec)
	log.Info("pipeline: run complete",
		zap.Int("attorneys", len(rec.Attorneys)),
		zap.Int("practice_areas", len(rec.PracticeAreas)),
		zap.Int("competitors", len(rec.Competitors)),
	)
	return rec, nil
}

// renderKeyPages renders the best page per role, reusing the homepage
// render from discovery. A page that fails to render becomes a warning.
func (p *Pipeline) renderKeyPages(ctx context.Context, rec *model.ResearchRecord, pages CategorizedPages, homepage *model.RenderedPage) map[model.PageRole]*model.RenderedPage {
	rendered := make(map[model.PageRole]*model.RenderedPage)
	if homepage != nil {
		rendered[model.RoleHomepage] = homepage
	}

	for _, role := range model.KeyRoles() {
		target := pages.Best(role)
		if target == "" {
			continue
		}
		res, err := p.chain.Render(ctx, target)
		if err != nil {
			rec.DataQuality.AddWarning("pages: failed to load " + string(role) + " page")
			zap.L().Warn("pipeline: page render failed",
				zap.String("role", string(role)),
				zap.String("url", target),
				zap.Error(err),
			)
			continue
		}
		rendered[role] = &res.Page
	}
	return rendered
}

// extractFacts runs the pure extraction engine over every rendered page
// and mutates the record. Stages only add; nothing found earlier is
// dropped.
func (p *Pipeline) extractFacts(ctx context.Context, rec *model.ResearchRecord, subject model.Subject, rendered map[model.PageRole]*model.RenderedPage) {
	// Firm name: trust the hint, else fall back to the homepage title.
	hinted := subject.Name != ""
	if !hinted {
		if home := rendered[model.RoleHomepage]; home != nil && home.Title != "" {
			rec.SubjectName = cleanTitle(home.Title)
		}
	}
	rec.DataQuality.SetConfidence(model.ConfFirmName, FirmNameConfidence(hinted, rec.SubjectName != ""))

	order := append([]model.PageRole{model.RoleHomepage}, model.KeyRoles()...)

	// A supplied contact is trusted over anything scraped: seed the
	// roster with it, pulling a title from the page text when one
	// appears near the name.
	if contact := strings.TrimSpace(subject.Contact); contact != "" && plausibleName(contact) {
		att := model.Attorney{Name: contact}
		for _, role := range []model.PageRole{model.RoleTeam, model.RoleAbout, model.RoleHomepage} {
			if page := rendered[role]; page != nil {
				if title := titleNear(page.Content, contact); title != "" {
					att.Title = title
					break
				}
			}
		}
		rec.AddAttorney(att)
	}

	for _, role := range order {
		page := rendered[role]
		if page == nil {
			continue
		}
		rec.AddPracticeAreas(ExtractPracticeAreas(page.Content, rec.SubjectName))
		for _, a := range ExtractAttorneys(page.Content) {
			rec.AddAttorney(a)
		}
		for _, c := range ExtractCredentials(page.Content) {
			addCredential(rec, c)
		}
		if rec.FoundedYear == 0 {
			rec.FoundedYear = ExtractFoundingYear(page.Content)
		}
		if rec.FirmSize == 0 {
			rec.FirmSize = ExtractFirmSize(page.Content)
		}
	}

	if len(rec.Attorneys) == 0 && p.assist.Enabled() {
		p.rosterAssist(ctx, rec, rendered)
	}

	if len(rec.Attorneys) == 0 {
		rec.DataQuality.AddWarning("roster: no attorneys found on team page")
	}
	rec.DataQuality.SetConfidence(model.ConfAttorneys, RosterConfidence(len(rec.Attorneys)))
	rec.DataQuality.SetConfidence(model.ConfPracticeAreas, PracticeAreaConfidence(len(rec.PracticeAreas)))
}

// rosterAssist runs the text-extraction service over the team page (or
// the homepage when no team page rendered) as a last resort.
func (p *Pipeline) rosterAssist(ctx context.Context, rec *model.ResearchRecord, rendered map[model.PageRole]*model.RenderedPage) {
	page := rendered[model.RoleTeam]
	if page == nil {
		page = rendered[model.RoleHomepage]
	}
	if page == nil || page.Content == "" {
		return
	}
	roster, err := p.assist.Extract(ctx, page.Content)
	if err != nil {
		rec.DataQuality.AddWarning("roster: text-extraction assist failed")
		zap.L().Warn("pipeline: roster assist failed", zap.Error(err))
		return
	}
	for _, a := range roster {
		rec.AddAttorney(a)
	}
	if len(roster) > 0 {
		zap.L().Info("pipeline: roster assist recovered attorneys", zap.Int("count", len(roster)))
	}
}

// addCredential appends a credential sentence unless an identical one
// was already collected from another page.
func addCredential(rec *model.ResearchRecord, c string) {
	for _, existing := range rec.Credentials {
		if strings.EqualFold(existing, c) {
			return
		}
	}
	rec.Credentials = append(rec.Credentials, c)
}

// scrapedLocationCandidates unions location signals across pages,
// contact page first since addresses live there.
func scrapedLocationCandidates(rendered map[model.PageRole]*model.RenderedPage) []model.Location {
	order := []model.PageRole{
		model.RoleContact, model.RoleHomepage, model.RoleAbout,
		model.RoleTeam, model.RoleServices, model.RoleTestimonials,
	}
	seen := make(map[string]bool)
	var out []model.Location
	for _, role := range order {
		page := rendered[role]
		if page == nil {
			continue
		}
		for _, c := range ExtractLocationCandidates(page.Content) {
			key := strings.ToLower(c.City + "|" + c.Region)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, c)
		}
	}
	return out
}

// titleSeparators split a page title like "Smith Law | Denver Attorneys".
var titleSeparators = []string{" | ", " - ", " – ", " — ", " :: "}

func cleanTitle(title string) string {
	title = strings.TrimSpace(title)
	for _, sep := range titleSeparators {
		if idx := strings.Index(title, sep); idx > 0 {
			title = title[:idx]
			break
		}
	}
	return strings.TrimSpace(title)
}
