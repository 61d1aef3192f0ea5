package pipeline

import (
	"net/url"
	"sort"
	"strings"

	"github.com/sells-group/firm-research/internal/model"
)

// roleSignals maps URL-path tokens to page roles. Longer, more specific
// tokens are listed so a path like /our-team/jane matches team.
var roleSignals = map[model.PageRole][]string{
	model.RoleAbout: {
		"about", "about-us", "aboutus", "who-we-are", "our-firm", "firm-overview",
		"nosotros", "sobre-nosotros", "quienes-somos", "la-firma",
	},
	model.RoleTeam: {
		"team", "our-team", "attorneys", "attorney", "lawyers", "lawyer",
		"our-people", "people", "staff", "professionals", "our-attorneys",
		"equipo", "nuestro-equipo", "abogados",
	},
	model.RoleContact: {
		"contact", "contact-us", "contactus", "locations", "location", "offices",
		"contacto", "contactenos", "oficinas",
	},
	model.RoleServices: {
		"practice-areas", "practice-area", "practices", "services", "what-we-do",
		"areas-of-practice", "legal-services",
		"servicios", "areas-de-practica", "practicas",
	},
	model.RoleTestimonials: {
		"testimonials", "reviews", "results", "case-results", "success-stories",
		"testimonios", "resultados",
	},
}

// CategorizedPages indexes candidate URLs per role, each list ordered by
// match specificity (shallower paths first).
type CategorizedPages map[model.PageRole][]string

// CategorizePages assigns each discovered URL to at most one role based
// on its path segments. The homepage role always maps to the base URL.
func CategorizePages(baseURL string, urls []string) CategorizedPages {
	out := CategorizedPages{
		model.RoleHomepage: {baseURL},
	}
	for _, raw := range urls {
		role, ok := classifyURL(raw)
		if !ok {
			continue
		}
		out[role] = append(out[role], raw)
	}
	// Shallower paths are better role representatives than deep children:
	// /our-team beats /our-team/jane-smith.
	for role, list := range out {
		sort.SliceStable(list, func(i, j int) bool {
			return pathDepth(list[i]) < pathDepth(list[j])
		})
		out[role] = list
	}
	return out
}

// Best returns the top candidate URL for a role, or "" when none matched.
func (c CategorizedPages) Best(role model.PageRole) string {
	if list := c[role]; len(list) > 0 {
		return list[0]
	}
	return ""
}

func classifyURL(raw string) (model.PageRole, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	path := strings.ToLower(strings.Trim(u.Path, "/"))
	if path == "" {
		return model.RoleHomepage, true
	}
	segments := strings.Split(path, "/")

	// Check roles in a fixed priority order so a URL matching several
	// signals lands deterministically.
	for _, role := range model.KeyRoles() {
		for _, token := range roleSignals[role] {
			for _, seg := range segments {
				if seg == token {
					return role, true
				}
			}
		}
	}
	return "", false
}

func pathDepth(raw string) int {
	u, err := url.Parse(raw)
	if err != nil {
		return 99
	}
	trimmed := strings.Trim(u.Path, "/")
	if trimmed == "" {
		return 0
	}
	return strings.Count(trimmed, "/") + 1
}
