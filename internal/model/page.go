package model

// PageRole is the semantic role a discovered URL plays on the site.
type PageRole string

const (
	RoleHomepage     PageRole = "homepage"
	RoleAbout        PageRole = "about"
	RoleTeam         PageRole = "team"
	RoleContact      PageRole = "contact"
	RoleServices     PageRole = "services"
	RoleTestimonials PageRole = "testimonials"
)

// KeyRoles are the roles the categorizer tries to fill, in the order
// they are reported when missing.
func KeyRoles() []PageRole {
	return []PageRole{RoleAbout, RoleTeam, RoleContact, RoleServices, RoleTestimonials}
}

// RenderedPage is the fully-rendered text content of one page.
type RenderedPage struct {
	URL         string   `json:"url"`
	ResolvedURL string   `json:"resolved_url,omitempty"`
	Title       string   `json:"title,omitempty"`
	Content     string   `json:"content"`
	HTML        string   `json:"html,omitempty"`
	Links       []string `json:"links,omitempty"`
	StatusCode  int      `json:"status_code,omitempty"`
}
