package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/firm-research/internal/model"
)

func TestCategorizePages(t *testing.T) {
	base := "https://smithlaw.example"
	urls := []string{
		base + "/",
		base + "/about-us",
		base + "/our-team/jane-smith",
		base + "/our-team",
		base + "/contact",
		base + "/practice-areas/family-law",
		base + "/practice-areas",
		base + "/testimonials",
		base + "/blog/2024/new-hire",
	}

	cats := CategorizePages(base, urls)

	assert.Equal(t, base, cats.Best(model.RoleHomepage))
	assert.Equal(t, base+"/about-us", cats.Best(model.RoleAbout))
	// shallow team index outranks the deep bio page
	assert.Equal(t, base+"/our-team", cats.Best(model.RoleTeam))
	assert.Equal(t, base+"/contact", cats.Best(model.RoleContact))
	assert.Equal(t, base+"/practice-areas", cats.Best(model.RoleServices))
	assert.Equal(t, base+"/testimonials", cats.Best(model.RoleTestimonials))
}

func TestCategorizePagesMissingRoles(t *testing.T) {
	base := "https://solo.example"
	cats := CategorizePages(base, []string{base + "/blog"})

	assert.Empty(t, cats.Best(model.RoleTeam))
	assert.Empty(t, cats.Best(model.RoleServices))
	assert.Equal(t, base, cats.Best(model.RoleHomepage))
}

func TestClassifyURL(t *testing.T) {
	tests := []struct {
		url  string
		role model.PageRole
		ok   bool
	}{
		{"https://x.example/attorneys", model.RoleTeam, true},
		{"https://x.example/Who-We-Are", model.RoleAbout, true},
		{"https://x.example/offices/phoenix", model.RoleContact, true},
		{"https://x.example/", model.RoleHomepage, true},
		{"https://x.example/blog/post-1", "", false},
	}
	for _, tc := range tests {
		role, ok := classifyURL(tc.url)
		assert.Equal(t, tc.ok, ok, tc.url)
		assert.Equal(t, tc.role, role, tc.url)
	}
}
