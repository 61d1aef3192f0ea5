// Package pipeline orchestrates the multi-source firm research workflow.
package pipeline

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/beevik/etree"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/firm-research/internal/config"
	"github.com/sells-group/firm-research/internal/model"
	"github.com/sells-group/firm-research/internal/scrape"
)

// feedPaths are conventional sitemap locations, tried in order.
var feedPaths = []string{
	"/sitemap.xml",
	"/sitemap_index.xml",
	"/sitemap-index.xml",
	"/wp-sitemap.xml",
	"/page-sitemap.xml",
}

// DiscoveryResult holds the URLs worth analyzing plus the rendered
// homepage (reused downstream for extraction).
type DiscoveryResult struct {
	URLs     []string
	Homepage *model.RenderedPage
	Source   string // "sitemap" or "homepage"
}

// DiscoverPages finds the deduplicated set of same-origin URLs on the
// target site, preferring a sitemap feed and falling back to homepage
// anchors. It only fails when both the sitemap attempts and the homepage
// render fail to load at all — that is the run's single fatal condition.
func DiscoverPages(ctx context.Context, baseURL string, chain *scrape.Chain, httpClient *http.Client, cfg config.DiscoveryConfig) (*DiscoveryResult, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil, eris.Wrapf(err, "discover: invalid base url %s", baseURL)
	}
	log := zap.L().With(zap.String("site", base.Host))

	feedTimeout := time.Duration(cfg.FeedTimeoutSecs) * time.Second
	if feedTimeout <= 0 {
		feedTimeout = 10 * time.Second
	}
	maxSubFeeds := cfg.MaxSubFeeds
	if maxSubFeeds <= 0 {
		maxSubFeeds = 5
	}

	sitemapURLs := discoverFromFeeds(ctx, base, httpClient, feedTimeout, maxSubFeeds, log)

	// The homepage is always rendered: it feeds fact extraction and is
	// the fallback URL source when no feed parses.
	homepage, renderErr := chain.Render(ctx, baseURL)
	if renderErr != nil {
		log.Warn("discover: homepage render failed", zap.Error(renderErr))
	}

	if len(sitemapURLs) == 0 && renderErr != nil {
		return nil, eris.Wrap(renderErr, "discover: site unreachable")
	}

	result := &DiscoveryResult{}
	if homepage != nil {
		result.Homepage = &homepage.Page
	}

	if len(sitemapURLs) > 0 {
		result.Source = "sitemap"
		result.URLs = sameOriginDedup(base, sitemapURLs, cfg.MaxPages)
	} else {
		result.Source = "homepage"
		result.URLs = sameOriginDedup(base, homepageLinks(base, &homepage.Page), cfg.MaxPages)
	}

	log.Info("discover: complete",
		zap.String("source", result.Source),
		zap.Int("urls", len(result.URLs)),
	)
	return result, nil
}

// discoverFromFeeds tries each conventional feed path, with and without
// a www. host prefix. The first feed that parses to any URLs wins. Every
// fetch failure is swallowed: sitemaps are an optimization, not a
// requirement.
func discoverFromFeeds(ctx context.Context, base *url.URL, httpClient *http.Client, timeout time.Duration, maxSubFeeds int, log *zap.Logger) []string {
	for _, host := range hostVariants(base.Host) {
		for _, path := range feedPaths {
			feedURL := base.Scheme + "://" + host + path
			urls, err := fetchFeed(ctx, httpClient, feedURL, timeout, maxSubFeeds)
			if err != nil {
				log.Debug("discover: feed attempt failed",
					zap.String("feed", feedURL),
					zap.Error(err),
				)
				continue
			}
			if len(urls) > 0 {
				log.Debug("discover: feed parsed",
					zap.String("feed", feedURL),
					zap.Int("urls", len(urls)),
				)
				return urls
			}
		}
	}
	return nil
}

// hostVariants returns the host as given plus its www-toggled twin.
func hostVariants(host string) []string {
	if strings.HasPrefix(host, "www.") {
		return []string{host, strings.TrimPrefix(host, "www.")}
	}
	return []string{host, "www." + host}
}

// fetchFeed fetches and parses one sitemap feed. An index-of-feeds is
// expanded up to maxSubFeeds sub-feeds, their URL sets unioned.
func fetchFeed(ctx context.Context, httpClient *http.Client, feedURL string, timeout time.Duration, maxSubFeeds int) ([]string, error) {
	root, err := fetchXML(ctx, httpClient, feedURL, timeout)
	if err != nil {
		return nil, err
	}

	if root.Tag == "sitemapindex" {
		var all []string
		expanded := 0
		for _, sm := range root.SelectElements("sitemap") {
			if expanded >= maxSubFeeds {
				break
			}
			loc := sm.SelectElement("loc")
			if loc == nil {
				continue
			}
			subURL := strings.TrimSpace(loc.Text())
			if subURL == "" {
				continue
			}
			expanded++
			subRoot, subErr := fetchXML(ctx, httpClient, subURL, timeout)
			if subErr != nil {
				zap.L().Debug("discover: sub-feed fetch failed",
					zap.String("feed", subURL),
					zap.Error(subErr),
				)
				continue
			}
			all = append(all, parseURLSet(subRoot)...)
		}
		return all, nil
	}

	return parseURLSet(root), nil
}

// fetchXML fetches a URL with its own timeout and parses the body as XML.
func fetchXML(ctx context.Context, httpClient *http.Client, target string, timeout time.Duration) (*etree.Element, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, eris.Wrap(err, "discover: create feed request")
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "discover: fetch feed")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("discover: feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, eris.Wrap(err, "discover: read feed body")
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, eris.Wrap(err, "discover: parse feed xml")
	}
	root := doc.Root()
	if root == nil {
		return nil, eris.New("discover: empty feed xml")
	}
	return root, nil
}

// parseURLSet extracts locs from a <urlset> element.
func parseURLSet(root *etree.Element) []string {
	var urls []string
	for _, el := range root.SelectElements("url") {
		loc := el.SelectElement("loc")
		if loc == nil {
			continue
		}
		if u := strings.TrimSpace(loc.Text()); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// homepageLinks collects candidate URLs from a rendered homepage: the
// renderer's link list when present, else anchors parsed out of the HTML.
func homepageLinks(base *url.URL, page *model.RenderedPage) []string {
	if page == nil {
		return nil
	}
	if len(page.Links) > 0 {
		return page.Links
	}
	if page.HTML == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		zap.L().Debug("discover: homepage html parse failed", zap.Error(err))
		return nil
	}

	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "mailto:") || strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "javascript:") {
			return
		}
		ref, parseErr := url.Parse(href)
		if parseErr != nil {
			return
		}
		links = append(links, base.ResolveReference(ref).String())
	})
	return links
}

// sameOriginDedup filters to same-origin URLs (www-insensitive) and
// deduplicates preserving first-seen order. maxPages caps the result;
// zero means unlimited.
func sameOriginDedup(base *url.URL, urls []string, maxPages int) []string {
	baseHost := strings.TrimPrefix(strings.ToLower(base.Host), "www.")
	seen := make(map[string]bool, len(urls))
	var out []string
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" {
			continue
		}
		if strings.TrimPrefix(strings.ToLower(u.Host), "www.") != baseHost {
			continue
		}
		u.Fragment = ""
		key := u.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
		if maxPages > 0 && len(out) >= maxPages {
			break
		}
	}
	return out
}
