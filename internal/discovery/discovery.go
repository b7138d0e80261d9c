// Package discovery implements the homepage pricing-URL discovery and
// candidate-merge semantics from spec.md §4.9 and §4.10.
package discovery

import (
	"context"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"

	"github.com/pricelens/core/internal/models"
	"github.com/pricelens/core/internal/normalize"
)

const userAgent = "PriceLensBot/1.0 (+https://pricelens.example/bot)"

var (
	positivePathPattern = regexp.MustCompile(`(?i)/pricing|/plans?`)
	negativePathPattern = regexp.MustCompile(`(?i)/blog|/docs|/legal|/login`)
	assetExtension       = regexp.MustCompile(`(?i)\.(png|jpe?g|gif|svg|css|js|pdf|ico|woff2?)$`)

	positiveTextTokens = []string{"pricing", "plans", "free trial"}
	negativeTextTokens = []string{"blog", "docs", "login"}
)

// Result is the discovery outcome for one homepage.
type Result struct {
	Candidates           []models.PricingURLCandidate
	RecommendedPrimaryURL *string
}

// Config controls discovery's transport and the primary-URL recommendation
// thresholds. The exact threshold/gap were left open by spec.md §4.9's
// "Open Question" and are externalized here rather than hard-coded.
type Config struct {
	FetchTimeout               time.Duration
	MaxHTMLLength              int
	PrimaryConfidenceThreshold float64
	PrimaryConfidenceGap       float64
}

// Discoverer fetches a homepage and scores candidate pricing-page links.
type Discoverer struct {
	client *resty.Client
	cfg    Config
}

// New builds a Discoverer using the same bounded-transport conventions
// as the pricing extractor (§4.4).
func New(cfg Config) *Discoverer {
	client := resty.New()
	client.SetTimeout(cfg.FetchTimeout)
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "text/html,application/xhtml+xml")
	client.SetHeader("Cache-Control", "no-cache")
	return &Discoverer{client: client, cfg: cfg}
}

// Discover fetches homepageURL and scores every same-domain anchor as a
// pricing-page candidate, per spec.md §4.9.
func (d *Discoverer) Discover(ctx context.Context, homepageURL, allowedDomain string) (Result, error) {
	canonicalHomepage, ok := normalize.NormalizeURL(homepageURL)
	if !ok {
		return Result{}, nil
	}

	resp, err := d.client.R().SetContext(ctx).Get(canonicalHomepage)
	if err != nil {
		return Result{}, err
	}

	body := string(resp.Body())
	if len(body) > d.cfg.MaxHTMLLength {
		body = body[:d.cfg.MaxHTMLLength]
	}

	anchors := extractAnchors(body)
	base, err := url.Parse(canonicalHomepage)
	if err != nil {
		return Result{}, err
	}

	scored := make(map[string]models.PricingURLCandidate)
	for _, a := range anchors {
		resolved, ok := resolveAnchor(base, a.href)
		if !ok {
			continue
		}
		if !normalize.MatchesDomain(resolved, allowedDomain) {
			continue
		}
		confidence := score(resolved, a.text)
		if confidence < 0.35 {
			continue
		}
		existing, present := scored[resolved]
		if !present || confidence > existing.Confidence {
			scored[resolved] = models.PricingURLCandidate{URL: resolved, Confidence: confidence}
		}
	}

	candidates := make([]models.PricingURLCandidate, 0, len(scored))
	for _, c := range scored {
		candidates = append(candidates, c)
	}
	models.SortCandidates(candidates)
	if len(candidates) > 8 {
		candidates = candidates[:8]
	}

	result := Result{Candidates: candidates}
	if len(candidates) > 0 && candidates[0].Confidence >= d.cfg.PrimaryConfidenceThreshold {
		runnerUp := 0.0
		if len(candidates) > 1 {
			runnerUp = candidates[1].Confidence
		}
		if candidates[0].Confidence-runnerUp >= d.cfg.PrimaryConfidenceGap {
			primary := candidates[0].URL
			result.RecommendedPrimaryURL = &primary
		}
	}
	return result, nil
}

type anchor struct {
	href string
	text string
}

func extractAnchors(body string) []anchor {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil
	}
	var anchors []anchor
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			var href string
			for _, attr := range n.Attr {
				if attr.Key == "href" {
					href = attr.Val
					break
				}
			}
			if href != "" {
				anchors = append(anchors, anchor{href: href, text: innerText(n)})
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return anchors
}

func innerText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// resolveAnchor resolves href against base and rejects non-navigable
// schemes (mailto/tel/javascript/fragment-only), per spec.md §4.9.
func resolveAnchor(base *url.URL, href string) (string, bool) {
	trimmed := strings.TrimSpace(href)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", false
	}
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "tel:") || strings.HasPrefix(lower, "javascript:") {
		return "", false
	}

	ref, err := url.Parse(trimmed)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	return normalize.NormalizeURL(resolved.String())
}

// score implements spec.md §4.9's weighted path/anchor-text scoring: a
// bonus applies when both the path and the anchor text carry a positive
// signal, and the result is clamped to [0,1] and rounded to 2dp.
func score(candidateURL, anchorText string) float64 {
	lowerURL := strings.ToLower(candidateURL)
	lowerText := strings.ToLower(strings.TrimSpace(anchorText))

	var s float64
	pathPositive := positivePathPattern.MatchString(lowerURL)
	pathNegative := negativePathPattern.MatchString(lowerURL) || assetExtension.MatchString(lowerURL)
	textPositive := containsAny(lowerText, positiveTextTokens)
	textNegative := containsAny(lowerText, negativeTextTokens)

	if pathPositive {
		s += 0.55
	}
	if textPositive {
		s += 0.35
	}
	if pathNegative {
		s -= 0.6
	}
	if textNegative {
		s -= 0.4
	}
	if pathPositive && textPositive {
		s += 0.1
	}

	if s < 0 {
		s = 0
	}
	if s > 1 {
		s = 1
	}
	return round2(s)
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

// MergeCandidates implements spec.md §4.10: normalize each URL, union by
// URL, keep the maximum confidence seen, OR-reduce selectedByUser, and
// re-sort.
func MergeCandidates(sets ...[]models.PricingURLCandidate) []models.PricingURLCandidate {
	merged := make(map[string]models.PricingURLCandidate)
	for _, set := range sets {
		for _, c := range set {
			canonicalURL, ok := normalize.NormalizeURL(c.URL)
			if !ok {
				continue
			}
			existing, present := merged[canonicalURL]
			if !present {
				merged[canonicalURL] = models.PricingURLCandidate{
					URL:            canonicalURL,
					Confidence:     c.Confidence,
					SelectedByUser: c.SelectedByUser,
				}
				continue
			}
			if c.Confidence > existing.Confidence {
				existing.Confidence = c.Confidence
			}
			existing.SelectedByUser = existing.SelectedByUser || c.SelectedByUser
			merged[canonicalURL] = existing
		}
	}

	out := make([]models.PricingURLCandidate, 0, len(merged))
	for _, c := range merged {
		out = append(out, c)
	}
	models.SortCandidates(out)
	return out
}
