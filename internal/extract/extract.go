// Package extract implements the pricing extractor from spec.md §4.4: it
// fetches a pricing URL, classifies the outcome, scans the page text for
// price mentions and signal tokens, and scores a confidence.
package extract

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/net/html"

	"github.com/pricelens/core/internal/canonical"
	"github.com/pricelens/core/internal/models"
	"github.com/pricelens/core/internal/normalize"
)

// Status is the closed set of extractor outcomes.
type Status string

const (
	StatusOK           Status = "ok"
	StatusBlocked      Status = "blocked"
	StatusManualNeeded Status = "manual_needed"
	StatusError        Status = "error"
)

// Result is the extractor's output for one fetch attempt.
type Result struct {
	Status        Status
	ContentHash   string
	PricingPayload models.PricingPayload
	Confidence    float64
	IsVerified    bool
	CaptureMethod models.CaptureMethod
	Error         string
}

const userAgent = "PriceLensBot/1.0 (+https://pricelens.example/bot)"

var botBlockTokens = []string{
	"captcha", "cloudflare", "access denied", "attention required",
	"verify you are human", "bot detection", "temporarily blocked",
}

var pricingSignalTokens = []string{
	"pricing", "plans", "per month", "monthly", "yearly", "annual", "billed", "free trial",
}

var customPricingSignalTokens = []string{
	"contact sales", "custom pricing", "talk to sales", "enterprise pricing", "request a quote", "book a demo",
}

var planNameHeading = regexp.MustCompile(`(?i)plan|pricing|starter|pro|business|enterprise`)

// priceMentionPattern recognizes an optional leading ISO code, an
// optional leading currency symbol, a numeric amount with thousands
// separators and up to 2 decimals, and an optional trailing period
// token, per spec.md §4.4 step 5.
var priceMentionPattern = regexp.MustCompile(
	`(?i)(USD|EUR|GBP|CAD|AUD|JPY)?\s?([$€£¥])?\s?(\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?)\s*(/\s*day|/\s*week|/\s*month|/\s*year|per\s*month|per\s*week|per\s*year|per\s*day|monthly|yearly|annual(?:ly)?|mo\b|once|one[- ]time)?`,
)

var symbolToCurrency = map[string]string{
	"$": "USD", "€": "EUR", "£": "GBP", "¥": "JPY",
}

var periodTokenMap = map[string]models.Period{
	"/day": models.PeriodDay, "per day": models.PeriodDay,
	"/week": models.PeriodWeek, "per week": models.PeriodWeek,
	"/month": models.PeriodMonth, "per month": models.PeriodMonth, "monthly": models.PeriodMonth, "mo": models.PeriodMonth,
	"/year": models.PeriodYear, "per year": models.PeriodYear, "yearly": models.PeriodYear, "annual": models.PeriodYear, "annually": models.PeriodYear,
	"once": models.PeriodOneTime, "one-time": models.PeriodOneTime, "one time": models.PeriodOneTime,
}

// Extractor fetches and parses pricing pages. A single Extractor is safe
// for concurrent use, like the resty.Client it wraps.
type Extractor struct {
	client        *resty.Client
	maxHTMLLength int
}

// Config controls the bounded HTTP client the extractor uses.
type Config struct {
	FetchTimeout  time.Duration
	MaxHTMLLength int
}

// New builds an Extractor with a bounded, redirect-following HTTP
// client carrying a fixed User-Agent, mirroring the teacher's
// resty-client construction in gds_service.go.
func New(cfg Config) *Extractor {
	client := resty.New()
	client.SetTimeout(cfg.FetchTimeout)
	client.SetHeader("User-Agent", userAgent)
	client.SetHeader("Accept", "text/html,application/xhtml+xml")
	client.SetHeader("Cache-Control", "no-cache")

	return &Extractor{client: client, maxHTMLLength: cfg.MaxHTMLLength}
}

// Extract runs the procedure from spec.md §4.4.
func (e *Extractor) Extract(ctx context.Context, rawURL string) Result {
	canonicalURL, ok := normalize.NormalizeURL(rawURL)
	if !ok {
		return Result{Status: StatusManualNeeded, CaptureMethod: models.CaptureStatic, Error: "invalid pricing URL"}
	}

	resp, err := e.client.R().SetContext(ctx).Get(canonicalURL)
	if err != nil {
		if ctx.Err() != nil || isTimeout(err) {
			return Result{Status: StatusError, CaptureMethod: models.CaptureStatic, Error: "Request timed out"}
		}
		return Result{Status: StatusError, CaptureMethod: models.CaptureStatic, Error: err.Error()}
	}

	switch resp.StatusCode() {
	case 401, 403, 429:
		return Result{Status: StatusBlocked, CaptureMethod: models.CaptureStatic, Error: "blocked by upstream"}
	}
	if resp.StatusCode() >= 500 {
		return Result{Status: StatusError, CaptureMethod: models.CaptureStatic, Error: "upstream server error"}
	}
	if resp.StatusCode() >= 400 {
		return Result{Status: StatusManualNeeded, CaptureMethod: models.CaptureStatic, Error: "upstream client error"}
	}

	contentType := resp.Header().Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "text/html") {
		return Result{Status: StatusManualNeeded, CaptureMethod: models.CaptureStatic, Error: "non-HTML content type"}
	}

	body := string(resp.Body())
	if len(body) > e.maxHTMLLength {
		body = body[:e.maxHTMLLength]
	}

	text := normalize.StripHTMLToText(body)
	lowerText := strings.ToLower(text)

	if containsAny(lowerText, botBlockTokens) {
		return Result{Status: StatusBlocked, CaptureMethod: models.CaptureStatic, Error: "bot-block page detected"}
	}

	mentions := scanPriceMentions(text)
	hasPricingSignal := containsAny(lowerText, pricingSignalTokens)
	hasCustomPricingSignal := containsAny(lowerText, customPricingSignalTokens)
	planNames := extractPlanNames(body)

	confidence := scoreConfidence(mentions, hasPricingSignal, hasCustomPricingSignal)
	if confidence == 0 {
		return Result{Status: StatusManualNeeded, CaptureMethod: models.CaptureStatic, Error: "no pricing signals found"}
	}

	payload := canonical.Canonicalize(models.PricingPayload{
		SourceURL:          canonicalURL,
		PageTitle:          extractTitle(body),
		PlanNames:          planNames,
		PriceMentions:      mentions,
		CustomPricingHints: extractCustomPricingHints(lowerText),
	})

	contentHash := normalize.ContentHash(normalize.NormalizeHTMLForHash(body))
	isVerified := confidence >= 0.75 && len(payload.PriceMentions) > 0

	return Result{
		Status:        StatusOK,
		ContentHash:   contentHash,
		PricingPayload: payload,
		Confidence:    confidence,
		IsVerified:    isVerified,
		CaptureMethod: models.CaptureStatic,
	}
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// scoreConfidence implements spec.md §4.4 step 8.
func scoreConfidence(mentions []models.PriceMention, hasPricingSignal, hasCustomPricingSignal bool) float64 {
	switch {
	case len(mentions) >= 3:
		return 0.90
	case len(mentions) >= 1 && hasPricingSignal:
		return 0.78
	case len(mentions) >= 1:
		return 0.72
	case hasCustomPricingSignal:
		return 0.45
	case hasPricingSignal:
		return 0.40
	default:
		return 0
	}
}

func scanPriceMentions(text string) []models.PriceMention {
	matches := priceMentionPattern.FindAllStringSubmatch(text, -1)
	mentions := make([]models.PriceMention, 0, len(matches))
	for _, m := range matches {
		isoCode := strings.ToUpper(m[1])
		symbol := m[2]
		amountStr := strings.ReplaceAll(m[3], ",", "")
		periodToken := strings.ToLower(strings.TrimSpace(m[4]))

		amount, err := strconv.ParseFloat(amountStr, 64)
		if err != nil || amount <= 0 {
			continue
		}

		currency := isoCode
		if currency == "" {
			if mapped, ok := symbolToCurrency[symbol]; ok {
				currency = mapped
			}
		}
		if currency == "" {
			continue
		}

		period := models.PeriodUnknown
		normalizedToken := strings.ReplaceAll(periodToken, " ", "")
		for token, p := range periodTokenMap {
			if strings.ReplaceAll(token, " ", "") == normalizedToken {
				period = p
				break
			}
		}

		mentions = append(mentions, models.PriceMention{
			Amount:   decimal.NewFromFloat(amount),
			Currency: currency,
			Period:   period,
		})
	}
	return mentions
}

func extractCustomPricingHints(lowerText string) []string {
	var hints []string
	for _, token := range customPricingSignalTokens {
		if strings.Contains(lowerText, token) {
			hints = append(hints, token)
		}
	}
	return hints
}

// extractPlanNames walks the HTML tree for h1..h5 elements whose inner
// text matches the plan-signal pattern, per spec.md §4.4 step 7.
func extractPlanNames(body string) []string {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return nil
	}

	var names []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && isHeading(n.Data) {
			text := strings.TrimSpace(innerText(n))
			if planNameHeading.MatchString(text) {
				if len(text) > 80 {
					text = text[:80]
				}
				if text != "" {
					names = append(names, text)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return names
}

func isHeading(tag string) bool {
	switch tag {
	case "h1", "h2", "h3", "h4", "h5":
		return true
	}
	return false
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

func extractTitle(body string) string {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return ""
	}
	var title string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" {
			title = strings.TrimSpace(innerText(n))
			return
		}
		for c := n.FirstChild; c != nil && title == ""; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title
}
