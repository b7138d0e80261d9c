package discovery_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pricelens/core/internal/discovery"
	"github.com/pricelens/core/internal/models"
)

func newDiscoverer() *discovery.Discoverer {
	return discovery.New(discovery.Config{
		FetchTimeout:               5 * time.Second,
		MaxHTMLLength:              1_000_000,
		PrimaryConfidenceThreshold: 0.86,
		PrimaryConfidenceGap:       0.08,
	})
}

func TestDiscoverRecommendsUnambiguousWinner(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>
			<a href="/pricing">Pricing</a>
			<a href="/blog">Blog</a>
			<a href="/docs/api.pdf">Docs</a>
		</body></html>`))
	}))
	defer server.Close()

	result, err := newDiscoverer().Discover(context.Background(), server.URL, extractHost(server.URL))
	assert.NoError(t, err)
	assert.NotEmpty(t, result.Candidates)
	assert.NotNil(t, result.RecommendedPrimaryURL)
}

func TestDiscoverDropsOffDomainAndNonNavigable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>
			<a href="mailto:hi@example.com">Email</a>
			<a href="#top">Top</a>
			<a href="https://elsewhere.example.com/pricing">Other pricing</a>
		</body></html>`))
	}))
	defer server.Close()

	result, err := newDiscoverer().Discover(context.Background(), server.URL, extractHost(server.URL))
	assert.NoError(t, err)
	assert.Empty(t, result.Candidates)
}

func TestMergeCandidatesKeepsMaxConfidenceAndOrsSelected(t *testing.T) {
	a := []models.PricingURLCandidate{{URL: "https://example.com/pricing", Confidence: 0.5}}
	b := []models.PricingURLCandidate{{URL: "https://example.com/pricing", Confidence: 0.9, SelectedByUser: true}}

	merged := discovery.MergeCandidates(a, b)
	assert.Len(t, merged, 1)
	assert.Equal(t, 0.9, merged[0].Confidence)
	assert.True(t, merged[0].SelectedByUser)
}

func extractHost(serverURL string) string {
	// httptest server URLs are like http://127.0.0.1:PORT
	host := serverURL
	if idx := indexAfterScheme(host); idx >= 0 {
		host = host[idx:]
	}
	return host
}

func indexAfterScheme(s string) int {
	for i := 0; i+2 < len(s); i++ {
		if s[i] == ':' && s[i+1] == '/' && s[i+2] == '/' {
			return i + 3
		}
	}
	return -1
}
