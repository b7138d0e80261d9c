package extract_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pricelens/core/internal/extract"
)

func newExtractor() *extract.Extractor {
	return extract.New(extract.Config{FetchTimeout: 5 * time.Second, MaxHTMLLength: 1_000_000})
}

func TestExtractOKWithMultiplePriceMentions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><head><title>Pricing</title></head><body>
			<h1>Starter Plan</h1><p>$19 / month</p>
			<h1>Pro Plan</h1><p>$49 per month</p>
			<h1>Enterprise Plan</h1><p>$99 per month or Contact Sales</p>
		</body></html>`))
	}))
	defer server.Close()

	result := newExtractor().Extract(context.Background(), server.URL)
	assert.Equal(t, extract.StatusOK, result.Status)
	assert.GreaterOrEqual(t, len(result.PricingPayload.PriceMentions), 2)
	assert.Equal(t, 0.90, result.Confidence)
	assert.True(t, result.IsVerified)
	assert.NotEmpty(t, result.ContentHash)
}

func TestExtractBlockedOnStatusCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	result := newExtractor().Extract(context.Background(), server.URL)
	assert.Equal(t, extract.StatusBlocked, result.Status)
}

func TestExtractManualNeededOnNonHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	result := newExtractor().Extract(context.Background(), server.URL)
	assert.Equal(t, extract.StatusManualNeeded, result.Status)
}

func TestExtractBlockedOnBotDictionaryHit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>Please complete the CAPTCHA to continue</body></html>`))
	}))
	defer server.Close()

	result := newExtractor().Extract(context.Background(), server.URL)
	assert.Equal(t, extract.StatusBlocked, result.Status)
}

func TestExtractManualNeededWhenNoSignals(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html><body>Welcome to our blog about cats.</body></html>`))
	}))
	defer server.Close()

	result := newExtractor().Extract(context.Background(), server.URL)
	assert.Equal(t, extract.StatusManualNeeded, result.Status)
	assert.Equal(t, float64(0), result.Confidence)
}

func TestExtractInvalidURL(t *testing.T) {
	result := newExtractor().Extract(context.Background(), "")
	assert.Equal(t, extract.StatusManualNeeded, result.Status)
}
