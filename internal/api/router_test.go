package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/pricelens/core/internal/apperr"
	"github.com/pricelens/core/internal/models"
)

func TestWriteErrorRendersAppErrorEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	writeError(c, apperr.NewConflict("lease_active", "an active crawl lease is in progress"))

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "lease_active")
	assert.Contains(t, w.Body.String(), "\"retryable\":false")
}

func TestWriteErrorWrapsOpaqueErrorsAsInternal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	writeError(c, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestWriteErrorSetsRetryAfterHeaderWhenPresent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	writeError(c, apperr.NewRateLimited("rate_limited", "too many requests", 30*time.Second))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))
}

func TestCurrentUserIDPanicsWithoutAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	assert.Panics(t, func() { currentUserID(c) })
}

func TestCurrentUserIDReturnsSetUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(contextUserIDKey, "user-123")

	assert.Equal(t, "user-123", currentUserID(c))
}

func TestStatusClassBuckets(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(200))
	assert.Equal(t, "3xx", statusClass(301))
	assert.Equal(t, "4xx", statusClass(404))
	assert.Equal(t, "5xx", statusClass(500))
}

func TestTrialViewReportsActiveOnlyWithinWindow(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	active := trialView(models.User{TrialStatus: models.TrialActive, TrialEndsAt: &future}, now)
	assert.Equal(t, true, active["isActive"])

	expired := trialView(models.User{TrialStatus: models.TrialActive, TrialEndsAt: &past}, now)
	assert.Equal(t, false, expired["isActive"])
}

func TestResolveDomainPrefersExplicitDomain(t *testing.T) {
	domain := "example.com"
	req := createCompanyRequest{Domain: &domain}
	assert.Equal(t, "example.com", resolveDomain(req))
}

func TestResolveDomainFallsBackToHomepageURL(t *testing.T) {
	homepage := "https://www.example.com/home"
	req := createCompanyRequest{HomepageURL: &homepage}
	assert.Equal(t, "example.com", resolveDomain(req))
}

func TestResolveDomainReturnsEmptyWhenNoFieldsGiveADomain(t *testing.T) {
	req := createCompanyRequest{}
	assert.Equal(t, "", resolveDomain(req))
}
