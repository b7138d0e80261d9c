package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pricelens/core/internal/apperr"
	"github.com/pricelens/core/internal/discovery"
	"github.com/pricelens/core/internal/entitlements"
	"github.com/pricelens/core/internal/models"
	"github.com/pricelens/core/internal/normalize"
)

type createCompanyRequest struct {
	Name              string             `json:"name" binding:"required"`
	Type              models.CompanyType `json:"type" binding:"required"`
	Domain            *string            `json:"domain"`
	HomepageURL       *string            `json:"homepageUrl"`
	PrimaryPricingURL *string            `json:"primaryPricingUrl"`
}

// createCompanyHandler implements POST /companies (spec.md §6, §7).
func (s *Server) createCompanyHandler(c *gin.Context) {
	var req createCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.NewBadInput("invalid_body", err.Error()))
		return
	}
	if req.Type != models.CompanySelf && req.Type != models.CompanyCompetitor {
		writeError(c, apperr.NewBadInput("invalid_type", "type must be self or competitor"))
		return
	}
	if (req.Domain == nil || *req.Domain == "") && (req.HomepageURL == nil || *req.HomepageURL == "") && (req.PrimaryPricingURL == nil || *req.PrimaryPricingURL == "") {
		writeError(c, apperr.NewBadInput("missing_url_field", "at least one of domain, homepageUrl, primaryPricingUrl is required"))
		return
	}

	userID := currentUserID(c)
	now := time.Now().UTC()
	domain := resolveDomain(req)
	if domain == "" {
		writeError(c, apperr.NewBadInput("invalid_url", "could not derive a domain from the given fields"))
		return
	}

	if req.Type == models.CompanyCompetitor {
		user, err := s.users.GetByID(userID)
		if err != nil || user == nil {
			writeError(c, apperr.NewInternal("load_user_failed", "failed to load user", err))
			return
		}
		ent := entitlements.Resolve(s.planTable, *user, now)
		count, err := s.companies.CountCompetitors(userID)
		if err != nil {
			writeError(c, apperr.NewInternal("count_competitors_failed", "failed to count competitors", err))
			return
		}
		if int(count) >= ent.CompetitorLimit {
			s.recordAudit(userID, nil, "competitor_cap_hit", models.AuditRejected, map[string]interface{}{"limit": ent.CompetitorLimit})
			writeError(c, apperr.NewForbidden("competitor_cap_hit", "competitor limit reached for your plan"))
			return
		}
	} else {
		// spec.md §3: at most one type=self company per user; spec.md §7
		// lists this as its own "duplicate self company" conflict,
		// distinct from the domain-duplicate case below.
		existingSelf, err := s.companies.FindSelfByUser(userID)
		if err != nil {
			writeError(c, apperr.NewInternal("lookup_self_company_failed", "failed to check for an existing self company", err))
			return
		}
		if existingSelf != nil {
			writeError(c, apperr.NewConflict("duplicate_self_company", "a self company already exists for this user"))
			return
		}
	}

	existing, err := s.companies.FindByUserAndDomain(userID, req.Type, domain)
	if err != nil {
		writeError(c, apperr.NewInternal("lookup_company_failed", "failed to check for duplicate company", err))
		return
	}
	if existing != nil {
		writeError(c, apperr.NewConflict("duplicate_company", "a company of this type and domain already exists"))
		return
	}

	company := models.Company{
		CompanyID:         uuid.NewString(),
		UserID:            userID,
		Type:              req.Type,
		Name:              req.Name,
		Domain:            domain,
		HomepageURL:       normalizedOrNil(req.HomepageURL),
		PrimaryPricingURL: normalizedOrNil(req.PrimaryPricingURL),
		LastCrawlStatus:   models.CrawlIdle,
		NextCrawlAt:       &now,
	}
	if err := s.companies.Create(&company); err != nil {
		writeError(c, apperr.NewInternal("create_company_failed", "failed to create company", err))
		return
	}
	s.recordAudit(userID, &company.CompanyID, "company_created", models.AuditSuccess, nil)
	c.JSON(http.StatusCreated, company)
}

// discoverPricingHandler implements POST /companies/:id/discover-pricing.
func (s *Server) discoverPricingHandler(c *gin.Context) {
	userID := currentUserID(c)
	company, err := s.loadOwnedCompany(c, userID)
	if err != nil {
		return
	}
	if company.HomepageURL == nil || *company.HomepageURL == "" {
		writeError(c, apperr.NewBadInput("no_homepage_url", "company has no homepageUrl to discover from"))
		return
	}

	result, err := s.discoverer.Discover(c.Request.Context(), *company.HomepageURL, company.Domain)
	if err != nil {
		writeError(c, apperr.NewInternal("discovery_failed", "failed to discover pricing urls", err))
		return
	}

	existing, _ := company.Candidates()
	merged := discovery.MergeCandidates(existing, result.Candidates)
	_ = company.SetCandidates(merged)
	if err := s.companies.Update(company); err != nil {
		writeError(c, apperr.NewInternal("persist_candidates_failed", "failed to persist discovered candidates", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": merged, "recommendedPrimaryUrl": result.RecommendedPrimaryURL})
}

type primaryPricingRequest struct {
	URL          *string `json:"url"`
	CandidateURL *string `json:"candidateUrl"`
}

// primaryPricingHandler implements PATCH /companies/:id/primary-pricing.
func (s *Server) primaryPricingHandler(c *gin.Context) {
	var req primaryPricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.NewBadInput("invalid_body", err.Error()))
		return
	}
	hasURL := req.URL != nil && *req.URL != ""
	hasCandidate := req.CandidateURL != nil && *req.CandidateURL != ""
	if hasURL == hasCandidate {
		writeError(c, apperr.NewBadInput("exactly_one_url_field", "exactly one of url or candidateUrl is required"))
		return
	}

	userID := currentUserID(c)
	company, err := s.loadOwnedCompany(c, userID)
	if err != nil {
		return
	}

	raw := req.URL
	if hasCandidate {
		raw = req.CandidateURL
	}
	canonical, ok := normalize.NormalizeURL(*raw)
	if !ok || !normalize.MatchesDomain(canonical, company.Domain) {
		writeError(c, apperr.NewBadInput("domain_mismatch", "url does not match the company's domain"))
		return
	}

	company.PrimaryPricingURL = &canonical
	candidates, _ := company.Candidates()
	for i := range candidates {
		if candidates[i].URL == canonical {
			candidates[i].SelectedByUser = true
		}
	}
	_ = company.SetCandidates(candidates)

	if err := s.companies.Update(company); err != nil {
		writeError(c, apperr.NewInternal("persist_primary_pricing_failed", "failed to persist primary pricing url", err))
		return
	}
	c.JSON(http.StatusOK, company)
}

// crawlNowHandler and retryCrawlHandler implement spec.md §5's shared
// "crawl-now" conflict rule: advance nextCrawlAt to now always, but only
// clear an active lease if it is already stale; an active lease reports
// a 409 conflict.
func (s *Server) crawlNowHandler(c *gin.Context) {
	s.crawlNowOrRetry(c)
}

func (s *Server) retryCrawlHandler(c *gin.Context) {
	s.crawlNowOrRetry(c)
}

func (s *Server) crawlNowOrRetry(c *gin.Context) {
	userID := currentUserID(c)
	company, err := s.loadOwnedCompany(c, userID)
	if err != nil {
		return
	}

	now := time.Now().UTC()
	leaseCleared, err := s.companies.MarkCrawlNow(company.CompanyID, now)
	if err != nil {
		writeError(c, apperr.NewInternal("crawl_now_failed", "failed to schedule crawl", err))
		return
	}
	if !leaseCleared {
		writeError(c, apperr.NewConflict("lease_active", "an active crawl lease is in progress for this company"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "nextCrawlAt": now})
}

// loadOwnedCompany loads a company by :id, enforcing that it belongs to
// the authed user, and writes the appropriate error response itself.
func (s *Server) loadOwnedCompany(c *gin.Context, userID string) (*models.Company, error) {
	company, err := s.companies.GetByID(c.Param("id"))
	if err != nil {
		writeError(c, apperr.NewInternal("load_company_failed", "failed to load company", err))
		return nil, err
	}
	if company == nil || company.UserID != userID {
		e := apperr.NewBadInput("company_not_found", "no such company")
		writeError(c, e)
		return nil, e
	}
	return company, nil
}

func (s *Server) recordAudit(userID string, companyID *string, eventType string, outcome models.AuditOutcome, metadata map[string]interface{}) {
	event := models.CompetitorAuditEvent{
		EventID:    uuid.NewString(),
		UserID:     userID,
		CompanyID:  companyID,
		EventType:  eventType,
		Outcome:    outcome,
		OccurredAt: time.Now().UTC(),
	}
	_ = event.SetMetadata(metadata)
	if err := s.audit.Record(&event); err != nil {
		s.log.Warn("failed to record audit event")
	}
}

func resolveDomain(req createCompanyRequest) string {
	if req.Domain != nil && *req.Domain != "" {
		return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(*req.Domain), "www."))
	}
	if req.HomepageURL != nil {
		if canonical, ok := normalize.NormalizeURL(*req.HomepageURL); ok {
			return hostOf(canonical)
		}
	}
	if req.PrimaryPricingURL != nil {
		if canonical, ok := normalize.NormalizeURL(*req.PrimaryPricingURL); ok {
			return hostOf(canonical)
		}
	}
	return ""
}

func hostOf(canonicalURL string) string {
	rest := strings.TrimPrefix(strings.TrimPrefix(canonicalURL, "https://"), "http://")
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		rest = rest[:idx]
	}
	return rest
}

func normalizedOrNil(raw *string) *string {
	if raw == nil || *raw == "" {
		return nil
	}
	canonical, ok := normalize.NormalizeURL(*raw)
	if !ok {
		return raw
	}
	return &canonical
}
