package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pricelens/core/internal/apperr"
	"github.com/pricelens/core/internal/models"
)

// overviewHandler implements GET /dashboard/overview: per-company last
// crawl status plus latest diff severity, a read-only projection
// (SPEC_FULL.md §10 point 2).
func (s *Server) overviewHandler(c *gin.Context) {
	userID := currentUserID(c)
	companies, err := s.companies.ListByUser(userID)
	if err != nil {
		writeError(c, apperr.NewInternal("list_companies_failed", "failed to list companies", err))
		return
	}

	type row struct {
		Company       interface{} `json:"company"`
		LatestSeverity interface{} `json:"latestSeverity,omitempty"`
	}
	rows := make([]row, 0, len(companies))
	for i := range companies {
		company := companies[i]
		latest, err := s.diffs.ListByCompany(company.CompanyID, 1)
		if err != nil {
			writeError(c, apperr.NewInternal("list_diffs_failed", "failed to load latest diff", err))
			return
		}
		r := row{Company: company}
		if len(latest) > 0 {
			r.LatestSeverity = latest[0].Severity
		}
		rows = append(rows, r)
	}
	c.JSON(http.StatusOK, gin.H{"companies": rows})
}

// feedHandler implements GET /dashboard/feed: paginated diffs newest
// first, verified-only unless ?includeUnverified=true.
func (s *Server) feedHandler(c *gin.Context) {
	userID := currentUserID(c)
	limit := parseIntQuery(c, "limit", 50)
	includeUnverified := c.Query("includeUnverified") == "true"

	diffs, err := s.diffs.ListByUser(userID, limit)
	if err != nil {
		writeError(c, apperr.NewInternal("list_diffs_failed", "failed to list diffs", err))
		return
	}
	if !includeUnverified {
		filtered := diffs[:0]
		for _, d := range diffs {
			if d.VerificationState == models.VerificationVerified {
				filtered = append(filtered, d)
			}
		}
		diffs = filtered
	}
	c.JSON(http.StatusOK, gin.H{"diffs": diffs})
}

// comparisonHandler implements GET /dashboard/comparison: the user's
// own latest snapshot payload alongside each competitor's.
func (s *Server) comparisonHandler(c *gin.Context) {
	userID := currentUserID(c)
	companies, err := s.companies.ListByUser(userID)
	if err != nil {
		writeError(c, apperr.NewInternal("list_companies_failed", "failed to list companies", err))
		return
	}

	type entry struct {
		Company interface{} `json:"company"`
		Payload interface{} `json:"payload,omitempty"`
	}
	var self *entry
	competitors := make([]entry, 0, len(companies))

	for i := range companies {
		company := companies[i]
		snapshot, err := s.snapshots.LatestForCompany(company.CompanyID)
		if err != nil {
			writeError(c, apperr.NewInternal("load_snapshot_failed", "failed to load latest snapshot", err))
			return
		}
		e := entry{Company: company}
		if snapshot != nil {
			if payload, err := snapshot.Payload(); err == nil {
				e.Payload = payload
			}
		}
		if company.Type == models.CompanySelf {
			self = &e
		} else {
			competitors = append(competitors, e)
		}
	}
	c.JSON(http.StatusOK, gin.H{"self": self, "competitors": competitors})
}
