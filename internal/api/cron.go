package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pricelens/core/internal/lock"
	"github.com/pricelens/core/internal/runner"
)

// crawlHandler implements GET|POST /cron/crawl per spec.md §4.12.
func (s *Server) crawlHandler(c *gin.Context) {
	limit := s.cfg.ClampBatchLimit(parseIntQuery(c, "limit", 0))
	now := time.Now().UTC()

	skipped, acquireResult, runErr := s.locks.WithLock(lock.CrawlLockKey, s.cfg.InvocationLockTTL, func() error {
		claimed, err := s.leaseClaimer.ClaimBatch(limit, now)
		if err != nil {
			return err
		}
		result := s.runner.Run(c.Request.Context(), claimed, now)
		s.lastCrawlResult = result
		return nil
	})

	if runErr != nil {
		writeError(c, runErr)
		return
	}
	if skipped {
		if s.metrics != nil {
			s.metrics.BatchSkippedLockActive.Inc()
		}
		c.JSON(http.StatusAccepted, gin.H{
			"skipped":           true,
			"reason":            "lock_active",
			"retryAfterSeconds": acquireResult.RetryAfterSeconds,
			"lockUntil":         acquireResult.LockUntil,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "skipped": false, "result": resultView(s.lastCrawlResult)})
}

// digestHandler implements GET|POST /cron/digest, structurally
// identical to crawlHandler but running the weekly digest job
// (spec.md §4.12).
func (s *Server) digestHandler(c *gin.Context) {
	now := time.Now().UTC()

	skipped, acquireResult, runErr := s.locks.WithLock(lock.DigestLockKey, s.cfg.DigestLockTTL, func() error {
		result, err := s.digestJob.Run(c.Request.Context(), now)
		if err != nil {
			return err
		}
		s.lastDigestResult = result
		return nil
	})

	if runErr != nil {
		writeError(c, runErr)
		return
	}
	if skipped {
		c.JSON(http.StatusAccepted, gin.H{
			"skipped":           true,
			"reason":            "lock_active",
			"retryAfterSeconds": acquireResult.RetryAfterSeconds,
			"lockUntil":         acquireResult.LockUntil,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "skipped": false, "result": s.lastDigestResult})
}

func parseIntQuery(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func resultView(r runner.BatchResult) gin.H {
	return gin.H{"claimed": r.Claimed, "byState": r.ByState}
}
