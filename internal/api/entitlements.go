package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pricelens/core/internal/apperr"
	"github.com/pricelens/core/internal/entitlements"
	"github.com/pricelens/core/internal/models"
)

func trialView(user models.User, now time.Time) gin.H {
	isActive := user.TrialStatus == models.TrialActive && user.TrialEndsAt != nil && user.TrialEndsAt.After(now)
	return gin.H{
		"status":    user.TrialStatus,
		"startedAt": user.TrialStartedAt,
		"endsAt":    user.TrialEndsAt,
		"isActive":  isActive,
	}
}

// entitlementsMeHandler implements GET /entitlements/me (spec.md §6).
func (s *Server) entitlementsMeHandler(c *gin.Context) {
	userID := currentUserID(c)
	user, err := s.users.GetByID(userID)
	if err != nil {
		writeError(c, apperr.NewInternal("load_user_failed", "failed to load user", err))
		return
	}
	if user == nil {
		writeError(c, apperr.NewUnauthorized("unknown_user", "session does not match a known user"))
		return
	}

	now := time.Now().UTC()
	if entitlements.RefreshTrialStatus(user, now) {
		if err := s.users.Update(user); err != nil {
			writeError(c, apperr.NewInternal("persist_trial_refresh_failed", "failed to persist trial refresh", err))
			return
		}
	}

	ent := entitlements.Resolve(s.planTable, *user, now)
	c.JSON(http.StatusOK, gin.H{
		"entitlements": ent,
		"trial":        trialView(*user, now),
	})
}

// trialStartHandler implements POST /trial/start (spec.md §6).
func (s *Server) trialStartHandler(c *gin.Context) {
	userID := currentUserID(c)
	user, err := s.users.GetByID(userID)
	if err != nil {
		writeError(c, apperr.NewInternal("load_user_failed", "failed to load user", err))
		return
	}
	if user == nil {
		writeError(c, apperr.NewUnauthorized("unknown_user", "session does not match a known user"))
		return
	}

	now := time.Now().UTC()
	entitlements.RefreshTrialStatus(user, now)

	var reason string
	switch {
	case user.HasPaidAccess:
		reason = "paid_user"
	case user.TrialStatus == models.TrialActive:
		reason = "already_active"
	case user.TrialStatus == models.TrialExpired:
		reason = "already_expired"
	case user.TrialStatus == models.TrialConverted:
		reason = "already_converted"
	}
	if reason != "" {
		ent := entitlements.Resolve(s.planTable, *user, now)
		c.JSON(http.StatusConflict, gin.H{
			"reason":       reason,
			"trial":        trialView(*user, now),
			"entitlements": ent,
		})
		return
	}

	user.TrialStatus = models.TrialActive
	user.TrialStartedAt = &now
	endsAt := now.Add(s.cfg.TrialDuration)
	user.TrialEndsAt = &endsAt
	if err := s.users.Update(user); err != nil {
		writeError(c, apperr.NewInternal("persist_trial_start_failed", "failed to start trial", err))
		return
	}

	ent := entitlements.Resolve(s.planTable, *user, now)
	c.JSON(http.StatusOK, gin.H{
		"trial":        trialView(*user, now),
		"entitlements": ent,
	})
}
