package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/pricelens/core/internal/apperr"
	"github.com/pricelens/core/internal/models"
)

type feedbackRequest struct {
	Feedback models.Feedback `json:"feedback" binding:"required"`
}

// insightFeedbackHandler implements PATCH /insights/:id/feedback
// (SPEC_FULL.md §10 point 3).
func (s *Server) insightFeedbackHandler(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.NewBadInput("invalid_body", err.Error()))
		return
	}
	if req.Feedback != models.FeedbackHelpful && req.Feedback != models.FeedbackNotHelpful {
		writeError(c, apperr.NewBadInput("invalid_feedback", "feedback must be helpful or not_helpful"))
		return
	}

	if err := s.insights.SetFeedback(c.Param("id"), req.Feedback); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeError(c, apperr.NewBadInput("insight_not_found", "no such insight"))
			return
		}
		writeError(c, apperr.NewInternal("set_feedback_failed", "failed to record feedback", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
