package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"meritburo.ru/merit-engine/internal/features/publication"
	"meritburo.ru/merit-engine/internal/features/vote"
)

type castVoteRequest struct {
	TargetType string `json:"target_type" binding:"required"`
	TargetID   string `json:"target_id" binding:"required"`
	Amount     int64  `json:"amount" binding:"required"`
	Direction  string `json:"direction" binding:"required"`
	Comment    string `json:"comment"`
}

// handleCastVote проводит голос за публикацию или комментарий.
func (s *Server) handleCastVote(c *gin.Context) {
	var req castVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "некорректное тело запроса")
		return
	}
	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "некорректный target_id")
		return
	}

	voterID := c.GetInt64("user_id")
	t, err := s.votes.Cast(c.Request.Context(), vote.CastRequest{
		VoterID:    voterID,
		TargetType: req.TargetType,
		TargetID:   targetID,
		Amount:     req.Amount,
		Direction:  req.Direction,
		Comment:    req.Comment,
	})
	if err != nil {
		failWith(c, err)
		return
	}

	successResponse(c, gin.H{
		"vote_id":            t.ID,
		"amount_total":       t.AmountTotal,
		"amount_from_quota":  t.AmountFromQuota,
		"amount_from_wallet": t.AmountFromWallet,
		"direction":          t.Direction,
		"created_at":         t.CreatedAt,
	})
}

// handleVoteHistory возвращает последние голоса по публикации.
func (s *Server) handleVoteHistory(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "некорректный id публикации")
		return
	}

	votes, err := s.votes.History(c.Request.Context(), publication.TargetPublication, id, queryInt(c, "limit", 20))
	if err != nil {
		failWith(c, err)
		return
	}
	successResponse(c, votes)
}
