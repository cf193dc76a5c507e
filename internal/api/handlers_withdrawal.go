package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type withdrawContentRequest struct {
	TargetType string `json:"target_type" binding:"required"`
	TargetID   string `json:"target_id" binding:"required"`
}

// handleWithdrawContent отзывает публикацию или комментарий без реакций.
func (s *Server) handleWithdrawContent(c *gin.Context) {
	var req withdrawContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "некорректное тело запроса")
		return
	}
	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "некорректный target_id")
		return
	}

	amount, err := s.withdrawals.WithdrawContent(c.Request.Context(),
		c.GetInt64("user_id"), req.TargetType, targetID)
	if err != nil {
		failWith(c, err)
		return
	}
	successResponse(c, gin.H{"amount": amount})
}

type withdrawEarningsRequest struct {
	PostID string `json:"post_id" binding:"required"`
}

// handleWithdrawEarnings выводит накопленную долю инвестиционного пула.
func (s *Server) handleWithdrawEarnings(c *gin.Context) {
	var req withdrawEarningsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "некорректное тело запроса")
		return
	}
	postID, err := uuid.Parse(req.PostID)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "некорректный post_id")
		return
	}

	amount, err := s.withdrawals.WithdrawEarnings(c.Request.Context(),
		c.GetInt64("user_id"), postID)
	if err != nil {
		failWith(c, err)
		return
	}
	successResponse(c, gin.H{"amount": amount})
}
