package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type investRequest struct {
	PostID string `json:"post_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required"`
}

// handleInvest принимает инвестицию в публикацию.
func (s *Server) handleInvest(c *gin.Context) {
	var req investRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "некорректное тело запроса")
		return
	}
	postID, err := uuid.Parse(req.PostID)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "некорректный post_id")
		return
	}

	position, err := s.investments.Invest(c.Request.Context(),
		c.GetInt64("user_id"), postID, req.Amount)
	if err != nil {
		failWith(c, err)
		return
	}
	successResponse(c, position)
}

// handleBreakdown возвращает разбивку инвестиционного пула публикации.
func (s *Server) handleBreakdown(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "некорректный id публикации")
		return
	}

	breakdown, err := s.investments.Breakdown(c.Request.Context(), id)
	if err != nil {
		failWith(c, err)
		return
	}
	successResponse(c, breakdown)
}
