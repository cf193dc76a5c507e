package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// handleQuotaStatus возвращает остаток дневной квоты пользователя.
func (s *Server) handleQuotaStatus(c *gin.Context) {
	communityID := queryInt64(c, "community_id", 0)
	if communityID <= 0 {
		errorResponse(c, http.StatusBadRequest, "требуется community_id")
		return
	}

	status, err := s.quotas.Status(c.Request.Context(), c.GetInt64("user_id"), communityID, time.Now().UTC())
	if err != nil {
		failWith(c, err)
		return
	}
	successResponse(c, status)
}

// handleWalletBalance возвращает баланс кошелька пользователя в сообществе.
func (s *Server) handleWalletBalance(c *gin.Context) {
	communityID := queryInt64(c, "community_id", 0)
	if communityID <= 0 {
		errorResponse(c, http.StatusBadRequest, "требуется community_id")
		return
	}

	balance, err := s.wallets.Balance(c.Request.Context(), c.GetInt64("user_id"), communityID)
	if err != nil {
		failWith(c, err)
		return
	}
	successResponse(c, gin.H{"balance": balance})
}

// handleWalletHistory возвращает последние движения по кошельку.
func (s *Server) handleWalletHistory(c *gin.Context) {
	communityID := queryInt64(c, "community_id", 0)
	if communityID <= 0 {
		errorResponse(c, http.StatusBadRequest, "требуется community_id")
		return
	}

	entries, err := s.wallets.History(c.Request.Context(),
		c.GetInt64("user_id"), communityID, queryInt(c, "limit", 20))
	if err != nil {
		failWith(c, err)
		return
	}
	successResponse(c, entries)
}
