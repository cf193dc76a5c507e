package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type adminLoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// handleAdminLogin проверяет пароль администратора и выдаёт токен сессии.
func (s *Server) handleAdminLogin(c *gin.Context) {
	var req adminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "некорректное тело запроса")
		return
	}

	token, err := s.admins.Login(c.Request.Context(), c.GetInt64("user_id"), req.Password)
	if err != nil {
		failWith(c, err)
		return
	}
	successResponse(c, gin.H{"token": token})
}

// handleAdminLogout деактивирует сессии администратора.
func (s *Server) handleAdminLogout(c *gin.Context) {
	if err := s.admins.Logout(c.Request.Context(), c.GetInt64("admin_id")); err != nil {
		failWith(c, err)
		return
	}
	successResponse(c, gin.H{"message": "сессии завершены"})
}

type updateEconomyRequest struct {
	QuotaMax         int64 `json:"quota_max" binding:"required"`
	InvestorShare    int   `json:"investor_share"`
	InvestingEnabled bool  `json:"investing_enabled"`
}

// handleUpdateEconomy меняет экономические настройки сообщества.
func (s *Server) handleUpdateEconomy(c *gin.Context) {
	communityID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || communityID <= 0 {
		errorResponse(c, http.StatusBadRequest, "некорректный id сообщества")
		return
	}
	var req updateEconomyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "некорректное тело запроса")
		return
	}

	if err := s.admins.UpdateCommunityEconomy(c.Request.Context(),
		communityID, req.QuotaMax, req.InvestorShare, req.InvestingEnabled); err != nil {
		failWith(c, err)
		return
	}
	successResponse(c, gin.H{"message": "настройки обновлены"})
}

type adjustWalletRequest struct {
	UserID      int64  `json:"user_id" binding:"required"`
	CommunityID int64  `json:"community_id" binding:"required"`
	Delta       int64  `json:"delta" binding:"required"`
	Reason      string `json:"reason"`
}

// handleAdjustWallet вручную корректирует кошелёк пользователя.
func (s *Server) handleAdjustWallet(c *gin.Context) {
	var req adjustWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "некорректное тело запроса")
		return
	}

	balance, err := s.admins.AdjustWallet(c.Request.Context(),
		c.GetInt64("admin_id"), req.UserID, req.CommunityID, req.Delta, req.Reason)
	if err != nil {
		failWith(c, err)
		return
	}
	successResponse(c, gin.H{"balance": balance})
}
