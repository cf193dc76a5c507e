package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"meritburo.ru/merit-engine/internal/features/publication"
)

type createPublicationRequest struct {
	CommunityID      int64 `json:"community_id" binding:"required"`
	Stake            int64 `json:"stake" binding:"required"`
	InvestingEnabled bool  `json:"investing_enabled"`
	// InvestorSharePercent отсутствует или -1 = дефолт сообщества.
	InvestorSharePercent *int  `json:"investor_share_percent"`
	TTLHours             int64 `json:"ttl_hours"`
	StopLoss             int64 `json:"stop_loss"`
}

// handleCreatePublication создаёт публикацию со ставкой автора.
func (s *Server) handleCreatePublication(c *gin.Context) {
	var req createPublicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "некорректное тело запроса")
		return
	}

	share := -1
	if req.InvestorSharePercent != nil {
		share = *req.InvestorSharePercent
	}

	p, err := s.publications.Create(c.Request.Context(), publication.CreateParams{
		AuthorID:             c.GetInt64("user_id"),
		CommunityID:          req.CommunityID,
		Stake:                req.Stake,
		InvestingEnabled:     req.InvestingEnabled,
		InvestorSharePercent: share,
		TTL:                  time.Duration(req.TTLHours) * time.Hour,
		StopLoss:             req.StopLoss,
	})
	if err != nil {
		failWith(c, err)
		return
	}
	successResponse(c, p)
}

// handleGetPublication возвращает публикацию по ID.
func (s *Server) handleGetPublication(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "некорректный id публикации")
		return
	}

	p, err := s.publications.GetByID(c.Request.Context(), id)
	if err != nil {
		failWith(c, err)
		return
	}
	successResponse(c, p)
}

// handleDiscovery возвращает витрину активных публикаций сообщества.
// Публикации ниже своего stop-loss скрыты до восстановления рейтинга.
func (s *Server) handleDiscovery(c *gin.Context) {
	communityID := queryInt64(c, "community_id", 0)
	if communityID <= 0 {
		errorResponse(c, http.StatusBadRequest, "требуется community_id")
		return
	}

	list, err := s.publications.Discovery(c.Request.Context(), communityID, queryInt(c, "limit", 20))
	if err != nil {
		failWith(c, err)
		return
	}
	successResponse(c, list)
}

type changeShareRequest struct {
	InvestorSharePercent int `json:"investor_share_percent"`
}

// handleChangeShare меняет долю инвесторов, пока в пул никто не вложился.
func (s *Server) handleChangeShare(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, "некорректный id публикации")
		return
	}
	var req changeShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "некорректное тело запроса")
		return
	}

	if err := s.publications.ChangeInvestorShare(c.Request.Context(),
		id, c.GetInt64("user_id"), req.InvestorSharePercent); err != nil {
		failWith(c, err)
		return
	}
	successResponse(c, gin.H{"investor_share_percent": req.InvestorSharePercent})
}
