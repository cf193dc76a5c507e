// Package api — HTTP-поверхность движка для внешних коллабораторов
// (шлюз, UI, бот). Аутентификацию пользователей выполняет шлюз и передаёт
// идентификатор в заголовке; движок доверяет ему и проверяет только права
// на операции (авторство, заморозку, сессии админа).
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"meritburo.ru/merit-engine/internal/config"
	"meritburo.ru/merit-engine/internal/features/admin"
	"meritburo.ru/merit-engine/internal/features/investment"
	"meritburo.ru/merit-engine/internal/features/publication"
	"meritburo.ru/merit-engine/internal/features/quota"
	"meritburo.ru/merit-engine/internal/features/vote"
	"meritburo.ru/merit-engine/internal/features/wallet"
	"meritburo.ru/merit-engine/internal/features/withdrawal"
)

// Server — HTTP-сервер движка.
type Server struct {
	cfg     *config.Config
	router  *gin.Engine
	http    *http.Server
	limiter *RateLimiter

	votes        *vote.Service
	quotas       *quota.Service
	wallets      *wallet.Service
	publications *publication.Service
	investments  *investment.Service
	withdrawals  *withdrawal.Service
	admins       *admin.Service
}

// Services — сервисы, которые сервер выставляет наружу.
type Services struct {
	Votes        *vote.Service
	Quotas       *quota.Service
	Wallets      *wallet.Service
	Publications *publication.Service
	Investments  *investment.Service
	Withdrawals  *withdrawal.Service
	Admins       *admin.Service
}

// NewServer создаёт HTTP-сервер с маршрутами и промежуточными обработчиками.
func NewServer(cfg *config.Config, svc Services) *Server {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:          cfg,
		limiter:      NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		votes:        svc.Votes,
		quotas:       svc.Quotas,
		wallets:      svc.Wallets,
		publications: svc.Publications,
		investments:  svc.Investments,
		withdrawals:  svc.Withdrawals,
		admins:       svc.Admins,
	}

	router := gin.New()
	router.Use(requestLogger())
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", identityHeader}
	router.Use(cors.New(corsConfig))

	s.router = router
	s.setupRoutes()

	s.http = &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}
	return s
}

// setupRoutes настраивает все маршруты API.
func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := s.router.Group("/api/v1")
	v1.Use(requireUser())
	v1.Use(s.rateLimit())
	{
		v1.POST("/votes", s.handleCastVote)
		v1.GET("/quota", s.handleQuotaStatus)

		v1.GET("/wallet/balance", s.handleWalletBalance)
		v1.GET("/wallet/history", s.handleWalletHistory)

		v1.POST("/publications", s.handleCreatePublication)
		v1.GET("/publications", s.handleDiscovery)
		v1.GET("/publications/:id", s.handleGetPublication)
		v1.PUT("/publications/:id/share", s.handleChangeShare)
		v1.GET("/publications/:id/votes", s.handleVoteHistory)
		v1.GET("/publications/:id/investments", s.handleBreakdown)

		v1.POST("/investments", s.handleInvest)

		v1.POST("/withdrawals", s.handleWithdrawContent)
		v1.POST("/withdrawals/investment", s.handleWithdrawEarnings)
	}

	adminGroup := s.router.Group("/api/v1/admin")
	adminGroup.Use(requireUser())
	{
		adminGroup.POST("/login", s.handleAdminLogin)

		protected := adminGroup.Group("")
		protected.Use(s.adminAuth())
		{
			protected.POST("/logout", s.handleAdminLogout)
			protected.PUT("/communities/:id/economy", s.handleUpdateEconomy)
			protected.POST("/wallets/adjust", s.handleAdjustWallet)
		}
	}
}

// Run запускает HTTP-сервер (блокирующий вызов).
func (s *Server) Run() error {
	log.WithField("addr", s.cfg.HTTPAddr).Info("HTTP-сервер запущен")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ошибка HTTP-сервера: %w", err)
	}
	return nil
}

// Shutdown останавливает сервер, дожидаясь активных запросов.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Close()
	return s.http.Shutdown(ctx)
}
