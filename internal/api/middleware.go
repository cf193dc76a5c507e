package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// identityHeader — заголовок с ID пользователя, проставляется внешним
// шлюзом после аутентификации. Сам движок пользователей не аутентифицирует.
const identityHeader = "X-User-ID"

// userID извлекает ID пользователя из заголовка запроса.
func userID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.GetHeader(identityHeader), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// requireUser проверяет наличие идентификатора пользователя.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := userID(c)
		if !ok {
			errorResponse(c, http.StatusUnauthorized, "требуется заголовок "+identityHeader)
			c.Abort()
			return
		}
		c.Set("user_id", id)
		c.Next()
	}
}

// requestLogger логирует запрос: метод, путь, статус, длительность, user_id.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := log.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}
		if id, ok := userID(c); ok {
			fields["user_id"] = id
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.WithFields(fields).Error("Запрос завершился ошибкой")
			return
		}
		log.WithFields(fields).Debug("Запрос обработан")
	}
}

// rateLimit отклоняет запросы сверх лимита на идентичность запроса.
func (s *Server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := userID(c)
		if !ok {
			c.Next()
			return
		}
		if !s.limiter.Allow("user:" + strconv.FormatInt(id, 10)) {
			errorResponse(c, http.StatusTooManyRequests, "слишком много запросов, подождите")
			c.Abort()
			return
		}
		c.Next()
	}
}

// adminAuth проверяет Bearer-токен админ-сессии.
func (s *Server) adminAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if len(token) > len(prefix) && token[:len(prefix)] == prefix {
			token = token[len(prefix):]
		}

		adminID, err := s.admins.Authenticate(c.Request.Context(), token)
		if err != nil {
			failWith(c, err)
			c.Abort()
			return
		}
		c.Set("admin_id", adminID)
		c.Next()
	}
}
