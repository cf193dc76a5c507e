package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"meritburo.ru/merit-engine/internal/common"
)

// successResponse отправляет успешный ответ в едином формате.
func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

// errorResponse отправляет ответ с ошибкой в едином формате.
func errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":   true,
		"message": message,
	})
}

// failWith переводит доменную ошибку в HTTP-статус. Тексты доменных ошибок
// показываются пользователю как есть; всё незнакомое прячется за 500.
func failWith(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "внутренняя ошибка"

	switch {
	case errors.Is(err, common.ErrInvalidAmount),
		errors.Is(err, common.ErrInvalidDirection):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrInsufficientFunds),
		errors.Is(err, common.ErrInsufficientPoolBalance):
		status = http.StatusPaymentRequired
	case errors.Is(err, common.ErrSelfVote),
		errors.Is(err, common.ErrAuthorCannotInvest),
		errors.Is(err, common.ErrNotAuthor),
		errors.Is(err, common.ErrInvestingDisabled):
		status = http.StatusForbidden
	case errors.Is(err, common.ErrTargetNotFound),
		errors.Is(err, common.ErrWalletNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrPostClosed),
		errors.Is(err, common.ErrContractLocked),
		errors.Is(err, common.ErrContentionRetryExhausted):
		status = http.StatusConflict
	case errors.Is(err, common.ErrTargetFrozen):
		status = http.StatusLocked
	case errors.Is(err, common.ErrWrongPassword),
		errors.Is(err, common.ErrSessionExpired):
		status = http.StatusUnauthorized
	case errors.Is(err, common.ErrTooManyAttempts):
		status = http.StatusTooManyRequests
	}

	if status != http.StatusInternalServerError {
		message = err.Error()
	}
	errorResponse(c, status, message)
}
