// Package postgres — retry.go повторяет атомарные шаги при конкуренции.
// Голоса, инвестиции и выплаты бьются за одни и те же строки
// (рейтинг публикации, баланс пула, баланс кошелька), поэтому
// deadlock и serialization failure — рабочие ситуации, а не аварии.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"

	"meritburo.ru/merit-engine/internal/common"
)

// Коды PostgreSQL, после которых операцию безопасно повторить целиком.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// IsRetryable сообщает, стоит ли повторять операцию после ошибки err.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}

// WithRetry выполняет fn не более attempts раз, повторяя только после
// ошибок конкуренции. Исчерпание попыток поднимается наверх как
// common.ErrContentionRetryExhausted.
func WithRetry(ctx context.Context, attempts int, fn func(ctx context.Context) error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}

		log.WithError(lastErr).WithField("attempt", i+1).Warn("Повтор атомарного шага после конкуренции")
		// Небольшая пауза, чтобы соперники успели зафиксироваться
		select {
		case <-time.After(time.Duration(i+1) * 25 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: %v", common.ErrContentionRetryExhausted, lastErr)
}
