// Package quota — repository.go выполняет операции с таблицей quotas.
//
// Потребление квоты — это upsert записи суток и декремент остатка
// под блокировкой строки в одной транзакции: между чтением остатка
// и его уменьшением никто не вклинится.
package quota

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с таблицей quotas.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий квот.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Consume резервирует из квоты min(remaining, amount) и возвращает разбиение.
// max — дневной максимум сообщества, применяемый при создании записи суток.
func (r *Repository) Consume(ctx context.Context, userID, communityID int64, dayKey string, amount, max int64) (Split, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return Split{}, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Запись суток создаётся лениво с полным остатком
	_, err = tx.Exec(ctx, `
		INSERT INTO quotas (user_id, community_id, day_key, remaining, max_amount)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (user_id, community_id, day_key) DO NOTHING
	`, userID, communityID, dayKey, max)
	if err != nil {
		return Split{}, fmt.Errorf("ошибка создания квоты: %w", err)
	}

	// Читаем остаток под блокировкой строки — и уменьшаем его в той же
	// транзакции, чтобы конкурирующие голоса не съели квоту дважды.
	var remaining int64
	err = tx.QueryRow(ctx, `
		SELECT remaining FROM quotas
		WHERE user_id = $1 AND community_id = $2 AND day_key = $3
		FOR UPDATE
	`, userID, communityID, dayKey).Scan(&remaining)
	if err != nil {
		return Split{}, fmt.Errorf("ошибка чтения квоты: %w", err)
	}

	fromQuota := remaining
	if amount < fromQuota {
		fromQuota = amount
	}

	if fromQuota > 0 {
		_, err = tx.Exec(ctx, `
			UPDATE quotas SET remaining = remaining - $4, updated_at = NOW()
			WHERE user_id = $1 AND community_id = $2 AND day_key = $3
		`, userID, communityID, dayKey, fromQuota)
		if err != nil {
			return Split{}, fmt.Errorf("ошибка списания квоты: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Split{}, fmt.Errorf("ошибка фиксации: %w", err)
	}

	return Split{FromQuota: fromQuota, Overflow: amount - fromQuota, DayKey: dayKey}, nil
}

// Refund возвращает в квоту суток amount (компенсация неудавшегося голоса).
// Остаток не превышает дневной максимум.
func (r *Repository) Refund(ctx context.Context, userID, communityID int64, dayKey string, amount int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE quotas
		SET remaining = LEAST(remaining + $4, max_amount), updated_at = NOW()
		WHERE user_id = $1 AND community_id = $2 AND day_key = $3
	`, userID, communityID, dayKey, amount)
	if err != nil {
		return fmt.Errorf("ошибка возврата квоты: %w", err)
	}
	return nil
}

// Peek возвращает остаток и максимум суток без изменения состояния.
// Отсутствие записи означает нетронутую квоту: remaining = max сообщества.
func (r *Repository) Peek(ctx context.Context, userID, communityID int64, dayKey string, max int64) (remaining, maxOut int64, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT remaining, max_amount FROM quotas
		WHERE user_id = $1 AND community_id = $2 AND day_key = $3
	`, userID, communityID, dayKey).Scan(&remaining, &maxOut)
	if errors.Is(err, pgx.ErrNoRows) {
		return max, max, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка чтения квоты: %w", err)
	}
	return remaining, maxOut, nil
}
