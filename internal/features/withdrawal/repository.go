// Package withdrawal реализует отзыв контента и вывод доли пула.
// repository.go делает отзыв одной транзакцией: проверка заморозки,
// смена статуса и возврат средств не разделимы для других читателей.
package withdrawal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"meritburo.ru/merit-engine/internal/common"
	"meritburo.ru/merit-engine/internal/features/wallet"
)

// Repository выполняет отзыв контента в базе.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий отзывов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// WithdrawPublication отзывает публикацию без реакций: переводит её в
// closed и возвращает ставку автору. Проверка заморозки — часть того же
// UPDATE: ноль затронутых строк означает, что публикация не найдена,
// закрыта, чужая или уже получила голос/комментарий.
func (r *Repository) WithdrawPublication(ctx context.Context, id uuid.UUID, authorID int64) (stake, communityID int64, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		UPDATE publications p
		SET status = 'closed', updated_at = NOW()
		WHERE p.id = $1
		  AND p.author_id = $2
		  AND COALESCE(p.status, 'active') = 'active'
		  AND NOT EXISTS (
			SELECT 1 FROM vote_transactions v
			WHERE v.target_type = 'publication' AND v.target_id = p.id)
		  AND NOT EXISTS (
			SELECT 1 FROM comments c
			WHERE c.publication_id = p.id AND c.withdrawn = FALSE)
		RETURNING p.stake, p.community_id
	`, id, authorID).Scan(&stake, &communityID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, r.diagnosePublication(ctx, tx, id, authorID)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка отзыва публикации: %w", err)
	}

	if stake > 0 {
		if err := creditWallet(ctx, tx, authorID, communityID, stake,
			wallet.EntryStakeRefund, "Возврат ставки: публикация отозвана", &id); err != nil {
			return 0, 0, err
		}
	}

	return stake, communityID, tx.Commit(ctx)
}

// diagnosePublication выясняет, почему условный отзыв не затронул строку.
func (r *Repository) diagnosePublication(ctx context.Context, tx pgx.Tx, id uuid.UUID, authorID int64) error {
	var ownerID int64
	var status string
	err := tx.QueryRow(ctx,
		`SELECT author_id, COALESCE(status, 'active') FROM publications WHERE id = $1`,
		id).Scan(&ownerID, &status)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrTargetNotFound
	}
	if err != nil {
		return fmt.Errorf("ошибка проверки публикации: %w", err)
	}
	if ownerID != authorID {
		return common.ErrNotAuthor
	}
	if status == "closed" {
		return common.ErrPostClosed
	}
	return common.ErrTargetFrozen
}

// WithdrawComment отзывает комментарий без реакций и сторнирует
// породивший его голос: рейтинг публикации, заработок (пул или кошелёк
// автора) и кошелёк голосовавшего возвращаются к состоянию до голоса.
// Если заработок уже выведен из пула или автором, сторнировать нечем —
// комментарий считается замороженным.
func (r *Repository) WithdrawComment(ctx context.Context, id uuid.UUID, authorID int64) (amount, communityID int64, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var publicationID uuid.UUID
	var directionPlus bool
	err = tx.QueryRow(ctx, `
		UPDATE comments c
		SET withdrawn = TRUE
		WHERE c.id = $1
		  AND c.author_id = $2
		  AND c.withdrawn = FALSE
		  AND c.plus = 0 AND c.minus = 0
		  AND NOT EXISTS (
			SELECT 1 FROM vote_transactions v
			WHERE v.target_type = 'comment' AND v.target_id = c.id)
		RETURNING c.publication_id, c.amount_total, c.direction_plus
	`, id, authorID).Scan(&publicationID, &amount, &directionPlus)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, r.diagnoseComment(ctx, tx, id, authorID)
	}
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка отзыва комментария: %w", err)
	}

	// Блокируем публикацию: сторнирование читает её поля и меняет их
	// в несколько шагов.
	var status string
	var investingEnabled bool
	var pubAuthorID int64
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(status, 'active'), COALESCE(investing_enabled, FALSE), author_id, community_id
		FROM publications WHERE id = $1 FOR UPDATE
	`, publicationID).Scan(&status, &investingEnabled, &pubAuthorID, &communityID)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка блокировки публикации: %w", err)
	}
	if status == "closed" {
		return 0, 0, common.ErrTargetFrozen
	}

	switch {
	case directionPlus && investingEnabled:
		// Заработок ушёл в пул — забираем обратно, если он ещё там.
		// Приток тоже сторнируется: аннулированный голос не входит
		// в причитающиеся доли.
		tag, err := tx.Exec(ctx, `
			UPDATE publications
			SET rating_score = rating_score - $2,
			    investment_pool_balance = investment_pool_balance - $2,
			    investment_pool_earned = investment_pool_earned - $2,
			    updated_at = NOW()
			WHERE id = $1 AND investment_pool_balance >= $2
		`, publicationID, amount)
		if err != nil {
			return 0, 0, fmt.Errorf("ошибка сторнирования пула: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return 0, 0, common.ErrTargetFrozen
		}

	case directionPlus:
		// Заработок ушёл автору публикации — списываем, если не потрачен.
		tag, err := tx.Exec(ctx, `
			UPDATE wallets
			SET balance = balance - $3, total_earned = total_earned - $3, updated_at = NOW()
			WHERE user_id = $1 AND community_id = $2 AND balance >= $3
		`, pubAuthorID, communityID, amount)
		if err != nil {
			return 0, 0, fmt.Errorf("ошибка сторнирования заработка: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return 0, 0, common.ErrTargetFrozen
		}
		if err := insertEntry(ctx, tx, pubAuthorID, communityID, -amount,
			wallet.EntryVoteRefund, "Сторнирование заработка: комментарий отозван", &id); err != nil {
			return 0, 0, err
		}
		if _, err := tx.Exec(ctx, `
			UPDATE publications SET rating_score = rating_score - $2, updated_at = NOW()
			WHERE id = $1
		`, publicationID, amount); err != nil {
			return 0, 0, fmt.Errorf("ошибка сторнирования рейтинга: %w", err)
		}

	default:
		// Голос «против» лишь снижал рейтинг — возвращаем его.
		if _, err := tx.Exec(ctx, `
			UPDATE publications SET rating_score = rating_score + $2, updated_at = NOW()
			WHERE id = $1
		`, publicationID, amount); err != nil {
			return 0, 0, fmt.Errorf("ошибка сторнирования рейтинга: %w", err)
		}
	}

	if err := creditWallet(ctx, tx, authorID, communityID, amount,
		wallet.EntryVoteRefund, "Возврат голоса: комментарий отозван", &id); err != nil {
		return 0, 0, err
	}

	return amount, communityID, tx.Commit(ctx)
}

// diagnoseComment выясняет, почему условный отзыв не затронул строку.
func (r *Repository) diagnoseComment(ctx context.Context, tx pgx.Tx, id uuid.UUID, authorID int64) error {
	var ownerID int64
	var withdrawn bool
	err := tx.QueryRow(ctx,
		`SELECT author_id, withdrawn FROM comments WHERE id = $1`,
		id).Scan(&ownerID, &withdrawn)
	if errors.Is(err, pgx.ErrNoRows) {
		return common.ErrTargetNotFound
	}
	if err != nil {
		return fmt.Errorf("ошибка проверки комментария: %w", err)
	}
	if ownerID != authorID {
		return common.ErrNotAuthor
	}
	if withdrawn {
		return common.ErrTargetNotFound
	}
	return common.ErrTargetFrozen
}

// creditWallet — атомарный upsert-инкремент кошелька внутри транзакции отзыва.
func creditWallet(ctx context.Context, tx pgx.Tx, userID, communityID, amount int64, entryType, description string, ref *uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO wallets (user_id, community_id, balance, total_earned, total_spent)
		VALUES ($1, $2, $3, $3, 0)
		ON CONFLICT (user_id, community_id) DO UPDATE
		SET balance = wallets.balance + EXCLUDED.balance,
		    total_earned = wallets.total_earned + EXCLUDED.balance,
		    updated_at = NOW()
	`, userID, communityID, amount)
	if err != nil {
		return fmt.Errorf("ошибка возврата средств: %w", err)
	}
	return insertEntry(ctx, tx, userID, communityID, amount, entryType, description, ref)
}

func insertEntry(ctx context.Context, tx pgx.Tx, userID, communityID, amount int64, entryType, description string, ref *uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO wallet_entries (user_id, community_id, amount, entry_type, reference_id, description)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, userID, communityID, amount, entryType, ref, description)
	if err != nil {
		return fmt.Errorf("ошибка записи журнала: %w", err)
	}
	return nil
}
