// Package vote — repository.go записывает голос и его эффекты одной
// транзакцией БД: вставка транзакции, атомарный инкремент рейтинга цели,
// заработок автора и зеркальный комментарий либо происходят все вместе,
// либо не происходят вовсе.
package vote

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"meritburo.ru/merit-engine/internal/common"
	"meritburo.ru/merit-engine/internal/features/publication"
	"meritburo.ru/merit-engine/internal/features/wallet"
)

// Repository работает с таблицей vote_transactions и эффектами голоса.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий голосов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// RecordTarget — снимок цели, против которой записывается голос.
type RecordTarget struct {
	Type             string
	ID               uuid.UUID
	AuthorID         int64
	CommunityID      int64
	InvestingEnabled bool // Для публикаций: заработок идёт в пул
}

// Record фиксирует голос и все его эффекты в одной транзакции БД.
//
// Для публикации: рейтинг инкрементируется тем же UPDATE, что и заработок
// (пул или кошелёк автора); условие status='active' — часть UPDATE, так что
// гонка с закрытием невозможна и возвращается common.ErrPostClosed.
// Для комментария: зеркальные plus/minus инкрементируются атомарно.
func (r *Repository) Record(ctx context.Context, t *Transaction, target RecordTarget) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO vote_transactions (
			id, voter_id, community_id, target_type, target_id, direction,
			amount_total, amount_from_quota, amount_from_wallet, comment
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''))
	`, t.ID, t.VoterID, t.CommunityID, t.TargetType, t.TargetID, t.Direction,
		t.AmountTotal, t.AmountFromQuota, t.AmountFromWallet, t.Comment)
	if err != nil {
		return fmt.Errorf("ошибка записи транзакции голоса: %w", err)
	}

	switch target.Type {
	case publication.TargetPublication:
		if err := r.applyToPublication(ctx, tx, t, target); err != nil {
			return err
		}
	case publication.TargetComment:
		if err := r.applyToComment(ctx, tx, t, target); err != nil {
			return err
		}
	default:
		return common.ErrTargetNotFound
	}

	return tx.Commit(ctx)
}

func (r *Repository) applyToPublication(ctx context.Context, tx pgx.Tx, t *Transaction, target RecordTarget) error {
	var tag pgconn.CommandTag
	var err error

	switch {
	case t.Direction == DirectionUp && target.InvestingEnabled:
		// Заработок вливается в пул и делится при расчёте
		tag, err = tx.Exec(ctx, `
			UPDATE publications
			SET rating_score = rating_score + $2,
			    investment_pool_balance = investment_pool_balance + $2,
			    investment_pool_earned = investment_pool_earned + $2,
			    last_earned_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND COALESCE(status, 'active') = 'active'
		`, target.ID, t.AmountTotal)
	case t.Direction == DirectionUp:
		tag, err = tx.Exec(ctx, `
			UPDATE publications
			SET rating_score = rating_score + $2,
			    last_earned_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND COALESCE(status, 'active') = 'active'
		`, target.ID, t.AmountTotal)
	default:
		// Даунвот жжёт мериты: рейтинг падает, автору ничего не идёт
		tag, err = tx.Exec(ctx, `
			UPDATE publications
			SET rating_score = rating_score - $2, updated_at = NOW()
			WHERE id = $1 AND COALESCE(status, 'active') = 'active'
		`, target.ID, t.AmountTotal)
	}
	if err != nil {
		return fmt.Errorf("ошибка обновления рейтинга: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrPostClosed
	}

	// Заработок автора без инвестирования идёт напрямую в кошелёк
	if t.Direction == DirectionUp && !target.InvestingEnabled {
		if err := creditWallet(ctx, tx, target.AuthorID, t.CommunityID, t.AmountTotal,
			wallet.EntryVoteEarn, "Заработок с голоса", &t.ID); err != nil {
			return err
		}
	}

	// Голос с текстом порождает зеркальный комментарий
	if t.Comment != "" {
		_, err = tx.Exec(ctx, `
			INSERT INTO comments (id, publication_id, author_id, vote_id, body,
				plus, minus, amount_total, direction_plus)
			VALUES ($1, $2, $3, $4, $5, 0, 0, $6, $7)
		`, uuid.New(), target.ID, t.VoterID, t.ID, t.Comment,
			t.AmountTotal, t.Direction == DirectionUp)
		if err != nil {
			return fmt.Errorf("ошибка создания комментария: %w", err)
		}
	}
	return nil
}

func (r *Repository) applyToComment(ctx context.Context, tx pgx.Tx, t *Transaction, target RecordTarget) error {
	var column = "minus"
	if t.Direction == DirectionUp {
		column = "plus"
	}
	tag, err := tx.Exec(ctx,
		`UPDATE comments SET `+column+` = `+column+` + $2 WHERE id = $1 AND withdrawn = FALSE`,
		target.ID, t.AmountTotal)
	if err != nil {
		return fmt.Errorf("ошибка обновления комментария: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrTargetNotFound
	}

	if t.Direction == DirectionUp {
		if err := creditWallet(ctx, tx, target.AuthorID, t.CommunityID, t.AmountTotal,
			wallet.EntryVoteEarn, "Заработок с голоса за комментарий", &t.ID); err != nil {
			return err
		}
	}
	return nil
}

// creditWallet — атомарный upsert-инкремент кошелька внутри транзакции голоса.
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
		return fmt.Errorf("ошибка начисления заработка: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO wallet_entries (user_id, community_id, amount, entry_type, reference_id, description)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, userID, communityID, amount, entryType, ref, description)
	if err != nil {
		return fmt.Errorf("ошибка записи журнала заработка: %w", err)
	}
	return nil
}

// GetByID возвращает транзакцию голоса.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	var t Transaction
	var comment *string
	err := r.db.QueryRow(ctx, `
		SELECT id, voter_id, community_id, target_type, target_id, direction,
		       amount_total, amount_from_quota, amount_from_wallet, comment, created_at
		FROM vote_transactions WHERE id = $1
	`, id).Scan(
		&t.ID, &t.VoterID, &t.CommunityID, &t.TargetType, &t.TargetID, &t.Direction,
		&t.AmountTotal, &t.AmountFromQuota, &t.AmountFromWallet, &comment, &t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("транзакция не найдена: %w", err)
	}
	if comment != nil {
		t.Comment = *comment
	}
	return &t, nil
}

// ListByTarget возвращает последние голоса по цели.
func (r *Repository) ListByTarget(ctx context.Context, targetType string, targetID uuid.UUID, limit int) ([]*Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, voter_id, community_id, target_type, target_id, direction,
		       amount_total, amount_from_quota, amount_from_wallet, COALESCE(comment, ''), created_at
		FROM vote_transactions
		WHERE target_type = $1 AND target_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, targetType, targetID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки голосов: %w", err)
	}
	defer rows.Close()

	var txs []*Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.VoterID, &t.CommunityID, &t.TargetType, &t.TargetID,
			&t.Direction, &t.AmountTotal, &t.AmountFromQuota, &t.AmountFromWallet,
			&t.Comment, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования голоса: %w", err)
		}
		txs = append(txs, &t)
	}
	return txs, rows.Err()
}
