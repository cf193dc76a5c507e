// Package wallet — repository.go выполняет операции с таблицами wallets
// и wallet_entries.
//
// Все движения — одиночные атомарные UPDATE/UPSERT с инкрементом:
// приложение никогда не читает баланс, чтобы потом записать его обратно.
package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"meritburo.ru/merit-engine/internal/common"
)

// Repository работает с таблицами wallets и wallet_entries.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий кошельков.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Credit атомарно начисляет amount на кошелёк (создавая его при первом
// обращении) и пишет журнальную запись. Возвращает новый баланс.
func (r *Repository) Credit(ctx context.Context, userID, communityID, amount int64, entryType, description string, ref *uuid.UUID) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Атомарный upsert-инкремент: вставка нулевого кошелька и начисление
	// в одном выражении, без отдельного чтения.
	var newBalance int64
	err = tx.QueryRow(ctx, `
		INSERT INTO wallets (user_id, community_id, balance, total_earned, total_spent)
		VALUES ($1, $2, $3, $3, 0)
		ON CONFLICT (user_id, community_id) DO UPDATE
		SET balance = wallets.balance + EXCLUDED.balance,
		    total_earned = wallets.total_earned + EXCLUDED.balance,
		    updated_at = NOW()
		RETURNING balance
	`, userID, communityID, amount).Scan(&newBalance)
	if err != nil {
		return 0, fmt.Errorf("ошибка начисления: %w", err)
	}

	if err := insertEntry(ctx, tx, userID, communityID, amount, entryType, description, ref); err != nil {
		return 0, err
	}

	return newBalance, tx.Commit(ctx)
}

// Debit атомарно списывает amount с кошелька. Проверка «баланс не уйдёт
// в минус» — часть того же UPDATE: ноль затронутых строк означает
// нехватку средств (или отсутствие кошелька, что то же самое).
func (r *Repository) Debit(ctx context.Context, userID, communityID, amount int64, entryType, description string, ref *uuid.UUID) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var newBalance int64
	err = tx.QueryRow(ctx, `
		UPDATE wallets
		SET balance = balance - $3, total_spent = total_spent + $3, updated_at = NOW()
		WHERE user_id = $1 AND community_id = $2 AND balance >= $3
		RETURNING balance
	`, userID, communityID, amount).Scan(&newBalance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, common.ErrInsufficientFunds
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка списания: %w", err)
	}

	if err := insertEntry(ctx, tx, userID, communityID, -amount, entryType, description, ref); err != nil {
		return 0, err
	}

	return newBalance, tx.Commit(ctx)
}

// GetBalance возвращает текущий баланс. Кошелёк без записи — баланс 0.
func (r *Repository) GetBalance(ctx context.Context, userID, communityID int64) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx,
		`SELECT balance FROM wallets WHERE user_id = $1 AND community_id = $2`,
		userID, communityID,
	).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка получения баланса: %w", err)
	}
	return balance, nil
}

// GetWallet возвращает кошелёк целиком (для статистики).
func (r *Repository) GetWallet(ctx context.Context, userID, communityID int64) (*Wallet, error) {
	var w Wallet
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, community_id, balance, total_earned, total_spent, created_at, updated_at
		FROM wallets WHERE user_id = $1 AND community_id = $2
	`, userID, communityID).Scan(
		&w.ID, &w.UserID, &w.CommunityID, &w.Balance,
		&w.TotalEarned, &w.TotalSpent, &w.CreatedAt, &w.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrWalletNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка получения кошелька: %w", err)
	}
	return &w, nil
}

// GetEntries возвращает последние limit журнальных записей кошелька.
func (r *Repository) GetEntries(ctx context.Context, userID, communityID int64, limit int) ([]*Entry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, user_id, community_id, amount, entry_type, reference_id, description, created_at
		FROM wallet_entries
		WHERE user_id = $1 AND community_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, userID, communityID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения журнала: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.CommunityID, &e.Amount,
			&e.EntryType, &e.ReferenceID, &e.Description, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования записи: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// insertEntry пишет журнальную запись внутри открытой транзакции.
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
