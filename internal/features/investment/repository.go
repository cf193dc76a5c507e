// Package investment — repository.go выполняет операции с таблицей
// investments и счётчиками пула на публикации.
//
// Приём инвестиции и расчёт пула — транзакции БД: инкремент пула и
// запись инвестиции (или выплаты и декремент пула) фиксируются вместе.
package investment

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

// Repository работает с таблицей investments и пулом публикации.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий инвестиций.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// AddToPool атомарно принимает инвестицию: инкремент обоих счётчиков пула
// (условие «активна и инвестируема» — часть UPDATE) и вставка записи
// инвестиции в одной транзакции. Ноль затронутых строк означает, что
// публикация успела закрыться или выключить инвестирование — вызывающая
// сторона компенсирует списание с кошелька.
func (r *Repository) AddToPool(ctx context.Context, inv *Investment) (poolBalance, poolTotal int64, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		UPDATE publications
		SET investment_pool_balance = investment_pool_balance + $2,
		    investment_pool_total = investment_pool_total + $2,
		    investment_pool_earned = investment_pool_earned + $2,
		    updated_at = NOW()
		WHERE id = $1
		  AND COALESCE(status, 'active') = 'active'
		  AND investing_enabled = TRUE
		RETURNING investment_pool_balance, investment_pool_total
	`, inv.PostID, inv.Amount).Scan(&poolBalance, &poolTotal)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, common.ErrInvestingDisabled
	}
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка пополнения пула: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO investments (id, post_id, investor_id, amount)
		VALUES ($1, $2, $3, $4)
	`, inv.ID, inv.PostID, inv.InvestorID, inv.Amount)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка записи инвестиции: %w", err)
	}

	return poolBalance, poolTotal, tx.Commit(ctx)
}

// Stakes возвращает суммарные вложения по инвесторам публикации.
func (r *Repository) Stakes(ctx context.Context, postID uuid.UUID) (map[int64]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT investor_id, SUM(amount) FROM investments
		WHERE post_id = $1 GROUP BY investor_id
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки вложений: %w", err)
	}
	defer rows.Close()

	stakes := make(map[int64]int64)
	for rows.Next() {
		var investorID, amount int64
		if err := rows.Scan(&investorID, &amount); err != nil {
			return nil, fmt.Errorf("ошибка сканирования вложения: %w", err)
		}
		stakes[investorID] = amount
	}
	return stakes, rows.Err()
}

// InvestorRows возвращает агрегаты по инвесторам для витринной разбивки.
func (r *Repository) InvestorRows(ctx context.Context, postID uuid.UUID) ([]InvestorShare, error) {
	rows, err := r.db.Query(ctx, `
		SELECT investor_id, SUM(amount), MIN(created_at), MAX(created_at)
		FROM investments
		WHERE post_id = $1
		GROUP BY investor_id
		ORDER BY SUM(amount) DESC, investor_id
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки инвесторов: %w", err)
	}
	defer rows.Close()

	var shares []InvestorShare
	for rows.Next() {
		var s InvestorShare
		if err := rows.Scan(&s.InvestorID, &s.Amount, &s.FirstInvestDate, &s.LastInvestDate); err != nil {
			return nil, fmt.Errorf("ошибка сканирования инвестора: %w", err)
		}
		shares = append(shares, s)
	}
	return shares, rows.Err()
}

// Settle распределяет остаток пула по плану выплат в одной транзакции:
// кредиты кошельков и единственный декремент пула фиксируются вместе.
// Причитающееся считается от пожизненного притока пула, уже выведенные
// через WithdrawAccrued доли вычитаются из выплат.
// Публикация блокируется FOR UPDATE, чтобы параллельные инвестиции и
// выводы не меняли остаток между чтением и декрементом.
func (r *Repository) Settle(ctx context.Context, postID uuid.UUID) (distributed int64, payouts []Payout, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		authorID, communityID              int64
		poolBalance, poolTotal, poolEarned int64
		contractPercent                    int
	)
	err = tx.QueryRow(ctx, `
		SELECT author_id, community_id, investment_pool_balance, investment_pool_total,
		       investment_pool_earned, investor_share_percent
		FROM publications WHERE id = $1
		FOR UPDATE
	`, postID).Scan(&authorID, &communityID, &poolBalance, &poolTotal, &poolEarned, &contractPercent)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil, common.ErrTargetNotFound
	}
	if err != nil {
		return 0, nil, fmt.Errorf("ошибка чтения публикации: %w", err)
	}

	if poolBalance <= 0 {
		// Нечего распределять: пул пуст
		return 0, nil, tx.Commit(ctx)
	}

	stakes := make(map[int64]int64)
	rows, err := tx.Query(ctx, `
		SELECT investor_id, SUM(amount) FROM investments WHERE post_id = $1 GROUP BY investor_id
	`, postID)
	if err != nil {
		return 0, nil, fmt.Errorf("ошибка выборки вложений: %w", err)
	}
	for rows.Next() {
		var investorID, amount int64
		if err := rows.Scan(&investorID, &amount); err != nil {
			rows.Close()
			return 0, nil, fmt.Errorf("ошибка сканирования вложения: %w", err)
		}
		stakes[investorID] = amount
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, nil, err
	}

	withdrawn, err := poolWithdrawn(ctx, tx, postID)
	if err != nil {
		return 0, nil, err
	}

	payouts = SettlementPlan(poolBalance, poolEarned, poolTotal, contractPercent, authorID, stakes, withdrawn)
	for _, p := range payouts {
		if err := creditWalletTx(ctx, tx, p.UserID, communityID, p.Amount,
			wallet.EntryPoolPayout, "Выплата доли пула при закрытии", &postID); err != nil {
			return 0, nil, err
		}
		if err := recordPoolWithdrawal(ctx, tx, postID, p.UserID, p.Amount); err != nil {
			return 0, nil, err
		}
	}

	// Пожизненный счётчик investment_pool_total не трогаем:
	// он остаётся знаменателем долей.
	_, err = tx.Exec(ctx, `
		UPDATE publications
		SET investment_pool_balance = investment_pool_balance - $2, updated_at = NOW()
		WHERE id = $1
	`, postID, poolBalance)
	if err != nil {
		return 0, nil, fmt.Errorf("ошибка обнуления пула: %w", err)
	}

	return poolBalance, payouts, tx.Commit(ctx)
}

// WithdrawAccrued выплачивает запросившему его накопленную долю пула:
// автору (100-s)%, инвестору s% пропорционально вложениям. Причитающееся
// считается от пожизненного притока пула, а не от текущего остатка;
// уже выведенное хранится в pool_withdrawals и вычитается, так что
// повторный вызов без новых поступлений ничего не платит. Кредит
// кошелька, запись вывода и декремент пула — одна транзакция FOR UPDATE.
func (r *Repository) WithdrawAccrued(ctx context.Context, postID uuid.UUID, userID int64) (int64, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var (
		authorID, communityID              int64
		poolBalance, poolTotal, poolEarned int64
		contractPercent                    int
	)
	err = tx.QueryRow(ctx, `
		SELECT author_id, community_id, investment_pool_balance, investment_pool_total,
		       investment_pool_earned, investor_share_percent
		FROM publications WHERE id = $1
		FOR UPDATE
	`, postID).Scan(&authorID, &communityID, &poolBalance, &poolTotal, &poolEarned, &contractPercent)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, common.ErrTargetNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("ошибка чтения публикации: %w", err)
	}

	var entitlement int64
	if userID == authorID {
		entitlement = AuthorPayout(poolEarned, contractPercent)
	} else {
		var invested int64
		err = tx.QueryRow(ctx, `
			SELECT COALESCE(SUM(amount), 0) FROM investments
			WHERE post_id = $1 AND investor_id = $2
		`, postID, userID).Scan(&invested)
		if err != nil {
			return 0, fmt.Errorf("ошибка выборки вложений: %w", err)
		}
		entitlement = InvestorPayout(poolEarned, invested, poolTotal, contractPercent)
	}

	var withdrawn int64
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM pool_withdrawals
		WHERE post_id = $1 AND user_id = $2
	`, postID, userID).Scan(&withdrawn)
	if err != nil {
		return 0, fmt.Errorf("ошибка выборки выводов: %w", err)
	}

	payable := PayableNow(entitlement, withdrawn, poolBalance)
	if payable <= 0 {
		return 0, common.ErrInsufficientPoolBalance
	}

	if err := creditWalletTx(ctx, tx, userID, communityID, payable,
		wallet.EntryPoolPayout, "Вывод накопленной доли пула", &postID); err != nil {
		return 0, err
	}
	if err := recordPoolWithdrawal(ctx, tx, postID, userID, payable); err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE publications
		SET investment_pool_balance = investment_pool_balance - $2, updated_at = NOW()
		WHERE id = $1 AND investment_pool_balance >= $2
	`, postID, payable)
	if err != nil {
		return 0, fmt.Errorf("ошибка декремента пула: %w", err)
	}

	return payable, tx.Commit(ctx)
}

// poolWithdrawn возвращает накопленные выводы по пулу публикации.
func poolWithdrawn(ctx context.Context, tx pgx.Tx, postID uuid.UUID) (map[int64]int64, error) {
	rows, err := tx.Query(ctx, `
		SELECT user_id, amount FROM pool_withdrawals WHERE post_id = $1
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки выводов: %w", err)
	}
	defer rows.Close()

	withdrawn := make(map[int64]int64)
	for rows.Next() {
		var userID, amount int64
		if err := rows.Scan(&userID, &amount); err != nil {
			return nil, fmt.Errorf("ошибка сканирования вывода: %w", err)
		}
		withdrawn[userID] = amount
	}
	return withdrawn, rows.Err()
}

// recordPoolWithdrawal накапливает выведенную пользователем сумму.
func recordPoolWithdrawal(ctx context.Context, tx pgx.Tx, postID uuid.UUID, userID, amount int64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO pool_withdrawals (post_id, user_id, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (post_id, user_id) DO UPDATE
		SET amount = pool_withdrawals.amount + EXCLUDED.amount, updated_at = NOW()
	`, postID, userID, amount)
	if err != nil {
		return fmt.Errorf("ошибка записи вывода: %w", err)
	}
	return nil
}

// creditWalletTx — атомарный upsert-инкремент кошелька внутри транзакции пула.
func creditWalletTx(ctx context.Context, tx pgx.Tx, userID, communityID, amount int64, entryType, description string, ref *uuid.UUID) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO wallets (user_id, community_id, balance, total_earned, total_spent)
		VALUES ($1, $2, $3, $3, 0)
		ON CONFLICT (user_id, community_id) DO UPDATE
		SET balance = wallets.balance + EXCLUDED.balance,
		    total_earned = wallets.total_earned + EXCLUDED.balance,
		    updated_at = NOW()
	`, userID, communityID, amount)
	if err != nil {
		return fmt.Errorf("ошибка выплаты: %w", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO wallet_entries (user_id, community_id, amount, entry_type, reference_id, description)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, userID, communityID, amount, entryType, ref, description)
	if err != nil {
		return fmt.Errorf("ошибка записи журнала выплаты: %w", err)
	}
	return nil
}
