// Package community — repository.go выполняет операции с таблицей communities.
package community

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository работает с таблицей communities.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий сообществ.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetOrCreate возвращает настройки сообщества, создавая запись
// с переданными дефолтами, если её ещё нет.
func (r *Repository) GetOrCreate(ctx context.Context, id int64, quotaMax int64, investorShare int) (*Community, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO communities (id, quota_max, default_investor_share, investing_enabled)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (id) DO NOTHING
	`, id, quotaMax, investorShare)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания сообщества: %w", err)
	}

	var c Community
	err = r.db.QueryRow(ctx, `
		SELECT id, title, quota_max, default_investor_share, investing_enabled, created_at, updated_at
		FROM communities WHERE id = $1
	`, id).Scan(
		&c.ID, &c.Title, &c.QuotaMax, &c.DefaultInvestorShare,
		&c.InvestingEnabled, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения сообщества: %w", err)
	}
	return &c, nil
}

// UpdateEconomy обновляет экономические настройки сообщества.
func (r *Repository) UpdateEconomy(ctx context.Context, id int64, quotaMax int64, investorShare int, investingEnabled bool) error {
	_, err := r.db.Exec(ctx, `
		UPDATE communities
		SET quota_max = $2, default_investor_share = $3, investing_enabled = $4, updated_at = NOW()
		WHERE id = $1
	`, id, quotaMax, investorShare, investingEnabled)
	if err != nil {
		return fmt.Errorf("ошибка обновления настроек сообщества: %w", err)
	}
	return nil
}
