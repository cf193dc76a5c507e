// Package publication — repository.go выполняет операции с таблицами
// publications и comments.
//
// Дореформенные записи могут не иметь полей жизненного цикла: чтение
// подставляет status='active', last_earned_at=created_at,
// ttl_warning_notified=false через COALESCE — та же семантика бэкфилла,
// что и в исходной системе.
package publication

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"meritburo.ru/merit-engine/internal/common"
)

// Repository работает с таблицами publications и comments.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий публикаций.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const publicationColumns = `
	id, author_id, community_id,
	COALESCE(status, 'active'),
	rating_score, stake,
	investing_enabled, investor_share_percent,
	investment_pool_balance, investment_pool_total,
	ttl_expires_at, stop_loss,
	COALESCE(last_earned_at, created_at),
	COALESCE(ttl_warning_notified, FALSE),
	created_at, updated_at`

func scanPublication(row pgx.Row) (*Publication, error) {
	var p Publication
	err := row.Scan(
		&p.ID, &p.AuthorID, &p.CommunityID,
		&p.Status,
		&p.RatingScore, &p.Stake,
		&p.InvestingEnabled, &p.InvestorSharePercent,
		&p.PoolBalance, &p.PoolTotal,
		&p.TTLExpiresAt, &p.StopLoss,
		&p.LastEarnedAt,
		&p.TTLWarningNotified,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create вставляет новую публикацию.
func (r *Repository) Create(ctx context.Context, p *Publication) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO publications (
			id, author_id, community_id, status, rating_score, stake,
			investing_enabled, investor_share_percent,
			investment_pool_balance, investment_pool_total,
			ttl_expires_at, stop_loss, last_earned_at, ttl_warning_notified
		)
		VALUES ($1, $2, $3, $4, 0, $5, $6, $7, 0, 0, $8, $9, NOW(), FALSE)
	`, p.ID, p.AuthorID, p.CommunityID, StatusActive, p.Stake,
		p.InvestingEnabled, p.InvestorSharePercent, p.TTLExpiresAt, p.StopLoss)
	if err != nil {
		return fmt.Errorf("ошибка создания публикации: %w", err)
	}
	return nil
}

// GetByID возвращает публикацию с бэкфиллом дореформенных полей.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Publication, error) {
	p, err := scanPublication(r.db.QueryRow(ctx,
		`SELECT `+publicationColumns+` FROM publications WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrTargetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения публикации: %w", err)
	}
	return p, nil
}

// MarkClosed атомарно переводит публикацию в closed.
// Возвращает true только вызывающему, чей UPDATE застал статус active:
// именно он и только он запускает расчёт пула.
func (r *Repository) MarkClosed(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE publications
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND COALESCE(status, 'active') = $3
	`, id, StatusClosed, StatusActive)
	if err != nil {
		return false, fmt.Errorf("ошибка закрытия публикации: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkTTLWarned ставит флаг предупреждения ровно один раз.
func (r *Repository) MarkTTLWarned(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE publications
		SET ttl_warning_notified = TRUE, updated_at = NOW()
		WHERE id = $1 AND COALESCE(ttl_warning_notified, FALSE) = FALSE
	`, id)
	if err != nil {
		return false, fmt.Errorf("ошибка установки флага предупреждения: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListExpired возвращает активные публикации с истёкшим TTL.
func (r *Repository) ListExpired(ctx context.Context, now time.Time, limit int) ([]*Publication, error) {
	return r.list(ctx, `
		SELECT `+publicationColumns+` FROM publications
		WHERE COALESCE(status, 'active') = 'active'
		  AND ttl_expires_at IS NOT NULL AND ttl_expires_at <= $1
		ORDER BY ttl_expires_at
		LIMIT $2
	`, now, limit)
}

// ListNeedingWarning возвращает активные публикации, чей TTL пересёк порог
// предупреждения, но флаг ещё не ставился.
func (r *Repository) ListNeedingWarning(ctx context.Context, now time.Time, threshold time.Duration, limit int) ([]*Publication, error) {
	return r.list(ctx, `
		SELECT `+publicationColumns+` FROM publications
		WHERE COALESCE(status, 'active') = 'active'
		  AND COALESCE(ttl_warning_notified, FALSE) = FALSE
		  AND ttl_expires_at IS NOT NULL
		  AND ttl_expires_at > $1
		  AND ttl_expires_at <= $2
		ORDER BY ttl_expires_at
		LIMIT $3
	`, now, now.Add(threshold), limit)
}

// ListVisible возвращает активные публикации сообщества для витрины
// сравнения: стоп-лосс исключает просевшие по рейтингу (это фильтр,
// статус не меняется).
func (r *Repository) ListVisible(ctx context.Context, communityID int64, limit int) ([]*Publication, error) {
	return r.list(ctx, `
		SELECT `+publicationColumns+` FROM publications
		WHERE community_id = $1
		  AND COALESCE(status, 'active') = 'active'
		  AND (stop_loss <= 0 OR rating_score >= stop_loss)
		ORDER BY rating_score DESC
		LIMIT $2
	`, communityID, limit)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]*Publication, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки публикаций: %w", err)
	}
	defer rows.Close()

	var pubs []*Publication
	for rows.Next() {
		p, err := scanPublication(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования публикации: %w", err)
		}
		pubs = append(pubs, p)
	}
	return pubs, rows.Err()
}

// UpdateInvestorShare меняет долю инвесторов. Контракт зафиксирован после
// первой инвестиции: условие investment_pool_total = 0 — часть UPDATE,
// гонка с параллельной инвестицией невозможна.
func (r *Repository) UpdateInvestorShare(ctx context.Context, id uuid.UUID, sharePercent int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE publications
		SET investor_share_percent = $2, updated_at = NOW()
		WHERE id = $1 AND investment_pool_total = 0
	`, id, sharePercent)
	if err != nil {
		return fmt.Errorf("ошибка изменения доли инвесторов: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrContractLocked
	}
	return nil
}

// SetTTL назначает или сдвигает TTL активной публикации.
func (r *Repository) SetTTL(ctx context.Context, id uuid.UUID, expiresAt *time.Time) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE publications
		SET ttl_expires_at = $2, ttl_warning_notified = FALSE, updated_at = NOW()
		WHERE id = $1 AND COALESCE(status, 'active') = 'active'
	`, id, expiresAt)
	if err != nil {
		return fmt.Errorf("ошибка установки TTL: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrPostClosed
	}
	return nil
}

// SetStopLoss назначает порог стоп-лосса.
func (r *Repository) SetStopLoss(ctx context.Context, id uuid.UUID, stopLoss int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE publications SET stop_loss = $2, updated_at = NOW() WHERE id = $1
	`, id, stopLoss)
	if err != nil {
		return fmt.Errorf("ошибка установки стоп-лосса: %w", err)
	}
	return nil
}

// --- Комментарии ---

// GetComment возвращает комментарий по ID.
func (r *Repository) GetComment(ctx context.Context, id uuid.UUID) (*Comment, error) {
	var c Comment
	err := r.db.QueryRow(ctx, `
		SELECT id, publication_id, author_id, vote_id, body,
		       plus, minus, amount_total, direction_plus, withdrawn, created_at
		FROM comments WHERE id = $1
	`, id).Scan(
		&c.ID, &c.PublicationID, &c.AuthorID, &c.VoteID, &c.Body,
		&c.Plus, &c.Minus, &c.AmountTotal, &c.DirectionPlus, &c.Withdrawn, &c.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, common.ErrTargetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения комментария: %w", err)
	}
	return &c, nil
}

// CountEngagement возвращает количество голосов по цели и (для публикаций)
// количество неотозванных комментариев. Ненулевая сумма = контент заморожен.
func (r *Repository) CountEngagement(ctx context.Context, targetType string, targetID uuid.UUID) (votes, comments int64, err error) {
	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM vote_transactions WHERE target_type = $1 AND target_id = $2
	`, targetType, targetID).Scan(&votes)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка подсчёта голосов: %w", err)
	}

	if targetType == TargetPublication {
		err = r.db.QueryRow(ctx, `
			SELECT COUNT(*) FROM comments WHERE publication_id = $1 AND withdrawn = FALSE
		`, targetID).Scan(&comments)
		if err != nil {
			return 0, 0, fmt.Errorf("ошибка подсчёта комментариев: %w", err)
		}
	}
	return votes, comments, nil
}
