// Package publication — service.go содержит бизнес-логику публикаций.
package publication

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"meritburo.ru/merit-engine/internal/common"
	"meritburo.ru/merit-engine/internal/features/community"
	"meritburo.ru/merit-engine/internal/features/wallet"
	"meritburo.ru/merit-engine/internal/saga"
)

// walletLedger — операции кошелька, нужные публикациям.
type walletLedger interface {
	Debit(ctx context.Context, userID, communityID, amount int64, entryType, description string, ref *uuid.UUID) (int64, error)
	Credit(ctx context.Context, userID, communityID, amount int64, entryType, description string, ref *uuid.UUID) (int64, error)
}

// communitySettings отдаёт настройки сообщества.
type communitySettings interface {
	Settings(ctx context.Context, communityID int64) (*community.Community, error)
}

// Service управляет публикациями.
type Service struct {
	repo        *Repository
	wallets     walletLedger
	communities communitySettings
}

// NewService создаёт сервис публикаций.
func NewService(repo *Repository, wallets walletLedger, communities communitySettings) *Service {
	return &Service{repo: repo, wallets: wallets, communities: communities}
}

// CreateParams — параметры новой публикации.
type CreateParams struct {
	AuthorID         int64
	CommunityID      int64
	Stake            int64 // Ставка автора, списывается с кошелька
	InvestingEnabled bool
	// InvestorSharePercent < 0 означает «взять дефолт сообщества».
	InvestorSharePercent int
	TTL                  time.Duration // 0 = бессрочная
	StopLoss             int64
}

// Create создаёт публикацию, списывая ставку автора.
// Двухфазно: списание ставки компенсируется, если вставка не удалась.
func (s *Service) Create(ctx context.Context, params CreateParams) (*Publication, error) {
	if params.Stake <= 0 {
		return nil, common.ErrInvalidAmount
	}

	share := params.InvestorSharePercent
	if share < 0 {
		settings, err := s.communities.Settings(ctx, params.CommunityID)
		if err != nil {
			return nil, err
		}
		share = settings.DefaultInvestorShare
	}

	p := &Publication{
		ID:                   uuid.New(),
		AuthorID:             params.AuthorID,
		CommunityID:          params.CommunityID,
		Status:               StatusActive,
		Stake:                params.Stake,
		InvestingEnabled:     params.InvestingEnabled,
		InvestorSharePercent: share,
		StopLoss:             params.StopLoss,
	}
	if params.TTL > 0 {
		expires := time.Now().UTC().Add(params.TTL)
		p.TTLExpiresAt = &expires
	}

	steps := []saga.Step{
		{
			Name: "ставка автора",
			Apply: func(ctx context.Context) error {
				_, err := s.wallets.Debit(ctx, params.AuthorID, params.CommunityID,
					params.Stake, wallet.EntryStake, "Ставка за публикацию", &p.ID)
				return err
			},
			Compensate: func(ctx context.Context) error {
				_, err := s.wallets.Credit(ctx, params.AuthorID, params.CommunityID,
					params.Stake, wallet.EntryStakeRefund, "Возврат ставки: публикация не создана", &p.ID)
				return err
			},
		},
		{
			Name:  "запись публикации",
			Apply: func(ctx context.Context) error { return s.repo.Create(ctx, p) },
		},
	}
	if err := saga.Run(ctx, steps); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"publication_id": p.ID,
		"author_id":      p.AuthorID,
		"stake":          p.Stake,
	}).Info("Публикация создана")
	return s.repo.GetByID(ctx, p.ID)
}

// GetByID возвращает публикацию.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Publication, error) {
	return s.repo.GetByID(ctx, id)
}

// GetComment возвращает комментарий.
func (s *Service) GetComment(ctx context.Context, id uuid.UUID) (*Comment, error) {
	return s.repo.GetComment(ctx, id)
}

// Discovery возвращает витрину сообщества (активные, не ниже стоп-лосса).
func (s *Service) Discovery(ctx context.Context, communityID int64, limit int) ([]*Publication, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListVisible(ctx, communityID, limit)
}

// ChangeInvestorShare меняет долю инвесторов до первой инвестиции.
func (s *Service) ChangeInvestorShare(ctx context.Context, id uuid.UUID, callerID int64, sharePercent int) error {
	if sharePercent < 0 || sharePercent > 100 {
		return common.ErrInvalidAmount
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.AuthorID != callerID {
		return common.ErrNotAuthor
	}
	if p.Closed() {
		return common.ErrPostClosed
	}
	return s.repo.UpdateInvestorShare(ctx, id, sharePercent)
}
