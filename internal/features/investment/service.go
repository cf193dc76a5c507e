// Package investment — service.go содержит бизнес-логику пулов.
package investment

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"meritburo.ru/merit-engine/internal/cache"
	"meritburo.ru/merit-engine/internal/common"
	"meritburo.ru/merit-engine/internal/events"
	"meritburo.ru/merit-engine/internal/features/publication"
	"meritburo.ru/merit-engine/internal/features/wallet"
	"meritburo.ru/merit-engine/internal/saga"
)

// walletLedger — операции кошелька, нужные инвестициям.
type walletLedger interface {
	Debit(ctx context.Context, userID, communityID, amount int64, entryType, description string, ref *uuid.UUID) (int64, error)
	Credit(ctx context.Context, userID, communityID, amount int64, entryType, description string, ref *uuid.UUID) (int64, error)
}

// contentStore отдаёт публикации.
type contentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*publication.Publication, error)
}

// Service управляет инвестиционными пулами.
type Service struct {
	repo    *Repository
	wallets walletLedger
	content contentStore
	cache   *cache.Cache
	bus     *events.Bus
}

// NewService создаёт сервис инвестиций.
func NewService(repo *Repository, wallets walletLedger, content contentStore, c *cache.Cache, bus *events.Bus) *Service {
	return &Service{repo: repo, wallets: wallets, content: content, cache: c, bus: bus}
}

// Invest принимает инвестицию в публикацию.
// Двухфазно: списание с кошелька инвестора компенсируется, если пул
// не принял деньги (публикация закрылась или выключила инвестирование).
func (s *Service) Invest(ctx context.Context, investorID int64, postID uuid.UUID, amount int64) (*Position, error) {
	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}

	p, err := s.content.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.Closed() {
		return nil, common.ErrPostClosed
	}
	if !p.InvestingEnabled {
		return nil, common.ErrInvestingDisabled
	}
	if investorID == p.AuthorID {
		return nil, common.ErrAuthorCannotInvest
	}

	inv := &Investment{
		ID:         uuid.New(),
		PostID:     postID,
		InvestorID: investorID,
		Amount:     amount,
	}

	var poolBalance, poolTotal int64
	steps := []saga.Step{
		{
			Name: "списание инвестиции",
			Apply: func(ctx context.Context) error {
				_, err := s.wallets.Debit(ctx, investorID, p.CommunityID,
					amount, wallet.EntryInvest, "Инвестиция в публикацию", &inv.ID)
				return err
			},
			Compensate: func(ctx context.Context) error {
				_, err := s.wallets.Credit(ctx, investorID, p.CommunityID,
					amount, wallet.EntryVoteRefund, "Возврат: инвестиция не принята", &inv.ID)
				return err
			},
		},
		{
			Name: "пополнение пула",
			Apply: func(ctx context.Context) error {
				var err error
				poolBalance, poolTotal, err = s.repo.AddToPool(ctx, inv)
				return err
			},
		},
	}
	if err := saga.Run(ctx, steps); err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, cache.BreakdownKey(postID.String()))

	// Суммарное вложение инвестора после приёма (для эффективной доли)
	stakes, err := s.repo.Stakes(ctx, postID)
	if err != nil {
		return nil, err
	}
	share, _ := EffectiveSharePercent(stakes[investorID], poolTotal, p.InvestorSharePercent).Float64()

	log.WithFields(log.Fields{
		"investment_id": inv.ID,
		"post_id":       postID,
		"investor_id":   investorID,
		"amount":        amount,
		"share":         share,
	}).Info("Инвестиция принята")

	s.bus.Publish(events.InvestmentMade{
		At:           time.Now().UTC(),
		InvestmentID: inv.ID,
		PostID:       postID,
		InvestorID:   investorID,
		Amount:       amount,
		SharePercent: share,
		PoolBalance:  poolBalance,
		PoolTotal:    poolTotal,
	})

	return &Position{
		InvestmentID: inv.ID,
		SharePercent: share,
		PoolBalance:  poolBalance,
		PoolTotal:    poolTotal,
	}, nil
}

// Breakdown возвращает витринную разбивку пула (через кеш).
// Доли считаются на лету из неизменяемых записей — хранить их негде
// и незачем.
func (s *Service) Breakdown(ctx context.Context, postID uuid.UUID) (*Breakdown, error) {
	key := cache.BreakdownKey(postID.String())
	var cached Breakdown
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	p, err := s.content.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}

	investors, err := s.repo.InvestorRows(ctx, postID)
	if err != nil {
		return nil, err
	}
	for i := range investors {
		share, _ := EffectiveSharePercent(investors[i].Amount, p.PoolTotal, p.InvestorSharePercent).Float64()
		investors[i].SharePercent = share
	}

	b := &Breakdown{
		ContractPercent: p.InvestorSharePercent,
		Investors:       investors,
		PoolBalance:     p.PoolBalance,
		PoolTotal:       p.PoolTotal,
	}
	s.cache.Set(ctx, key, b)
	return b, nil
}

// Settle распределяет остаток пула по долям. Вызывается менеджером
// жизненного цикла ровно один раз — тем, кто перевёл статус в closed.
func (s *Service) Settle(ctx context.Context, postID uuid.UUID) (int64, []Payout, error) {
	p, err := s.content.GetByID(ctx, postID)
	if err != nil {
		return 0, nil, err
	}

	distributed, payouts, err := s.repo.Settle(ctx, postID)
	if err != nil {
		return 0, nil, err
	}
	s.cache.Invalidate(ctx, cache.BreakdownKey(postID.String()))
	for _, payout := range payouts {
		s.cache.Invalidate(ctx, cache.WalletKey(payout.UserID, p.CommunityID))
	}
	if distributed > 0 {
		log.WithFields(log.Fields{
			"post_id":     postID,
			"distributed": distributed,
			"payouts":     len(payouts),
		}).Info("Пул рассчитан")
	}
	return distributed, payouts, nil
}

// WithdrawAccrued выплачивает накопленную долю пула автору или инвестору.
func (s *Service) WithdrawAccrued(ctx context.Context, postID uuid.UUID, userID int64) (int64, error) {
	p, err := s.content.GetByID(ctx, postID)
	if err != nil {
		return 0, err
	}

	amount, err := s.repo.WithdrawAccrued(ctx, postID, userID)
	if err != nil {
		return 0, err
	}
	s.cache.Invalidate(ctx,
		cache.BreakdownKey(postID.String()),
		cache.WalletKey(userID, p.CommunityID))
	return amount, nil
}
