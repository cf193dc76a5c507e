// Package withdrawal — service.go координирует оба пути вывода:
// отзыв контента без реакций и вывод накопленной доли пула.
package withdrawal

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"meritburo.ru/merit-engine/internal/cache"
	"meritburo.ru/merit-engine/internal/common"
	"meritburo.ru/merit-engine/internal/events"
	"meritburo.ru/merit-engine/internal/features/investment"
	"meritburo.ru/merit-engine/internal/features/publication"
)

// pool — операции инвестиционного пула, нужные выводу.
type pool interface {
	Settle(ctx context.Context, postID uuid.UUID) (int64, []investment.Payout, error)
	WithdrawAccrued(ctx context.Context, postID uuid.UUID, userID int64) (int64, error)
}

// contentWithdrawer выполняет условный отзыв контента в хранилище.
type contentWithdrawer interface {
	WithdrawPublication(ctx context.Context, id uuid.UUID, authorID int64) (stake, communityID int64, err error)
	WithdrawComment(ctx context.Context, id uuid.UUID, authorID int64) (amount, communityID int64, err error)
}

// Service обрабатывает выводы.
type Service struct {
	repo  contentWithdrawer
	pool  pool
	cache *cache.Cache
	bus   *events.Bus
}

// NewService создаёт сервис выводов.
func NewService(repo contentWithdrawer, pool pool, c *cache.Cache, bus *events.Bus) *Service {
	return &Service{repo: repo, pool: pool, cache: c, bus: bus}
}

// WithdrawContent отзывает публикацию или комментарий автора.
// Доступно только пока контент не получил ни одного голоса и ни одного
// комментария; иначе ErrTargetFrozen. Возвращает сумму возврата.
func (s *Service) WithdrawContent(ctx context.Context, userID int64, targetType string, targetID uuid.UUID) (int64, error) {
	var amount, communityID int64
	var err error

	switch targetType {
	case publication.TargetPublication:
		amount, communityID, err = s.withdrawPublication(ctx, userID, targetID)
	case publication.TargetComment:
		amount, communityID, err = s.repo.WithdrawComment(ctx, targetID, userID)
	default:
		return 0, common.ErrTargetNotFound
	}
	if err != nil {
		return 0, err
	}

	s.cache.Invalidate(ctx, cache.WalletKey(userID, communityID))

	log.WithFields(log.Fields{
		"user_id":     userID,
		"target_type": targetType,
		"target_id":   targetID,
		"amount":      amount,
	}).Info("Контент отозван")

	s.bus.Publish(events.WithdrawalMade{
		At:         time.Now().UTC(),
		UserID:     userID,
		TargetType: targetType,
		TargetID:   targetID,
		Amount:     amount,
	})
	return amount, nil
}

// withdrawPublication отзывает публикацию и закрывает её. Публикация без
// голосов всё же может нести инвестиции — остаток пула распределяется
// тем же расчётом, что и при закрытии по TTL.
func (s *Service) withdrawPublication(ctx context.Context, userID int64, id uuid.UUID) (int64, int64, error) {
	stake, communityID, err := s.repo.WithdrawPublication(ctx, id, userID)
	if err != nil {
		return 0, 0, err
	}

	distributed, payouts, err := s.pool.Settle(ctx, id)
	if err != nil {
		log.WithField("post_id", id).WithError(err).
			Error("СВЕРКА: публикация отозвана, пул не рассчитан")
		return 0, 0, err
	}

	ev := events.PostClosed{
		At:          time.Now().UTC(),
		PostID:      id,
		AuthorID:    userID,
		CommunityID: communityID,
		Reason:      "withdrawn",
		Distributed: distributed,
	}
	for _, payout := range payouts {
		ev.Payouts = append(ev.Payouts, events.Payout{UserID: payout.UserID, Amount: payout.Amount})
	}
	s.bus.Publish(ev)

	return stake, communityID, nil
}

// WithdrawEarnings выводит накопленную долю пула публикации.
// Работает для автора и инвесторов в любой момент, заморозка контента
// на этот путь не распространяется.
func (s *Service) WithdrawEarnings(ctx context.Context, userID int64, postID uuid.UUID) (int64, error) {
	amount, err := s.pool.WithdrawAccrued(ctx, postID, userID)
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"post_id": postID,
		"amount":  amount,
	}).Info("Доля пула выведена")

	s.bus.Publish(events.WithdrawalMade{
		At:         time.Now().UTC(),
		UserID:     userID,
		TargetType: "pool",
		TargetID:   postID,
		Amount:     amount,
	})
	return amount, nil
}
