// Package quota — service.go содержит бизнес-логику квот.
package quota

import (
	"context"
	"time"

	"meritburo.ru/merit-engine/internal/cache"
	"meritburo.ru/merit-engine/internal/common"
	"meritburo.ru/merit-engine/internal/features/community"
)

// communitySettings отдаёт экономические настройки сообщества.
type communitySettings interface {
	Settings(ctx context.Context, communityID int64) (*community.Community, error)
}

// Service управляет дневными квотами.
type Service struct {
	repo        *Repository
	communities communitySettings
	cache       *cache.Cache
}

// NewService создаёт сервис квот.
func NewService(repo *Repository, communities communitySettings, c *cache.Cache) *Service {
	return &Service{repo: repo, communities: communities, cache: c}
}

// Consume разбивает сумму голоса: fromQuota = min(remaining, amount),
// overflow — остальное. Кошелька метод не касается: перелив списывает
// вызывающая сторона и обязана вернуть квоту через Refund, если списание
// с кошелька не удалось.
func (s *Service) Consume(ctx context.Context, userID, communityID, amount int64, now time.Time) (Split, error) {
	if amount <= 0 {
		return Split{}, common.ErrInvalidAmount
	}

	settings, err := s.communities.Settings(ctx, communityID)
	if err != nil {
		return Split{}, err
	}

	dayKey := common.DayKeyUTC(now)
	split, err := s.repo.Consume(ctx, userID, communityID, dayKey, amount, settings.QuotaMax)
	if err != nil {
		return Split{}, err
	}
	s.cache.Invalidate(ctx, cache.QuotaKey(userID, communityID, dayKey))
	return split, nil
}

// Refund компенсирует зарезервированную квоту после неудачного голоса.
func (s *Service) Refund(ctx context.Context, userID, communityID int64, dayKey string, amount int64) error {
	if amount <= 0 {
		return nil
	}
	if err := s.repo.Refund(ctx, userID, communityID, dayKey, amount); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, cache.QuotaKey(userID, communityID, dayKey))
	return nil
}

// Status возвращает остаток квоты для витрины (через кеш).
func (s *Service) Status(ctx context.Context, userID, communityID int64, now time.Time) (*Status, error) {
	dayKey := common.DayKeyUTC(now)
	key := cache.QuotaKey(userID, communityID, dayKey)

	var cached Status
	if s.cache.Get(ctx, key, &cached) {
		return &cached, nil
	}

	settings, err := s.communities.Settings(ctx, communityID)
	if err != nil {
		return nil, err
	}
	remaining, max, err := s.repo.Peek(ctx, userID, communityID, dayKey, settings.QuotaMax)
	if err != nil {
		return nil, err
	}

	st := &Status{Remaining: remaining, Max: max, ResetsAt: common.NextDayUTC(now)}
	s.cache.Set(ctx, key, st)
	return st, nil
}
