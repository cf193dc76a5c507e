// Package wallet — service.go содержит бизнес-логику кошельков.
package wallet

import (
	"context"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"meritburo.ru/merit-engine/internal/cache"
	"meritburo.ru/merit-engine/internal/common"
)

// Service управляет кошельками.
type Service struct {
	repo  *Repository
	cache *cache.Cache
}

// NewService создаёт сервис кошельков.
func NewService(repo *Repository, c *cache.Cache) *Service {
	return &Service{repo: repo, cache: c}
}

// Credit начисляет мериты. Сумма строго положительная.
func (s *Service) Credit(ctx context.Context, userID, communityID, amount int64, entryType, description string, ref *uuid.UUID) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}
	newBalance, err := s.repo.Credit(ctx, userID, communityID, amount, entryType, description, ref)
	if err != nil {
		return 0, err
	}
	s.cache.Invalidate(ctx, cache.WalletKey(userID, communityID))

	log.WithFields(log.Fields{
		"user_id":      userID,
		"community_id": communityID,
		"amount":       amount,
		"type":         entryType,
	}).Debug("Начисление выполнено")
	return newBalance, nil
}

// Debit списывает мериты. Отказывает при нехватке, не меняя баланс.
func (s *Service) Debit(ctx context.Context, userID, communityID, amount int64, entryType, description string, ref *uuid.UUID) (int64, error) {
	if amount <= 0 {
		return 0, common.ErrInvalidAmount
	}
	newBalance, err := s.repo.Debit(ctx, userID, communityID, amount, entryType, description, ref)
	if err != nil {
		return 0, err
	}
	s.cache.Invalidate(ctx, cache.WalletKey(userID, communityID))

	log.WithFields(log.Fields{
		"user_id":      userID,
		"community_id": communityID,
		"amount":       amount,
		"type":         entryType,
	}).Debug("Списание выполнено")
	return newBalance, nil
}

// Balance возвращает текущий баланс (для витрины — через кеш).
func (s *Service) Balance(ctx context.Context, userID, communityID int64) (int64, error) {
	key := cache.WalletKey(userID, communityID)
	var cached int64
	if s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}

	balance, err := s.repo.GetBalance(ctx, userID, communityID)
	if err != nil {
		return 0, err
	}
	s.cache.Set(ctx, key, balance)
	return balance, nil
}

// History возвращает последние журнальные записи кошелька.
func (s *Service) History(ctx context.Context, userID, communityID int64, limit int) ([]*Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.GetEntries(ctx, userID, communityID, limit)
}
