// Package vote — service.go координирует голос от проверки до записи.
//
// Последовательность двухфазная: резерв квоты → списание перелива с
// кошелька → запись голоса с эффектами. Падение любого шага компенсирует
// уже применённые шаги, так что голос не может пройти «наполовину».
package vote

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"meritburo.ru/merit-engine/internal/common"
	"meritburo.ru/merit-engine/internal/db/postgres"
	"meritburo.ru/merit-engine/internal/events"
	"meritburo.ru/merit-engine/internal/features/publication"
	"meritburo.ru/merit-engine/internal/features/quota"
	"meritburo.ru/merit-engine/internal/features/wallet"
	"meritburo.ru/merit-engine/internal/saga"
)

// quotaManager — операции квоты, нужные голосованию.
type quotaManager interface {
	Consume(ctx context.Context, userID, communityID, amount int64, now time.Time) (quota.Split, error)
	Refund(ctx context.Context, userID, communityID int64, dayKey string, amount int64) error
}

// walletLedger — операции кошелька, нужные голосованию.
type walletLedger interface {
	Debit(ctx context.Context, userID, communityID, amount int64, entryType, description string, ref *uuid.UUID) (int64, error)
	Credit(ctx context.Context, userID, communityID, amount int64, entryType, description string, ref *uuid.UUID) (int64, error)
}

// contentStore отдаёт цели голосования.
type contentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*publication.Publication, error)
	GetComment(ctx context.Context, id uuid.UUID) (*publication.Comment, error)
}

// lifecycleEvaluator пересматривает жизненный цикл публикации после голоса.
type lifecycleEvaluator interface {
	Evaluate(ctx context.Context, postID uuid.UUID, now time.Time) error
}

// voteStore записывает голоса и отдаёт их историю.
type voteStore interface {
	Record(ctx context.Context, t *Transaction, target RecordTarget) error
	ListByTarget(ctx context.Context, targetType string, targetID uuid.UUID, limit int) ([]*Transaction, error)
}

// Service обрабатывает голоса.
type Service struct {
	repo      voteStore
	quotas    quotaManager
	wallets   walletLedger
	content   contentStore
	lifecycle lifecycleEvaluator
	bus       *events.Bus
	retries   int
}

// NewService создаёт сервис голосования. retries — сколько раз повторять
// запись голоса после deadlock/serialization failure.
func NewService(repo voteStore, quotas quotaManager, wallets walletLedger, content contentStore, lifecycle lifecycleEvaluator, bus *events.Bus, retries int) *Service {
	return &Service{
		repo:      repo,
		quotas:    quotas,
		wallets:   wallets,
		content:   content,
		lifecycle: lifecycle,
		bus:       bus,
		retries:   retries,
	}
}

// Cast проводит голос целиком. При любом сбое после резерва квоты или
// списания с кошелька эффекты компенсируются до возврата ошибки.
func (s *Service) Cast(ctx context.Context, req CastRequest) (*Transaction, error) {
	if req.Amount <= 0 {
		return nil, common.ErrInvalidAmount
	}
	if req.Direction != DirectionUp && req.Direction != DirectionDown {
		return nil, common.ErrInvalidDirection
	}

	target, postID, err := s.resolveTarget(ctx, req)
	if err != nil {
		return nil, err
	}
	if req.VoterID == target.AuthorID {
		return nil, common.ErrSelfVote
	}

	now := time.Now().UTC()
	t := &Transaction{
		ID:          uuid.New(),
		VoterID:     req.VoterID,
		CommunityID: target.CommunityID,
		TargetType:  req.TargetType,
		TargetID:    req.TargetID,
		Direction:   req.Direction,
		AmountTotal: req.Amount,
		Comment:     req.Comment,
		CreatedAt:   now,
	}

	var split quota.Split
	steps := []saga.Step{
		{
			Name: "резерв квоты",
			Apply: func(ctx context.Context) error {
				var err error
				split, err = s.quotas.Consume(ctx, req.VoterID, target.CommunityID, req.Amount, now)
				if err != nil {
					return err
				}
				t.AmountFromQuota = split.FromQuota
				t.AmountFromWallet = split.Overflow
				return nil
			},
			Compensate: func(ctx context.Context) error {
				return s.quotas.Refund(ctx, req.VoterID, target.CommunityID, split.DayKey, split.FromQuota)
			},
		},
		{
			Name: "списание перелива",
			Apply: func(ctx context.Context) error {
				if split.Overflow == 0 {
					return nil
				}
				_, err := s.wallets.Debit(ctx, req.VoterID, target.CommunityID,
					split.Overflow, wallet.EntryVoteSpend, "Голос сверх квоты", &t.ID)
				return err
			},
			Compensate: func(ctx context.Context) error {
				if split.Overflow == 0 {
					return nil
				}
				_, err := s.wallets.Credit(ctx, req.VoterID, target.CommunityID,
					split.Overflow, wallet.EntryVoteRefund, "Возврат: голос не прошёл", &t.ID)
				return err
			},
		},
		{
			Name: "запись голоса",
			Apply: func(ctx context.Context) error {
				// Запись бьётся за строку публикации с другими голосами
				// и инвестициями — повторяем после конкуренции.
				return postgres.WithRetry(ctx, s.retries, func(ctx context.Context) error {
					return s.repo.Record(ctx, t, target)
				})
			},
		},
	}
	if err := saga.Run(ctx, steps); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"vote_id":     t.ID,
		"voter_id":    t.VoterID,
		"target":      t.TargetID,
		"direction":   t.Direction,
		"from_quota":  t.AmountFromQuota,
		"from_wallet": t.AmountFromWallet,
	}).Info("Голос зачтён")

	s.bus.Publish(events.VoteCast{
		At:          now,
		VoteID:      t.ID,
		VoterID:     t.VoterID,
		AuthorID:    target.AuthorID,
		CommunityID: t.CommunityID,
		TargetType:  t.TargetType,
		TargetID:    t.TargetID,
		Direction:   t.Direction,
		Amount:      t.AmountTotal,
		FromQuota:   t.AmountFromQuota,
		FromWallet:  t.AmountFromWallet,
	})

	// Пересматриваем жизненный цикл затронутой публикации.
	// Голос уже зачтён, поэтому ошибка здесь только логируется.
	if err := s.lifecycle.Evaluate(ctx, postID, now); err != nil {
		log.WithError(err).WithField("publication_id", postID).Error("Ошибка пересмотра жизненного цикла")
	}

	return t, nil
}

// resolveTarget находит цель голоса и публикацию, чей жизненный цикл
// надо пересмотреть после голоса.
func (s *Service) resolveTarget(ctx context.Context, req CastRequest) (RecordTarget, uuid.UUID, error) {
	switch req.TargetType {
	case publication.TargetPublication:
		p, err := s.content.GetByID(ctx, req.TargetID)
		if err != nil {
			return RecordTarget{}, uuid.Nil, err
		}
		if p.Closed() {
			return RecordTarget{}, uuid.Nil, common.ErrPostClosed
		}
		return RecordTarget{
			Type:             publication.TargetPublication,
			ID:               p.ID,
			AuthorID:         p.AuthorID,
			CommunityID:      p.CommunityID,
			InvestingEnabled: p.InvestingEnabled,
		}, p.ID, nil

	case publication.TargetComment:
		c, err := s.content.GetComment(ctx, req.TargetID)
		if err != nil {
			return RecordTarget{}, uuid.Nil, err
		}
		parent, err := s.content.GetByID(ctx, c.PublicationID)
		if err != nil {
			return RecordTarget{}, uuid.Nil, err
		}
		if parent.Closed() {
			return RecordTarget{}, uuid.Nil, common.ErrPostClosed
		}
		return RecordTarget{
			Type:        publication.TargetComment,
			ID:          c.ID,
			AuthorID:    c.AuthorID,
			CommunityID: parent.CommunityID,
		}, parent.ID, nil
	}
	return RecordTarget{}, uuid.Nil, common.ErrTargetNotFound
}

// History возвращает последние голоса по цели.
func (s *Service) History(ctx context.Context, targetType string, targetID uuid.UUID, limit int) ([]*Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListByTarget(ctx, targetType, targetID, limit)
}
