// Package lifecycle управляет переходом публикаций active → closed.
//
// Закрытие и расчёт пула идут строго в одной точке: статус переводит
// условный UPDATE, и только тот вызов, который реально перевернул строку,
// запускает расчёт. Повторный вызов по уже закрытой публикации — no-op.
package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"meritburo.ru/merit-engine/internal/events"
	"meritburo.ru/merit-engine/internal/features/investment"
	"meritburo.ru/merit-engine/internal/features/publication"
)

// Причины закрытия публикации.
const (
	ReasonTTL       = "ttl"
	ReasonWithdrawn = "withdrawn"
)

// contentStore — операции хранилища публикаций, нужные жизненному циклу.
type contentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*publication.Publication, error)
	MarkClosed(ctx context.Context, id uuid.UUID) (bool, error)
	MarkTTLWarned(ctx context.Context, id uuid.UUID) (bool, error)
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*publication.Publication, error)
	ListNeedingWarning(ctx context.Context, now time.Time, threshold time.Duration, limit int) ([]*publication.Publication, error)
}

// poolSettler рассчитывает инвестиционный пул закрытой публикации.
type poolSettler interface {
	Settle(ctx context.Context, postID uuid.UUID) (int64, []investment.Payout, error)
}

// Service — менеджер жизненного цикла публикаций.
type Service struct {
	content       contentStore
	pool          poolSettler
	bus           *events.Bus
	warnThreshold time.Duration
	batchSize     int
}

// NewService создаёт менеджер жизненного цикла.
func NewService(content contentStore, pool poolSettler, bus *events.Bus, warnThreshold time.Duration) *Service {
	return &Service{
		content:       content,
		pool:          pool,
		bus:           bus,
		warnThreshold: warnThreshold,
		batchSize:     100,
	}
}

// Evaluate пересматривает жизненный цикл публикации в произвольный момент
// (после голоса, инвестиции или по запросу). Если TTL уже истёк —
// закрывает, не дожидаясь фонового прохода.
func (s *Service) Evaluate(ctx context.Context, postID uuid.UUID, now time.Time) error {
	p, err := s.content.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if p.Closed() || p.TTLExpiresAt == nil || now.Before(*p.TTLExpiresAt) {
		return nil
	}
	_, err = s.Close(ctx, postID, ReasonTTL)
	return err
}

// Close переводит публикацию в closed и рассчитывает пул.
// Возвращает false без ошибки, если публикация уже была закрыта —
// расчёт в этом случае не повторяется.
func (s *Service) Close(ctx context.Context, postID uuid.UUID, reason string) (bool, error) {
	flipped, err := s.content.MarkClosed(ctx, postID)
	if err != nil {
		return false, err
	}
	if !flipped {
		return false, nil
	}

	distributed, payouts, err := s.pool.Settle(ctx, postID)
	if err != nil {
		// Статус уже переведён; расчёт обязан завершиться.
		log.WithFields(log.Fields{
			"post_id": postID,
			"reason":  reason,
		}).WithError(err).Error("СВЕРКА: публикация закрыта, пул не рассчитан")
		return true, err
	}

	p, err := s.content.GetByID(ctx, postID)
	if err != nil {
		return true, err
	}

	log.WithFields(log.Fields{
		"post_id":     postID,
		"reason":      reason,
		"distributed": distributed,
	}).Info("Публикация закрыта")

	ev := events.PostClosed{
		At:          time.Now().UTC(),
		PostID:      postID,
		AuthorID:    p.AuthorID,
		CommunityID: p.CommunityID,
		Reason:      reason,
		Distributed: distributed,
	}
	for _, payout := range payouts {
		ev.Payouts = append(ev.Payouts, events.Payout{UserID: payout.UserID, Amount: payout.Amount})
	}
	s.bus.Publish(ev)

	return true, nil
}

// SweepExpired закрывает все публикации с истёкшим TTL.
// Ошибки отдельных публикаций логируются и не прерывают проход.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	expired, err := s.content.ListExpired(ctx, now, s.batchSize)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, p := range expired {
		flipped, err := s.Close(ctx, p.ID, ReasonTTL)
		if err != nil {
			log.WithField("post_id", p.ID).WithError(err).Error("Ошибка закрытия публикации по TTL")
			continue
		}
		if flipped {
			closed++
		}
	}
	return closed, nil
}

// WarnExpiring рассылает предупреждения о приближении TTL.
// Флаг ttl_warning_notified ставится условным UPDATE, так что каждая
// публикация предупреждается ровно один раз.
func (s *Service) WarnExpiring(ctx context.Context, now time.Time) (int, error) {
	pending, err := s.content.ListNeedingWarning(ctx, now, s.warnThreshold, s.batchSize)
	if err != nil {
		return 0, err
	}

	warned := 0
	for _, p := range pending {
		flagged, err := s.content.MarkTTLWarned(ctx, p.ID)
		if err != nil {
			log.WithField("post_id", p.ID).WithError(err).Error("Ошибка отметки TTL-предупреждения")
			continue
		}
		if !flagged || p.TTLExpiresAt == nil {
			continue
		}
		s.bus.Publish(events.TTLWarning{
			At:        time.Now().UTC(),
			PostID:    p.ID,
			AuthorID:  p.AuthorID,
			ExpiresAt: *p.TTLExpiresAt,
		})
		warned++
	}
	return warned, nil
}
