// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ежеминутное закрытие публикаций
// с истёкшим TTL, предупреждения о приближении TTL и уборку админ-сессий.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"meritburo.ru/merit-engine/internal/features/admin"
	"meritburo.ru/merit-engine/internal/features/lifecycle"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron      *cron.Cron
	lifecycle *lifecycle.Service
	admins    *admin.Repository
}

// NewScheduler создаёт планировщик задач. Всё расписание в UTC:
// суточные границы квот и TTL публикаций считаются в UTC.
func NewScheduler(lc *lifecycle.Service, admins *admin.Repository) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		lifecycle: lc,
		admins:    admins,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Закрытие публикаций с истёкшим TTL — каждую минуту.
	// Голоса тоже триггерят закрытие, cron подбирает публикации без трафика.
	s.cron.AddFunc("* * * * *", func() {
		closed, err := s.lifecycle.SweepExpired(ctx, time.Now().UTC())
		if err != nil {
			log.WithError(err).Error("[CRON] Ошибка закрытия по TTL")
			return
		}
		if closed > 0 {
			log.WithField("closed", closed).Info("[CRON] Публикации закрыты по TTL")
		}
	})

	// Предупреждения о приближении TTL — каждые 5 минут.
	s.cron.AddFunc("*/5 * * * *", func() {
		warned, err := s.lifecycle.WarnExpiring(ctx, time.Now().UTC())
		if err != nil {
			log.WithError(err).Error("[CRON] Ошибка рассылки TTL-предупреждений")
			return
		}
		if warned > 0 {
			log.WithField("warned", warned).Info("[CRON] Разосланы TTL-предупреждения")
		}
	})

	// Уборка истёкших админ-сессий — раз в час.
	s.cron.AddFunc("0 * * * *", func() {
		if _, err := s.admins.CleanupExpired(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка уборки админ-сессий")
		}
	})

	s.cron.Start()
	log.Info("Планировщик задач запущен (UTC)")
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
