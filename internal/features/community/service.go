// Package community — service.go содержит бизнес-логику настроек сообществ.
package community

import (
	"context"
	"fmt"

	"meritburo.ru/merit-engine/internal/config"
)

// Service отдаёт и меняет экономические настройки сообществ.
type Service struct {
	repo *Repository
	cfg  *config.Config
}

// NewService создаёт сервис сообществ.
func NewService(repo *Repository, cfg *config.Config) *Service {
	return &Service{repo: repo, cfg: cfg}
}

// Settings возвращает настройки сообщества, лениво создавая запись
// с дефолтами из конфига.
func (s *Service) Settings(ctx context.Context, communityID int64) (*Community, error) {
	return s.repo.GetOrCreate(ctx, communityID, s.cfg.QuotaDailyMax, s.cfg.DefaultInvestorShare)
}

// UpdateEconomy меняет экономические настройки. Затрагивает только новые
// публикации и новые квотные сутки: зафиксированные контракты и уже
// созданные квоты не трогаются.
func (s *Service) UpdateEconomy(ctx context.Context, communityID int64, quotaMax int64, investorShare int, investingEnabled bool) error {
	if quotaMax < 0 {
		return fmt.Errorf("дневная квота не может быть отрицательной")
	}
	if investorShare < 0 || investorShare > 100 {
		return fmt.Errorf("доля инвесторов должна быть в пределах 0-100")
	}
	// Гарантируем, что запись существует, прежде чем обновлять
	if _, err := s.Settings(ctx, communityID); err != nil {
		return err
	}
	return s.repo.UpdateEconomy(ctx, communityID, quotaMax, investorShare, investingEnabled)
}
