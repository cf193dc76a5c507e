// Package community хранит экономические настройки сообществ.
// models.go описывает структуру настроек.
package community

import "time"

// Community — экономические настройки одного сообщества.
// Запись создаётся лениво при первом обращении с дефолтами из конфига.
type Community struct {
	ID                   int64     `db:"id"`                     // Telegram/внешний ID сообщества
	Title                string    `db:"title"`                  // Название (для админки)
	QuotaMax             int64     `db:"quota_max"`              // Дневная квота бесплатных голосов
	DefaultInvestorShare int       `db:"default_investor_share"` // Доля инвесторов для новых публикаций, %
	InvestingEnabled     bool      `db:"investing_enabled"`      // Разрешено ли инвестирование в сообществе
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}
