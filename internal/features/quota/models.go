// Package quota управляет дневной бесплатной квотой голосов.
// models.go описывает структуры квоты и разбиения суммы.
package quota

import "time"

// Quota — квота пользователя в сообществе на одни календарные сутки UTC.
// Новая запись создаётся при первом голосе суток с remaining = max;
// записи прошлых суток остаются в таблице для аудита, но не используются.
// Инвариант: 0 ≤ remaining ≤ max.
type Quota struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	CommunityID int64     `db:"community_id"`
	DayKey      string    `db:"day_key"`    // Календарные сутки UTC: 2006-01-02
	Remaining   int64     `db:"remaining"`  // Остаток бесплатных голосов
	Max         int64     `db:"max_amount"` // Дневной максимум на момент создания записи
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Split — разбиение суммы голоса между квотой и кошельком.
// Инвариант: FromQuota + Overflow == исходная сумма.
type Split struct {
	FromQuota int64  // Покрыто квотой
	Overflow  int64  // Перелив, списываемый с кошелька
	DayKey    string // Сутки, в чью квоту ушло FromQuota (для компенсации)
}

// Status — остаток квоты для витрины.
type Status struct {
	Remaining int64     `json:"remaining"`
	Max       int64     `json:"max"`
	ResetsAt  time.Time `json:"resets_at"` // Следующая полночь UTC
}
