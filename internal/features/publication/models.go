// Package publication хранит публикации и зеркальные комментарии.
// models.go описывает агрегат публикации — единственное место, где живут
// счётчики рейтинга и инвестиционного пула.
package publication

import (
	"time"

	"github.com/google/uuid"
)

// Статусы публикации. Переход active → closed терминальный:
// обратного пути нет.
const (
	StatusActive = "active"
	StatusClosed = "closed"
)

// Типы целей голоса и вывода.
const (
	TargetPublication = "publication"
	TargetComment     = "comment"
)

// Publication — агрегат публикации.
// Рейтинг и счётчики пула мутируются только атомарными инкрементами.
type Publication struct {
	ID          uuid.UUID `db:"id"`
	AuthorID    int64     `db:"author_id"`
	CommunityID int64     `db:"community_id"`
	Status      string    `db:"status"`
	RatingScore int64     `db:"rating_score"` // Производный счётчик: +amount за up, -amount за down
	Stake       int64     `db:"stake"`        // Ставка автора при создании (возвращается при отзыве)

	// Инвестиционный контракт. Доля инвесторов фиксируется при создании
	// и не пересматривается после первой принятой инвестиции.
	InvestingEnabled     bool  `db:"investing_enabled"`
	InvestorSharePercent int   `db:"investor_share_percent"` // 0-100
	PoolBalance          int64 `db:"investment_pool_balance"`
	PoolTotal            int64 `db:"investment_pool_total"` // Пожизненный счётчик, никогда не уменьшается

	TTLExpiresAt       *time.Time `db:"ttl_expires_at"` // nil = бессрочная
	StopLoss           int64      `db:"stop_loss"`      // Минимальный рейтинг для витрины; 0 = выключен
	LastEarnedAt       time.Time  `db:"last_earned_at"`
	TTLWarningNotified bool       `db:"ttl_warning_notified"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Closed сообщает, закрыта ли публикация.
func (p *Publication) Closed() bool {
	return p.Status == StatusClosed
}

// HiddenByStopLoss — предикат исключения из витрины сравнения.
// Это фильтр, а не смена статуса: рейтинг может восстановиться.
func (p *Publication) HiddenByStopLoss() bool {
	return p.StopLoss > 0 && p.RatingScore < p.StopLoss
}

// Comment — комментарий, зеркалящий породивший его голос.
// Поля plus/minus/amount_total/direction_plus дублируют голос для витрины
// и для подсчёта заморозки при выводе.
type Comment struct {
	ID            uuid.UUID  `db:"id"`
	PublicationID uuid.UUID  `db:"publication_id"`
	AuthorID      int64      `db:"author_id"`
	VoteID        *uuid.UUID `db:"vote_id"` // Голос, породивший комментарий
	Body          string     `db:"body"`
	Plus          int64      `db:"plus"`           // Сумма голосов «за» по комментарию
	Minus         int64      `db:"minus"`          // Сумма голосов «против»
	AmountTotal   int64      `db:"amount_total"`   // Сумма породившего голоса
	DirectionPlus bool       `db:"direction_plus"` // Направление породившего голоса
	Withdrawn     bool       `db:"withdrawn"`      // Отозван автором до реакций
	CreatedAt     time.Time  `db:"created_at"`
}
