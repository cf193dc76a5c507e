// Package wallet управляет меритными кошельками.
// models.go описывает структуры балансов и журнальных записей.
package wallet

import (
	"time"

	"github.com/google/uuid"
)

// Wallet представляет кошелёк пользователя в одном сообществе.
// Пара (user_id, community_id) уникальна; конвертации меритов
// между сообществами нет.
type Wallet struct {
	ID          int64     `db:"id"`           // ID записи
	UserID      int64     `db:"user_id"`      // Владелец
	CommunityID int64     `db:"community_id"` // Сообщество
	Balance     int64     `db:"balance"`      // Текущий баланс (никогда не отрицательный)
	TotalEarned int64     `db:"total_earned"` // Сколько всего заработано
	TotalSpent  int64     `db:"total_spent"`  // Сколько всего потрачено
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// Entry — одна журнальная запись движения меритов.
// Журнал ведётся для аудита и ручной сверки; баланс кошелька
// всегда равен сумме его записей.
type Entry struct {
	ID          int64      `db:"id"`
	UserID      int64      `db:"user_id"`
	CommunityID int64      `db:"community_id"`
	Amount      int64      `db:"amount"`       // Со знаком: + начисление, - списание
	EntryType   string     `db:"entry_type"`   // Тип операции
	ReferenceID *uuid.UUID `db:"reference_id"` // Голос/инвестиция/публикация, породившая запись
	Description string     `db:"description"`
	CreatedAt   time.Time  `db:"created_at"`
}

// Допустимые типы журнальных записей
const (
	EntryVoteSpend     = "vote_spend"     // Списание за голос (перелив сверх квоты)
	EntryVoteEarn      = "vote_earn"      // Заработок автора с голоса
	EntryVoteRefund    = "vote_refund"    // Компенсация неудавшегося голоса
	EntryInvest        = "invest"         // Списание инвестиции в пул
	EntryPoolPayout    = "pool_payout"    // Выплата доли пула
	EntryStake         = "stake"          // Ставка при создании публикации
	EntryStakeRefund   = "stake_refund"   // Возврат ставки при отзыве контента
	EntryAdminAdjust   = "admin_adjust"   // Ручная корректировка
)
