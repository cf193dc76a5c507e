// Package investment управляет инвестиционными пулами публикаций.
// models.go описывает инвестиции и витринную разбивку пула.
package investment

import (
	"time"

	"github.com/google/uuid"
)

// Investment — неизменяемая запись инвестиции в публикацию.
// Доля инвестора нигде не хранится как мутируемый процент — она
// каждый раз выводится из суммы его инвестиций и пожизненного
// объёма пула, чтобы исключить дрейф.
type Investment struct {
	ID         uuid.UUID `db:"id"`
	PostID     uuid.UUID `db:"post_id"`
	InvestorID int64     `db:"investor_id"`
	Amount     int64     `db:"amount"`
	CreatedAt  time.Time `db:"created_at"`
}

// Position — итог принятой инвестиции для ответа вызывающей стороне.
type Position struct {
	InvestmentID uuid.UUID `json:"investment_id"`
	SharePercent float64   `json:"share_percent"` // Эффективная доля инвестора, %
	PoolBalance  int64     `json:"pool_balance"`
	PoolTotal    int64     `json:"pool_total"`
}

// InvestorShare — строка витринной разбивки пула.
type InvestorShare struct {
	InvestorID      int64     `json:"investor_id"`
	Amount          int64     `json:"amount"`
	SharePercent    float64   `json:"share_percent"`
	FirstInvestDate time.Time `json:"first_invest_date"`
	LastInvestDate  time.Time `json:"last_invest_date"`
}

// Breakdown — полная витринная разбивка пула публикации.
type Breakdown struct {
	ContractPercent int             `json:"contract_percent"`
	Investors       []InvestorShare `json:"investors"`
	PoolBalance     int64           `json:"pool_balance"`
	PoolTotal       int64           `json:"pool_total"`
}

// Payout — выплата одному получателю при расчёте пула.
type Payout struct {
	UserID int64
	Amount int64
}
