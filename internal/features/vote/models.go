// Package vote превращает голос в учтённую транзакцию с точным
// разбиением квота/кошелёк. models.go описывает структуру транзакции.
package vote

import (
	"time"

	"github.com/google/uuid"
)

// Направления голоса.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Transaction — неизменяемая запись голоса: единственный источник правды
// о том, сколько было проголосовано и откуда взяты мериты.
// Инвариант: AmountFromQuota + AmountFromWallet == AmountTotal.
type Transaction struct {
	ID               uuid.UUID `db:"id"`
	VoterID          int64     `db:"voter_id"`
	CommunityID      int64     `db:"community_id"`
	TargetType       string    `db:"target_type"` // publication | comment
	TargetID         uuid.UUID `db:"target_id"`
	Direction        string    `db:"direction"`    // up | down
	AmountTotal      int64     `db:"amount_total"` // Всегда положительный модуль
	AmountFromQuota  int64     `db:"amount_from_quota"`
	AmountFromWallet int64     `db:"amount_from_wallet"`
	Comment          string    `db:"comment"` // Необязательный текст; порождает зеркальный комментарий
	CreatedAt        time.Time `db:"created_at"`
}

// CastRequest — входные данные голоса.
type CastRequest struct {
	VoterID    int64
	TargetType string
	TargetID   uuid.UUID
	Amount     int64
	Direction  string
	Comment    string
}
