// Package events определяет доменные события движка и внутрипроцессную
// шину для их доставки. Вместо иерархии классов каждое событие — отдельная
// структура со своим набором полей, объединённая общим интерфейсом Event;
// потребители разбирают события исчерпывающим type switch.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Kind идентифицирует тип доменного события.
type Kind string

const (
	// KindVoteCast — голос зачтён и записан в журнал.
	KindVoteCast Kind = "vote.cast"
	// KindInvestmentMade — инвестиция принята в пул публикации.
	KindInvestmentMade Kind = "investment.made"
	// KindPostClosed — публикация закрыта (TTL или отзыв), пул рассчитан.
	KindPostClosed Kind = "post.closed"
	// KindTTLWarning — до истечения TTL публикации осталось меньше порога.
	KindTTLWarning Kind = "post.ttl_warning"
	// KindWithdrawalMade — выполнен вывод (контент или доля пула).
	KindWithdrawalMade Kind = "withdrawal.made"
)

// Event — общий интерфейс доменных событий.
type Event interface {
	EventKind() Kind
	OccurredAt() time.Time
}

// VoteCast несёт данные зачтённого голоса.
type VoteCast struct {
	At          time.Time
	VoteID      uuid.UUID
	VoterID     int64
	AuthorID    int64
	CommunityID int64
	TargetType  string
	TargetID    uuid.UUID
	Direction   string
	Amount      int64
	FromQuota   int64
	FromWallet  int64
}

func (e VoteCast) EventKind() Kind       { return KindVoteCast }
func (e VoteCast) OccurredAt() time.Time { return e.At }

// InvestmentMade несёт данные принятой инвестиции.
type InvestmentMade struct {
	At           time.Time
	InvestmentID uuid.UUID
	PostID       uuid.UUID
	InvestorID   int64
	Amount       int64
	SharePercent float64
	PoolBalance  int64
	PoolTotal    int64
}

func (e InvestmentMade) EventKind() Kind       { return KindInvestmentMade }
func (e InvestmentMade) OccurredAt() time.Time { return e.At }

// Payout — выплата одному получателю при расчёте пула.
type Payout struct {
	UserID int64
	Amount int64
}

// PostClosed несёт данные закрытия публикации и итог расчёта пула.
type PostClosed struct {
	At          time.Time
	PostID      uuid.UUID
	AuthorID    int64
	CommunityID int64
	Reason      string // "ttl" или "withdrawn"
	Distributed int64
	Payouts     []Payout
}

func (e PostClosed) EventKind() Kind       { return KindPostClosed }
func (e PostClosed) OccurredAt() time.Time { return e.At }

// TTLWarning сигнализирует о приближении TTL. Ставится ровно один раз
// на публикацию; доставка получателю — забота подписчиков.
type TTLWarning struct {
	At        time.Time
	PostID    uuid.UUID
	AuthorID  int64
	ExpiresAt time.Time
}

func (e TTLWarning) EventKind() Kind       { return KindTTLWarning }
func (e TTLWarning) OccurredAt() time.Time { return e.At }

// WithdrawalMade несёт данные выполненного вывода.
type WithdrawalMade struct {
	At         time.Time
	UserID     int64
	TargetType string // "publication", "comment" или "pool"
	TargetID   uuid.UUID
	Amount     int64
}

func (e WithdrawalMade) EventKind() Kind       { return KindWithdrawalMade }
func (e WithdrawalMade) OccurredAt() time.Time { return e.At }
