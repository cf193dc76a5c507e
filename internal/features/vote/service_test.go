package vote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"meritburo.ru/merit-engine/internal/common"
	"meritburo.ru/merit-engine/internal/events"
	"meritburo.ru/merit-engine/internal/features/publication"
	"meritburo.ru/merit-engine/internal/features/quota"
)

// --- Фейки зависимостей ---

type fakeQuotas struct {
	remaining int64
	max       int64
	consumed  int64
	refunded  int64
	err       error
}

func (f *fakeQuotas) Consume(_ context.Context, _, _ int64, amount int64, now time.Time) (quota.Split, error) {
	if f.err != nil {
		return quota.Split{}, f.err
	}
	fromQuota := amount
	if fromQuota > f.remaining {
		fromQuota = f.remaining
	}
	f.remaining -= fromQuota
	f.consumed += fromQuota
	return quota.Split{
		FromQuota: fromQuota,
		Overflow:  amount - fromQuota,
		DayKey:    common.DayKeyUTC(now),
	}, nil
}

func (f *fakeQuotas) Refund(_ context.Context, _, _ int64, _ string, amount int64) error {
	f.refunded += amount
	f.remaining += amount
	return nil
}

type fakeWallet struct {
	balance  int64
	debited  int64
	credited int64
}

func (f *fakeWallet) Debit(_ context.Context, _, _ int64, amount int64, _, _ string, _ *uuid.UUID) (int64, error) {
	if f.balance < amount {
		return 0, common.ErrInsufficientFunds
	}
	f.balance -= amount
	f.debited += amount
	return f.balance, nil
}

func (f *fakeWallet) Credit(_ context.Context, _, _ int64, amount int64, _, _ string, _ *uuid.UUID) (int64, error) {
	f.balance += amount
	f.credited += amount
	return f.balance, nil
}

type fakeContent struct {
	pubs     map[uuid.UUID]*publication.Publication
	comments map[uuid.UUID]*publication.Comment
}

func (f *fakeContent) GetByID(_ context.Context, id uuid.UUID) (*publication.Publication, error) {
	p, ok := f.pubs[id]
	if !ok {
		return nil, common.ErrTargetNotFound
	}
	return p, nil
}

func (f *fakeContent) GetComment(_ context.Context, id uuid.UUID) (*publication.Comment, error) {
	c, ok := f.comments[id]
	if !ok {
		return nil, common.ErrTargetNotFound
	}
	return c, nil
}

type fakeStore struct {
	recorded []*Transaction
	err      error
}

func (f *fakeStore) Record(_ context.Context, t *Transaction, _ RecordTarget) error {
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, t)
	return nil
}

func (f *fakeStore) ListByTarget(_ context.Context, _ string, _ uuid.UUID, _ int) ([]*Transaction, error) {
	return f.recorded, nil
}

type fakeLifecycle struct {
	evaluated []uuid.UUID
}

func (f *fakeLifecycle) Evaluate(_ context.Context, postID uuid.UUID, _ time.Time) error {
	f.evaluated = append(f.evaluated, postID)
	return nil
}

type fixture struct {
	svc       *Service
	quotas    *fakeQuotas
	wallet    *fakeWallet
	store     *fakeStore
	lifecycle *fakeLifecycle
	bus       *events.Bus
	postID    uuid.UUID
}

func newFixture(quotaRemaining, walletBalance int64) *fixture {
	postID := uuid.New()
	f := &fixture{
		quotas:    &fakeQuotas{remaining: quotaRemaining, max: quotaRemaining},
		wallet:    &fakeWallet{balance: walletBalance},
		store:     &fakeStore{},
		lifecycle: &fakeLifecycle{},
		bus:       events.NewBus(),
		postID:    postID,
	}
	content := &fakeContent{
		pubs: map[uuid.UUID]*publication.Publication{
			postID: {ID: postID, AuthorID: 100, CommunityID: 1, Status: publication.StatusActive},
		},
		comments: map[uuid.UUID]*publication.Comment{},
	}
	f.svc = NewService(f.store, f.quotas, f.wallet, content, f.lifecycle, f.bus, 3)
	return f
}

func (f *fixture) castReq(amount int64) CastRequest {
	return CastRequest{
		VoterID:    7,
		TargetType: publication.TargetPublication,
		TargetID:   f.postID,
		Amount:     amount,
		Direction:  DirectionUp,
	}
}

// --- Тесты ---

func TestCastQuotaOnly(t *testing.T) {
	// Голос в пределах квоты не трогает кошелёк.
	f := newFixture(10, 0)

	tr, err := f.svc.Cast(context.Background(), f.castReq(4))
	if err != nil {
		t.Fatalf("Cast: %v", err)
	}
	if tr.AmountFromQuota != 4 || tr.AmountFromWallet != 0 {
		t.Errorf("разбиение %d/%d, ожидалось 4/0", tr.AmountFromQuota, tr.AmountFromWallet)
	}
	if f.wallet.debited != 0 {
		t.Errorf("кошелёк списан на %d, ожидалось 0", f.wallet.debited)
	}
	if len(f.store.recorded) != 1 {
		t.Fatalf("записано голосов %d, ожидался 1", len(f.store.recorded))
	}
	if len(f.lifecycle.evaluated) != 1 || f.lifecycle.evaluated[0] != f.postID {
		t.Errorf("жизненный цикл не пересмотрен после голоса")
	}
}

func TestCastOverflowSplit(t *testing.T) {
	// Голос сверх квоты: остаток квоты + перелив с кошелька,
	// сумма частей равна запрошенной.
	f := newFixture(3, 50)

	tr, err := f.svc.Cast(context.Background(), f.castReq(10))
	if err != nil {
		t.Fatalf("Cast: %v", err)
	}
	if tr.AmountFromQuota != 3 || tr.AmountFromWallet != 7 {
		t.Errorf("разбиение %d/%d, ожидалось 3/7", tr.AmountFromQuota, tr.AmountFromWallet)
	}
	if tr.AmountFromQuota+tr.AmountFromWallet != tr.AmountTotal {
		t.Errorf("части %d+%d не сходятся с суммой %d",
			tr.AmountFromQuota, tr.AmountFromWallet, tr.AmountTotal)
	}
	if f.wallet.balance != 43 {
		t.Errorf("баланс после перелива %d, ожидалось 43", f.wallet.balance)
	}
}

func TestCastInsufficientFundsCompensates(t *testing.T) {
	// Не хватило на перелив: квота возвращена, голос не записан.
	f := newFixture(2, 1)

	_, err := f.svc.Cast(context.Background(), f.castReq(10))
	if !errors.Is(err, common.ErrInsufficientFunds) {
		t.Fatalf("ожидалась ErrInsufficientFunds, получено %v", err)
	}
	if f.quotas.refunded != 2 {
		t.Errorf("возвращено квоты %d, ожидалось 2", f.quotas.refunded)
	}
	if f.quotas.remaining != 2 {
		t.Errorf("остаток квоты %d, ожидалось 2", f.quotas.remaining)
	}
	if f.wallet.balance != 1 {
		t.Errorf("баланс изменился: %d, ожидалось 1", f.wallet.balance)
	}
	if len(f.store.recorded) != 0 {
		t.Errorf("голос записан несмотря на сбой")
	}
}

func TestCastRecordFailureCompensatesBoth(t *testing.T) {
	// Сбой записи голоса откатывает и квоту, и кошелёк.
	f := newFixture(3, 50)
	f.store.err = errors.New("pgx: что-то сломалось")

	_, err := f.svc.Cast(context.Background(), f.castReq(10))
	if err == nil {
		t.Fatal("ожидалась ошибка записи")
	}
	if f.quotas.refunded != 3 {
		t.Errorf("возвращено квоты %d, ожидалось 3", f.quotas.refunded)
	}
	if f.wallet.balance != 50 {
		t.Errorf("баланс после отката %d, ожидалось 50", f.wallet.balance)
	}
	if f.wallet.credited != 7 {
		t.Errorf("возврат на кошелёк %d, ожидалось 7", f.wallet.credited)
	}
}

func TestCastValidation(t *testing.T) {
	f := newFixture(10, 0)

	cases := []struct {
		name string
		mod  func(*CastRequest)
		want error
	}{
		{"нулевая сумма", func(r *CastRequest) { r.Amount = 0 }, common.ErrInvalidAmount},
		{"отрицательная сумма", func(r *CastRequest) { r.Amount = -5 }, common.ErrInvalidAmount},
		{"кривое направление", func(r *CastRequest) { r.Direction = "sideways" }, common.ErrInvalidDirection},
		{"неизвестный тип цели", func(r *CastRequest) { r.TargetType = "sticker" }, common.ErrTargetNotFound},
		{"несуществующая цель", func(r *CastRequest) { r.TargetID = uuid.New() }, common.ErrTargetNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := f.castReq(3)
			tc.mod(&req)
			if _, err := f.svc.Cast(context.Background(), req); !errors.Is(err, tc.want) {
				t.Errorf("получено %v, ожидалось %v", err, tc.want)
			}
		})
	}

	if f.quotas.consumed != 0 || len(f.store.recorded) != 0 {
		t.Errorf("отклонённые голоса оставили следы: квота %d, записей %d",
			f.quotas.consumed, len(f.store.recorded))
	}
}

func TestCastSelfVote(t *testing.T) {
	f := newFixture(10, 0)
	req := f.castReq(3)
	req.VoterID = 100 // автор публикации

	if _, err := f.svc.Cast(context.Background(), req); !errors.Is(err, common.ErrSelfVote) {
		t.Fatalf("ожидалась ErrSelfVote, получено %v", err)
	}
}

func TestCastClosedTarget(t *testing.T) {
	f := newFixture(10, 0)
	f.svc.content.(*fakeContent).pubs[f.postID].Status = publication.StatusClosed

	if _, err := f.svc.Cast(context.Background(), f.castReq(3)); !errors.Is(err, common.ErrPostClosed) {
		t.Fatalf("ожидалась ErrPostClosed, получено %v", err)
	}
	if f.quotas.consumed != 0 {
		t.Errorf("квота потрачена на закрытую публикацию")
	}
}

func TestCastCommentTarget(t *testing.T) {
	// Голос за комментарий идёт через сообщество родительской публикации,
	// а жизненный цикл пересматривается у родителя.
	f := newFixture(10, 0)
	commentID := uuid.New()
	content := f.svc.content.(*fakeContent)
	content.comments[commentID] = &publication.Comment{
		ID:            commentID,
		PublicationID: f.postID,
		AuthorID:      55,
	}

	req := f.castReq(2)
	req.TargetType = publication.TargetComment
	req.TargetID = commentID

	tr, err := f.svc.Cast(context.Background(), req)
	if err != nil {
		t.Fatalf("Cast: %v", err)
	}
	if tr.CommunityID != 1 {
		t.Errorf("сообщество %d, ожидалось 1 (от родителя)", tr.CommunityID)
	}
	if len(f.lifecycle.evaluated) != 1 || f.lifecycle.evaluated[0] != f.postID {
		t.Errorf("жизненный цикл пересмотрен не у родительской публикации")
	}
}

func TestCastPublishesEvent(t *testing.T) {
	f := newFixture(10, 0)

	var got events.VoteCast
	var delivered bool
	f.bus.Subscribe(func(e events.Event) {
		if v, ok := e.(events.VoteCast); ok {
			got = v
			delivered = true
		}
	})

	tr, err := f.svc.Cast(context.Background(), f.castReq(5))
	if err != nil {
		t.Fatalf("Cast: %v", err)
	}
	if !delivered {
		t.Fatal("событие vote.cast не опубликовано")
	}
	if got.VoteID != tr.ID || got.Amount != 5 || got.AuthorID != 100 {
		t.Errorf("событие не совпадает с транзакцией: %+v", got)
	}
}
