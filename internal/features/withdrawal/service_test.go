package withdrawal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"meritburo.ru/merit-engine/internal/cache"
	"meritburo.ru/merit-engine/internal/common"
	"meritburo.ru/merit-engine/internal/events"
	"meritburo.ru/merit-engine/internal/features/investment"
	"meritburo.ru/merit-engine/internal/features/publication"
)

// --- Фейки ---

type fakeWithdrawer struct {
	stake       int64
	amount      int64
	communityID int64
	pubErr      error
	commentErr  error
	pubCalls    int
}

func (f *fakeWithdrawer) WithdrawPublication(_ context.Context, _ uuid.UUID, _ int64) (int64, int64, error) {
	f.pubCalls++
	if f.pubErr != nil {
		return 0, 0, f.pubErr
	}
	return f.stake, f.communityID, nil
}

func (f *fakeWithdrawer) WithdrawComment(_ context.Context, _ uuid.UUID, _ int64) (int64, int64, error) {
	if f.commentErr != nil {
		return 0, 0, f.commentErr
	}
	return f.amount, f.communityID, nil
}

type fakePool struct {
	settleCalls int
	distributed int64
	payouts     []investment.Payout
	settleErr   error
	accrued     int64
	accruedErr  error
}

func (f *fakePool) Settle(_ context.Context, _ uuid.UUID) (int64, []investment.Payout, error) {
	f.settleCalls++
	if f.settleErr != nil {
		return 0, nil, f.settleErr
	}
	return f.distributed, f.payouts, nil
}

func (f *fakePool) WithdrawAccrued(_ context.Context, _ uuid.UUID, _ int64) (int64, error) {
	if f.accruedErr != nil {
		return 0, f.accruedErr
	}
	return f.accrued, nil
}

type eventLog struct {
	closed      []events.PostClosed
	withdrawals []events.WithdrawalMade
}

func (l *eventLog) handle(e events.Event) {
	switch v := e.(type) {
	case events.PostClosed:
		l.closed = append(l.closed, v)
	case events.WithdrawalMade:
		l.withdrawals = append(l.withdrawals, v)
	}
}

func newService(repo *fakeWithdrawer, p *fakePool) (*Service, *eventLog) {
	bus := events.NewBus()
	log := &eventLog{}
	bus.Subscribe(log.handle)
	return NewService(repo, p, cache.New(nil, time.Minute), bus), log
}

// --- Тесты ---

func TestWithdrawPublication(t *testing.T) {
	repo := &fakeWithdrawer{stake: 25, communityID: 1}
	pool := &fakePool{
		distributed: 40,
		payouts:     []investment.Payout{{UserID: 7, Amount: 40}},
	}
	svc, log := newService(repo, pool)

	postID := uuid.New()
	amount, err := svc.WithdrawContent(context.Background(), 100, publication.TargetPublication, postID)
	if err != nil {
		t.Fatalf("WithdrawContent: %v", err)
	}
	if amount != 25 {
		t.Errorf("возврат ставки %d, ожидалось 25", amount)
	}
	if pool.settleCalls != 1 {
		t.Errorf("расчётов пула %d, ожидался 1", pool.settleCalls)
	}
	if len(log.closed) != 1 {
		t.Fatalf("событий post.closed %d, ожидалось 1", len(log.closed))
	}
	if log.closed[0].Reason != "withdrawn" || log.closed[0].Distributed != 40 {
		t.Errorf("post.closed: reason=%q distributed=%d", log.closed[0].Reason, log.closed[0].Distributed)
	}
	if len(log.withdrawals) != 1 || log.withdrawals[0].Amount != 25 {
		t.Errorf("события withdrawal.made: %+v", log.withdrawals)
	}
}

func TestWithdrawComment(t *testing.T) {
	repo := &fakeWithdrawer{amount: 5, communityID: 1}
	pool := &fakePool{}
	svc, log := newService(repo, pool)

	amount, err := svc.WithdrawContent(context.Background(), 7, publication.TargetComment, uuid.New())
	if err != nil {
		t.Fatalf("WithdrawContent: %v", err)
	}
	if amount != 5 {
		t.Errorf("возврат %d, ожидалось 5", amount)
	}
	// Отзыв комментария публикацию не закрывает и пул не трогает.
	if pool.settleCalls != 0 {
		t.Errorf("расчёт пула вызван при отзыве комментария")
	}
	if len(log.closed) != 0 {
		t.Errorf("post.closed опубликовано при отзыве комментария")
	}
	if len(log.withdrawals) != 1 {
		t.Errorf("событий withdrawal.made %d, ожидалось 1", len(log.withdrawals))
	}
}

func TestWithdrawContentErrors(t *testing.T) {
	cases := []struct {
		name       string
		targetType string
		setup      func(*fakeWithdrawer)
		want       error
	}{
		{"неизвестный тип цели", "sticker", func(*fakeWithdrawer) {}, common.ErrTargetNotFound},
		{"замороженная публикация", publication.TargetPublication,
			func(f *fakeWithdrawer) { f.pubErr = common.ErrTargetFrozen }, common.ErrTargetFrozen},
		{"чужая публикация", publication.TargetPublication,
			func(f *fakeWithdrawer) { f.pubErr = common.ErrNotAuthor }, common.ErrNotAuthor},
		{"замороженный комментарий", publication.TargetComment,
			func(f *fakeWithdrawer) { f.commentErr = common.ErrTargetFrozen }, common.ErrTargetFrozen},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeWithdrawer{}
			tc.setup(repo)
			svc, log := newService(repo, &fakePool{})

			_, err := svc.WithdrawContent(context.Background(), 100, tc.targetType, uuid.New())
			if !errors.Is(err, tc.want) {
				t.Fatalf("получено %v, ожидалось %v", err, tc.want)
			}
			if len(log.withdrawals) != 0 || len(log.closed) != 0 {
				t.Errorf("отклонённый отзыв опубликовал события")
			}
		})
	}
}

func TestWithdrawPublicationSettleFailure(t *testing.T) {
	// Публикация уже отозвана, но расчёт пула упал — ошибка наружу,
	// события не публикуются.
	repo := &fakeWithdrawer{stake: 25, communityID: 1}
	pool := &fakePool{settleErr: errors.New("пул недоступен")}
	svc, log := newService(repo, pool)

	_, err := svc.WithdrawContent(context.Background(), 100, publication.TargetPublication, uuid.New())
	if err == nil {
		t.Fatal("ожидалась ошибка расчёта")
	}
	if repo.pubCalls != 1 {
		t.Errorf("отзыв публикации вызван %d раз", repo.pubCalls)
	}
	if len(log.closed) != 0 || len(log.withdrawals) != 0 {
		t.Errorf("события опубликованы при нерассчитанном пуле")
	}
}

func TestWithdrawEarnings(t *testing.T) {
	pool := &fakePool{accrued: 16}
	svc, log := newService(&fakeWithdrawer{}, pool)

	postID := uuid.New()
	amount, err := svc.WithdrawEarnings(context.Background(), 7, postID)
	if err != nil {
		t.Fatalf("WithdrawEarnings: %v", err)
	}
	if amount != 16 {
		t.Errorf("выведено %d, ожидалось 16", amount)
	}
	if len(log.withdrawals) != 1 {
		t.Fatalf("событий withdrawal.made %d, ожидалось 1", len(log.withdrawals))
	}
	if log.withdrawals[0].TargetType != "pool" || log.withdrawals[0].TargetID != postID {
		t.Errorf("событие: %+v", log.withdrawals[0])
	}
}

func TestWithdrawEarningsInsufficient(t *testing.T) {
	pool := &fakePool{accruedErr: common.ErrInsufficientPoolBalance}
	svc, log := newService(&fakeWithdrawer{}, pool)

	_, err := svc.WithdrawEarnings(context.Background(), 7, uuid.New())
	if !errors.Is(err, common.ErrInsufficientPoolBalance) {
		t.Fatalf("ожидалась ErrInsufficientPoolBalance, получено %v", err)
	}
	if len(log.withdrawals) != 0 {
		t.Errorf("событие опубликовано при отказе")
	}
}
