package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"meritburo.ru/merit-engine/internal/common"
	"meritburo.ru/merit-engine/internal/events"
	"meritburo.ru/merit-engine/internal/features/investment"
	"meritburo.ru/merit-engine/internal/features/publication"
)

// --- Фейки ---

type fakeContent struct {
	pubs map[uuid.UUID]*publication.Publication
}

func (f *fakeContent) GetByID(_ context.Context, id uuid.UUID) (*publication.Publication, error) {
	p, ok := f.pubs[id]
	if !ok {
		return nil, common.ErrTargetNotFound
	}
	return p, nil
}

func (f *fakeContent) MarkClosed(_ context.Context, id uuid.UUID) (bool, error) {
	p, ok := f.pubs[id]
	if !ok || p.Closed() {
		return false, nil
	}
	p.Status = publication.StatusClosed
	return true, nil
}

func (f *fakeContent) MarkTTLWarned(_ context.Context, id uuid.UUID) (bool, error) {
	p, ok := f.pubs[id]
	if !ok || p.TTLWarningNotified {
		return false, nil
	}
	p.TTLWarningNotified = true
	return true, nil
}

func (f *fakeContent) ListExpired(_ context.Context, now time.Time, _ int) ([]*publication.Publication, error) {
	var out []*publication.Publication
	for _, p := range f.pubs {
		if !p.Closed() && p.TTLExpiresAt != nil && !now.Before(*p.TTLExpiresAt) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeContent) ListNeedingWarning(_ context.Context, now time.Time, threshold time.Duration, _ int) ([]*publication.Publication, error) {
	var out []*publication.Publication
	for _, p := range f.pubs {
		if !p.Closed() && !p.TTLWarningNotified && p.TTLExpiresAt != nil &&
			p.TTLExpiresAt.Sub(now) <= threshold && now.Before(*p.TTLExpiresAt) {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeSettler struct {
	calls       int
	distributed int64
	payouts     []investment.Payout
	err         error
}

func (f *fakeSettler) Settle(_ context.Context, _ uuid.UUID) (int64, []investment.Payout, error) {
	f.calls++
	if f.err != nil {
		return 0, nil, f.err
	}
	return f.distributed, f.payouts, nil
}

func newPub(ttl *time.Time) *publication.Publication {
	return &publication.Publication{
		ID:           uuid.New(),
		AuthorID:     100,
		CommunityID:  1,
		Status:       publication.StatusActive,
		TTLExpiresAt: ttl,
	}
}

// --- Тесты ---

func TestEvaluateNoop(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(time.Hour)

	cases := []struct {
		name string
		pub  *publication.Publication
	}{
		{"без TTL", newPub(nil)},
		{"TTL не истёк", newPub(&future)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			content := &fakeContent{pubs: map[uuid.UUID]*publication.Publication{tc.pub.ID: tc.pub}}
			settler := &fakeSettler{}
			svc := NewService(content, settler, events.NewBus(), time.Hour)

			if err := svc.Evaluate(context.Background(), tc.pub.ID, now); err != nil {
				t.Fatalf("Evaluate: %v", err)
			}
			if tc.pub.Closed() {
				t.Error("публикация закрыта раньше времени")
			}
			if settler.calls != 0 {
				t.Error("пул рассчитан без закрытия")
			}
		})
	}
}

func TestEvaluateClosesExpired(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	p := newPub(&past)
	content := &fakeContent{pubs: map[uuid.UUID]*publication.Publication{p.ID: p}}
	settler := &fakeSettler{distributed: 42}
	svc := NewService(content, settler, events.NewBus(), time.Hour)

	if err := svc.Evaluate(context.Background(), p.ID, now); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if !p.Closed() {
		t.Error("публикация с истёкшим TTL не закрыта")
	}
	if settler.calls != 1 {
		t.Errorf("расчётов пула %d, ожидался 1", settler.calls)
	}
}

func TestCloseSettlesExactlyOnce(t *testing.T) {
	p := newPub(nil)
	content := &fakeContent{pubs: map[uuid.UUID]*publication.Publication{p.ID: p}}
	settler := &fakeSettler{distributed: 100}
	svc := NewService(content, settler, events.NewBus(), time.Hour)

	flipped, err := svc.Close(context.Background(), p.ID, ReasonTTL)
	if err != nil || !flipped {
		t.Fatalf("первое закрытие: flipped=%v, err=%v", flipped, err)
	}

	// Повторное закрытие — no-op без повторного расчёта.
	flipped, err = svc.Close(context.Background(), p.ID, ReasonTTL)
	if err != nil {
		t.Fatalf("повторное закрытие: %v", err)
	}
	if flipped {
		t.Error("повторное закрытие сообщило о переводе статуса")
	}
	if settler.calls != 1 {
		t.Errorf("расчётов пула %d, ожидался ровно 1", settler.calls)
	}
}

func TestClosePublishesPayouts(t *testing.T) {
	p := newPub(nil)
	content := &fakeContent{pubs: map[uuid.UUID]*publication.Publication{p.ID: p}}
	settler := &fakeSettler{
		distributed: 100,
		payouts: []investment.Payout{
			{UserID: 7, Amount: 20},
			{UserID: 100, Amount: 80},
		},
	}
	bus := events.NewBus()
	svc := NewService(content, settler, bus, time.Hour)

	var got events.PostClosed
	var delivered bool
	bus.Subscribe(func(e events.Event) {
		if v, ok := e.(events.PostClosed); ok {
			got = v
			delivered = true
		}
	})

	if _, err := svc.Close(context.Background(), p.ID, ReasonWithdrawn); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !delivered {
		t.Fatal("событие post.closed не опубликовано")
	}
	if got.Reason != ReasonWithdrawn || got.Distributed != 100 {
		t.Errorf("событие: reason=%q distributed=%d", got.Reason, got.Distributed)
	}
	if len(got.Payouts) != 2 || got.Payouts[0].UserID != 7 || got.Payouts[1].Amount != 80 {
		t.Errorf("выплаты в событии не совпадают: %+v", got.Payouts)
	}
}

func TestCloseSettleFailure(t *testing.T) {
	// Статус уже переведён, ошибка расчёта возвращается наружу,
	// событие не публикуется.
	p := newPub(nil)
	content := &fakeContent{pubs: map[uuid.UUID]*publication.Publication{p.ID: p}}
	settler := &fakeSettler{err: errors.New("пул недоступен")}
	bus := events.NewBus()
	svc := NewService(content, settler, bus, time.Hour)

	published := false
	bus.Subscribe(func(events.Event) { published = true })

	flipped, err := svc.Close(context.Background(), p.ID, ReasonTTL)
	if !flipped {
		t.Error("статус должен быть переведён до расчёта")
	}
	if err == nil {
		t.Fatal("ожидалась ошибка расчёта")
	}
	if published {
		t.Error("событие опубликовано при нерассчитанном пуле")
	}
}

func TestSweepExpired(t *testing.T) {
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	expired1 := newPub(&past)
	expired2 := newPub(&past)
	alive := newPub(&future)
	content := &fakeContent{pubs: map[uuid.UUID]*publication.Publication{
		expired1.ID: expired1,
		expired2.ID: expired2,
		alive.ID:    alive,
	}}
	settler := &fakeSettler{}
	svc := NewService(content, settler, events.NewBus(), time.Hour)

	closed, err := svc.SweepExpired(context.Background(), now)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if closed != 2 {
		t.Errorf("закрыто %d, ожидалось 2", closed)
	}
	if alive.Closed() {
		t.Error("живая публикация закрыта проходом")
	}

	// Повторный проход ничего не находит.
	closed, err = svc.SweepExpired(context.Background(), now)
	if err != nil || closed != 0 {
		t.Errorf("повторный проход: closed=%d, err=%v", closed, err)
	}
}

func TestWarnExpiringOnce(t *testing.T) {
	now := time.Now().UTC()
	soon := now.Add(30 * time.Minute)
	farAway := now.Add(48 * time.Hour)

	expiringSoon := newPub(&soon)
	notYet := newPub(&farAway)
	content := &fakeContent{pubs: map[uuid.UUID]*publication.Publication{
		expiringSoon.ID: expiringSoon,
		notYet.ID:       notYet,
	}}
	bus := events.NewBus()
	svc := NewService(content, &fakeSettler{}, bus, time.Hour)

	var warnings []events.TTLWarning
	bus.Subscribe(func(e events.Event) {
		if w, ok := e.(events.TTLWarning); ok {
			warnings = append(warnings, w)
		}
	})

	warned, err := svc.WarnExpiring(context.Background(), now)
	if err != nil {
		t.Fatalf("WarnExpiring: %v", err)
	}
	if warned != 1 {
		t.Errorf("предупреждено %d, ожидалась 1", warned)
	}
	if len(warnings) != 1 || warnings[0].PostID != expiringSoon.ID {
		t.Fatalf("события предупреждения: %+v", warnings)
	}
	if !warnings[0].ExpiresAt.Equal(soon) {
		t.Errorf("срок в событии %v, ожидался %v", warnings[0].ExpiresAt, soon)
	}

	// Флаг уже стоит — повторный проход молчит.
	warned, err = svc.WarnExpiring(context.Background(), now)
	if err != nil || warned != 0 {
		t.Errorf("повторный проход: warned=%d, err=%v", warned, err)
	}
	if len(warnings) != 1 {
		t.Errorf("предупреждение продублировано: %d событий", len(warnings))
	}
}
