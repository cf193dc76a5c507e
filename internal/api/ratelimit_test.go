package api

import (
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	defer rl.Close()

	for i := 0; i < 3; i++ {
		if !rl.Allow("user:1") {
			t.Fatalf("запрос %d в пределах лимита отклонён", i+1)
		}
	}
	if rl.Allow("user:1") {
		t.Error("запрос сверх лимита пропущен")
	}
	// Лимит считается на ключ идентичности, не глобально.
	if !rl.Allow("user:2") {
		t.Error("лимит одного ключа задел другой")
	}
	if !rl.Allow("admin:1") {
		t.Error("служебный ключ разделил лимит с пользовательским")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := NewRateLimiter(2, 50*time.Millisecond)
	defer rl.Close()

	if !rl.Allow("user:1") || !rl.Allow("user:1") {
		t.Fatal("запросы в пределах лимита отклонены")
	}
	if rl.Allow("user:1") {
		t.Fatal("третий запрос в окне пропущен")
	}

	time.Sleep(60 * time.Millisecond)
	if !rl.Allow("user:1") {
		t.Error("запрос после сдвига окна отклонён")
	}
}

func TestPruneBefore(t *testing.T) {
	now := time.Now()
	hits := []time.Time{
		now.Add(-3 * time.Minute),
		now.Add(-2 * time.Minute),
		now.Add(-time.Second),
		now,
	}

	live := pruneBefore(hits, now.Add(-time.Minute))
	if len(live) != 2 {
		t.Fatalf("живых отметок %d, ожидалось 2", len(live))
	}
	if !live[0].Equal(hits[2]) {
		t.Error("отброшена живая отметка")
	}

	if got := pruneBefore(nil, now); len(got) != 0 {
		t.Errorf("пустой срез дал %d отметок", len(got))
	}
}
