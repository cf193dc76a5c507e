package api

import (
	"sync"
	"time"
)

// RateLimiter ограничивает частоту запросов по ключу идентичности API:
// "user:<id>" для пользовательских ручек, "admin:<id>" для служебных.
// Скользящее окно: живы только отметки моложе window, остальные
// отбрасываются при каждой проверке.
type RateLimiter struct {
	mu     sync.Mutex
	hits   map[string][]time.Time
	limit  int
	window time.Duration

	stopOnce sync.Once
	stop     chan struct{}
}

// NewRateLimiter создаёт лимитер: не больше limit запросов на ключ
// в пределах window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		hits:   make(map[string][]time.Time),
		limit:  limit,
		window: window,
		stop:   make(chan struct{}),
	}
	go rl.evictLoop()
	return rl
}

// Close останавливает фоновую чистку. Вызывается на shutdown.
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Allow регистрирует запрос и сообщает, укладывается ли ключ в лимит.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	live := pruneBefore(rl.hits[key], now.Add(-rl.window))
	if len(live) >= rl.limit {
		rl.hits[key] = live
		return false
	}
	rl.hits[key] = append(live, now)
	return true
}

// pruneBefore отбрасывает отметки не позже cutoff. Отметки добавляются
// по возрастанию времени, поэтому достаточно найти первую живую.
func pruneBefore(hits []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(hits) && !hits[i].After(cutoff) {
		i++
	}
	return hits[i:]
}

// evictLoop периодически выбрасывает ключи без живых отметок, чтобы
// карта не росла от разовых посетителей.
func (rl *RateLimiter) evictLoop() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-rl.window)
			rl.mu.Lock()
			for key, hits := range rl.hits {
				live := pruneBefore(hits, cutoff)
				if len(live) == 0 {
					delete(rl.hits, key)
					continue
				}
				rl.hits[key] = live
			}
			rl.mu.Unlock()
		}
	}
}
