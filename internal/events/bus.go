// Package events — bus.go реализует синхронную внутрипроцессную шину.
package events

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// Subscriber — функция-подписчик. Вызывается синхронно при публикации.
type Subscriber func(Event)

// Bus — простая шина событий. Подписчики регистрируются на старте,
// публикация идёт из сервисов после успешного завершения операции.
type Bus struct {
	mu   sync.RWMutex
	subs []Subscriber
}

// NewBus создаёт пустую шину.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe добавляет подписчика. Потокобезопасно.
func (b *Bus) Subscribe(fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Publish доставляет событие всем подписчикам. Паника подписчика
// не роняет операцию-источник.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := make([]Subscriber, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, fn := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"kind":  e.EventKind(),
						"panic": r,
					}).Error("ПАНИКА в подписчике события — восстановлено")
				}
			}()
			fn(e)
		}()
	}
}
