// Package cache — явный сервис кеширования витринных чтений
// (балансы, остатки квоты, разбивка инвестиций).
//
// Кеш внедряется зависимостью, а не живёт модульной глобальной переменной:
// у него своя политика инвалидации и свой жизненный цикл, и тесты
// управляют им детерминированно. Значения из кеша используются ТОЛЬКО
// для отображения — предусловия мутаций всегда проверяются в БД.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Cache хранит JSON-сериализованные значения в Redis.
// Без Redis (nil-клиент или отвалившееся соединение) работает
// запасной кеш в памяти, чтобы витрина не зависела от внешней инфраструктуры.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration

	mu  sync.RWMutex
	mem map[string]memEntry
}

type memEntry struct {
	data      []byte
	expiresAt time.Time
}

// New создаёт кеш. client может быть nil — тогда только память.
func New(client *redis.Client, ttl time.Duration) *Cache {
	c := &Cache{
		rdb: client,
		ttl: ttl,
		mem: make(map[string]memEntry),
	}
	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("Redis недоступен, витринный кеш работает в памяти")
			c.rdb = nil
		} else {
			log.Info("Витринный кеш подключён к Redis")
		}
	}
	return c
}

// Get читает значение по ключу в dest. Возвращает true при попадании.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	if c == nil {
		return false
	}
	if c.rdb != nil {
		data, err := c.rdb.Get(ctx, key).Bytes()
		if err == nil {
			return json.Unmarshal(data, dest) == nil
		}
		if err != redis.Nil {
			log.WithError(err).WithField("key", key).Debug("Ошибка чтения из Redis")
		}
		return false
	}

	c.mu.RLock()
	entry, ok := c.mem[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return false
	}
	return json.Unmarshal(entry.data, dest) == nil
}

// Set сохраняет значение по ключу с TTL кеша.
func (c *Cache) Set(ctx context.Context, key string, value any) {
	if c == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		log.WithError(err).WithField("key", key).Debug("Ошибка сериализации для кеша")
		return
	}
	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
			log.WithError(err).WithField("key", key).Debug("Ошибка записи в Redis")
		}
		return
	}

	c.mu.Lock()
	c.mem[key] = memEntry{data: data, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate удаляет ключи после мутации, чтобы витрина не отдавала
// устаревшие значения дольше одного цикла.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c == nil || len(keys) == 0 {
		return
	}
	if c.rdb != nil {
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			log.WithError(err).Debug("Ошибка инвалидации в Redis")
		}
		return
	}

	c.mu.Lock()
	for _, k := range keys {
		delete(c.mem, k)
	}
	c.mu.Unlock()
}

// --- Ключи ---

// WalletKey — ключ кеша баланса кошелька.
func WalletKey(userID, communityID int64) string {
	return fmt.Sprintf("merit:wallet:%d:%d", communityID, userID)
}

// QuotaKey — ключ кеша остатка квоты на конкретные сутки.
func QuotaKey(userID, communityID int64, dayKey string) string {
	return fmt.Sprintf("merit:quota:%d:%d:%s", communityID, userID, dayKey)
}

// BreakdownKey — ключ кеша разбивки инвестиций публикации.
func BreakdownKey(postID string) string {
	return fmt.Sprintf("merit:breakdown:%s", postID)
}
