// Package cache хранит ответы API магазина и сбрасывает их явно после изменений.
package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Listener получает ключи, сброшенные из кэша.
type Listener func(keys []string)

type entry struct {
	value   any
	expires time.Time
}

// Cache хранит значения с временем жизни и явной инвалидацией по ключу или префиксу.
type Cache struct {
	mu        sync.RWMutex
	entries   map[string]entry
	ttl       time.Duration
	group     singleflight.Group
	listeners []Listener
	gen       uint64
	now       func() time.Time
}

// New создаёт кэш. При ttl <= 0 записи живут до явной инвалидации.
func New(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Subscribe регистрирует получателя событий инвалидации.
func (c *Cache) Subscribe(l Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, l)
}

// Get возвращает значение, если оно есть и не устарело.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !e.expires.IsZero() && !c.now().Before(e.expires) {
		return nil, false
	}
	return e.value, true
}

// Set сохраняет значение под ключом.
func (c *Cache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.set(key, value)
}

func (c *Cache) set(key string, value any) {
	e := entry{value: value}
	if c.ttl > 0 {
		e.expires = c.now().Add(c.ttl)
	}
	c.entries[key] = e
}

// setIfCurrent не сохраняет результат загрузки, начатой до инвалидации.
func (c *Cache) setIfCurrent(key string, value any, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.set(key, value)
}

func (c *Cache) generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Update изменяет закэшированное значение на месте. Если ключа нет, fn не вызывается.
func (c *Cache) Update(key string, fn func(v any) any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	e.value = fn(e.value)
	c.entries[key] = e
	return true
}

// UpdatePrefix изменяет на месте все значения с ключами, начинающимися с prefix,
// и возвращает их количество.
func (c *Cache) UpdatePrefix(prefix string, fn func(v any) any) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for k, e := range c.entries {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		e.value = fn(e.value)
		c.entries[k] = e
		n++
	}
	return n
}

// Invalidate удаляет перечисленные ключи и оповещает подписчиков.
func (c *Cache) Invalidate(keys ...string) {
	if len(keys) == 0 {
		return
	}

	c.mu.Lock()
	c.gen++
	for _, k := range keys {
		delete(c.entries, k)
		c.group.Forget(k)
	}
	listeners := c.listeners
	c.mu.Unlock()

	for _, l := range listeners {
		l(keys)
	}
}

// InvalidatePrefix удаляет все ключи с указанным префиксом.
func (c *Cache) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	c.gen++
	var keys []string
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
			delete(c.entries, k)
			c.group.Forget(k)
		}
	}
	listeners := c.listeners
	c.mu.Unlock()

	if len(keys) == 0 {
		return
	}
	for _, l := range listeners {
		l(keys)
	}
}

// Len возвращает количество записей, включая устаревшие.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Load возвращает значение из кэша или вызывает loader. Параллельные загрузки
// одного ключа объединяются в один вызов loader.
func Load[T any](ctx context.Context, c *Cache, key string, loader func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if v, ok := c.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	gen := c.generation()
	// загрузку делят все ожидающие, поэтому отмена первого запроса её не прерывает;
	// длительность ограничена таймаутом клиента API
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		v, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		c.setIfCurrent(key, v, gen)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		typed, ok := res.Val.(T)
		if !ok {
			return zero, fmt.Errorf("cache: unexpected type %T for key %q", res.Val, key)
		}
		return typed, nil
	}
}
