// Package cart — локальные корзины покупателей. Корзина ведётся на
// пользователя и переживает перезапуск: каждая мутация синхронно
// сохраняется в локальное KV-хранилище под ключом пользователя.
package cart

import (
	"encoding/json"
	"sync"

	"github.com/upscwallahhacker-cell/Desikart/internal/localstore"
	"github.com/upscwallahhacker-cell/Desikart/internal/models"

	"go.uber.org/zap"
)

const storagePrefix = "deshikart_cart"

// Carts раздаёт корзины по uid владельца. Корзина поднимается из
// хранилища лениво, один раз, и дальше живёт в памяти.
type Carts struct {
	kv  localstore.KV
	log *zap.Logger

	mu     sync.Mutex
	byUser map[string]*Cart
}

func NewCarts(kv localstore.KV, log *zap.Logger) *Carts {
	return &Carts{kv: kv, log: log, byUser: map[string]*Cart{}}
}

func (cs *Carts) For(uid string) *Cart {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if c, ok := cs.byUser[uid]; ok {
		return c
	}
	c := load(cs.kv, storagePrefix+":"+uid, cs.log)
	cs.byUser[uid] = c
	return c
}

type Cart struct {
	kv  localstore.KV
	key string
	log *zap.Logger

	mu    sync.Mutex
	items []models.CartItem
}

// load читает сохранённую корзину один раз при создании. Повреждённая
// запись отбрасывается, корзина начинается пустой.
func load(kv localstore.KV, key string, log *zap.Logger) *Cart {
	c := &Cart{kv: kv, key: key, log: log}
	raw, ok, err := kv.Get(key)
	if err != nil {
		log.Warn("failed to load saved cart", zap.String("key", key), zap.Error(err))
		return c
	}
	if !ok {
		return c
	}
	if err := json.Unmarshal([]byte(raw), &c.items); err != nil {
		log.Warn("discarding malformed saved cart", zap.String("key", key), zap.Error(err))
		c.items = nil
	}
	return c
}

// Add добавляет товар; повторное добавление того же товара увеличивает
// количество существующей строки.
func (c *Cart) Add(p models.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == p.ID {
			c.items[i].Qty++
			c.persistLocked()
			return
		}
	}
	c.items = append(c.items, models.CartItem{Product: p, Qty: 1})
	c.persistLocked()
}

// Remove удаляет строку целиком, независимо от количества.
func (c *Cart) Remove(productID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == productID {
			c.items = append(c.items[:i], c.items[i+1:]...)
			c.persistLocked()
			return
		}
	}
}

func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.persistLocked()
}

// Items возвращает копию строк корзины.
func (c *Cart) Items() []models.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// Total всегда пересчитывается из строк, не кэшируется.
func (c *Cart) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var sum int64
	for _, it := range c.items {
		sum += it.Price * int64(it.Qty)
	}
	return sum
}

func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.items {
		n += it.Qty
	}
	return n
}

func (c *Cart) persistLocked() {
	raw, err := json.Marshal(c.items)
	if err != nil {
		c.log.Warn("failed to encode cart", zap.Error(err))
		return
	}
	if err := c.kv.Set(c.key, string(raw)); err != nil {
		c.log.Warn("failed to persist cart", zap.Error(err))
	}
}
