package cart

import (
	"testing"

	"github.com/upscwallahhacker-cell/Desikart/internal/localstore"
	"github.com/upscwallahhacker-cell/Desikart/internal/models"

	"go.uber.org/zap"
)

func product(id string, price int64) models.Product {
	return models.Product{ID: id, Name: "Item " + id, Price: price, InStock: true}
}

func TestCart_AddDeduplicatesByID(t *testing.T) {
	c := NewCarts(localstore.NewMemory(), zap.NewNop()).For("u1")

	c.Add(product("p1", 100))
	c.Add(product("p1", 100))
	c.Add(product("p2", 250))

	items := c.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(items))
	}
	if items[0].ID != "p1" || items[0].Qty != 2 {
		t.Fatalf("expected p1 qty 2, got %+v", items[0])
	}
	if got := c.Total(); got != 450 {
		t.Fatalf("total = %d, want 450", got)
	}
	if got := c.Count(); got != 3 {
		t.Fatalf("count = %d, want 3", got)
	}
}

func TestCart_RemoveDropsWholeLine(t *testing.T) {
	c := NewCarts(localstore.NewMemory(), zap.NewNop()).For("u1")
	c.Add(product("p1", 100))
	c.Add(product("p1", 100))
	c.Add(product("p2", 50))

	c.Remove("p1")
	items := c.Items()
	if len(items) != 1 || items[0].ID != "p2" {
		t.Fatalf("expected only p2 left, got %+v", items)
	}
	if got := c.Total(); got != 50 {
		t.Fatalf("total = %d, want 50", got)
	}
}

func TestCarts_IsolatedPerUser(t *testing.T) {
	kv := localstore.NewMemory()
	cs := NewCarts(kv, zap.NewNop())

	cs.For("alice").Add(product("p1", 100))
	cs.For("alice").Add(product("p2", 200))
	cs.For("bob").Add(product("p3", 30))

	if got := cs.For("alice").Total(); got != 300 {
		t.Fatalf("alice total = %d, want 300", got)
	}
	if got := cs.For("bob").Total(); got != 30 {
		t.Fatalf("bob total = %d, want 30", got)
	}

	cs.For("bob").Clear()
	if len(cs.For("alice").Items()) != 2 {
		t.Fatal("clearing bob's cart must not touch alice's")
	}

	// и в хранилище записи лежат под разными ключами
	again := NewCarts(kv, zap.NewNop())
	if got := again.For("alice").Total(); got != 300 {
		t.Fatalf("restored alice total = %d, want 300", got)
	}
	if len(again.For("bob").Items()) != 0 {
		t.Fatalf("expected bob's cart empty, got %+v", again.For("bob").Items())
	}
}

func TestCart_SurvivesRestart(t *testing.T) {
	kv := localstore.NewMemory()
	c := NewCarts(kv, zap.NewNop()).For("u1")
	c.Add(product("p1", 100))
	c.Add(product("p2", 200))

	// новый инстанс над тем же хранилищем видит то же содержимое
	again := NewCarts(kv, zap.NewNop()).For("u1")
	if got := again.Total(); got != 300 {
		t.Fatalf("restored total = %d, want 300", got)
	}

	again.Clear()
	third := NewCarts(kv, zap.NewNop()).For("u1")
	if len(third.Items()) != 0 {
		t.Fatalf("expected empty cart after clear, got %+v", third.Items())
	}
}

func TestCart_MalformedSavedStateDiscarded(t *testing.T) {
	kv := localstore.NewMemory()
	if err := kv.Set(storagePrefix+":u1", "{broken"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	c := NewCarts(kv, zap.NewNop()).For("u1")
	if len(c.Items()) != 0 {
		t.Fatalf("expected empty cart, got %+v", c.Items())
	}
}
