package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/upscwallahhacker-cell/Desikart/internal/docstore"
	"github.com/upscwallahhacker-cell/Desikart/internal/models"
	"github.com/upscwallahhacker-cell/Desikart/internal/seed"

	"go.uber.org/zap"
)

func TestMergeSettings_RemoteWinsPerTopLevelKey(t *testing.T) {
	defaults := seed.Settings()
	remote := json.RawMessage(`{"payment":{"codEnabled":false,"deliveryCharge":80,"qr_url":""},"banners":["b1"]}`)

	merged, err := MergeSettings(defaults, remote)
	if err != nil {
		t.Fatalf("MergeSettings: %v", err)
	}
	if merged.Payment.CODEnabled {
		t.Fatal("remote payment must win")
	}
	if merged.Payment.DeliveryCharge != 80 {
		t.Fatalf("expected delivery charge 80, got %d", merged.Payment.DeliveryCharge)
	}
	if len(merged.Banners) != 1 || merged.Banners[0] != "b1" {
		t.Fatalf("remote banners must win, got %v", merged.Banners)
	}
	// ключи, которых нет в документе, берутся из defaults
	if len(merged.Categories) != len(defaults.Categories) {
		t.Fatalf("categories must come from defaults, got %v", merged.Categories)
	}
}

func TestMergeSettings_MalformedRemoteKeepsDefaults(t *testing.T) {
	defaults := seed.Settings()
	if _, err := MergeSettings(defaults, json.RawMessage(`not json`)); err == nil {
		t.Fatal("expected error for malformed document")
	}
}

func TestSynchronizer_AutoSeedsMissingProducts(t *testing.T) {
	store := docstore.NewMemory()
	s := NewSynchronizer(store, zap.NewNop())
	s.Start(context.Background())
	defer s.Stop()

	// дозалив идёт в фоне
	deadline := time.Now().Add(2 * time.Second)
	want := len(seed.Products())
	for {
		if len(s.Products()) == want {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expected %d seeded products, got %d", want, len(s.Products()))
		}
		time.Sleep(10 * time.Millisecond)
	}

	for _, p := range seed.Products() {
		if _, err := store.GetDoc(context.Background(), productsCollection, p.ID); err != nil {
			t.Fatalf("bundled product %s not seeded: %v", p.ID, err)
		}
	}
}

func TestSynchronizer_ReseedsAfterLaterSnapshot(t *testing.T) {
	store := docstore.NewMemory()
	s := NewSynchronizer(store, zap.NewNop())
	s.Start(context.Background())
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for len(s.Products()) < len(seed.Products()) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	// пропавший из стора встроенный товар возвращается следующей сверкой
	id := seed.Products()[0].ID
	if err := store.DeleteDoc(context.Background(), productsCollection, id); err != nil {
		t.Fatalf("DeleteDoc: %v", err)
	}
	deadline = time.Now().Add(2 * time.Second)
	for {
		if _, err := store.GetDoc(context.Background(), productsCollection, id); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("bundled product %s not reseeded after removal", id)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSynchronizer_PreseededStoreNotOverwritten(t *testing.T) {
	store := docstore.NewMemory()
	custom := seed.Products()[0]
	custom.Price = 111
	if err := store.SetDoc(context.Background(), productsCollection, custom.ID, custom); err != nil {
		t.Fatalf("SetDoc: %v", err)
	}

	s := NewSynchronizer(store, zap.NewNop())
	s.Start(context.Background())
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for len(s.Products()) < len(seed.Products()) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	got, ok := s.Product(custom.ID)
	if !ok {
		t.Fatalf("product %s missing", custom.ID)
	}
	if got.Price != 111 {
		t.Fatalf("existing document overwritten by seeding: price %d", got.Price)
	}
}

// failStore эмулирует недоступный стор: подписка сразу отдаёт ошибку.
type failStore struct {
	docstore.Store
}

func (f failStore) WatchCollection(col string, fn docstore.CollectionHandler) (cancel func()) {
	fn(nil, errors.New("store unavailable"))
	return func() {}
}

func (f failStore) WatchDoc(col, docID string, fn docstore.DocHandler) (cancel func()) {
	fn(nil, false, errors.New("store unavailable"))
	return func() {}
}

func TestSynchronizer_FallsBackToBundledCatalog(t *testing.T) {
	s := NewSynchronizer(failStore{Store: docstore.NewMemory()}, zap.NewNop())
	s.Start(context.Background())
	defer s.Stop()

	if !s.UsingFallback() {
		t.Fatal("expected fallback mode")
	}
	if got, want := len(s.Products()), len(seed.Products()); got != want {
		t.Fatalf("expected %d bundled products, got %d", want, got)
	}
	// настройки остаются дефолтными
	if s.EffectiveSettings().Payment.DeliveryCharge != seed.Settings().Payment.DeliveryCharge {
		t.Fatal("settings must stay at defaults when subscription fails")
	}
}

func TestSynchronizer_Search(t *testing.T) {
	store := docstore.NewMemory()
	s := NewSynchronizer(store, zap.NewNop())
	s.Start(context.Background())
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for len(s.Products()) < len(seed.Products()) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	all := s.Search("", "All")
	if len(all) != len(seed.Products()) {
		t.Fatalf("expected all products, got %d", len(all))
	}

	byCat := s.Search("", "Electronics")
	for _, p := range byCat {
		if p.Cat != "Electronics" {
			t.Fatalf("category filter leaked %s", p.Cat)
		}
	}
	if len(byCat) == 0 {
		t.Fatal("expected electronics in bundled catalog")
	}

	if got := s.Search("zzz-no-such-product", "All"); len(got) != 0 {
		t.Fatalf("expected no matches, got %d", len(got))
	}
}

func TestSynchronizer_SetStockWritesThrough(t *testing.T) {
	store := docstore.NewMemory()
	s := NewSynchronizer(store, zap.NewNop())
	s.Start(context.Background())
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for len(s.Products()) < len(seed.Products()) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	id := seed.Products()[0].ID
	if err := s.SetStock(context.Background(), id, false); err != nil {
		t.Fatalf("SetStock: %v", err)
	}
	raw, err := store.GetDoc(context.Background(), productsCollection, id)
	if err != nil {
		t.Fatalf("GetDoc: %v", err)
	}
	var p models.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.InStock {
		t.Fatal("stock flag not persisted")
	}
	if p.Name == "" {
		t.Fatal("partial update must not drop other fields")
	}
}
