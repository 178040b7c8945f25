// Package catalog держит локальную копию каталога и настроек магазина в
// синхроне с удалённым документным стором. При недоступном сторе каталог
// откатывается на встроенный набор товаров, чтобы витрина не пустела.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/upscwallahhacker-cell/Desikart/internal/docstore"
	"github.com/upscwallahhacker-cell/Desikart/internal/models"
	"github.com/upscwallahhacker-cell/Desikart/internal/seed"

	"go.uber.org/zap"
)

const (
	productsCollection = "products"
	settingsCollection = "settings"
	settingsDocID      = "app"
)

// Handler получает полный актуальный список товаров после каждого изменения.
type Handler func(products []models.Product)

type Synchronizer struct {
	store docstore.Store
	log   *zap.Logger

	mu         sync.Mutex
	products   map[string]models.Product
	fallback   bool
	settings   models.AppSettings
	seededOnce bool
	wroteOnce  bool
	watchers   map[int]Handler
	nextSub    int
	cancelCol  func()
	cancelDoc  func()
}

func NewSynchronizer(store docstore.Store, log *zap.Logger) *Synchronizer {
	return &Synchronizer{
		store:    store,
		log:      log,
		products: map[string]models.Product{},
		settings: seed.Settings(),
		watchers: map[int]Handler{},
	}
}

// Start подписывается на коллекцию товаров и документ настроек. Стартовый
// снапшот приходит синхронно внутри подписки.
func (s *Synchronizer) Start(ctx context.Context) {
	s.cancelCol = s.store.WatchCollection(productsCollection, func(docs []docstore.Document, err error) {
		s.onProducts(ctx, docs, err)
	})
	s.cancelDoc = s.store.WatchDoc(settingsCollection, settingsDocID, func(data json.RawMessage, exists bool, err error) {
		s.onSettings(ctx, data, exists, err)
	})
}

func (s *Synchronizer) Stop() {
	if s.cancelCol != nil {
		s.cancelCol()
	}
	if s.cancelDoc != nil {
		s.cancelDoc()
	}
}

func (s *Synchronizer) onProducts(ctx context.Context, docs []docstore.Document, err error) {
	if err != nil {
		// витрина не должна пустеть из-за недоступного стора
		s.log.Warn("products subscription failed, falling back to bundled catalog", zap.Error(err))
		s.mu.Lock()
		s.fallback = true
		s.products = map[string]models.Product{}
		for _, p := range seed.Products() {
			s.products[p.ID] = p
		}
		s.mu.Unlock()
		s.notify()
		return
	}

	next := make(map[string]models.Product, len(docs))
	for _, d := range docs {
		var p models.Product
		if uerr := json.Unmarshal(d.Data, &p); uerr != nil {
			s.log.Warn("skipping malformed product document", zap.String("id", d.ID), zap.Error(uerr))
			continue
		}
		if p.ID == "" {
			p.ID = d.ID
		}
		next[p.ID] = p
	}

	s.mu.Lock()
	s.fallback = false
	s.products = next
	bootstrap := !s.seededOnce
	s.seededOnce = true
	s.mu.Unlock()
	s.notify()

	// Сверка со встроенным каталогом после каждого непустого снапшота;
	// пустой стор засеивается один раз, первым снапшотом.
	if len(next) > 0 || bootstrap {
		s.seedMissing(ctx, next)
	}
}

// seedMissing дозаливает отсутствующие встроенные товары. Ошибки отдельных
// записей игнорируются: следующий снапшот всё выровняет.
func (s *Synchronizer) seedMissing(ctx context.Context, have map[string]models.Product) {
	var missing []models.Product
	for _, p := range seed.Products() {
		if _, ok := have[p.ID]; !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return
	}
	go func() {
		for _, p := range missing {
			if err := s.store.SetDoc(ctx, productsCollection, p.ID, p); err != nil {
				s.log.Debug("seed write failed", zap.String("id", p.ID), zap.Error(err))
			}
		}
	}()
}

func (s *Synchronizer) onSettings(ctx context.Context, data json.RawMessage, exists bool, err error) {
	if err != nil {
		s.log.Warn("settings subscription failed, keeping current settings", zap.Error(err))
		return
	}
	if !exists {
		s.mu.Lock()
		s.settings = seed.Settings()
		write := !s.wroteOnce
		s.wroteOnce = true
		s.mu.Unlock()
		if write {
			go func() {
				if serr := s.store.SetDoc(ctx, settingsCollection, settingsDocID, seed.Settings()); serr != nil {
					s.log.Debug("failed to persist default settings", zap.Error(serr))
				}
			}()
		}
		return
	}

	merged, merr := MergeSettings(seed.Settings(), data)
	if merr != nil {
		s.log.Warn("malformed settings document, keeping current settings", zap.Error(merr))
		return
	}
	s.mu.Lock()
	s.settings = merged
	s.mu.Unlock()
}

// MergeSettings накладывает удалённый документ на значения по умолчанию.
// Удалённое значение побеждает по каждому верхнеуровневому ключу; ключи,
// которых в документе нет, остаются из defaults.
func MergeSettings(defaults models.AppSettings, remote json.RawMessage) (models.AppSettings, error) {
	base := map[string]json.RawMessage{}
	raw, err := json.Marshal(defaults)
	if err != nil {
		return defaults, err
	}
	if err := json.Unmarshal(raw, &base); err != nil {
		return defaults, err
	}
	overlay := map[string]json.RawMessage{}
	if err := json.Unmarshal(remote, &overlay); err != nil {
		return defaults, err
	}
	for k, v := range overlay {
		base[k] = v
	}
	combined, err := json.Marshal(base)
	if err != nil {
		return defaults, err
	}
	var out models.AppSettings
	if err := json.Unmarshal(combined, &out); err != nil {
		return defaults, err
	}
	return out, nil
}

// Products возвращает копию каталога, отсортированную по ID.
func (s *Synchronizer) Products() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Synchronizer) Product(id string) (models.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	return p, ok
}

// Search фильтрует по подстроке имени (без учёта регистра) и категории.
// Пустая категория и "All" означают все категории.
func (s *Synchronizer) Search(query, cat string) []models.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]models.Product, 0)
	for _, p := range s.Products() {
		if cat != "" && cat != "All" && p.Cat != cat {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (s *Synchronizer) EffectiveSettings() models.AppSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// UsingFallback — true, когда каталог живёт на встроенных данных из-за
// ошибки подписки.
func (s *Synchronizer) UsingFallback() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fallback
}

// Админские операции пишут напрямую в стор; локальная копия обновится
// через подписку.

func (s *Synchronizer) AddProduct(ctx context.Context, p models.Product) error {
	return s.store.SetDoc(ctx, productsCollection, p.ID, p)
}

func (s *Synchronizer) UpdateProduct(ctx context.Context, id string, fields map[string]any) error {
	return s.store.UpdateDoc(ctx, productsCollection, id, fields)
}

func (s *Synchronizer) DeleteProduct(ctx context.Context, id string) error {
	return s.store.DeleteDoc(ctx, productsCollection, id)
}

func (s *Synchronizer) SetStock(ctx context.Context, id string, inStock bool) error {
	return s.store.UpdateDoc(ctx, productsCollection, id, map[string]any{"inStock": inStock})
}

func (s *Synchronizer) UpdateSettings(ctx context.Context, fields map[string]any) error {
	if err := s.store.UpdateDoc(ctx, settingsCollection, settingsDocID, fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			merged, merr := MergeSettings(seed.Settings(), mustJSON(fields))
			if merr != nil {
				return merr
			}
			return s.store.SetDoc(ctx, settingsCollection, settingsDocID, merged)
		}
		return err
	}
	return nil
}

func mustJSON(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return raw
}

func (s *Synchronizer) Watch(fn Handler) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.watchers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

func (s *Synchronizer) notify() {
	snapshot := s.Products()
	s.mu.Lock()
	fns := make([]Handler, 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(snapshot)
	}
}
