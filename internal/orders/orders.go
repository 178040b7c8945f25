// Package orders хранит заказы в удалённом документном сторе и следит за
// их жизненным циклом. Все переходы статусов проверяются здесь, на границе
// записи, а не в вызывающем коде.
package orders

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/upscwallahhacker-cell/Desikart/internal/docstore"
	"github.com/upscwallahhacker-cell/Desikart/internal/models"

	"go.uber.org/zap"
)

const ordersCollection = "orders"

// Handler получает полный список заказов после каждого изменения,
// отсортированный от новых к старым.
type Handler func(orders []models.Order)

type Store struct {
	store  docstore.Store
	events EventBus
	log    *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	orders   map[string]models.Order
	watchers map[int]Handler
	nextSub  int
	cancel   func()
}

func NewStore(store docstore.Store, events EventBus, log *zap.Logger) *Store {
	return &Store{
		store:    store,
		events:   events,
		log:      log,
		now:      time.Now,
		orders:   map[string]models.Order{},
		watchers: map[int]Handler{},
	}
}

// Start подписывается на коллекцию заказов. При ошибке подписки список
// остаётся пустым до восстановления.
func (s *Store) Start(ctx context.Context) {
	s.cancel = s.store.WatchCollection(ordersCollection, func(docs []docstore.Document, err error) {
		if err != nil {
			s.log.Warn("orders subscription failed, showing empty list", zap.Error(err))
			s.mu.Lock()
			s.orders = map[string]models.Order{}
			s.mu.Unlock()
			s.notify()
			return
		}
		next := make(map[string]models.Order, len(docs))
		for _, d := range docs {
			var o models.Order
			if uerr := json.Unmarshal(d.Data, &o); uerr != nil {
				s.log.Warn("skipping malformed order document", zap.String("id", d.ID), zap.Error(uerr))
				continue
			}
			if o.ID == "" {
				o.ID = d.ID
			}
			next[o.ID] = o
		}
		s.mu.Lock()
		s.orders = next
		s.mu.Unlock()
		s.notify()
	})
}

func (s *Store) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Place сохраняет новый заказ. Публикация события — best-effort.
func (s *Store) Place(ctx context.Context, order models.Order) error {
	if err := s.store.SetDoc(ctx, ordersCollection, order.ID, order); err != nil {
		return err
	}
	if s.events != nil {
		if err := s.events.PublishOrderPlaced(ctx, order); err != nil {
			s.log.Warn("failed to publish order placed event", zap.String("order_id", order.ID), zap.Error(err))
		}
	}
	return nil
}

// UpdateStatus — переход статуса с необязательным refundUpi. Переход
// DELIVERED дополнительно проставляет deliveredAt текущим моментом.
func (s *Store) UpdateStatus(ctx context.Context, id string, next models.OrderStatus, refundUPI string) error {
	order, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(order.Status, next) {
		return ErrInvalidTransition
	}

	patch := map[string]any{"status": string(next)}
	if next == models.OrderStatusDelivered {
		patch["deliveredAt"] = s.now().UnixMilli()
	}
	refundUPI = strings.TrimSpace(refundUPI)
	if refundUPI != "" {
		patch["refundUpi"] = refundUPI
	}
	if err := s.store.UpdateDoc(ctx, ordersCollection, id, patch); err != nil {
		return err
	}

	prev := order.Status
	order.Status = next
	if next == models.OrderStatusDelivered {
		order.DeliveredAt = patch["deliveredAt"].(int64)
	}
	if refundUPI != "" {
		order.RefundUPI = refundUPI
	}
	s.publishStatusChange(ctx, order, prev)
	return nil
}

// Cancel — пользовательская отмена. Допустима только до отгрузки; для
// онлайн-оплаты обязателен UPI для возврата средств.
func (s *Store) Cancel(ctx context.Context, id, uid, refundUPI string) error {
	order, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if order.UserID != uid {
		return ErrNotOwner
	}
	if order.Status != models.OrderStatusPending && order.Status != models.OrderStatusConfirmed {
		return ErrCancelNotAllowed
	}
	refundUPI = strings.TrimSpace(refundUPI)
	if order.PaymentMethod == models.PaymentOnline && len(refundUPI) < 3 {
		return ErrRefundUPIRequired
	}

	patch := map[string]any{"status": string(models.OrderStatusCancelled)}
	if refundUPI != "" {
		patch["refundUpi"] = refundUPI
	}
	if err := s.store.UpdateDoc(ctx, ordersCollection, id, patch); err != nil {
		return err
	}

	prev := order.Status
	order.Status = models.OrderStatusCancelled
	order.RefundUPI = refundUPI
	s.publishStatusChange(ctx, order, prev)
	return nil
}

// RequestReturn — пользовательская заявка на возврат доставленного заказа.
func (s *Store) RequestReturn(ctx context.Context, id, uid, refundUPI string) error {
	order, err := s.fetch(ctx, id)
	if err != nil {
		return err
	}
	if order.UserID != uid {
		return ErrNotOwner
	}
	if order.Status != models.OrderStatusDelivered {
		return ErrWaitForDelivery
	}
	if _, ok := returnDays(order); !ok {
		return ErrReturnsNotAccepted
	}
	if !ReturnWindowOpen(order, s.now()) {
		return ErrReturnPeriodExpired
	}
	refundUPI = strings.TrimSpace(refundUPI)
	if len(refundUPI) < 3 {
		return ErrRefundUPIRequired
	}

	patch := map[string]any{
		"status":    string(models.OrderStatusReturnRequested),
		"refundUpi": refundUPI,
	}
	if err := s.store.UpdateDoc(ctx, ordersCollection, id, patch); err != nil {
		return err
	}

	prev := order.Status
	order.Status = models.OrderStatusReturnRequested
	order.RefundUPI = refundUPI
	s.publishStatusChange(ctx, order, prev)
	return nil
}

// SetExpectedDelivery проставляет ожидаемую дату доставки (unix ms).
func (s *Store) SetExpectedDelivery(ctx context.Context, id string, ts int64) error {
	if _, err := s.fetch(ctx, id); err != nil {
		return err
	}
	return s.store.UpdateDoc(ctx, ordersCollection, id, map[string]any{"expectedDeliveryDate": ts})
}

func (s *Store) Get(ctx context.Context, id string) (models.Order, error) {
	return s.fetch(ctx, id)
}

// ListForUser — заказы пользователя, новые сверху.
func (s *Store) ListForUser(uid string) []models.Order {
	return s.list(func(o models.Order) bool { return o.UserID == uid })
}

// ListAll — все заказы, новые сверху.
func (s *Store) ListAll() []models.Order {
	return s.list(func(models.Order) bool { return true })
}

func (s *Store) list(keep func(models.Order) bool) []models.Order {
	s.mu.Lock()
	out := make([]models.Order, 0, len(s.orders))
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out
}

func (s *Store) Watch(fn Handler) (cancel func()) {
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

// fetch читает заказ из стора, а не из локального снапшота: решения о
// переходах принимаются по авторитетной копии.
func (s *Store) fetch(ctx context.Context, id string) (models.Order, error) {
	raw, err := s.store.GetDoc(ctx, ordersCollection, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return models.Order{}, ErrOrderNotFound
		}
		return models.Order{}, err
	}
	var o models.Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return models.Order{}, err
	}
	if o.ID == "" {
		o.ID = id
	}
	return o, nil
}

func (s *Store) publishStatusChange(ctx context.Context, order models.Order, prev models.OrderStatus) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderStatusChanged(ctx, order, prev); err != nil {
		s.log.Warn("failed to publish status change event",
			zap.String("order_id", order.ID),
			zap.String("status", string(order.Status)),
			zap.Error(err))
	}
}

func (s *Store) notify() {
	snapshot := s.ListAll()
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
