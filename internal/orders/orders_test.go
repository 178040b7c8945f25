package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/upscwallahhacker-cell/Desikart/internal/docstore"
	"github.com/upscwallahhacker-cell/Desikart/internal/models"

	"go.uber.org/zap"
)

func intPtr(v int) *int { return &v }

func newTestStore(t *testing.T) (*Store, docstore.Store) {
	t.Helper()
	mem := docstore.NewMemory()
	s := NewStore(mem, nil, zap.NewNop())
	s.Start(context.Background())
	t.Cleanup(s.Stop)
	return s, mem
}

func placeOrder(t *testing.T, s *Store, o models.Order) models.Order {
	t.Helper()
	if o.ID == "" {
		o.ID = "ord_test"
	}
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	if err := s.Place(context.Background(), o); err != nil {
		t.Fatalf("Place: %v", err)
	}
	return o
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to models.OrderStatus }{
		{models.OrderStatusPending, models.OrderStatusConfirmed},
		{models.OrderStatusPending, models.OrderStatusCancelled},
		{models.OrderStatusConfirmed, models.OrderStatusShipped},
		{models.OrderStatusConfirmed, models.OrderStatusCancelled},
		{models.OrderStatusShipped, models.OrderStatusDelivered},
		{models.OrderStatusDelivered, models.OrderStatusReturnRequested},
		{models.OrderStatusDelivered, models.OrderStatusReturned},
		{models.OrderStatusReturnRequested, models.OrderStatusRefunded},
		{models.OrderStatusReturnRequested, models.OrderStatusReturned},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct{ from, to models.OrderStatus }{
		{models.OrderStatusPending, models.OrderStatusDelivered},
		{models.OrderStatusShipped, models.OrderStatusCancelled},
		{models.OrderStatusCancelled, models.OrderStatusConfirmed},
		{models.OrderStatusRefunded, models.OrderStatusPending},
		{models.OrderStatusReturned, models.OrderStatusRefunded},
		{models.OrderStatusDelivered, models.OrderStatusPending},
	}
	for _, tc := range denied {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("expected %s -> %s to be denied", tc.from, tc.to)
		}
	}

	for _, s := range []models.OrderStatus{models.OrderStatusCancelled, models.OrderStatusReturned, models.OrderStatusRefunded} {
		if !IsTerminal(s) {
			t.Errorf("expected %s to be terminal", s)
		}
	}
}

func TestUpdateStatus_StampsDeliveredAt(t *testing.T) {
	s, _ := newTestStore(t)
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	o := placeOrder(t, s, models.Order{ID: "ord_1", UserID: "u1", Status: models.OrderStatusShipped})
	if err := s.UpdateStatus(context.Background(), o.ID, models.OrderStatusDelivered, ""); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	got, err := s.Get(context.Background(), o.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != models.OrderStatusDelivered {
		t.Fatalf("status = %s", got.Status)
	}
	if got.DeliveredAt != fixed.UnixMilli() {
		t.Fatalf("deliveredAt = %d, want %d", got.DeliveredAt, fixed.UnixMilli())
	}
}

func TestUpdateStatus_RejectsInvalidTransition(t *testing.T) {
	s, _ := newTestStore(t)
	o := placeOrder(t, s, models.Order{ID: "ord_2", Status: models.OrderStatusPending})

	if err := s.UpdateStatus(context.Background(), o.ID, models.OrderStatusDelivered, ""); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := s.UpdateStatus(context.Background(), "missing", models.OrderStatusConfirmed, ""); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestUpdateStatus_WritesRefundUPI(t *testing.T) {
	s, _ := newTestStore(t)
	o := placeOrder(t, s, models.Order{ID: "ord_r", UserID: "u1", Status: models.OrderStatusReturnRequested})

	if err := s.UpdateStatus(context.Background(), o.ID, models.OrderStatusRefunded, "me@upi"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	got, _ := s.Get(context.Background(), o.ID)
	if got.Status != models.OrderStatusRefunded || got.RefundUPI != "me@upi" {
		t.Fatalf("got %+v", got)
	}
}

func TestCancel_Guards(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	o := placeOrder(t, s, models.Order{ID: "ord_3", UserID: "u1", Status: models.OrderStatusPending, PaymentMethod: models.PaymentCOD})
	if err := s.Cancel(ctx, o.ID, "intruder", ""); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := s.Cancel(ctx, o.ID, "u1", ""); err != nil {
		t.Fatalf("Cancel COD: %v", err)
	}

	online := placeOrder(t, s, models.Order{ID: "ord_4", UserID: "u1", Status: models.OrderStatusConfirmed, PaymentMethod: models.PaymentOnline})
	if err := s.Cancel(ctx, online.ID, "u1", "ab"); !errors.Is(err, ErrRefundUPIRequired) {
		t.Fatalf("expected ErrRefundUPIRequired, got %v", err)
	}
	if err := s.Cancel(ctx, online.ID, "u1", "me@upi"); err != nil {
		t.Fatalf("Cancel ONLINE: %v", err)
	}
	got, _ := s.Get(ctx, online.ID)
	if got.RefundUPI != "me@upi" {
		t.Fatalf("refundUpi = %q", got.RefundUPI)
	}

	shipped := placeOrder(t, s, models.Order{ID: "ord_5", UserID: "u1", Status: models.OrderStatusShipped})
	if err := s.Cancel(ctx, shipped.ID, "u1", ""); !errors.Is(err, ErrCancelNotAllowed) {
		t.Fatalf("expected ErrCancelNotAllowed, got %v", err)
	}
}

func TestRequestReturn_WindowAndGuards(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	item := func(days *int) []models.CartItem {
		return []models.CartItem{{Product: models.Product{ID: "p1", ReturnPeriod: days}, Qty: 1}}
	}

	// не доставлен — возврат рано
	pending := placeOrder(t, s, models.Order{ID: "ord_6", UserID: "u1", Status: models.OrderStatusShipped, Items: item(nil)})
	if err := s.RequestReturn(ctx, pending.ID, "u1", "me@upi"); !errors.Is(err, ErrWaitForDelivery) {
		t.Fatalf("expected ErrWaitForDelivery, got %v", err)
	}

	// окно открыто: доставлен 3 дня назад, окно 7 дней
	fresh := placeOrder(t, s, models.Order{
		ID: "ord_7", UserID: "u1", Status: models.OrderStatusDelivered,
		Items:       item(nil),
		DeliveredAt: now.Add(-3 * 24 * time.Hour).UnixMilli(),
	})
	if err := s.RequestReturn(ctx, fresh.ID, "u1", "me@upi"); err != nil {
		t.Fatalf("RequestReturn: %v", err)
	}
	got, _ := s.Get(ctx, fresh.ID)
	if got.Status != models.OrderStatusReturnRequested || got.RefundUPI != "me@upi" {
		t.Fatalf("got %+v", got)
	}

	// окно истекло: доставлен 8 дней назад
	stale := placeOrder(t, s, models.Order{
		ID: "ord_8", UserID: "u1", Status: models.OrderStatusDelivered,
		Items:       item(nil),
		DeliveredAt: now.Add(-8 * 24 * time.Hour).UnixMilli(),
	})
	if err := s.RequestReturn(ctx, stale.ID, "u1", "me@upi"); !errors.Is(err, ErrReturnPeriodExpired) {
		t.Fatalf("expected ErrReturnPeriodExpired, got %v", err)
	}

	// returnPeriod 0 — возврат не принимается вовсе
	never := placeOrder(t, s, models.Order{
		ID: "ord_9", UserID: "u1", Status: models.OrderStatusDelivered,
		Items:       item(intPtr(0)),
		DeliveredAt: now.UnixMilli(),
	})
	if err := s.RequestReturn(ctx, never.ID, "u1", "me@upi"); !errors.Is(err, ErrReturnsNotAccepted) {
		t.Fatalf("expected ErrReturnsNotAccepted, got %v", err)
	}
}

func TestReturnWindow_Math(t *testing.T) {
	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	base := now.Add(-2 * 24 * time.Hour).UnixMilli()

	o := models.Order{
		Items:       []models.CartItem{{Product: models.Product{ReturnPeriod: intPtr(7)}, Qty: 1}},
		DeliveredAt: base,
	}
	if !ReturnWindowOpen(o, now) {
		t.Fatal("window must be open 2 days after delivery")
	}
	if got := RemainingReturnDays(o, now); got != 5 {
		t.Fatalf("remaining days = %d, want 5", got)
	}

	// частично прошедший день округляется вверх
	if got := RemainingReturnDays(o, now.Add(-time.Hour)); got != 6 {
		t.Fatalf("remaining days = %d, want 6", got)
	}

	// ровно в момент дедлайна окно уже закрыто
	deadline, ok := ReturnDeadline(o)
	if !ok {
		t.Fatal("deadline must exist for 7-day window")
	}
	at := time.UnixMilli(deadline).UTC()
	if ReturnWindowOpen(o, at) {
		t.Fatal("window must be closed exactly at the deadline")
	}
	if got := RemainingReturnDays(o, at); got != 0 {
		t.Fatalf("remaining days at deadline = %d, want 0", got)
	}
	if !ReturnWindowOpen(o, at.Add(-time.Millisecond)) {
		t.Fatal("window must still be open one millisecond before the deadline")
	}

	// до доставки отсчёт идёт от времени оформления
	pending := models.Order{
		Items:     []models.CartItem{{Product: models.Product{}, Qty: 1}},
		Timestamp: now.Add(-10 * 24 * time.Hour).UnixMilli(),
	}
	if ReturnWindowOpen(pending, now) {
		t.Fatal("default 7-day window from timestamp must be closed after 10 days")
	}
	if got := RemainingReturnDays(pending, now); got != 0 {
		t.Fatalf("remaining days = %d, want 0", got)
	}
}

func TestListForUser_SortedNewestFirst(t *testing.T) {
	s, _ := newTestStore(t)
	placeOrder(t, s, models.Order{ID: "ord_a", UserID: "u1", Timestamp: 100})
	placeOrder(t, s, models.Order{ID: "ord_b", UserID: "u1", Timestamp: 300})
	placeOrder(t, s, models.Order{ID: "ord_c", UserID: "u2", Timestamp: 200})

	mine := s.ListForUser("u1")
	if len(mine) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(mine))
	}
	if mine[0].ID != "ord_b" || mine[1].ID != "ord_a" {
		t.Fatalf("wrong order: %s, %s", mine[0].ID, mine[1].ID)
	}

	all := s.ListAll()
	if len(all) != 3 || all[0].ID != "ord_b" {
		t.Fatalf("ListAll wrong: %v", all)
	}
}

type recordingBus struct {
	placed  []models.Order
	changed []models.Order
}

func (b *recordingBus) PublishOrderPlaced(ctx context.Context, o models.Order) error {
	b.placed = append(b.placed, o)
	return nil
}

func (b *recordingBus) PublishOrderStatusChanged(ctx context.Context, o models.Order, prev models.OrderStatus) error {
	b.changed = append(b.changed, o)
	return nil
}

func TestEvents_PublishedBestEffort(t *testing.T) {
	mem := docstore.NewMemory()
	bus := &recordingBus{}
	s := NewStore(mem, bus, zap.NewNop())
	s.Start(context.Background())
	t.Cleanup(s.Stop)

	placeOrder(t, s, models.Order{ID: "ord_ev", UserID: "u1", Status: models.OrderStatusPending})
	if err := s.UpdateStatus(context.Background(), "ord_ev", models.OrderStatusConfirmed, ""); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	if len(bus.placed) != 1 || bus.placed[0].ID != "ord_ev" {
		t.Fatalf("placed events: %v", bus.placed)
	}
	if len(bus.changed) != 1 || bus.changed[0].Status != models.OrderStatusConfirmed {
		t.Fatalf("changed events: %v", bus.changed)
	}
}
