// Package checkout превращает корзину в заказ: валидация данных доставки,
// проверка способа оплаты, сборка снапшота заказа и его сохранение.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/upscwallahhacker-cell/Desikart/internal/cart"
	"github.com/upscwallahhacker-cell/Desikart/internal/models"
	"github.com/upscwallahhacker-cell/Desikart/internal/session"

	"github.com/nanorand/nanorand"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrNotSignedIn     = errors.New("sign in to place an order")
	ErrInvalidPhone    = errors.New("enter a valid 10-digit phone number")
	ErrAddressRequired = errors.New("delivery address is required")
	ErrInvalidPin      = errors.New("enter a valid 6-digit PIN code")
	ErrInvalidUTR      = errors.New("enter the 12-digit UTR number")
	ErrInvalidPayment  = errors.New("unsupported payment method")
	ErrCODUnavailable  = errors.New("cash on delivery is not available for this order")
)

type OrderPlacer interface {
	Place(ctx context.Context, order models.Order) error
}

type SettingsSource interface {
	EffectiveSettings() models.AppSettings
}

// SessionSource работает по uid из токена запроса, а не по последней
// залогиненной в процессе сессии.
type SessionSource interface {
	ProfileByUID(ctx context.Context, uid string) (*models.UserProfile, error)
	UpdateProfileFor(ctx context.Context, uid string, patch session.ProfilePatch) (*models.UserProfile, error)
}

// Request — данные формы оформления заказа.
type Request struct {
	Phone   string
	Address string
	Pin     string
	Method  models.PaymentMethod
	UTR     string
}

type Orchestrator struct {
	carts    *cart.Carts
	orders   OrderPlacer
	settings SettingsSource
	session  SessionSource
	log      *zap.Logger
	now      func() time.Time
	newID    func() (string, error)
}

func NewOrchestrator(carts *cart.Carts, orders OrderPlacer, settings SettingsSource, sess SessionSource, log *zap.Logger) *Orchestrator {
	return &Orchestrator{
		carts:    carts,
		orders:   orders,
		settings: settings,
		session:  sess,
		log:      log,
		now:      time.Now,
		newID: func() (string, error) {
			rng, err := nanorand.Gen(10)
			if err != nil {
				return "", err
			}
			return "ord_" + rng, nil
		},
	}
}

// CanUseCOD — оплата при получении доступна, только когда она включена в
// настройках и каждый товар корзины её поддерживает.
func (o *Orchestrator) CanUseCOD(items []models.CartItem) bool {
	if !o.settings.EffectiveSettings().Payment.CODEnabled {
		return false
	}
	for _, it := range items {
		if !it.COD {
			return false
		}
	}
	return len(items) > 0
}

// Place валидирует форму, собирает заказ-снапшот и сохраняет его. Заказ
// привязывается к uid владельца токена; корзина очищается только после
// успешной записи заказа.
func (o *Orchestrator) Place(ctx context.Context, uid string, req Request) (models.Order, error) {
	if uid == "" {
		return models.Order{}, ErrNotSignedIn
	}

	basket := o.carts.For(uid)
	items := basket.Items()
	if len(items) == 0 {
		return models.Order{}, ErrEmptyCart
	}

	user, err := o.session.ProfileByUID(ctx, uid)
	if err != nil {
		o.log.Warn("profile fetch failed during checkout", zap.String("uid", uid), zap.Error(err))
		user = &models.UserProfile{UID: uid}
	}

	if err := validate(req, o.CanUseCOD(items)); err != nil {
		return models.Order{}, err
	}

	// Адрес доставки запоминается в профиле до размещения заказа.
	o.rememberAddress(ctx, user, req)

	id, err := o.newID()
	if err != nil {
		return models.Order{}, err
	}

	charge := o.settings.EffectiveSettings().Payment.DeliveryCharge
	order := models.Order{
		ID:             id,
		UserID:         user.UID,
		UserName:       user.Name,
		Items:          copyItems(items),
		TotalAmount:    basket.Total() + charge,
		DeliveryCharge: charge,
		Status:         models.OrderStatusPending,
		PaymentMethod:  req.Method,
		Timestamp:      o.now().UnixMilli(),
		AddressDetails: fmt.Sprintf("%s - %s", req.Address, req.Pin),
		Phone:          req.Phone,
	}
	if req.Method == models.PaymentOnline {
		order.UTR = req.UTR
	}

	if err := o.orders.Place(ctx, order); err != nil {
		return models.Order{}, err
	}
	basket.Clear()

	return order, nil
}

// rememberAddress сохраняет адрес доставки в профиле. Ошибка записи не
// мешает оформлению заказа.
func (o *Orchestrator) rememberAddress(ctx context.Context, user *models.UserProfile, req Request) {
	patch := session.ProfilePatch{}
	if user.Address != req.Address {
		patch.Address = &req.Address
	}
	if user.Phone != req.Phone {
		patch.Phone = &req.Phone
	}
	if user.Pin != req.Pin {
		patch.Pin = &req.Pin
	}
	if patch.Address == nil && patch.Phone == nil && patch.Pin == nil {
		return
	}
	if _, err := o.session.UpdateProfileFor(ctx, user.UID, patch); err != nil {
		o.log.Warn("failed to remember delivery address", zap.String("uid", user.UID), zap.Error(err))
	}
}

func validate(req Request, codAllowed bool) error {
	if !allDigits(req.Phone) || len(req.Phone) != 10 {
		return ErrInvalidPhone
	}
	if req.Address == "" {
		return ErrAddressRequired
	}
	if !allDigits(req.Pin) || len(req.Pin) != 6 {
		return ErrInvalidPin
	}
	switch req.Method {
	case models.PaymentCOD:
		if !codAllowed {
			return ErrCODUnavailable
		}
	case models.PaymentOnline:
		if len(req.UTR) != 12 {
			return ErrInvalidUTR
		}
	default:
		return ErrInvalidPayment
	}
	return nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// copyItems делает глубокую копию строк: заказ — снапшот, последующие правки
// каталога его не касаются.
func copyItems(items []models.CartItem) []models.CartItem {
	out := make([]models.CartItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].Img != nil {
			img := make([]string, len(out[i].Img))
			copy(img, out[i].Img)
			out[i].Img = img
		}
		if out[i].ReturnPeriod != nil {
			rp := *out[i].ReturnPeriod
			out[i].ReturnPeriod = &rp
		}
	}
	return out
}
