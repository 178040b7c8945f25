package orders

import (
	"context"

	"github.com/upscwallahhacker-cell/Desikart/internal/models"
)

// EventBus публикует события заказов во внешний брокер. nil-шина отключает
// публикацию: стор работает и без брокера.
type EventBus interface {
	PublishOrderPlaced(ctx context.Context, order models.Order) error
	PublishOrderStatusChanged(ctx context.Context, order models.Order, previous models.OrderStatus) error
}
