package orders

import "github.com/upscwallahhacker-cell/Desikart/internal/models"

// transitions — полный граф жизненного цикла заказа. Любой переход вне
// графа отклоняется на границе записи, независимо от того, кто его просит.
var transitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:         {models.OrderStatusConfirmed, models.OrderStatusCancelled},
	models.OrderStatusConfirmed:       {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped:         {models.OrderStatusDelivered},
	models.OrderStatusDelivered:       {models.OrderStatusReturnRequested, models.OrderStatusReturned},
	models.OrderStatusReturnRequested: {models.OrderStatusRefunded, models.OrderStatusReturned},
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal — из статуса нет исходящих переходов.
func IsTerminal(s models.OrderStatus) bool {
	return len(transitions[s]) == 0
}
