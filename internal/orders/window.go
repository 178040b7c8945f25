package orders

import (
	"time"

	"github.com/upscwallahhacker-cell/Desikart/internal/models"
)

const (
	dayMillis         = int64(24 * time.Hour / time.Millisecond)
	defaultReturnDays = 7
)

// returnDays — окно возврата заказа в днях. Окно определяется первой
// позицией заказа; 0 означает, что возврат не принимается.
func returnDays(o models.Order) (int, bool) {
	if len(o.Items) == 0 {
		return defaultReturnDays, true
	}
	rp := o.Items[0].ReturnPeriod
	if rp == nil {
		return defaultReturnDays, true
	}
	if *rp <= 0 {
		return 0, false
	}
	return *rp, true
}

// ReturnDeadline — момент (unix ms), когда окно возврата закрывается.
// Отсчёт идёт от deliveredAt, а до фактической доставки — от timestamp.
func ReturnDeadline(o models.Order) (int64, bool) {
	days, ok := returnDays(o)
	if !ok {
		return 0, false
	}
	base := o.DeliveredAt
	if base == 0 {
		base = o.Timestamp
	}
	return base + int64(days)*dayMillis, true
}

func ReturnWindowOpen(o models.Order, now time.Time) bool {
	deadline, ok := ReturnDeadline(o)
	if !ok {
		return false
	}
	return now.UnixMilli() < deadline
}

// RemainingReturnDays — сколько дней осталось, округление вверх, не ниже нуля.
func RemainingReturnDays(o models.Order, now time.Time) int {
	deadline, ok := ReturnDeadline(o)
	if !ok {
		return 0
	}
	left := deadline - now.UnixMilli()
	if left <= 0 {
		return 0
	}
	return int((left + dayMillis - 1) / dayMillis)
}
