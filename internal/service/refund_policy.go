package service

import "time"

// DefaultRefundWindow окно возврата по умолчанию
const DefaultRefundWindow = 14 * 24 * time.Hour

// RefundPolicy решает, можно ли вернуть платеж.
type RefundPolicy struct {
	window time.Duration
}

// NewRefundPolicy создает политику; неположительное окно заменяется на 14 дней.
func NewRefundPolicy(window time.Duration) RefundPolicy {
	if window <= 0 {
		window = DefaultRefundWindow
	}
	return RefundPolicy{window: window}
}

// Window длительность окна возврата
func (p RefundPolicy) Window() time.Duration {
	return p.window
}

// Eligible сравнивает в миллисекундах: прошло строго больше окна - возврат запрещен,
// ровно окно - еще разрешен.
func (p RefundPolicy) Eligible(paidAt, now time.Time) bool {
	elapsed := now.UnixMilli() - paidAt.UnixMilli()
	return elapsed <= p.window.Milliseconds()
}
