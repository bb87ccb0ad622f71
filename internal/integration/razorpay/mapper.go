package razorpay

import (
	"encoding/json"
	"strconv"

	"github.com/Dhoini/subscription-service/internal/domain"
)

// toGatewaySubscription преобразует ответ Razorpay в доменный снимок подписки
func toGatewaySubscription(body map[string]interface{}) domain.GatewaySubscription {
	return domain.GatewaySubscription{
		ID:         stringValue(body, "id"),
		Status:     stringValue(body, "status"),
		PlanID:     stringValue(body, "plan_id"),
		CustomerID: stringValue(body, "customer_id"),
		StartAt:    int64Value(body, "start_at"),
		TotalCount: int(int64Value(body, "total_count")),
		PaidCount:  int(int64Value(body, "paid_count")),
		CreatedAt:  int64Value(body, "created_at"),
	}
}

// toGatewaySubscriptions разбирает коллекцию {"entity":"collection","items":[...]}
func toGatewaySubscriptions(body map[string]interface{}) []domain.GatewaySubscription {
	raw, _ := body["items"].([]interface{})
	items := make([]domain.GatewaySubscription, 0, len(raw))
	for _, item := range raw {
		if m, ok := item.(map[string]interface{}); ok {
			items = append(items, toGatewaySubscription(m))
		}
	}
	return items
}

func toRefund(body map[string]interface{}) domain.Refund {
	return domain.Refund{
		ID:        stringValue(body, "id"),
		PaymentID: stringValue(body, "payment_id"),
		Amount:    int64Value(body, "amount"),
		Status:    stringValue(body, "status"),
		Speed:     stringValue(body, "speed_processed"),
	}
}

func stringValue(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

// int64Value читает числовое поле; JSON числа приходят как float64, null дает 0
func int64Value(m map[string]interface{}, key string) int64 {
	switch v := m[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case json.Number:
		n, _ := v.Int64()
		return n
	case string:
		n, _ := strconv.ParseInt(v, 10, 64)
		return n
	default:
		return 0
	}
}
