package task

import "storefront/app/internal/domain"

type OrderTask struct {
	Order domain.Order `json:"order"` // Confirmed order to persist
}

func (t *OrderTask) TaskType() string {
	return "OrderTask"
}

func (t *OrderTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
