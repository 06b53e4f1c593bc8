package task

import "storefront/app/internal/domain"

type OrderRetryTask struct {
	Order      domain.Order `json:"order"`       // Order whose save failed
	RetryCount int          `json:"retry_count"` // Number of times this order has been retried
	Error      string       `json:"error"`       // Error message from the last failure
}

func (t *OrderRetryTask) TaskType() string {
	return "OrderRetryTask"
}

func (t *OrderRetryTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
