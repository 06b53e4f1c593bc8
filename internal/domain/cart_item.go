package domain

// CartItem is a product line in the cart. Two items are the same line when
// their IDs match.
type CartItem struct {
	Product
	Quantity int `json:"quantity"`
}

// LineCents is the rounded unit price times the quantity.
func (i CartItem) LineCents() int64 {
	return i.PriceCents() * int64(i.Quantity)
}

// CountItems sums quantities across lines.
func CountItems(items []CartItem) int {
	count := 0
	for _, item := range items {
		count += item.Quantity
	}
	return count
}
