package domain

// DeliveryFee is the flat shipping charge applied to every non-empty order,
// in minor currency units.
const DeliveryFee int64 = 15000

// CartSummary captures the derived monetary totals of a cart. Totals are
// always recomputed from the lines; they are never stored independently.
type CartSummary struct {
	Subtotal    int64
	ItemCount   int
	DeliveryFee int64
	Total       int64
}

// Summarize recomputes the cart totals. The delivery fee is waived while the
// subtotal is zero so an empty cart never displays a shipping charge.
func Summarize(items []CartItem) CartSummary {
	var summary CartSummary
	for _, item := range items {
		if item.Quantity <= 0 {
			continue
		}
		summary.Subtotal += item.LineTotal()
		summary.ItemCount += item.Quantity
	}
	if summary.Subtotal > 0 {
		summary.DeliveryFee = DeliveryFee
	}
	summary.Total = summary.Subtotal + summary.DeliveryFee
	return summary
}

// OrderTotal computes the immutable amount of an order from its frozen lines
// plus the delivery fee. Checkout rejects empty item lists before this runs,
// so the fee always applies here.
func OrderTotal(items []OrderItem) (subtotal int64, fee int64, total int64) {
	for _, item := range items {
		subtotal += item.LineTotal()
	}
	if subtotal > 0 {
		fee = DeliveryFee
	}
	return subtotal, fee, subtotal + fee
}
