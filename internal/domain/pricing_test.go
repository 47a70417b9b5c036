package domain

import "testing"

func TestSummarizeComputesTotals(t *testing.T) {
	items := []CartItem{
		{ProductID: "p1", Quantity: 2, PriceSnapshot: 10000},
		{ProductID: "p2", Quantity: 1, PriceSnapshot: 5000},
	}

	summary := Summarize(items)

	if summary.Subtotal != 25000 {
		t.Fatalf("expected subtotal 25000, got %d", summary.Subtotal)
	}
	if summary.ItemCount != 3 {
		t.Fatalf("expected item count 3, got %d", summary.ItemCount)
	}
	if summary.DeliveryFee != DeliveryFee {
		t.Fatalf("expected delivery fee %d, got %d", DeliveryFee, summary.DeliveryFee)
	}
	if summary.Total != 25000+DeliveryFee {
		t.Fatalf("expected total %d, got %d", 25000+DeliveryFee, summary.Total)
	}
}

func TestSummarizeWaivesFeeOnEmptyCart(t *testing.T) {
	summary := Summarize(nil)

	if summary.Subtotal != 0 || summary.ItemCount != 0 {
		t.Fatalf("expected zeroed summary, got %+v", summary)
	}
	if summary.DeliveryFee != 0 {
		t.Fatalf("expected waived delivery fee, got %d", summary.DeliveryFee)
	}
	if summary.Total != 0 {
		t.Fatalf("expected zero total, got %d", summary.Total)
	}
}

func TestSummarizeSkipsNonPositiveQuantities(t *testing.T) {
	items := []CartItem{
		{ProductID: "p1", Quantity: 0, PriceSnapshot: 10000},
		{ProductID: "p2", Quantity: 2, PriceSnapshot: 2500},
	}

	summary := Summarize(items)

	if summary.Subtotal != 5000 {
		t.Fatalf("expected subtotal 5000, got %d", summary.Subtotal)
	}
	if summary.ItemCount != 2 {
		t.Fatalf("expected item count 2, got %d", summary.ItemCount)
	}
}

func TestOrderTotalMatchesReferenceAmounts(t *testing.T) {
	items := []OrderItem{
		{ProductID: "p1", ProductName: "Arabica Beans", Quantity: 2, UnitPrice: 10000},
		{ProductID: "p2", ProductName: "V60 Filter", Quantity: 1, UnitPrice: 5000},
	}

	subtotal, fee, total := OrderTotal(items)

	if subtotal != 25000 {
		t.Fatalf("expected subtotal 25000, got %d", subtotal)
	}
	if fee != 15000 {
		t.Fatalf("expected delivery fee 15000, got %d", fee)
	}
	if total != 40000 {
		t.Fatalf("expected total 40000, got %d", total)
	}
}

func TestOrderStatusValidation(t *testing.T) {
	for _, status := range OrderStatuses {
		if !IsValidOrderStatus(status) {
			t.Fatalf("expected %s to validate", status)
		}
	}
	if IsValidOrderStatus("REFUNDED") {
		t.Fatal("expected unknown status to be rejected")
	}
	if !OrderStatusDelivered.IsTerminal() || !OrderStatusCancelled.IsTerminal() {
		t.Fatal("expected delivered and cancelled to be terminal")
	}
	if OrderStatusPaid.IsTerminal() {
		t.Fatal("paid must not be terminal")
	}
}
