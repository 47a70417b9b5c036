package textutil

import (
	"reflect"
	"testing"
)

func TestNormalizeAttributes(t *testing.T) {
	input := map[string]string{
		" eventType ": " order.created ",
		"orderId":     "order-1",
		"userId":      "  ",
		" ":           "ignored",
		"":            "ignored",
	}

	expected := map[string]string{
		"eventType": "order.created",
		"orderId":   "order-1",
	}

	if actual := NormalizeAttributes(input); !reflect.DeepEqual(actual, expected) {
		t.Fatalf("expected %#v, got %#v", expected, actual)
	}
}

func TestNormalizeAttributesEmpty(t *testing.T) {
	if NormalizeAttributes(nil) != nil {
		t.Fatalf("expected nil for nil input")
	}
	if NormalizeAttributes(map[string]string{"": "x", "k": " "}) != nil {
		t.Fatalf("expected nil when every entry is dropped")
	}
}
