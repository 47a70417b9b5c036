package firestore

import (
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/gerai/api/internal/domain"
	pfirestore "github.com/gerai/api/internal/platform/firestore"
)

const (
	productCollection = "products"
	cartCollection    = "carts"
	orderCollection   = "orders"
	counterCollection = "counters"
)

type productDocument struct {
	Name      string    `firestore:"name"`
	Price     int64     `firestore:"price"`
	Stock     int       `firestore:"stock"`
	Active    bool      `firestore:"active"`
	ImageURL  string    `firestore:"imageUrl"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func (d productDocument) toDomain(id string) domain.Product {
	return domain.Product{
		ID:        id,
		Name:      d.Name,
		Price:     d.Price,
		Stock:     d.Stock,
		Active:    d.Active,
		ImageURL:  d.ImageURL,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func productToDocument(product domain.Product) productDocument {
	return productDocument{
		Name:      product.Name,
		Price:     product.Price,
		Stock:     product.Stock,
		Active:    product.Active,
		ImageURL:  product.ImageURL,
		CreatedAt: product.CreatedAt.UTC(),
		UpdatedAt: product.UpdatedAt.UTC(),
	}
}

type cartItemDocument struct {
	ID            string     `firestore:"id"`
	ProductID     string     `firestore:"productId"`
	ProductName   string     `firestore:"productName"`
	Quantity      int        `firestore:"quantity"`
	PriceSnapshot int64      `firestore:"priceSnapshot"`
	AddedAt       time.Time  `firestore:"addedAt"`
	UpdatedAt     *time.Time `firestore:"updatedAt,omitempty"`
}

type cartDocument struct {
	Items     []cartItemDocument `firestore:"items"`
	CreatedAt time.Time          `firestore:"createdAt"`
	UpdatedAt time.Time          `firestore:"updatedAt"`
}

func (d cartDocument) toDomain(userID string) domain.Cart {
	items := make([]domain.CartItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.CartItem{
			ID:            item.ID,
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			Quantity:      item.Quantity,
			PriceSnapshot: item.PriceSnapshot,
			AddedAt:       item.AddedAt,
			UpdatedAt:     item.UpdatedAt,
		})
	}
	return domain.Cart{
		ID:        userID,
		UserID:    userID,
		Items:     items,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func cartToDocument(cart domain.Cart) cartDocument {
	items := make([]cartItemDocument, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, cartItemDocument{
			ID:            item.ID,
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			Quantity:      item.Quantity,
			PriceSnapshot: item.PriceSnapshot,
			AddedAt:       item.AddedAt.UTC(),
			UpdatedAt:     item.UpdatedAt,
		})
	}
	return cartDocument{
		Items:     items,
		CreatedAt: cart.CreatedAt.UTC(),
		UpdatedAt: cart.UpdatedAt.UTC(),
	}
}

type orderItemDocument struct {
	ProductID   string `firestore:"productId"`
	ProductName string `firestore:"productName"`
	Quantity    int    `firestore:"quantity"`
	UnitPrice   int64  `firestore:"unitPrice"`
}

type shippingDocument struct {
	Address    string `firestore:"address"`
	City       string `firestore:"city"`
	PostalCode string `firestore:"postalCode"`
	Phone      string `firestore:"phone"`
}

type orderDocument struct {
	UserID        string              `firestore:"userId"`
	OrderNumber   string              `firestore:"orderNumber"`
	Status        string              `firestore:"status"`
	Items         []orderItemDocument `firestore:"items"`
	Subtotal      int64               `firestore:"subtotal"`
	DeliveryFee   int64               `firestore:"deliveryFee"`
	TotalAmount   int64               `firestore:"totalAmount"`
	Shipping      shippingDocument    `firestore:"shipping"`
	PaymentMethod string              `firestore:"paymentMethod"`
	PaymentURL    *string             `firestore:"paymentUrl,omitempty"`
	CreatedAt     time.Time           `firestore:"createdAt"`
	UpdatedAt     time.Time           `firestore:"updatedAt"`
}

func (d orderDocument) toDomain(id string) domain.Order {
	items := make([]domain.OrderItem, 0, len(d.Items))
	for _, item := range d.Items {
		items = append(items, domain.OrderItem{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return domain.Order{
		ID:            id,
		UserID:        d.UserID,
		OrderNumber:   d.OrderNumber,
		Status:        domain.OrderStatus(d.Status),
		Items:         items,
		Subtotal:      d.Subtotal,
		DeliveryFee:   d.DeliveryFee,
		TotalAmount:   d.TotalAmount,
		Shipping: domain.ShippingInfo{
			Address:    d.Shipping.Address,
			City:       d.Shipping.City,
			PostalCode: d.Shipping.PostalCode,
			Phone:      d.Shipping.Phone,
		},
		PaymentMethod: domain.PaymentMethod(d.PaymentMethod),
		PaymentURL:    d.PaymentURL,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

func orderToDocument(order domain.Order) orderDocument {
	items := make([]orderItemDocument, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemDocument{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return orderDocument{
		UserID:      order.UserID,
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
		Items:       items,
		Subtotal:    order.Subtotal,
		DeliveryFee: order.DeliveryFee,
		TotalAmount: order.TotalAmount,
		Shipping: shippingDocument{
			Address:    order.Shipping.Address,
			City:       order.Shipping.City,
			PostalCode: order.Shipping.PostalCode,
			Phone:      order.Shipping.Phone,
		},
		PaymentMethod: string(order.PaymentMethod),
		PaymentURL:    order.PaymentURL,
		CreatedAt:     order.CreatedAt.UTC(),
		UpdatedAt:     order.UpdatedAt.UTC(),
	}
}

type counterDocument struct {
	Value     int64     `firestore:"value"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func notFoundError(op, message string) error {
	return pfirestore.WrapError(op, status.Error(codes.NotFound, message))
}
