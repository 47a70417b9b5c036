package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	domain "github.com/gerai/api/internal/domain"
	"github.com/gerai/api/internal/platform/auth"
	"github.com/gerai/api/internal/services"
)

var (
	errEmptyBody    = errors.New("request body is empty")
	errBodyTooLarge = errors.New("request body too large")
)

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

// requesterFromContext extracts the authenticated caller placed on the context
// by the auth middleware.
func requesterFromContext(r *http.Request) (services.Requester, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		return services.Requester{}, false
	}
	return services.Requester{UserID: identity.UID, Admin: identity.IsAdmin()}, true
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

type pagePayload[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

type productPayload struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Stock     int    `json:"stock"`
	Active    bool   `json:"active"`
	ImageURL  string `json:"imageUrl,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

func buildProductPayload(product domain.Product) productPayload {
	return productPayload{
		ID:        product.ID,
		Name:      product.Name,
		Price:     product.Price,
		Stock:     product.Stock,
		Active:    product.Active,
		ImageURL:  product.ImageURL,
		CreatedAt: formatTime(product.CreatedAt),
		UpdatedAt: formatTime(product.UpdatedAt),
	}
}

func buildProductPage(page domain.Page[domain.Product]) pagePayload[productPayload] {
	items := make([]productPayload, 0, len(page.Items))
	for _, product := range page.Items {
		items = append(items, buildProductPayload(product))
	}
	return pagePayload[productPayload]{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
	}
}

type imageUploadPayload struct {
	UploadURL  string `json:"uploadUrl"`
	PublicURL  string `json:"publicUrl"`
	ObjectName string `json:"objectName"`
	ExpiresAt  string `json:"expiresAt"`
}

func buildImageUploadPayload(upload services.ProductImageUpload) imageUploadPayload {
	return imageUploadPayload{
		UploadURL:  upload.UploadURL,
		PublicURL:  upload.PublicURL,
		ObjectName: upload.ObjectName,
		ExpiresAt:  formatTime(upload.ExpiresAt),
	}
}

type cartItemPayload struct {
	ID            string `json:"id"`
	ProductID     string `json:"productId"`
	ProductName   string `json:"productName"`
	Quantity      int    `json:"quantity"`
	PriceSnapshot int64  `json:"priceSnapshot"`
	LineTotal     int64  `json:"lineTotal"`
	AddedAt       string `json:"addedAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
}

type cartSummaryPayload struct {
	Subtotal    int64 `json:"subtotal"`
	ItemCount   int   `json:"itemCount"`
	DeliveryFee int64 `json:"deliveryFee"`
	Total       int64 `json:"total"`
}

type cartPayload struct {
	UserID    string             `json:"userId"`
	Items     []cartItemPayload  `json:"items"`
	Summary   cartSummaryPayload `json:"summary"`
	UpdatedAt string             `json:"updatedAt,omitempty"`
}

func buildCartPayload(view services.CartView) cartPayload {
	items := make([]cartItemPayload, 0, len(view.Cart.Items))
	for _, item := range view.Cart.Items {
		items = append(items, cartItemPayload{
			ID:            item.ID,
			ProductID:     item.ProductID,
			ProductName:   item.ProductName,
			Quantity:      item.Quantity,
			PriceSnapshot: item.PriceSnapshot,
			LineTotal:     item.LineTotal(),
			AddedAt:       formatTime(item.AddedAt),
			UpdatedAt:     formatTimePtr(item.UpdatedAt),
		})
	}
	return cartPayload{
		UserID: view.Cart.UserID,
		Items:  items,
		Summary: cartSummaryPayload{
			Subtotal:    view.Summary.Subtotal,
			ItemCount:   view.Summary.ItemCount,
			DeliveryFee: view.Summary.DeliveryFee,
			Total:       view.Summary.Total,
		},
		UpdatedAt: formatTime(view.Cart.UpdatedAt),
	}
}

type orderItemPayload struct {
	ProductID   string `json:"productId"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   int64  `json:"unitPrice"`
	LineTotal   int64  `json:"lineTotal"`
}

type shippingPayload struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Phone      string `json:"phone"`
}

type orderPayload struct {
	ID            string             `json:"id"`
	UserID        string             `json:"userId"`
	OrderNumber   string             `json:"orderNumber"`
	Status        string             `json:"status"`
	Items         []orderItemPayload `json:"items"`
	Subtotal      int64              `json:"subtotal"`
	DeliveryFee   int64              `json:"deliveryFee"`
	TotalAmount   int64              `json:"totalAmount"`
	Shipping      shippingPayload    `json:"shipping"`
	PaymentMethod string             `json:"paymentMethod"`
	PaymentURL    string             `json:"paymentUrl,omitempty"`
	CreatedAt     string             `json:"createdAt,omitempty"`
	UpdatedAt     string             `json:"updatedAt,omitempty"`
}

func buildOrderPayload(order domain.Order) orderPayload {
	items := make([]orderItemPayload, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemPayload{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal(),
		})
	}
	payload := orderPayload{
		ID:            order.ID,
		UserID:        order.UserID,
		OrderNumber:   order.OrderNumber,
		Status:        string(order.Status),
		Items:         items,
		Subtotal:      order.Subtotal,
		DeliveryFee:   order.DeliveryFee,
		TotalAmount:   order.TotalAmount,
		Shipping: shippingPayload{
			Address:    order.Shipping.Address,
			City:       order.Shipping.City,
			PostalCode: order.Shipping.PostalCode,
			Phone:      order.Shipping.Phone,
		},
		PaymentMethod: string(order.PaymentMethod),
		CreatedAt:     formatTime(order.CreatedAt),
		UpdatedAt:     formatTime(order.UpdatedAt),
	}
	if order.PaymentURL != nil {
		payload.PaymentURL = *order.PaymentURL
	}
	return payload
}

func buildOrderPage(page domain.Page[domain.Order]) pagePayload[orderPayload] {
	items := make([]orderPayload, 0, len(page.Items))
	for _, order := range page.Items {
		items = append(items, buildOrderPayload(order))
	}
	return pagePayload[orderPayload]{
		Items:      items,
		Total:      page.Total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages,
	}
}
