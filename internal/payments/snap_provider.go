package payments

import (
	"bytes"
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domain "github.com/gerai/api/internal/domain"
	"github.com/gerai/api/internal/services"
)

const defaultSnapTimeout = 10 * time.Second

// ErrSnapInvalidSignature indicates the notification signature does not match
// the server key.
var ErrSnapInvalidSignature = errors.New("snap: invalid notification signature")

// SnapProviderConfig configures the SnapProvider.
type SnapProviderConfig struct {
	ServerKey  string
	BaseURL    string
	FinishURL  string
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     Logger
}

// SnapProvider creates hosted payment pages through the Snap transactions API
// and authenticates its asynchronous status notifications.
type SnapProvider struct {
	serverKey string
	baseURL   string
	finishURL string
	client    *http.Client
	logger    Logger
}

var (
	_ Provider                      = (*SnapProvider)(nil)
	_ services.NotificationVerifier = (*SnapProvider)(nil)
)

// NewSnapProvider constructs a Snap gateway adapter.
func NewSnapProvider(cfg SnapProviderConfig) (*SnapProvider, error) {
	serverKey := strings.TrimSpace(cfg.ServerKey)
	if serverKey == "" {
		return nil, errors.New("snap: server key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("snap: base url is required")
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultSnapTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &SnapProvider{
		serverKey: serverKey,
		baseURL:   baseURL,
		finishURL: strings.TrimSpace(cfg.FinishURL),
		client:    client,
		logger:    logger,
	}, nil
}

type snapTransactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type snapCallbacks struct {
	Finish string `json:"finish,omitempty"`
}

type snapTransactionRequest struct {
	TransactionDetails snapTransactionDetails `json:"transaction_details"`
	EnabledPayments    []string               `json:"enabled_payments,omitempty"`
	Callbacks          *snapCallbacks         `json:"callbacks,omitempty"`
}

type snapTransactionResponse struct {
	Token         string   `json:"token"`
	RedirectURL   string   `json:"redirect_url"`
	ErrorMessages []string `json:"error_messages"`
}

// CreatePaymentLink creates a Snap transaction and returns its hosted payment
// page. The gateway keys transactions by the human-readable order number.
func (p *SnapProvider) CreatePaymentLink(ctx context.Context, req services.PaymentLinkRequest) (services.PaymentLink, error) {
	if p == nil || p.client == nil {
		return services.PaymentLink{}, errors.New("snap: provider not initialised")
	}
	orderNumber := strings.TrimSpace(req.OrderNumber)
	if orderNumber == "" {
		return services.PaymentLink{}, errors.New("snap: order number is required")
	}
	if req.Amount <= 0 {
		return services.PaymentLink{}, fmt.Errorf("snap: amount must be positive, got %d", req.Amount)
	}

	payload := snapTransactionRequest{
		TransactionDetails: snapTransactionDetails{
			OrderID:     orderNumber,
			GrossAmount: req.Amount,
		},
		EnabledPayments: enabledPaymentsFor(req.Method),
	}
	if p.finishURL != "" {
		payload.Callbacks = &snapCallbacks{Finish: p.finishURL}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return services.PaymentLink{}, fmt.Errorf("snap: encode transaction: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return services.PaymentLink{}, fmt.Errorf("snap: build request: %w", err)
	}
	httpReq.SetBasicAuth(p.serverKey, "")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return services.PaymentLink{}, fmt.Errorf("snap: create transaction: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return services.PaymentLink{}, fmt.Errorf("snap: read response: %w", err)
	}

	var decoded snapTransactionResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return services.PaymentLink{}, fmt.Errorf("snap: decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger(ctx, "snap.transaction_rejected", map[string]any{
			"orderNumber": orderNumber,
			"statusCode":  resp.StatusCode,
			"messages":    decoded.ErrorMessages,
		})
		return services.PaymentLink{}, fmt.Errorf("snap: transaction rejected with status %d: %s", resp.StatusCode, strings.Join(decoded.ErrorMessages, "; "))
	}
	if decoded.RedirectURL == "" {
		return services.PaymentLink{}, errors.New("snap: response missing redirect url")
	}

	p.logger(ctx, "snap.transaction_created", map[string]any{
		"orderNumber": orderNumber,
		"amount":      req.Amount,
	})
	return services.PaymentLink{URL: decoded.RedirectURL, Token: decoded.Token}, nil
}

// VerifyNotification checks the SHA-512 signature the gateway attaches to
// every notification: hex(sha512(order_id + status_code + gross_amount + server_key)).
func (p *SnapProvider) VerifyNotification(orderNumber, statusCode, grossAmount, signatureKey string) error {
	if p == nil {
		return errors.New("snap: provider not initialised")
	}
	signatureKey = strings.ToLower(strings.TrimSpace(signatureKey))
	if signatureKey == "" {
		return ErrSnapInvalidSignature
	}

	sum := sha512.Sum512([]byte(orderNumber + statusCode + grossAmount + p.serverKey))
	expected := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(expected), []byte(signatureKey)) != 1 {
		return ErrSnapInvalidSignature
	}
	return nil
}

// enabledPaymentsFor narrows the Snap payment page to channels matching the
// method chosen at checkout. An unknown method leaves all channels enabled.
func enabledPaymentsFor(method domain.PaymentMethod) []string {
	switch method {
	case domain.PaymentMethodCreditCard:
		return []string{"credit_card"}
	case domain.PaymentMethodQRIS:
		return []string{"qris", "gopay"}
	case domain.PaymentMethodBankTransfer:
		return []string{"bank_transfer", "echannel", "permata_va"}
	default:
		return nil
	}
}
