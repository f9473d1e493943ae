package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/danglehoang/vietqr-gateway/configs"
	"github.com/danglehoang/vietqr-gateway/pkg"
	"github.com/danglehoang/vietqr-gateway/pkg/utils"
	"go.uber.org/zap"
)

// QRService renders a payment QR for an order via the external provider.
type QRService interface {
	GenerateQR(ctx context.Context, traceID string, orderID string, price int64) (string, error)
}

type qrRequest struct {
	AccountNo   string `json:"accountNo"`
	AccountName string `json:"accountName"`
	AcqID       string `json:"acqId"`
	Amount      int64  `json:"amount"`
	AddInfo     string `json:"addInfo"`
	Format      string `json:"format"`
	Template    string `json:"template"`
}

type qrResponse struct {
	Data struct {
		QRDataURL string `json:"qrDataURL"`
	} `json:"data"`
}

// VietQRClient talks to the VietQR generate endpoint. The order id travels in
// addInfo so it ends up in the payer's transfer memo, which is what the
// matcher later correlates on.
type VietQRClient struct {
	logger     *zap.Logger
	cfg        *configs.Config
	httpClient *http.Client
}

func NewVietQRClient(logger *zap.Logger, cfg *configs.Config) *VietQRClient {
	return &VietQRClient{
		logger:     logger,
		cfg:        cfg,
		httpClient: utils.NewHTTPClient(),
	}
}

func (c *VietQRClient) GenerateQR(ctx context.Context, traceID string, orderID string, price int64) (string, error) {
	payload := qrRequest{
		AccountNo:   c.cfg.AccountNo,
		AccountName: c.cfg.AccountName,
		AcqID:       c.cfg.AcqID,
		Amount:      price,
		AddInfo:     orderID,
		Format:      "text",
		Template:    "qr_only",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", pkg.NewAppError(pkg.ErrQRProviderCode, "failed to encode qr request", err)
	}

	url := c.cfg.VietQRBaseURL + "/v2/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", pkg.NewAppError(pkg.ErrQRProviderCode, "failed to build qr request", err)
	}
	req.Header.Set("x-client-id", c.cfg.VietQRClientID)
	req.Header.Set("x-api-key", c.cfg.VietQRAPIKey)
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("requesting qr from provider",
		zap.String(pkg.TraceId, traceID),
		zap.String("orderId", orderID),
		zap.Int64("amount", price))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", pkg.NewAppError(pkg.ErrQRProviderCode, err.Error(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Surface the provider's message verbatim; there is no retry.
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		msg := fmt.Sprintf("qr provider returned %d: %s", resp.StatusCode, bytes.TrimSpace(detail))
		return "", pkg.NewAppError(pkg.ErrQRProviderCode, msg, nil)
	}

	var out qrResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", pkg.NewAppError(pkg.ErrQRProviderCode, "failed to decode qr provider response", err)
	}
	if utils.IsEmpty(out.Data.QRDataURL) {
		return "", pkg.NewAppError(pkg.ErrQRProviderCode, "qr provider response missing qrDataURL", nil)
	}
	return out.Data.QRDataURL, nil
}
