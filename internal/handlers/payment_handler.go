package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/danglehoang/vietqr-gateway/internal/matcher"
	"github.com/danglehoang/vietqr-gateway/internal/registry"
	"github.com/danglehoang/vietqr-gateway/internal/services"
	"github.com/danglehoang/vietqr-gateway/internal/views"
	"github.com/danglehoang/vietqr-gateway/pkg"
	"github.com/danglehoang/vietqr-gateway/pkg/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	logger    *zap.Logger
	qr        services.QRService
	confirm   services.ConfirmationService
	qrLimiter *pkg.DistributedLimiter
}

func NewPaymentHandler(logger *zap.Logger, qr services.QRService, confirm services.ConfirmationService, qrLimiter *pkg.DistributedLimiter) *PaymentHandler {
	return &PaymentHandler{logger: logger, qr: qr, confirm: confirm, qrLimiter: qrLimiter}
}

// RegisterRoutes registers payment routes on the provided Gin group.
func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/generate-qr/:orderId", h.GenerateQR)
	r.POST("/confirm-payment", h.ConfirmPayment)
	r.POST("/payment-callback", h.PaymentCallback)
}

func (h *PaymentHandler) GenerateQR(c *gin.Context) {
	traceID, err := utils.GetTraceID(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	orderID := c.Param("orderId")
	price, err := strconv.ParseInt(c.Query("Price"), 10, 64)
	if err != nil || price <= 0 {
		h.logger.Warn("invalid price for qr request",
			zap.String(pkg.TraceId, traceID),
			zap.String("orderId", orderID),
			zap.String("price", c.Query("Price")))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price must be a positive integer"})
		return
	}

	if !h.qrLimiter.Allow(c.Request.Context()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": pkg.ErrRateLimitExceeded.Error()})
		return
	}

	qrCode, err := h.qr.GenerateQR(c.Request.Context(), traceID, orderID, price)
	if err != nil {
		resp := pkg.ToErrorResponse(h.logger, traceID, err)
		c.JSON(resp.Status, gin.H{"error": resp.Message})
		return
	}

	c.JSON(http.StatusOK, views.GenerateQRResponse{QRCode: qrCode})
}

func (h *PaymentHandler) ConfirmPayment(c *gin.Context) {
	traceID, err := utils.GetTraceID(c)
	if err != nil {
		c.JSON(http.StatusInternalServerError, views.ConfirmPaymentResponse{Success: false, Message: err.Error()})
		return
	}

	var req views.ConfirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid confirm-payment body", zap.String(pkg.TraceId, traceID), zap.Error(err))
		c.JSON(http.StatusBadRequest, views.ConfirmPaymentResponse{
			Success: false,
			Message: "orderId and price must be valid",
		})
		return
	}

	outcome, err := h.confirm.RegisterPending(c.Request.Context(), traceID, req.OrderID, req.Price)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Client disconnected while blocked; nobody is reading this.
			c.Abort()
			return
		}
		resp := pkg.ToErrorResponse(h.logger, traceID, err)
		c.JSON(resp.Status, views.ConfirmPaymentResponse{Success: false, Message: resp.Message})
		return
	}

	switch outcome {
	case registry.OutcomeCompleted:
		c.JSON(http.StatusOK, views.ConfirmPaymentResponse{
			Success: true,
			Message: fmt.Sprintf("payment confirmed for order %s", req.OrderID),
		})
	case registry.OutcomeTimeout:
		c.JSON(http.StatusRequestTimeout, views.ConfirmPaymentResponse{
			Success: false,
			Message: "confirmation window elapsed, awaiting late confirmation",
		})
	default:
		c.JSON(http.StatusInternalServerError, views.ConfirmPaymentResponse{
			Success: false,
			Message: "unexpected confirmation outcome",
		})
	}
}

// PaymentCallback always acknowledges the relay with 200; a callback that
// matches nothing must not cause upstream retries.
func (h *PaymentHandler) PaymentCallback(c *gin.Context) {
	traceID, _ := utils.GetTraceID(c)

	ack := views.PaymentCallbackResponse{Success: true, Message: "callback received"}

	var req views.PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("undecodable callback payload", zap.String(pkg.TraceId, traceID), zap.Error(err))
		c.JSON(http.StatusOK, ack)
		return
	}

	h.confirm.ReceiveCallback(c.Request.Context(), traceID, matcher.Transaction{
		AccountNo:  req.AccountNo,
		AmountText: req.AmountText,
		BankName:   req.BankName,
		Memo:       req.Text,
	})

	c.JSON(http.StatusOK, ack)
}
