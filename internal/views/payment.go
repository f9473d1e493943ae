package views

// GenerateQRResponse carries the QR data URL rendered by the provider.
type GenerateQRResponse struct {
	QRCode string `json:"qrCode"`
}

// ConfirmPaymentRequest is the long-held confirmation request body.
type ConfirmPaymentRequest struct {
	OrderID string `json:"orderId" binding:"required"`
	Price   int64  `json:"price" binding:"required,gt=0"`
}

// ConfirmPaymentResponse is the terminal payload for a confirmation wait,
// success or timeout.
type ConfirmPaymentResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// PaymentCallbackRequest mirrors the payload posted by the bank-notification
// relay. Field names are the relay's, verbatim, Vietnamese keys included.
type PaymentCallbackRequest struct {
	AccountNo  string `json:"STK"`
	AmountText string `json:"SỐ TIỀN"`
	BankName   string `json:"NGÂN HÀNG"`
	Text       string `json:"text"`
}

// PaymentCallbackResponse acknowledges the relay. Always success: the relay
// must never be blocked or retried because matching was ambiguous.
type PaymentCallbackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
