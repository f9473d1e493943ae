package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danglehoang/vietqr-gateway/configs"
	"github.com/danglehoang/vietqr-gateway/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func providerConfig(baseURL string) *configs.Config {
	return &configs.Config{
		VietQRBaseURL:  baseURL,
		VietQRClientID: "client-id",
		VietQRAPIKey:   "api-key",
		AccountNo:      "0905290338",
		AccountName:    "DANG LE HOANG",
		AcqID:          "963388",
	}
}

func TestGenerateQR_PostsOrderDetails(t *testing.T) {
	var got qrRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/generate", r.URL.Path)
		assert.Equal(t, "client-id", r.Header.Get("x-client-id"))
		assert.Equal(t, "api-key", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{"qrDataURL": "data:image/png;base64,abc"},
		})
	}))
	defer srv.Close()

	client := NewVietQRClient(zap.NewNop(), providerConfig(srv.URL))
	qr, err := client.GenerateQR(context.Background(), "trace", "ORD1", 5000)
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,abc", qr)

	assert.Equal(t, "0905290338", got.AccountNo)
	assert.Equal(t, "DANG LE HOANG", got.AccountName)
	assert.Equal(t, "963388", got.AcqID)
	assert.Equal(t, int64(5000), got.Amount)
	assert.Equal(t, "ORD1", got.AddInfo)
	assert.Equal(t, "text", got.Format)
	assert.Equal(t, "qr_only", got.Template)
}

func TestGenerateQR_ProviderErrorSurfacedVerbatim(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewVietQRClient(zap.NewNop(), providerConfig(srv.URL))
	_, err := client.GenerateQR(context.Background(), "trace", "ORD1", 5000)

	var appErr pkg.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkg.ErrQRProviderCode, appErr.Code)
	assert.Contains(t, appErr.Message, "401")
	assert.Contains(t, appErr.Message, "invalid api key")
}

func TestGenerateQR_MissingDataURLIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{}})
	}))
	defer srv.Close()

	client := NewVietQRClient(zap.NewNop(), providerConfig(srv.URL))
	_, err := client.GenerateQR(context.Background(), "trace", "ORD1", 5000)

	var appErr pkg.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkg.ErrQRProviderCode, appErr.Code)
}

func TestGenerateQR_ConnectionRefused(t *testing.T) {
	client := NewVietQRClient(zap.NewNop(), providerConfig("http://127.0.0.1:1"))
	_, err := client.GenerateQR(context.Background(), "trace", "ORD1", 5000)

	var appErr pkg.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkg.ErrQRProviderCode, appErr.Code)
}
