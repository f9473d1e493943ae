package configs

import (
	"github.com/danglehoang/vietqr-gateway/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type Config struct {
	Port               string `mapstructure:"PORT" validate:"required"`
	OrdersFile         string `mapstructure:"ORDERS_FILE" validate:"required"`
	WaitTimeoutSeconds int    `mapstructure:"WAIT_TIMEOUT_SECONDS" validate:"min=1"`

	VietQRBaseURL  string `mapstructure:"VIETQR_BASE_URL" validate:"required,url"`
	VietQRClientID string `mapstructure:"VIETQR_CLIENT_ID" validate:"required"`
	VietQRAPIKey   string `mapstructure:"VIETQR_API_KEY" validate:"required"`

	AccountNo   string `mapstructure:"ACCOUNT_NO" validate:"required"`
	AccountName string `mapstructure:"ACCOUNT_NAME" validate:"required"`
	AcqID       string `mapstructure:"ACQ_ID" validate:"required"`

	QRRateLimit int `mapstructure:"QR_RATE_LIMIT" validate:"min=0"`
	QRRateBurst int `mapstructure:"QR_RATE_BURST" validate:"min=0"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
}

func Load(logger *zap.Logger) (*Config, error) {
	viper.SetEnvPrefix("app") // Prefix for env vars
	viper.AutomaticEnv()

	// Default values
	viper.SetDefault("PORT", "3000")
	viper.SetDefault("ORDERS_FILE", "orders.json")
	viper.SetDefault("WAIT_TIMEOUT_SECONDS", "300")
	viper.SetDefault("VIETQR_BASE_URL", "https://api.vietqr.io")
	viper.SetDefault("QR_RATE_LIMIT", "10")
	viper.SetDefault("QR_RATE_BURST", "20")

	// Optional: Read from config.yaml if exists
	if gin.ReleaseMode == gin.Mode() {
		viper.SetConfigName("config.prod")
	} else if gin.TestMode == gin.Mode() {
		logger.Warn("running in test mode")
		viper.SetConfigName("config.test")
	} else {
		logger.Warn("running in development mode")
		viper.SetConfigName("config.dev")
	}
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	_ = viper.ReadInConfig() // Ignore if no file

	var cfg Config
	if err := utils.ParseStructEnv(&cfg); err != nil {
		return nil, err
	}
	// Validate after unmarshal
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, utils.FormatConfigErrors(logger, err, cfg)
	}
	return &cfg, nil
}
