package utils

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/danglehoang/vietqr-gateway/pkg"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// IsEmpty checks if a string is empty.
func IsEmpty(s string) bool {
	return s == ""
}

func GetTraceID(c *gin.Context) (string, error) {
	traceID := c.GetString(pkg.TraceId)
	if IsEmpty(traceID) {
		return "", errors.New("trace id is empty")
	}
	return traceID, nil
}

// ParseStructEnv binds env vars to struct fields using a mapstructure tag
func ParseStructEnv(cfg interface{}) error {
	v := reflect.ValueOf(cfg).Elem()
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if err := viper.BindEnv(tag); err != nil {
			return err
		}
	}
	return viper.Unmarshal(cfg)
}

// FormatConfigErrors turns validator errors into one readable error naming the
// offending env vars, and logs the loaded (non-secret) config for diagnosis.
func FormatConfigErrors(logger *zap.Logger, err error, cfg interface{}) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	t := reflect.TypeOf(cfg)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	var missing []string
	for _, fe := range verrs {
		env := fe.Field()
		if field, ok := t.FieldByName(fe.Field()); ok {
			if tag := field.Tag.Get("mapstructure"); tag != "" {
				env = tag
			}
		}
		missing = append(missing, fmt.Sprintf("%s (%s)", env, fe.Tag()))
		logger.Error("invalid config value", zap.String("field", env), zap.String("rule", fe.Tag()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(missing, ", "))
}
