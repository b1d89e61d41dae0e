package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/viper"
)

// AppConfig holds the configuration for the application.
// Tags used:
// - mapstructure: used by viper to unmarshal
// - default: default value to set if missing
// - required: if "true", error if missing
type AppConfig struct {
	// Environment specifies the runtime environment (e.g., development, production).
	Environment string `mapstructure:"APP_ENV" default:"development"`
	// LogLevel defines the logging verbosity (e.g., debug, info, error).
	LogLevel string `mapstructure:"LOG_LEVEL" default:"info"`
	// ServerPort is the port where the server will listen.
	ServerPort int `mapstructure:"SERVER_PORT" default:"8080"`

	// Redis holds the session store configuration.
	Redis RedisConfig `mapstructure:",squash"`

	// Vision holds the vision oracle configuration.
	Vision VisionConfig `mapstructure:",squash"`

	// Scan holds manifest scanning rules.
	Scan ScanConfig `mapstructure:",squash"`
}

// RedisConfig holds session persistence details.
type RedisConfig struct {
	// URL is the Redis connection string, e.g. redis://localhost:6379/0.
	URL string `mapstructure:"REDIS_URL" required:"true"`
	// SessionTTLHours is how long an idle session document survives.
	SessionTTLHours int `mapstructure:"SESSION_TTL_HOURS" default:"72"`
}

// VisionConfig holds the sticker-reading oracle settings.
type VisionConfig struct {
	// Provider selects the vision backend: "http" or "tesseract".
	Provider string `mapstructure:"VISION_PROVIDER" default:"http"`
	// URL is the base endpoint of the HTTP vision oracle.
	URL string `mapstructure:"VISION_URL"`
	// APIKey is the bearer token for the HTTP vision oracle.
	APIKey string `mapstructure:"VISION_API_KEY"`
	// TimeoutSeconds bounds a single oracle call.
	TimeoutSeconds int `mapstructure:"VISION_TIMEOUT_SECONDS" default:"60"`
	// TesseractLang is the language pack for the local OCR provider.
	TesseractLang string `mapstructure:"VISION_TESSERACT_LANG" default:"eng"`
	// ProxyURL routes oracle traffic through an outbound proxy if set.
	ProxyURL string `mapstructure:"VISION_PROXY_URL"`
}

// ScanConfig holds rules applied while parsing manifests.
type ScanConfig struct {
	// ApartmentPrefixes lists the accepted leading letters of unit codes
	// (e.g. "C" or "CD"). Empty accepts any letter.
	ApartmentPrefixes string `mapstructure:"APARTMENT_PREFIXES" default:""`
}

// Load loads configuration from .env files and environment variables.
func Load(path string) (*AppConfig, error) {
	v := viper.New()

	v.AutomaticEnv()

	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig

	if err := processTags(v, &config); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := validateRequired(&config); err != nil {
		return nil, err
	}

	if err := validateVision(&config.Vision); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateVision checks provider-dependent settings that static tags cannot express.
func validateVision(cfg *VisionConfig) error {
	switch strings.ToLower(cfg.Provider) {
	case "http":
		if cfg.URL == "" {
			return errors.New("missing required configuration: VISION_URL (required when VISION_PROVIDER=http)")
		}
	case "tesseract":
		// Local provider needs no endpoint.
	default:
		return fmt.Errorf("unknown VISION_PROVIDER: %s", cfg.Provider)
	}
	return nil
}

// processTags iterates over the struct fields and sets default values in Viper.
func processTags(v *viper.Viper, config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := processTags(v, val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		key := field.Tag.Get("mapstructure")
		defaultValue := field.Tag.Get("default")

		if key != "" {
			v.BindEnv(key)
		}

		if key != "" && defaultValue != "" {
			v.SetDefault(key, defaultValue)
		}
	}
	return nil
}

// validateRequired checks if fields marked as required have non-zero values.
func validateRequired(config interface{}) error {
	val := reflect.ValueOf(config)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	t := val.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)

		if field.Type.Kind() == reflect.Struct {
			if err := validateRequired(val.Field(i).Addr().Interface()); err != nil {
				return err
			}
			continue
		}

		required := field.Tag.Get("required")
		if required == "true" {
			value := val.Field(i)
			if isZero(value) {
				key := field.Tag.Get("mapstructure")
				return fmt.Errorf("missing required configuration: %s", key)
			}
		}
	}
	return nil
}

// isZero checks if a reflect.Value is the zero value for its type.
func isZero(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String:
		return v.String() == ""
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Slice, reflect.Map:
		return v.Len() == 0
	default:
		return v.IsZero()
	}
}
