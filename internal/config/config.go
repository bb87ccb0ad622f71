package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config представляет структуру конфигурации для приложения.
type Config struct {
	App struct {
		Port string `mapstructure:"port"`
		Env  string `mapstructure:"env"`
	} `mapstructure:"app"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	Database struct {
		DSN      string `mapstructure:"dsn"`
		MaxConns int32  `mapstructure:"maxConns"`
		// ConnectTimeout общий бюджет на подключение с повторами
		ConnectTimeout time.Duration `mapstructure:"connectTimeout"`
	} `mapstructure:"database"`
	Redis struct {
		Addr      string        `mapstructure:"addr"`
		Password  string        `mapstructure:"password"`
		DB        int           `mapstructure:"db"`
		ReportTTL time.Duration `mapstructure:"reportTTL"`
	} `mapstructure:"redis"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
	} `mapstructure:"kafka"`
	Razorpay struct {
		KeyID     string `mapstructure:"keyId"`
		KeySecret string `mapstructure:"keySecret"`
		// SigningSecret секрет для подписи платежей; по умолчанию равен KeySecret
		SigningSecret string        `mapstructure:"signingSecret"`
		PlanID        string        `mapstructure:"planId"`
		Timeout       time.Duration `mapstructure:"timeout"`
	} `mapstructure:"razorpay"`
	Subscription struct {
		TotalCount   int           `mapstructure:"totalCount"`
		RefundWindow time.Duration `mapstructure:"refundWindow"`
		RefundSpeed  string        `mapstructure:"refundSpeed"`
		// TerminalStatus статус после отмены: inactive или cancelled
		TerminalStatus string `mapstructure:"terminalStatus"`
	} `mapstructure:"subscription"`
	GRPC struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"grpc"`
	Auth struct {
		JWTSecret string `mapstructure:"jwtSecret"`
	} `mapstructure:"auth"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.maxConns", 10)
	v.SetDefault("database.connectTimeout", 30*time.Second)
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.reportTTL", 5*time.Minute)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "subscription-events")
	v.SetDefault("razorpay.keyId", "")
	v.SetDefault("razorpay.keySecret", "")
	v.SetDefault("razorpay.signingSecret", "")
	v.SetDefault("razorpay.planId", "")
	v.SetDefault("razorpay.timeout", 15*time.Second)
	v.SetDefault("subscription.totalCount", 12)
	v.SetDefault("subscription.refundWindow", 14*24*time.Hour)
	v.SetDefault("subscription.refundSpeed", "optimum")
	v.SetDefault("subscription.terminalStatus", "inactive")
	v.SetDefault("grpc.port", "9090")
	v.SetDefault("auth.jwtSecret", "")
}

// envAliases переменные окружения для составных ключей.
// Первым идет snake_case имя, затем слитное имя, которое дает AutomaticEnv.
var envAliases = map[string][]string{
	"database.maxConns":           {"DATABASE_MAX_CONNS", "DATABASE_MAXCONNS"},
	"database.connectTimeout":     {"DATABASE_CONNECT_TIMEOUT", "DATABASE_CONNECTTIMEOUT"},
	"redis.reportTTL":             {"REDIS_REPORT_TTL", "REDIS_REPORTTTL"},
	"razorpay.keyId":              {"RAZORPAY_KEY_ID", "RAZORPAY_KEYID"},
	"razorpay.keySecret":          {"RAZORPAY_KEY_SECRET", "RAZORPAY_KEYSECRET"},
	"razorpay.signingSecret":      {"RAZORPAY_SIGNING_SECRET", "RAZORPAY_SIGNINGSECRET"},
	"razorpay.planId":             {"RAZORPAY_PLAN_ID", "RAZORPAY_PLANID"},
	"subscription.totalCount":     {"SUBSCRIPTION_TOTAL_COUNT", "SUBSCRIPTION_TOTALCOUNT"},
	"subscription.refundWindow":   {"SUBSCRIPTION_REFUND_WINDOW", "SUBSCRIPTION_REFUNDWINDOW"},
	"subscription.refundSpeed":    {"SUBSCRIPTION_REFUND_SPEED", "SUBSCRIPTION_REFUNDSPEED"},
	"subscription.terminalStatus": {"SUBSCRIPTION_TERMINAL_STATUS", "SUBSCRIPTION_TERMINALSTATUS"},
	"auth.jwtSecret":              {"AUTH_JWT_SECRET", "AUTH_JWTSECRET", "JWT_SECRET"},
}

func bindEnv(v *viper.Viper) error {
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// LoadConfig загружает конфигурацию из .env, config.yml и переменных окружения.
// envPath может быть пустым; отсутствующие файлы не считаются ошибкой.
func LoadConfig(envPath string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" && envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// DATABASE_DSN, KAFKA_TOPIC и т.д.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.Razorpay.SigningSecret == "" {
		cfg.Razorpay.SigningSecret = cfg.Razorpay.KeySecret
	}
	if len(cfg.Kafka.Brokers) == 1 && strings.Contains(cfg.Kafka.Brokers[0], ",") {
		cfg.Kafka.Brokers = strings.Split(cfg.Kafka.Brokers[0], ",")
	}

	return &cfg, nil
}

// Validate проверяет обязательные параметры.
func (c *Config) Validate() error {
	var errs []error
	if c.Razorpay.KeyID == "" {
		errs = append(errs, errors.New("razorpay.keyId is required"))
	}
	if c.Razorpay.KeySecret == "" {
		errs = append(errs, errors.New("razorpay.keySecret is required"))
	}
	if c.Razorpay.PlanID == "" {
		errs = append(errs, errors.New("razorpay.planId is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwtSecret is required"))
	}
	if c.Subscription.TotalCount <= 0 {
		errs = append(errs, errors.New("subscription.totalCount must be positive"))
	}
	if c.Subscription.RefundWindow <= 0 {
		errs = append(errs, errors.New("subscription.refundWindow must be positive"))
	}
	switch c.Subscription.TerminalStatus {
	case "inactive", "cancelled":
	default:
		errs = append(errs, fmt.Errorf("subscription.terminalStatus must be inactive or cancelled, got %q", c.Subscription.TerminalStatus))
	}
	switch c.Subscription.RefundSpeed {
	case "optimum", "normal":
	default:
		errs = append(errs, fmt.Errorf("subscription.refundSpeed must be optimum or normal, got %q", c.Subscription.RefundSpeed))
	}
	return errors.Join(errs...)
}

// IsProduction true для production окружения
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
