package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"store-api/pkg/database"

	"go.uber.org/zap"
)

type Config struct {
	Env      string
	Port     string
	GRPCPort string // пусто — gRPC health не поднимается

	JWT     JWT
	DB      DB
	Redis   Redis
	Session Session
	Payment Payment
	Kafka   Kafka

	CORSOrigins []string
}

type JWT struct {
	Secret    string
	Issuer    string
	Audience  string
	AccessExp time.Duration
}

type DB struct {
	database.Config
}

type Redis struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type Session struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

type Payment struct {
	StripeSecretKey string
	Currency        string
	Timeout         time.Duration
}

type Kafka struct {
	Brokers     []string // пусто — события не публикуются
	TopicOrders string
}

const defaultCORSOrigin = "http://localhost:3000"

func Load(log *zap.Logger) *Config {
	return &Config{
		Env:      getEnvDefault("ENV", "production"),
		Port:     getEnv("APP_PORT", log),
		GRPCPort: getEnvDefault("GRPC_PORT", ""),
		JWT: JWT{
			Secret:    getEnv("JWT_SECRET", log),
			Issuer:    getEnv("JWT_ISSUER", log),
			Audience:  getEnv("JWT_AUDIENCE", log),
			AccessExp: parseDurationWithDays(getEnvDefault("ACCESS_EXP", "15m"), log),
		},
		DB: LoadDB(log),
		Redis: Redis{
			Enabled:  getEnvDefault("REDIS_ENABLED", "false") == "true",
			Addr:     getEnvDefault("REDIS_ADDR", "localhost:6379"),
			Password: getEnvDefault("REDIS_PASSWORD", ""),
			DB:       atoiDefault(getEnvDefault("REDIS_DB", "0"), 0),
		},
		Session: Session{
			CookieName: getEnvDefault("SESSION_COOKIE", "store_session"),
			TTL:        parseDurationWithDays(getEnvDefault("SESSION_TTL", "7d"), log),
			Secure:     getEnvDefault("SESSION_COOKIE_SECURE", "true") == "true",
		},
		Payment: Payment{
			StripeSecretKey: getEnv("STRIPE_SECRET_KEY", log),
			Currency:        strings.ToLower(getEnvDefault("STORE_CURRENCY", "gbp")),
			Timeout:         parseDurationWithDays(getEnvDefault("PAYMENT_TIMEOUT", "10s"), log),
		},
		Kafka: Kafka{
			Brokers:     splitList(getEnvDefault("KAFKA_BROKERS", "")),
			TopicOrders: getEnvDefault("KAFKA_TOPIC_ORDERS", "store.orders"),
		},
		CORSOrigins: listOrDefault(splitList(getEnvDefault("CORS_ORIGINS", defaultCORSOrigin)), defaultCORSOrigin),
	}
}

// LoadDB: только параметры БД, для cmd/migrate.
func LoadDB(log *zap.Logger) DB {
	return DB{
		Config: database.Config{
			Host:     getEnv("DB_HOST", log),
			Port:     getEnv("DB_PORT", log),
			User:     getEnv("DB_USER", log),
			Password: getEnv("DB_PASSWORD", log),
			Name:     getEnv("DB_NAME", log),
			SSLMode:  getEnvDefault("DB_SSLMODE", "disable"),
		},
	}
}

// Notifier: настройки процесса cmd/notifier.
type Notifier struct {
	DB      DB
	SMTP    SMTP
	Brokers []string
	GroupID string
	Topic   string
}

type SMTP struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	SSL      bool
}

func LoadNotifier(log *zap.Logger) *Notifier {
	port, err := strconv.Atoi(getEnv("SMTP_PORT", log))
	if err != nil {
		log.Error("Ошибка преобразования переменной окружения в int", zap.String("key", "SMTP_PORT"), zap.Error(err))
		panic("invalid int value for environment variable: SMTP_PORT")
	}
	return &Notifier{
		DB: LoadDB(log),
		SMTP: SMTP{
			Host:     getEnv("SMTP_HOST", log),
			Port:     port,
			User:     getEnv("SMTP_USER", log),
			Password: getEnv("SMTP_PASSWORD", log),
			From:     getEnv("SMTP_FROM", log),
			SSL:      getEnvDefault("SMTP_SSL", "true") == "true",
		},
		Brokers: splitList(getEnv("KAFKA_BROKERS", log)),
		GroupID: getEnvDefault("KAFKA_GROUP_ID", "store-notifier"),
		Topic:   getEnvDefault("KAFKA_TOPIC_ORDERS", "store.orders"),
	}
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("Обязательная переменная окружения не установлена", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func getEnvDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return def
}

// parseDurationWithDays понимает всё, что понимает time.ParseDuration, плюс суффикс d (дни).
func parseDurationWithDays(s string, log *zap.Logger) time.Duration {
	if strings.HasSuffix(s, "d") {
		days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil {
			log.Error("Ошибка парсинга длительности", zap.String("value", s), zap.Error(err))
			return 0
		}
		return time.Duration(days) * 24 * time.Hour
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		log.Error("Ошибка парсинга длительности", zap.String("value", s), zap.Error(err))
		return 0
	}
	return d
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

// listOrDefault: ", ," в переменной даёт пустой список, тогда берём значение по умолчанию.
func listOrDefault(list []string, def string) []string {
	if len(list) == 0 {
		return []string{def}
	}
	return list
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
