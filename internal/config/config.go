package config // package config loads application configuration from environment variables

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Store backends selectable through STORE.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env          string // application environment (e.g. "dev", "prod")
	Port         string // HTTP port to listen on
	Store        string // "mysql" (default) or "memory"
	SeedFile     string // JSON fixtures loaded into the memory store
	DBUser       string // database username
	DBPass       string // database password (optional)
	DBHost       string // database host address
	DBPort       string // database port number
	DBName       string // database name
	JWTSecret    string // secret used to verify access tokens
	AccessTTLMin int    // access token time-to-live in minutes

	RabbitURL   string // AMQP broker for ticket mails; empty disables the queue
	MailLogPath string // where the mail worker writes rendered tickets
	LogLevel    string // logrus level name

	TicketPrefix       string        // first segment of every ticket id
	RejectionReasonMin int           // minimum characters in a payment rejection reason
	ShutdownTimeout    time.Duration // grace period for in-flight requests on SIGTERM
}

// Load reads a .env file when one exists and then builds a Config from the
// environment.  Required variables are enforced by must(); the database
// variables are only required when the MySQL store is selected.
func Load() Config {
	// A missing .env is normal in containers; the environment wins anyway.
	_ = godotenv.Load()

	cfg := Config{
		Env:          envStr("APP_ENV", "dev"),
		Port:         envStr("APP_PORT", "8080"),
		Store:        strings.ToLower(envStr("STORE", StoreMySQL)),
		SeedFile:     os.Getenv("SEED_FILE"),
		DBPass:       os.Getenv("DB_PASS"),
		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60),

		RabbitURL:   os.Getenv("RABBITMQ_URL"),
		MailLogPath: envStr("MAIL_LOG_PATH", "logs/mail.log"),
		LogLevel:    envStr("LOG_LEVEL", "info"),

		TicketPrefix:       envStr("TICKET_PREFIX", "FEL"),
		RejectionReasonMin: envInt("REJECTION_REASON_MIN", 10),
		ShutdownTimeout:    envDur("SHUTDOWN_TIMEOUT", 15*time.Second),
	}
	switch cfg.Store {
	case StoreMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = envStr("DB_PORT", "3306")
		cfg.DBName = must("DB_NAME")
	case StoreMemory:
	default:
		logrus.Fatalf("invalid STORE %q: want %s or %s", cfg.Store, StoreMySQL, StoreMemory)
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logrus.Fatalf("missing required env var: %s", key)
	}
	return v
}
