package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Owner string

	IMAPAddr        string
	IMAPUsername    string
	IMAPPassword    string
	IMAPFolder      string
	MailboxLookback time.Duration

	PollingInterval time.Duration
	BatchSize       int

	NATSURL         string
	NATSConnTimeout time.Duration

	ClickHouseDSN          string
	ClickHouseMaxOpenConns int
	ClickHouseMaxIdleConns int
	ClickHouseConnMaxLife  time.Duration
	ClickHouseUsername     string
	ClickHousePassword     string
	ClickHouseDatabase     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	HTTPAddr string

	// OTLPEndpoint enables trace export when non-empty.
	OTLPEndpoint string

	MinTrainingExamples int
	TrainSplit          float64
	DedupWindow         time.Duration
}

func LoadConfig() (*Config, error) {
	config := &Config{
		Owner: getEnvString("APPTRACK_OWNER", "default"),

		IMAPAddr:        getEnvString("IMAP_ADDR", "imap.gmail.com:993"),
		IMAPUsername:    getEnvString("IMAP_USERNAME", ""),
		IMAPPassword:    getEnvString("IMAP_PASSWORD", ""),
		IMAPFolder:      getEnvString("IMAP_FOLDER", "INBOX"),
		MailboxLookback: getEnvDuration("MAILBOX_LOOKBACK", 30*24*time.Hour),

		PollingInterval: getEnvDuration("POLLING_INTERVAL", 15*time.Minute),
		BatchSize:       getEnvInt("BATCH_SIZE", 50),

		NATSURL:         getEnvString("NATS_URL", "nats://localhost:4222"),
		NATSConnTimeout: getEnvDuration("NATS_CONN_TIMEOUT", 10*time.Second),

		ClickHouseDSN:          getEnvString("CLICKHOUSE_DSN", "localhost:9000"),
		ClickHouseMaxOpenConns: getEnvInt("CLICKHOUSE_MAX_OPEN_CONNS", 10),
		ClickHouseMaxIdleConns: getEnvInt("CLICKHOUSE_MAX_IDLE_CONNS", 5),
		ClickHouseConnMaxLife:  getEnvDuration("CLICKHOUSE_CONN_MAX_LIFE", time.Hour),
		ClickHouseUsername:     getEnvString("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword:     getEnvString("CLICKHOUSE_PASSWORD", ""),
		ClickHouseDatabase:     getEnvString("CLICKHOUSE_DATABASE", "apptrack"),

		RedisAddr:     getEnvString("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnvString("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 24*time.Hour),

		HTTPAddr: getEnvString("HTTP_ADDR", ":8080"),

		OTLPEndpoint: getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		MinTrainingExamples: getEnvInt("MIN_TRAINING_EXAMPLES", 10),
		TrainSplit:          getEnvFloat("TRAIN_SPLIT", 0.8),
		DedupWindow:         getEnvDuration("DEDUP_WINDOW", 24*time.Hour),
	}

	return config, nil
}

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
