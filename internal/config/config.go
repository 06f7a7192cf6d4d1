package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Encrypted transaction confirmation strategies.
const (
	StrategyNewBlock = "newblock"
	StrategyExecuted = "executed"
)

const (
	defaultLogLevel         = "info"
	defaultAlertQueueSize   = 100
	defaultHTTPTimeout      = 10 * time.Second
	defaultKafkaTopicAlerts = "fairyring-alerts"
)

type Config struct {
	WebsocketURL    string
	RPCURL          string
	SlackWebhookURL string

	LogLevel        string
	ConfirmStrategy string
	AlertQueueSize  int
	HTTPTimeout     time.Duration

	// Alerts are mirrored to Kafka when a broker is set
	KafkaBroker      string
	KafkaTopicAlerts string

	// Metrics server is started when a port is set
	MetricsPort string
}

func LoadConfig() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Info("No .env file found, using process environment")
	}

	queueSize, err := strconv.Atoi(os.Getenv("alert_queue_size"))
	if err != nil || queueSize <= 0 {
		queueSize = defaultAlertQueueSize
	}

	httpTimeout, err := time.ParseDuration(os.Getenv("http_timeout"))
	if err != nil || httpTimeout <= 0 {
		httpTimeout = defaultHTTPTimeout
	}

	logLevel := os.Getenv("log_level")
	if logLevel == "" {
		logLevel = defaultLogLevel
	}

	strategy := os.Getenv("confirm_strategy")
	if strategy == "" {
		strategy = StrategyNewBlock
	}

	kafkaTopic := os.Getenv("kafka_topic_alerts")
	if kafkaTopic == "" {
		kafkaTopic = defaultKafkaTopicAlerts
	}

	return &Config{
		WebsocketURL:    os.Getenv("websocket_url"),
		RPCURL:          os.Getenv("rpc_url"),
		SlackWebhookURL: os.Getenv("slack_webhook_url"),

		LogLevel:        logLevel,
		ConfirmStrategy: strategy,
		AlertQueueSize:  queueSize,
		HTTPTimeout:     httpTimeout,

		KafkaBroker:      os.Getenv("kafka_broker"),
		KafkaTopicAlerts: kafkaTopic,

		MetricsPort: os.Getenv("metrics_port"),
	}
}

// Validate checks the required endpoints before any connection is attempted.
func (cfg *Config) Validate() error {
	if err := checkURL("websocket_url", cfg.WebsocketURL, "ws", "wss"); err != nil {
		return err
	}
	if err := checkURL("rpc_url", cfg.RPCURL, "http", "https"); err != nil {
		return err
	}
	if err := checkURL("slack_webhook_url", cfg.SlackWebhookURL, "http", "https"); err != nil {
		return err
	}
	if cfg.ConfirmStrategy != StrategyNewBlock && cfg.ConfirmStrategy != StrategyExecuted {
		return fmt.Errorf("invalid confirm_strategy: %s. Possible values: %s, %s",
			cfg.ConfirmStrategy, StrategyNewBlock, StrategyExecuted)
	}
	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

func checkURL(name, raw string, schemes ...string) error {
	if raw == "" {
		return errors.New("empty " + name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if u.Host == "" {
		return fmt.Errorf("%s: missing host in %q", name, raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%s: unsupported scheme %q, want one of %v", name, u.Scheme, schemes)
}
