// Package config loads the daemon configuration from the environment,
// with optional .env file support for local development.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/harborview/crmsync/e"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	ECodeCG0101 = e.CodeCG01 + "01"
)

// Config is the full daemon configuration. DB connection parameters are
// read separately through sql.GetConnParamFromENV.
type Config struct {
	// API
	ListenAddr   string
	TriggerToken string

	// External record service
	ExternalURL     string
	ExternalPath    string
	ExternalToken   string
	ExternalTimeout time.Duration

	// Drain tuning
	Workers    int
	BatchSize  uint64
	StaleAfter time.Duration

	// Kafka events (optional)
	KafkaAddressList []string
	KafkaTopic       string
	KafkaMSKRegion   string

	// Algolia search (optional)
	AlgoliaApp   string
	AlgoliaKey   string
	AlgoliaIndex string
}

// Load reads the configuration from the environment. A .env file in the
// working directory is merged in first when present.
func Load() (cfg *Config, err error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, e.W(err, ECodeCG0101)
		}
		log.Info().Msg("no .env file found, using environment only")
	}

	cfg = &Config{
		ListenAddr:       getEnv("LISTEN_ADDR", ":8080"),
		TriggerToken:     os.Getenv("SYNC_TRIGGER_TOKEN"),
		ExternalURL:      os.Getenv("EXTERNAL_SERVICE_URL"),
		ExternalPath:     os.Getenv("EXTERNAL_SERVICE_PATH"),
		ExternalToken:    os.Getenv("EXTERNAL_SERVICE_TOKEN"),
		ExternalTimeout:  getEnvDuration("EXTERNAL_SERVICE_TIMEOUT", 30*time.Second),
		Workers:          getEnvInt("SYNC_WORKERS", 0),
		BatchSize:        uint64(getEnvInt("SYNC_BATCH_SIZE", 0)),
		StaleAfter:       getEnvDuration("SYNC_STALE_AFTER", 0),
		KafkaTopic:       os.Getenv("KAFKA_TOPIC"),
		KafkaMSKRegion:   os.Getenv("KAFKA_MSK_REGION"),
		AlgoliaApp:       os.Getenv("ALGOLIA_APP"),
		AlgoliaKey:       os.Getenv("ALGOLIA_KEY"),
		AlgoliaIndex:     os.Getenv("ALGOLIA_INDEX"),
		KafkaAddressList: splitList(os.Getenv("KAFKA_ADDRESS_LIST")),
	}

	if cfg.TriggerToken == "" {
		return nil, e.N(ECodeCG0101, "SYNC_TRIGGER_TOKEN not specified")
	}
	if cfg.ExternalURL == "" {
		return nil, e.N(ECodeCG0101, "EXTERNAL_SERVICE_URL not specified")
	}

	return cfg, nil
}

// KafkaEnabled reports whether event publishing is configured
func (cfg *Config) KafkaEnabled() bool {
	return len(cfg.KafkaAddressList) > 0
}

// AlgoliaEnabled reports whether search indexing is configured
func (cfg *Config) AlgoliaEnabled() bool {
	return cfg.AlgoliaApp != "" && cfg.AlgoliaKey != "" && cfg.AlgoliaIndex != ""
}

func getEnv(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func getEnvInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		log.Warn().Msgf("invalid %s value %q, using default", name, v)
		return def
	}
	return n
}

func getEnvDuration(name string, def time.Duration) time.Duration {
	v := os.Getenv(name)
	if v == "" {
		return def
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		log.Warn().Msgf("invalid %s value %q, using default", name, v)
		return def
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}

	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
