// Command crmsyncd serves the record synchronization engine: the drain
// trigger, the conflict and rule APIs, queue stats and Prometheus metrics.
package main

import (
	"flag"
	"net/http"
	"os"

	"github.com/harborview/crmsync/api"
	"github.com/harborview/crmsync/config"
	conflictsql "github.com/harborview/crmsync/conflict/sqlmodel"
	"github.com/harborview/crmsync/external"
	"github.com/harborview/crmsync/kafka"
	"github.com/harborview/crmsync/kafka/awsmsk"
	"github.com/harborview/crmsync/metrics"
	recordsql "github.com/harborview/crmsync/record/sqlmodel"
	rulessql "github.com/harborview/crmsync/rules/sqlmodel"
	"github.com/harborview/crmsync/search"
	gosql "github.com/harborview/crmsync/sql"
	"github.com/harborview/crmsync/sync"
	queuesql "github.com/harborview/crmsync/syncqueue/sqlmodel"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	install := flag.Bool("install", false,
		"run the idempotent schema installs and exit")
	flag.Parse()

	if err := run(*install); err != nil {
		log.Error().Err(err).Msg("crmsyncd failed")
		os.Exit(1)
	}
}

func run(install bool) (err error) {
	db, err := gosql.NewPostgresConn(nil)
	if err != nil {
		return err
	}

	if install {
		return runInstall(db)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	client := external.NewClient(external.ClientConfig{
		BaseURL: cfg.ExternalURL,
		Path:    cfg.ExternalPath,
		Token:   cfg.ExternalToken,
		Timeout: cfg.ExternalTimeout,
	})

	var publisher sync.EventPublisher
	if cfg.KafkaEnabled() {
		publisher, err = newPublisher(cfg)
		if err != nil {
			return err
		}
		log.Info().Msgf("event publishing enabled, %d broker(s)",
			len(cfg.KafkaAddressList))
	}

	var indexer sync.Indexer
	if cfg.AlgoliaEnabled() {
		indexer, err = search.NewClient(search.Config{
			App:   cfg.AlgoliaApp,
			Key:   cfg.AlgoliaKey,
			Index: cfg.AlgoliaIndex,
		})
		if err != nil {
			return err
		}
		log.Info().Msgf("search indexing enabled, index %s", cfg.AlgoliaIndex)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	svc, err := sync.NewService(sync.ServiceConfig{
		Client:     client,
		Publisher:  publisher,
		Indexer:    indexer,
		Metrics:    m,
		Workers:    cfg.Workers,
		BatchSize:  cfg.BatchSize,
		StaleAfter: cfg.StaleAfter,
	})
	if err != nil {
		return err
	}

	server, err := api.NewServer(api.ServerConfig{
		DB:           db,
		Drainer:      svc,
		Publisher:    publisher,
		Indexer:      indexer,
		TriggerToken: cfg.TriggerToken,
		MetricsHandler: promhttp.HandlerFor(registry,
			promhttp.HandlerOpts{}),
	})
	if err != nil {
		return err
	}

	log.Info().Msgf("crmsyncd listening on %s", cfg.ListenAddr)

	return http.ListenAndServe(cfg.ListenAddr, server.Handler())
}

// newPublisher connects to the kafka cluster, with MSK IAM auth when a
// region is configured
func newPublisher(cfg *config.Config) (p *kafka.Publisher, err error) {
	connCfg := kafka.ConnectionConfig{
		AddressList: cfg.KafkaAddressList,
	}

	if cfg.KafkaMSKRegion != "" {
		connCfg.SASLMechanism, err = awsmsk.NewSASLMechanism(
			awsmsk.SASLMechanismConfig{Region: cfg.KafkaMSKRegion})
		if err != nil {
			return nil, err
		}
	} else {
		connCfg.NoTLS = true
	}

	conn, err := kafka.NewConn(connCfg)
	if err != nil {
		return nil, err
	}

	if err := conn.EnsureTopic(cfg.KafkaTopic); err != nil {
		return nil, err
	}

	return kafka.NewPublisher(conn, cfg.KafkaTopic), nil
}

// runInstall creates the engine's tables and indexes
func runInstall(db *gosql.Connection) (err error) {
	if err := recordsql.Install(db); err != nil {
		return err
	}
	if err := queuesql.Install(db); err != nil {
		return err
	}
	if err := rulessql.Install(db); err != nil {
		return err
	}
	if err := conflictsql.Install(db); err != nil {
		return err
	}

	log.Info().Msg("schema install complete")

	return nil
}
