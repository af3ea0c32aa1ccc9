package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"CoinFolio/internal/domain/repository"
	"CoinFolio/internal/handler/api"
	"CoinFolio/internal/ledger"
	"CoinFolio/internal/pricecache"
	internalrepo "CoinFolio/internal/repository"
	"CoinFolio/internal/service/coinbase"
	"CoinFolio/internal/service/ratelimit"
	"CoinFolio/internal/usecase"
	pkgcache "CoinFolio/pkg/cache"
	pkgch "CoinFolio/pkg/clickhouse"
	"CoinFolio/pkg/config"
	xhttp "CoinFolio/pkg/http"
	pkgkafka "CoinFolio/pkg/kafka"
	applogger "CoinFolio/pkg/logger"
	"CoinFolio/pkg/metrics"
	"CoinFolio/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideL2Cache creates the shared price series cache when Redis is
// enabled: a memory layer in front of Redis, so repeat reads on one
// instance skip the network round trip.
func ProvideL2Cache(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr: %w", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port: %w", err)
	}

	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(rc), nil
}

// ProvideClickHouseClient creates a ClickHouse client when the archive is enabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.Archive.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.Archive.Host),
		pkgch.WithPort(cfg.Archive.Port),
		pkgch.WithDatabase(cfg.Archive.Database),
		pkgch.WithCredentials(cfg.Archive.User, cfg.Archive.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.Archive.UseHTTP),
		pkgch.WithAsyncInsert(cfg.Archive.AsyncInsert, cfg.Archive.WaitForAsync),
		pkgch.WithTimeouts(cfg.Archive.DialTimeout, cfg.Archive.ReadTimeout, cfg.Archive.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.Archive.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideTickArchive creates and initializes the ClickHouse tick archive.
func ProvideTickArchive(chClient *pkgch.Client, logger *applogger.Logger) (repository.TickArchive, error) {
	if chClient == nil {
		return nil, nil
	}
	archive := internalrepo.NewCHTickArchive(chClient)
	archive.SetLogger(logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := archive.Init(ctx); err != nil {
		_ = chClient.Close()
		return nil, fmt.Errorf("archive schema: %w", err)
	}
	return archive, nil
}

// ProvideKafkaProducer creates a Kafka producer when events are enabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Events.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Events.Brokers),
		pkgkafka.WithCompression(cfg.Events.Compression),
		pkgkafka.WithRequiredAcks(cfg.Events.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Events.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Events.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Events.Producer.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Events.Producer.WriteTimeout, cfg.Events.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Events.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Events.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideTransactionPublisher creates the Kafka transaction publisher.
func ProvideTransactionPublisher(producer *pkgkafka.Producer, cfg *config.Config, logger *applogger.Logger) repository.TransactionPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaTransactionPublisher(producer, cfg.Events.Topic, logger)
}

// ProvideMarketDataFetcher creates the Coinbase candles client.
func ProvideMarketDataFetcher(cfg *config.Config, logger *applogger.Logger) repository.MarketDataFetcher {
	httpClient := xhttp.NewClient(xhttp.WithTimeout(cfg.Coinbase.RequestTimeout))
	return coinbase.New(httpClient, ratelimit.New(), logger,
		coinbase.WithBaseURL(cfg.Coinbase.BaseURL),
		coinbase.WithQuoteCurrency(cfg.Coinbase.QuoteCurrency),
		coinbase.WithRate(cfg.Coinbase.RequestBurst, cfg.Coinbase.RequestsPerSec),
	)
}

// ProvidePriceCache assembles the price cache with its optional layers.
func ProvidePriceCache(
	fetcher repository.MarketDataFetcher,
	m repository.Metrics,
	archive repository.TickArchive,
	l2 pkgcache.Service,
	cfg *config.Config,
	logger *applogger.Logger,
) *pricecache.Cache {
	opts := []pricecache.Option{
		pricecache.WithTTL(cfg.PriceCache.TTL),
		pricecache.WithFetchTimeout(cfg.PriceCache.FetchTimeout),
		pricecache.WithLogger(logger),
	}
	if archive != nil {
		opts = append(opts, pricecache.WithArchive(archive))
	}
	if l2 != nil {
		opts = append(opts, pricecache.WithL2(l2))
	}
	return pricecache.New(fetcher, m, opts...)
}

// ProvideSeriesLoader creates the bounded-concurrency series loader.
func ProvideSeriesLoader(cache *pricecache.Cache, cfg *config.Config, logger *applogger.Logger) *usecase.SeriesLoader {
	return usecase.NewSeriesLoader(cache, cfg.PriceCache.FetchWorkers, logger)
}

// ProvideLedgerStore creates the per-user ledger store.
func ProvideLedgerStore() *ledger.Store {
	return ledger.NewStore()
}

// ProvidePortfolioUseCase creates the ledger and valuation use case.
func ProvidePortfolioUseCase(
	ledgers *ledger.Store,
	loader *usecase.SeriesLoader,
	publisher repository.TransactionPublisher,
	m repository.Metrics,
	logger *applogger.Logger,
) *usecase.PortfolioUseCase {
	return usecase.NewPortfolioUseCase(ledgers, loader, publisher, m, logger)
}

// ProvideSummaryUseCase creates the weekly summary use case.
func ProvideSummaryUseCase(ledgers *ledger.Store, loader *usecase.SeriesLoader) *usecase.SummaryUseCase {
	return usecase.NewSummaryUseCase(ledgers, loader)
}

// ProvideMACDUseCase creates the MACD analysis use case.
func ProvideMACDUseCase(loader *usecase.SeriesLoader, cfg *config.Config) *usecase.MACDUseCase {
	return usecase.NewMACDUseCase(loader, cfg.Indicators.LookbackDays)
}

// ProvideRealtimeUseCase creates the live quote use case when the feed is enabled.
func ProvideRealtimeUseCase(cfg *config.Config, m repository.Metrics, logger *applogger.Logger) *usecase.RealtimeUseCase {
	if !cfg.Coinbase.LiveFeedEnabled {
		return nil
	}
	feed := coinbase.NewStream(
		cfg.Coinbase.FeedURL,
		cfg.Coinbase.QuoteCurrency,
		cfg.Coinbase.ReconnectDelay,
		cfg.Coinbase.PingInterval,
		logger,
	)
	return usecase.NewRealtimeUseCase(feed, m)
}

// archiveChecker adapts the tick archive to the handler's health surface.
type archiveChecker struct {
	archive repository.TickArchive
}

func (c archiveChecker) Name() string { return "archive" }

func (c archiveChecker) Health() error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	return c.archive.Health(ctx)
}

// ProvideHandler creates the portfolio HTTP handler.
func ProvideHandler(
	logger *applogger.Logger,
	portfolio *usecase.PortfolioUseCase,
	summary *usecase.SummaryUseCase,
	macd *usecase.MACDUseCase,
	realtime *usecase.RealtimeUseCase,
	archive repository.TickArchive,
	cfg *config.Config,
) xhttp.Handler {
	var checkers []api.HealthChecker
	if archive != nil {
		checkers = append(checkers, archiveChecker{archive: archive})
	}
	return api.NewPortfolioHandler(logger, portfolio, summary, macd, realtime, cfg.Auth.Secret, checkers...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	logger *applogger.Logger,
	handler xhttp.Handler,
	realtime *usecase.RealtimeUseCase,
	archive repository.TickArchive,
	publisher repository.TransactionPublisher,
) *server.App {
	return server.New(cfg, logger, handler, realtime, archive, publisher)
}
