//go:build wireinject
// +build wireinject

package di

import (
	"CoinFolio/pkg/config"
	"CoinFolio/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideL2Cache,
		ProvideClickHouseClient,
		ProvideTickArchive,
		ProvideKafkaProducer,
		ProvideTransactionPublisher,
		ProvideMarketDataFetcher,

		// Core domain
		ProvidePriceCache,
		ProvideSeriesLoader,
		ProvideLedgerStore,

		// Use cases
		ProvidePortfolioUseCase,
		ProvideSummaryUseCase,
		ProvideMACDUseCase,
		ProvideRealtimeUseCase,

		// HTTP surface
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
