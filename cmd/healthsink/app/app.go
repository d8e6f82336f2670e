package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/healthsink/healthsink/internal/server"
	"github.com/healthsink/healthsink/internal/storage"
)

// Run wires the configured stores, the write pool and the HTTP listener
// together and serves until ctx is cancelled. Shutdown is ordered: the
// listener stops accepting first, then the pool drains whatever is queued,
// then the stores close.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	stores, err := createStores(config, logger)
	if err != nil {
		return fmt.Errorf("failed to create stores: %w", err)
	}
	defer closeStores(stores, logger)

	writer := server.NewWriter(stores, logger,
		server.WithWorkers(config.Writer.Workers),
		server.WithQueueSize(config.Writer.QueueSize),
		server.WithWriteTimeout(config.Writer.WriteTimeout.Std()))

	srv := &http.Server{
		Addr:         config.Server.ListenAddr,
		Handler:      server.NewRouter(createHandler(config, writer, logger)),
		ReadTimeout:  config.Server.ReadTimeout.Std(),
		WriteTimeout: config.Server.WriteTimeout.Std(),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("Listening on %s, point the exporter at /upload", config.Server.ListenAddr))

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err = <-serveErr:
		writer.Stop()
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Server.ShutdownTimeout.Std())
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shut down listener", slog.Any("error", err))
	}

	writer.Stop()
	return nil
}

func createStores(config *Config, logger *slog.Logger) ([]storage.Store, error) {
	options := []storage.Option{
		storage.WithLogger(logger),
		storage.WithMaxBatchSize(config.Storage.MaxBatchSize),
	}

	var stores []storage.Store
	if c := config.Storage.ClickHouse; c != nil {
		store, err := storage.NewClickHouseStore(storage.ClickHouseConfig{
			DSN:          c.DSN,
			Database:     c.Database,
			MetricsTable: c.MetricsTable,
			CreateTables: c.CreateTables,
		}, options...)
		if err != nil {
			return nil, fmt.Errorf("failed to create clickhouse store: %w", err)
		}
		stores = append(stores, store)
	}
	if c := config.Storage.Sqlite; c != nil {
		store, err := storage.NewSqliteStore(c.Path, options...)
		if err != nil {
			closeStores(stores, logger)
			return nil, fmt.Errorf("failed to create sqlite store: %w", err)
		}
		stores = append(stores, store)
	}

	return stores, nil
}

func createHandler(config *Config, writer *server.Writer, logger *slog.Logger) *server.Handler {
	var options []func(*server.Handler)
	if config.Server.DumpDirectory != "" {
		options = append(options, server.WithDumpDir(config.Server.DumpDirectory))
	}

	return server.NewHandler(writer, logger, options...)
}

func closeStores(stores []storage.Store, logger *slog.Logger) {
	for _, store := range stores {
		if err := store.Close(); err != nil {
			logger.Error("failed to close store", slog.Any("error", err))
		}
	}
}
