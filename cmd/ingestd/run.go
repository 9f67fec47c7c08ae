package main

import (
	"context"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akumuli/ingestd/blockstore"
	"github.com/akumuli/ingestd/ingest"
	"github.com/akumuli/ingestd/logger"
	"github.com/akumuli/ingestd/metastore"
	"github.com/akumuli/ingestd/pkg/lifecycle"
)

var configPath string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "run the ingestion daemon",
	RunE:  runE,
}

func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "path to a TOML configuration file")
	rootCmd.AddCommand(runCmd)
}

func runE(cmd *cobra.Command, args []string) error {
	config := NewConfig()
	if configPath != "" {
		if err := config.FromTomlFile(configPath); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	log := logger.NewFromConfig(config.Logging, os.Stdout)
	defer log.Sync()

	store := blockstore.NewBoltStore(config.BlockStorePath, int(config.WriteLimit), int(config.WriteBurst))
	store.WithLogger(log.With(zap.String("service", "blockstore")))

	meta := metastore.NewBoltStore(config.MetaStorePath)
	meta.WithLogger(log.With(zap.String("service", "metastore")))

	var opener lifecycle.Opener
	opener.Open(store)
	opener.Open(meta)
	if err := opener.Done(); err != nil {
		return fmt.Errorf("open stores: %w", err)
	}

	registry := ingest.NewRegistry(store, meta, config.FlushEvery, log.With(zap.String("service", "registry")))
	if err := registry.Open(); err != nil {
		store.Close()
		meta.Close()
		return fmt.Errorf("open registry: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())
	reg.MustRegister(registry.PrometheusCollectors()...)

	ctx, cancel := context.WithCancel(context.Background())
	syncLoopDone := make(chan struct{})
	go runSyncLoop(ctx, registry, time.Duration(config.SyncInterval), log, syncLoopDone)

	mux := nethttp.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	httpServer := &nethttp.Server{Addr: config.MetricsBindAddress, Handler: mux}

	httpErrc := make(chan error, 1)
	go func() {
		log.Info("metrics listening", zap.String("addr", config.MetricsBindAddress))
		httpErrc <- httpServer.ListenAndServe()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigs:
		log.Info("shutdown requested")
	case err := <-httpErrc:
		if err != nil && err != nethttp.ErrServerClosed {
			log.Error("metrics server failed", zap.Error(err))
		}
	}

	cancel()
	<-syncLoopDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)

	var closer lifecycle.Closer
	closer.Close(registry)
	closer.Close(store)
	closer.Close(meta)
	return closer.Done()
}

// runSyncLoop drains the registry's rescue-point buffer into the
// metadata store until ctx is cancelled.
func runSyncLoop(ctx context.Context, registry *ingest.Registry, interval time.Duration, log *zap.Logger, done chan<- struct{}) {
	defer close(done)

	for {
		waitCtx, cancel := context.WithTimeout(ctx, interval)
		status := registry.WaitForSyncRequest(waitCtx)
		cancel()

		if ctx.Err() != nil {
			return
		}

		switch status {
		case ingest.StatusRetry, ingest.StatusTimeout:
			continue
		case ingest.StatusOK:
			if err := registry.SyncWithMetadataStorage(); err != nil {
				log.Error("metadata sync failed", zap.Error(err))
			}
		}
	}
}
