// Command sequencer runs the DA sequencer role (spec.md §4.3, C4): it
// accepts client transaction writes over the gRPC-shaped DA surface
// (spec.md §6), batches them through the durable mempool, and publishes
// built blocks to the DA store under the split/bin-pack/retry grouping
// pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/movementlabsxyz/full-node/config"
	"github.com/movementlabsxyz/full-node/da"
	"github.com/movementlabsxyz/full-node/mempool"
)

func main() {
	configPath := flag.String("config", "sequencer.toml", "path to the structured TOML config file")
	listenAddr := flag.String("listen", ":9100", "address the DA write surface listens on")
	flag.Parse()

	logger := hclog.New(&hclog.LoggerOptions{
		Name:  "sequencer",
		Level: hclog.LevelFromString(envOr("LOG_LEVEL", "info")),
	})

	if err := run(logger, *configPath, *listenAddr); err != nil {
		logger.Error("sequencer exited", "error", err)
		os.Exit(1)
	}
}

func run(logger hclog.Logger, configPath, listenAddr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	mp, err := mempool.OpenBolt(cfg.Mempool.StorePath, cfg.BlockBuilding.MaxBlockSizeBytes, cfg.BlockBuilding.BuildTimeMs)
	if err != nil {
		return fmt.Errorf("open mempool: %w", err)
	}
	defer mp.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := da.DialGRPC(ctx, cfg.DA.ServiceAddress)
	if err != nil {
		return fmt.Errorf("dial da store: %w", err)
	}
	defer store.Close()

	namespace := da.Namespace{}
	copy(namespace[:], cfg.DA.Namespace)

	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddr, err)
	}

	grpcServer := grpc.NewServer()
	da.Register(grpcServer, da.NewServer(logger, mp, store, namespace))

	sequencer := da.NewSequencer(logger, mp, store, namespace)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sequencer.Run(ctx) })
	g.Go(func() error {
		logger.Info("da write surface listening", "addr", listenAddr)
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-ctx.Done()
		grpcServer.GracefulStop()
		return nil
	})
	return g.Wait()
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
