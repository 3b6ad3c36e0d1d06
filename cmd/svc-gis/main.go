// main.go
// Copyright(c) 2022-2026 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// cmd/svc-gis is the service's CLI entrypoint: config/log bootstrap, pool
// construction, migration run, gRPC listener, and graceful shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/aerogrid/svc-gis/internal/config"
	"github.com/aerogrid/svc-gis/internal/deconflict"
	"github.com/aerogrid/svc-gis/internal/health"
	"github.com/aerogrid/svc-gis/internal/ingest"
	"github.com/aerogrid/svc-gis/internal/logging"
	"github.com/aerogrid/svc-gis/internal/queue"
	"github.com/aerogrid/svc-gis/internal/routing"
	"github.com/aerogrid/svc-gis/internal/rpcapi"
	"github.com/aerogrid/svc-gis/internal/store"
	"github.com/aerogrid/svc-gis/internal/store/migrations"
)

var configFile = flag.String("config", "", "path to a YAML configuration file")

// healthSnapshotInterval is how often the process resource snapshot
// (internal/health.Checker.LogSnapshot) is logged at debug level.
const healthSnapshotInterval = 30 * time.Second

func main() {
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "svc-gis: %v\n", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LogLevel, cfg.LogDir)

	if cfg.RequiresTLS() && (cfg.DBCACert == "" || cfg.DBClientCert == "" || cfg.DBClientKey == "") {
		log.Errorf("svc-gis: db_ca_cert/db_client_cert/db_client_key are mandatory in production")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Postgres.ConnString())
	if err != nil {
		log.Errorf("svc-gis: connect to postgres: %v", err)
		os.Exit(1)
	}
	defer pool.Close()

	sqlDB, err := migrations.OpenStdlib(cfg.Postgres.ConnString())
	if err != nil {
		log.Errorf("svc-gis: open migration connection: %v", err)
		os.Exit(1)
	}
	if err := migrations.Up(sqlDB); err != nil {
		log.Errorf("svc-gis: run migrations: %v", err)
		os.Exit(1)
	}
	sqlDB.Close()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Errorf("svc-gis: parse redis.url: %v", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	spatialStore := store.New(pool)
	q := queue.New(redisClient, cfg.Ingest.Folder)
	checker := health.New(spatialStore, q, log)
	deconflictEngine := deconflict.New(spatialStore)
	routingEngine := routing.New(spatialStore, deconflictEngine)
	svc := rpcapi.New(spatialStore, deconflictEngine, routingEngine, checker)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.DockerPortGRPC))
	if err != nil {
		log.Errorf("svc-gis: listen on %d: %v", cfg.DockerPortGRPC, err)
		os.Exit(1)
	}

	grpcServer := grpc.NewServer()
	rpcapi.Register(grpcServer, svc)

	pipeline := ingest.New(q, spatialStore, log, cfg.Ingest.Cadence)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return pipeline.Run(gctx) })
	g.Go(func() error {
		log.Infof("svc-gis: listening on :%d", cfg.DockerPortGRPC)
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		grpcServer.GracefulStop()
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(healthSnapshotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				checker.LogSnapshot()
			}
		}
	})

	if err := g.Wait(); err != nil {
		log.Errorf("svc-gis: %v", err)
		os.Exit(1)
	}
}
