package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chorddht/internal/bootstrap"
	"chorddht/internal/config"
	"chorddht/internal/logger"
	zapfactory "chorddht/internal/logger/zap"
	"chorddht/internal/node"
	"chorddht/internal/ring"
	"chorddht/internal/rpc"
	"chorddht/internal/server"
	"chorddht/internal/store"
	"chorddht/internal/telemetry"
	"chorddht/internal/telemetry/lookuptrace"

	"google.golang.org/grpc"
)

var defaultConfigPath = "config/node/config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %q: %v", *configPath, err)
	}
	cfg.ApplyEnvOverrides()
	if err := cfg.ValidateConfig(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	var lgr logger.Logger
	if cfg.Logger.Active {
		zapLog, err := zapfactory.New(cfg.Logger)
		if err != nil {
			log.Fatalf("failed to initialize logger: %v", err)
		}
		defer func() { _ = zapLog.Sync() }()
		lgr = zapfactory.NewZapAdapter(zapLog)
	} else {
		lgr = &logger.NopLogger{}
	}
	cfg.LogConfig(lgr)

	lis, advertised, err := config.Listen(cfg.DHT.Mode, cfg.Node.Bind, cfg.Node.Host, cfg.Node.Port)
	if err != nil {
		lgr.Error("failed to initialize listener", logger.F("err", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = lis.Close() }()
	addr := lis.Addr().String()
	lgr.Debug("created listener", logger.F("addr", addr))

	space := ring.NewSpace(uint(cfg.DHT.IDBits))

	var id ring.ID
	if cfg.Node.Id == "" {
		id = space.Hash(addr)
	} else {
		id, err = space.FromHex(cfg.Node.Id)
		if err != nil {
			lgr.Error("invalid node ID in configuration", logger.F("err", err.Error()))
			os.Exit(1)
		}
	}
	self := ring.NodeInfo{ID: id, Address: advertised}
	lgr = lgr.Named("node").With(logger.FNode("self", self))
	lgr.Info("new node initializing")

	shutdown := telemetry.InitTracer(cfg.Telemetry, "chorddht-node", id)
	defer func() { _ = shutdown(context.Background()) }()

	var persistPath string
	if cfg.DHT.Storage.Path != "" {
		persistPath = cfg.DHT.Storage.Path
	}
	st := store.NewMemoryStore(lgr.Named("store"), space)
	if persistPath != "" {
		if entries, err := store.Load(persistPath); err != nil {
			lgr.Warn("failed to load persisted store", logger.F("err", err.Error()))
		} else {
			st.Ingest(entries)
			lgr.Debug("loaded persisted store", logger.F("entries", len(entries)))
		}
	}

	transport := rpc.NewGRPCTransport(space, lgr.Named("transport"))
	defer func() { _ = transport.Close() }()

	n := node.New(
		self,
		space,
		st,
		transport,
		cfg.DHT.Replication.Factor,
		cfg.DHT.FaultTolerance.SuccessorListSize,
		node.WithLogger(lgr),
	)
	lgr.Debug("initialized node")

	var grpcOpts []grpc.ServerOption
	if cfg.Telemetry.Tracing.Enabled {
		grpcOpts = append(grpcOpts, grpc.ChainUnaryInterceptor(lookuptrace.ServerInterceptor()))
		lgr.Debug("gRPC lookup tracing enabled")
	}

	s, err := server.New(lis, n, grpcOpts, server.WithLogger(lgr.Named("server")))
	if err != nil {
		lgr.Error("failed to initialize gRPC server", logger.F("err", err.Error()))
		os.Exit(1)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- s.Start() }()
	lgr.Debug("server started")

	var disco bootstrap.Bootstrap
	switch cfg.DHT.Bootstrap.Mode {
	case "dns":
		disco = bootstrap.NewDNSBootstrap(cfg.DHT.Bootstrap.DNSName, cfg.DHT.Bootstrap.SRV, cfg.DHT.Bootstrap.Port)
	case "static":
		disco = bootstrap.NewStaticBootstrap(cfg.DHT.Bootstrap.Peers)
	case "init":
		disco = bootstrap.NewStaticBootstrap(nil)
	default:
		lgr.Error("unsupported bootstrap mode", logger.F("mode", cfg.DHT.Bootstrap.Mode))
		s.Stop()
		os.Exit(1)
	}

	var register bootstrap.Bootstrap = disco
	if cfg.DHT.Bootstrap.Register.Enabled {
		r53, err := bootstrap.NewRoute53Bootstrap(cfg.DHT.Bootstrap.Register, space)
		if err != nil {
			lgr.Error("failed to initialize Route53 registration", logger.F("err", err.Error()))
			s.Stop()
			os.Exit(1)
		}
		register = r53
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	peers, err := disco.Discover(ctx)
	cancel()
	if err != nil {
		lgr.Error("failed to resolve bootstrap peers", logger.F("err", err.Error()))
		s.Stop()
		os.Exit(1)
	}
	lgr.Info("resolved bootstrap peers", logger.F("peers", peers))

	if len(peers) == 0 {
		n.Create()
		lgr.Debug("new ring created")
	} else {
		joinCtx, joinCancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := n.Join(joinCtx, peers[0])
		joinCancel()
		if err != nil {
			lgr.Error("failed to join ring", logger.F("err", err.Error()))
			s.Stop()
			os.Exit(1)
		}
		lgr.Debug("joined ring", logger.F("via", peers[0]))
	}

	ctx, cancel = context.WithTimeout(context.Background(), 10*time.Second)
	if err := register.Register(ctx, self); err != nil {
		lgr.Warn("failed to register node", logger.F("err", err.Error()))
	} else {
		lgr.Info("node registered")
	}
	cancel()

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	scheduler := n.StartStabilizer(cfg.DHT.FaultTolerance.StabilizationInterval)
	lgr.Debug("stabilization scheduler started")

	var checkpointStop chan struct{}
	var checkpointDone chan struct{}
	if persistPath != "" {
		checkpointStop = make(chan struct{})
		checkpointDone = make(chan struct{})
		go runCheckpointLoop(st, persistPath, cfg.DHT.Storage.FixInterval, lgr.Named("checkpoint"), checkpointStop, checkpointDone)
		lgr.Debug("periodic store checkpoint started", logger.F("interval", cfg.DHT.Storage.FixInterval.String()))
	}

	select {
	case <-runCtx.Done():
		lgr.Info("shutdown signal received, stopping gracefully")
		scheduler.Stop()
		if checkpointStop != nil {
			close(checkpointStop)
			<-checkpointDone
		}
		n.Leave()

		deregCtx, deregCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := register.Deregister(deregCtx, self); err != nil {
			lgr.Warn("failed to deregister node", logger.F("err", err.Error()))
		}
		deregCancel()

		if persistPath != "" {
			if err := store.Persist(persistPath, st.All()); err != nil {
				lgr.Warn("failed to persist store", logger.F("err", err.Error()))
			}
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
			lgr.Info("server stopped gracefully")
		case <-shutdownCtx.Done():
			lgr.Warn("graceful stop timed out, forcing shutdown")
			s.Stop()
		}
		shutdownCancel()

	case err := <-serveErr:
		lgr.Error("gRPC server terminated unexpectedly", logger.F("err", err.Error()))
		stop()
		scheduler.Stop()
		os.Exit(1)
	}
}

// runCheckpointLoop persists the store to path on a fixed interval, the
// periodic half of the external persistence contract: load at startup,
// persist on mutation or periodic checkpoint. Shutdown handles the final
// persist itself, so this loop only needs to stop cleanly on request.
func runCheckpointLoop(st *store.MemoryStore, path string, interval time.Duration, lgr logger.Logger, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := store.Persist(path, st.All()); err != nil {
				lgr.Warn("periodic checkpoint failed", logger.F("err", err.Error()))
			}
		}
	}
}
