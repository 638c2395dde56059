// Command xdao-rcfd serves a canonical-form store over the CAS gRPC service.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"

	"xdao.co/rcf/config"
	"xdao.co/rcf/storage/grpccas"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, errOut io.Writer) int {
	fs := flag.NewFlagSet("xdao-rcfd", flag.ContinueOnError)
	fs.SetOutput(errOut)
	cfgPath := fs.String("config", "", "YAML config file (defaults apply when empty)")
	listen := fs.String("listen", "", "listen address (overrides server.listen)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	if *listen != "" {
		cfg.Server.Listen = *listen
	}
	log, err := cfg.Log.Logger(errOut)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	srv, closeFn, err := newServer(cfg, log, reg)
	if err != nil {
		log.Error().Err(err).Msg("open store")
		return 2
	}
	defer closeFn()

	lis, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		log.Error().Err(err).Msg("listen")
		return 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	adminDone := make(chan error, 1)
	if cfg.Server.AdminListen != "" {
		alis, err := net.Listen("tcp", cfg.Server.AdminListen)
		if err != nil {
			_ = lis.Close()
			log.Error().Err(err).Msg("admin listen")
			return 1
		}
		go func() {
			err := serveAdmin(ctx, newAdminRouter(reg), alis, log)
			if err != nil {
				cancel()
			}
			adminDone <- err
		}()
	} else {
		adminDone <- nil
	}

	code := 0
	if err := serve(ctx, srv, lis, log); err != nil {
		log.Error().Err(err).Msg("serve")
		code = 1
	}
	cancel()
	if err := <-adminDone; err != nil {
		log.Error().Err(err).Msg("admin")
		code = 1
	}
	return code
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default()
	}
	return config.Load(path)
}

// newServer builds the gRPC server described by cfg, registering its metrics
// with reg. The returned func closes the store backends.
func newServer(cfg *config.Config, log zerolog.Logger, reg prometheus.Registerer) (*grpc.Server, func() error, error) {
	canon, err := cfg.Canonicalizer()
	if err != nil {
		return nil, nil, err
	}
	hash := uint64(canon.Options.Algorithm)
	cas, closeFn, err := cfg.Store.Open(hash)
	if err != nil {
		return nil, nil, err
	}

	metrics := grpccas.NewMetrics(reg)
	opts := []grpc.ServerOption{grpc.ChainUnaryInterceptor(
		grpccas.LoggingInterceptor(log),
		metrics.Interceptor(),
	)}
	if cfg.Server.MaxMsgBytes > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(cfg.Server.MaxMsgBytes), grpc.MaxSendMsgSize(cfg.Server.MaxMsgBytes))
	}
	s := grpc.NewServer(opts...)
	grpccas.RegisterCASServer(s, &grpccas.Server{
		CAS:              cas,
		Hash:             hash,
		RequireCanonical: cfg.Server.RequireCanonical,
		Canonicalizer:    canon,
		Log:              log,
		Metrics:          metrics,
	})

	backends := zerolog.Arr()
	for _, b := range cfg.Store.Backends {
		backends.Str(b.Kind)
	}
	log.Info().
		Str("alg", canon.Options.Algorithm.String()).
		Bool("require_canonical", cfg.Server.RequireCanonical).
		Array("backends", backends).
		Str("write_policy", cfg.Store.WritePolicy).
		Msg("store opened")
	return s, closeFn, nil
}

// serve runs s on lis until ctx is done, then stops gracefully.
func serve(ctx context.Context, s *grpc.Server, lis net.Listener, log zerolog.Logger) error {
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("listen", lis.Addr().String()).Msg("xdao-rcfd listening")
		errc <- s.Serve(lis)
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		s.GracefulStop()
		return <-errc
	}
}
