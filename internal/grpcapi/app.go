package grpcapi

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// App wraps the gRPC server with its health service.
type App struct {
	log        *slog.Logger
	gRPCServer *grpc.Server
	health     *health.Server
	port       string
}

// New creates a gRPC server serving the catalog of source on port.
func New(log *slog.Logger, source CatalogSource, port string) *App {
	if log == nil {
		log = slog.Default()
	}

	gRPCServer := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(log)))
	RegisterCatalogServer(gRPCServer, NewCatalogServer(source))

	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(gRPCServer, hs)

	reflection.Register(gRPCServer)

	return &App{
		log:        log,
		gRPCServer: gRPCServer,
		health:     hs,
		port:       port,
	}
}

// Run listens on the configured port and serves until Stop.
func (a *App) Run() error {
	const op = "grpcapi.Run"

	l, err := net.Listen("tcp", ":"+a.port)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return a.Serve(l)
}

// Serve serves on an existing listener.
func (a *App) Serve(l net.Listener) error {
	const op = "grpcapi.Serve"

	a.log.Info("gRPC server is running", slog.String("addr", l.Addr().String()))
	if err := a.gRPCServer.Serve(l); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Stop marks the services as not serving and drains in-flight calls.
func (a *App) Stop() {
	a.log.Info("Stopping gRPC server", slog.String("port", a.port))
	a.health.Shutdown()
	a.gRPCServer.GracefulStop()
}

func loggingInterceptor(log *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			log.Warn("gRPC call failed", "method", info.FullMethod, "duration", time.Since(start), "error", err)
			return resp, err
		}
		log.Debug("gRPC call", "method", info.FullMethod, "duration", time.Since(start))
		return resp, nil
	}
}
