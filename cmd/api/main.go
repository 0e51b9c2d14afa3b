package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"obser.dev/internal/auth"
	"obser.dev/internal/config"
	"obser.dev/internal/httpapi"
	"obser.dev/internal/obs"
	"obser.dev/internal/registry"
	"obser.dev/internal/store/pg"
	"obser.dev/internal/tasks"
	"obser.dev/internal/token"
)

var version = "0.3.1"

func main() {
	cfg, err := config.Load()
	if err != nil {
		obs.Logger().Fatalf("config: %v", err)
	}

	obs.Init()
	log := obs.Logger()

	store, err := pg.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("parse redis url: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	codec, err := token.NewCodec(cfg.SecretKey, cfg.JWTIssuer, cfg.JWTAudience)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}
	issuer := token.NewIssuer(codec, cfg.AccessTokenTTL())
	validator := token.NewValidator(codec)

	authSvc, err := auth.NewService(store, issuer, validator, auth.NewRedisBlacklist(redisClient))
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	regSvc, err := registry.NewService(store)
	if err != nil {
		log.Fatalf("registry service: %v", err)
	}

	sweeper := tasks.NewSweeper(store.Credentials())
	if err := sweeper.Start(cfg.CredentialSweepSchedule); err != nil {
		log.Fatalf("credential sweeper: %v", err)
	}
	defer sweeper.Stop()

	api := httpapi.New(*cfg, authSvc, regSvc, validator, httpapi.ReadyProbe{DB: store.DB()}, version)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.Handler(),
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	// gRPC health endpoint for infra probes that speak grpc_health_v1.
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("obser-api", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)

	go func() {
		lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		if err := grpcSrv.Serve(lis); err != nil {
			log.Errorf("grpc serve: %v", err)
		}
	}()

	log.Infof("starting obser-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info("shutting down")
	obs.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	_ = srv.Shutdown(ctx)
	grpcSrv.GracefulStop()
	log.Info("stopped")
}
