package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"

	"servicehub/backend/internal/audit"
	auditrepo "servicehub/backend/internal/audit/repository"
	cataloghandler "servicehub/backend/internal/catalog/handler"
	catalogrepo "servicehub/backend/internal/catalog/repository"
	"servicehub/backend/internal/config"
	"servicehub/backend/internal/db"
	healthhandler "servicehub/backend/internal/health/handler"
	"servicehub/backend/internal/identity/credential"
	"servicehub/backend/internal/identity/credential/keycloak"
	"servicehub/backend/internal/identity/credential/local"
	identityhandler "servicehub/backend/internal/identity/handler"
	identityrepo "servicehub/backend/internal/identity/repository"
	"servicehub/backend/internal/identity/service"
	"servicehub/backend/internal/platform/logging"
	"servicehub/backend/internal/platform/requestctx"
	"servicehub/backend/internal/policy/engine"
	profilehandler "servicehub/backend/internal/profile/handler"
	profilerepo "servicehub/backend/internal/profile/repository"
	"servicehub/backend/internal/provisioning"
	"servicehub/backend/internal/security"
	"servicehub/backend/internal/server"
	"servicehub/backend/internal/server/middleware"
	"servicehub/backend/internal/telemetry/metrics"
	telemetryotel "servicehub/backend/internal/telemetry/otel"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	log := logging.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		log.Error("telemetry setup failed", "error", err)
		os.Exit(1)
	}
	providers.SetGlobal()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("database", "error", err)
		os.Exit(1)
	}

	store, err := newCredentialStore(ctx, cfg, conn, log)
	if err != nil {
		log.Error("credential store", "backend", cfg.CredentialStore, "error", err)
		os.Exit(1)
	}

	var (
		policy        engine.Evaluator = engine.Static{}
		policyChecker healthhandler.PolicyChecker
	)
	if cfg.PolicyEngine == config.PolicyEngineOPA {
		opa, err := engine.NewOPAEvaluator(ctx, "", log)
		if err != nil {
			log.Error("policy engine", "error", err)
			os.Exit(1)
		}
		policy, policyChecker = opa, opa
	}

	collector := metrics.NewCollector()
	registry, err := metrics.NewRegistry(collector)
	if err != nil {
		log.Error("metrics registry", "error", err)
		os.Exit(1)
	}

	auditLogger := audit.NewLogger(auditrepo.NewPostgresRepository(conn), requestctx.ClientIP, log)
	profiles := profilerepo.NewPostgresRepository(conn)
	coordinator := provisioning.NewCoordinator(store, profiles,
		provisioning.WithAudit(auditLogger),
		provisioning.WithOutcomeCounter(collector),
		provisioning.WithEventEmitter(telemetryotel.NewEventEmitter(providers.LoggerProvider)),
		provisioning.WithLogger(log),
	)
	checker := healthhandler.NewChecker(conn, policyChecker)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(server.Deps{
		Log:            log,
		ServiceName:    cfg.ServiceName,
		Access:         middleware.NewAccess(middleware.NewSessionGuard(store), policy, collector, log),
		Auth:           identityhandler.NewHandler(coordinator, service.NewAuthService(store, auditLogger, collector, log), log),
		Profiles:       profilehandler.NewHandler(profiles, log),
		Catalog:        cataloghandler.NewHandler(catalogrepo.NewPostgresRepository(conn), log),
		Health:         healthhandler.NewHTTP(checker, log),
		Metrics:        collector,
		MetricsHandler: metrics.Handler(registry),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		log.Info("http server listening", "addr", cfg.HTTPAddr, "credential_store", cfg.CredentialStore, "policy_engine", cfg.PolicyEngine)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http serve", "error", err)
			stop()
		}
	}()

	var grpcSrv *grpc.Server
	if cfg.GRPCHealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCHealthAddr)
		if err != nil {
			log.Error("grpc listen", "addr", cfg.GRPCHealthAddr, "error", err)
			os.Exit(1)
		}
		grpcSrv = server.NewGRPCServer(healthhandler.NewServer(checker))
		go func() {
			log.Info("grpc health listening", "addr", cfg.GRPCHealthAddr)
			if err := grpcSrv.Serve(lis); err != nil {
				log.Error("grpc serve", "error", err)
			}
		}()
	}

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}
	if grpcSrv != nil {
		grpcSrv.GracefulStop()
	}
	if err := conn.Close(); err != nil {
		log.Warn("database close", "error", err)
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn("telemetry shutdown", "error", err)
	}
	log.Info("stopped")
}

// newCredentialStore builds the identity provider adapter selected by CREDENTIAL_STORE.
func newCredentialStore(ctx context.Context, cfg *config.Config, conn *sql.DB, log *slog.Logger) (credential.Store, error) {
	switch cfg.CredentialStore {
	case config.CredentialStoreKeycloak:
		kc, err := keycloak.New(ctx, keycloak.Config{
			Issuer:       cfg.KeycloakIssuer,
			AdminBaseURL: cfg.KeycloakAdminBaseURL(),
			ClientID:     cfg.KeycloakClientID,
			ClientSecret: cfg.KeycloakClientSecret,
			HTTPClient:   &http.Client{Timeout: cfg.ProviderHTTPTimeout()},
			Logger:       log,
		})
		if err != nil {
			return nil, err
		}
		return kc, nil
	default:
		keys, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
		if err != nil {
			return nil, err
		}
		tokens := security.NewTokenProvider(keys, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
		return local.NewStore(identityrepo.NewPostgresRepository(conn), security.NewPasswordHasher(cfg.BcryptCost), tokens), nil
	}
}
