package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/veilpay/veilpay-backend/internal/adapter/grpc"
	veilpayv1 "github.com/veilpay/veilpay-backend/internal/adapter/grpc/veilpay/v1"
	"github.com/veilpay/veilpay-backend/internal/adapter/repository/postgres"
	"github.com/veilpay/veilpay-backend/internal/domain"
	"github.com/veilpay/veilpay-backend/internal/usecase/admin"
	"github.com/veilpay/veilpay-backend/internal/usecase/claim"
	"github.com/veilpay/veilpay-backend/internal/usecase/delegation"
	"github.com/veilpay/veilpay-backend/internal/usecase/report"
	"github.com/veilpay/veilpay-backend/internal/usecase/schedule"
	"github.com/veilpay/veilpay-backend/internal/usecase/seeder"
	"github.com/veilpay/veilpay-backend/internal/usecase/vault"
)

const (
	defaultAPIToken = "dev-token"
	grpcPort        = ":8080"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// 1. Setup Database
	dbConnStr := os.Getenv("DB_CONN_STR")
	if dbConnStr == "" {
		// If explicit string is missing, build it from individual vars (Docker friendly)
		host := envOr("DB_HOST", "localhost")
		port := envOr("DB_PORT", "5432")
		user := envOr("DB_USER", "postgres")
		password := envOr("DB_PASSWORD", "postgres")
		dbname := envOr("DB_NAME", "veilpay")

		dbConnStr = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
			host, port, user, password, dbname)
	}

	// Add 2-second delay to ensure Postgres is up (Simple retry)
	time.Sleep(2 * time.Second)

	db, err := postgres.NewDB(dbConnStr)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// 2. Initialize Repositories (Postgres)
	configRepo := postgres.NewConfigRepository(db)
	vaultRepo := postgres.NewVaultRepository(db)
	scheduleRepo := postgres.NewScheduleRepository(db)
	eventRepo := postgres.NewEventRepository(db)
	ledger := postgres.NewTokenLedger(db)
	uow := postgres.NewUnitOfWork(db)

	// 3. Initialize Services (Use Cases)
	clock := clockwork.NewRealClock()
	adminService := admin.NewAdminService(configRepo, eventRepo, clock)
	vaultService := vault.NewVaultService(configRepo, vaultRepo, ledger, uow, clock)
	scheduleService := schedule.NewScheduleService(configRepo, vaultRepo, scheduleRepo, uow, clock)
	claimService := claim.NewClaimService(configRepo, vaultRepo, scheduleRepo, ledger, uow, clock)
	delegationService := delegation.NewDelegationService(configRepo, vaultRepo, scheduleRepo, uow, clock)
	reportService := report.NewReportService(configRepo, vaultRepo, scheduleRepo, clock)

	// Bootstrap the engine config on request; production deployments
	// initialize through governance instead
	if envOr("BOOTSTRAP_CONFIG", "false") == "true" {
		configSeeder := seeder.NewConfigSeeder(configRepo, bootstrapConfigFromEnv(logger))
		if err := configSeeder.Seed(context.Background()); err != nil {
			logger.Fatal("failed to bootstrap engine config", zap.Error(err))
		}
		logger.Info("engine config bootstrapped")
	}

	// 4. Start gRPC Server
	// Get API token from environment or use default
	apiToken := envOr("API_TOKEN", defaultAPIToken)

	// Create gRPC server with AuthInterceptor; reporting stays open
	grpcServer := grpclib.NewServer(
		grpclib.UnaryInterceptor(grpcadapter.AuthInterceptor(apiToken,
			"/veilpay.v1.VeilPayService/GetVaultSummary",
			"/veilpay.v1.VeilPayService/GetScheduleSummary",
		)),
	)

	// Register VeilPayServiceServer
	grpcAdapter := grpcadapter.NewServer(
		adminService,
		vaultService,
		scheduleService,
		claimService,
		delegationService,
		reportService,
	)
	veilpayv1.RegisterVeilPayServiceServer(grpcServer, grpcAdapter)

	reflection.Register(grpcServer)

	// Listen on TCP port 8080
	lis, err := net.Listen("tcp", grpcPort)
	if err != nil {
		logger.Fatal("failed to listen", zap.String("port", grpcPort), zap.Error(err))
	}

	// Start server in a goroutine
	go func() {
		logger.Info("gRPC server listening", zap.String("port", grpcPort))
		if err := grpcServer.Serve(lis); err != nil {
			logger.Fatal("failed to serve gRPC server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	waitForShutdown(grpcServer, logger)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// bootstrapConfigFromEnv assembles the seed config from the environment.
// Fields left unset fall back to the seeder's development identities.
func bootstrapConfigFromEnv(logger *zap.Logger) domain.EngineConfig {
	var config domain.EngineConfig
	parse := func(key string) domain.Address {
		v := os.Getenv(key)
		if v == "" {
			return domain.Address{}
		}
		a, err := domain.ParseAddress(v)
		if err != nil {
			logger.Fatal("invalid bootstrap address", zap.String("var", key), zap.Error(err))
		}
		return a
	}
	config.Governance = parse("GOVERNANCE_ADDRESS")
	config.ExecutionAuthority = parse("EXECUTION_AUTHORITY_ADDRESS")
	config.AllowedAsset = parse("ALLOWED_ASSET_ADDRESS")
	if v := os.Getenv("MAX_RECIPIENTS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 16)
		if err != nil {
			logger.Fatal("invalid MAX_RECIPIENTS", zap.Error(err))
		}
		config.MaxRecipients = uint16(n)
	}
	if v := os.Getenv("BATCH_TIMEOUT_SECONDS"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			logger.Fatal("invalid BATCH_TIMEOUT_SECONDS", zap.Error(err))
		}
		config.BatchTimeoutSeconds = n
	}
	return config
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(grpcServer *grpclib.Server, logger *zap.Logger) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info("shutting down gracefully", zap.String("signal", sig.String()))

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")
}
