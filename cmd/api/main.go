package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"
	"github.com/tu-usuario/gestion-core/internal/application/ledger"
	"github.com/tu-usuario/gestion-core/internal/application/linking"
	"github.com/tu-usuario/gestion-core/internal/application/orchestrator"
	"github.com/tu-usuario/gestion-core/internal/application/partition"
	"github.com/tu-usuario/gestion-core/internal/infrastructure/postgres"
	httpRouter "github.com/tu-usuario/gestion-core/internal/interfaces/http"
	"github.com/tu-usuario/gestion-core/pkg/config"
	"github.com/tu-usuario/gestion-core/pkg/logger"
	"github.com/tu-usuario/gestion-core/pkg/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	movementRepo := postgres.NewMovementRepository(pool)
	levelRepo := postgres.NewStockLevelRepository(pool)
	linkRepo := postgres.NewEntityLinkRepository(pool)
	partyRepo := postgres.NewPartyRepository(pool)
	outstandingRepo := postgres.NewOutstandingRepository(pool)
	linkableRepo := postgres.NewLinkableRepository(pool)
	cashFlowRepo := postgres.NewCashFlowRepository(pool)
	capitalRepo := postgres.NewCapitalRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	ledgerUC := ledger.NewUseCase(txRunner, movementRepo, levelRepo, ledger.Config{
		StockProtection: cfg.Ledger.StockProtection,
	})
	partitionUC := partition.NewUseCase(ledgerUC, movementRepo, capitalRepo)
	linkingUC := linking.NewUseCase(linkRepo, partyRepo, outstandingRepo, linkableRepo, linking.Config{
		AutoLinkFloor:   cfg.Linking.AutoLinkFloor,
		FuzzyThreshold:  cfg.Linking.FuzzyThreshold,
		AmountTolerance: decimal.NewFromFloat(cfg.Linking.AmountTolerance),
	}, log)

	retryOpts := retry.Options{
		MaxAttempts:       cfg.Retry.MaxAttempts,
		BaseDelay:         cfg.Retry.BaseDelay,
		MaxDelay:          cfg.Retry.MaxDelay,
		BackoffFactor:     cfg.Retry.BackoffFactor,
		Jitter:            cfg.Retry.Jitter,
		TimeoutPerAttempt: cfg.Retry.TimeoutPerAttempt,
	}
	orchestratorUC := orchestrator.NewUseCase(
		ledgerUC, partitionUC, linkingUC,
		linkableRepo, cashFlowRepo, retryOpts, log,
	)

	// Las cachés de stock se reconstruyen al arrancar: cualquier divergencia
	// acumulada se corrige con replay del log antes de servir tráfico.
	if err := ledgerUC.RebuildCache(ctx); err != nil {
		log.Fatal().Err(err).Msg("reconstrucción de cachés de stock")
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		OrchestratorUC: orchestratorUC,
		LedgerUC:       ledgerUC,
		PartitionUC:    partitionUC,
		LinkingUC:      linkingUC,
		Linkables:      linkableRepo,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
